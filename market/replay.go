package market

import (
	"context"
	"fmt"
	"sync"
)

// Replay is a deterministic in-memory Data implementation used by dry runs
// and tests. Quotes and candles are set up front; fetches never block.
type Replay struct {
	mu      sync.Mutex
	tickers map[string]Ticker
	candles map[string][]Candle // keyed by symbol+"|"+timeframe
	balance Balance
	balErr  error
	tickErr error
}

func NewReplay() *Replay {
	return &Replay{
		tickers: make(map[string]Ticker),
		candles: make(map[string][]Candle),
		balance: make(Balance),
	}
}

func (r *Replay) SetTicker(t Ticker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickers[t.Symbol] = t
}

func (r *Replay) SetCandles(symbol, timeframe string, cs []Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candles[symbol+"|"+timeframe] = cs
}

func (r *Replay) SetBalance(b Balance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balance = b
}

// FailTicker makes every FetchTicker return err until cleared with nil.
func (r *Replay) FailTicker(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickErr = err
}

// FailBalance makes every FetchBalance return err until cleared with nil.
func (r *Replay) FailBalance(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balErr = err
}

func (r *Replay) FetchTicker(_ context.Context, symbol string) (Ticker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tickErr != nil {
		return Ticker{}, r.tickErr
	}
	t, ok := r.tickers[symbol]
	if !ok {
		return Ticker{}, fmt.Errorf("replay: no ticker for %q", symbol)
	}
	return t, nil
}

func (r *Replay) FetchOHLCV(_ context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.candles[symbol+"|"+timeframe]
	if !ok {
		return nil, fmt.Errorf("replay: no candles for %q %s", symbol, timeframe)
	}
	if limit > 0 && len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	out := make([]Candle, len(cs))
	copy(out, cs)
	return out, nil
}

func (r *Replay) FetchBalance(_ context.Context) (Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balErr != nil {
		return nil, r.balErr
	}
	out := make(Balance, len(r.balance))
	for k, v := range r.balance {
		out[k] = v
	}
	return out, nil
}
