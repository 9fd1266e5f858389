// Package market defines the narrow surface this engine consumes from an
// exchange integration layer. The gates never talk to an exchange SDK
// directly; they see only the fields below.
package market

import "context"

// Ticker is a fresh top-of-book quote. Zero values are meaningful to the
// risk gate (a zero bid/ask fails closed), so no pointers here.
type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	Last   float64
}

// Mid returns the quote midpoint.
func (t Ticker) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Candle is one OHLCV bar.
type Candle struct {
	TS     int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Balance maps currency code to total holdings.
type Balance map[string]float64

// Total reports the total for a currency and whether it is present at all.
// Absence and zero are different answers: absence fails the risk gate closed.
func (b Balance) Total(currency string) (float64, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b[currency]
	return v, ok
}

// Data is the full capability the engine needs from market connectivity.
// Callers own their timeout policy; the gates only consume returned values.
type Data interface {
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
	FetchBalance(ctx context.Context) (Balance, error)
}
