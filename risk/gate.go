package risk

import (
	"context"
	"fmt"
	"log"

	"github.com/tradeops/irongate/market"
)

// Gate reason codes. Machine-readable; the forensic trail stores them as-is.
const (
	ReasonOK                    = "RISK_GATE_OK"
	ReasonNoBidAsk              = "RISK_GATE_NO_BID_ASK"
	ReasonZeroPrice             = "RISK_GATE_ZERO_PRICE"
	ReasonSpreadExceeded        = "RISK_GATE_SPREAD_EXCEEDED"
	ReasonNoBalanceMethod       = "RISK_GATE_NO_BALANCE_METHOD"
	ReasonNoBaseCurrencyBalance = "RISK_GATE_NO_BASE_CURRENCY_BALANCE"
	ReasonDrawdownExceeded      = "RISK_GATE_DRAWDOWN_EXCEEDED"
	reasonErrorPrefix           = "RISK_GATE_ERROR_"
)

// Decision is the gate verdict plus the metrics that justify it. Metrics
// are populated on every branch, pass or fail, for audit completeness.
type Decision struct {
	OK      bool
	Reason  string
	Metrics map[string]float64
}

// Gate composes the spread check and the drawdown tracker into a single
// pre-trade veto.
type Gate struct {
	MaxSpreadPct   float64
	MaxDrawdownPct float64
	BaseCurrency   string

	Tracker *DrawdownTracker
	Logger  *log.Logger
}

// PreTradeCheck verifies risk conditions before any execution is allowed.
// Expected guard failures return a tagged negative Decision; an unexpected
// panic anywhere inside is converted to a RISK_GATE_ERROR decision, never
// an unguarded crash.
func (g *Gate) PreTradeCheck(ctx context.Context, md market.Data, symbol string) (d Decision) {
	d.Metrics = map[string]float64{}

	defer func() {
		if r := recover(); r != nil {
			if g.Logger != nil {
				g.Logger.Printf("[ERROR] risk gate panic: %v", r)
			}
			d = Decision{Reason: fmt.Sprintf("%s%v", reasonErrorPrefix, r), Metrics: d.Metrics}
		}
	}()

	if md == nil {
		d.Reason = ReasonNoBalanceMethod
		return d
	}

	// A) Spread. A stale or one-sided quote is disqualifying by itself.
	ticker, err := md.FetchTicker(ctx, symbol)
	if err != nil || ticker.Bid <= 0 || ticker.Ask <= 0 {
		d.Reason = ReasonNoBidAsk
		return d
	}

	mid := ticker.Mid()
	if mid == 0 {
		d.Reason = ReasonZeroPrice
		return d
	}

	spreadPct := (ticker.Ask - ticker.Bid) / mid * 100
	d.Metrics["spread_pct"] = spreadPct
	d.Metrics["max_spread_pct"] = g.MaxSpreadPct

	if spreadPct > g.MaxSpreadPct {
		d.Reason = ReasonSpreadExceeded
		return d
	}

	// B) Drawdown, fed by real equity. No balance read means no trade.
	bal, err := md.FetchBalance(ctx)
	if err != nil {
		d.Reason = ReasonNoBalanceMethod
		return d
	}

	equity, ok := bal.Total(g.BaseCurrency)
	if !ok {
		d.Reason = ReasonNoBaseCurrencyBalance
		return d
	}

	ddPct := g.Tracker.Update(equity)
	peak, _ := g.Tracker.Peak()

	d.Metrics["current_equity"] = equity
	d.Metrics["peak_equity"] = peak
	d.Metrics["dd_pct"] = ddPct
	d.Metrics["max_dd_pct"] = g.MaxDrawdownPct
	d.Metrics["drawdown_blocked"] = 0

	if ddPct > g.MaxDrawdownPct {
		d.Metrics["drawdown_blocked"] = 1
		d.Reason = fmt.Sprintf("%s (%.2f%%)", ReasonDrawdownExceeded, ddPct)
		return d
	}

	d.OK = true
	d.Reason = ReasonOK
	return d
}
