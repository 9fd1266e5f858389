package sim

import (
	"github.com/shopspring/decimal"

	"github.com/tradeops/irongate/market"
)

// Exit tags produced by PathAnalysis.
const (
	ExitGapPrev     = "GAP_EXIT_PREV"
	ExitWorstCaseSL = "WORST_CASE_SL_TAKEN"
	ExitGapCurrent  = "GAP_EXIT_CURRENT"
)

// PathExit is a forced worst-case exit resolved from the price path.
type PathExit struct {
	Price decimal.Decimal
	Tag   string
}

// PathAnalysis resolves the worst-case exit when a stop-loss may have been
// breached between evaluations. The order of the branches is the tie-break
// policy and is not interchangeable:
//
//  1. Stop touched during the prior bar (prev.Low <= stop). If the bar also
//     opened below the stop, the position gapped in under it already: exit
//     at the prior open. Otherwise assume the stop filled with slippage.
//  2. No touch in the prior bar but the current bar opened below the stop:
//     gap exit at the current open with slippage.
//  3. Otherwise no stop event.
//
// A not-ok result means "no forced exit detected" and must be combined
// with the other gates, never read as "safe" on its own.
func (s *Simulator) PathAnalysis(prev market.Candle, stopLoss, currentOpen float64) (PathExit, bool) {
	if stopLoss <= 0 || prev.Open <= 0 || prev.Low <= 0 {
		return PathExit{}, false
	}

	stop := decimal.NewFromFloat(stopLoss)
	prevOpen := decimal.NewFromFloat(prev.Open)
	prevLow := decimal.NewFromFloat(prev.Low)
	curOpen := decimal.NewFromFloat(currentOpen)
	one := decimal.NewFromInt(1)

	if prevLow.LessThanOrEqual(stop) {
		if prevOpen.LessThan(stop) {
			return PathExit{Price: prevOpen, Tag: ExitGapPrev}, true
		}
		return PathExit{
			Price: stop.Mul(one.Sub(s.SlippageRate)),
			Tag:   ExitWorstCaseSL,
		}, true
	}

	if curOpen.Sign() > 0 && curOpen.LessThan(stop) {
		return PathExit{
			Price: curOpen.Mul(one.Sub(s.SlippageRate)),
			Tag:   ExitGapCurrent,
		}, true
	}

	return PathExit{}, false
}
