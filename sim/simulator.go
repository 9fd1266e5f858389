// Package sim is the pessimistic fill-price model. All arithmetic is
// fixed-point decimal: fee and slippage compounding in float64 drifts at
// the cent level, which matters when the audit trail is replayed against
// real fills.
package sim

import (
	"github.com/shopspring/decimal"
)

func init() {
	// VWAP walks divide partial level quantities by prices; 28 significant
	// digits keeps those quotients exact enough to re-derive fills.
	if decimal.DivisionPrecision < 28 {
		decimal.DivisionPrecision = 28
	}
}

// Level is one order-book price level.
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// LevelsFromFloats builds levels from [price, qty] pairs, the shape the
// market data layer hands back.
func LevelsFromFloats(pairs [][2]float64) []Level {
	out := make([]Level, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Level{
			Price: decimal.NewFromFloat(p[0]),
			Qty:   decimal.NewFromFloat(p[1]),
		})
	}
	return out
}

// Simulator applies taker fees and volatility-scaled latency slippage on
// top of order-book VWAP.
type Simulator struct {
	TakerFeeRate decimal.Decimal
	SlippageRate decimal.Decimal
}

// New builds a simulator from float rates (config values).
func New(takerFeeRate, slippageRate float64) *Simulator {
	return &Simulator{
		TakerFeeRate: decimal.NewFromFloat(takerFeeRate),
		SlippageRate: decimal.NewFromFloat(slippageRate),
	}
}

// latencyFactor scales ATR into the extra adverse move assumed between
// decision and fill.
var latencyFactor = decimal.RequireFromString("0.05")

// VWAPBuy walks the ask side spending capital level by level; the level
// that would overshoot is filled partially. Returns the volume-weighted
// average price paid, or zero when the book has no usable levels; callers
// must treat zero as "no liquidity, do not trade", never as a free fill.
func (s *Simulator) VWAPBuy(asks []Level, capital decimal.Decimal) decimal.Decimal {
	if capital.Sign() <= 0 {
		return decimal.Zero
	}

	remaining := capital
	totalQty := decimal.Zero
	totalCost := decimal.Zero

	for _, lvl := range asks {
		if lvl.Price.Sign() <= 0 || lvl.Qty.Sign() <= 0 {
			continue
		}
		levelCost := lvl.Price.Mul(lvl.Qty)
		if levelCost.GreaterThanOrEqual(remaining) {
			qty := remaining.Div(lvl.Price)
			totalQty = totalQty.Add(qty)
			totalCost = totalCost.Add(remaining)
			remaining = decimal.Zero
			break
		}
		totalQty = totalQty.Add(lvl.Qty)
		totalCost = totalCost.Add(levelCost)
		remaining = remaining.Sub(levelCost)
	}

	if totalQty.Sign() <= 0 {
		return decimal.Zero
	}
	return totalCost.Div(totalQty)
}

// VWAPSell walks the bid side selling qty level by level, partially filling
// the last level touched. Zero means no liquidity.
func (s *Simulator) VWAPSell(bids []Level, qty decimal.Decimal) decimal.Decimal {
	if qty.Sign() <= 0 {
		return decimal.Zero
	}

	remaining := qty
	totalQty := decimal.Zero
	totalProceeds := decimal.Zero

	for _, lvl := range bids {
		if lvl.Price.Sign() <= 0 || lvl.Qty.Sign() <= 0 {
			continue
		}
		if lvl.Qty.GreaterThanOrEqual(remaining) {
			totalProceeds = totalProceeds.Add(lvl.Price.Mul(remaining))
			totalQty = totalQty.Add(remaining)
			remaining = decimal.Zero
			break
		}
		totalProceeds = totalProceeds.Add(lvl.Price.Mul(lvl.Qty))
		totalQty = totalQty.Add(lvl.Qty)
		remaining = remaining.Sub(lvl.Qty)
	}

	if totalQty.Sign() <= 0 {
		return decimal.Zero
	}
	return totalProceeds.Div(totalQty)
}

// SimulateBuy converts capital into quantity at a pessimistic execution
// price: VWAP worsened by the ATR latency penalty, with the taker fee
// deducted from capital first. Degenerate inputs yield (0, 0).
func (s *Simulator) SimulateBuy(vwap, capital, atr decimal.Decimal) (qty, execPrice decimal.Decimal) {
	if vwap.Sign() <= 0 || capital.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}

	execPrice = vwap.Add(atr.Mul(latencyFactor))
	effective := capital.Mul(decimal.NewFromInt(1).Sub(s.TakerFeeRate))
	qty = effective.Div(execPrice)
	return qty, execPrice
}

// SimulateSell converts quantity into net proceeds, subtracting the latency
// penalty from VWAP before fees. Returns (netProceeds, execPrice).
func (s *Simulator) SimulateSell(vwap, qty, atr decimal.Decimal) (net, execPrice decimal.Decimal) {
	if vwap.Sign() <= 0 || qty.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}

	execPrice = vwap.Sub(atr.Mul(latencyFactor))
	if execPrice.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}
	gross := qty.Mul(execPrice)
	net = gross.Mul(decimal.NewFromInt(1).Sub(s.TakerFeeRate))
	return net, execPrice
}

// MarkToMarketEquity values a long position at the bid, floored at zero.
// Bid, not mid or ask: the valuation stays pessimistic for long exposure.
func MarkToMarketEquity(bid, qty, cash decimal.Decimal) decimal.Decimal {
	eq := cash.Add(qty.Mul(bid))
	if eq.Sign() < 0 {
		return decimal.Zero
	}
	return eq
}
