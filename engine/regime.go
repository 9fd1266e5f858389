package engine

import (
	"strings"

	"github.com/tradeops/irongate/indicators"
	"github.com/tradeops/irongate/market"
)

// Regime labels. A _VOLATILE suffix marks elevated ATR on top of the base
// trend label.
const (
	RegimeBullTrend = "BULL_TREND"
	RegimeBullWeak  = "BULL_WEAK"
	RegimeBearTrend = "BEAR_TREND"
	RegimeBearWeak  = "BEAR_WEAK"
	RegimeSideways  = "SIDEWAYS"
	RegimeUnknown   = "UNKNOWN"

	volatileSuffix = "_VOLATILE"
)

// volatileATRPct is the ATR-to-price percentage above which a regime is
// tagged volatile.
const volatileATRPct = 2.0

// ClassifyRegime labels the market state from a candle window using
// EMA(200), RSI(14) and ATR(14). Insufficient or unusable data returns
// UNKNOWN with zero volatility. Callers treat UNKNOWN as a reason not to
// act, never as a default to act on.
func ClassifyRegime(candles []market.Candle) (regime string, volatilityPct float64) {
	if len(candles) == 0 {
		return RegimeUnknown, 0
	}

	ema200, err := indicators.EMA(candles, emaPeriodFor(len(candles)))
	if err != nil {
		return RegimeUnknown, 0
	}
	rsi, err := indicators.RSI(candles, 14)
	if err != nil {
		return RegimeUnknown, 0
	}
	atr, err := indicators.ATR(candles, 14)
	if err != nil {
		return RegimeUnknown, 0
	}

	price := candles[len(candles)-1].Close
	if price <= 0 {
		return RegimeUnknown, 0
	}

	switch {
	case price > ema200 && rsi > 50:
		regime = RegimeBullTrend
	case price > ema200:
		regime = RegimeBullWeak
	case rsi < 50:
		regime = RegimeBearTrend
	default:
		regime = RegimeBearWeak
	}

	volatilityPct = atr / price * 100
	if volatilityPct > volatileATRPct {
		regime += volatileSuffix
	}
	return regime, volatilityPct
}

// emaPeriodFor degrades the trend EMA gracefully when the feed returns a
// short window: 200 when available, else the window itself.
func emaPeriodFor(n int) int {
	if n >= 200 {
		return 200
	}
	if n > 15 {
		return n - 1
	}
	return 1
}

// mtfAligned applies the multi-timeframe veto: a bullish micro regime is
// tradable only when neither macro timeframe is bearish. Missing macro
// data fails closed.
func mtfAligned(micro, macro1h, macro4h string) (bool, string) {
	if macro1h == RegimeUnknown || macro4h == RegimeUnknown {
		return false, "MTF_DATA_MISSING"
	}
	if strings.Contains(micro, "BULL") {
		if strings.Contains(macro1h, "BEAR") || strings.Contains(macro4h, "BEAR") {
			return false, "MTF_MISMATCH_BEAR_MACRO (1h=" + macro1h + ", 4h=" + macro4h + ")"
		}
	}
	return true, "ALIGNED"
}
