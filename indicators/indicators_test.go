package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeops/irongate/market"
)

func flat(n int, price float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{Open: price, High: price, Low: price, Close: price}
	}
	return out
}

func TestEMA_FlatSeriesEqualsPrice(t *testing.T) {
	t.Parallel()

	ema, err := EMA(flat(30, 50), 10)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, ema, 1e-9)
}

func TestEMA_InsufficientData(t *testing.T) {
	t.Parallel()

	_, err := EMA(flat(5, 50), 10)
	assert.Error(t, err)

	_, err = EMA(flat(5, 50), 0)
	assert.Error(t, err)
}

func TestRSI_AllGainsIsHundred(t *testing.T) {
	t.Parallel()

	candles := make([]market.Candle, 20)
	price := 100.0
	for i := range candles {
		candles[i] = market.Candle{Close: price}
		price += 1
	}

	rsi, err := RSI(candles, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_AllLossesIsZero(t *testing.T) {
	t.Parallel()

	candles := make([]market.Candle, 20)
	price := 100.0
	for i := range candles {
		candles[i] = market.Candle{Close: price}
		price -= 1
	}

	rsi, err := RSI(candles, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rsi, 1e-9)
}

func TestRSI_InsufficientData(t *testing.T) {
	t.Parallel()

	_, err := RSI(flat(14, 50), 14)
	assert.Error(t, err)
}

func TestATR_ConstantRange(t *testing.T) {
	t.Parallel()

	candles := make([]market.Candle, 20)
	for i := range candles {
		candles[i] = market.Candle{Open: 100, High: 102, Low: 98, Close: 100}
	}

	atr, err := ATR(candles, 14)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, atr, 1e-9)
}

func TestATR_GapsUseTrueRange(t *testing.T) {
	t.Parallel()

	// A gap above the previous close widens the true range beyond high-low.
	candles := flat(15, 100)
	candles = append(candles, market.Candle{Open: 110, High: 111, Low: 109, Close: 110})

	atr, err := ATR(candles, 15)
	require.NoError(t, err)
	assert.Greater(t, atr, 0.0)
}

func TestATR_InsufficientData(t *testing.T) {
	t.Parallel()

	_, err := ATR(flat(14, 50), 14)
	assert.Error(t, err)
}
