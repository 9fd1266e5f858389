package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradeops/irongate/market"
)

// uptrend builds n gently rising low-volatility candles.
func uptrend(n int) []market.Candle {
	out := make([]market.Candle, n)
	price := 100.0
	for i := range out {
		out[i] = market.Candle{
			TS:     int64(i) * 900_000,
			Open:   price,
			High:   price + 0.3,
			Low:    price - 0.1,
			Close:  price + 0.2,
			Volume: 10,
		}
		price += 0.2
	}
	return out
}

// downtrend builds n falling candles.
func downtrend(n int) []market.Candle {
	out := make([]market.Candle, n)
	price := 100.0
	for i := range out {
		out[i] = market.Candle{
			TS:     int64(i) * 900_000,
			Open:   price,
			High:   price + 0.1,
			Low:    price - 0.3,
			Close:  price - 0.2,
			Volume: 10,
		}
		price -= 0.2
	}
	return out
}

func TestClassifyRegime_BullTrend(t *testing.T) {
	t.Parallel()

	regime, vol := ClassifyRegime(uptrend(60))
	assert.Equal(t, RegimeBullTrend, regime)
	assert.Less(t, vol, volatileATRPct)
}

func TestClassifyRegime_BearTrend(t *testing.T) {
	t.Parallel()

	regime, _ := ClassifyRegime(downtrend(60))
	assert.Equal(t, RegimeBearTrend, regime)
}

func TestClassifyRegime_VolatileSuffix(t *testing.T) {
	t.Parallel()

	// Wide bars relative to price force the volatility tag.
	candles := make([]market.Candle, 40)
	price := 100.0
	for i := range candles {
		candles[i] = market.Candle{
			Open: price, High: price + 5, Low: price - 5, Close: price + 0.5, Volume: 10,
		}
		price += 0.5
	}

	regime, vol := ClassifyRegime(candles)
	assert.Contains(t, regime, volatileSuffix)
	assert.Greater(t, vol, volatileATRPct)
}

func TestClassifyRegime_InsufficientDataIsUnknown(t *testing.T) {
	t.Parallel()

	regime, vol := ClassifyRegime(nil)
	assert.Equal(t, RegimeUnknown, regime)
	assert.Equal(t, 0.0, vol)

	regime, _ = ClassifyRegime(uptrend(3))
	assert.Equal(t, RegimeUnknown, regime)
}

func TestMTFAligned(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		micro   string
		m1h     string
		m4h     string
		aligned bool
	}{
		{"bull fully aligned", RegimeBullTrend, RegimeBullTrend, RegimeBullWeak, true},
		{"bull vs bear 1h", RegimeBullTrend, RegimeBearTrend, RegimeBullTrend, false},
		{"bull vs bear 4h", RegimeBullTrend, RegimeBullTrend, RegimeBearWeak, false},
		{"missing macro fails closed", RegimeBullTrend, RegimeUnknown, RegimeBullTrend, false},
		{"bear micro passes through", RegimeBearTrend, RegimeBullTrend, RegimeBullTrend, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, _ := mtfAligned(tt.micro, tt.m1h, tt.m4h)
			assert.Equal(t, tt.aligned, ok)
		})
	}
}
