package risk

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeops/irongate/ledger"
	"github.com/tradeops/irongate/market"
)

func newGate(t *testing.T, maxDD float64) (*Gate, *market.Replay) {
	t.Helper()

	tracker, err := NewDrawdownTracker(ledger.NewStore(filepath.Join(t.TempDir(), "risk_state.json")), nil)
	require.NoError(t, err)

	md := market.NewReplay()
	md.SetTicker(market.Ticker{Symbol: "BTC/USDT", Bid: 99.9, Ask: 100.1})
	md.SetBalance(market.Balance{"USDT": 1000})

	return &Gate{
		MaxSpreadPct:   0.5,
		MaxDrawdownPct: maxDD,
		BaseCurrency:   "USDT",
		Tracker:        tracker,
	}, md
}

func TestGate_PassesWithHealthyQuoteAndEquity(t *testing.T) {
	t.Parallel()

	g, md := newGate(t, 5.0)
	d := g.PreTradeCheck(context.Background(), md, "BTC/USDT")
	assert.True(t, d.OK)
	assert.Equal(t, ReasonOK, d.Reason)
	assert.Contains(t, d.Metrics, "spread_pct")
	assert.Contains(t, d.Metrics, "dd_pct")
}

func TestGate_MissingQuoteFailsClosed(t *testing.T) {
	t.Parallel()

	g, md := newGate(t, 5.0)
	md.FailTicker(errors.New("exchange down"))

	d := g.PreTradeCheck(context.Background(), md, "BTC/USDT")
	assert.False(t, d.OK)
	assert.Equal(t, ReasonNoBidAsk, d.Reason)
	assert.NotNil(t, d.Metrics)
}

func TestGate_NonPositiveQuoteFailsClosed(t *testing.T) {
	t.Parallel()

	g, md := newGate(t, 5.0)
	md.SetTicker(market.Ticker{Symbol: "BTC/USDT", Bid: 0, Ask: 100})

	d := g.PreTradeCheck(context.Background(), md, "BTC/USDT")
	assert.False(t, d.OK)
	assert.Equal(t, ReasonNoBidAsk, d.Reason)
}

func TestGate_SpreadCeiling(t *testing.T) {
	t.Parallel()

	g, md := newGate(t, 5.0)
	md.SetTicker(market.Ticker{Symbol: "BTC/USDT", Bid: 99, Ask: 101}) // ~2% spread

	d := g.PreTradeCheck(context.Background(), md, "BTC/USDT")
	assert.False(t, d.OK)
	assert.Equal(t, ReasonSpreadExceeded, d.Reason)
	assert.Greater(t, d.Metrics["spread_pct"], 0.5)
}

func TestGate_BalanceFailuresFailClosed(t *testing.T) {
	t.Parallel()

	t.Run("fetch error", func(t *testing.T) {
		t.Parallel()
		g, md := newGate(t, 5.0)
		md.FailBalance(errors.New("auth"))
		d := g.PreTradeCheck(context.Background(), md, "BTC/USDT")
		assert.False(t, d.OK)
		assert.Equal(t, ReasonNoBalanceMethod, d.Reason)
	})

	t.Run("missing base currency", func(t *testing.T) {
		t.Parallel()
		g, md := newGate(t, 5.0)
		md.SetBalance(market.Balance{"EUR": 1000})
		d := g.PreTradeCheck(context.Background(), md, "BTC/USDT")
		assert.False(t, d.OK)
		assert.Equal(t, ReasonNoBaseCurrencyBalance, d.Reason)
	})
}

// Peak 1000, equities 1000 -> 980 -> 900 with a 5% ceiling: the gate passes
// at 2% drawdown and rejects at 10%.
func TestGate_DrawdownKillSequence(t *testing.T) {
	t.Parallel()

	g, md := newGate(t, 5.0)

	md.SetBalance(market.Balance{"USDT": 1000})
	d := g.PreTradeCheck(context.Background(), md, "BTC/USDT")
	require.True(t, d.OK)
	assert.Equal(t, 0.0, d.Metrics["dd_pct"])

	md.SetBalance(market.Balance{"USDT": 980})
	d = g.PreTradeCheck(context.Background(), md, "BTC/USDT")
	assert.True(t, d.OK)
	assert.InDelta(t, 2.0, d.Metrics["dd_pct"], 1e-9)

	md.SetBalance(market.Balance{"USDT": 900})
	d = g.PreTradeCheck(context.Background(), md, "BTC/USDT")
	assert.False(t, d.OK)
	assert.True(t, strings.Contains(d.Reason, ReasonDrawdownExceeded))
	assert.InDelta(t, 10.0, d.Metrics["dd_pct"], 1e-9)
	assert.Equal(t, 1.0, d.Metrics["drawdown_blocked"])
}

func TestGate_NilMarketDataFailsClosed(t *testing.T) {
	t.Parallel()

	g, _ := newGate(t, 5.0)
	d := g.PreTradeCheck(context.Background(), nil, "BTC/USDT")
	assert.False(t, d.OK)
	assert.NotNil(t, d.Metrics)
}
