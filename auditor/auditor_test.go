package auditor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradeops/irongate/intent"
)

type stubBackend struct {
	name string
	c    Classification
	err  error
}

func (s stubBackend) Name() string { return s.name }

func (s stubBackend) Classify(context.Context, intent.Ticket, string) (Classification, error) {
	return s.c, s.err
}

func buyTicket() intent.Ticket {
	return intent.Ticket{
		TicketID: "T1", Symbol: "BTC/USDT", Action: intent.Buy,
		OrderType: intent.Market, Quantity: 0.5,
	}
}

func TestAudit_PrimaryApproves(t *testing.T) {
	t.Parallel()

	a := New(nil, stubBackend{
		name: "model-a",
		c:    Classification{Status: "APPROVE", RiskLevel: "LOW", Reason: "trend aligned"},
	})

	v := a.Audit(context.Background(), buyTicket(), "BULL_TREND")
	assert.True(t, v.Approved)
	assert.Equal(t, PathPrimary, v.Path)
	assert.False(t, v.ViaFallback)
	assert.Contains(t, v.Reason, "model-a")
}

// A failing primary must yield exactly the deterministic fallback's verdict
// and the record must say the fallback decided.
func TestAudit_PrimaryErrorFallsBack(t *testing.T) {
	t.Parallel()

	failing := stubBackend{name: "model-a", err: errors.New("timeout")}
	a := New(nil, failing)

	tk := buyTicket()
	v := a.Audit(context.Background(), tk, "BULL_TREND")

	want := deterministic(tk, "BULL_TREND")
	assert.Equal(t, want.Approved, v.Approved)
	assert.Equal(t, want.Reason, v.Reason)
	assert.True(t, v.ViaFallback)
	assert.Equal(t, PathFallback, v.Path)
}

func TestAudit_MalformedResponseFallsBack(t *testing.T) {
	t.Parallel()

	a := New(nil, stubBackend{
		name: "model-a",
		c:    Classification{Status: "maybe?", RiskLevel: ""},
	})

	v := a.Audit(context.Background(), buyTicket(), "BULL_TREND")
	assert.True(t, v.ViaFallback)
}

func TestAudit_NonLowRiskDefersToFallback(t *testing.T) {
	t.Parallel()

	a := New(nil, stubBackend{
		name: "model-a",
		c:    Classification{Status: "APPROVE", RiskLevel: "HIGH", Reason: "looks fine"},
	})

	// An elevated-risk APPROVE is not trusted; deterministic rules decide.
	v := a.Audit(context.Background(), buyTicket(), "BULL_TREND")
	assert.True(t, v.ViaFallback)
}

func TestAudit_BackendsIteratedInPriorityOrder(t *testing.T) {
	t.Parallel()

	a := New(nil,
		stubBackend{name: "down", err: errors.New("unreachable")},
		stubBackend{name: "backup", c: Classification{Status: "REJECT", RiskLevel: "LOW", Reason: "no edge"}},
	)

	v := a.Audit(context.Background(), buyTicket(), "BULL_TREND")
	assert.False(t, v.Approved)
	assert.Equal(t, PathPrimary, v.Path)
	assert.Contains(t, v.Reason, "backup")
}

func TestDeterministic_Vetoes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ticket   intent.Ticket
		regime   string
		approved bool
	}{
		{"buy under volatile regime", buyTicket(), "BULL_TREND_VOLATILE", false},
		{"zero quantity sell", intent.Ticket{Action: intent.Sell, Quantity: 0}, "BULL_TREND", false},
		{"hold with zero quantity ok", intent.Ticket{Action: intent.Hold, Quantity: 0}, "SIDEWAYS", true},
		{"unknown action", intent.Ticket{Action: "SHORT", Quantity: 1}, "BULL_TREND", false},
		{"clean buy", buyTicket(), "BULL_TREND", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := deterministic(tt.ticket, tt.regime)
			assert.Equal(t, tt.approved, v.Approved)
			if !tt.approved {
				assert.Contains(t, v.Reason, "FAIL_CLOSED")
			}
		})
	}
}

func TestAudit_NoBackendsUsesFallback(t *testing.T) {
	t.Parallel()

	a := New(nil)
	v := a.Audit(context.Background(), buyTicket(), "BULL_TREND")
	assert.True(t, v.ViaFallback)
	assert.True(t, v.Approved)
}
