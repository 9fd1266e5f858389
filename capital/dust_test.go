package capital

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDustGate_Evaluate(t *testing.T) {
	t.Parallel()

	g := DustGate{MinCapitalUSD: 10.0}

	tests := []struct {
		name     string
		capital  float64
		allow    bool
		decision string
		reason   string
	}{
		{"well below", 5.0, false, DecisionCash, ReasonDustCapital},
		{"just below", 9.999999, false, DecisionCash, ReasonDustCapital},
		{"exactly at threshold", 10.0, true, DecisionInvested, ReasonCapitalOK},
		{"above", 10.01, true, DecisionInvested, ReasonCapitalOK},
		{"zero", 0, false, DecisionCash, ReasonDustCapital},
		{"negative", -3, false, DecisionCash, ReasonDustCapital},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			allow, decision, reason := g.Evaluate(tt.capital)
			assert.Equal(t, tt.allow, allow)
			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestDustGate_UnknownCapitalFailsClosed(t *testing.T) {
	t.Parallel()

	g := DustGate{MinCapitalUSD: 10.0}
	allow, decision, reason := g.EvaluateKnown(false, 1_000_000)
	assert.False(t, allow)
	assert.Equal(t, DecisionCash, decision)
	assert.Equal(t, ReasonDustCapitalUnknown, reason)
}
