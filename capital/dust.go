package capital

// Dust gate reason codes.
const (
	ReasonDustCapital        = "DUST_CAPITAL"
	ReasonDustCapitalUnknown = "DUST_CAPITAL_UNKNOWN"
	ReasonCapitalOK          = "CAPITAL_OK"
)

// Allocation decision produced by the dust gate.
const (
	DecisionCash     = "CASH"
	DecisionInvested = "INVESTED"
)

// DustGate blocks trading below a minimum capital. Stateless; any doubt
// resolves to CASH.
type DustGate struct {
	MinCapitalUSD float64
}

// Evaluate applies the single rule: capital strictly below the threshold
// means CASH. Exactly the threshold is sufficient to trade.
func (g DustGate) Evaluate(capitalUSD float64) (allow bool, decision, reason string) {
	if capitalUSD < g.MinCapitalUSD {
		return false, DecisionCash, ReasonDustCapital
	}
	return true, DecisionInvested, ReasonCapitalOK
}

// EvaluateKnown is Evaluate for a capital reading that may be absent.
// An unknown reading fails closed to CASH.
func (g DustGate) EvaluateKnown(known bool, capitalUSD float64) (allow bool, decision, reason string) {
	if !known {
		return false, DecisionCash, ReasonDustCapitalUnknown
	}
	return g.Evaluate(capitalUSD)
}
