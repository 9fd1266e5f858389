// Package forensic builds and persists the immutable decision log: one
// record per evaluated candidate per cycle, hash-linked to the market data
// snapshots the decision was based on. Local writes are the source of
// truth; the mirror is best effort.
package forensic

import (
	"time"

	"github.com/tradeops/irongate/intent"
)

// Record is one immutable audit entry. Append-only; never rewritten.
type Record struct {
	CycleID         string            `json:"cycle_id"`
	Timestamp       string            `json:"timestamp"`
	State           string            `json:"state"`
	Symbol          string            `json:"symbol,omitempty"`
	MarketRegime    string            `json:"market_regime,omitempty"`
	ExecutionIntent *intent.Ticket    `json:"execution_intent"`
	AIAuditResult   string            `json:"ai_audit_result,omitempty"`
	AIAuditReason   string            `json:"ai_audit_reason,omitempty"`
	Action          string            `json:"action"`
	OrderResult     map[string]string `json:"order_result"`
	DecisionFacts   []string          `json:"decision_facts"`
	Errors          []string          `json:"errors"`
}

// BuildParams carries the raw decision context into BuildRecord.
type BuildParams struct {
	CycleID      string
	State        string
	Symbol       string
	MarketRegime string
	Intent       *intent.Ticket
	AIResult     string
	AIReason     string
	Action       string
	OrderResult  map[string]string
	Facts        []string
	Errors       []string
}

// BuildRecord constructs a Record, normalizing optional inputs. Pure: no
// I/O, no clock beyond the timestamp.
func BuildRecord(p BuildParams) Record {
	action := p.Action
	if action == "" {
		action = "SKIP"
	}

	var ticketCopy *intent.Ticket
	if p.Intent != nil {
		c := *p.Intent
		ticketCopy = &c
	}

	facts := p.Facts
	if facts == nil {
		facts = []string{}
	}
	errs := p.Errors
	if errs == nil {
		errs = []string{}
	}

	return Record{
		CycleID:         p.CycleID,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
		State:           p.State,
		Symbol:          p.Symbol,
		MarketRegime:    p.MarketRegime,
		ExecutionIntent: ticketCopy,
		AIAuditResult:   p.AIResult,
		AIAuditReason:   p.AIReason,
		Action:          action,
		OrderResult:     p.OrderResult,
		DecisionFacts:   facts,
		Errors:          errs,
	}
}
