// Package auditor is the final approval step for a proposed action. A
// ranked list of classifier backends is tried in priority order; any
// backend failure, malformed answer, or non-LOW risk classification falls
// through to a deterministic rule set. The primary path is never trusted
// to fail open.
package auditor

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tradeops/irongate/intent"
)

// Verdict paths, recorded so the forensic trail can show which logic
// produced the decision.
const (
	PathPrimary  = "PRIMARY"
	PathFallback = "FALLBACK"
)

// Classification is the raw answer from a backend.
type Classification struct {
	Status    string // APPROVE or REJECT
	RiskLevel string // LOW, MEDIUM, HIGH
	Reason    string
}

// Backend is any primary classifier (an LLM adapter, a remote service).
// Errors and malformed output are expected and handled by the auditor.
type Backend interface {
	Name() string
	Classify(ctx context.Context, t intent.Ticket, regime string) (Classification, error)
}

// Verdict is the auditor's decision for one ticket.
type Verdict struct {
	Approved    bool
	Reason      string
	Path        string
	ViaFallback bool
}

// Auditor runs backends in priority order with a deterministic fallback.
type Auditor struct {
	Backends []Backend
	Logger   *log.Logger
}

// New builds an auditor over the given ranked backends.
func New(logger *log.Logger, backends ...Backend) *Auditor {
	if logger == nil {
		logger = log.Default()
	}
	return &Auditor{Backends: backends, Logger: logger}
}

// Audit evaluates a ticket. Backends are consulted in order; the first one
// that returns a well-formed LOW-risk classification decides. Anything
// else (error, malformed status, elevated risk) moves on, and when all
// backends are exhausted the deterministic rules decide. The verdict
// always names the path that produced it.
func (a *Auditor) Audit(ctx context.Context, t intent.Ticket, regime string) Verdict {
	for _, b := range a.Backends {
		c, err := b.Classify(ctx, t, regime)
		if err != nil {
			a.Logger.Printf("[WARN] auditor backend %s failed: %v", b.Name(), err)
			continue
		}
		if !wellFormed(c) {
			a.Logger.Printf("[WARN] auditor backend %s returned malformed classification %+v", b.Name(), c)
			continue
		}
		if !strings.EqualFold(c.RiskLevel, "LOW") {
			a.Logger.Printf("[WARN] auditor backend %s risk level %s, deferring to fallback", b.Name(), c.RiskLevel)
			continue
		}

		approved := strings.EqualFold(c.Status, "APPROVE")
		return Verdict{
			Approved: approved,
			Reason:   fmt.Sprintf("%s:%s", b.Name(), c.Reason),
			Path:     PathPrimary,
		}
	}

	v := deterministic(t, regime)
	v.Path = PathFallback
	v.ViaFallback = true
	return v
}

func wellFormed(c Classification) bool {
	switch strings.ToUpper(c.Status) {
	case "APPROVE", "REJECT":
	default:
		return false
	}
	return c.RiskLevel != ""
}

// deterministic is the hard-coded veto rule set. It approves only what it
// can affirmatively clear; every other branch is a named rejection.
func deterministic(t intent.Ticket, regime string) Verdict {
	if strings.Contains(regime, "VOLATILE") && t.Action == intent.Buy {
		return Verdict{Approved: false, Reason: "FAIL_CLOSED_VOLATILE_REGIME_BUY"}
	}
	if t.Quantity <= 0 && t.Action != intent.Hold {
		return Verdict{Approved: false, Reason: "FAIL_CLOSED_INVALID_QUANTITY"}
	}
	switch t.Action {
	case intent.Buy, intent.Sell, intent.Hold:
	default:
		return Verdict{Approved: false, Reason: "FAIL_CLOSED_UNKNOWN_ACTION"}
	}
	return Verdict{Approved: true, Reason: "AUDIT_OK"}
}
