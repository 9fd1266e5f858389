// Package risk implements the deterministic pre-trade veto: spread ceiling
// plus dynamic drawdown tracking. Golden rule: if a condition cannot be
// verified, the answer is no trade.
package risk

import (
	"errors"
	"fmt"
	"log"

	"github.com/tradeops/irongate/ledger"
)

// drawdownState is the persisted peak document.
type drawdownState struct {
	PeakEquity float64 `json:"peak_equity"`
}

// DrawdownTracker maintains the historical equity peak and computes live
// drawdown percentage against it. The peak is lazily initialized to the
// first observed equity.
type DrawdownTracker struct {
	store  *ledger.Store
	logger *log.Logger

	peak    float64
	hasPeak bool
}

// NewDrawdownTracker loads any persisted peak. A file that exists but
// cannot be parsed is fatal; trading against an unknown peak would defeat
// the drawdown ceiling.
func NewDrawdownTracker(store *ledger.Store, logger *log.Logger) (*DrawdownTracker, error) {
	if logger == nil {
		logger = log.Default()
	}
	t := &DrawdownTracker{store: store, logger: logger}

	var st drawdownState
	err := store.Load(&st)
	switch {
	case err == nil:
		t.peak = st.PeakEquity
		t.hasPeak = true
	case errors.Is(err, ledger.ErrNotExist):
		// First run: peak set on first Update.
	default:
		return nil, fmt.Errorf("risk: drawdown state load: %w", err)
	}
	return t, nil
}

// Peak returns the current peak and whether one has been observed.
func (t *DrawdownTracker) Peak() (float64, bool) {
	return t.peak, t.hasPeak
}

// Update records live equity and returns the drawdown percentage from peak.
// First observation sets the peak and returns 0. New highs raise the peak
// and persist immediately. A non-positive peak returns 0 rather than a
// division fault.
func (t *DrawdownTracker) Update(currentEquity float64) float64 {
	if !t.hasPeak {
		t.peak = currentEquity
		t.hasPeak = true
		t.persist()
		return 0
	}

	if currentEquity > t.peak {
		t.peak = currentEquity
		t.persist()
	}

	if t.peak <= 0 {
		return 0
	}
	return (t.peak - currentEquity) / t.peak * 100
}

func (t *DrawdownTracker) persist() {
	// A failed peak write is logged, not fatal: the in-memory peak is still
	// valid for this process, and the next successful write catches up.
	if err := t.store.Save(drawdownState{PeakEquity: t.peak}); err != nil {
		t.logger.Printf("[ERROR] drawdown state persist: %v", err)
	}
}
