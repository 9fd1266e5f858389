// Package capital owns the base-capital / realized-profit ledger and the
// minimum-capital gate. The central rule is no implicit reinvestment:
// profit is tracked but never added back into tradable size.
package capital

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tradeops/irongate/internal/id"
	"github.com/tradeops/irongate/ledger"
)

// Record is the persisted capital state for one cycle.
type Record struct {
	CycleID        string  `json:"cycle_id"`
	BaseCapital    float64 `json:"base_capital"`
	RealizedProfit float64 `json:"realized_profit"`
	PeakEquity     float64 `json:"peak_equity"`
	UpdatedAt      int64   `json:"updated_at"`
}

// Writer persists capital state. *ledger.WAL satisfies it for async writes;
// a nil Writer falls back to the synchronous store.
type Writer interface {
	Write(path string, doc any)
}

// Manager segregates base capital from realized profit.
//
// Construction fails closed: a ledger file that exists but cannot be loaded
// is a fatal error, never a silent re-initialization; resetting the base
// would corrupt the no-reinvestment accounting.
type Manager struct {
	store  *ledger.Store
	wal    Writer
	logger *log.Logger
	state  Record
}

// NewManager loads existing capital state from store, or starts a new
// capital cycle with currentEquity as the immutable base.
func NewManager(currentEquity float64, store *ledger.Store, wal Writer, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{store: store, wal: wal, logger: logger}

	var rec Record
	err := store.Load(&rec)
	switch {
	case err == nil:
		if rec.CycleID == "" || rec.BaseCapital < 0 {
			return nil, fmt.Errorf("capital: state invalid: %w", ledger.ErrCorrupt)
		}
		m.state = rec
	case errors.Is(err, ledger.ErrNotExist):
		m.state = Record{
			CycleID:     id.Cycle(),
			BaseCapital: currentEquity,
			PeakEquity:  currentEquity,
			UpdatedAt:   time.Now().Unix(),
		}
		m.persist()
		logger.Printf("[CAPITAL] new cycle %s base=%.2f", m.state.CycleID, m.state.BaseCapital)
	default:
		return nil, fmt.Errorf("capital: state load: %w", err)
	}
	return m, nil
}

// Update records live equity: raises the peak if needed, recomputes realized
// profit as equity minus base (may be negative), persists, and returns the
// new realized profit. BaseCapital is never touched here.
func (m *Manager) Update(currentEquity float64) float64 {
	if currentEquity > m.state.PeakEquity {
		m.state.PeakEquity = currentEquity
	}
	m.state.RealizedProfit = currentEquity - m.state.BaseCapital
	m.state.UpdatedAt = time.Now().Unix()
	m.persist()
	return m.state.RealizedProfit
}

// SafeCapital returns the only value other components may use for position
// sizing: strictly the base capital, without reinvested profit.
func (m *Manager) SafeCapital() float64 {
	return m.state.BaseCapital
}

// State returns a copy of the current record for forensic facts.
func (m *Manager) State() Record {
	return m.state
}

func (m *Manager) persist() {
	if m.wal != nil {
		m.wal.Write(m.store.Path(), m.state)
		return
	}
	if err := m.store.Save(m.state); err != nil {
		m.logger.Printf("[ERROR] capital state persist: %v", err)
	}
}
