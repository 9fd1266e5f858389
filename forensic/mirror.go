package forensic

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	cycle_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	state TEXT NOT NULL,
	symbol TEXT,
	market_regime TEXT,
	execution_intent TEXT,
	ai_audit_result TEXT,
	ai_audit_reason TEXT,
	action TEXT NOT NULL,
	order_result TEXT,
	decision_facts TEXT NOT NULL,
	errors TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_cycle ON audit_records(cycle_id);
`

// SQLiteMirror mirrors audit records into a SQLite database. It satisfies
// the Mirror contract: callers treat every error as non-fatal.
type SQLiteMirror struct {
	db *sql.DB
}

// NewSQLiteMirror opens (or creates) the mirror database.
func NewSQLiteMirror(path string) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(mirrorSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteMirror{db: db}, nil
}

// InsertAuditRecord appends one record.
func (m *SQLiteMirror) InsertAuditRecord(ctx context.Context, rec Record) error {
	var intentJSON, orderJSON string
	if rec.ExecutionIntent != nil {
		b, err := json.Marshal(rec.ExecutionIntent)
		if err != nil {
			return fmt.Errorf("mirror: marshal intent: %w", err)
		}
		intentJSON = string(b)
	}
	if rec.OrderResult != nil {
		b, err := json.Marshal(rec.OrderResult)
		if err != nil {
			return fmt.Errorf("mirror: marshal order result: %w", err)
		}
		orderJSON = string(b)
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO audit_records
		(cycle_id, timestamp, state, symbol, market_regime, execution_intent,
		 ai_audit_result, ai_audit_reason, action, order_result, decision_facts, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, rec.Timestamp, rec.State, rec.Symbol, rec.MarketRegime,
		intentJSON, rec.AIAuditResult, rec.AIAuditReason, rec.Action, orderJSON,
		strings.Join(rec.DecisionFacts, "\n"), strings.Join(rec.Errors, "\n"),
	)
	return err
}

// ListByCycle returns the mirrored records for one cycle, oldest first.
func (m *SQLiteMirror) ListByCycle(ctx context.Context, cycleID string) ([]Record, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT cycle_id, timestamp, state, symbol, market_regime,
		       ai_audit_result, ai_audit_reason, action, decision_facts, errors
		FROM audit_records WHERE cycle_id = ? ORDER BY timestamp`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var facts, errs string
		if err := rows.Scan(&rec.CycleID, &rec.Timestamp, &rec.State, &rec.Symbol,
			&rec.MarketRegime, &rec.AIAuditResult, &rec.AIAuditReason, &rec.Action,
			&facts, &errs); err != nil {
			return nil, err
		}
		if facts != "" {
			rec.DecisionFacts = strings.Split(facts, "\n")
		} else {
			rec.DecisionFacts = []string{}
		}
		if errs != "" {
			rec.Errors = strings.Split(errs, "\n")
		} else {
			rec.Errors = []string{}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}
