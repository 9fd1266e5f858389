package forensic

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

// auditLogName is the newline-delimited local audit file inside Dir.
const auditLogName = "audit_log.jsonl"

// Mirror is a best-effort remote copy of the audit trail. Absence or
// failure of the mirror never blocks a decision.
type Mirror interface {
	InsertAuditRecord(ctx context.Context, rec Record) error
}

// Trail writes audit records locally and, when a mirror is configured,
// copies them out best-effort.
type Trail struct {
	Dir    string
	Mirror Mirror
	Logger *log.Logger
}

// NewTrail builds a trail rooted at dir. A nil mirror disables mirroring.
func NewTrail(dir string, mirror Mirror, logger *log.Logger) *Trail {
	if logger == nil {
		logger = log.Default()
	}
	return &Trail{Dir: dir, Mirror: mirror, Logger: logger}
}

// WriteLocal appends one record to the local JSONL log, creating the
// directory if absent. Best effort: on failure it logs and returns an
// empty path; forensic writes never take the process down.
func (t *Trail) WriteLocal(rec Record) string {
	if err := os.MkdirAll(t.Dir, 0755); err != nil {
		t.Logger.Printf("[ERROR] forensic dir: %v", err)
		return ""
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Logger.Printf("[ERROR] forensic marshal: %v", err)
		return ""
	}

	path := filepath.Join(t.Dir, auditLogName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Logger.Printf("[ERROR] forensic open: %v", err)
		return ""
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		t.Logger.Printf("[ERROR] forensic append: %v", err)
		return ""
	}
	return path
}

// WriteMirror copies the record to the mirror. Any failure is swallowed
// after logging.
func (t *Trail) WriteMirror(ctx context.Context, rec Record) {
	if t.Mirror == nil {
		return
	}
	if err := t.Mirror.InsertAuditRecord(ctx, rec); err != nil {
		t.Logger.Printf("[ERROR] forensic mirror: %v", err)
	}
}

// Write persists the record locally then mirrors it. Returns the local
// path ("" when the local write failed).
func (t *Trail) Write(ctx context.Context, rec Record) string {
	path := t.WriteLocal(rec)
	t.WriteMirror(ctx, rec)
	return path
}

// ReadLocal loads every record from the local log, oldest first.
func (t *Trail) ReadLocal() ([]Record, error) {
	path := filepath.Join(t.Dir, auditLogName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}
