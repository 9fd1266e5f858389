package forensic

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tradeops/irongate/market"
)

// Snapshot is one persisted OHLCV evidence document. The hash covers the
// canonical (sorted-key) JSON encoding of everything except the hash
// field itself, so the file is self-verifying.
type Snapshot struct {
	CycleID      string      `json:"cycle_id"`
	State        string      `json:"state"`
	Symbol       string      `json:"symbol"`
	Timeframe    string      `json:"timeframe"`
	Limit        int         `json:"limit"`
	OHLCV        [][]float64 `json:"ohlcv"`
	Timestamp    string      `json:"timestamp"`
	SnapshotHash string      `json:"snapshot_hash,omitempty"`
}

// snapshotBody returns the canonical sorted-key JSON of the snapshot
// without its hash field. encoding/json sorts map keys, which gives the
// canonical ordering.
func snapshotBody(s Snapshot) ([]byte, error) {
	body := map[string]any{
		"cycle_id":  s.CycleID,
		"state":     s.State,
		"symbol":    s.Symbol,
		"timeframe": s.Timeframe,
		"limit":     s.Limit,
		"ohlcv":     s.OHLCV,
		"timestamp": s.Timestamp,
	}
	return json.Marshal(body)
}

// hashSnapshot computes the SHA-256 of the canonical body.
func hashSnapshot(s Snapshot) (string, error) {
	body, err := snapshotBody(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// candleRows flattens candles into the [ts, o, h, l, c, v] wire shape.
func candleRows(cs []market.Candle) [][]float64 {
	out := make([][]float64, 0, len(cs))
	for _, c := range cs {
		out = append(out, []float64{float64(c.TS), c.Open, c.High, c.Low, c.Close, c.Volume})
	}
	return out
}

// SaveSnapshot persists one OHLCV evidence file per (cycle, state, symbol,
// timeframe, limit) and returns its path and hash. The caller threads the
// hash into the same cycle's decision facts so evidence and decision stay
// cryptographically linked. Best effort: failure returns empty values.
func (t *Trail) SaveSnapshot(cycleID, state, symbol, timeframe string, limit int, candles []market.Candle) (path, hash string) {
	s := Snapshot{
		CycleID:   cycleID,
		State:     state,
		Symbol:    symbol,
		Timeframe: timeframe,
		Limit:     limit,
		OHLCV:     candleRows(candles),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	h, err := hashSnapshot(s)
	if err != nil {
		t.Logger.Printf("[ERROR] snapshot hash (%s): %v", symbol, err)
		return "", ""
	}
	s.SnapshotHash = h

	dir := filepath.Join(t.Dir, "ohlcv")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Logger.Printf("[ERROR] snapshot dir: %v", err)
		return "", ""
	}

	sanitized := strings.NewReplacer("/", "_", "\\", "_").Replace(symbol)
	name := fmt.Sprintf("%s__%s__%s__%s__%d.json", cycleID, state, sanitized, timeframe, limit)
	full := filepath.Join(dir, name)

	data, err := json.MarshalIndent(s, "", "  ")
	if err == nil {
		err = os.WriteFile(full, data, 0644)
	}
	if err != nil {
		t.Logger.Printf("[ERROR] snapshot write (%s): %v", symbol, err)
		return "", ""
	}
	return full, h
}

// VerifySnapshot re-hashes a snapshot file against its embedded hash.
func VerifySnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("snapshot %s: decode: %w", path, err)
	}
	if s.SnapshotHash == "" {
		return fmt.Errorf("snapshot %s: missing snapshot_hash", path)
	}

	want, err := hashSnapshot(s)
	if err != nil {
		return err
	}
	if want != s.SnapshotHash {
		return fmt.Errorf("snapshot %s: hash mismatch: recorded %s, computed %s", path, s.SnapshotHash, want)
	}
	return nil
}
