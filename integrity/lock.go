// Package integrity verifies that the safety machinery itself is intact
// before any cycle is allowed to run: critical files present and hashable,
// and the entry point actually wired to call preflight. A guard that is
// not wired in is worse than no guard, because it is trusted.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Check is one named verification result.
type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// Report aggregates checks with an overall verdict.
type Report struct {
	OK      bool    `json:"ok"`
	Checks  []Check `json:"checks"`
	Summary string  `json:"summary"`
}

func (r *Report) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.OK {
		r.OK = false
	}
}

// FileHash computes the SHA-256 of a file's content.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyIntegrity checks every manifest file for existence and hashability
// (a zero-byte or unreadable file fails), then confirms the entry file both
// imports and invokes the preflight routine.
func VerifyIntegrity(root string, manifest []string, entryFile string) Report {
	r := Report{OK: true}

	for _, rel := range manifest {
		path := filepath.Join(root, rel)
		name := "INTEGRITY_" + filepath.Base(rel)

		info, err := os.Stat(path)
		if err != nil {
			r.add(Check{Name: name, OK: false, Details: err.Error()})
			continue
		}
		if info.Size() == 0 {
			r.add(Check{Name: name, OK: false, Details: "empty file"})
			continue
		}

		hash, err := FileHash(path)
		if err != nil {
			r.add(Check{Name: name, OK: false, Details: err.Error()})
			continue
		}
		r.add(Check{Name: name, OK: true, Details: hash[:8]})
	}

	if entryFile != "" {
		verifyWiring(&r, filepath.Join(root, entryFile))
	}

	if r.OK {
		r.Summary = "GOVERNANCE LOCK OK"
	} else {
		r.Summary = "GOVERNANCE LOCK VIOLATION"
	}
	return r
}

// verifyWiring is the self-referential check: the entry source must import
// the integrity package and call Preflight. Textual on purpose: it runs
// against the deployed source tree, not the compiled binary.
func verifyWiring(r *Report, entryPath string) {
	data, err := os.ReadFile(entryPath)
	if err != nil {
		r.add(Check{Name: "ENTRY_READ", OK: false, Details: err.Error()})
		return
	}
	content := string(data)

	hasImport := strings.Contains(content, "/integrity")
	r.add(Check{Name: "ENTRY_IMPORTS_PREFLIGHT", OK: hasImport, Details: entryPath})

	hasCall := strings.Contains(content, "Preflight(")
	r.add(Check{Name: "ENTRY_CALLS_PREFLIGHT", OK: hasCall, Details: entryPath})
}

// fileExists is a DoD helper.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// containsPin reports whether the dependency pin line appears in go.mod.
func containsPin(gomod, pin string) bool {
	return strings.Contains(gomod, pin)
}
