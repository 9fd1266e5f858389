package integrity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tradeops/irongate/config"
)

// Modes accepted by Preflight.
const (
	ModeDryRun = "DRY_RUN"
	ModeLive   = "LIVE"
)

// Pinger checks external connectivity. Injected so tests and offline dry
// runs can stub it; nil skips the connectivity check.
type Pinger func(ctx context.Context) error

// Preflighter composes the ordered pre-cycle checks. Ordering is
// deliberate: environment and integrity run before anything that costs
// I/O or time, and the first failure short-circuits.
type Preflighter struct {
	Root   string
	Cfg    config.IntegrityConfig
	Ping   Pinger
	Getenv func(string) string
}

// NewPreflighter builds a preflighter rooted at the deploy directory.
func NewPreflighter(root string, cfg config.IntegrityConfig, ping Pinger) *Preflighter {
	return &Preflighter{Root: root, Cfg: cfg, Ping: ping, Getenv: os.Getenv}
}

// Preflight runs environment -> integrity -> dependency pins -> definition
// of done. Returns ok=false with the first failing reason and the partial
// report; callers must treat that as fatal for the cycle.
func (p *Preflighter) Preflight(ctx context.Context, mode string) (bool, string, Report) {
	// 0. Environment: trading switch and connectivity.
	if ok, reason := p.checkEnvironment(ctx, mode); !ok {
		return false, "GOV_ENV_FAIL: " + reason, Report{Summary: reason}
	}

	// 1. Governance lock: file integrity and wiring.
	lock := VerifyIntegrity(p.Root, p.Cfg.Manifest, p.Cfg.EntryFile)
	if !lock.OK {
		return false, "LOCK_VIOLATION: critical files missing or altered", lock
	}

	// 2. Dependency pins readable from go.mod.
	ok, reason, deps := p.checkDeps()
	if !ok {
		return false, reason, deps
	}

	// 3. Definition of done.
	dod := p.runDoDChecks(mode)
	if !dod.OK {
		return false, "DOD_VIOLATION: definition of done failed", dod
	}

	combined := Report{OK: true, Summary: "PREFLIGHT OK"}
	combined.Checks = append(combined.Checks, lock.Checks...)
	combined.Checks = append(combined.Checks, deps.Checks...)
	combined.Checks = append(combined.Checks, dod.Checks...)
	return true, "OK", combined
}

// checkEnvironment verifies the trading switch and, when a pinger is
// configured, connectivity. DRY_RUN does not require the switch: dry runs
// are the observation mode.
func (p *Preflighter) checkEnvironment(ctx context.Context, mode string) (bool, string) {
	if mode == ModeLive {
		if !strings.EqualFold(p.Getenv("IRONGATE_TRADING_ENABLED"), "true") {
			return false, "TRADING_DISABLED"
		}
	}
	if p.Ping != nil {
		if err := p.Ping(ctx); err != nil {
			return false, "NO_CONNECTIVITY"
		}
	}
	return true, "OK"
}

// checkDeps confirms the pinned dependency lines are present in go.mod,
// the Go analog of import-sanity: the module graph this binary was audited
// against is the one deployed.
func (p *Preflighter) checkDeps() (bool, string, Report) {
	r := Report{OK: true}

	gomodPath := filepath.Join(p.Root, "go.mod")
	data, err := os.ReadFile(gomodPath)
	if err != nil {
		r.add(Check{Name: "GOMOD_READ", OK: false, Details: err.Error()})
		r.Summary = "SANITY FAIL"
		return false, fmt.Sprintf("SANITY_IMPORT_FAIL: %v", err), r
	}
	gomod := string(data)

	for _, pin := range p.Cfg.PinnedDeps {
		ok := containsPin(gomod, pin)
		r.add(Check{Name: "DEP_PINNED", OK: ok, Details: pin})
		if !ok {
			r.Summary = "SANITY FAIL"
			return false, "SANITY_IMPORT_FAIL: unpinned dependency " + pin, r
		}
	}
	r.Summary = "SANITY OK"
	return true, "OK", r
}

// runDoDChecks is the definition-of-done checklist: required files,
// pinned dependencies, and environment variables. Credential variables
// are OPTIONAL in DRY_RUN; so is anything listed in OptionalInDryRun,
// since a dry run must be able to execute with no secrets at all.
func (p *Preflighter) runDoDChecks(mode string) Report {
	r := Report{OK: true}

	for _, rel := range p.Cfg.Manifest {
		path := filepath.Join(p.Root, rel)
		r.add(Check{
			Name:    "FILE_EXIST_" + filepath.Base(rel),
			OK:      fileExists(path),
			Details: rel,
		})
	}

	vars := append([]string{}, p.Cfg.RequiredEnv...)
	if mode != ModeDryRun {
		vars = append(vars, p.Cfg.CredentialEnv...)
	}

	optional := make(map[string]bool, len(p.Cfg.OptionalInDryRun))
	for _, v := range p.Cfg.OptionalInDryRun {
		optional[v] = true
	}

	for _, v := range vars {
		if mode == ModeDryRun && optional[v] {
			r.add(Check{Name: "ENV_" + v, OK: true, Details: "OPTIONAL_IN_DRY_RUN"})
			continue
		}
		set := p.Getenv(v) != ""
		details := "MISSING"
		if set {
			details = "SET"
		}
		r.add(Check{Name: "ENV_" + v, OK: set, Details: details})
	}

	if r.OK {
		r.Summary = "DOD CHECKS PASSED"
	} else {
		r.Summary = "DOD CHECKS FAILED"
	}
	return r
}
