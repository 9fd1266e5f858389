package integrity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeops/irongate/config"
)

// scaffold lays out a minimal deploy tree: a manifest file, a go.mod with
// one pin, and an entry file wired to preflight.
func scaffold(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "cmd"), 0755))
	files := map[string]string{
		"go.mod": "module example.com/app\n\nrequire github.com/shopspring/decimal v1.4.0\n",
		"core.go": "package core\n",
		"cmd/run.go": "package cmd\n\nimport \"example.com/app/integrity\"\n\nfunc run() { _, _, _ = pf.Preflight(ctx, mode) }\n",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0644))
	}
	return root
}

func testCfg() config.IntegrityConfig {
	return config.IntegrityConfig{
		Manifest:         []string{"go.mod", "core.go"},
		EntryFile:        "cmd/run.go",
		RequiredEnv:      []string{"IRONGATE_MIRROR_URL"},
		CredentialEnv:    []string{"IRONGATE_API_KEY"},
		PinnedDeps:       []string{"github.com/shopspring/decimal v1.4.0"},
		OptionalInDryRun: []string{"IRONGATE_MIRROR_URL"},
	}
}

func TestVerifyIntegrity_AllFilesPresent(t *testing.T) {
	t.Parallel()

	root := scaffold(t)
	r := VerifyIntegrity(root, []string{"go.mod", "core.go"}, "cmd/run.go")
	assert.True(t, r.OK)
	assert.Equal(t, "GOVERNANCE LOCK OK", r.Summary)

	// Every file check carries a hash prefix.
	for _, c := range r.Checks[:2] {
		assert.Len(t, c.Details, 8)
	}
}

func TestVerifyIntegrity_MissingFileFailsClosed(t *testing.T) {
	t.Parallel()

	root := scaffold(t)
	r := VerifyIntegrity(root, []string{"go.mod", "missing.go"}, "")
	assert.False(t, r.OK)
	assert.Equal(t, "GOVERNANCE LOCK VIOLATION", r.Summary)
}

func TestVerifyIntegrity_EmptyFileFailsClosed(t *testing.T) {
	t.Parallel()

	root := scaffold(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "core.go"), nil, 0644))

	r := VerifyIntegrity(root, []string{"go.mod", "core.go"}, "")
	assert.False(t, r.OK)
}

func TestVerifyIntegrity_UnwiredEntryFails(t *testing.T) {
	t.Parallel()

	root := scaffold(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "cmd/run.go"),
		[]byte("package cmd\n\nfunc run() {}\n"), 0644))

	r := VerifyIntegrity(root, []string{"go.mod"}, "cmd/run.go")
	assert.False(t, r.OK)
}

func TestPreflight_DryRunPassesWithoutSecrets(t *testing.T) {
	root := scaffold(t)
	p := NewPreflighter(root, testCfg(), nil)
	p.Getenv = func(string) string { return "" }

	ok, reason, report := p.Preflight(context.Background(), ModeDryRun)
	assert.True(t, ok, "reason=%s report=%+v", reason, report)
	assert.Equal(t, "OK", reason)
}

func TestPreflight_ReportCarriesAllCheckStages(t *testing.T) {
	root := scaffold(t)
	p := NewPreflighter(root, testCfg(), nil)
	p.Getenv = func(string) string { return "" }

	ok, _, report := p.Preflight(context.Background(), ModeDryRun)
	require.True(t, ok)

	// The combined report must include lock, dependency-pin and DoD
	// checks; an auditor reading it sees every stage that ran.
	names := make(map[string]bool, len(report.Checks))
	for _, c := range report.Checks {
		names[c.Name] = true
	}
	assert.True(t, names["INTEGRITY_go.mod"])
	assert.True(t, names["DEP_PINNED"], "dependency checks missing from report: %+v", report.Checks)
	assert.True(t, names["ENV_IRONGATE_MIRROR_URL"])
}

func TestPreflight_DryRunStillRequiresUnlistedEnv(t *testing.T) {
	root := scaffold(t)
	cfg := testCfg()
	cfg.RequiredEnv = append(cfg.RequiredEnv, "IRONGATE_MIRROR_REGION")

	// IRONGATE_MIRROR_REGION is not in OptionalInDryRun, so a dry run
	// must fail when it is unset regardless of how the name reads.
	p := NewPreflighter(root, cfg, nil)
	p.Getenv = func(string) string { return "" }

	ok, reason, _ := p.Preflight(context.Background(), ModeDryRun)
	assert.False(t, ok)
	assert.Contains(t, reason, "DOD_VIOLATION")
}

func TestPreflight_LiveRequiresTradingSwitch(t *testing.T) {
	root := scaffold(t)
	p := NewPreflighter(root, testCfg(), nil)
	p.Getenv = func(string) string { return "" }

	ok, reason, _ := p.Preflight(context.Background(), ModeLive)
	assert.False(t, ok)
	assert.Contains(t, reason, "GOV_ENV_FAIL")
}

func TestPreflight_LiveRequiresCredentials(t *testing.T) {
	root := scaffold(t)
	p := NewPreflighter(root, testCfg(), nil)
	p.Getenv = func(key string) string {
		switch key {
		case "IRONGATE_TRADING_ENABLED":
			return "true"
		case "IRONGATE_MIRROR_URL":
			return "sqlite://mirror.db"
		}
		return "" // credentials missing
	}

	ok, reason, _ := p.Preflight(context.Background(), ModeLive)
	assert.False(t, ok)
	assert.Contains(t, reason, "DOD_VIOLATION")
}

func TestPreflight_ConnectivityFailureShortCircuits(t *testing.T) {
	root := scaffold(t)
	p := NewPreflighter(root, testCfg(), func(context.Context) error {
		return errors.New("dns")
	})
	p.Getenv = func(string) string { return "" }

	ok, reason, _ := p.Preflight(context.Background(), ModeDryRun)
	assert.False(t, ok)
	assert.Contains(t, reason, "NO_CONNECTIVITY")
}

func TestPreflight_UnpinnedDependencyFails(t *testing.T) {
	root := scaffold(t)
	cfg := testCfg()
	cfg.PinnedDeps = []string{"github.com/shopspring/decimal v9.9.9"}

	p := NewPreflighter(root, cfg, nil)
	p.Getenv = func(string) string { return "" }

	ok, reason, _ := p.Preflight(context.Background(), ModeDryRun)
	assert.False(t, ok)
	assert.Contains(t, reason, "SANITY_IMPORT_FAIL")
}
