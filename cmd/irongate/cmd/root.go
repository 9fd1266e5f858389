package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "irongate",
	Short: "A fail-closed governance and risk gate for unattended trading",
	Long: `Irongate runs an unattended trading process behind a chain of
deterministic gates. Every cycle passes preflight integrity checks, a
governance state machine, capital segregation, a pre-trade risk gate and
an auditor veto before any (simulated) order is produced, and every
candidate leaves exactly one forensic record.

It provides tools for:
  - Running evaluation cycles on a schedule or one-shot
  - Preflighting a deployment before arming it
  - Verifying forensic OHLCV snapshots against their embedded hashes
  - Generating and validating configuration files`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
