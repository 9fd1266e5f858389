package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradeops/irongate/config"
	"github.com/tradeops/irongate/integrity"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Run the preflight checklist without starting a cycle",
	Long: `Run the full preflight chain (environment, governance lock, dependency
pins, definition of done) against a deployment and print every check.

Example:
  irongate preflight -f irongate.yaml --mode LIVE`,
	RunE: runPreflight,
}

var (
	preflightConfigPath string
	preflightRoot       string
	preflightMode       string
)

func init() {
	rootCmd.AddCommand(preflightCmd)

	preflightCmd.Flags().StringVarP(&preflightConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	preflightCmd.Flags().StringVar(&preflightRoot, "root", ".", "deployment root for integrity checks")
	preflightCmd.Flags().StringVar(&preflightMode, "mode", "", "override the configured mode (DRY_RUN or LIVE)")
	preflightCmd.MarkFlagRequired("config")
}

func runPreflight(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(preflightConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mode := cfg.Engine.Mode
	if preflightMode != "" {
		mode = preflightMode
	}

	pf := integrity.NewPreflighter(preflightRoot, cfg.Integrity, nil)
	ok, reason, report := pf.Preflight(context.Background(), mode)
	printReport(report)

	if !ok {
		return fmt.Errorf("preflight failed: %s", reason)
	}
	fmt.Printf("\n✓ Preflight passed (mode %s)\n", mode)
	return nil
}

func printReport(r integrity.Report) {
	fmt.Printf("%s\n", r.Summary)
	for _, c := range r.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		if c.Details != "" {
			fmt.Printf("  %s %s (%s)\n", mark, c.Name, c.Details)
		} else {
			fmt.Printf("  %s %s\n", mark, c.Name)
		}
	}
}
