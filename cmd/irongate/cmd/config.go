package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradeops/irongate/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the evaluation engine.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  irongate config init -o irongate.yaml
  irongate config validate -f irongate.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with fail-safe defaults: dry run,
tight risk ceilings, bounded write-ahead queue.

Example:
  irongate config init -o irongate.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  irongate config validate -f irongate.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "irongate.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  irongate run -f %s --fixture fixtures/session.json\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Mode: %s\n", cfg.Engine.Mode)
	fmt.Printf("  Symbols: %v (base %s)\n", cfg.Engine.Symbols, cfg.Engine.BaseCurrency)
	fmt.Printf("  Risk: drawdown %.1f%%, spread %.2f%%\n", cfg.Risk.MaxDrawdownPct, cfg.Risk.MaxSpreadPct)
	fmt.Printf("  Capital floor: $%.2f\n", cfg.Capital.MinCapitalUSD)
	return nil
}
