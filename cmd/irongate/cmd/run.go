package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tradeops/irongate/auditor"
	"github.com/tradeops/irongate/config"
	"github.com/tradeops/irongate/engine"
	"github.com/tradeops/irongate/forensic"
	"github.com/tradeops/irongate/integrity"
	"github.com/tradeops/irongate/ledger"
	"github.com/tradeops/irongate/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run evaluation cycles from a config file",
	Long: `Run the gated evaluation loop using settings from a configuration file.

Market data comes from a replay fixture, so cycles are deterministic and
need no exchange credentials. A failed preflight refuses to start at all.

Example:
  irongate run -f irongate.yaml --fixture fixtures/session.json`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runFixturePath string
	runRoot        string
	runMetricsAddr string
	runOnce        bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVar(&runFixturePath, "fixture", "", "path to replay fixture JSON (required)")
	runCmd.Flags().StringVar(&runRoot, "root", ".", "deployment root for integrity checks")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle even when a cron spec is configured")
	runCmd.MarkFlagRequired("config")
	runCmd.MarkFlagRequired("fixture")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	ctx := context.Background()

	md, err := market.LoadFixture(runFixturePath)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	// Arming check. The runner preflights again at the top of every cycle;
	// this one exists so a broken deployment never starts at all.
	pf := integrity.NewPreflighter(runRoot, cfg.Integrity, nil)
	ok, reason, report := pf.Preflight(ctx, cfg.Engine.Mode)
	if !ok {
		printReport(report)
		return fmt.Errorf("refusing to arm: %s", reason)
	}

	interval, err := cfg.WAL.ParseFlushInterval()
	if err != nil {
		return fmt.Errorf("wal flush interval: %w", err)
	}
	wal := ledger.NewWAL(cfg.WAL.QueueSize, interval, logger)

	var mirror forensic.Mirror
	if cfg.Forensic.MirrorDBPath != "" {
		m, err := forensic.NewSQLiteMirror(cfg.Forensic.MirrorDBPath)
		if err != nil {
			return fmt.Errorf("open mirror: %w", err)
		}
		defer m.Close()
		mirror = m
	}
	trail := forensic.NewTrail(cfg.Forensic.Dir, mirror, logger)

	runner, err := engine.NewRunner(cfg, md, trail, auditor.New(logger), wal, pf, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	if err := runner.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if err := wal.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if runMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(runMetricsAddr, mux); err != nil {
				logger.Printf("[ERROR] metrics server: %v", err)
			}
		}()
	}

	wal.Start()
	defer wal.Stop()

	if cfg.Engine.CronSpec != "" && !runOnce {
		sched, err := engine.NewScheduler(cfg.Engine.CronSpec, runner, logger)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		sched.Start()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		sched.Stop()
		runner.Shutdown()
		fmt.Printf("Stopped. Final state: %s\n", runner.Machine().Current())
		return nil
	}

	cycleErr := runner.RunCycle(ctx)
	runner.Shutdown()
	fmt.Printf("Cycle finished. Final state: %s\n", runner.Machine().Current())
	return cycleErr
}
