package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"corsa-hq/quaestor/pkg/cli"
	"corsa-hq/quaestor/pkg/config"
	"corsa-hq/quaestor/pkg/policy/source"
	"corsa-hq/quaestor/pkg/spend"
	"corsa-hq/quaestor/pkg/spend/journal"
	"corsa-hq/quaestor/pkg/spend/storage"
	"corsa-hq/quaestor/pkg/telemetry/logging"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Quaestor governance daemon",
	Long: `Start the Quaestor governance daemon with the specified configuration.

The daemon loads policy rules, restores governance state from the configured
backend, hot-reloads rules on file changes, and runs period rollovers on the
configured schedule. When metrics are enabled it serves a Prometheus endpoint.

Examples:
  # Start with default config
  quaestor run

  # Start with custom config
  quaestor run --config /etc/quaestor/config.yaml

  # Validate config without starting
  quaestor run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(cfg.Telemetry.Logging, nil)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Quaestor v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	// Governance state backend
	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		backend, err = storage.NewSQLiteBackend(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite backend: %w", err)
		}
	default:
		backend = storage.NewMemoryBackend()
	}
	defer backend.Close()
	fmt.Printf("✓ State backend initialized (%s)\n", cfg.Storage.Backend)

	// Audit journal
	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open audit journal: %w", err)
		}
		defer jnl.Close()

		if cfg.Journal.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.Journal.RetentionDays)
			pruned, err := jnl.Prune(ctx, cutoff)
			if err != nil {
				logger.Warn("journal prune failed", "error", err)
			} else if pruned > 0 {
				logger.Info("pruned journal entries", "count", pruned)
			}
		}
		fmt.Println("✓ Audit journal initialized")
	}

	// Policy rules
	registry := source.NewRegistry()
	src := source.NewFileSource(cfg.Rules.Path, registry, logger)
	rules, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	fmt.Printf("✓ Policy rules loaded (%d rules)\n", len(rules))

	// Metrics endpoint
	var metrics *spend.Metrics
	var metricsSrv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		metrics = spend.NewMetricsWithRegistry(promReg)

		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:    cfg.Telemetry.Metrics.ListenAddress,
			Handler: mux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n",
			cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	manager, err := spend.NewManager(ctx, spend.ManagerConfig{
		Rules:   rules,
		Backend: backend,
		Journal: jnl,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	fmt.Println("✓ Governance state restored")

	// Period rollover scheduler
	scheduler, err := spend.NewRolloverScheduler(manager, cfg.Rollover.Schedule, logger)
	if err != nil {
		return cli.NewConfigError("rollover.schedule", err.Error())
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Rule hot reload
	if cfg.Rules.Watch {
		watcherCfg := source.DefaultWatcherConfig()
		watcherCfg.Path = cfg.Rules.Path
		if cfg.Rules.DebounceMillis > 0 {
			watcherCfg.DebounceInterval = time.Duration(cfg.Rules.DebounceMillis) * time.Millisecond
		}

		watcher, err := source.NewWatcher(watcherCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create rule watcher: %w", err)
		}
		defer watcher.Stop()

		go func() {
			err := watcher.Watch(ctx, func() error {
				reloaded, err := src.Load(ctx)
				if err != nil {
					return err
				}
				return manager.SetRules(reloaded)
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("rule watcher stopped", "error", err)
			}
		}()
		fmt.Printf("✓ Watching rules for changes: %s\n", cfg.Rules.Path)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sig := <-cli.WaitForShutdown()
	fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
	cancel()

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}

	fmt.Println("✓ Stopped")
	return nil
}
