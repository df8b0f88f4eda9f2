package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"corsa-hq/quaestor/pkg/cli"
	"corsa-hq/quaestor/pkg/config"
	"corsa-hq/quaestor/pkg/policy/source"
	"corsa-hq/quaestor/pkg/spend"
	"corsa-hq/quaestor/pkg/spend/journal"
	"corsa-hq/quaestor/pkg/spend/storage"
	"corsa-hq/quaestor/pkg/telemetry/logging"
)

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Run one period rollover sweep",
	Long: `Run a single rollover sweep over the persisted spending limits.

Limits whose period has ended are rolled into the next period, carrying
unused budget forward according to each limit's rollover settings. The
daemon does this on a schedule; this command is for operators running
rollovers out of band or from an external scheduler.

Examples:
  quaestor rollover --config /etc/quaestor/config.yaml`,
	RunE: runRollover,
}

func init() {
	rootCmd.AddCommand(rolloverCmd)
}

func runRollover(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	logger, err := logging.New(cfg.Telemetry.Logging, nil)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	ctx := cmd.Context()

	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		backend, err = storage.NewSQLiteBackend(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite backend: %w", err)
		}
	default:
		return fmt.Errorf("rollover requires a persistent backend, got %q", cfg.Storage.Backend)
	}
	defer backend.Close()

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open audit journal: %w", err)
		}
		defer jnl.Close()
	}

	src := source.NewFileSource(cfg.Rules.Path, source.NewRegistry(), logger)
	rules, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	manager, err := spend.NewManager(ctx, spend.ManagerConfig{
		Rules:   rules,
		Backend: backend,
		Journal: jnl,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	rolled, err := manager.RolloverDue(ctx, time.Now())
	if err != nil {
		return cli.NewCommandError("rollover", err)
	}

	if len(rolled) == 0 {
		fmt.Println("No limits due for rollover")
		return nil
	}
	for _, limitID := range rolled {
		fmt.Printf("✓ Rolled over %s\n", limitID)
	}
	fmt.Printf("%d limit(s) rolled over\n", len(rolled))
	return nil
}
