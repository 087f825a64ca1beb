// Package main provides the doomgen CLI:
// - run: one generation cycle
// - serve: scheduled cycles plus the ops HTTP server
// - migrate: apply embedded Postgres and ClickHouse migrations
// - list: page through stored paintings
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"doom-index/internal/config"
	"doom-index/internal/logging"
)

// cli carries state shared by subcommands after the root pre-run.
type cli struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "doomgen",
		Short:         "Generate market-driven paintings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.Log.Level = c.logLevel
			}
			c.cfg = cfg
			c.logger = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "path to YAML config (optional)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log level")

	root.AddCommand(runCmd(c))
	root.AddCommand(serveCmd(c))
	root.AddCommand(migrateCmd(c))
	root.AddCommand(listCmd(c))
	return root
}
