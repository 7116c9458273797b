package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/trip-planner/internal/config"
	"github.com/benvon/trip-planner/internal/logger"
	"github.com/benvon/trip-planner/internal/planner"
	"github.com/benvon/trip-planner/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Options are the persistent flags shared by every command. Empty values fall back to the
// loaded configuration.
type Options struct {
	StoreDriver string
	StoreDSN    string
	Debug       bool
}

// NewRootCmd creates the tripctl command tree
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	rootCmd := &cobra.Command{
		Use:           "tripctl",
		Short:         "Command line tool for the trip planner",
		Long:          "Inspect and edit trips and staged places directly in the configured store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.StoreDriver, "store-driver", "", "Store driver (memory, file, bolt, sqlite, postgres, redis)")
	rootCmd.PersistentFlags().StringVar(&opts.StoreDSN, "store-dsn", "", "Store DSN: directory, file path or connection URL depending on the driver")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Log to stderr")

	rootCmd.AddCommand(NewTripsCmd(opts))
	rootCmd.AddCommand(NewStagedCmd(opts))
	rootCmd.AddCommand(NewExportCmd(opts))
	rootCmd.AddCommand(NewImportCmd(opts))
	rootCmd.AddCommand(NewSearchCmd(opts))
	rootCmd.AddCommand(NewReindexCmd(opts))
	return rootCmd
}

func (o *Options) logger() *zap.Logger {
	if !o.Debug {
		return zap.NewNop()
	}
	l, err := logger.NewDevelopmentLogger(true)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// openPlanner loads both collections from the store. The returned close func releases the store.
func (o *Options) openPlanner(ctx context.Context) (*planner.Planner, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	driver, dsn := cfg.StoreDriver, cfg.StoreDSN
	if o.StoreDriver != "" {
		driver = o.StoreDriver
	}
	if o.StoreDSN != "" {
		dsn = o.StoreDSN
	}

	store, err := storage.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
		}
	}
	return planner.Open(ctx, store, o.logger()), closeStore, nil
}

// saved turns failed write-throughs into a command error
func saved(what string, writes planner.Writes) error {
	if err := writes.Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", what, err)
	}
	return nil
}
