package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/memohai/roastery/internal/config"
	"github.com/memohai/roastery/internal/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "roastery",
		Short: "Coffee catalog API with image ingestion",
		Long: `Roastery serves a catalog of coffees and their reviews.

Uploaded images are validated, resized to fit 800x800, re-encoded as JPEG and
written to blob storage before the catalog record that points at them.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the TOML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newOrphansCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config file and initializes the global logger from it.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, logger.L, nil
}
