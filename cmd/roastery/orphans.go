package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/memohai/roastery/internal/coffees"
	"github.com/memohai/roastery/internal/db"
	"github.com/memohai/roastery/internal/db/sqlc"
	"github.com/memohai/roastery/internal/ingest"
)

func newOrphansCmd(opts *rootOptions) *cobra.Command {
	var (
		remove bool
		minAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report image blobs that no coffee references",
		Long: `Lists every blob in the image store, subtracts the keys referenced by
catalog records and prints the rest. Blobs younger than the minimum age are
skipped so uploads still in flight are not reported.`,
		Example: `  # Report only
  roastery orphans

  # Delete orphans older than two days
  roastery orphans --delete --min-age 48h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pool, err := db.Open(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			blobs, err := newBlobStore(ctx, log, cfg)
			if err != nil {
				return err
			}
			catalog := coffees.NewService(log, sqlc.New(pool), blobs)
			if !cmd.Flags().Changed("min-age") {
				minAge = cfg.Ingest.OrphanMinAgeDuration()
			}
			sweeper, err := ingest.NewSweeper(log, blobs, catalog, minAge, nil)
			if err != nil {
				return err
			}
			report, err := sweeper.Sweep(ctx, remove)
			if err != nil {
				return err
			}
			log.Info("orphan scan finished", slog.Bool("delete", remove))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "delete the orphans found")
	cmd.Flags().DurationVar(&minAge, "min-age", 0, "skip blobs younger than this (defaults to ingest.orphan_min_age)")
	return cmd
}
