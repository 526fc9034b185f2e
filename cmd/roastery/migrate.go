package main

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	dbembed "github.com/memohai/roastery/db"
	"github.com/memohai/roastery/internal/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|down|version|force N>",
		Short: "Apply or roll back the database schema",
		Example: `  # Apply every pending migration
  roastery migrate up

  # Clear a dirty state left by a failed migration
  roastery migrate force 1`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{db.MigrateUp, db.MigrateDown, db.MigrateVersion, db.MigrateForce},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			migrations, err := fs.Sub(dbembed.MigrationsFS, "migrations")
			if err != nil {
				return fmt.Errorf("migrations fs: %w", err)
			}
			return db.RunMigrate(log, cfg.Postgres, migrations, args[0], args[1:])
		},
	}
}
