package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moodiary/backend/internal/database"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the role table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			// Connect migrates as part of opening the pool.
			if err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, log); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if sqlDB, err := database.DB.DB(); err == nil {
				_ = sqlDB.Close()
			}
			return nil
		},
	}
}
