package main

import (
	"participant-import-backend/internal/config"
	"participant-import-backend/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := config.InitDB(cfg.Database, cfg.IsDevelopment())
		if err != nil {
			return err
		}
		defer func() { _ = config.CloseDB(db) }()

		if err := db.AutoMigrate(models.All()...); err != nil {
			return errors.Wrap(err, "failed to migrate database")
		}

		// Mongo indexes are created by openStorage.
		_, closeStore, err := openStorage(cmd.Context(), db)
		if err != nil {
			return err
		}
		closeStore()

		log.Info().Str("storage", cfg.Storage.Driver).Msg("migration finished")
		return nil
	},
}
