package main

import (
	"github.com/spf13/cobra"

	"school-controlplane/internal/storage"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the control plane schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := storage.NewStorage(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info("schema up to date")
			return nil
		},
	}
}
