package main

import (
	"github.com/spf13/cobra"

	"tenantlink/internal/config"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			log, err := logger.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := dbsql.Open(cfg, log)
			if err != nil {
				return err
			}
			if err := dbsql.AutoMigrate(db); err != nil {
				return err
			}
			log.Info("database migration completed", "driver", cfg.Database.Driver)
			return nil
		},
	}
}
