package main

import (
	"github.com/spf13/cobra"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/db"
	"github.com/freelancehub/api/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.LogLevel, cfg.Env)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		gdb, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		return db.Migrate(gdb, log)
	},
}
