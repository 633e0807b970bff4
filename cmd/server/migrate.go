package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vedran77/careteam/internal/database/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := migrations.Up(cfg.MigrateURL()); err != nil {
			return err
		}
		st, err := migrations.CheckStatus(cfg.MigrateURL())
		if err != nil {
			return err
		}
		logger.Info("database migrated", "version", st.Current)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := migrations.Down(cfg.MigrateURL()); err != nil {
			return err
		}
		logger.Info("database rolled back")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := migrations.CheckStatus(cfg.MigrateURL())
		fmt.Fprintf(cmd.OutOrStdout(), "current: %d\nlatest:  %d\npending: %d\ndirty:   %t\n",
			st.Current, st.Latest, st.Pending(), st.Dirty)
		return err
	},
}
