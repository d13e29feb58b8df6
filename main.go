package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"account-dispenser/config"
	"account-dispenser/database"
	"account-dispenser/logging"
	"account-dispenser/metrics"
	"account-dispenser/services"
)

// app holds what every subcommand needs once the environment is loaded.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
	d   *services.Dispenser
}

var current app

var rootCmd = &cobra.Command{
	Use:          "dispenser",
	Short:        "Credential pool dispenser",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "⚠️  No .env file found, reading environment variables directly")
		}

		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}

		current = app{
			cfg: cfg,
			log: logger,
			db:  db,
			d:   services.NewDispenser(db, cfg.Location, logger, metrics.Dispenser()),
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current.db != nil {
			if sqlDB, err := current.db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if current.log != nil {
			_ = current.log.Sync()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, ingestCmd, restockCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
