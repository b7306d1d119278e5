package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tair/appointment-payments/internal/payment/repository"
	"github.com/tair/appointment-payments/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payment schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := bootstrap("migrate")

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := repository.NewGormPaymentRepository(db).AutoMigrate(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			logger.Logger.Info().Msg("Migrations applied")
			return nil
		},
	}
}
