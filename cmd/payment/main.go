package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tair/appointment-payments/internal/config"
	"github.com/tair/appointment-payments/pkg/database"
	"github.com/tair/appointment-payments/pkg/logger"
	"github.com/tair/appointment-payments/pkg/tracing"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "payments",
		Short:   "Appointment payment service",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and initializes the logger
func bootstrap(component string) *config.Config {
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("component", component).
		Str("version", Version).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting payment service")

	return cfg
}

// startTracer returns a shutdown func that is safe to call when tracing failed to start
func startTracer(cfg *config.Config) func() {
	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName: cfg.ServiceName,
		Version:     Version,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.JaegerEndpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
		return func() {}
	}
	return func() { shutdownTracer(tp) }
}

func shutdownTracer(tp trace.TracerProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx, tp); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Logger.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.DBName).
		Msg("Database connected")
	return db, nil
}
