package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tair/appointment-payments/docs"
	"github.com/tair/appointment-payments/internal/config"
	"github.com/tair/appointment-payments/internal/payment"
	"github.com/tair/appointment-payments/internal/payment/handler"
	"github.com/tair/appointment-payments/internal/payment/repository"
	"github.com/tair/appointment-payments/kafka"
	"github.com/tair/appointment-payments/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the payment HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := bootstrap("serve")
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServer(cfg, autoMigrate)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Apply schema migrations before serving")
	return cmd
}

func runServer(cfg *config.Config, autoMigrate bool) error {
	defer startTracer(cfg)()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	if autoMigrate {
		if err := repository.NewGormPaymentRepository(db).AutoMigrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// The event cache and rate limiter fail open without Redis
		logger.Logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable")
	}

	publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc, err := payment.InitializeService(db, cfg, redisClient, publisher, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	router := mux.NewRouter()
	handler.RegisterMiddlewares(router, svc.Handler.GetMiddlewareConfig())
	svc.Handler.RegisterRoutes(router)
	svc.Handler.RegisterHealthCheck(router, sqlDB)
	router.Handle("/metrics", promhttp.Handler())
	handler.RegisterSwaggerDocs(router, httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("swagger", "/swagger/").
			Msg("HTTP server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Receipts already accepted must reach the queue before the publisher closes
	svc.Receipts.Wait()
	logger.Logger.Info().Msg("Server stopped")
	return nil
}
