package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tair/appointment-payments/internal/config"
	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/internal/payment/notification"
	"github.com/tair/appointment-payments/kafka"
	"github.com/tair/appointment-payments/pkg/logger"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume notification tasks and deliver receipt emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(bootstrap("worker"))
		},
	}
}

func runWorker(cfg *config.Config) error {
	defer startTracer(cfg)()

	metrics := notification.NewMetrics(prometheus.DefaultRegisterer)
	mailer := notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	worker := notification.NewWorker(mailer, metrics)

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.Topic})
	if err != nil {
		return err
	}
	consumer.RegisterHandler(domain.TaskBookingReceipt, worker.Handle)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error().Err(err).Msg("Worker metrics server failed")
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	logger.Logger.Info().
		Str("metrics_port", cfg.WorkerPort).
		Str("topic", cfg.Kafka.Topic).
		Msg("Notification worker running")

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Metrics server shutdown failed")
	}
	if err := consumer.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close consumer")
	}
	consumer.Wait()
	return nil
}
