package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// Worker delivers notification tasks taken off the queue
type Worker struct {
	mailer  domain.Mailer
	metrics *Metrics
}

// NewWorker creates a notification worker
func NewWorker(mailer domain.Mailer, metrics *Metrics) *Worker {
	return &Worker{mailer: mailer, metrics: metrics}
}

// Handle sends the task's email, retrying with the backoff policy the task
// carries. It gives up after the policy's retry count or when ctx ends.
func (w *Worker) Handle(ctx context.Context, task domain.NotificationTask) error {
	if task.To == "" {
		w.metrics.delivery("invalid")
		return fmt.Errorf("task %s has no recipient", task.ID)
	}

	email := domain.Email{
		To:          task.To,
		Subject:     task.Subject,
		Body:        task.Body,
		Attachments: task.Attachments,
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := w.mailer.Send(ctx, email); err != nil {
			w.metrics.delivery("error")
			return err
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn(ctx).
			Err(err).
			Str("task_id", task.ID.String()).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Notification delivery failed, retrying")
	}

	err := backoff.RetryNotify(op, backOffFor(ctx, task.Retry), notify)
	if err != nil {
		w.metrics.delivery("exhausted")
		return fmt.Errorf("notification %s failed after %d attempts: %w", task.ID, attempt, err)
	}

	w.metrics.delivery("sent")
	logger.Info(ctx).
		Str("task_id", task.ID.String()).
		Str("payment_id", task.PaymentID.String()).
		Int("attempts", attempt).
		Msg("Notification delivered")
	return nil
}

func backOffFor(ctx context.Context, p domain.RetryPolicy) backoff.BackOffContext {
	if p == (domain.RetryPolicy{}) {
		p = domain.DefaultRetryPolicy()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxElapsedTime = 0
	b.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
