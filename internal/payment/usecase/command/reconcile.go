package command

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

const maxReconcileAttempts = 3

// reconcileWithRetry retries a lost compare-and-swap. decide must be free of
// side effects because it can run more than once.
func reconcileWithRetry(ctx context.Context, repo domain.PaymentRepository, paymentID uuid.UUID, decide domain.DecideFunc) (*domain.Payment, domain.TransitionResult, error) {
	for attempt := 1; ; attempt++ {
		p, res, err := repo.Reconcile(ctx, paymentID, decide)
		if !errors.Is(err, domain.ErrConcurrentUpdate) || attempt >= maxReconcileAttempts {
			return p, res, err
		}
		logger.Warn(ctx).
			Str("payment_id", paymentID.String()).
			Int("attempt", attempt).
			Msg("Concurrent payment update, retrying")
	}
}
