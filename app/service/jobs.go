package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/lodgeworks/ms-go-booking-payments/app/gateway"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

// RunReconcileBatch sweeps non-terminal intents stuck past the staleness
// threshold and asks the gateway directly. Terminal answers go through the
// same transition path as callbacks. A Created intent the gateway has no
// record of is failed outright: the create call never went out, and the
// booking must not stay blocked by it.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.ReconcileStaleAfter)

	stale, err := s.intents.ListStaleActive(ctx, cutoff, s.cfg.ReconcileBatchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	var firstErr error
	keepFirstErr := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, intent := range stale {
		logger := s.logger.WithFields(logrus.Fields{
			"transaction_id": intent.TransactionID,
			"booking_id":     intent.BookingID,
		})

		state, err := s.gw.CheckStatus(ctx, intent.TransactionID)
		if err != nil {
			var backendErr *gateway.BackendError
			if !errors.As(err, &backendErr) {
				logger.WithError(err).Error("check gateway status")
				keepFirstErr(err)
				continue
			}
			// A business rejection on a status query means the gateway
			// cannot account for the transaction.
			state = gateway.StateUnknown
		}

		switch state {
		case gateway.StateCompleted:
			if err := s.applyGatewayOutcome(ctx, intent, true, "", logger); err != nil {
				logger.WithError(err).Error("apply reconciled completion")
				keepFirstErr(err)
				continue
			}
			logger.Info("stale intent reconciled to completed")
			resolved++
		case gateway.StateFailed:
			if err := s.applyGatewayOutcome(ctx, intent, false, "", logger); err != nil {
				logger.WithError(err).Error("apply reconciled failure")
				keepFirstErr(err)
				continue
			}
			logger.Info("stale intent reconciled to failed")
			resolved++
		case gateway.StateUnknown:
			if types.IntentStatus(intent.Status) != types.IntentStatusCreated {
				logger.Warn("gateway has no record of pending intent")
				continue
			}
			if err := s.applyGatewayOutcome(ctx, intent, false, "", logger); err != nil {
				logger.WithError(err).Error("fail orphaned intent")
				keepFirstErr(err)
				continue
			}
			logger.Info("orphaned intent reconciled to failed")
			resolved++
		default:
			logger.Debug("intent still pending at gateway")
		}
	}

	return resolved, firstErr
}
