package service

import (
	"context"
	"fmt"

	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

// HandleGatewayCallback verifies and applies an asynchronous outcome
// notification. Every delivery is recorded, rejected or not, so disputed
// settlements can be traced back to the exact payload received.
func (s *PaymentService) HandleGatewayCallback(ctx context.Context, req *types.GatewayCallbackRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	logger := s.logger.WithField("transaction_id", req.TransactionID)

	intent, err := s.intents.FindByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return err
	}
	if intent == nil {
		s.recordCallback(ctx, nil, req, types.CallbackStatusRejected, "unknown transaction")
		logger.Warn("callback for unknown transaction")
		return ErrUnknownTransaction
	}

	if !s.signer.Verify(req.SignedPayload(), s.cfg.WebhookPath, s.cfg.Secret, req.Digest) {
		s.recordCallback(ctx, &intent.ID, req, types.CallbackStatusRejected, "digest mismatch")
		logger.Warn("callback digest mismatch")
		return ErrAuthenticationFailed
	}

	s.recordCallback(ctx, &intent.ID, req, types.CallbackStatusProcessed, "")

	return s.applyGatewayOutcome(ctx, intent, req.Succeeded(), req.GatewayReference, logger)
}

func (s *PaymentService) recordCallback(ctx context.Context, paymentIntentID *uint64, req *types.GatewayCallbackRequest, status types.CallbackStatus, reason string) {
	now := s.now()
	callback := &entity.GatewayCallback{
		PaymentIntentID: paymentIntentID,
		TransactionID:   req.TransactionID,
		Digest:          req.Digest,
		PayloadJSON:     req.RawBody,
		Status:          int32(status),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if reason != "" {
		callback.Error = &reason
	}
	if err := s.callbacks.Create(ctx, callback); err != nil {
		s.logger.WithError(err).WithField("transaction_id", req.TransactionID).Error("record gateway callback")
	}
}
