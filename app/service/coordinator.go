package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lodgeworks/ms-go-booking-payments/app/booking"
	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

// applyGatewayOutcome moves an intent to its terminal payment state and
// re-syncs the booking. A replayed outcome lands on the CAS no-op path but
// still re-syncs the booking, which repairs a crash that happened between the
// ledger write and the booking update on an earlier delivery.
func (s *PaymentService) applyGatewayOutcome(ctx context.Context, intent *entity.PaymentIntent, success bool, gatewayReference string, logger logrus.FieldLogger) error {
	target := types.IntentStatusFailed
	eventType := eventPaymentFailed
	if success {
		target = types.IntentStatusCompleted
		eventType = eventPaymentCompleted
	}

	var reference *string
	if gatewayReference != "" {
		reference = &gatewayReference
	}

	transitioned := false
	// A callback can arrive before MarkPending lands, so Created is a valid
	// source state too.
	for _, expected := range []types.IntentStatus{types.IntentStatusPending, types.IntentStatusCreated} {
		ok, err := s.intents.TransitionStatus(ctx, intent.TransactionID, int32(expected), int32(target), s.now())
		if err != nil {
			return err
		}
		if ok {
			old := int32(expected)
			intent.Status = int32(target)
			s.recordEvent(ctx, intent, eventType, &old, reference, nil)
			transitioned = true
			break
		}
	}

	if !transitioned {
		current, err := s.intents.FindByTransactionID(ctx, intent.TransactionID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrUnknownTransaction
		}
		intent = current
		if types.IntentStatus(intent.Status) != target {
			// The intent already settled the other way, or moved into the
			// refund states. The ledger wins over late gateway reports.
			logger.WithFields(logrus.Fields{
				"status":          types.IntentStatus(intent.Status).String(),
				"reported_status": target.String(),
			}).Warn("gateway outcome conflicts with settled intent")
			return nil
		}
	}

	switch target {
	case types.IntentStatusCompleted:
		s.syncBookingPaymentState(ctx, intent.BookingID, types.BookingStatusConfirmed, types.BookingPaymentPaid, logger)
		if transitioned {
			s.notifyAsync(intent.BookingID, s.notifier.BookingConfirmed, "booking confirmed", logger)
		}
	case types.IntentStatusFailed:
		s.syncBookingPaymentState(ctx, intent.BookingID, types.BookingStatusAwaitingPayment, types.BookingPaymentFailed, logger)
		if transitioned {
			s.notifyAsync(intent.BookingID, s.notifier.PaymentFailed, "payment failed", logger)
		}
	}

	return nil
}

// syncBookingPaymentState pushes the booking-side mirror of the ledger state.
// The call is idempotent on the booking side, so retries are safe.
func (s *PaymentService) syncBookingPaymentState(ctx context.Context, bookingID, status, paymentStatus string, logger logrus.FieldLogger) {
	var err error
	for attempt := 0; attempt < s.cfg.BookingSyncAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				logger.WithError(ctx.Err()).Error("sync booking payment state")
				return
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		err = s.bookings.SetBookingPaymentState(ctx, bookingID, status, paymentStatus)
		if err == nil {
			return
		}
		if errors.Is(err, booking.ErrBookingNotFound) {
			break
		}
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"status":         status,
		"payment_status": paymentStatus,
	}).Error("sync booking payment state")
}

func (s *PaymentService) notifyAsync(bookingID string, send func(context.Context, string) error, event string, logger logrus.FieldLogger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := send(ctx, bookingID); err != nil {
			logger.WithError(err).WithField("booking_id", bookingID).Warnf("send %s notification", event)
		}
	}()
}
