package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lodgeworks/ms-go-booking-payments/app/booking"
	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
	"github.com/lodgeworks/ms-go-booking-payments/app/gateway"
	"github.com/lodgeworks/ms-go-booking-payments/app/notify"
	"github.com/lodgeworks/ms-go-booking-payments/app/repository"
	"github.com/lodgeworks/ms-go-booking-payments/app/signature"
	"github.com/lodgeworks/ms-go-booking-payments/app/txid"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

const (
	eventIntentCreated    = "intent_created"
	eventGatewayAccepted  = "gateway_accepted"
	eventGatewayRejected  = "gateway_rejected"
	eventPaymentCompleted = "payment_completed"
	eventPaymentFailed    = "payment_failed"
	eventRefundRequested  = "refund_requested"
	eventRefundApplied    = "refund_applied"
	eventRefundFailed     = "refund_failed"
)

type IntentRepository interface {
	Create(ctx context.Context, intent *entity.PaymentIntent) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.PaymentIntent, error)
	FindByCallerRequestID(ctx context.Context, callerRequestID string) (*entity.PaymentIntent, error)
	FindActiveByBookingID(ctx context.Context, bookingID string) (*entity.PaymentIntent, error)
	List(ctx context.Context, filter repository.IntentFilter) ([]*entity.PaymentIntent, error)
	ListStaleActive(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentIntent, error)
	TransitionStatus(ctx context.Context, transactionID string, expected, target int32, now time.Time) (bool, error)
	MarkPending(ctx context.Context, transactionID, redirectURL, gatewayReference string, now time.Time) (bool, error)
	ApplyRefund(ctx context.Context, transactionID string, amountCents int64, now time.Time) (bool, error)
}

type RefundRepository interface {
	Create(ctx context.Context, refund *entity.Refund) error
	UpdateStatus(ctx context.Context, transactionID string, status int32, now time.Time) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.Refund, error)
	ListByOriginalTransactionID(ctx context.Context, originalTransactionID string) ([]*entity.Refund, error)
}

type IntentEventRepository interface {
	Create(ctx context.Context, event *entity.IntentEvent) error
}

type GatewayCallbackRepository interface {
	Create(ctx context.Context, callback *entity.GatewayCallback) error
}

type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, req *gateway.CreateRequest) (*gateway.CreateResult, error)
	CheckStatus(ctx context.Context, transactionID string) (gateway.State, error)
	CreateRefund(ctx context.Context, req *gateway.RefundRequest) error
}

type Config struct {
	MinAmountCents int64
	MaxAmountCents int64

	Secret      string
	WebhookPath string
	CallbackURL string

	BookingSyncAttempts int
	ReconcileStaleAfter time.Duration
	ReconcileBatchSize  int32
}

type PaymentService struct {
	cfg       Config
	intents   IntentRepository
	refunds   RefundRepository
	events    IntentEventRepository
	callbacks GatewayCallbackRepository
	gw        Gateway
	bookings  booking.Directory
	notifier  notify.Notifier
	ids       *txid.Generator
	signer    *signature.Engine
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewPaymentService(
	cfg Config,
	intents IntentRepository,
	refunds RefundRepository,
	events IntentEventRepository,
	callbacks GatewayCallbackRepository,
	gw Gateway,
	bookings booking.Directory,
	notifier notify.Notifier,
	ids *txid.Generator,
	signer *signature.Engine,
	logger logrus.FieldLogger,
) *PaymentService {
	if cfg.BookingSyncAttempts <= 0 {
		cfg.BookingSyncAttempts = 3
	}
	if cfg.ReconcileStaleAfter <= 0 {
		cfg.ReconcileStaleAfter = 15 * time.Minute
	}
	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = 100
	}
	return &PaymentService{
		cfg:       cfg,
		intents:   intents,
		refunds:   refunds,
		events:    events,
		callbacks: callbacks,
		gw:        gw,
		bookings:  bookings,
		notifier:  notifier,
		ids:       ids,
		signer:    signer,
		logger:    logger,
		now:       time.Now,
	}
}

// CreatePaymentIntent charges a booking's total through the gateway. The
// amount always comes from the booking record; callers cannot supply one.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req *types.CreatePaymentIntentRequest) (*entity.PaymentIntent, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"booking_id": req.BookingID,
	})

	if existing, err := s.intents.FindByCallerRequestID(ctx, req.RequestID); err != nil {
		return nil, err
	} else if existing != nil {
		logger.WithField("transaction_id", existing.TransactionID).Info("replayed create request")
		return existing, nil
	}

	summary, err := s.bookings.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if summary.Status != types.BookingStatusDraft && summary.Status != types.BookingStatusAwaitingPayment {
		return nil, fmt.Errorf("%w: booking status=%s", ErrBookingNotPayable, summary.Status)
	}
	if summary.TotalAmountCents < s.cfg.MinAmountCents || summary.TotalAmountCents > s.cfg.MaxAmountCents {
		return nil, fmt.Errorf("%w: amount_cents=%d", ErrInvalidAmount, summary.TotalAmountCents)
	}

	if active, err := s.intents.FindActiveByBookingID(ctx, req.BookingID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, fmt.Errorf("%w: transaction_id=%s", ErrDuplicateActiveIntent, active.TransactionID)
	}

	intent, createReq, err := s.persistCreatedIntent(ctx, req, summary)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("transaction_id", intent.TransactionID)

	result, err := s.gw.CreatePayment(ctx, createReq)
	if err != nil {
		now := s.now()
		if ok, ferr := s.intents.TransitionStatus(ctx, intent.TransactionID,
			int32(types.IntentStatusCreated), int32(types.IntentStatusFailed), now); ferr != nil {
			logger.WithError(ferr).Error("mark intent failed after gateway error")
		} else if ok {
			old := intent.Status
			intent.Status = int32(types.IntentStatusFailed)
			intent.LastTransitionAt = now
			s.recordEvent(ctx, intent, eventGatewayRejected, &old, nil, nil)
		}
		logger.WithError(err).Error("gateway create payment")
		return nil, err
	}

	now := s.now()
	if ok, err := s.intents.MarkPending(ctx, intent.TransactionID, result.RedirectURL, result.GatewayReference, now); err != nil {
		return nil, err
	} else if ok {
		old := intent.Status
		intent.Status = int32(types.IntentStatusPending)
		intent.LastTransitionAt = now
		intent.RedirectURL = &result.RedirectURL
		intent.GatewayReference = &result.GatewayReference
		s.recordEvent(ctx, intent, eventGatewayAccepted, &old, &result.GatewayReference, nil)
	}

	s.syncBookingPaymentState(ctx, intent.BookingID, types.BookingStatusAwaitingPayment, types.BookingPaymentPending, logger)

	logger.Info("payment intent created")
	return intent, nil
}

// persistCreatedIntent writes the Created ledger row before any gateway
// traffic, so a crash mid-call leaves a reconcilable record. The unique index
// on transaction_id backstops the generator; one regeneration retry covers
// the (vanishingly rare) collision.
func (s *PaymentService) persistCreatedIntent(ctx context.Context, req *types.CreatePaymentIntentRequest, summary *booking.Summary) (*entity.PaymentIntent, *gateway.CreateRequest, error) {
	for attempt := 0; attempt < 2; attempt++ {
		transactionID, err := s.ids.NewPaymentID()
		if err != nil {
			return nil, nil, err
		}

		createReq := &gateway.CreateRequest{
			TransactionID: transactionID,
			BookingID:     req.BookingID,
			AmountCents:   summary.TotalAmountCents,
			Currency:      summary.Currency,
			CustomerRef:   req.CustomerRef,
			ReturnURL:     req.ReturnURL,
			CallbackURL:   s.cfg.CallbackURL,
		}
		createReq.Digest, err = s.signer.Sign(createReq.SignedPayload(), gateway.CreatePath, s.cfg.Secret)
		if err != nil {
			return nil, nil, err
		}

		now := s.now()
		intent := &entity.PaymentIntent{
			TransactionID:        transactionID,
			BookingID:            req.BookingID,
			CallerRequestID:      req.RequestID,
			AmountCents:          summary.TotalAmountCents,
			Currency:             summary.Currency,
			Status:               int32(types.IntentStatusCreated),
			GatewayRequestDigest: createReq.Digest,
			CreatedAt:            now,
			LastTransitionAt:     now,
		}

		if err := s.intents.Create(ctx, intent); err != nil {
			if err == repository.ErrIntentAlreadyExists && attempt == 0 {
				continue
			}
			return nil, nil, err
		}

		s.recordEvent(ctx, intent, eventIntentCreated, nil, nil, nil)
		return intent, createReq, nil
	}

	return nil, nil, repository.ErrIntentAlreadyExists
}

func (s *PaymentService) GetPaymentIntent(ctx context.Context, req *types.GetPaymentIntentRequest) (*entity.PaymentIntent, []*entity.Refund, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	intent, err := s.intents.FindByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	if intent == nil {
		return nil, nil, ErrIntentNotFound
	}

	refunds, err := s.refunds.ListByOriginalTransactionID(ctx, intent.TransactionID)
	if err != nil {
		return nil, nil, err
	}

	return intent, refunds, nil
}

func (s *PaymentService) ListPaymentIntents(ctx context.Context, req *types.ListPaymentIntentsRequest) ([]*entity.PaymentIntent, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	return s.intents.List(ctx, repository.IntentFilter{
		BookingID: req.BookingID,
		HasStatus: req.HasStatus,
		Status:    int32(req.Status),
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
}

// InitiateRefund issues a full or partial refund against a completed payment.
// The ledger update is a single conditional statement, so concurrent refunds
// cannot jointly exceed the original charge.
func (s *PaymentService) InitiateRefund(ctx context.Context, req *types.InitiateRefundRequest) (*entity.Refund, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"request_id":              req.RequestID,
		"original_transaction_id": req.OriginalTransactionID,
	})

	intent, err := s.intents.FindByTransactionID(ctx, req.OriginalTransactionID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrIntentNotFound
	}
	if !types.IntentStatus(intent.Status).Refundable() {
		return nil, fmt.Errorf("%w: status=%s", ErrNotRefundable, types.IntentStatus(intent.Status))
	}
	if req.AmountCents > intent.RemainderCents() {
		return nil, fmt.Errorf("%w: amount_cents=%d remainder_cents=%d", ErrAmountExceedsRemainder, req.AmountCents, intent.RemainderCents())
	}

	refund, refundReq, err := s.persistRequestedRefund(ctx, req)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("transaction_id", refund.TransactionID)
	s.recordEvent(ctx, intent, eventRefundRequested, nil, nil, nil)

	if err := s.gw.CreateRefund(ctx, refundReq); err != nil {
		s.failRefund(ctx, intent, refund, logger)
		logger.WithError(err).Error("gateway create refund")
		return nil, err
	}

	applied, err := s.intents.ApplyRefund(ctx, intent.TransactionID, req.AmountCents, s.now())
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent refund consumed the remainder between the pre-check
		// and the conditional update. The ledger stays consistent; this
		// request loses.
		s.failRefund(ctx, intent, refund, logger)
		return nil, fmt.Errorf("%w: amount_cents=%d", ErrAmountExceedsRemainder, req.AmountCents)
	}

	now := s.now()
	if err := s.refunds.UpdateStatus(ctx, refund.TransactionID, int32(types.RefundStatusCompleted), now); err != nil {
		logger.WithError(err).Error("mark refund completed")
	} else {
		refund.Status = int32(types.RefundStatusCompleted)
		refund.UpdatedAt = now
	}

	old := intent.Status
	intent.RefundedCents += req.AmountCents
	if intent.RemainderCents() == 0 {
		intent.Status = int32(types.IntentStatusRefunded)
	} else {
		intent.Status = int32(types.IntentStatusPartiallyRefunded)
	}
	intent.LastTransitionAt = now
	s.recordEvent(ctx, intent, eventRefundApplied, &old, nil, nil)

	paymentState := types.BookingPaymentPartiallyRefunded
	if types.IntentStatus(intent.Status) == types.IntentStatusRefunded {
		paymentState = types.BookingPaymentRefunded
	}
	s.syncBookingPaymentState(ctx, intent.BookingID, types.BookingStatusConfirmed, paymentState, logger)

	logger.Info("refund applied")
	return refund, nil
}

func (s *PaymentService) persistRequestedRefund(ctx context.Context, req *types.InitiateRefundRequest) (*entity.Refund, *gateway.RefundRequest, error) {
	for attempt := 0; attempt < 2; attempt++ {
		transactionID, err := s.ids.NewRefundID()
		if err != nil {
			return nil, nil, err
		}

		refundReq := &gateway.RefundRequest{
			TransactionID:         transactionID,
			OriginalTransactionID: req.OriginalTransactionID,
			AmountCents:           req.AmountCents,
			Reason:                req.Reason,
		}
		refundReq.Digest, err = s.signer.Sign(refundReq.SignedPayload(), gateway.RefundPath, s.cfg.Secret)
		if err != nil {
			return nil, nil, err
		}

		now := s.now()
		refund := &entity.Refund{
			TransactionID:         transactionID,
			OriginalTransactionID: req.OriginalTransactionID,
			AmountCents:           req.AmountCents,
			Reason:                req.Reason,
			Status:                int32(types.RefundStatusRequested),
			GatewayRequestDigest:  refundReq.Digest,
			CreatedAt:             now,
			UpdatedAt:             now,
		}

		if err := s.refunds.Create(ctx, refund); err != nil {
			if err == repository.ErrRefundAlreadyExists && attempt == 0 {
				continue
			}
			return nil, nil, err
		}

		return refund, refundReq, nil
	}

	return nil, nil, repository.ErrRefundAlreadyExists
}

func (s *PaymentService) failRefund(ctx context.Context, intent *entity.PaymentIntent, refund *entity.Refund, logger logrus.FieldLogger) {
	now := s.now()
	if err := s.refunds.UpdateStatus(ctx, refund.TransactionID, int32(types.RefundStatusFailed), now); err != nil {
		logger.WithError(err).Error("mark refund failed")
		return
	}
	refund.Status = int32(types.RefundStatusFailed)
	refund.UpdatedAt = now
	s.recordEvent(ctx, intent, eventRefundFailed, nil, nil, nil)
}

// recordEvent appends to the audit trail. Best effort: a failed append is
// logged but never blocks the payment flow.
func (s *PaymentService) recordEvent(ctx context.Context, intent *entity.PaymentIntent, eventType string, oldStatus *int32, gatewayReference *string, payloadJSON *string) {
	event := &entity.IntentEvent{
		PaymentIntentID:  intent.ID,
		EventType:        eventType,
		OldStatus:        oldStatus,
		NewStatus:        intent.Status,
		GatewayReference: gatewayReference,
		PayloadJSON:      payloadJSON,
		CreatedAt:        s.now(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"transaction_id": intent.TransactionID,
			"event_type":     eventType,
		}).Error("record intent event")
	}
}
