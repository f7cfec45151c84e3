package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

var (
	ErrIntentNotFound      = errors.New("payment intent not found")
	ErrIntentAlreadyExists = errors.New("payment intent already exists")
)

type IntentFilter struct {
	BookingID string
	HasStatus bool
	Status    int32
	Limit     int32
	Offset    int32
}

type IntentRepository struct {
	db DBTX
}

func NewIntentRepository(db DBTX) *IntentRepository {
	return &IntentRepository{db: db}
}

const intentColumns = `id, transaction_id, booking_id, caller_request_id, amount_cents, currency, status,
		gateway_request_digest, gateway_reference, redirect_url, refunded_cents,
		created_at, last_transition_at`

func (r *IntentRepository) Create(ctx context.Context, intent *entity.PaymentIntent) error {
	query := `
		INSERT INTO payment_intents (
			transaction_id, booking_id, caller_request_id, amount_cents, currency, status,
			gateway_request_digest, gateway_reference, redirect_url, refunded_cents,
			created_at, last_transition_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		intent.TransactionID,
		intent.BookingID,
		intent.CallerRequestID,
		intent.AmountCents,
		intent.Currency,
		intent.Status,
		intent.GatewayRequestDigest,
		nullableStringValue(intent.GatewayReference),
		nullableStringValue(intent.RedirectURL),
		intent.RefundedCents,
		intent.CreatedAt,
		intent.LastTransitionAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrIntentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	intent.ID = uint64(id)
	return nil
}

func (r *IntentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.PaymentIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM payment_intents
		WHERE transaction_id = ?
		LIMIT 1
	`

	intent := &entity.PaymentIntent{}
	if err := scanIntent(r.db.QueryRowContext(ctx, query, transactionID), intent); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return intent, nil
}

// FindByCallerRequestID returns the intent a caller request already produced,
// if any, so a retried create request is answered with the original intent.
func (r *IntentRepository) FindByCallerRequestID(ctx context.Context, callerRequestID string) (*entity.PaymentIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM payment_intents
		WHERE caller_request_id = ?
		LIMIT 1
	`

	intent := &entity.PaymentIntent{}
	if err := scanIntent(r.db.QueryRowContext(ctx, query, callerRequestID), intent); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return intent, nil
}

// FindActiveByBookingID returns the booking's non-terminal intent, if any.
// At most one can exist at a time.
func (r *IntentRepository) FindActiveByBookingID(ctx context.Context, bookingID string) (*entity.PaymentIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM payment_intents
		WHERE booking_id = ? AND status IN (?, ?)
		LIMIT 1
	`

	intent := &entity.PaymentIntent{}
	err := scanIntent(r.db.QueryRowContext(ctx, query,
		bookingID,
		int32(types.IntentStatusCreated),
		int32(types.IntentStatusPending),
	), intent)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return intent, nil
}

func (r *IntentRepository) List(ctx context.Context, filter IntentFilter) ([]*entity.PaymentIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM payment_intents
	`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if strings.TrimSpace(filter.BookingID) != "" {
		conditions = append(conditions, "booking_id = ?")
		args = append(args, filter.BookingID)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := make([]*entity.PaymentIntent, 0)
	for rows.Next() {
		item, err := scanIntentFromRows(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return intents, nil
}

// ListStaleActive selects non-terminal intents whose last transition predates
// the reconciliation threshold. Pending rows cover lost callbacks; Created
// rows cover crashes between the ledger insert and the gateway call.
func (r *IntentRepository) ListStaleActive(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM payment_intents
		WHERE status IN (?, ?)
		  AND last_transition_at <= ?
		ORDER BY last_transition_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, int32(types.IntentStatusCreated), int32(types.IntentStatusPending), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := make([]*entity.PaymentIntent, 0)
	for rows.Next() {
		item, err := scanIntentFromRows(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return intents, nil
}

// TransitionStatus applies a forward transition keyed by
// (transaction_id, expected current status). Zero rows affected means another
// caller already moved the intent on; the caller treats that as a no-op.
func (r *IntentRepository) TransitionStatus(ctx context.Context, transactionID string, expected, target int32, now time.Time) (bool, error) {
	query := `
		UPDATE payment_intents
		SET status = ?, last_transition_at = ?
		WHERE transaction_id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, target, now, transactionID, expected)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkPending is the Created->Pending transition that also records what the
// gateway handed back on acceptance.
func (r *IntentRepository) MarkPending(ctx context.Context, transactionID, redirectURL, gatewayReference string, now time.Time) (bool, error) {
	query := `
		UPDATE payment_intents
		SET status = ?, redirect_url = ?, gateway_reference = ?, last_transition_at = ?
		WHERE transaction_id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		int32(types.IntentStatusPending),
		redirectURL,
		gatewayReference,
		now,
		transactionID,
		int32(types.IntentStatusCreated),
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ApplyRefund increments refunded_cents and derives the resulting status in a
// single statement. The WHERE clause enforces both the refundable states and
// the remainder bound, so concurrent refunds cannot jointly over-refund.
// MySQL evaluates SET assignments left to right, so the status expression
// reads the already-incremented refunded_cents: a zero remainder there means
// the intent is fully refunded.
func (r *IntentRepository) ApplyRefund(ctx context.Context, transactionID string, amountCents int64, now time.Time) (bool, error) {
	query := `
		UPDATE payment_intents
		SET refunded_cents = refunded_cents + ?,
		    status = IF(amount_cents - refunded_cents = 0, ?, ?),
		    last_transition_at = ?
		WHERE transaction_id = ?
		  AND status IN (?, ?)
		  AND amount_cents - refunded_cents >= ?
	`

	result, err := r.db.ExecContext(ctx, query,
		amountCents,
		int32(types.IntentStatusRefunded),
		int32(types.IntentStatusPartiallyRefunded),
		now,
		transactionID,
		int32(types.IntentStatusCompleted),
		int32(types.IntentStatusPartiallyRefunded),
		amountCents,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntent(scan rowScanner, intent *entity.PaymentIntent) error {
	var gatewayReference sql.NullString
	var redirectURL sql.NullString

	err := scan.Scan(
		&intent.ID,
		&intent.TransactionID,
		&intent.BookingID,
		&intent.CallerRequestID,
		&intent.AmountCents,
		&intent.Currency,
		&intent.Status,
		&intent.GatewayRequestDigest,
		&gatewayReference,
		&redirectURL,
		&intent.RefundedCents,
		&intent.CreatedAt,
		&intent.LastTransitionAt,
	)
	if err != nil {
		return err
	}

	intent.GatewayReference = stringPtrFromNull(gatewayReference)
	intent.RedirectURL = stringPtrFromNull(redirectURL)

	return nil
}

func scanIntentFromRows(rows *sql.Rows) (*entity.PaymentIntent, error) {
	item := &entity.PaymentIntent{}
	if err := scanIntent(rows, item); err != nil {
		return nil, err
	}
	return item, nil
}
