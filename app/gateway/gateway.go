package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Gateway endpoint paths. They take part in every digest, so the constants are
// shared between signing call sites and the backends.
const (
	CreatePath = "/v1/payments"
	StatusPath = "/v1/payments/status"
	RefundPath = "/v1/refunds"
)

// State is the gateway's view of a transaction, as reported by a status query.
type State int32

const (
	StateUnknown   State = 0
	StatePending   State = 1
	StateCompleted State = 2
	StateFailed    State = 3
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrUnavailable marks transport-level failures: timeouts, connection errors,
// 5xx responses. Safe to retry for idempotent reads only.
var ErrUnavailable = errors.New("gateway unavailable")

// BackendError is a business rejection from the gateway. Never retried.
type BackendError struct {
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("gateway rejected request: code=%s message=%s", e.Code, e.Message)
}

type CreateRequest struct {
	TransactionID string
	BookingID     string
	AmountCents   int64
	Currency      string
	CustomerRef   string
	ReturnURL     string
	CallbackURL   string

	// Digest is the request signature computed by the caller; it travels in
	// the signature header and is retained on the ledger row for audit.
	Digest string
}

// SignedPayload returns the request body the digest is computed over.
func (r *CreateRequest) SignedPayload() map[string]any {
	return map[string]any{
		"transaction_id": r.TransactionID,
		"booking_id":     r.BookingID,
		"amount_cents":   r.AmountCents,
		"currency":       r.Currency,
		"customer_ref":   r.CustomerRef,
		"return_url":     r.ReturnURL,
		"callback_url":   r.CallbackURL,
	}
}

type CreateResult struct {
	RedirectURL      string
	GatewayReference string
}

type RefundRequest struct {
	TransactionID         string
	OriginalTransactionID string
	AmountCents           int64
	Reason                string

	Digest string
}

func (r *RefundRequest) SignedPayload() map[string]any {
	return map[string]any{
		"transaction_id":          r.TransactionID,
		"original_transaction_id": r.OriginalTransactionID,
		"amount_cents":            r.AmountCents,
		"reason":                  r.Reason,
	}
}

// Backend is the strategy boundary between the state machine and a concrete
// gateway integration. The real HTTP client and the deterministic sandbox are
// interchangeable; the verifier and coordinator behave identically over both.
type Backend interface {
	Name() string
	CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResult, error)
	CheckStatus(ctx context.Context, transactionID string) (State, error)
	CreateRefund(ctx context.Context, req *RefundRequest) error
}
