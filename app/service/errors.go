package service

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidAmount means the booking total falls outside the configured
	// charge bounds. Nothing is persisted and no gateway call is made.
	ErrInvalidAmount = errors.New("amount outside allowed bounds")

	ErrBookingNotPayable     = errors.New("booking is not payable")
	ErrDuplicateActiveIntent = errors.New("booking already has an active payment intent")
	ErrIntentNotFound        = errors.New("payment intent not found")

	ErrNotRefundable          = errors.New("payment intent is not refundable")
	ErrAmountExceedsRemainder = errors.New("refund amount exceeds refundable remainder")

	// Webhook rejections. The HTTP layer still acknowledges these with 200 so
	// the gateway stops redelivering; only transport failures bubble out as
	// non-2xx.
	ErrUnknownTransaction   = errors.New("callback references unknown transaction")
	ErrAuthenticationFailed = errors.New("callback digest verification failed")
)
