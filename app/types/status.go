package types

import (
	"errors"
	"strconv"
	"strings"
)

// IntentStatus is the lifecycle state of a payment intent. Transitions only
// move forward; Completed, Failed, and Refunded are terminal for non-refund
// transitions.
type IntentStatus int32

const (
	IntentStatusUnspecified       IntentStatus = 0
	IntentStatusCreated           IntentStatus = 1
	IntentStatusPending           IntentStatus = 2
	IntentStatusCompleted         IntentStatus = 10
	IntentStatusFailed            IntentStatus = 20
	IntentStatusPartiallyRefunded IntentStatus = 30
	IntentStatusRefunded          IntentStatus = 31
)

func (s IntentStatus) String() string {
	switch s {
	case IntentStatusCreated:
		return "created"
	case IntentStatusPending:
		return "pending"
	case IntentStatusCompleted:
		return "completed"
	case IntentStatusFailed:
		return "failed"
	case IntentStatusPartiallyRefunded:
		return "partially_refunded"
	case IntentStatusRefunded:
		return "refunded"
	default:
		return "unspecified"
	}
}

// Terminal reports whether no further non-refund transition is permitted.
func (s IntentStatus) Terminal() bool {
	switch s {
	case IntentStatusCompleted, IntentStatusFailed, IntentStatusRefunded:
		return true
	default:
		return false
	}
}

// Active reports whether the intent still counts against the one-active-intent
//-per-booking rule.
func (s IntentStatus) Active() bool {
	return s == IntentStatusCreated || s == IntentStatusPending
}

// Refundable reports whether a refund may be issued against this state.
func (s IntentStatus) Refundable() bool {
	return s == IntentStatusCompleted || s == IntentStatusPartiallyRefunded
}

func ParseIntentStatus(raw string) (IntentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "created":
		return IntentStatusCreated, nil
	case "pending":
		return IntentStatusPending, nil
	case "completed":
		return IntentStatusCompleted, nil
	case "failed":
		return IntentStatusFailed, nil
	case "partially_refunded":
		return IntentStatusPartiallyRefunded, nil
	case "refunded":
		return IntentStatusRefunded, nil
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32); err == nil {
		status := IntentStatus(n)
		if isValidIntentStatus(status) {
			return status, nil
		}
	}
	return IntentStatusUnspecified, errors.New("invalid status")
}

func isValidIntentStatus(status IntentStatus) bool {
	switch status {
	case IntentStatusCreated,
		IntentStatusPending,
		IntentStatusCompleted,
		IntentStatusFailed,
		IntentStatusPartiallyRefunded,
		IntentStatusRefunded:
		return true
	default:
		return false
	}
}

type RefundStatus int32

const (
	RefundStatusUnspecified RefundStatus = 0
	RefundStatusRequested   RefundStatus = 1
	RefundStatusCompleted   RefundStatus = 10
	RefundStatusFailed      RefundStatus = 20
)

func (s RefundStatus) String() string {
	switch s {
	case RefundStatusRequested:
		return "requested"
	case RefundStatusCompleted:
		return "completed"
	case RefundStatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// Booking states owned by the booking collaborator. This service only ever
// writes them through SetBookingPaymentState.
const (
	BookingStatusDraft           = "draft"
	BookingStatusAwaitingPayment = "awaiting_payment"
	BookingStatusConfirmed       = "confirmed"
	BookingStatusCancelled       = "cancelled"
)

const (
	BookingPaymentNone              = "none"
	BookingPaymentPending           = "pending"
	BookingPaymentPaid              = "paid"
	BookingPaymentFailed            = "failed"
	BookingPaymentRefunded          = "refunded"
	BookingPaymentPartiallyRefunded = "partially_refunded"
)

// Callback outcomes reported by the gateway.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CallbackStatus records how an inbound gateway callback was handled.
type CallbackStatus int32

const (
	CallbackStatusProcessed CallbackStatus = 10
	CallbackStatusRejected  CallbackStatus = 20
)
