package entity

import "time"

type PaymentIntent struct {
	ID uint64

	TransactionID   string
	BookingID       string
	CallerRequestID string

	AmountCents int64
	Currency    string

	Status int32

	GatewayRequestDigest string
	GatewayReference     *string
	RedirectURL          *string

	RefundedCents int64

	CreatedAt        time.Time
	LastTransitionAt time.Time
}

// RemainderCents is the amount still refundable against this intent.
func (p *PaymentIntent) RemainderCents() int64 {
	return p.AmountCents - p.RefundedCents
}
