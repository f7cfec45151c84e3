package entity

import "time"

type GatewayCallback struct {
	ID uint64

	PaymentIntentID *uint64

	TransactionID string
	Digest        string
	PayloadJSON   string
	Status        int32
	Error         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
