package entity

import "time"

type Refund struct {
	ID uint64

	TransactionID         string
	OriginalTransactionID string

	AmountCents int64
	Reason      string

	Status int32

	GatewayRequestDigest string

	CreatedAt time.Time
	UpdatedAt time.Time
}
