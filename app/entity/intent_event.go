package entity

import "time"

type IntentEvent struct {
	ID uint64

	PaymentIntentID uint64

	EventType string

	OldStatus *int32
	NewStatus int32

	GatewayReference *string
	PayloadJSON      *string

	CreatedAt time.Time
}
