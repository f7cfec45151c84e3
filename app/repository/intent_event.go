package repository

import (
	"context"

	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
)

type IntentEventRepository struct {
	db DBTX
}

func NewIntentEventRepository(db DBTX) *IntentEventRepository {
	return &IntentEventRepository{db: db}
}

func (r *IntentEventRepository) Create(ctx context.Context, event *entity.IntentEvent) error {
	query := `
		INSERT INTO intent_events (
			payment_intent_id, event_type, old_status, new_status, gateway_reference, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.PaymentIntentID,
		event.EventType,
		nullableInt32Value(event.OldStatus),
		event.NewStatus,
		nullableStringValue(event.GatewayReference),
		nullableStringValue(event.PayloadJSON),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}
