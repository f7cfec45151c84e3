package repository

import (
	"context"

	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
)

type GatewayCallbackRepository struct {
	db DBTX
}

func NewGatewayCallbackRepository(db DBTX) *GatewayCallbackRepository {
	return &GatewayCallbackRepository{db: db}
}

func (r *GatewayCallbackRepository) Create(ctx context.Context, callback *entity.GatewayCallback) error {
	query := `
		INSERT INTO gateway_callbacks (
			payment_intent_id, transaction_id, digest, payload_json, status, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(callback.PaymentIntentID),
		callback.TransactionID,
		callback.Digest,
		callback.PayloadJSON,
		callback.Status,
		nullableStringValue(callback.Error),
		callback.CreatedAt,
		callback.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	callback.ID = uint64(id)

	return nil
}
