package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
)

var (
	ErrRefundNotFound      = errors.New("refund not found")
	ErrRefundAlreadyExists = errors.New("refund already exists")
)

type RefundRepository struct {
	db DBTX
}

func NewRefundRepository(db DBTX) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) Create(ctx context.Context, refund *entity.Refund) error {
	query := `
		INSERT INTO refunds (
			transaction_id, original_transaction_id, amount_cents, reason, status,
			gateway_request_digest, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		refund.TransactionID,
		refund.OriginalTransactionID,
		refund.AmountCents,
		refund.Reason,
		refund.Status,
		refund.GatewayRequestDigest,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrRefundAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	refund.ID = uint64(id)
	return nil
}

func (r *RefundRepository) UpdateStatus(ctx context.Context, transactionID string, status int32, now time.Time) error {
	query := `
		UPDATE refunds
		SET status = ?, updated_at = ?
		WHERE transaction_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, status, now, transactionID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRefundNotFound
	}
	return nil
}

func (r *RefundRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Refund, error) {
	query := `
		SELECT id, transaction_id, original_transaction_id, amount_cents, reason, status,
			gateway_request_digest, created_at, updated_at
		FROM refunds
		WHERE transaction_id = ?
		LIMIT 1
	`

	refund := &entity.Refund{}
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&refund.ID,
		&refund.TransactionID,
		&refund.OriginalTransactionID,
		&refund.AmountCents,
		&refund.Reason,
		&refund.Status,
		&refund.GatewayRequestDigest,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return refund, nil
}

func (r *RefundRepository) ListByOriginalTransactionID(ctx context.Context, originalTransactionID string) ([]*entity.Refund, error) {
	query := `
		SELECT id, transaction_id, original_transaction_id, amount_cents, reason, status,
			gateway_request_digest, created_at, updated_at
		FROM refunds
		WHERE original_transaction_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, originalTransactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := make([]*entity.Refund, 0)
	for rows.Next() {
		item := &entity.Refund{}
		if err := rows.Scan(
			&item.ID,
			&item.TransactionID,
			&item.OriginalTransactionID,
			&item.AmountCents,
			&item.Reason,
			&item.Status,
			&item.GatewayRequestDigest,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		refunds = append(refunds, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return refunds, nil
}
