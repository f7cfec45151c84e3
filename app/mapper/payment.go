package mapper

import (
	"time"

	"github.com/lodgeworks/ms-go-booking-payments/app/entity"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

func IntentToView(item *entity.PaymentIntent) *types.PaymentIntentView {
	if item == nil {
		return nil
	}

	return &types.PaymentIntentView{
		TransactionID:    item.TransactionID,
		BookingID:        item.BookingID,
		AmountCents:      item.AmountCents,
		Currency:         item.Currency,
		Status:           types.IntentStatus(item.Status).String(),
		RedirectURL:      derefString(item.RedirectURL),
		GatewayReference: derefString(item.GatewayReference),
		RefundedCents:    item.RefundedCents,
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
		LastTransitionAt: item.LastTransitionAt.UTC().Format(time.RFC3339),
	}
}

func IntentsToView(items []*entity.PaymentIntent) []*types.PaymentIntentView {
	result := make([]*types.PaymentIntentView, 0, len(items))
	for _, item := range items {
		result = append(result, IntentToView(item))
	}
	return result
}

func RefundToView(item *entity.Refund) *types.RefundView {
	if item == nil {
		return nil
	}

	return &types.RefundView{
		TransactionID:         item.TransactionID,
		OriginalTransactionID: item.OriginalTransactionID,
		AmountCents:           item.AmountCents,
		Reason:                item.Reason,
		Status:                types.RefundStatus(item.Status).String(),
		CreatedAt:             item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func RefundsToView(items []*entity.Refund) []*types.RefundView {
	result := make([]*types.RefundView, 0, len(items))
	for _, item := range items {
		result = append(result, RefundToView(item))
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
