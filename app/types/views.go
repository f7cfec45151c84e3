package types

type PaymentIntentView struct {
	TransactionID    string `json:"transaction_id"`
	BookingID        string `json:"booking_id"`
	AmountCents      int64  `json:"amount_cents"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	RedirectURL      string `json:"redirect_url,omitempty"`
	GatewayReference string `json:"gateway_reference,omitempty"`
	RefundedCents    int64  `json:"refunded_cents"`
	CreatedAt        string `json:"created_at"`
	LastTransitionAt string `json:"last_transition_at"`
}

type RefundView struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	AmountCents           int64  `json:"amount_cents"`
	Reason                string `json:"reason,omitempty"`
	Status                string `json:"status"`
	CreatedAt             string `json:"created_at"`
}

type PaymentIntentEnvelopeResponse struct {
	PaymentIntent *PaymentIntentView `json:"payment_intent"`
	Refunds       []*RefundView      `json:"refunds,omitempty"`
}

type ListPaymentIntentsResponse struct {
	PaymentIntents []*PaymentIntentView `json:"payment_intents"`
}

type RefundEnvelopeResponse struct {
	Refund *RefundView `json:"refund"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
