package types

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreatePaymentIntentRequest struct {
	RequestID   string `json:"request_id"`
	BookingID   string `json:"booking_id"`
	CustomerRef string `json:"customer_ref"`
	ReturnURL   string `json:"return_url"`
}

func NewCreatePaymentIntentRequestFromContext(ctx echo.Context) (*CreatePaymentIntentRequest, error) {
	var body CreatePaymentIntentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.RequestID = strings.TrimSpace(body.RequestID)
	if body.RequestID == "" {
		body.RequestID = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.BookingID = strings.TrimSpace(body.BookingID)
	body.CustomerRef = strings.TrimSpace(body.CustomerRef)
	body.ReturnURL = strings.TrimSpace(body.ReturnURL)

	return &body, nil
}

func (r *CreatePaymentIntentRequest) Validate() error {
	if strings.TrimSpace(r.RequestID) == "" {
		return errors.New("request_id is required")
	}
	if strings.TrimSpace(r.BookingID) == "" {
		return errors.New("booking_id is required")
	}
	return nil
}

type GetPaymentIntentRequest struct {
	TransactionID string
}

func NewGetPaymentIntentRequestFromContext(ctx echo.Context) (*GetPaymentIntentRequest, error) {
	transactionID := strings.TrimSpace(ctx.Param("transactionId"))
	if transactionID == "" {
		return nil, errors.New("transaction id is required")
	}
	return &GetPaymentIntentRequest{TransactionID: transactionID}, nil
}

func (r *GetPaymentIntentRequest) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

type ListPaymentIntentsRequest struct {
	BookingID string
	HasStatus bool
	Status    IntentStatus
	Limit     int32
	Offset    int32
}

func NewListPaymentIntentsRequestFromContext(ctx echo.Context) (*ListPaymentIntentsRequest, error) {
	req := &ListPaymentIntentsRequest{
		BookingID: strings.TrimSpace(ctx.QueryParam("booking_id")),
		Limit:     100,
		Offset:    0,
	}

	statusRaw := strings.TrimSpace(ctx.QueryParam("status"))
	if statusRaw != "" {
		status, err := ParseIntentStatus(statusRaw)
		if err != nil {
			return nil, err
		}
		req.HasStatus = true
		req.Status = status
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListPaymentIntentsRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = 100
	}
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.HasStatus && !isValidIntentStatus(r.Status) {
		return errors.New("invalid status")
	}
	return nil
}

type InitiateRefundRequest struct {
	RequestID             string `json:"request_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	AmountCents           int64  `json:"amount_cents"`
	Reason                string `json:"reason"`
}

func NewInitiateRefundRequestFromContext(ctx echo.Context) (*InitiateRefundRequest, error) {
	var body InitiateRefundRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	body.RequestID = strings.TrimSpace(body.RequestID)
	if body.RequestID == "" {
		body.RequestID = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.OriginalTransactionID = strings.TrimSpace(body.OriginalTransactionID)
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *InitiateRefundRequest) Validate() error {
	if strings.TrimSpace(r.OriginalTransactionID) == "" {
		return errors.New("original_transaction_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	return nil
}

// GatewayCallbackRequest is the signed notification the gateway posts to the
// webhook endpoint. Digest covers every field except itself.
type GatewayCallbackRequest struct {
	TransactionID    string `json:"transaction_id"`
	Outcome          string `json:"outcome"`
	GatewayReference string `json:"gateway_reference"`
	AmountCents      int64  `json:"amount_cents"`
	OccurredAt       string `json:"occurred_at"`
	Digest           string `json:"digest"`

	RawBody string `json:"-"`
}

func NewGatewayCallbackRequestFromContext(ctx echo.Context) (*GatewayCallbackRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	var body GatewayCallbackRequest
	if err := body.UnmarshalPayload(rawBody); err != nil {
		return nil, err
	}

	if digest := strings.TrimSpace(ctx.Request().Header.Get("X-Gateway-Signature")); digest != "" && body.Digest == "" {
		body.Digest = digest
	}

	return &body, nil
}

func (r *GatewayCallbackRequest) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return errors.New("transaction_id is required")
	}
	outcome := strings.ToLower(strings.TrimSpace(r.Outcome))
	if outcome != OutcomeSuccess && outcome != OutcomeFailure {
		return errors.New("outcome must be success or failure")
	}
	if strings.TrimSpace(r.Digest) == "" {
		return errors.New("digest is required")
	}
	return nil
}

// Succeeded reports the gateway's verdict, tolerant of outcome casing.
func (r *GatewayCallbackRequest) Succeeded() bool {
	return strings.EqualFold(strings.TrimSpace(r.Outcome), OutcomeSuccess)
}

// UnmarshalPayload parses a raw webhook body and retains it for the audit
// trail. Signed fields are kept exactly as received: the digest was computed
// over the wire values, so any normalization before verification would reject
// an authentic callback.
func (r *GatewayCallbackRequest) UnmarshalPayload(rawBody []byte) error {
	if len(rawBody) == 0 {
		return errors.New("payload is required")
	}
	if err := json.Unmarshal(rawBody, r); err != nil {
		return err
	}

	r.Digest = strings.TrimSpace(r.Digest)
	r.RawBody = string(rawBody)

	return nil
}

// SignedPayload returns the fields the digest was computed over, keyed exactly
// as they appear on the wire.
func (r *GatewayCallbackRequest) SignedPayload() map[string]any {
	return map[string]any{
		"transaction_id":    r.TransactionID,
		"outcome":           r.Outcome,
		"gateway_reference": r.GatewayReference,
		"amount_cents":      r.AmountCents,
		"occurred_at":       r.OccurredAt,
	}
}
