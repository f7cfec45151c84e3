package types

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCreatePaymentIntentRequestFallsBackToRequestIDHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/payment-intents", strings.NewReader(`{"booking_id":"bkg-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-from-header")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewCreatePaymentIntentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.RequestID != "req-from-header" {
		t.Fatalf("expected header fallback, got %q", parsed.RequestID)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestCreatePaymentIntentRequestRequiresBookingID(t *testing.T) {
	req := &CreatePaymentIntentRequest{RequestID: "req-1"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestListPaymentIntentsRequestBounds(t *testing.T) {
	req := &ListPaymentIntentsRequest{Limit: 501}
	if err := req.Validate(); err == nil {
		t.Fatal("expected limit validation error")
	}

	req = &ListPaymentIntentsRequest{Offset: -1, Limit: 10}
	if err := req.Validate(); err == nil {
		t.Fatal("expected offset validation error")
	}

	req = &ListPaymentIntentsRequest{}
	if err := req.Validate(); err != nil {
		t.Fatalf("zero limit must default, got %v", err)
	}
	if req.Limit != 100 {
		t.Fatalf("expected default limit 100, got %d", req.Limit)
	}
}

func TestGatewayCallbackRequestKeepsSignedFieldsVerbatim(t *testing.T) {
	raw := `{"transaction_id":"PAY-1","outcome":"SUCCESS","gateway_reference":"gw_1","amount_cents":24500,"occurred_at":"2026-03-14T09:00:00Z","digest":"abc-1"}`

	var req GatewayCallbackRequest
	if err := req.UnmarshalPayload([]byte(raw)); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	// The digest covers the wire values, so parsing must not rewrite them.
	if req.Outcome != "SUCCESS" {
		t.Fatalf("outcome must be kept as received, got %q", req.Outcome)
	}
	if req.RawBody != raw {
		t.Fatal("raw body must be retained verbatim")
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !req.Succeeded() {
		t.Fatal("uppercase success outcome must count as success")
	}
}

func TestGatewayCallbackRequestSucceededIsCaseInsensitive(t *testing.T) {
	cases := map[string]bool{
		"success":  true,
		"Success":  true,
		" SUCCESS": true,
		"failure":  false,
		"FAILURE":  false,
	}
	for raw, want := range cases {
		req := &GatewayCallbackRequest{Outcome: raw}
		if req.Succeeded() != want {
			t.Fatalf("%q: expected Succeeded()=%v", raw, want)
		}
	}
}

func TestGatewayCallbackRequestValidateRejectsBadOutcome(t *testing.T) {
	req := &GatewayCallbackRequest{TransactionID: "PAY-1", Outcome: "maybe", Digest: "abc"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected outcome validation error")
	}
}

func TestGatewayCallbackSignedPayloadExcludesDigest(t *testing.T) {
	req := &GatewayCallbackRequest{
		TransactionID:    "PAY-1",
		Outcome:          OutcomeSuccess,
		GatewayReference: "gw_1",
		AmountCents:      24500,
		OccurredAt:       "2026-03-14T09:00:00Z",
		Digest:           "abc-1",
	}

	payload := req.SignedPayload()
	if _, ok := payload["digest"]; ok {
		t.Fatal("digest must not be part of the signed payload")
	}
	if payload["transaction_id"] != "PAY-1" || payload["amount_cents"] != int64(24500) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
