package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lodgeworks/ms-go-booking-payments/app/signature"
)

func newHTTPBackendForTest(t *testing.T, handler http.HandlerFunc) (*HTTPBackend, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	engine := signature.NewEngine("1")
	backend := NewHTTPBackend(HTTPConfig{
		BaseURL:  server.URL,
		Secret:   "secret",
		KeyIndex: "1",
	}, engine)

	return backend, server
}

func TestHTTPBackendCreatePaymentSendsSignatureHeader(t *testing.T) {
	var gotSignature string
	backend, _ := newHTTPBackendForTest(t, func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Gateway-Signature")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"redirect_url":      "https://gateway.example/checkout/abc",
			"gateway_reference": "gw_1",
		})
	})

	req := &CreateRequest{TransactionID: "PAY123", AmountCents: 1000, Currency: "EUR", Digest: "digest-1"}
	result, err := backend.CreatePayment(context.Background(), req)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	if gotSignature != "digest-1" {
		t.Fatalf("expected digest in signature header, got %q", gotSignature)
	}
	if result.RedirectURL != "https://gateway.example/checkout/abc" || result.GatewayReference != "gw_1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHTTPBackendMapsServerErrorsToUnavailable(t *testing.T) {
	backend, _ := newHTTPBackendForTest(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := backend.CreatePayment(context.Background(), &CreateRequest{TransactionID: "PAY123", Digest: "d"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPBackendMapsClientErrorsToBackendError(t *testing.T) {
	backend, _ := newHTTPBackendForTest(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_code": "currency_not_supported",
			"message":    "currency XCD is not supported",
		})
	})

	_, err := backend.CreatePayment(context.Background(), &CreateRequest{TransactionID: "PAY123", Digest: "d"})

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.Code != "currency_not_supported" {
		t.Fatalf("unexpected code: %s", backendErr.Code)
	}
}

func TestHTTPBackendCheckStatusMapsStates(t *testing.T) {
	cases := map[string]State{
		"pending":    StatePending,
		"processing": StatePending,
		"completed":  StateCompleted,
		"paid":       StateCompleted,
		"failed":     StateFailed,
		"rejected":   StateFailed,
		"weird":      StateUnknown,
	}

	for raw, want := range cases {
		backend, _ := newHTTPBackendForTest(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": raw})
		})

		state, err := backend.CheckStatus(context.Background(), "PAY123")
		if err != nil {
			t.Fatalf("%s: check status failed: %v", raw, err)
		}
		if state != want {
			t.Fatalf("%s: expected %s, got %s", raw, want, state)
		}
	}
}

func TestHTTPBackendUnreachableHostIsUnavailable(t *testing.T) {
	engine := signature.NewEngine("1")
	backend := NewHTTPBackend(HTTPConfig{
		BaseURL: "http://127.0.0.1:1",
		Secret:  "secret",
	}, engine)

	_, err := backend.CreatePayment(context.Background(), &CreateRequest{TransactionID: "PAY123", Digest: "d"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
