package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lodgeworks/ms-go-booking-payments/app/signature"
)

type HTTPConfig struct {
	BaseURL     string
	Secret      string
	KeyIndex    string
	HTTPTimeout time.Duration
}

// HTTPBackend talks to the real gateway over HTTPS. Every request body is
// signed with the shared engine; the digest travels in X-Gateway-Signature.
type HTTPBackend struct {
	cfg    HTTPConfig
	engine *signature.Engine
	client *http.Client
}

func NewHTTPBackend(cfg HTTPConfig, engine *signature.Engine) *HTTPBackend {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBackend{
		cfg:    cfg,
		engine: engine,
		client: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) Name() string {
	return "http"
}

func (b *HTTPBackend) CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	if strings.TrimSpace(b.cfg.Secret) == "" {
		return nil, errors.New("gateway secret is not configured")
	}

	body, err := b.postSigned(ctx, CreatePath, req.SignedPayload(), req.Digest)
	if err != nil {
		return nil, err
	}

	var payload struct {
		RedirectURL      string `json:"redirect_url"`
		GatewayReference string `json:"gateway_reference"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}
	if strings.TrimSpace(payload.RedirectURL) == "" {
		return nil, errors.New("gateway create response missing redirect_url")
	}

	return &CreateResult{
		RedirectURL:      strings.TrimSpace(payload.RedirectURL),
		GatewayReference: strings.TrimSpace(payload.GatewayReference),
	}, nil
}

func (b *HTTPBackend) CheckStatus(ctx context.Context, transactionID string) (State, error) {
	payload := map[string]any{"transaction_id": transactionID}
	digest, err := b.engine.Sign(payload, StatusPath, b.cfg.Secret)
	if err != nil {
		return StateUnknown, err
	}

	body, err := b.postSigned(ctx, StatusPath, payload, digest)
	if err != nil {
		return StateUnknown, err
	}

	var response struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return StateUnknown, fmt.Errorf("decode status response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(response.Status)) {
	case "pending", "processing":
		return StatePending, nil
	case "completed", "paid":
		return StateCompleted, nil
	case "failed", "rejected":
		return StateFailed, nil
	default:
		return StateUnknown, nil
	}
}

func (b *HTTPBackend) CreateRefund(ctx context.Context, req *RefundRequest) error {
	if strings.TrimSpace(b.cfg.Secret) == "" {
		return errors.New("gateway secret is not configured")
	}

	_, err := b.postSigned(ctx, RefundPath, req.SignedPayload(), req.Digest)
	return err
}

func (b *HTTPBackend) postSigned(ctx context.Context, path string, payload any, digest string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(b.cfg.BaseURL, "/")+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway-Signature", digest)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: path=%s status=%d", ErrUnavailable, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, parseBackendError(body, resp.StatusCode)
	}

	return body, nil
}

func parseBackendError(body []byte, statusCode int) error {
	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && strings.TrimSpace(payload.ErrorCode) != "" {
		return &BackendError{Code: payload.ErrorCode, Message: payload.Message}
	}
	return &BackendError{Code: fmt.Sprintf("http_%d", statusCode), Message: string(body)}
}
