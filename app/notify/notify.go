// Package notify is the fire-and-forget boundary to the notification
// collaborator. The state machine never awaits these calls; a lost
// notification is an annoyance, not a correctness problem.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Notifier interface {
	BookingConfirmed(ctx context.Context, bookingID string) error
	PaymentFailed(ctx context.Context, bookingID string) error
}

type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

type HTTPNotifier struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPNotifier(cfg HTTPConfig) *HTTPNotifier {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *HTTPNotifier) BookingConfirmed(ctx context.Context, bookingID string) error {
	return n.post(ctx, "booking_confirmed", bookingID)
}

func (n *HTTPNotifier) PaymentFailed(ctx context.Context, bookingID string) error {
	return n.post(ctx, "payment_failed", bookingID)
}

func (n *HTTPNotifier) post(ctx context.Context, event, bookingID string) error {
	payload, err := json.Marshal(map[string]string{
		"event_id":    uuid.NewString(),
		"event":       event,
		"booking_id":  bookingID,
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(n.cfg.BaseURL, "/")+"/internal/notifications", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", n.cfg.APIKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status=%d", resp.StatusCode)
	}
	return nil
}
