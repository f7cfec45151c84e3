// Package booking is the client-side boundary to the booking collaborator.
// Bookings are owned elsewhere; this service only reads totals and writes
// payment state through the idempotent SetBookingPaymentState call.
package booking

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
)

var ErrBookingNotFound = errors.New("booking not found")

type Summary struct {
	ID               string `json:"id"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
}

type Directory interface {
	GetBooking(ctx context.Context, bookingID string) (*Summary, error)
	// SetBookingPaymentState must be safe to call repeatedly with the same
	// arguments; the coordinator leans on that for replay repair.
	SetBookingPaymentState(ctx context.Context, bookingID, status, paymentStatus string) error
}

type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

type HTTPDirectory struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPDirectory(cfg HTTPConfig) *HTTPDirectory {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDirectory{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDirectory) GetBooking(ctx context.Context, bookingID string) (*Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint("/internal/bookings/"+bookingID), nil)
	if err != nil {
		return nil, err
	}
	d.setHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrBookingNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("get booking failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	summary := &Summary{}
	if err := json.Unmarshal(body, summary); err != nil {
		return nil, fmt.Errorf("decode booking response: %w", err)
	}
	return summary, nil
}

func (d *HTTPDirectory) SetBookingPaymentState(ctx context.Context, bookingID, status, paymentStatus string) error {
	payload, err := json.Marshal(map[string]string{
		"status":         status,
		"payment_status": paymentStatus,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, d.endpoint("/internal/bookings/"+bookingID+"/payment-state"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	d.setHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrBookingNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("set booking payment state failed: status=%d", resp.StatusCode)
	}
	return nil
}

func (d *HTTPDirectory) endpoint(path string) string {
	return strings.TrimRight(d.cfg.BaseURL, "/") + path
}

func (d *HTTPDirectory) setHeaders(req *http.Request) {
	if d.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", d.cfg.APIKey)
	}
}
