package gateway

import (
	"context"
	"errors"
	"time"
)

type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Client wraps a Backend with the retry discipline the state machine relies
// on: status queries are idempotent and retried with capped exponential
// backoff; create and refund calls are never retried here because a blind
// retry can double-charge.
type Client struct {
	backend Backend
	retry   RetryConfig
}

func NewClient(backend Backend, retry RetryConfig) *Client {
	if retry.Attempts <= 0 {
		retry.Attempts = 3
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 500 * time.Millisecond
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = 5 * time.Second
	}
	return &Client{backend: backend, retry: retry}
}

func (c *Client) Name() string {
	return c.backend.Name()
}

func (c *Client) CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	return c.backend.CreatePayment(ctx, req)
}

func (c *Client) CreateRefund(ctx context.Context, req *RefundRequest) error {
	return c.backend.CreateRefund(ctx, req)
}

func (c *Client) CheckStatus(ctx context.Context, transactionID string) (State, error) {
	var lastErr error
	delay := c.retry.BaseDelay

	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return StateUnknown, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}

		state, err := c.backend.CheckStatus(ctx, transactionID)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return StateUnknown, err
		}
		lastErr = err
	}

	return StateUnknown, lastErr
}
