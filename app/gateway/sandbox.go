package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lodgeworks/ms-go-booking-payments/app/signature"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

type SandboxConfig struct {
	Secret      string
	WebhookPath string
	CheckoutURL string
}

// SandboxBackend is the deterministic gateway used in tests and local
// environments. It verifies request digests and signs its callbacks with the
// same engine as production, so the full sign/verify path is exercised and the
// state machine cannot tell the two backends apart.
type SandboxBackend struct {
	cfg    SandboxConfig
	engine *signature.Engine

	mu           sync.Mutex
	transactions map[string]State
	refunds      map[string]int64
}

func NewSandboxBackend(cfg SandboxConfig, engine *signature.Engine) *SandboxBackend {
	if cfg.CheckoutURL == "" {
		cfg.CheckoutURL = "https://sandbox.gateway.test/checkout"
	}
	return &SandboxBackend{
		cfg:          cfg,
		engine:       engine,
		transactions: make(map[string]State),
		refunds:      make(map[string]int64),
	}
}

func (b *SandboxBackend) Name() string {
	return "sandbox"
}

func (b *SandboxBackend) CreatePayment(_ context.Context, req *CreateRequest) (*CreateResult, error) {
	if !b.engine.Verify(req.SignedPayload(), CreatePath, b.cfg.Secret, req.Digest) {
		return nil, &BackendError{Code: "invalid_signature", Message: "request digest did not verify"}
	}

	b.mu.Lock()
	b.transactions[req.TransactionID] = StatePending
	b.mu.Unlock()

	return &CreateResult{
		RedirectURL:      strings.TrimRight(b.cfg.CheckoutURL, "/") + "/" + req.TransactionID,
		GatewayReference: "sbx_" + uuid.NewString(),
	}, nil
}

func (b *SandboxBackend) CheckStatus(_ context.Context, transactionID string) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.transactions[transactionID]
	if !ok {
		return StateUnknown, &BackendError{Code: "unknown_transaction", Message: "no such transaction"}
	}
	return state, nil
}

func (b *SandboxBackend) CreateRefund(_ context.Context, req *RefundRequest) error {
	if !b.engine.Verify(req.SignedPayload(), RefundPath, b.cfg.Secret, req.Digest) {
		return &BackendError{Code: "invalid_signature", Message: "request digest did not verify"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.transactions[req.OriginalTransactionID]; !ok {
		return &BackendError{Code: "unknown_transaction", Message: "no such transaction"}
	}
	b.refunds[req.TransactionID] = req.AmountCents
	return nil
}

// Resolve moves a sandbox transaction to a terminal state, simulating the
// shopper finishing or abandoning checkout.
func (b *SandboxBackend) Resolve(transactionID string, state State) {
	b.mu.Lock()
	b.transactions[transactionID] = state
	b.mu.Unlock()
}

// SignedCallback fabricates the webhook notification the sandbox gateway
// would send for a resolved transaction, digest included.
func (b *SandboxBackend) SignedCallback(transactionID, outcome, gatewayReference string, amountCents int64, occurredAt time.Time) (*types.GatewayCallbackRequest, error) {
	callback := &types.GatewayCallbackRequest{
		TransactionID:    transactionID,
		Outcome:          outcome,
		GatewayReference: gatewayReference,
		AmountCents:      amountCents,
		OccurredAt:       occurredAt.UTC().Format(time.RFC3339),
	}

	digest, err := b.engine.Sign(callback.SignedPayload(), b.cfg.WebhookPath, b.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign sandbox callback: %w", err)
	}
	callback.Digest = digest

	return callback, nil
}
