package service

import (
	"context"
	"testing"
	"time"

	"github.com/lodgeworks/ms-go-booking-payments/app/gateway"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

func TestRunReconcileBatchResolvesStalePending(t *testing.T) {
	env := newTestEnv()
	env.addBooking("bkg-1", 24500, types.BookingStatusAwaitingPayment)
	env.addBooking("bkg-2", 9900, types.BookingStatusAwaitingPayment)
	env.seedIntent("PAY-DONE", "bkg-1", 24500, types.IntentStatusPending)
	env.seedIntent("PAY-LOST", "bkg-2", 9900, types.IntentStatusPending)
	env.gw.statuses["PAY-DONE"] = gateway.StateCompleted
	env.gw.statuses["PAY-LOST"] = gateway.StateFailed

	resolved, err := env.svc.RunReconcileBatch(context.Background())
	if err != nil {
		t.Fatalf("run reconcile batch failed: %v", err)
	}
	if resolved != 2 {
		t.Fatalf("expected 2 resolved intents, got %d", resolved)
	}

	done, _ := env.intents.FindByTransactionID(context.Background(), "PAY-DONE")
	if types.IntentStatus(done.Status) != types.IntentStatusCompleted {
		t.Fatalf("expected completed, got %s", types.IntentStatus(done.Status))
	}
	lost, _ := env.intents.FindByTransactionID(context.Background(), "PAY-LOST")
	if types.IntentStatus(lost.Status) != types.IntentStatusFailed {
		t.Fatalf("expected failed, got %s", types.IntentStatus(lost.Status))
	}

	// Batch order follows map iteration in the fake, so collect both
	// notifications before asserting.
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case event := <-env.notifier.events:
			got[event] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for notifications")
		}
	}
	if !got["booking_confirmed:bkg-1"] || !got["payment_failed:bkg-2"] {
		t.Fatalf("unexpected notifications: %v", got)
	}
}

func TestRunReconcileBatchSkipsIntentsStillPendingAtGateway(t *testing.T) {
	env := newTestEnv()
	env.addBooking("bkg-1", 24500, types.BookingStatusAwaitingPayment)
	env.seedIntent("PAY-1", "bkg-1", 24500, types.IntentStatusPending)
	env.gw.statuses["PAY-1"] = gateway.StatePending

	resolved, err := env.svc.RunReconcileBatch(context.Background())
	if err != nil {
		t.Fatalf("run reconcile batch failed: %v", err)
	}
	if resolved != 0 {
		t.Fatalf("expected 0 resolved intents, got %d", resolved)
	}

	intent, _ := env.intents.FindByTransactionID(context.Background(), "PAY-1")
	if types.IntentStatus(intent.Status) != types.IntentStatusPending {
		t.Fatalf("intent must stay pending, got %s", types.IntentStatus(intent.Status))
	}
}

func TestRunReconcileBatchFailsOrphanedCreatedIntent(t *testing.T) {
	env := newTestEnv()
	env.addBooking("bkg-1", 24500, types.BookingStatusAwaitingPayment)
	env.seedIntent("PAY-ORPHAN", "bkg-1", 24500, types.IntentStatusCreated)

	// No gateway record: the process died before the create call went out.
	resolved, err := env.svc.RunReconcileBatch(context.Background())
	if err != nil {
		t.Fatalf("run reconcile batch failed: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("expected 1 resolved intent, got %d", resolved)
	}

	orphan, _ := env.intents.FindByTransactionID(context.Background(), "PAY-ORPHAN")
	if types.IntentStatus(orphan.Status) != types.IntentStatusFailed {
		t.Fatalf("expected failed, got %s", types.IntentStatus(orphan.Status))
	}

	state, ok := env.bookings.lastState()
	if !ok || state.status != types.BookingStatusAwaitingPayment || state.paymentStatus != types.BookingPaymentFailed {
		t.Fatalf("unexpected booking state: %+v", state)
	}

	// The booking is free again: a retry produces a fresh intent.
	intent, err := env.svc.CreatePaymentIntent(context.Background(), &types.CreatePaymentIntentRequest{
		RequestID: "req-retry",
		BookingID: "bkg-1",
	})
	if err != nil {
		t.Fatalf("create after reconcile failed: %v", err)
	}
	if intent.TransactionID == "PAY-ORPHAN" {
		t.Fatal("expected a new intent, got the orphan back")
	}
}

func TestRunReconcileBatchLeavesCreatedIntentKnownToGateway(t *testing.T) {
	env := newTestEnv()
	env.addBooking("bkg-1", 24500, types.BookingStatusAwaitingPayment)
	env.seedIntent("PAY-SLOW", "bkg-1", 24500, types.IntentStatusCreated)
	env.gw.statuses["PAY-SLOW"] = gateway.StatePending

	resolved, err := env.svc.RunReconcileBatch(context.Background())
	if err != nil {
		t.Fatalf("run reconcile batch failed: %v", err)
	}
	if resolved != 0 {
		t.Fatalf("expected 0 resolved intents, got %d", resolved)
	}

	intent, _ := env.intents.FindByTransactionID(context.Background(), "PAY-SLOW")
	if types.IntentStatus(intent.Status) != types.IntentStatusCreated {
		t.Fatalf("intent must stay created, got %s", types.IntentStatus(intent.Status))
	}
}

func TestRunReconcileBatchLeavesPendingIntentUnknownToGateway(t *testing.T) {
	env := newTestEnv()
	env.addBooking("bkg-1", 24500, types.BookingStatusAwaitingPayment)
	env.seedIntent("PAY-GONE", "bkg-1", 24500, types.IntentStatusPending)

	resolved, err := env.svc.RunReconcileBatch(context.Background())
	if err != nil {
		t.Fatalf("run reconcile batch failed: %v", err)
	}
	if resolved != 0 {
		t.Fatalf("expected 0 resolved intents, got %d", resolved)
	}

	intent, _ := env.intents.FindByTransactionID(context.Background(), "PAY-GONE")
	if types.IntentStatus(intent.Status) != types.IntentStatusPending {
		t.Fatalf("accepted intent must not be failed on a missing record, got %s", types.IntentStatus(intent.Status))
	}
}

func TestRunReconcileBatchKeepsGoingAfterGatewayError(t *testing.T) {
	env := newTestEnv()
	env.addBooking("bkg-1", 24500, types.BookingStatusAwaitingPayment)
	env.seedIntent("PAY-1", "bkg-1", 24500, types.IntentStatusPending)
	env.gw.statusErr = gateway.ErrUnavailable

	resolved, err := env.svc.RunReconcileBatch(context.Background())
	if err == nil {
		t.Fatal("expected error from unavailable gateway")
	}
	if resolved != 0 {
		t.Fatalf("expected 0 resolved intents, got %d", resolved)
	}

	intent, _ := env.intents.FindByTransactionID(context.Background(), "PAY-1")
	if types.IntentStatus(intent.Status) != types.IntentStatusPending {
		t.Fatalf("intent must stay pending, got %s", types.IntentStatus(intent.Status))
	}
}
