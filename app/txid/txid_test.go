package txid

import (
	"strings"
	"testing"
	"time"
)

func TestNewPaymentIDShape(t *testing.T) {
	g := NewGenerator()

	id, err := g.NewPaymentID()
	if err != nil {
		t.Fatalf("new payment id failed: %v", err)
	}

	if !strings.HasPrefix(id, PaymentPrefix) {
		t.Fatalf("expected %s prefix, got %s", PaymentPrefix, id)
	}
	if len(id) > MaxLength {
		t.Fatalf("id exceeds max length: %d", len(id))
	}
	for _, c := range id {
		if !strings.ContainsRune(charset, c) {
			t.Fatalf("id contains character outside charset: %q in %s", c, id)
		}
	}
}

func TestNewRefundIDPrefix(t *testing.T) {
	g := NewGenerator()

	id, err := g.NewRefundID()
	if err != nil {
		t.Fatalf("new refund id failed: %v", err)
	}
	if !strings.HasPrefix(id, RefundPrefix) {
		t.Fatalf("expected %s prefix, got %s", RefundPrefix, id)
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	g := NewGeneratorAt(func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	})

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id, err := g.NewPaymentID()
		if err != nil {
			t.Fatalf("new payment id failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestTimeComponentIsSortable(t *testing.T) {
	earlier := NewGeneratorAt(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	later := NewGeneratorAt(func() time.Time {
		return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	})

	first, err := earlier.NewPaymentID()
	if err != nil {
		t.Fatal(err)
	}
	second, err := later.NewPaymentID()
	if err != nil {
		t.Fatal(err)
	}

	// Base-36 unix-milli keeps the same digit count for decades, so the
	// time component compares lexicographically.
	if first[:11] >= second[:11] {
		t.Fatalf("expected time-ordered prefixes: %s >= %s", first[:11], second[:11])
	}
}
