// Package txid issues gateway-safe transaction identifiers: a fixed prefix
// distinguishing payments from refunds, a monotonic time component, and a
// random suffix carrying enough entropy that collisions are negligible. The
// payment ledger's unique index is the backstop, not the guarantee.
package txid

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	PaymentPrefix = "PAY"
	RefundPrefix  = "RFD"

	// Uppercase alphanumeric only, per the gateway's charset constraint.
	charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// 17 chars of a 36-symbol alphabet is ~88 bits of entropy.
	suffixLength = 17

	// MaxLength is the gateway's identifier length cap.
	MaxLength = 32
)

type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorAt fixes the time source. Test hook.
func NewGeneratorAt(now func() time.Time) *Generator {
	return &Generator{now: now}
}

func (g *Generator) NewPaymentID() (string, error) {
	return g.generate(PaymentPrefix)
}

func (g *Generator) NewRefundID() (string, error) {
	return g.generate(RefundPrefix)
}

func (g *Generator) generate(prefix string) (string, error) {
	timePart := strings.ToUpper(strconv.FormatInt(g.now().UTC().UnixMilli(), 36))

	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}

	id := prefix + timePart + string(buf)
	if len(id) > MaxLength {
		id = id[:MaxLength]
	}
	return id, nil
}
