package order

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewOrderNumber returns a short, day-sortable order number such as
// ORD-20250114-K3J9QZ.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), randomSuffix(6))
}

// NewTrackingNumber returns TRK followed by the unix millis and a random suffix.
func NewTrackingNumber(now time.Time) string {
	return fmt.Sprintf("TRK%d%s", now.UnixMilli(), randomSuffix(6))
}

func randomSuffix(n int) string {
	id := uuid.New()
	s := strings.ToUpper(new(big.Int).SetBytes(id[:]).Text(36))
	if len(s) < n {
		s = strings.Repeat("0", n-len(s)) + s
	}
	return s[len(s)-n:]
}

// ToMinor converts an amount to integer minor units, rounding half away from zero.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinor converts integer minor units to a two-decimal amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Fixed formats an amount for the wire, always with two fraction digits.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
