// Package gateway adapts the hosted payment provider: it opens checkout
// sessions, reads completed sessions back and authenticates webhook calls.
package gateway

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound  = errors.New("payment session not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidMetadata  = errors.New("invalid session metadata")
)

// Webhook types that can create orders. A completed session paid with a
// delayed method is only settled once async_payment_succeeded arrives.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// Session is a completed checkout session as reported by the provider.
// Amounts are in minor units of Currency.
type Session struct {
	ID              string
	Status          string
	PaymentStatus   string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Customer        Customer
	Metadata        map[string]string
	LineItems       []LineItem
}

// Settled reports whether the provider has captured the payment, or none was
// owed.
func (s *Session) Settled() bool {
	return s.PaymentStatus == PaymentStatusPaid || s.PaymentStatus == PaymentStatusNoPaymentRequired
}

// OrderEvent reports whether a webhook of type t may settle an order.
func OrderEvent(t string) bool {
	return t == EventCheckoutCompleted || t == EventAsyncPaymentSucceeded
}

type Customer struct {
	Email      string
	Name       string
	Line1      string
	City       string
	PostalCode string
	Country    string
}

// LineItem is a captured line. TaxLine marks the tax line added at checkout,
// which is not a purchased product.
type LineItem struct {
	Description string
	ProductName string
	ProductID   string
	Images      []string
	Quantity    int64
	AmountTotal int64
	TaxLine     bool
}

const (
	productMetaID       = "productId"
	productMetaLineType = "lineType"
	lineTypeTax         = "tax"
)

// CheckoutLine is a single priced line submitted to the provider.
type CheckoutLine struct {
	ProductID string
	Name      string
	Image     *string
	UnitPrice decimal.Decimal
	Quantity  int64
	TaxLine   bool
}

type CheckoutRequest struct {
	Lines         []CheckoutLine
	ShippingFee   decimal.Decimal
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// Event is an authenticated webhook notification. SessionID is set for
// checkout session events.
type Event struct {
	ID        string
	Type      string
	SessionID string
}
