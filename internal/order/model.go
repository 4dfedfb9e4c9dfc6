package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ShippingAddress is snapshotted onto the order when it is created.
type ShippingAddress struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=200"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// UserRef is the masked view of an order's owner.
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Item is a point-in-time copy of a purchased line. ProductID is a weak
// reference; name, price and image are never re-read from the catalog.
type Item struct {
	ID        string          `json:"id"`
	ProductID *string         `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     *string         `json:"image"`
}

// MarshalJSON renders price with two fraction digits.
func (it Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(it), Fixed(it.Price)})
}

func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"orderNumber"`
	UserID           *string         `json:"userId"`
	User             *UserRef        `json:"user,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Shipping         decimal.Decimal `json:"shipping"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	Status           Status          `json:"status"`
	PaymentID        string          `json:"paymentId"`
	PaymentSessionID string          `json:"paymentSessionId"`
	TrackingNumber   *string         `json:"trackingNumber"`
	ShippingAddress  ShippingAddress `json:"shippingAddress"`
	Items            []Item          `json:"items"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// MarshalJSON renders every amount with two fraction digits ("581.00").
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		Subtotal string `json:"subtotal"`
		Shipping string `json:"shipping"`
		Tax      string `json:"tax"`
		Total    string `json:"total"`
	}{plain(o), Fixed(o.Subtotal), Fixed(o.Shipping), Fixed(o.Tax), Fixed(o.Total)})
}

// ItemsSubtotal sums price x quantity over the order's items.
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Filter narrows the admin order listing.
type Filter struct {
	Status Status
	Search string
	Page   int
	Limit  int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Normalize applies defaults and bounds to paging.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Page struct {
	Orders []Order
	Total  int64
	Page   int
	Limit  int
}

// TotalPages is ceil(total/limit).
func (p Page) TotalPages() int64 {
	if p.Limit <= 0 {
		return 0
	}
	limit := int64(p.Limit)
	return (p.Total + limit - 1) / limit
}

// StatusUpdate is a single-row status write guarded by the expected version.
type StatusUpdate struct {
	OrderID         string
	Status          Status
	TrackingNumber  *string
	ExpectedVersion int64
}

type RevenueWindow struct {
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

func (w RevenueWindow) MarshalJSON() ([]byte, error) {
	type plain RevenueWindow
	return json.Marshal(struct {
		plain
		Revenue string `json:"revenue"`
	}{plain(w), Fixed(w.Revenue)})
}

type Stats struct {
	ByStatus  map[Status]int64 `json:"byStatus"`
	Today     RevenueWindow    `json:"today"`
	LastWeek  RevenueWindow    `json:"lastWeek"`
	ThisMonth RevenueWindow    `json:"thisMonth"`
	AllTime   RevenueWindow    `json:"allTime"`
}
