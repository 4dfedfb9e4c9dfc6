package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AyushGupta011/Velyra/internal/order"
)

const (
	EventsExchange               = "ecommerce.events"
	OrderCreatedRoutingKey       = "order.created.v1"
	OrderStatusChangedRoutingKey = "order.status_changed.v1"

	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"

	orderCreatedSchema       = "velyra.order.created.v1"
	orderStatusChangedSchema = "velyra.order.status_changed.v1"
)

type OrderLine struct {
	ProductID *string         `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (l OrderLine) MarshalJSON() ([]byte, error) {
	type plain OrderLine
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(l), order.Fixed(l.Price)})
}

type OrderCreatedPayload struct {
	OrderID          string          `json:"orderId"`
	OrderNumber      string          `json:"orderNumber"`
	UserID           *string         `json:"userId"`
	PaymentSessionID string          `json:"paymentSessionId"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Shipping         decimal.Decimal `json:"shipping"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	Items            []OrderLine     `json:"items"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// MarshalJSON renders amounts with two fraction digits, as on the HTTP API.
func (p OrderCreatedPayload) MarshalJSON() ([]byte, error) {
	type plain OrderCreatedPayload
	return json.Marshal(struct {
		plain
		Subtotal string `json:"subtotal"`
		Shipping string `json:"shipping"`
		Tax      string `json:"tax"`
		Total    string `json:"total"`
	}{plain(p), order.Fixed(p.Subtotal), order.Fixed(p.Shipping), order.Fixed(p.Tax), order.Fixed(p.Total)})
}

type OrderStatusChangedPayload struct {
	OrderID        string       `json:"orderId"`
	OrderNumber    string       `json:"orderNumber"`
	From           order.Status `json:"from"`
	To             order.Status `json:"to"`
	TrackingNumber *string      `json:"trackingNumber,omitempty"`
	ChangedBy      string       `json:"changedBy"`
	Overridden     bool         `json:"overridden"`
	Version        int64        `json:"version"`
	ChangedAt      time.Time    `json:"changedAt"`
}

type (
	OrderCreatedEvent       = EventEnvelope[OrderCreatedPayload]
	OrderStatusChangedEvent = EventEnvelope[OrderStatusChangedPayload]
)

func orderCreatedPayload(o *order.Order) OrderCreatedPayload {
	p := OrderCreatedPayload{
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		PaymentSessionID: o.PaymentSessionID,
		Subtotal:         o.Subtotal,
		Shipping:         o.Shipping,
		Tax:              o.Tax,
		Total:            o.Total,
		Currency:         o.Currency,
		Items:            make([]OrderLine, 0, len(o.Items)),
		CreatedAt:        o.CreatedAt,
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return p
}

// StatusChange describes an applied lifecycle move.
type StatusChange struct {
	Order      *order.Order
	From       order.Status
	ChangedBy  string
	Overridden bool
}

func orderStatusChangedPayload(c StatusChange) OrderStatusChangedPayload {
	return OrderStatusChangedPayload{
		OrderID:        c.Order.ID,
		OrderNumber:    c.Order.OrderNumber,
		From:           c.From,
		To:             c.Order.Status,
		TrackingNumber: c.Order.TrackingNumber,
		ChangedBy:      c.ChangedBy,
		Overridden:     c.Overridden,
		Version:        c.Order.Version,
		ChangedAt:      c.Order.UpdatedAt,
	}
}
