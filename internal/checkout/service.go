// Package checkout prices a cart against the catalog and opens a hosted
// payment session for it.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/catalog"
	"github.com/AyushGupta011/Velyra/internal/gateway"
	"github.com/AyushGupta011/Velyra/internal/order"
)

type Catalog interface {
	GetProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (gateway.CheckoutSession, error)
}

type Line struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1,max=100"`
}

type Request struct {
	Items           []Line                 `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress *order.ShippingAddress `json:"shippingAddress" validate:"omitempty"`
}

type Result struct {
	SessionID string          `json:"sessionId"`
	URL       string          `json:"url"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Subtotal string `json:"subtotal"`
		Shipping string `json:"shipping"`
		Tax      string `json:"tax"`
		Total    string `json:"total"`
	}{plain(r), order.Fixed(r.Subtotal), order.Fixed(r.Shipping), order.Fixed(r.Tax), order.Fixed(r.Total)})
}

type Options struct {
	AppURL      string
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
	Currency    string
}

type Service struct {
	catalog  Catalog
	gateway  Gateway
	opts     Options
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(cat Catalog, gw Gateway, opts Options, logger *slog.Logger) *Service {
	opts.AppURL = strings.TrimRight(opts.AppURL, "/")
	return &Service{
		catalog:  cat,
		gateway:  gw,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "checkout"),
	}
}

// CreateSession prices req from the catalog and opens a payment session. A nil
// identity is a guest checkout.
func (s *Service) CreateSession(ctx context.Context, identity *auth.Identity, req Request) (Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return Result{}, apperr.Validation("invalid checkout request: %v", err)
	}

	quantities := make(map[string]int, len(req.Items))
	var ids []string
	for _, it := range req.Items {
		id := strings.TrimSpace(it.ProductID)
		if _, seen := quantities[id]; !seen {
			ids = append(ids, id)
		}
		quantities[id] += it.Quantity
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return Result{}, apperr.Persistence(err, "load products")
	}

	subtotal := decimal.Zero
	lines := make([]gateway.CheckoutLine, 0, len(ids)+1)
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return Result{}, apperr.NotFound("product %s not found", id)
		}
		qty := quantities[id]
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
		lines = append(lines, gateway.CheckoutLine{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			UnitPrice: p.Price,
			Quantity:  int64(qty),
		})
	}

	shipping := s.opts.ShippingFee.Round(2)
	tax := subtotal.Mul(s.opts.TaxRate).Round(2)
	if tax.IsPositive() {
		lines = append(lines, gateway.CheckoutLine{
			Name:      fmt.Sprintf("GST (%s%%)", s.opts.TaxRate.Shift(2).String()),
			UnitPrice: tax,
			Quantity:  1,
			TaxLine:   true,
		})
	}

	meta := gateway.Metadata{
		Subtotal:        &subtotal,
		Shipping:        &shipping,
		Tax:             &tax,
		ShippingAddress: req.ShippingAddress,
	}
	email := ""
	if identity != nil {
		meta.UserID = identity.UserID
		email = identity.Email
	}
	if email == "" && req.ShippingAddress != nil {
		email = req.ShippingAddress.Email
	}
	rawMeta, err := gateway.EncodeMetadata(meta)
	if err != nil {
		return Result{}, apperr.Validation("encode metadata: %v", err)
	}

	cs, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		Lines:         lines,
		ShippingFee:   shipping,
		Currency:      s.opts.Currency,
		CustomerEmail: email,
		SuccessURL:    s.opts.AppURL + "/order-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.opts.AppURL + "/checkout",
		Metadata:      rawMeta,
	})
	if err != nil {
		return Result{}, apperr.Upstream(err, "create checkout session")
	}

	total := subtotal.Add(shipping).Add(tax)
	s.logger.InfoContext(ctx, "checkout session created",
		"session_id", cs.ID, "lines", len(ids), "total", total.StringFixed(2), "guest", identity == nil)

	return Result{
		SessionID: cs.ID,
		URL:       cs.URL,
		Subtotal:  subtotal,
		Shipping:  shipping,
		Tax:       tax,
		Total:     total,
	}, nil
}
