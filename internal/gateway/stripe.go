package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/AyushGupta011/Velyra/internal/order"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	// BaseURL overrides the API host; used against test servers.
	BaseURL string
}

type Stripe struct {
	sessions      *session.Client
	webhookSecret string
	timeout       time.Duration
}

func NewStripe(cfg StripeConfig, logger *slog.Logger) *Stripe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:    &http.Client{Timeout: cfg.Timeout},
		LeveledLogger: &stripeLogger{logger: logger.With("component", "stripe")},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
		backendCfg.MaxNetworkRetries = stripe.Int64(0)
	}
	return &Stripe{
		sessions: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		timeout:       cfg.Timeout,
	}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, l := range req.Lines {
		meta := map[string]string{}
		if l.ProductID != "" {
			meta[productMetaID] = l.ProductID
		}
		if l.TaxLine {
			meta[productMetaLineType] = lineTypeTax
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(l.Name),
			Metadata: meta,
		}
		if l.Image != nil && *l.Image != "" {
			product.Images = []*string{stripe.String(*l.Image)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(order.ToMinor(l.UnitPrice)),
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}
	params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type:        stripe.String("fixed_amount"),
			DisplayName: stripe.String("Standard Shipping"),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(order.ToMinor(req.ShippingFee)),
				Currency: stripe.String(req.Currency),
			},
		},
	}}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

// RetrieveSession loads a session with its line items and their products.
func (s *Stripe) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")

	cs, err := s.sessions.Get(sessionID, params)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return fromStripeSession(cs), nil
}

func isNotFound(err error) bool {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.HTTPStatusCode == http.StatusNotFound || serr.Code == stripe.ErrorCodeResourceMissing
}

func fromStripeSession(cs *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            cs.ID,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cd := cs.CustomerDetails; cd != nil {
		out.Customer.Email = cd.Email
		out.Customer.Name = cd.Name
		if a := cd.Address; a != nil {
			out.Customer.Line1 = a.Line1
			out.Customer.City = a.City
			out.Customer.PostalCode = a.PostalCode
			out.Customer.Country = a.Country
		}
	}
	if cs.LineItems != nil {
		for _, li := range cs.LineItems.Data {
			if li == nil {
				continue
			}
			item := LineItem{
				Description: li.Description,
				Quantity:    li.Quantity,
				AmountTotal: li.AmountTotal,
			}
			if li.Price != nil && li.Price.Product != nil {
				p := li.Price.Product
				item.ProductName = p.Name
				item.Images = p.Images
				item.ProductID = p.Metadata[productMetaID]
				item.TaxLine = p.Metadata[productMetaLineType] == lineTypeTax
			}
			out.LineItems = append(out.LineItems, item)
		}
	}
	return out
}

// VerifyWebhook authenticates payload against the signature header and
// extracts the event identity.
func (s *Stripe) VerifyWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil && len(ev.Data.Raw) > 0 {
		var obj struct {
			ID     string `json:"id"`
			Object string `json:"object"`
		}
		if err := json.Unmarshal(ev.Data.Raw, &obj); err == nil && obj.Object == "checkout.session" {
			out.SessionID = obj.ID
		}
	}
	return out, nil
}

// stripeLogger routes the client's leveled logging into slog.
type stripeLogger struct {
	logger *slog.Logger
}

func (l *stripeLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *stripeLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *stripeLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l *stripeLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
