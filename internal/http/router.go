// Package httpapi exposes the order service over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/checkout"
	"github.com/AyushGupta011/Velyra/internal/gateway"
	"github.com/AyushGupta011/Velyra/internal/lifecycle"
	"github.com/AyushGupta011/Velyra/internal/order"
	"github.com/AyushGupta011/Velyra/internal/reconcile"
)

const (
	serviceName  = "velyra-orders"
	maxBodyBytes = 1 << 20
)

type Reconciler interface {
	Reconcile(ctx context.Context, sessionID string) (reconcile.Result, error)
}

type StatusSetter interface {
	SetStatus(ctx context.Context, actor auth.Identity, cmd lifecycle.Command) (*order.Order, error)
}

type OrderQueries interface {
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
	List(ctx context.Context, f order.Filter) (order.Page, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
	Stats(ctx context.Context, now time.Time) (order.Stats, error)
}

type CheckoutCreator interface {
	CreateSession(ctx context.Context, identity *auth.Identity, req checkout.Request) (checkout.Result, error)
}

type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (gateway.Event, error)
}

type EventLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type Deps struct {
	Reconciler Reconciler
	Lifecycle  StatusSetter
	Orders     OrderQueries
	Checkout   CheckoutCreator
	Webhooks   WebhookVerifier
	Ledger     EventLedger
	Tokens     TokenVerifier
	Logger     *slog.Logger

	DBTimeout         time.Duration
	ReconcileTimeout  time.Duration
	CORSAllowOrigins  []string
	ConfirmRatePerMin int
}

type Handler struct {
	reconciler       Reconciler
	lifecycle        StatusSetter
	orders           OrderQueries
	checkout         CheckoutCreator
	webhooks         WebhookVerifier
	ledger           EventLedger
	logger           *slog.Logger
	dbTimeout        time.Duration
	reconcileTimeout time.Duration
	now              func() time.Time
}

func NewHandler(d Deps) *Handler {
	if d.DBTimeout <= 0 {
		d.DBTimeout = 5 * time.Second
	}
	if d.ReconcileTimeout <= 0 {
		d.ReconcileTimeout = 20 * time.Second
	}
	return &Handler{
		reconciler:       d.Reconciler,
		lifecycle:        d.Lifecycle,
		orders:           d.Orders,
		checkout:         d.Checkout,
		webhooks:         d.Webhooks,
		ledger:           d.Ledger,
		logger:           d.Logger,
		dbTimeout:        d.DBTimeout,
		reconcileTimeout: d.ReconcileTimeout,
		now:              time.Now,
	}
}

func NewRouter(d Deps) http.Handler {
	h := NewHandler(d)
	limiter := newIPRateLimiter(d.ConfirmRatePerMin)
	optionalAuth := authenticate(d.Tokens, d.Logger, false)
	requiredAuth := authenticate(d.Tokens, d.Logger, true)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlation)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/stripe", h.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(limiter.middleware)
			r.Use(optionalAuth)
			r.Post("/checkout/sessions", h.CreateCheckoutSession)
			r.Post("/orders/confirm", h.ConfirmOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(requiredAuth)
			r.Get("/orders", h.ListMyOrders)
			r.Get("/orders/{orderId}", h.GetMyOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requiredAuth)
			r.Use(requireAdmin(d.Logger))
			r.Get("/orders", h.AdminListOrders)
			r.Get("/orders/{orderId}", h.AdminGetOrder)
			r.Patch("/orders", h.AdminUpdateStatus)
			r.Get("/dashboard", h.AdminDashboard)
		})
	})

	origins := d.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Stripe-Signature", correlationHeader},
		ExposedHeaders:   []string{correlationHeader},
		AllowCredentials: false,
	}).Handler(r)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}
