package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/checkout"
	"github.com/AyushGupta011/Velyra/internal/gateway"
	"github.com/AyushGupta011/Velyra/internal/lifecycle"
	"github.com/AyushGupta011/Velyra/internal/logging"
	"github.com/AyushGupta011/Velyra/internal/order"
	"github.com/AyushGupta011/Velyra/internal/reconcile"
)

const testSecret = "test-secret"

type fakeReconciler struct {
	fn    func(ctx context.Context, sessionID string) (reconcile.Result, error)
	calls []string
}

func (f *fakeReconciler) Reconcile(ctx context.Context, sessionID string) (reconcile.Result, error) {
	f.calls = append(f.calls, sessionID)
	return f.fn(ctx, sessionID)
}

type fakeLifecycle struct {
	fn func(ctx context.Context, actor auth.Identity, cmd lifecycle.Command) (*order.Order, error)
}

func (f *fakeLifecycle) SetStatus(ctx context.Context, actor auth.Identity, cmd lifecycle.Command) (*order.Order, error) {
	return f.fn(ctx, actor, cmd)
}

type fakeQueries struct {
	getByID    func(ctx context.Context, id string) (*order.Order, error)
	list       func(ctx context.Context, f order.Filter) (order.Page, error)
	listByUser func(ctx context.Context, userID string) ([]order.Order, error)
	stats      func(ctx context.Context, now time.Time) (order.Stats, error)
}

func (f *fakeQueries) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return f.getByID(ctx, id)
}

func (f *fakeQueries) List(ctx context.Context, fl order.Filter) (order.Page, error) {
	return f.list(ctx, fl)
}

func (f *fakeQueries) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return f.listByUser(ctx, userID)
}

func (f *fakeQueries) Stats(ctx context.Context, now time.Time) (order.Stats, error) {
	return f.stats(ctx, now)
}

type fakeCheckout struct {
	fn func(ctx context.Context, identity *auth.Identity, req checkout.Request) (checkout.Result, error)
}

func (f *fakeCheckout) CreateSession(ctx context.Context, identity *auth.Identity, req checkout.Request) (checkout.Result, error) {
	return f.fn(ctx, identity, req)
}

type fakeWebhooks struct {
	fn func(payload []byte, signature string) (gateway.Event, error)
}

func (f *fakeWebhooks) VerifyWebhook(payload []byte, signature string) (gateway.Event, error) {
	return f.fn(payload, signature)
}

type memLedger struct {
	seen map[string]string
}

func (l *memLedger) Seen(_ context.Context, id string) (bool, error) {
	_, ok := l.seen[id]
	return ok, nil
}

func (l *memLedger) MarkProcessed(_ context.Context, id, typ string) error {
	l.seen[id] = typ
	return nil
}

type fixture struct {
	reconciler *fakeReconciler
	lifecycle  *fakeLifecycle
	queries    *fakeQueries
	checkout   *fakeCheckout
	webhooks   *fakeWebhooks
	ledger     *memLedger
	tokens     *auth.Verifier
	handler    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reconciler: &fakeReconciler{fn: func(context.Context, string) (reconcile.Result, error) {
			return reconcile.Result{}, errors.New("unexpected reconcile")
		}},
		lifecycle: &fakeLifecycle{},
		queries:   &fakeQueries{},
		checkout:  &fakeCheckout{},
		webhooks:  &fakeWebhooks{},
		ledger:    &memLedger{seen: map[string]string{}},
		tokens:    auth.NewVerifier(testSecret),
	}
	f.handler = NewRouter(Deps{
		Reconciler:        f.reconciler,
		Lifecycle:         f.lifecycle,
		Orders:            f.queries,
		Checkout:          f.checkout,
		Webhooks:          f.webhooks,
		Ledger:            f.ledger,
		Tokens:            f.tokens,
		Logger:            logging.Discard(),
		ConfirmRatePerMin: 100,
	})
	return f
}

func (f *fixture) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := f.tokens.Issue(id, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

var (
	admin    = auth.Identity{UserID: "11111111-1111-1111-1111-111111111111", Email: "admin@example.com", Role: auth.RoleAdmin}
	customer = auth.Identity{UserID: "22222222-2222-2222-2222-222222222222", Email: "asha@example.com", Role: auth.RoleCustomer}
)

func paidOrder(owner string) *order.Order {
	return &order.Order{
		ID:               "33333333-3333-3333-3333-333333333333",
		OrderNumber:      "ORD-20250114-ABC123",
		UserID:           &owner,
		Subtotal:         decimal.RequireFromString("450"),
		Shipping:         decimal.RequireFromString("50"),
		Tax:              decimal.RequireFromString("81"),
		Total:            decimal.RequireFromString("581"),
		Currency:         "inr",
		Status:           order.StatusPaid,
		PaymentSessionID: "cs_test_1",
		Version:          1,
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok", "service": serviceName}, decodeBody[map[string]string](t, rec))
	assert.NotEmpty(t, rec.Header().Get(correlationHeader))
}

func TestCorrelationHeaderPropagates(t *testing.T) {
	f := newFixture(t)
	var got string
	f.reconciler.fn = func(ctx context.Context, _ string) (reconcile.Result, error) {
		got = logging.CorrelationID(ctx)
		return reconcile.Result{Order: paidOrder(customer.UserID)}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/orders/confirm", bytes.NewBufferString(`{"sessionId":"cs_test_1"}`))
	req.Header.Set(correlationHeader, "corr-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "corr-42", got)
	assert.Equal(t, "corr-42", rec.Header().Get(correlationHeader))
}

func TestConfirmOrder(t *testing.T) {
	f := newFixture(t)
	created := true
	f.reconciler.fn = func(_ context.Context, id string) (reconcile.Result, error) {
		defer func() { created = false }()
		return reconcile.Result{Order: paidOrder(customer.UserID), Created: created}, nil
	}

	rec := f.do(t, http.MethodPost, "/api/orders/confirm", map[string]string{"sessionId": "cs_test_1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["created"])
	assert.Equal(t, "Order created successfully", body["message"])

	rec = f.do(t, http.MethodPost, "/api/orders/confirm", map[string]string{"sessionId": "cs_test_1"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, body["created"])
	assert.Equal(t, "Order already exists", body["message"])
	assert.Equal(t, []string{"cs_test_1", "cs_test_1"}, f.reconciler.calls)
}

func TestConfirmOrder_ErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperr.Validation("sessionId is required"), http.StatusBadRequest},
		{"not found", apperr.NotFound("payment session not found"), http.StatusNotFound},
		{"upstream", apperr.Upstream(errors.New("boom"), "retrieve session"), http.StatusBadGateway},
		{"persistence", apperr.Persistence(errors.New("db down"), "create order"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.reconciler.fn = func(context.Context, string) (reconcile.Result, error) { return reconcile.Result{}, tc.err }

			rec := f.do(t, http.MethodPost, "/api/orders/confirm", map[string]string{"sessionId": "cs_x"}, "")
			require.Equal(t, tc.code, rec.Code)
			body := decodeBody[errorBody](t, rec)
			assert.Equal(t, apperr.KindOf(tc.err), body.Error)
			assert.NotContains(t, body.Message, "db down")
		})
	}
}

func TestConfirmOrder_MalformedBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/confirm", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.reconciler.calls)
}

func TestConfirmOrder_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.handler = NewRouter(Deps{
		Reconciler:        f.reconciler,
		Tokens:            f.tokens,
		Logger:            logging.Discard(),
		ConfirmRatePerMin: 2,
	})
	f.reconciler.fn = func(context.Context, string) (reconcile.Result, error) {
		return reconcile.Result{Order: paidOrder(customer.UserID)}, nil
	}

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/orders/confirm", map[string]string{"sessionId": "cs_test_1"}, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/api/orders/confirm", map[string]string{"sessionId": "cs_test_1"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestStripeWebhook(t *testing.T) {
	f := newFixture(t)
	f.webhooks.fn = func(_ []byte, sig string) (gateway.Event, error) {
		if sig != "good" {
			return gateway.Event{}, gateway.ErrInvalidSignature
		}
		return gateway.Event{ID: "evt_1", Type: gateway.EventCheckoutCompleted, SessionID: "cs_test_1"}, nil
	}
	f.reconciler.fn = func(context.Context, string) (reconcile.Result, error) {
		return reconcile.Result{Order: paidOrder(customer.UserID), Created: true}, nil
	}

	send := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
		req.Header.Set("Stripe-Signature", sig)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("bad")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.reconciler.calls)

	rec = send("good")
	require.Equal(t, http.StatusOK, rec.Code)
	ack := decodeBody[webhookAck](t, rec)
	assert.True(t, ack.Created)
	assert.Equal(t, "33333333-3333-3333-3333-333333333333", ack.OrderID)
	assert.Equal(t, gateway.EventCheckoutCompleted, f.ledger.seen["evt_1"])

	rec = send("good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[webhookAck](t, rec).Duplicate)
	assert.Len(t, f.reconciler.calls, 1)
}

func TestStripeWebhook_IgnoredType(t *testing.T) {
	f := newFixture(t)
	f.webhooks.fn = func([]byte, string) (gateway.Event, error) {
		return gateway.Event{ID: "evt_2", Type: "payment_intent.created"}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[webhookAck](t, rec).Ignored)
	assert.Empty(t, f.reconciler.calls)
}

func TestStripeWebhook_ReconcileFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.webhooks.fn = func([]byte, string) (gateway.Event, error) {
		return gateway.Event{ID: "evt_3", Type: gateway.EventCheckoutCompleted, SessionID: "cs_test_3"}, nil
	}
	f.reconciler.fn = func(context.Context, string) (reconcile.Result, error) {
		return reconcile.Result{}, apperr.Persistence(errors.New("db down"), "create order")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, f.ledger.seen, "evt_3")
}

func sendWebhook(f *fixture) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func paymentIncomplete() error {
	return &apperr.Error{Kind: apperr.KindConflict, Message: "payment for session cs_open is not completed", Err: reconcile.ErrPaymentIncomplete}
}

func TestStripeWebhook_MissingSessionAcknowledged(t *testing.T) {
	f := newFixture(t)
	f.webhooks.fn = func([]byte, string) (gateway.Event, error) {
		return gateway.Event{ID: "evt_4", Type: gateway.EventCheckoutCompleted}, nil
	}

	rec := sendWebhook(f)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[webhookAck](t, rec).Ignored)
	assert.Empty(t, f.reconciler.calls)
	assert.Contains(t, f.ledger.seen, "evt_4")
}

func TestStripeWebhook_UnpaidSessionIsPending(t *testing.T) {
	f := newFixture(t)
	f.webhooks.fn = func([]byte, string) (gateway.Event, error) {
		return gateway.Event{ID: "evt_5", Type: gateway.EventCheckoutCompleted, SessionID: "cs_open"}, nil
	}
	f.reconciler.fn = func(context.Context, string) (reconcile.Result, error) {
		return reconcile.Result{}, paymentIncomplete()
	}

	rec := sendWebhook(f)
	require.Equal(t, http.StatusOK, rec.Code)
	ack := decodeBody[webhookAck](t, rec)
	assert.True(t, ack.Pending)
	assert.False(t, ack.Created)
	assert.Empty(t, ack.OrderID)
}

func TestStripeWebhook_AsyncPaymentSucceeded(t *testing.T) {
	f := newFixture(t)
	f.webhooks.fn = func([]byte, string) (gateway.Event, error) {
		return gateway.Event{ID: "evt_6", Type: gateway.EventAsyncPaymentSucceeded, SessionID: "cs_open"}, nil
	}
	f.reconciler.fn = func(context.Context, string) (reconcile.Result, error) {
		return reconcile.Result{Order: paidOrder(customer.UserID), Created: true}, nil
	}

	rec := sendWebhook(f)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[webhookAck](t, rec).Created)
	assert.Equal(t, []string{"cs_open"}, f.reconciler.calls)
	assert.Equal(t, gateway.EventAsyncPaymentSucceeded, f.ledger.seen["evt_6"])
}

func TestConfirmOrder_UnpaidSessionConflicts(t *testing.T) {
	f := newFixture(t)
	f.reconciler.fn = func(context.Context, string) (reconcile.Result, error) {
		return reconcile.Result{}, paymentIncomplete()
	}

	rec := f.do(t, http.MethodPost, "/api/orders/confirm", map[string]string{"sessionId": "cs_open"}, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.KindConflict, decodeBody[errorBody](t, rec).Error)
}

func TestCreateCheckoutSession(t *testing.T) {
	f := newFixture(t)
	var gotIdentity *auth.Identity
	f.checkout.fn = func(_ context.Context, id *auth.Identity, req checkout.Request) (checkout.Result, error) {
		gotIdentity = id
		require.Len(t, req.Items, 1)
		return checkout.Result{SessionID: "cs_new", URL: "https://pay.example/cs_new"}, nil
	}
	body := map[string]any{"items": []map[string]any{{"productId": "p1", "quantity": 2}}}

	rec := f.do(t, http.MethodPost, "/api/checkout/sessions", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, gotIdentity)
	assert.Equal(t, "cs_new", decodeBody[map[string]any](t, rec)["sessionId"])

	rec = f.do(t, http.MethodPost, "/api/checkout/sessions", body, f.token(t, customer))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, gotIdentity)
	assert.Equal(t, customer.UserID, gotIdentity.UserID)

	rec = f.do(t, http.MethodPost, "/api/checkout/sessions", body, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMyOrder_Ownership(t *testing.T) {
	f := newFixture(t)
	o := paidOrder(customer.UserID)
	f.queries.getByID = func(_ context.Context, id string) (*order.Order, error) {
		if id != o.ID {
			return nil, order.ErrNotFound
		}
		return o, nil
	}
	path := "/api/orders/" + o.ID

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path, nil, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, f.token(t, customer)).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, f.token(t, admin)).Code)

	stranger := auth.Identity{UserID: "44444444-4444-4444-4444-444444444444", Role: auth.RoleCustomer}
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil, f.token(t, stranger)).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/orders/missing", nil, f.token(t, customer)).Code)
}

func TestListMyOrders(t *testing.T) {
	f := newFixture(t)
	f.queries.listByUser = func(_ context.Context, userID string) ([]order.Order, error) {
		assert.Equal(t, customer.UserID, userID)
		return []order.Order{*paidOrder(userID)}, nil
	}

	rec := f.do(t, http.MethodGet, "/api/orders", nil, f.token(t, customer))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string][]order.Order](t, rec)
	require.Len(t, body["orders"], 1)
	assert.True(t, body["orders"][0].Total.Equal(decimal.NewFromInt(581)))
	assert.Contains(t, rec.Body.String(), `"total":"581.00"`)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/admin/orders", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/admin/orders", nil, f.token(t, customer)).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/admin/dashboard", nil, f.token(t, customer)).Code)
}

func TestAdminListOrders(t *testing.T) {
	f := newFixture(t)
	var got order.Filter
	f.queries.list = func(_ context.Context, fl order.Filter) (order.Page, error) {
		got = fl
		return order.Page{Orders: []order.Order{*paidOrder(customer.UserID)}, Total: 21, Page: fl.Page, Limit: fl.Limit}, nil
	}
	tok := f.token(t, admin)

	rec := f.do(t, http.MethodGet, "/api/admin/orders?status=paid&search=ORD-2025&page=3&limit=10", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.Filter{Status: order.StatusPaid, Search: "ORD-2025", Page: 3, Limit: 10}, got)
	body := decodeBody[listResponse](t, rec)
	assert.Equal(t, pagination{Total: 21, Page: 3, Limit: 10, TotalPages: 3}, body.Pagination)

	rec = f.do(t, http.MethodGet, "/api/admin/orders?status=ALL&limit=1000", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.Filter{Page: 1, Limit: order.MaxPageLimit}, got)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/admin/orders?status=LOST", nil, tok).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/admin/orders?page=two", nil, tok).Code)
}

func TestAdminUpdateStatus(t *testing.T) {
	f := newFixture(t)
	var got lifecycle.Command
	var gotActor auth.Identity
	f.lifecycle.fn = func(_ context.Context, actor auth.Identity, cmd lifecycle.Command) (*order.Order, error) {
		got, gotActor = cmd, actor
		if cmd.Status == "DELIVERED" {
			return nil, apperr.Conflict("cannot transition from PAID to DELIVERED")
		}
		o := paidOrder(customer.UserID)
		o.Status = order.StatusProcessing
		o.Version = 2
		return o, nil
	}
	tok := f.token(t, admin)

	rec := f.do(t, http.MethodPatch, "/api/admin/orders", map[string]any{
		"orderId": "33333333-3333-3333-3333-333333333333", "status": "PROCESSING", "expectedVersion": 1,
	}, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PROCESSING", got.Status)
	require.NotNil(t, got.ExpectedVersion)
	assert.Equal(t, int64(1), *got.ExpectedVersion)
	assert.False(t, got.Override)
	assert.Equal(t, admin.UserID, gotActor.UserID)
	assert.Equal(t, order.StatusProcessing, decodeBody[order.Order](t, rec).Status)

	rec = f.do(t, http.MethodPatch, "/api/admin/orders", map[string]any{
		"orderId": "33333333-3333-3333-3333-333333333333", "status": "DELIVERED",
	}, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Nil(t, got.ExpectedVersion)
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture(t)
	f.queries.stats = func(context.Context, time.Time) (order.Stats, error) {
		return order.Stats{
			ByStatus: map[order.Status]int64{order.StatusPaid: 3},
			AllTime:  order.RevenueWindow{Revenue: decimal.RequireFromString("1743"), Orders: 3},
		}, nil
	}

	rec := f.do(t, http.MethodGet, "/api/admin/dashboard", nil, f.token(t, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[order.Stats](t, rec)
	assert.Equal(t, int64(3), st.ByStatus[order.StatusPaid])
	assert.True(t, st.AllTime.Revenue.Equal(decimal.NewFromInt(1743)))
}
