package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/catalog"
	"github.com/AyushGupta011/Velyra/internal/gateway"
	"github.com/AyushGupta011/Velyra/internal/logging"
	"github.com/AyushGupta011/Velyra/internal/order"
)

type fakeCatalog map[string]catalog.Product

func (f fakeCatalog) GetProducts(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	out := map[string]catalog.Product{}
	for _, id := range ids {
		if p, ok := f[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeGateway struct {
	req gateway.CheckoutRequest
	err error
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req gateway.CheckoutRequest) (gateway.CheckoutSession, error) {
	f.req = req
	if f.err != nil {
		return gateway.CheckoutSession{}, f.err
	}
	return gateway.CheckoutSession{ID: "cs_new", URL: "https://pay.example/cs_new"}, nil
}

var candleID = uuid.NewString()

func newService(gw *fakeGateway) *Service {
	cat := fakeCatalog{candleID: {ID: candleID, Name: "Candle A", Price: decimal.NewFromInt(450)}}
	return NewService(cat, gw, Options{
		AppURL:      "http://localhost:3000/",
		ShippingFee: decimal.NewFromInt(50),
		TaxRate:     decimal.RequireFromString("0.18"),
		Currency:    "inr",
	}, logging.Discard())
}

func TestCreateSession_PricesFromCatalog(t *testing.T) {
	gw := &fakeGateway{}
	id := &auth.Identity{UserID: uuid.NewString(), Email: "asha@example.com"}

	res, err := newService(gw).CreateSession(context.Background(), id, Request{
		Items: []Line{{ProductID: candleID, Quantity: 1}},
		ShippingAddress: &order.ShippingAddress{
			Name: "Asha", Address: "1 Main St", City: "Pune", PostalCode: "411001", Country: "IN",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_new", res.SessionID)
	assert.Equal(t, "450.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "81.00", res.Tax.StringFixed(2))
	assert.Equal(t, "581.00", res.Total.StringFixed(2))

	req := gw.req
	require.Len(t, req.Lines, 2)
	assert.Equal(t, "Candle A", req.Lines[0].Name)
	assert.True(t, req.Lines[1].TaxLine)
	assert.Equal(t, "GST (18%)", req.Lines[1].Name)
	assert.Equal(t, "http://localhost:3000/order-success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "http://localhost:3000/checkout", req.CancelURL)
	assert.Equal(t, "asha@example.com", req.CustomerEmail)

	meta, err := gateway.ParseMetadata(req.Metadata)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, meta.UserID)
	assert.True(t, meta.Tax.Equal(decimal.NewFromInt(81)))
	assert.Equal(t, "Pune", meta.ShippingAddress.City)
}

func TestCreateSession_MergesDuplicateLines(t *testing.T) {
	gw := &fakeGateway{}
	res, err := newService(gw).CreateSession(context.Background(), nil, Request{
		Items: []Line{{ProductID: candleID, Quantity: 1}, {ProductID: candleID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1350.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, int64(3), gw.req.Lines[0].Quantity)
	assert.NotContains(t, gw.req.Metadata, gateway.MetaUserID)
}

func TestCreateSession_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newService(&fakeGateway{}).CreateSession(ctx, nil, Request{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = newService(&fakeGateway{}).CreateSession(ctx, nil, Request{Items: []Line{{ProductID: candleID, Quantity: 0}}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = newService(&fakeGateway{}).CreateSession(ctx, nil, Request{Items: []Line{{ProductID: uuid.NewString(), Quantity: 1}}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = newService(&fakeGateway{}).CreateSession(ctx, nil, Request{
		Items:           []Line{{ProductID: candleID, Quantity: 1}},
		ShippingAddress: &order.ShippingAddress{Name: "x"},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = newService(&fakeGateway{err: errors.New("timeout")}).CreateSession(ctx, nil, Request{Items: []Line{{ProductID: candleID, Quantity: 1}}})
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}
