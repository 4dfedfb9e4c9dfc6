// Package reconcile turns a completed payment session into exactly one order.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/gateway"
	"github.com/AyushGupta011/Velyra/internal/lock"
	"github.com/AyushGupta011/Velyra/internal/order"
	"github.com/AyushGupta011/Velyra/internal/user"
)

const unknownProduct = "Unknown Product"

var tolerance = decimal.New(1, -2)

// ErrPaymentIncomplete marks a session the provider has not settled yet. No
// order is written for it; a later call succeeds once the payment clears.
var ErrPaymentIncomplete = errors.New("payment not completed")

type Gateway interface {
	RetrieveSession(ctx context.Context, sessionID string) (*gateway.Session, error)
}

type Store interface {
	FindBySessionID(ctx context.Context, sessionID string) (*order.Order, error)
	Create(ctx context.Context, o *order.Order) error
}

type Users interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

type Publisher interface {
	PublishOrderCreated(ctx context.Context, o *order.Order) error
}

type Result struct {
	Order   *order.Order
	Created bool
}

type Options struct {
	// LockWait bounds how long a call waits for a concurrent reconcile of the
	// same session before proceeding on the database constraint alone.
	LockWait time.Duration
	Currency string
}

type Reconciler struct {
	gateway   Gateway
	store     Store
	users     Users
	publisher Publisher
	locker    lock.Locker
	logger    *slog.Logger
	opts      Options
	now       func() time.Time
}

func New(gw Gateway, store Store, users Users, pub Publisher, locker lock.Locker, logger *slog.Logger, opts Options) *Reconciler {
	if locker == nil {
		locker = lock.Noop{}
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 2 * time.Second
	}
	if opts.Currency == "" {
		opts.Currency = "inr"
	}
	return &Reconciler{
		gateway:   gw,
		store:     store,
		users:     users,
		publisher: pub,
		locker:    locker,
		logger:    logger.With("component", "reconciler"),
		opts:      opts,
		now:       time.Now,
	}
}

// Reconcile returns the order for sessionID, creating it from the gateway's
// session detail if it does not exist yet. It is safe to call concurrently and
// repeatedly for the same session.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, apperr.Validation("session id is required")
	}

	release, acquired, err := r.locker.Acquire(ctx, sessionID, r.opts.LockWait)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return Result{}, apperr.Upstream(err, "reconcile cancelled")
		}
		r.logger.WarnContext(ctx, "reconcile lock unavailable", "session_id", sessionID, "err", err)
	case !acquired:
		r.logger.InfoContext(ctx, "reconcile lock busy, continuing", "session_id", sessionID)
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.logger.WarnContext(ctx, "release reconcile lock", "session_id", sessionID, "err", err)
			}
		}()
	}

	existing, err := r.store.FindBySessionID(ctx, sessionID)
	if err == nil {
		return Result{Order: existing}, nil
	}
	if !errors.Is(err, order.ErrNotFound) {
		return Result{}, apperr.Persistence(err, "lookup order")
	}

	sess, err := r.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gateway.ErrSessionNotFound) {
			return Result{}, apperr.NotFound("payment session %s not found", sessionID)
		}
		return Result{}, apperr.Upstream(err, "retrieve payment session")
	}
	if !sess.Settled() {
		r.logger.InfoContext(ctx, "payment session not settled, no order written",
			"session_id", sessionID, "status", sess.Status, "payment_status", sess.PaymentStatus)
		return Result{}, &apperr.Error{
			Kind:    apperr.KindConflict,
			Message: "payment for session " + sessionID + " is not completed",
			Err:     ErrPaymentIncomplete,
		}
	}

	meta, err := gateway.ParseMetadata(sess.Metadata)
	if err != nil {
		return Result{}, apperr.Validation("%v", err)
	}

	o, err := r.buildOrder(ctx, sess, meta)
	if err != nil {
		return Result{}, err
	}

	if err := r.store.Create(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicateSession) {
			winner, ferr := r.store.FindBySessionID(ctx, sessionID)
			if ferr != nil {
				return Result{}, apperr.Persistence(ferr, "re-fetch order after conflict")
			}
			r.logger.InfoContext(ctx, "order already reconciled concurrently",
				"session_id", sessionID, "order_id", winner.ID)
			return Result{Order: winner}, nil
		}
		return Result{}, apperr.Persistence(err, "create order")
	}

	r.logger.InfoContext(ctx, "order reconciled",
		"session_id", sessionID,
		"order_id", o.ID,
		"order_number", o.OrderNumber,
		"total", o.Total.StringFixed(2),
		"items", len(o.Items),
		"guest", o.UserID == nil,
	)

	if err := r.publisher.PublishOrderCreated(ctx, o); err != nil {
		r.logger.WarnContext(ctx, "publish OrderCreated failed", "order_id", o.ID, "err", err)
	}
	return Result{Order: o, Created: true}, nil
}

func (r *Reconciler) buildOrder(ctx context.Context, sess *gateway.Session, meta gateway.Metadata) (*order.Order, error) {
	if sess.AmountTotal < 0 {
		return nil, apperr.Upstream(nil, "session %s has a negative total", sess.ID)
	}

	items, err := snapshotItems(sess.LineItems)
	if err != nil {
		return nil, err
	}

	subtotal, shipping, tax := r.totals(ctx, sess, meta)
	now := r.now()
	tracking := order.NewTrackingNumber(now)

	currency := strings.ToLower(sess.Currency)
	if currency == "" {
		currency = r.opts.Currency
	}

	o := &order.Order{
		OrderNumber:      order.NewOrderNumber(now),
		Subtotal:         subtotal,
		Shipping:         shipping,
		Tax:              tax,
		Total:            order.FromMinor(sess.AmountTotal),
		Currency:         currency,
		Status:           order.StatusPaid,
		PaymentID:        sess.PaymentIntentID,
		PaymentSessionID: sess.ID,
		TrackingNumber:   &tracking,
		ShippingAddress:  resolveAddress(sess, meta),
		Items:            items,
	}

	u, err := r.resolveUser(ctx, sess, meta, o.ShippingAddress)
	if err != nil {
		return nil, err
	}
	if u != nil {
		o.UserID = &u.ID
		o.User = &order.UserRef{ID: u.ID, Email: u.Email, Name: u.Name}
	}
	return o, nil
}

// totals keeps the gateway's captured amount authoritative. The metadata
// breakdown supplies shipping and tax; subtotal is whatever remains so the
// three always add up to the total.
func (r *Reconciler) totals(ctx context.Context, sess *gateway.Session, meta gateway.Metadata) (subtotal, shipping, tax decimal.Decimal) {
	total := order.FromMinor(sess.AmountTotal)
	if meta.Subtotal == nil && meta.Shipping == nil && meta.Tax == nil {
		return total, decimal.Zero, decimal.Zero
	}

	shipping, tax = decimal.Zero, decimal.Zero
	if meta.Shipping != nil {
		shipping = *meta.Shipping
	}
	if meta.Tax != nil {
		tax = *meta.Tax
	}
	if shipping.Add(tax).GreaterThan(total) {
		r.logger.WarnContext(ctx, "metadata shipping and tax exceed captured total, ignoring breakdown",
			"session_id", sess.ID, "total", total.StringFixed(2),
			"shipping", shipping.StringFixed(2), "tax", tax.StringFixed(2))
		return total, decimal.Zero, decimal.Zero
	}

	subtotal = total.Sub(shipping).Sub(tax)
	if meta.Subtotal != nil && meta.Subtotal.Sub(subtotal).Abs().GreaterThan(tolerance) {
		r.logger.WarnContext(ctx, "metadata breakdown disagrees with captured total",
			"session_id", sess.ID, "total", total.StringFixed(2),
			"metadata_subtotal", meta.Subtotal.StringFixed(2), "stored_subtotal", subtotal.StringFixed(2))
	}
	return subtotal, shipping, tax
}

func snapshotItems(lines []gateway.LineItem) ([]order.Item, error) {
	items := make([]order.Item, 0, len(lines))
	for _, li := range lines {
		if li.TaxLine {
			continue
		}
		if li.Quantity < 1 || li.AmountTotal < 0 {
			return nil, apperr.Upstream(nil, "malformed line item %q (quantity %d)", li.Description, li.Quantity)
		}
		name := strings.TrimSpace(li.Description)
		if name == "" {
			name = strings.TrimSpace(li.ProductName)
		}
		if name == "" {
			name = unknownProduct
		}
		it := order.Item{
			Name:     name,
			Price:    order.FromMinor(li.AmountTotal).Div(decimal.NewFromInt(li.Quantity)).Round(2),
			Quantity: int(li.Quantity),
		}
		if li.ProductID != "" {
			pid := li.ProductID
			it.ProductID = &pid
		}
		if len(li.Images) > 0 && li.Images[0] != "" {
			img := li.Images[0]
			it.Image = &img
		}
		items = append(items, it)
	}
	return items, nil
}

func resolveAddress(sess *gateway.Session, meta gateway.Metadata) order.ShippingAddress {
	if meta.ShippingAddress != nil {
		addr := *meta.ShippingAddress
		if addr.Email == "" {
			addr.Email = sess.Customer.Email
		}
		return addr
	}
	c := sess.Customer
	return order.ShippingAddress{
		Name:       c.Name,
		Email:      c.Email,
		Address:    c.Line1,
		City:       c.City,
		PostalCode: c.PostalCode,
		Country:    c.Country,
	}
}

// resolveUser prefers the user id from metadata, then an email match. A nil
// user means a guest order. An id that is malformed or unknown never fails
// the order; the payment has already been taken.
func (r *Reconciler) resolveUser(ctx context.Context, sess *gateway.Session, meta gateway.Metadata, addr order.ShippingAddress) (*user.User, error) {
	if meta.UserID != "" {
		if _, err := uuid.Parse(meta.UserID); err != nil {
			r.logger.WarnContext(ctx, "metadata user id malformed, matching by email",
				"session_id", sess.ID, "user_id", meta.UserID)
			return r.userByEmail(ctx, sess, addr)
		}
		u, err := r.users.GetByID(ctx, meta.UserID)
		switch {
		case err == nil:
			return u, nil
		case errors.Is(err, user.ErrNotFound):
			r.logger.WarnContext(ctx, "metadata user not found, matching by email",
				"session_id", sess.ID, "user_id", meta.UserID)
		default:
			return nil, apperr.Persistence(err, "lookup user")
		}
	}
	return r.userByEmail(ctx, sess, addr)
}

func (r *Reconciler) userByEmail(ctx context.Context, sess *gateway.Session, addr order.ShippingAddress) (*user.User, error) {
	for _, email := range []string{sess.Customer.Email, addr.Email} {
		if strings.TrimSpace(email) == "" {
			continue
		}
		u, err := r.users.FindByEmail(ctx, email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, user.ErrNotFound) {
			return nil, apperr.Persistence(err, "lookup user by email")
		}
	}
	return nil, nil
}
