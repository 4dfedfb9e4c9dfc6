// Package lifecycle applies administrator status changes to orders.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/events"
	"github.com/AyushGupta011/Velyra/internal/order"
)

type Store interface {
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
	UpdateStatus(ctx context.Context, u order.StatusUpdate) (*order.Order, error)
}

type Publisher interface {
	PublishOrderStatusChanged(ctx context.Context, c events.StatusChange) error
}

// Command is one requested status change. ExpectedVersion, when set, must
// match the stored version or the change is rejected.
type Command struct {
	OrderID         string
	Status          string
	TrackingNumber  *string
	Override        bool
	ExpectedVersion *int64
}

type Manager struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewManager(store Store, pub Publisher, logger *slog.Logger) *Manager {
	return &Manager{store: store, publisher: pub, logger: logger.With("component", "lifecycle")}
}

func (m *Manager) SetStatus(ctx context.Context, actor auth.Identity, cmd Command) (*order.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return nil, apperr.Validation("orderId is required")
	}
	to, err := order.ParseStatus(cmd.Status)
	if err != nil {
		return nil, apperr.Validation("invalid status %q", cmd.Status)
	}
	tracking := normalizeTracking(cmd.TrackingNumber)

	current, err := m.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, apperr.NotFound("order %s not found", orderID)
		}
		return nil, apperr.Persistence(err, "load order")
	}

	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != current.Version {
		return nil, apperr.Conflict("order %s is at version %d, not %d", orderID, current.Version, *cmd.ExpectedVersion)
	}
	allowed := order.CanTransition(current.Status, to)
	if !allowed && !cmd.Override {
		return nil, apperr.Conflict("cannot move order from %s to %s", current.Status, to)
	}
	if to == order.StatusShipped && tracking == nil && normalizeTracking(current.TrackingNumber) == nil {
		return nil, apperr.Validation("trackingNumber is required to ship an order")
	}

	updated, err := m.store.UpdateStatus(ctx, order.StatusUpdate{
		OrderID:         current.ID,
		Status:          to,
		TrackingNumber:  tracking,
		ExpectedVersion: current.Version,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrVersionConflict):
			return nil, apperr.Conflict("order %s was modified concurrently", orderID)
		case errors.Is(err, order.ErrNotFound):
			return nil, apperr.NotFound("order %s not found", orderID)
		}
		return nil, apperr.Persistence(err, "update order status")
	}

	m.logger.InfoContext(ctx, "order status changed",
		"order_id", updated.ID,
		"from", current.Status,
		"to", updated.Status,
		"actor", actor.UserID,
		"override", !allowed,
		"version", updated.Version,
	)

	change := events.StatusChange{Order: updated, From: current.Status, ChangedBy: actor.UserID, Overridden: !allowed}
	if err := m.publisher.PublishOrderStatusChanged(ctx, change); err != nil {
		m.logger.WarnContext(ctx, "publish OrderStatusChanged failed", "order_id", updated.ID, "err", err)
	}
	return updated, nil
}

func normalizeTracking(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
