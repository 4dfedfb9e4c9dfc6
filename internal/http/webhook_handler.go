package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/gateway"
	"github.com/AyushGupta011/Velyra/internal/reconcile"
)

type webhookAck struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Pending   bool   `json:"pending,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	Created   bool   `json:"created,omitempty"`
}

// StripeWebhook handles provider notifications. Any non-2xx response makes the
// provider redeliver, so only fully handled events are acknowledged.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("unreadable body"))
		return
	}

	ev, err := h.webhooks.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			h.logger.WarnContext(r.Context(), "webhook signature rejected", "err", err)
			writeError(w, r, h.logger, apperr.Validation("invalid signature"))
			return
		}
		writeError(w, r, h.logger, apperr.Upstream(err, "verify webhook"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.reconcileTimeout)
	defer cancel()

	seen, err := h.ledger.Seen(ctx, ev.ID)
	if err != nil {
		writeError(w, r, h.logger, apperr.Persistence(err, "check webhook ledger"))
		return
	}
	if seen {
		h.logger.InfoContext(ctx, "webhook already processed", "event_id", ev.ID, "type", ev.Type)
		writeJSON(w, http.StatusOK, webhookAck{Received: true, Duplicate: true})
		return
	}

	if !gateway.OrderEvent(ev.Type) {
		h.logger.InfoContext(ctx, "webhook event ignored", "event_id", ev.ID, "type", ev.Type)
		writeJSON(w, http.StatusOK, webhookAck{Received: true, Ignored: true})
		return
	}
	// Redelivery cannot repair an event without a session, so it is dropped.
	if ev.SessionID == "" {
		h.logger.WarnContext(ctx, "webhook event carries no checkout session", "event_id", ev.ID, "type", ev.Type)
		h.markProcessed(ctx, ev)
		writeJSON(w, http.StatusOK, webhookAck{Received: true, Ignored: true})
		return
	}

	res, err := h.reconciler.Reconcile(ctx, ev.SessionID)
	if errors.Is(err, reconcile.ErrPaymentIncomplete) {
		// Delayed payment methods complete the session before the money
		// clears; async_payment_succeeded settles the order later.
		h.logger.InfoContext(ctx, "webhook session awaiting payment", "event_id", ev.ID, "session_id", ev.SessionID)
		h.markProcessed(ctx, ev)
		writeJSON(w, http.StatusOK, webhookAck{Received: true, Pending: true})
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.markProcessed(ctx, ev)
	writeJSON(w, http.StatusOK, webhookAck{Received: true, OrderID: res.Order.ID, Created: res.Created})
}

func (h *Handler) markProcessed(ctx context.Context, ev gateway.Event) {
	if err := h.ledger.MarkProcessed(context.WithoutCancel(ctx), ev.ID, ev.Type); err != nil {
		h.logger.WarnContext(ctx, "mark webhook processed", "event_id", ev.ID, "err", err)
	}
}
