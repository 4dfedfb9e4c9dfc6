package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/checkout"
	"github.com/AyushGupta011/Velyra/internal/order"
)

type confirmRequest struct {
	SessionID string `json:"sessionId"`
}

type confirmResponse struct {
	Order   *order.Order `json:"order"`
	Created bool         `json:"created"`
	Message string       `json:"message"`
}

// ConfirmOrder is the client-side fallback to the webhook after a redirect
// back from the hosted checkout page.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.reconcileTimeout)
	defer cancel()

	res, err := h.reconciler.Reconcile(ctx, req.SessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	msg := "Order already exists"
	status := http.StatusOK
	if res.Created {
		msg = "Order created successfully"
		status = http.StatusCreated
	}
	writeJSON(w, status, confirmResponse{Order: res.Order, Created: res.Created, Message: msg})
}

func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var identity *auth.Identity
	if id, ok := auth.FromContext(r.Context()); ok {
		identity = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.reconcileTimeout)
	defer cancel()

	res, err := h.checkout.CreateSession(ctx, identity, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	orders, err := h.orders.ListByUser(ctx, id.UserID)
	if err != nil {
		writeError(w, r, h.logger, apperr.Persistence(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GetMyOrder returns the order to its owner or an admin. Other callers get a
// 404 so order ids cannot be enumerated.
func (h *Handler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	o, err := h.loadOrder(r, chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !id.IsAdmin() && (o.UserID == nil || *o.UserID != id.UserID) {
		writeError(w, r, h.logger, apperr.NotFound("order not found"))
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) loadOrder(r *http.Request, orderID string) (*order.Order, error) {
	if orderID == "" {
		return nil, apperr.Validation("missing orderId")
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	o, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Persistence(err, "load order")
	}
	return o, nil
}
