package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AyushGupta011/Velyra/internal/apperr"
	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/lifecycle"
	"github.com/AyushGupta011/Velyra/internal/order"
)

type pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

type listResponse struct {
	Orders     []order.Order `json:"orders"`
	Pagination pagination    `json:"pagination"`
}

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	page, err := h.orders.List(ctx, f)
	if err != nil {
		writeError(w, r, h.logger, apperr.Persistence(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Orders: page.Orders,
		Pagination: pagination{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages(),
		},
	})
}

// parseFilter reads status, search, page and limit. A status of ALL or an
// empty value means no status filter.
func parseFilter(r *http.Request) (order.Filter, error) {
	q := r.URL.Query()
	f := order.Filter{Search: strings.TrimSpace(q.Get("search"))}

	if s := strings.TrimSpace(q.Get("status")); s != "" && !strings.EqualFold(s, "ALL") {
		st, err := order.ParseStatus(s)
		if err != nil {
			return order.Filter{}, apperr.Validation("invalid status %q", s)
		}
		f.Status = st
	}

	var err error
	if f.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return order.Filter{}, err
	}
	if f.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return order.Filter{}, err
	}
	return f.Normalize(), nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return n, nil
}

func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.loadOrder(r, chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type updateStatusRequest struct {
	OrderID         string  `json:"orderId"`
	Status          string  `json:"status"`
	TrackingNumber  *string `json:"trackingNumber"`
	Override        bool    `json:"override"`
	ExpectedVersion *int64  `json:"expectedVersion"`
}

func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	actor, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	o, err := h.lifecycle.SetStatus(ctx, actor, lifecycle.Command{
		OrderID:         req.OrderID,
		Status:          req.Status,
		TrackingNumber:  req.TrackingNumber,
		Override:        req.Override,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	st, err := h.orders.Stats(ctx, h.now())
	if err != nil {
		writeError(w, r, h.logger, apperr.Persistence(err, "load dashboard stats"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
