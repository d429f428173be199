// Package api exposes the storefront core over HTTP. It is a thin layer:
// request decoding, error-kind to status-code mapping, nothing else.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/storefront-core/internal/cart"
	"github.com/example/storefront-core/internal/order"
	"github.com/example/storefront-core/internal/product"
	"github.com/example/storefront-core/internal/statistics"
)

type Handlers struct {
	carts  *cart.Service
	orders *order.Service
	stats  *statistics.Pipeline
	tally  *order.Tally
}

func NewHandlers(carts *cart.Service, orders *order.Service, stats *statistics.Pipeline, tally *order.Tally) *Handlers {
	return &Handlers{carts: carts, orders: orders, stats: stats, tally: tally}
}

// Cart Handlers

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.carts.Add(r.Context(), getUserID(r), req.ProductID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	summary, err := h.carts.View(r.Context(), getUserID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/cart/items/")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), getUserID(r), productID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/cart/items/")
	if err := h.carts.Remove(r.Context(), getUserID(r), productID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), getUserID(r)); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) SelectCartItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []string `json:"product_ids"`
		Selected   bool     `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.carts.SetSelected(r.Context(), getUserID(r), req.ProductIDs, req.Selected); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Order Handlers

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.orders.Create(r.Context(), getUserID(r), req.ProductIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := extractPathParam(r.URL.Path, "/orders/")
	o, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := order.Status(r.URL.Query().Get("status"))
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 10)

	orders, err := h.orders.List(r.Context(), status, page, size)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"pagination": map[string]int{
			"page": page,
			"size": size,
		},
	})
}

func (h *Handlers) PayOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "/pay", h.orders.Pay)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "/cancel", h.orders.Cancel)
}

func (h *Handlers) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "/complete", h.orders.Complete)
}

// Statistics Handlers

func (h *Handlers) GetTotalSales(w http.ResponseWriter, r *http.Request) {
	total, err := h.stats.TotalSales(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, total)
}

func (h *Handlers) GetDailySales(w http.ResponseWriter, r *http.Request) {
	daily, err := h.stats.DailySales(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, daily)
}

func (h *Handlers) GetDailyOrders(w http.ResponseWriter, r *http.Request) {
	count, err := h.stats.DailyOrders(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"orders": count})
}

func (h *Handlers) GetTopProducts(w http.ResponseWriter, r *http.Request) {
	top, err := h.stats.TopProducts(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": top})
}

func (h *Handlers) GetOrderStatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.tally.Snapshot(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// Helper functions

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, suffix string, op func(ctx context.Context, orderID string) (*order.Order, error)) {
	path := strings.TrimPrefix(r.URL.Path, "/orders/")
	orderID := strings.TrimSuffix(path, suffix)

	o, err := op(r.Context(), orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError maps error kinds to HTTP status codes: validation errors to
// 400, unknown ids to 404, state machine rejections to 409.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrEmptyCart), errors.Is(err, order.ErrMissingCartLines),
		errors.Is(err, order.ErrInsufficientStock), errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, cart.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// getUserID reads the caller identity header, falling back to the default
// single-tenant user.
func getUserID(r *http.Request) string {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return userID
	}
	return order.DefaultUserID
}
