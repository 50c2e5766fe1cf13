package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/santoshho/laundry/internal/metrics"
	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
)

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		limit = 10 // Default limit
	}

	filter := store.OrderFilter{Limit: limit, Offset: (page - 1) * limit}
	if status, ok := models.NormalizeStatus(r.URL.Query().Get("status")); ok {
		filter.Status = status
	}

	orders, err := h.Store.ListOrders(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Error fetching orders", err)
		return
	}

	totalOrders, err := h.Store.CountOrders(r.Context(), store.OrderFilter{Status: filter.Status})
	if err != nil {
		h.serverError(w, "Error fetching total order count", err)
		return
	}

	totalPages := (totalOrders + limit - 1) / limit
	if totalPages == 0 { // Handle case with no orders
		totalPages = 1
	}

	h.render(w, r, http.StatusOK, "admin_orders.html", map[string]any{
		"Orders":      orders,
		"Status":      filter.Status,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Limit":       limit,
	})
}

func (h *AdminHandler) orderFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) ViewOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderFromPath(w, r)
	if !ok {
		return
	}
	order, err := h.Store.GetOrder(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, "Error fetching order", err)
		return
	}
	history, err := h.Store.OrderHistory(r.Context(), id)
	if err != nil {
		h.serverError(w, "Error fetching order history", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_order_detail.html", map[string]any{
		"Order":   order,
		"History": history,
	})
}

// UpdateOrderStatus changes one order's status; the store appends history
// and notifies the customer in the same transaction.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderFromPath(w, r)
	if !ok {
		return
	}
	back := backTo(r, "/admin/orders")

	order, err := h.Store.UpdateOrderStatus(r.Context(), id, r.FormValue("status"), field(r, "note"), "admin:"+h.adminName(r))
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, store.ErrInvalidStatus):
		h.flash(w, r, adminSession, "error", "Unknown status.")
		http.Redirect(w, r, back, http.StatusFound)
		return
	case err != nil:
		h.serverError(w, "Error updating status", err)
		return
	}

	metrics.StatusChanged(order.Status)
	slog.Info("Order status updated", "ref", order.Ref, "status", order.Status, "by", h.adminName(r))
	h.flash(w, r, adminSession, "success", "Order "+order.Ref+" is now "+models.StatusLabel(order.Status)+".")
	http.Redirect(w, r, back, http.StatusFound)
}

func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderFromPath(w, r)
	if !ok {
		return
	}
	order, err := h.Store.DeleteOrder(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, "Error deleting order", err)
		return
	}
	if err := h.Uploads.Remove(order.Attachment); err != nil {
		slog.Warn("Failed to remove attachment", "file", order.Attachment, "error", err)
	}

	slog.Info("Order deleted", "ref", order.Ref, "by", h.adminName(r))
	h.flash(w, r, adminSession, "success", "Order "+order.Ref+" deleted.")
	http.Redirect(w, r, "/admin/orders", http.StatusFound)
}
