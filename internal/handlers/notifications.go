package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/santoshho/laundry/internal/store"
)

// NotificationHandler is the JSON API polled by the header badge.
type NotificationHandler struct {
	*App
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// recipient picks the inbox for this request. An admin session wins over a
// customer session.
func (h *NotificationHandler) recipient(r *http.Request) (store.Recipient, bool) {
	if h.adminName(r) != "" {
		return store.AdminRecipient(), true
	}
	if user := h.sessionUser(r); user != nil {
		return store.UserRecipient(user.ID), true
	}
	return store.Recipient{}, false
}

func (h *NotificationHandler) withRecipient(next func(http.ResponseWriter, *http.Request, store.Recipient)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rcpt, ok := h.recipient(r)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, rcpt)
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, rcpt store.Recipient) {
	unreadOnly := r.URL.Query().Get("unread") == "1" || r.URL.Query().Get("unread") == "true"
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, err := h.Store.ListNotifications(r.Context(), rcpt, unreadOnly, limit)
	if err != nil {
		slog.Error("Failed to list notifications", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	unread, err := h.Store.UnreadCount(r.Context(), rcpt)
	if err != nil {
		slog.Error("Failed to count notifications", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread":        unread,
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request, rcpt store.Recipient) {
	n, err := h.Store.UnreadCount(r.Context(), rcpt)
	if err != nil {
		slog.Error("Failed to count notifications", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, rcpt store.Recipient) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	err = h.Store.MarkNotificationRead(r.Context(), rcpt, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		slog.Error("Failed to mark notification read", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, rcpt store.Recipient) {
	n, err := h.Store.MarkAllRead(r.Context(), rcpt)
	if err != nil {
		slog.Error("Failed to mark notifications read", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
