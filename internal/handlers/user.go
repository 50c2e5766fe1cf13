package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler serves the logged-in customer area. Every route is wrapped in
// RequireUser, so sessionUser never returns nil here.
type UserHandler struct {
	*App
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	ctx := r.Context()

	orders, err := h.Store.ListOrders(ctx, store.OrderFilter{UserID: user.ID, Limit: 5})
	if err != nil {
		h.serverError(w, "Error fetching orders", err)
		return
	}
	total, err := h.Store.CountOrders(ctx, store.OrderFilter{UserID: user.ID})
	if err != nil {
		h.serverError(w, "Error counting orders", err)
		return
	}
	active := 0
	for _, status := range []string{models.StatusPending, models.StatusPickedUp, models.StatusInProgress, models.StatusReady} {
		n, err := h.Store.CountOrders(ctx, store.OrderFilter{UserID: user.ID, Status: status})
		if err != nil {
			h.serverError(w, "Error counting orders", err)
			return
		}
		active += n
	}
	notifications, err := h.Store.ListNotifications(ctx, store.UserRecipient(user.ID), false, 10)
	if err != nil {
		h.serverError(w, "Error fetching notifications", err)
		return
	}
	services, err := h.Store.ListServices(ctx, true)
	if err != nil {
		h.serverError(w, "Error fetching services", err)
		return
	}

	h.render(w, r, http.StatusOK, "user_dashboard.html", map[string]any{
		"Orders":        orders,
		"TotalOrders":   total,
		"ActiveOrders":  active,
		"Notifications": notifications,
		"Services":      services,
	})
}

func (h *UserHandler) NewRequest(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context(), true)
	if err != nil {
		h.serverError(w, "Error fetching services", err)
		return
	}
	selected, _ := strconv.Atoi(r.URL.Query().Get("service"))
	h.render(w, r, http.StatusOK, "user_new_request.html", map[string]any{
		"Services": services,
		"Selected": selected,
	})
}

func (h *UserHandler) Requests(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	filter := store.OrderFilter{UserID: user.ID}
	if status, ok := models.NormalizeStatus(r.URL.Query().Get("status")); ok {
		filter.Status = status
	}
	orders, err := h.Store.ListOrders(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Error fetching orders", err)
		return
	}
	h.render(w, r, http.StatusOK, "user_requests.html", map[string]any{
		"Orders": orders,
		"Status": filter.Status,
	})
}

// ownOrder loads the order in the path and hides other customers' orders.
func (h *UserHandler) ownOrder(w http.ResponseWriter, r *http.Request) *models.Order {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	order, err := h.Store.GetOrder(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && order.UserID != h.sessionUser(r).ID) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.serverError(w, "Error fetching order", err)
		return nil
	}
	return order
}

func (h *UserHandler) RequestDetail(w http.ResponseWriter, r *http.Request) {
	order := h.ownOrder(w, r)
	if order == nil {
		return
	}
	history, err := h.Store.OrderHistory(r.Context(), order.ID)
	if err != nil {
		h.serverError(w, "Error fetching order history", err)
		return
	}
	h.render(w, r, http.StatusOK, "user_request_detail.html", map[string]any{
		"Order":      order,
		"History":    history,
		"Cancelable": order.Status == models.StatusPending,
	})
}

// RequestDetailsLegacy keeps old /user/request-details?id= links working.
func (h *UserHandler) RequestDetailsLegacy(w http.ResponseWriter, r *http.Request) {
	if id, err := strconv.Atoi(r.URL.Query().Get("id")); err == nil {
		http.Redirect(w, r, "/user/requests/"+strconv.Itoa(id), http.StatusMovedPermanently)
		return
	}
	http.Redirect(w, r, "/user/requests", http.StatusFound)
}

func (h *UserHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	user := h.sessionUser(r)
	err = h.Store.CancelOrder(r.Context(), id, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, store.ErrNotCancellable):
		h.flash(w, r, userSession, "error", "Only pending orders can be cancelled.")
	case err != nil:
		h.serverError(w, "Failed to cancel order", err)
		return
	default:
		h.flash(w, r, userSession, "success", "Your order was cancelled.")
	}
	http.Redirect(w, r, "/user/requests/"+strconv.Itoa(id), http.StatusFound)
}

func (h *UserHandler) ProfileGet(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "user_profile.html", map[string]any{
		"Values": h.sessionUser(r),
	})
}

// ProfilePost updates contact details and, when new_password is filled in,
// the password after checking the current one.
func (h *UserHandler) ProfilePost(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	in := profileInput{Name: field(r, "name"), Phone: field(r, "phone"), Address: field(r, "address")}
	updated := *user
	updated.Name, updated.Phone, updated.Address = in.Name, in.Phone, in.Address

	rerender := func(errs map[string]string) {
		h.render(w, r, http.StatusOK, "user_profile.html", map[string]any{
			"Values": &updated,
			"Errors": errs,
		})
	}

	errs := validation.Struct(in)
	var pw passwordInput
	changePassword := r.FormValue("new_password") != ""
	if changePassword {
		pw = passwordInput{Password: r.FormValue("new_password"), ConfirmPassword: r.FormValue("confirm_password")}
		if perrs := validation.Struct(pw); perrs != nil {
			if errs == nil {
				errs = map[string]string{}
			}
			for k, v := range perrs {
				errs[k] = v
			}
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(r.FormValue("current_password"))) != nil {
			if errs == nil {
				errs = map[string]string{}
			}
			errs["current_password"] = "Current password is incorrect."
		}
	}
	if errs != nil {
		rerender(errs)
		return
	}

	ctx := r.Context()
	if err := h.Store.UpdateUserProfile(ctx, &updated); err != nil {
		h.serverError(w, "Failed to update profile", err)
		return
	}
	if changePassword {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw.Password), bcrypt.DefaultCost)
		if err != nil {
			h.serverError(w, "Failed to hash password", err)
			return
		}
		if err := h.Store.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
			h.serverError(w, "Failed to update password", err)
			return
		}
	}
	h.flash(w, r, userSession, "success", "Profile updated.")
	http.Redirect(w, r, "/user/profile", http.StatusFound)
}
