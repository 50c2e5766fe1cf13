package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/santoshho/laundry/internal/metrics"
	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/uploads"
)

type OrderHandler struct {
	*App
}

// parseOrderForm reads a multipart, urlencoded or JSON body, bounded by
// MaxUploadBytes. JSON fields are exposed through r.Form like posted ones.
func (h *OrderHandler) parseOrderForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return r.ParseMultipartForm(h.MaxUploadBytes)
	case "application/json":
		fields, err := decodeJSONFields(r.Body)
		if err != nil {
			return err
		}
		form := url.Values{}
		for k, v := range fields {
			form.Set(k, v)
		}
		r.Form, r.PostForm = form, form
		return nil
	}
	return r.ParseForm()
}

// CreateOrder accepts the order form from guests and logged-in customers.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, "/")

	if err := h.parseOrderForm(w, r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.flash(w, r, userSession, "error", "File too large. Max "+strconv.FormatInt(h.MaxUploadBytes>>20, 10)+"MB.")
		} else {
			h.flash(w, r, userSession, "error", "Invalid form data.")
		}
		http.Redirect(w, r, back, http.StatusFound)
		return
	}

	in := parseOrder(r)
	user := h.sessionUser(r)
	if user != nil {
		// Logged-in customers may leave contact fields blank.
		if in.Name == "" {
			in.Name = user.Name
		}
		if in.Phone == "" {
			in.Phone = user.Phone
		}
		if in.Address == "" {
			in.Address = user.Address
		}
	}

	if errs := in.validate(); errs != nil {
		session := h.session(r, userSession)
		for _, f := range []string{"name", "phone", "address", "service_id", "quantity", "items", "notes", "pickup_date", "delivery_method"} {
			if msg, ok := errs[f]; ok {
				session.AddFlash(FlashMessage{Type: "error", Message: msg})
			}
		}
		session.Save(r, w)
		http.Redirect(w, r, back, http.StatusFound)
		return
	}

	order := &models.Order{
		ServiceID:      in.ServiceID,
		CustomerName:   in.Name,
		Phone:          in.Phone,
		Address:        in.Address,
		Quantity:       in.Quantity,
		Items:          in.Items,
		Notes:          in.Notes,
		PickupDate:     in.PickupDate,
		DeliveryMethod: in.DeliveryMethod,
	}
	if user != nil {
		order.UserID = user.ID
	}

	file, header, err := r.FormFile("attachment")
	switch {
	case err == nil:
		defer file.Close()
		name, err := h.Uploads.Save(file, header)
		if errors.Is(err, uploads.ErrUnsupportedType) {
			h.flash(w, r, userSession, "error", "Unsupported attachment. Only PNG, JPG, JPEG and PDF are allowed.")
			http.Redirect(w, r, back, http.StatusFound)
			return
		}
		if errors.Is(err, uploads.ErrImageTooLarge) {
			h.flash(w, r, userSession, "error", "The image is too large. Please upload a smaller photo.")
			http.Redirect(w, r, back, http.StatusFound)
			return
		}
		if err != nil {
			slog.Warn("Failed to store attachment", "error", err)
			h.flash(w, r, userSession, "error", "The attachment could not be read.")
			http.Redirect(w, r, back, http.StatusFound)
			return
		}
		order.Attachment = name
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.flash(w, r, userSession, "error", "Invalid attachment.")
		http.Redirect(w, r, back, http.StatusFound)
		return
	}

	if err := h.Store.CreateOrder(r.Context(), order); err != nil {
		h.Uploads.Remove(order.Attachment)
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.flash(w, r, userSession, "error", "That service no longer exists. Please choose another.")
		case errors.Is(err, store.ErrServiceUnavailable):
			h.flash(w, r, userSession, "error", "That service is currently unavailable.")
		default:
			slog.Error("Failed to create order", "error", err)
			h.flash(w, r, userSession, "error", "Failed to place order. Please try again.")
		}
		http.Redirect(w, r, back, http.StatusFound)
		return
	}
	metrics.OrderCreated()

	// MOCK EMAIL SENDING
	if user != nil {
		slog.Info("==========================================")
		slog.Info("📧 EMAIL SENT TO: " + user.Email)
		slog.Info("Subject: Order Confirmation - " + order.Ref)
		slog.Info("Track it here: " + h.BaseURL + "/user/requests/" + strconv.Itoa(order.ID))
		slog.Info("==========================================")
	}
	slog.Info("Order created", "ref", order.Ref, "service", order.ServiceName, "total", order.Total)

	session := h.session(r, userSession)
	session.Values["last_order_ref"] = order.Ref
	session.Save(r, w)
	http.Redirect(w, r, "/order-success", http.StatusFound)
}

// OrderSuccess confirms the order placed last in this browser session.
func (h *OrderHandler) OrderSuccess(w http.ResponseWriter, r *http.Request) {
	session := h.session(r, userSession)
	ref, _ := session.Values["last_order_ref"].(string)

	var order *models.Order
	if ref != "" {
		var err error
		order, err = h.Store.GetOrderByRef(r.Context(), ref)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.serverError(w, "Failed to load order", err)
			return
		}
	}
	h.render(w, r, http.StatusOK, "order_success.html", map[string]any{
		"Order": order,
	})
}
