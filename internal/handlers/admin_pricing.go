package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/validation"
)

func (h *AdminHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	// Admin sees ALL services including unavailable ones
	services, err := h.Store.ListServices(r.Context(), false)
	if err != nil {
		h.serverError(w, "Error fetching services", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_pricing.html", map[string]any{
		"Services": services,
	})
}

func (h *AdminHandler) NewServiceForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin_pricing_form.html", map[string]any{
		"Values": serviceInput{Unit: "kg", Available: true},
		"Action": "/admin/pricing",
	})
}

func (h *AdminHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	in := parseService(r)
	if errs := validation.Struct(in); errs != nil {
		h.render(w, r, http.StatusOK, "admin_pricing_form.html", map[string]any{
			"Values": in,
			"Action": "/admin/pricing",
			"Errors": errs,
		})
		return
	}

	svc := &models.Service{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Unit:        in.Unit,
		Available:   in.Available,
	}
	if err := h.Store.CreateService(r.Context(), svc); err != nil {
		h.serverError(w, "Error saving service", err)
		return
	}

	h.flash(w, r, adminSession, "success", "Service added successfully!")
	http.Redirect(w, r, "/admin/pricing", http.StatusFound)
}

func (h *AdminHandler) serviceFromPath(w http.ResponseWriter, r *http.Request) (*models.Service, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	svc, err := h.Store.GetService(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		h.serverError(w, "Error fetching service", err)
		return nil, false
	}
	return svc, true
}

func (h *AdminHandler) EditServiceForm(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.serviceFromPath(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "admin_pricing_form.html", map[string]any{
		"Values": serviceInput{
			Name:        svc.Name,
			Description: svc.Description,
			Price:       svc.Price,
			Unit:        svc.Unit,
			Available:   svc.Available,
		},
		"Action":  "/admin/pricing/" + strconv.Itoa(svc.ID),
		"Service": svc,
	})
}

func (h *AdminHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.serviceFromPath(w, r)
	if !ok {
		return
	}
	in := parseService(r)
	if errs := validation.Struct(in); errs != nil {
		h.render(w, r, http.StatusOK, "admin_pricing_form.html", map[string]any{
			"Values":  in,
			"Action":  "/admin/pricing/" + strconv.Itoa(svc.ID),
			"Service": svc,
			"Errors":  errs,
		})
		return
	}

	svc.Name, svc.Description, svc.Price, svc.Unit, svc.Available = in.Name, in.Description, in.Price, in.Unit, in.Available
	if err := h.Store.UpdateService(r.Context(), svc); err != nil {
		h.serverError(w, "Error updating service", err)
		return
	}

	h.flash(w, r, adminSession, "success", "Service updated successfully!")
	http.Redirect(w, r, "/admin/pricing", http.StatusFound)
}

// DeleteService removes exactly one catalog entry. Orders keep the name and
// price they were placed with.
func (h *AdminHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	err = h.Store.DeleteService(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.flash(w, r, adminSession, "error", "Service not found.")
		http.Redirect(w, r, "/admin/pricing", http.StatusFound)
		return
	}
	if err != nil {
		h.serverError(w, "Error deleting service", err)
		return
	}

	h.flash(w, r, adminSession, "success", "Service deleted successfully!")
	http.Redirect(w, r, "/admin/pricing", http.StatusFound)
}
