package handlers

import (
	"net/http"
)

type HomeHandler struct {
	*App
}

func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context(), true)
	if err != nil {
		h.serverError(w, "Error fetching services", err)
		return
	}
	h.render(w, r, http.StatusOK, "home.html", map[string]any{
		"Services": services,
		"Selected": 0,
	})
}

// Pricing lists the whole catalog, marking what cannot be ordered right now.
func (h *HomeHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context(), false)
	if err != nil {
		h.serverError(w, "Error fetching services", err)
		return
	}
	h.render(w, r, http.StatusOK, "pricing.html", map[string]any{
		"Services": services,
	})
}
