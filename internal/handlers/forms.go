package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/santoshho/laundry/internal/models"
)

const (
	maxFormFields = 50
	maxFormBody   = 64 << 10
	csrfFormField = "gorilla.csrf.Token"
)

// FormHandler stores free-form submissions such as the contact form.
type FormHandler struct {
	*App
}

func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !formKindPattern.MatchString(kind) {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	payload, err := readPayload(r)
	if err != nil {
		slog.Warn("Rejected form submission", "kind", kind, "error", err)
		http.Error(w, "Invalid form data.", http.StatusBadRequest)
		return
	}

	sub := &models.FormSubmission{Kind: kind, Payload: payload}
	if err := h.Store.SaveFormSubmission(r.Context(), sub); err != nil {
		h.serverError(w, "Failed to save form submission", err)
		return
	}
	slog.Info("Form submission saved", "kind", kind, "id", sub.ID)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": sub.ID})
		return
	}
	h.render(w, r, http.StatusOK, "form_thanks.html", map[string]any{
		"Kind": kind,
	})
}

// decodeJSONFields reads a JSON object and flattens it into string fields.
// Numbers and nested values keep their JSON text.
func decodeJSONFields(body io.Reader) (map[string]string, error) {
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			fields[k] = v
		case nil:
			fields[k] = ""
		default:
			b, _ := json.Marshal(v)
			fields[k] = string(b)
		}
	}
	return fields, nil
}

// readPayload flattens a JSON object or a posted form into string fields.
func readPayload(r *http.Request) (map[string]string, error) {
	payload := map[string]string{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var err error
		if payload, err = decodeJSONFields(r.Body); err != nil {
			return nil, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for k, vs := range r.PostForm {
			if k == csrfFormField {
				continue
			}
			payload[k] = strings.Join(vs, ", ")
		}
	}

	if len(payload) == 0 {
		return nil, fmt.Errorf("empty submission")
	}
	if len(payload) > maxFormFields {
		return nil, fmt.Errorf("too many fields: %d", len(payload))
	}
	return payload, nil
}
