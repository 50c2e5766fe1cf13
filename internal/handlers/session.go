package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/uploads"
)

const (
	userSession  = "user-session"
	adminSession = "admin-session"
)

// App carries what every handler needs.
type App struct {
	Store          *store.Store
	Templates      *TemplateCache
	SessionStore   sessions.Store
	Uploads        *uploads.Storage
	MaxUploadBytes int64
	BaseURL        string
}

type ctxKey int

const userKey ctxKey = iota

func (a *App) session(r *http.Request, name string) *sessions.Session {
	session, err := a.SessionStore.Get(r, name)
	if err != nil {
		// A cookie signed with an old key decodes to a fresh session.
		slog.Debug("Discarding unreadable session", "name", name, "error", err)
	}
	return session
}

// flash queues a message for the next rendered page.
func (a *App) flash(w http.ResponseWriter, r *http.Request, name, typ, msg string) {
	session := a.session(r, name)
	session.AddFlash(FlashMessage{Type: typ, Message: msg})
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
}

// sessionUser resolves the logged-in customer, or nil.
func (a *App) sessionUser(r *http.Request) *models.User {
	if u, ok := r.Context().Value(userKey).(*models.User); ok {
		return u
	}
	id, ok := a.session(r, userSession).Values["user_id"].(int)
	if !ok || id == 0 {
		return nil
	}
	user, err := a.Store.GetUserByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("Failed to load session user", "user_id", id, "error", err)
		}
		return nil
	}
	return user
}

// adminName returns the logged-in admin's username, or "".
func (a *App) adminName(r *http.Request) string {
	session := a.session(r, adminSession)
	if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
		return ""
	}
	name, _ := session.Values["username"].(string)
	if name == "" {
		name = "admin"
	}
	return name
}

// RequireUser redirects to /login unless a customer is logged in.
func (a *App) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := a.sessionUser(r)
		if user == nil {
			a.flash(w, r, userSession, "error", "Please log in to continue.")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

// render adds the layout data every page uses and executes the template.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	var flashes []FlashMessage
	for _, sn := range []string{userSession, adminSession} {
		session := a.session(r, sn)
		if f := GetFlash(session); len(f) > 0 {
			flashes = append(flashes, f...)
			session.Save(r, w) // Save session to clear flashes
		}
	}
	data["Flashes"] = flashes
	data["CsrfField"] = csrf.TemplateField(r)
	data["CsrfToken"] = csrf.Token(r)
	if _, ok := data["CurrentUser"]; !ok {
		data["CurrentUser"] = a.sessionUser(r)
	}
	data["IsAdmin"] = a.adminName(r) != ""
	a.Templates.Render(w, status, name, data)
}

func (a *App) serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// backTo returns the referring path on this site, or fallback.
func backTo(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return fallback
	}
	if ref.Host != "" && ref.Host != r.Host {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
