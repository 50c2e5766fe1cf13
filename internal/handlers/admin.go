package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/santoshho/laundry/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type AdminHandler struct {
	*App
}

func (h *AdminHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	if h.adminName(r) != "" {
		http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "admin_login.html", nil)
}

// LoginPost re-renders the form with an error on bad credentials.
func (h *AdminHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	username := field(r, "username")
	if username == "" {
		username = field(r, "email")
	}
	password := r.FormValue("password")

	fail := func() {
		slog.Warn("Failed admin login", "username", username, "ip", clientIP(r))
		h.render(w, r, http.StatusOK, "admin_login.html", map[string]any{
			"Error":    "Invalid username or password",
			"Username": username,
		})
	}

	admin, err := h.Store.GetAdminByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		fail()
		return
	}
	if err != nil {
		h.serverError(w, "Failed to look up admin", err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		fail()
		return
	}

	// Set authenticated session
	session := h.session(r, adminSession)
	session.Values["authenticated"] = true
	session.Values["username"] = admin.Username
	session.AddFlash(FlashMessage{Type: "success", Message: "Welcome, " + admin.Username + "!"})
	if err := session.Save(r, w); err != nil {
		h.serverError(w, "Failed to save session", err)
		return
	}

	slog.Info("Admin login successful", "username", admin.Username)
	http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.session(r, adminSession)
	session.Values["authenticated"] = false
	delete(session.Values, "username")
	session.Options.MaxAge = -1 // Expire immediately
	session.Save(r, w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// AuthMiddleware ensures an admin is logged in
func (h *AdminHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminName(r) == "" {
			slog.Debug("AuthMiddleware: admin not authenticated, redirecting", "path", r.URL.Path)
			h.flash(w, r, adminSession, "error", "You must be logged in to access this page.")
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		h.serverError(w, "Error fetching stats", err)
		return
	}
	notifications, err := h.Store.ListNotifications(r.Context(), store.AdminRecipient(), false, 10)
	if err != nil {
		h.serverError(w, "Error fetching notifications", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_dashboard.html", map[string]any{
		"Stats":         stats,
		"Notifications": notifications,
		"Admin":         h.adminName(r),
	})
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.serverError(w, "Error fetching users", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_users.html", map[string]any{
		"Users": users,
	})
}

var formKindPattern = regexp.MustCompile(`^[a-z0-9_-]{1,40}$`)

func (h *AdminHandler) Forms(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !formKindPattern.MatchString(kind) {
		kind = ""
	}
	forms, err := h.Store.ListFormSubmissions(r.Context(), kind)
	if err != nil {
		h.serverError(w, "Error fetching form submissions", err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_forms.html", map[string]any{
		"Forms": forms,
		"Kind":  kind,
	})
}
