package handlers

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/santoshho/laundry/internal/metrics"
)

// Limiters bounds the POST routes that create records or check passwords.
type Limiters struct {
	Orders *RateLimiter
	Auth   *RateLimiter
}

// NewRouter wires every route onto a ServeMux. CSRF, logging and security
// headers are applied by the caller around the returned handler.
func NewRouter(app *App, static fs.FS, limit Limiters) http.Handler {
	home := &HomeHandler{App: app}
	auth := &AuthHandler{App: app}
	orders := &OrderHandler{App: app}
	user := &UserHandler{App: app}
	admin := &AdminHandler{App: app}
	notes := &NotificationHandler{App: app}
	forms := &FormHandler{App: app}

	mux := http.NewServeMux()

	// Static Files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(app.Uploads.Dir))))

	// Public Routes
	mux.HandleFunc("GET /{$}", home.Index)
	mux.HandleFunc("GET /pricing", home.Pricing)
	mux.HandleFunc("GET /login", auth.LoginGet)
	mux.HandleFunc("POST /login", limit.Auth.Middleware(auth.LoginPost))
	mux.HandleFunc("GET /register", auth.RegisterGet)
	mux.HandleFunc("POST /register", limit.Auth.Middleware(auth.RegisterPost))
	mux.HandleFunc("POST /logout", auth.Logout)
	mux.HandleFunc("GET /forgot-password", auth.ForgotPasswordGet)
	mux.HandleFunc("POST /forgot-password", limit.Auth.Middleware(auth.ForgotPasswordPost))
	mux.HandleFunc("GET /reset-password", auth.ResetPasswordGet)
	mux.HandleFunc("POST /reset-password", limit.Auth.Middleware(auth.ResetPasswordPost))
	mux.Handle("GET /user/login", http.RedirectHandler("/login", http.StatusMovedPermanently))
	mux.Handle("GET /user/register", http.RedirectHandler("/register", http.StatusMovedPermanently))

	mux.HandleFunc("POST /create-order", limit.Orders.Middleware(orders.CreateOrder))
	mux.HandleFunc("GET /order-success", orders.OrderSuccess)
	mux.HandleFunc("POST /forms/{kind}", limit.Orders.Middleware(forms.Submit))
	// Any other single-segment POST is a generic form; the routes above win.
	mux.HandleFunc("POST /{kind}", limit.Orders.Middleware(forms.Submit))

	// Customer Routes
	mux.HandleFunc("GET /user/dashboard", app.RequireUser(user.Dashboard))
	mux.HandleFunc("GET /user/new-request", app.RequireUser(user.NewRequest))
	mux.HandleFunc("GET /user/requests", app.RequireUser(user.Requests))
	mux.HandleFunc("GET /user/requests/{id}", app.RequireUser(user.RequestDetail))
	mux.HandleFunc("GET /user/request-details", app.RequireUser(user.RequestDetailsLegacy))
	mux.HandleFunc("POST /user/requests/{id}/cancel", app.RequireUser(user.CancelRequest))
	mux.HandleFunc("GET /user/profile", app.RequireUser(user.ProfileGet))
	mux.HandleFunc("POST /user/profile", app.RequireUser(user.ProfilePost))

	// Admin Routes
	mux.HandleFunc("GET /admin/login", admin.LoginGet)
	mux.HandleFunc("POST /admin/login", limit.Auth.Middleware(admin.LoginPost))
	mux.HandleFunc("POST /admin/logout", admin.Logout)
	mux.Handle("GET /admin", http.RedirectHandler("/admin/dashboard", http.StatusFound))
	mux.HandleFunc("GET /admin/dashboard", admin.AuthMiddleware(admin.Dashboard))
	mux.HandleFunc("GET /admin/orders", admin.AuthMiddleware(admin.ListOrders))
	mux.HandleFunc("GET /admin/orders/{id}", admin.AuthMiddleware(admin.ViewOrder))
	mux.HandleFunc("POST /admin/order/{id}/status", admin.AuthMiddleware(admin.UpdateOrderStatus))
	mux.HandleFunc("POST /admin/order/{id}/delete", admin.AuthMiddleware(admin.DeleteOrder))
	mux.HandleFunc("GET /admin/pricing", admin.AuthMiddleware(admin.ListServices))
	mux.HandleFunc("GET /admin/pricing/new", admin.AuthMiddleware(admin.NewServiceForm))
	mux.HandleFunc("POST /admin/pricing", admin.AuthMiddleware(admin.CreateService))
	mux.HandleFunc("GET /admin/pricing/{id}/edit", admin.AuthMiddleware(admin.EditServiceForm))
	mux.HandleFunc("POST /admin/pricing/{id}", admin.AuthMiddleware(admin.UpdateService))
	mux.HandleFunc("POST /admin/pricing/{id}/delete", admin.AuthMiddleware(admin.DeleteService))
	mux.HandleFunc("GET /admin/users", admin.AuthMiddleware(admin.Users))
	mux.HandleFunc("GET /admin/forms", admin.AuthMiddleware(admin.Forms))

	// Notification API
	mux.HandleFunc("GET /api/notifications", notes.withRecipient(notes.List))
	mux.HandleFunc("GET /api/notifications/unread-count", notes.withRecipient(notes.UnreadCount))
	mux.HandleFunc("POST /api/notifications/{id}/read", notes.withRecipient(notes.MarkRead))
	mux.HandleFunc("POST /api/notifications/read-all", notes.withRecipient(notes.MarkAllRead))

	// Operational
	mux.HandleFunc("GET /healthz", app.Healthz)
	mux.Handle("GET /metrics", metrics.Handler())

	return metrics.Middleware(mux)
}

// Healthz reports whether the database answers.
func (a *App) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
