package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/santoshho/laundry/internal/config"
	"github.com/santoshho/laundry/internal/handlers"
	"github.com/santoshho/laundry/internal/housekeeping"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/uploads"
	"github.com/santoshho/laundry/web"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Using TextHandler for console readability
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// 2. Init DB and run migrations
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := bootstrapAdmin(db, cfg); err != nil {
		slog.Error("Failed to create initial admin", "error", err)
		os.Exit(1)
	}

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	sessionStore.Options.MaxAge = 7 * 24 * 3600
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Init Templates and upload storage
	templates := handlers.NewTemplateCache()
	if err := templates.Load(web.Templates()); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}
	files, err := uploads.New(cfg.UploadDir)
	if err != nil {
		slog.Error("Failed to prepare upload directory", "error", err)
		os.Exit(1)
	}

	// 5. Setup Handlers
	app := &handlers.App{
		Store:          db,
		Templates:      templates,
		SessionStore:   sessionStore,
		Uploads:        files,
		MaxUploadBytes: cfg.MaxUploadBytes,
		BaseURL:        cfg.BaseURL,
	}
	router := handlers.NewRouter(app, web.Static(), handlers.Limiters{
		Orders: handlers.NewRateLimiter(cfg.OrderRatePerMinute, cfg.OrderRateBurst),
		Auth:   handlers.NewRateLimiter(10, 5),
	})

	// 6. Middleware Setup
	// Fix for "Forbidden - origin invalid": Trust local development origins
	CSRF := handlers.CSRFMiddleware(cfg.CSRFKey, cfg.CookieSecure,
		[]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port})

	// Chain: Logger -> Security Headers -> CSRF -> Router
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(router),
		),
	)

	// 7. Housekeeping jobs
	jobs, err := housekeeping.New(db, cfg.NotificationRetention)
	if err != nil {
		slog.Error("Failed to schedule housekeeping", "error", err)
		os.Exit(1)
	}
	jobs.Start()

	// 8. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Create a channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-stop

	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	jobs.Stop(ctx)
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}

// bootstrapAdmin creates the first admin from ADMIN_USERNAME/ADMIN_PASSWORD
// when the admins table is empty.
func bootstrapAdmin(db *store.Store, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := db.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if cfg.AdminUsername == "" {
		slog.Warn("No admin account exists. Set ADMIN_USERNAME and ADMIN_PASSWORD or run: cli add-admin")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := db.CreateAdmin(ctx, cfg.AdminUsername, string(hash)); err != nil {
		return err
	}
	slog.Info("Created initial admin", "username", cfg.AdminUsername)
	return nil
}
