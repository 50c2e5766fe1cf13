package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = time.Hour

func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (h *AuthHandler) ForgotPasswordGet(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "forgot_password.html", nil)
}

// ForgotPasswordPost answers the same way whether or not the email is known.
func (h *AuthHandler) ForgotPasswordPost(w http.ResponseWriter, r *http.Request) {
	email := field(r, "email")

	user, err := h.Store.GetUserByEmail(r.Context(), email)
	switch {
	case err == nil:
		token, err := generateToken()
		if err != nil {
			h.serverError(w, "Failed to generate reset token", err)
			return
		}
		if err := h.Store.CreatePasswordReset(r.Context(), user.ID, token, resetTokenTTL); err != nil {
			h.serverError(w, "Failed to store reset token", err)
			return
		}

		// MOCK EMAIL
		slog.Info("==========================================")
		slog.Info("📧 EMAIL SENT TO: " + user.Email)
		slog.Info("Subject: Reset your password")
		slog.Info("Reset link: " + h.BaseURL + "/reset-password?token=" + url.QueryEscape(token))
		slog.Info("==========================================")
	case errors.Is(err, store.ErrNotFound):
		slog.Info("Password reset requested for unknown email", "email", email)
	default:
		h.serverError(w, "Failed to look up user", err)
		return
	}

	h.flash(w, r, userSession, "success", "If an account exists for that email, a reset link has been sent.")
	http.Redirect(w, r, "/forgot-password", http.StatusFound)
}

func (h *AuthHandler) ResetPasswordGet(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := h.Store.PasswordResetUser(r.Context(), token); err != nil {
		if !errors.Is(err, store.ErrTokenInvalid) {
			h.serverError(w, "Failed to check reset token", err)
			return
		}
		h.flash(w, r, userSession, "error", "Invalid or expired link. Please request a new one.")
		http.Redirect(w, r, "/forgot-password", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "reset_password.html", map[string]any{
		"Token": token,
	})
}

func (h *AuthHandler) ResetPasswordPost(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	in := passwordInput{Password: r.FormValue("new_password"), ConfirmPassword: r.FormValue("confirm_password")}
	if errs := validation.Struct(in); errs != nil {
		h.render(w, r, http.StatusOK, "reset_password.html", map[string]any{
			"Token": token,
			"Error": validation.First(errs, "new_password", "confirm_password"),
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, "Failed to hash password", err)
		return
	}
	userID, err := h.Store.ConsumePasswordReset(r.Context(), token, string(hash))
	if errors.Is(err, store.ErrTokenInvalid) {
		h.flash(w, r, userSession, "error", "Invalid or expired link. Please request a new one.")
		http.Redirect(w, r, "/forgot-password", http.StatusFound)
		return
	}
	if err != nil {
		h.serverError(w, "Failed to reset password", err)
		return
	}

	slog.Info("Password reset", "user_id", userID)
	h.flash(w, r, userSession, "success", "Password updated. Please log in.")
	http.Redirect(w, r, "/login", http.StatusFound)
}
