package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler covers customer login, registration and logout.
type AuthHandler struct {
	*App
}

func (h *AuthHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	if h.sessionUser(r) != nil {
		http.Redirect(w, r, "/user/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", nil)
}

func (h *AuthHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	email := field(r, "email")
	password := r.FormValue("password")

	fail := func() {
		h.render(w, r, http.StatusOK, "login.html", map[string]any{
			"Error": "Invalid email or password.",
			"Email": email,
		})
	}

	user, err := h.Store.GetUserByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		fail()
		return
	}
	if err != nil {
		h.serverError(w, "Failed to look up user", err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		fail()
		return
	}

	session := h.session(r, userSession)
	session.Values["user_id"] = user.ID
	session.AddFlash(FlashMessage{Type: "success", Message: "Welcome back, " + user.Name + "!"})
	if err := session.Save(r, w); err != nil {
		h.serverError(w, "Failed to save session", err)
		return
	}

	slog.Info("User logged in", "user_id", user.ID)
	http.Redirect(w, r, "/user/dashboard", http.StatusFound)
}

func (h *AuthHandler) RegisterGet(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", map[string]any{
		"Values": registerInput{},
	})
}

func (h *AuthHandler) RegisterPost(w http.ResponseWriter, r *http.Request) {
	in := parseRegister(r)
	rerender := func(errs map[string]string) {
		h.render(w, r, http.StatusOK, "register.html", map[string]any{
			"Errors": errs,
			"Error":  validation.First(errs, "email", "name", "password"),
			"Values": in,
		})
	}

	if errs := validation.Struct(in); errs != nil {
		rerender(errs)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, "Failed to hash password", err)
		return
	}
	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Address:  in.Address,
		Password: string(hash),
	}
	err = h.Store.CreateUser(r.Context(), user)
	if errors.Is(err, store.ErrEmailTaken) {
		rerender(map[string]string{"email": "An account with this email already exists."})
		return
	}
	if err != nil {
		h.serverError(w, "Failed to create user", err)
		return
	}

	slog.Info("User registered", "user_id", user.ID)
	h.flash(w, r, userSession, "success", "Registration successful. Please log in.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.session(r, userSession)
	delete(session.Values, "user_id")
	session.Options.MaxAge = -1 // Expire immediately
	session.Save(r, w)
	http.Redirect(w, r, "/", http.StatusFound)
}
