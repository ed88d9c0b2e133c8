package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/shared"
	"github.com/datastudio/warehouse-admin/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	responder      *view.Responder
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	allowSignup    bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, sessions *shared.SessionManager, csrf *shared.CSRFManager, allowSignup bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		responder:      responder,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      shared.NewValidator(),
		allowSignup:    allowSignup,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	if h.allowSignup {
		r.Get("/signup", h.showSignup)
		r.Post("/signup", h.handleSignup)
	}
}

type loginForm struct {
	UsernameOrEmail string `form:"usernameOrEmail" validate:"required"`
	Password        string `form:"password" validate:"required"`
}

type loginPageData struct {
	UsernameOrEmail string
	Error           string
	Errors          map[string]string
	AllowSignup     bool
}

type signupForm struct {
	Username string `form:"username" validate:"required,min=3,max=50"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

type signupPageData struct {
	Username string
	Email    string
	Error    string
	Errors   map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.SnapshotFromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.responder.Page(w, r, http.StatusOK, "pages/login.html", "Sign in", loginPageData{AllowSignup: h.allowSignup})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := loginForm{
		UsernameOrEmail: strings.TrimSpace(r.PostFormValue("usernameOrEmail")),
		Password:        r.PostFormValue("password"),
	}
	data := loginPageData{UsernameOrEmail: form.UsernameOrEmail, AllowSignup: h.allowSignup}
	if errs := shared.FieldErrors(h.validator, form); errs != nil {
		data.Errors = errs
		h.responder.Page(w, r, http.StatusBadRequest, "pages/login.html", "Sign in", data)
		return
	}

	if err := h.service.Login(r.Context(), sess.Auth, form.UsernameOrEmail, form.Password); err != nil {
		data.Error = loginFailureMessage(err)
		if apiclient.StatusCode(err) == 0 {
			h.logger.Error("login failed", slog.Any("error", err))
		}
		h.responder.Page(w, r, http.StatusBadRequest, "pages/login.html", "Sign in", data)
		return
	}

	if _, err := h.csrfManager.RotateToken(sess); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	h.logger.Info("user signed in", slog.String("user_id", sess.Auth.UserID()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) showSignup(w http.ResponseWriter, r *http.Request) {
	h.responder.Page(w, r, http.StatusOK, "pages/signup.html", "Create account", signupPageData{})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	form := signupForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	data := signupPageData{Username: form.Username, Email: form.Email}
	if errs := shared.FieldErrors(h.validator, form); errs != nil {
		data.Errors = errs
		h.responder.Page(w, r, http.StatusBadRequest, "pages/signup.html", "Create account", data)
		return
	}
	if err := h.service.Signup(r.Context(), sess.Auth, form.Username, form.Email, form.Password); err != nil {
		data.Error = loginFailureMessage(err)
		h.responder.Page(w, r, http.StatusBadRequest, "pages/signup.html", "Create account", data)
		return
	}
	if _, err := h.csrfManager.RotateToken(sess); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	h.responder.Redirect(w, r, "/", view.FlashSuccess, "Account created")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.Logout(r.Context(), sess.Auth); err != nil {
			h.logger.Warn("clear auth session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func loginFailureMessage(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		if apiErr.Message == apiclient.UnknownErrorMessage && errors.Is(err, shared.ErrInvalidCredentials) {
			return "Invalid credentials"
		}
		return apiErr.Message
	}
	if errors.Is(err, ErrMissingUser) {
		return "Login failed"
	}
	return "Login failed: the service is unavailable"
}
