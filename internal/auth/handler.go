package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
	"github.com/technopolis/careers-portal/internal/rbac"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		csrfManager: csrf,
		validator:   shared.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

type loginPageData struct {
	Form        Credentials
	RedirectURI string
}

type registerPageData struct {
	Form  Registration
	Roles []authstore.Role
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if authstore.SnapshotFromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, rbac.HomePath, http.StatusSeeOther)
		return
	}
	redirect := rbac.SafeRedirectPath(r.URL.Query().Get(rbac.RedirectParam))
	h.renderLogin(w, r, http.StatusOK, loginPageData{RedirectURI: redirect}, nil)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	data := loginPageData{
		Form:        Credentials{Email: form.Email},
		RedirectURI: rbac.SafeRedirectPath(r.PostFormValue(rbac.RedirectParam)),
	}
	if err := h.validator.Struct(form); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, data, shared.FieldErrors(err))
		return
	}

	snap, err := h.service.Authenticate(r.Context(), form)
	if err != nil {
		errs := map[string]string{"general": loginErrorMessage(err)}
		if !errors.Is(err, ErrInvalidCredentials) {
			h.logger.Warn("login failed", slog.Any("error", err))
		}
		h.renderLogin(w, r, http.StatusBadRequest, data, errs)
		return
	}

	store := shared.RotateSession(r.Context())
	if store == nil {
		h.logger.Error("auth store missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	store.Login(snap.Token, snap.User)
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if _, err := h.csrfManager.Rotate(sess); err != nil {
			h.logger.Warn("rotate csrf token", slog.Any("error", err))
		}
	}
	h.logger.Info("user signed in", slog.Int64("user_id", snap.User.ID), slog.String("role", string(snap.User.Role)))
	http.Redirect(w, r, data.RedirectURI, http.StatusSeeOther)
}

func loginErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Неверный email или пароль."
	case errors.Is(err, backend.ErrUnavailable):
		return "Сервер недоступен. Попробуйте позже."
	default:
		return "Не удалось выполнить вход."
	}
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData, errs map[string]string) {
	viewData := view.PageData(r, h.csrfManager, "Вход")
	viewData.Errors = errs
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.renderRegister(w, r, http.StatusOK, Registration{Role: string(authstore.RoleApplicant)}, nil)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := Registration{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.renderRegister(w, r, http.StatusBadRequest, Registration{Email: form.Email, Role: form.Role}, shared.FieldErrors(err))
		return
	}
	if _, err := h.service.Register(r.Context(), form); err != nil {
		h.logger.Warn("register failed", slog.Any("error", err))
		msg := backend.ErrorMessage(err, "Ошибка регистрации. Возможно, пользователь с таким email уже существует.")
		h.renderRegister(w, r, http.StatusBadRequest, Registration{Email: form.Email, Role: form.Role}, map[string]string{"general": msg})
		return
	}
	shared.Flash(r.Context(), shared.FlashSuccess, "Вы успешно зарегистрированы! Теперь вы можете войти.")
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, status int, form Registration, errs map[string]string) {
	viewData := view.PageData(r, h.csrfManager, "Регистрация")
	viewData.Errors = errs
	viewData.Data = registerPageData{Form: form, Roles: SelfServiceRoles}
	if err := h.templates.RenderStatus(w, status, "pages/register.html", viewData); err != nil {
		h.logger.Error("render register", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if store := shared.RotateSession(r.Context()); store != nil {
		store.Logout()
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if _, err := h.csrfManager.Rotate(sess); err != nil {
			h.logger.Warn("rotate csrf token", slog.Any("error", err))
		}
	}
	http.Redirect(w, r, rbac.HomePath, http.StatusSeeOther)
}
