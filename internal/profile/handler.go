package profile

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/technopolis/careers-portal/internal/applications"
	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
	"github.com/technopolis/careers-portal/internal/rbac"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/internal/view"
)

// Handler serves /profile and résumé downloads.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	applications *applications.Service
	templates    *view.Engine
	csrfManager  *shared.CSRFManager
	guard        rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, applicationSvc *applications.Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		applications: applicationSvc,
		templates:    templates,
		csrfManager:  csrf,
		guard:        guard,
	}
}

// MountRoutes registers the profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.AnyAuthenticated)).Get("/profile", h.show)
	r.With(h.guard.Require(rbac.RequireRoles(authstore.RoleHR))).Get("/profile/resume/{name}", h.resume)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	viewData := view.PageData(r, h.csrfManager, "Личный кабинет")
	snap := authstore.SnapshotFromContext(r.Context())
	if snap.User == nil {
		http.Redirect(w, r, rbac.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	overview, err := h.service.Load(r.Context(), *snap.User)
	if err != nil {
		if h.guard.Expire(w, r, err) {
			return
		}
		h.logger.Error("load profile", slog.Any("error", err))
		viewData.Flash = &shared.FlashMessage{
			Kind:    shared.FlashError,
			Message: "Не удалось загрузить данные профиля. Попробуйте обновить страницу.",
		}
	}
	viewData.Data = overview
	if err := h.templates.Render(w, "pages/profile.html", viewData); err != nil {
		h.logger.Error("render profile", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !applications.ValidFileName(name) {
		http.NotFound(w, r)
		return
	}
	dl, err := h.applications.Resume(r.Context(), name)
	if err != nil {
		if h.guard.Expire(w, r, err) {
			return
		}
		status := http.StatusBadGateway
		switch {
		case backend.IsNotFound(err):
			status = http.StatusNotFound
		case backend.IsForbidden(err):
			status = http.StatusForbidden
		}
		h.logger.Warn("resume download failed", slog.String("name", name), slog.Any("error", err))
		http.Error(w, backend.ErrorMessage(err, http.StatusText(status)), status)
		return
	}
	defer func() { _ = dl.Close() }()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	disposition := dl.Disposition
	if disposition == "" {
		disposition = `attachment; filename="` + name + `"`
	}
	w.Header().Set("Content-Disposition", disposition)
	if dl.Length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Length, 10))
	}
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := io.Copy(w, dl.Body); err != nil {
		h.logger.Warn("resume stream interrupted", slog.String("name", name), slog.Any("error", err))
	}
}
