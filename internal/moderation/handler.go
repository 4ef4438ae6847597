package moderation

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
	"github.com/technopolis/careers-portal/internal/rbac"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/internal/view"
)

const dashboardPath = "/admin-dashboard"

// Handler serves the admin moderation dashboard.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	queue       *Queue
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	guard       rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, queue *Queue, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		queue:       queue,
		templates:   templates,
		csrfManager: csrf,
		guard:       guard,
	}
}

// MountRoutes registers the dashboard routes for admins.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(rbac.RequireRoles(authstore.RoleAdmin)))
		r.Get(dashboardPath, h.dashboard)
		r.Post(dashboardPath+"/{type}/{id}/publish", h.publish)
		r.Post(dashboardPath+"/{type}/{id}/reject", h.reject)
	})
}

type dashboardData struct {
	Board Board
	// Target is "section-id" of the card an error belongs to.
	Target string
	Reason string
}

func sessionKey(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.ID
	}
	return ""
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.LoadPending(r.Context())
	if err != nil {
		if h.guard.Expire(w, r, err) {
			return
		}
		h.logger.Error("load pending", slog.Any("error", err))
		h.render(w, r, http.StatusOK, dashboardData{}, map[string]string{
			"general": "Не удалось загрузить данные для модерации.",
		})
		return
	}
	h.queue.Put(sessionKey(r), board)
	h.render(w, r, http.StatusOK, dashboardData{Board: board}, nil)
}

func item(r *http.Request) (Section, int64, bool) {
	section, err := ParseSection(chi.URLParam(r, "type"))
	if err != nil {
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return section, id, true
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	section, id, ok := item(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.act(w, r, section, id, "", func() error {
		return h.service.Publish(r.Context(), section, id)
	}, "Запись опубликована.")
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	section, id, ok := item(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	reason := r.PostFormValue("rejection_reason")
	if _, err := h.service.CheckReason(reason); err != nil {
		board, _ := h.queue.Board(sessionKey(r))
		errs := shared.FieldErrors(err)
		errs["rejection_reason"] = "Укажите причину отклонения (от 10 до 500 символов)."
		h.render(w, r, http.StatusBadRequest, dashboardData{Board: board, Target: target(section, id), Reason: reason}, errs)
		return
	}
	h.act(w, r, section, id, reason, func() error {
		return h.service.Reject(r.Context(), section, id, reason)
	}, "Запись отклонена.")
}

func target(section Section, id int64) string {
	return string(section) + "-" + strconv.FormatInt(id, 10)
}

// act runs one decision and on success drops the item from the local board
// and renders it without reloading the queues.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, section Section, id int64, reason string, call func() error, done string) {
	session := sessionKey(r)
	finish, err := h.queue.Begin(session, section, id)
	if err != nil {
		board, _ := h.queue.Board(session)
		h.render(w, r, http.StatusConflict, dashboardData{Board: board, Target: target(section, id), Reason: reason},
			map[string]string{"general": "Действие по этой записи уже выполняется."})
		return
	}

	err = call()
	finish(err == nil)
	board, cached := h.queue.Board(session)
	if err != nil {
		if h.guard.Expire(w, r, err) {
			return
		}
		h.logger.Warn("moderation action failed",
			slog.String("section", string(section)),
			slog.Int64("id", id),
			slog.Any("error", err))
		errs := map[string]string{"general": backend.ErrorMessage(err, "Ошибка при выполнении действия.")}
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			for _, fe := range apiErr.Fields {
				if fe.Field() == "rejection_reason" {
					errs["rejection_reason"] = fe.Msg
				}
			}
		}
		h.render(w, r, http.StatusBadGateway, dashboardData{Board: board, Target: target(section, id), Reason: reason}, errs)
		return
	}

	if !cached {
		shared.Flash(r.Context(), shared.FlashSuccess, done)
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	viewData := view.PageData(r, h.csrfManager, "Панель модерации")
	viewData.Flash = &shared.FlashMessage{Kind: shared.FlashSuccess, Message: done}
	viewData.Data = dashboardData{Board: board}
	if err := h.templates.Render(w, "pages/admin_dashboard.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data dashboardData, errs map[string]string) {
	viewData := view.PageData(r, h.csrfManager, "Панель модерации")
	viewData.Errors = errs
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, "pages/admin_dashboard.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
