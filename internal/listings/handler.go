package listings

import (
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

// Handler serves the home page and the posting forms.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	guard       rbac.Middleware
	validator   *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		csrfManager: csrf,
		guard:       guard,
		validator:   NewValidator(),
	}
}

// MountRoutes registers the listing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(rbac.RequireRoles(authstore.RoleHR)))
		r.Get("/create-vacancy", h.showCreate(KindVacancy))
		r.Post("/create-vacancy", h.handleCreate(KindVacancy))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(rbac.RequireRoles(authstore.RoleUniversity)))
		r.Get("/create-internship", h.showCreate(KindInternship))
		r.Post("/create-internship", h.handleCreate(KindInternship))
	})
}

type homePageData struct {
	Board Board
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	viewData := view.PageData(r, h.csrfManager, "Открытые возможности")
	board, err := h.service.Board(r.Context())
	if err != nil {
		h.logger.Error("load published listings", slog.Any("error", err))
		viewData.Flash = &shared.FlashMessage{
			Kind:    shared.FlashError,
			Message: "Не удалось загрузить данные. Проверьте, запущен ли бэкенд-сервер.",
		}
	}
	viewData.Data = homePageData{Board: board}
	if err := h.templates.Render(w, "pages/home.html", viewData); err != nil {
		h.logger.Error("render home", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type createPageData struct {
	Kind          Kind
	Form          Draft
	WorkLocations []string
	Specialties   []string
}

func (h *Handler) showCreate(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderCreate(w, r, http.StatusOK, kind, Draft{}, nil)
	}
}

func (h *Handler) handleCreate(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		draft := Draft{
			Title:             r.PostFormValue("title"),
			CompanyName:       r.PostFormValue("company_name"),
			WorkLocation:      r.PostFormValue("work_location"),
			WorkSchedule:      r.PostFormValue("work_schedule"),
			Responsibilities:  r.PostFormValue("responsibilities"),
			Requirements:      r.PostFormValue("requirements"),
			Conditions:        r.PostFormValue("conditions"),
			AdditionalInfo:    r.PostFormValue("additional_info"),
			SalaryMin:         r.PostFormValue("salary_min"),
			SalaryMax:         r.PostFormValue("salary_max"),
			AgreePersonalData: r.PostFormValue("agree_personal_data") != "",
		}
		if errs := Validate(h.validator, draft); len(errs) > 0 {
			h.renderCreate(w, r, http.StatusBadRequest, kind, draft, errs)
			return
		}

		if _, err := h.service.Create(r.Context(), kind, draft); err != nil {
			if h.guard.Expire(w, r, err) {
				return
			}
			h.logger.Warn("create listing failed", slog.String("kind", string(kind)), slog.Any("error", err))
			fallback := "Произошла ошибка при создании вакансии."
			if kind == KindInternship {
				fallback = "Произошла ошибка при создании стажировки."
			}
			h.renderCreate(w, r, http.StatusBadGateway, kind, draft, map[string]string{"general": backend.ErrorMessage(err, fallback)})
			return
		}

		msg := "Вакансия успешно создана и отправлена на модерацию!"
		if kind == KindInternship {
			msg = "Стажировка успешно создана и отправлена на модерацию!"
		}
		shared.Flash(r.Context(), shared.FlashSuccess, msg)
		http.Redirect(w, r, rbac.HomePath, http.StatusSeeOther)
	}
}

func (h *Handler) renderCreate(w http.ResponseWriter, r *http.Request, status int, kind Kind, draft Draft, errs map[string]string) {
	title := "Создать новую вакансию"
	if kind == KindInternship {
		title = "Создать новую стажировку"
	}
	viewData := view.PageData(r, h.csrfManager, title)
	viewData.Errors = errs
	viewData.Data = createPageData{
		Kind:          kind,
		Form:          draft,
		WorkLocations: WorkLocations,
		Specialties:   Specialties,
	}
	if err := h.templates.RenderStatus(w, status, "pages/create_listing.html", viewData); err != nil {
		h.logger.Error("render create listing", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
