package applications

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/listings"
	"github.com/technopolis/careers-portal/internal/platform/backend"
	"github.com/technopolis/careers-portal/internal/rbac"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/internal/view"
)

const (
	modeForm = "form"
	modeFile = "file"
)

// Handler serves the apply page.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	guard       rbac.Middleware
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler constructs a Handler. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Middleware, idempotency *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		csrfManager: csrf,
		guard:       guard,
		idempotency: idempotency,
		validator:   shared.NewValidator(),
	}
}

// MountRoutes registers /apply/{type}/{id} for applicants.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(rbac.RequireRoles(authstore.RoleApplicant)))
		r.Get("/apply/{type}/{id}", h.show)
		r.Post("/apply/{type}/{id}", h.submit)
	})
}

type applyPageData struct {
	Kind       listings.Kind
	ID         int64
	Mode       string
	Form       ResumeForm
	Extensions []string
	MaxBytes   int64
}

func target(r *http.Request) (listings.Kind, int64, bool) {
	kind, err := listings.ParseKind(chi.URLParam(r, "type"))
	if err != nil {
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return kind, id, true
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := target(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, applyPageData{Kind: kind, ID: id, Mode: modeForm}, nil)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := target(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.render(w, r, http.StatusBadRequest, applyPageData{Kind: kind, ID: id, Mode: modeFile},
			map[string]string{"resume_file": "Файл слишком большой"})
		return
	}

	data := applyPageData{Kind: kind, ID: id, Mode: r.PostFormValue("mode")}
	var sub Submission
	if data.Mode == modeFile {
		file, header, err := r.FormFile("resume_file")
		if err != nil {
			h.render(w, r, http.StatusBadRequest, data, map[string]string{"resume_file": "Выберите файл резюме"})
			return
		}
		defer func() { _ = file.Close() }()
		if err := CheckFile(header.Filename, header.Size, h.service.MaxBytes()); err != nil {
			h.render(w, r, http.StatusBadRequest, data, map[string]string{"resume_file": fileErrorMessage(err)})
			return
		}
		sub.File = &ResumeFile{Name: header.Filename, Size: header.Size, Content: file}
	} else {
		data.Mode = modeForm
		data.Form = ResumeForm{
			FullName:   r.PostFormValue("full_name"),
			Phone:      r.PostFormValue("phone"),
			Email:      r.PostFormValue("email"),
			Education:  r.PostFormValue("education"),
			Experience: r.PostFormValue("experience"),
			Skills:     r.PostFormValue("skills"),
		}
		if err := h.validator.Struct(data.Form); err != nil {
			h.render(w, r, http.StatusBadRequest, data, shared.FieldErrors(err))
			return
		}
		sub.Form = &data.Form
	}

	key := ""
	if user := authstore.SnapshotFromContext(r.Context()).User; user != nil {
		key = shared.SubmissionKey("applications", user.ID, kind, id)
	}
	if key != "" {
		if err := h.idempotency.Acquire(r.Context(), key); err != nil {
			if errors.Is(err, shared.ErrDuplicateSubmit) {
				h.render(w, r, http.StatusConflict, data, map[string]string{"general": "Отклик уже отправлен."})
				return
			}
			h.logger.Warn("idempotency acquire", slog.Any("error", err))
			key = ""
		}
	}

	if err := h.service.Apply(r.Context(), kind, id, sub); err != nil {
		if key != "" {
			if rerr := h.idempotency.Release(r.Context(), key); rerr != nil {
				h.logger.Warn("idempotency release", slog.Any("error", rerr))
			}
		}
		if h.guard.Expire(w, r, err) {
			return
		}
		h.logger.Warn("apply failed", slog.String("kind", string(kind)), slog.Int64("id", id), slog.Any("error", err))
		msg := backend.ErrorMessage(err, "Не удалось отправить отклик. Проверьте данные и попробуйте снова.")
		h.render(w, r, http.StatusBadGateway, data, map[string]string{"general": msg})
		return
	}

	shared.Flash(r.Context(), shared.FlashSuccess, "Отклик успешно отправлен! Ваше резюме поступило в личный кабинет HR компании.")
	http.Redirect(w, r, rbac.HomePath, http.StatusSeeOther)
}

func fileErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFile):
		return "Допустимые форматы: PDF, DOC, DOCX"
	case errors.Is(err, ErrFileTooLarge):
		return "Файл слишком большой"
	default:
		return "Некорректный файл"
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data applyPageData, errs map[string]string) {
	data.Extensions = AllowedExtensions
	data.MaxBytes = h.service.MaxBytes()
	title := "Отклик на вакансию"
	if data.Kind == listings.KindInternship {
		title = "Отклик на стажировку"
	}
	viewData := view.PageData(r, h.csrfManager, title)
	viewData.Errors = errs
	viewData.Data = data
	if err := h.templates.RenderStatus(w, status, "pages/apply.html", viewData); err != nil {
		h.logger.Error("render apply", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
