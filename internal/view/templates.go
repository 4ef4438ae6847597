package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/rbac"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *authstore.User
	Errors      map[string]string
	Data        any
}

var printer = message.NewPrinter(language.Russian)

var roleLabels = map[authstore.Role]string{
	authstore.RoleAdmin:      "Администратор ОЭЗ",
	authstore.RoleHR:         "Представитель компании (HR)",
	authstore.RoleUniversity: "Представитель ВУЗа",
	authstore.RoleApplicant:  "Соискатель",
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(Funcs()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Funcs exposes the template helpers.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate":   FormatDate,
		"formatSalary": FormatSalary,
		"roleLabel":    RoleLabel,
		"join":         strings.Join,
		"hasRole": func(user *authstore.User, roles ...string) bool {
			allowed := make([]authstore.Role, 0, len(roles))
			for _, r := range roles {
				allowed = append(allowed, authstore.Role(r))
			}
			return rbac.HasRole(user, allowed...)
		},
		"dict":     dict,
		"truncate": func(n int, s string) string {
			runes := []rune(s)
			if len(runes) <= n {
				return s
			}
			return string(runes[:n]) + "..."
		},
	}
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}

// Render executes a named template with TemplateData. Output is buffered so
// a failing template never leaves a half-written page.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RoleLabel is the human name of a role.
func RoleLabel(role authstore.Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return string(role)
}

// FormatSalary renders an optional range such as "от 100 000 до 150 000 RUB".
func FormatSalary(min, max *float64, currency string) string {
	parts := make([]string, 0, 3)
	if min != nil && *min > 0 {
		parts = append(parts, "от "+printer.Sprint(number.Decimal(*min, number.MaxFractionDigits(2))))
	}
	if max != nil && *max > 0 {
		parts = append(parts, "до "+printer.Sprint(number.Decimal(*max, number.MaxFractionDigits(2))))
	}
	if len(parts) == 0 {
		return ""
	}
	if currency != "" {
		parts = append(parts, currency)
	}
	return strings.Join(parts, " ")
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"}

// FormatDate renders a backend timestamp as dd.mm.yyyy hh:mm. Unparseable
// input is returned unchanged.
func FormatDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02.01.2006 15:04")
		}
	}
	return raw
}

// PageData assembles the fields every page needs: CSRF token, the pending
// flash, the current path and the signed-in user.
func PageData(r *http.Request, csrf *shared.CSRFManager, title string) TemplateData {
	ctx := r.Context()
	data := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Flash:       shared.PopFlash(ctx),
		User:        authstore.SnapshotFromContext(ctx).User,
	}
	if csrf != nil {
		if token, err := csrf.EnsureToken(shared.SessionFromContext(ctx)); err == nil {
			data.CSRFToken = token
		}
	}
	return data
}
