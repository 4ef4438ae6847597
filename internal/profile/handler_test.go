package profile_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/applications"
	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/listings"
	"github.com/technopolis/careers-portal/internal/profile"
	"github.com/technopolis/careers-portal/internal/testing/portaltest"
)

const (
	activeVacancies = `[{"id":1,"title":"Технолог","company_name":"Микрон","is_published":true},
		{"id":2,"title":"Наладчик","company_name":"Микрон","is_published":false}]`
	allVacancies = `[{"id":1,"title":"Технолог","company_name":"Микрон","is_published":true},
		{"id":2,"title":"Наладчик","company_name":"Микрон","is_published":false},
		{"id":3,"title":"Сварщик","company_name":"Микрон","rejection_reason":"Не указаны условия труда"}]`
	received = `[{"id":11,"vacancy_id":1,"applicant_id":5,"created_at":"2025-03-01T10:15:00",
		"resume_data":"{\"full_name\":\"Иван Петров\",\"phone\":\"+79000000000\",\"email\":\"ivan@example.com\",\"skills\":null}"},
		{"id":12,"vacancy_id":1,"applicant_id":6,"created_at":"2025-03-02T08:00:00","resume_file_path":"uploads/resumes/cv_6.pdf"}]`
)

func setup(t *testing.T) (*portaltest.Env, *portaltest.Browser) {
	t.Helper()
	env := portaltest.New(t)
	applicationSvc := applications.NewService(env.API, 1<<20)
	svc := profile.NewService(listings.NewService(env.API), applicationSvc)
	handler := profile.NewHandler(nil, svc, applicationSvc, env.Templates, env.CSRF, env.Guard)
	return env, env.Browser(env.Router(handler.MountRoutes))
}

func TestProfileRequiresLogin(t *testing.T) {
	_, browser := setup(t)
	page := browser.Get("/profile")
	assert.Equal(t, http.StatusSeeOther, page.Status)
	assert.Equal(t, "/login?redirect_uri=%2Fprofile", page.Location)
}

func TestHRProfileSplitsPostingsAndListsApplications(t *testing.T) {
	env, browser := setup(t)
	env.Backend.On(http.MethodGet, "/vacancies/my", http.StatusOK, activeVacancies)
	env.Backend.OnQuery(http.MethodGet, "/vacancies/my", "include_rejected=true", http.StatusOK, allVacancies)
	env.Backend.On(http.MethodGet, "/applications/my-vacancy-applications", http.StatusOK, received)
	browser.LoginAs(authstore.RoleHR)

	page := browser.Get("/profile")
	require.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "Представитель компании (HR)")
	assert.Contains(t, page.Body, "Технолог")
	assert.Contains(t, page.Body, "Наладчик")
	assert.Contains(t, page.Body, "Не указаны условия труда")
	assert.Contains(t, page.Body, "Иван Петров")
	assert.Contains(t, page.Body, "01.03.2025 10:15")
	assert.Contains(t, page.Body, `href="/profile/resume/cv_6.pdf"`)

	assert.Len(t, env.Backend.Find(http.MethodGet, "/vacancies/my"), 2)
	assert.Empty(t, env.Backend.Find(http.MethodGet, "/internships/my"))
}

func TestUniversityProfileSkipsApplications(t *testing.T) {
	env, browser := setup(t)
	env.Backend.On(http.MethodGet, "/internships/my", http.StatusOK, `[{"id":4,"title":"Стажёр-аналитик","company_name":"МИЭТ"}]`)
	browser.LoginAs(authstore.RoleUniversity)

	page := browser.Get("/profile")
	require.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "Представитель ВУЗа")
	assert.Contains(t, page.Body, "Стажёр-аналитик")
	assert.Empty(t, env.Backend.Find(http.MethodGet, "/applications/my-internship-applications"))
	assert.Empty(t, env.Backend.Find(http.MethodGet, "/applications/my-vacancy-applications"))
}

func TestAdminAndApplicantProfilesMakeNoCalls(t *testing.T) {
	env, browser := setup(t)
	browser.LoginAs(authstore.RoleAdmin)
	page := browser.Get("/profile")
	require.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "Администратор ОЭЗ")
	assert.Contains(t, page.Body, `href="/admin-dashboard"`)

	browser.LoginAs(authstore.RoleApplicant)
	page = browser.Get("/profile")
	assert.Contains(t, page.Body, "Соискатель")
	assert.Empty(t, env.Backend.Requests())
}

func TestProfileBackendFailureShowsBanner(t *testing.T) {
	env, browser := setup(t)
	env.Backend.On(http.MethodGet, "/vacancies/my", http.StatusInternalServerError, `{"detail":"boom"}`)
	browser.LoginAs(authstore.RoleHR)

	page := browser.Get("/profile")
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "Не удалось загрузить данные профиля.")
}

func TestProfileExpiredTokenRedirectsToLogin(t *testing.T) {
	env, browser := setup(t)
	env.Backend.On(http.MethodGet, "/vacancies/my", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
	browser.LoginAs(authstore.RoleHR)

	page := browser.Get("/profile")
	assert.Equal(t, http.StatusSeeOther, page.Status)
	assert.Equal(t, "/login?redirect_uri=%2Fprofile", page.Location)
	assert.False(t, browser.Store().Snapshot().IsAuthenticated())
}

func TestResumeDownloadIsProxiedWithBearer(t *testing.T) {
	env, browser := setup(t)
	env.Backend.On(http.MethodGet, "/applications/resume/cv_6.pdf", http.StatusOK, "%PDF-1.4")

	browser.LoginAs(authstore.RoleApplicant)
	assert.Equal(t, "/", browser.Get("/profile/resume/cv_6.pdf").Location)

	browser.LoginAs(authstore.RoleHR)
	page := browser.Get("/profile/resume/cv_6.pdf")
	require.Equal(t, http.StatusOK, page.Status)
	assert.Equal(t, "%PDF-1.4", page.Body)
	calls := env.Backend.Find(http.MethodGet, "/applications/resume/cv_6.pdf")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer token-hr", calls[0].Authorization)

	assert.Equal(t, http.StatusNotFound, browser.Get("/profile/resume/missing.pdf").Status)
	assert.Equal(t, http.StatusNotFound, browser.Get("/profile/resume/notes.txt").Status)
}
