package view

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/authstore"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestNavFollowsRole(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/login.html", TemplateData{Title: "Вход"}))
	body := rec.Body.String()
	assert.Contains(t, body, `href="/register"`)
	assert.NotContains(t, body, `href="/admin-dashboard"`)

	rec = httptest.NewRecorder()
	admin := &authstore.User{ID: 1, Email: "root@example.com", Role: authstore.RoleAdmin}
	require.NoError(t, engine.Render(rec, "pages/login.html", TemplateData{Title: "Вход", User: admin}))
	body = rec.Body.String()
	assert.Contains(t, body, `href="/admin-dashboard"`)
	assert.NotContains(t, body, `href="/create-vacancy"`)
}

func TestRenderFailureWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	assert.Error(t, engine.Render(rec, "pages/missing.html", TemplateData{}))
	assert.Zero(t, rec.Body.Len())
}

func TestFormatSalary(t *testing.T) {
	lo, hi := 120000.0, 150000.5
	got := FormatSalary(&lo, &hi, "RUB")
	assert.True(t, strings.HasPrefix(got, "от 120"), got)
	assert.Contains(t, got, "до 150")
	assert.True(t, strings.HasSuffix(got, "RUB"), got)
	assert.NotContains(t, got, "120000", "expected digit grouping")

	assert.Equal(t, "", FormatSalary(nil, nil, "RUB"))
	zero := 0.0
	assert.Equal(t, "", FormatSalary(&zero, nil, "RUB"))
}

func TestFormatDateAndRoleLabel(t *testing.T) {
	assert.Equal(t, "05.03.2025 14:30", FormatDate("2025-03-05T14:30:00"))
	assert.Equal(t, "05.03.2025 14:30", FormatDate("2025-03-05T14:30:00.123456"))
	assert.Equal(t, "05.03.2025 14:30", FormatDate("2025-03-05T14:30:00Z"))
	assert.Equal(t, "soon", FormatDate("soon"))
	assert.Equal(t, "Представитель ВУЗа", RoleLabel(authstore.RoleUniversity))
	assert.Equal(t, "ghost", RoleLabel(authstore.Role("ghost")))
}
