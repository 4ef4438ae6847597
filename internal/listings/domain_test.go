package listings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() Draft {
	return Draft{
		Title:             "Инженер-технолог",
		CompanyName:       "Микрон",
		WorkLocation:      "МИКРОН",
		WorkSchedule:      "Микроэлектроника",
		Responsibilities:  "Сопровождение техпроцесса",
		Requirements:      "Профильное образование",
		AgreePersonalData: true,
	}
}

func TestParseSalary(t *testing.T) {
	v, err := ParseSalary("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseSalary(" 120 000,50 ")
	require.NoError(t, err)
	assert.InDelta(t, 120000.5, *v, 0.001)

	_, err = ParseSalary("много")
	assert.Error(t, err)
	_, err = ParseSalary("-5")
	assert.Error(t, err)
	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "Infinity", "1e400"} {
		_, err = ParseSalary(raw)
		assert.Error(t, err, raw)
	}
}

func TestPayloadNullsBlankSalaryAndSetsInternshipCurrency(t *testing.T) {
	draft := validDraft()
	draft.SalaryMax = "90000"

	p, err := draft.Payload(KindVacancy)
	require.NoError(t, err)
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title":"Инженер-технолог","company_name":"Микрон","work_location":"МИКРОН",
		"work_schedule":"Микроэлектроника","responsibilities":"Сопровождение техпроцесса",
		"requirements":"Профильное образование","salary_min":null,"salary_max":90000,
		"agree_personal_data":true}`, string(data))

	p, err = draft.Payload(KindInternship)
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, p.SalaryCurrency)
}

func TestValidate(t *testing.T) {
	v := NewValidator()
	assert.Empty(t, Validate(v, validDraft()))

	bad := validDraft()
	bad.WorkLocation = "ЛУНА"
	bad.WorkSchedule = "Астрология"
	bad.SalaryMin = "abc"
	bad.AgreePersonalData = false
	errs := Validate(v, bad)
	assert.Contains(t, errs, "work_location")
	assert.Contains(t, errs, "work_schedule")
	assert.Equal(t, "Введите число", errs["salary_min"])
	assert.Equal(t, "Необходимо согласие на обработку персональных данных", errs["agree_personal_data"])

	inverted := validDraft()
	inverted.SalaryMin, inverted.SalaryMax = "100", "50"
	assert.Equal(t, "Верхняя граница меньше нижней", Validate(v, inverted)["salary_max"])

	empty := Validate(v, Draft{})
	assert.Equal(t, "Обязательное поле", empty["title"])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("internship")
	require.NoError(t, err)
	assert.Equal(t, "internships", k.Collection())
	_, err = ParseKind("job")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
