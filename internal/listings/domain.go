package listings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownKind is returned for a path segment that names no listing kind.
var ErrUnknownKind = errors.New("listings: unknown kind")

// Kind distinguishes vacancies from internships.
type Kind string

const (
	KindVacancy    Kind = "vacancy"
	KindInternship Kind = "internship"
)

// ParseKind validates a kind from a URL segment.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindVacancy:
		return KindVacancy, nil
	case KindInternship:
		return KindInternship, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Collection is the plural backend path segment.
func (k Kind) Collection() string {
	if k == KindInternship {
		return "internships"
	}
	return "vacancies"
}

// DefaultCurrency is applied to internships, whose form has no currency input.
const DefaultCurrency = "RUB"

// WorkLocations are the Technopolis sites offered on the posting forms.
var WorkLocations = []string{"АЛАБУШЕВО", "ПЕЧАТНИКИ", "РУДНЕВО", "МИКРОН", "АНГСТРЕМ", "МИЭТ"}

// Specialties fill the work_schedule field.
var Specialties = []string{
	"HR", "IT", "Административная работа", "Другое", "Логистика", "Маркетинг",
	"Медицина", "Микроэлектроника", "Продажи", "Производство", "Финансы", "Юриспруденция",
}

// Listing is a vacancy or an internship as returned by the backend.
type Listing struct {
	ID               int64    `json:"id"`
	Kind             Kind     `json:"-"`
	Title            string   `json:"title"`
	CompanyName      string   `json:"company_name"`
	WorkLocation     string   `json:"work_location"`
	WorkSchedule     string   `json:"work_schedule"`
	Responsibilities string   `json:"responsibilities"`
	Requirements     string   `json:"requirements"`
	Conditions       string   `json:"conditions,omitempty"`
	AdditionalInfo   string   `json:"additional_info,omitempty"`
	SalaryMin        *float64 `json:"salary_min"`
	SalaryMax        *float64 `json:"salary_max"`
	SalaryCurrency   string   `json:"salary_currency,omitempty"`
	IsPublished      bool     `json:"is_published"`
	RejectionReason  string   `json:"rejection_reason,omitempty"`
	OwnerID          int64    `json:"owner_id,omitempty"`
	CreatedAt        string   `json:"created_at,omitempty"`
}

// Rejected reports whether a moderator turned the listing down.
func (l Listing) Rejected() bool {
	return strings.TrimSpace(l.RejectionReason) != ""
}

// Draft is the posting form. Salary fields stay strings until Payload so the
// form can be re-rendered exactly as typed.
type Draft struct {
	Title             string `form:"title" validate:"required,max=255"`
	CompanyName       string `form:"company_name" validate:"required,max=255"`
	WorkLocation      string `form:"work_location" validate:"required,work_location"`
	WorkSchedule      string `form:"work_schedule" validate:"required,specialty"`
	Responsibilities  string `form:"responsibilities" validate:"required"`
	Requirements      string `form:"requirements" validate:"required"`
	Conditions        string `form:"conditions"`
	AdditionalInfo    string `form:"additional_info"`
	SalaryMin         string `form:"salary_min" validate:"omitempty,salary"`
	SalaryMax         string `form:"salary_max" validate:"omitempty,salary"`
	AgreePersonalData bool   `form:"agree_personal_data" validate:"required"`
}

// payload is the POST /vacancies/ and /internships/ body.
type payload struct {
	Title             string   `json:"title"`
	CompanyName       string   `json:"company_name"`
	WorkLocation      string   `json:"work_location"`
	WorkSchedule      string   `json:"work_schedule"`
	Responsibilities  string   `json:"responsibilities"`
	Requirements      string   `json:"requirements"`
	Conditions        *string  `json:"conditions,omitempty"`
	AdditionalInfo    *string  `json:"additional_info,omitempty"`
	SalaryMin         *float64 `json:"salary_min"`
	SalaryMax         *float64 `json:"salary_max"`
	SalaryCurrency    string   `json:"salary_currency,omitempty"`
	AgreePersonalData bool     `json:"agree_personal_data"`
}

// ParseSalary maps a blank input to nil and anything else to a float. A
// decimal comma is accepted.
func ParseSalary(raw string) (*float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("listings: salary %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("listings: salary %q is not a number", raw)
	}
	if v < 0 {
		return nil, fmt.Errorf("listings: salary %q is negative", raw)
	}
	return &v, nil
}

// Payload converts the draft into the backend body for kind.
func (d Draft) Payload(kind Kind) (payload, error) {
	min, err := ParseSalary(d.SalaryMin)
	if err != nil {
		return payload{}, err
	}
	max, err := ParseSalary(d.SalaryMax)
	if err != nil {
		return payload{}, err
	}
	p := payload{
		Title:             strings.TrimSpace(d.Title),
		CompanyName:       strings.TrimSpace(d.CompanyName),
		WorkLocation:      d.WorkLocation,
		WorkSchedule:      d.WorkSchedule,
		Responsibilities:  strings.TrimSpace(d.Responsibilities),
		Requirements:      strings.TrimSpace(d.Requirements),
		Conditions:        optional(d.Conditions),
		SalaryMin:         min,
		SalaryMax:         max,
		AgreePersonalData: d.AgreePersonalData,
	}
	switch kind {
	case KindInternship:
		p.SalaryCurrency = DefaultCurrency
	default:
		p.AdditionalInfo = optional(d.AdditionalInfo)
	}
	return p, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
