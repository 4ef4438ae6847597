package applications

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/technopolis/careers-portal/internal/listings"
)

var (
	// ErrUnsupportedFile rejects résumé files outside AllowedExtensions.
	ErrUnsupportedFile = errors.New("applications: unsupported resume file type")
	// ErrFileTooLarge rejects résumé files above the configured limit.
	ErrFileTooLarge = errors.New("applications: resume file too large")
	// ErrEmptySubmission is returned when neither a file nor a form is given.
	ErrEmptySubmission = errors.New("applications: resume missing")
)

// AllowedExtensions are the résumé file types the backend stores.
var AllowedExtensions = []string{".pdf", ".doc", ".docx"}

// ResumeForm is the questionnaire alternative to a résumé file.
type ResumeForm struct {
	FullName   string `form:"full_name" validate:"required,max=255"`
	Phone      string `form:"phone" validate:"required,max=32"`
	Email      string `form:"email" validate:"required,email"`
	Education  string `form:"education"`
	Experience string `form:"experience"`
	Skills     string `form:"skills"`
}

type resumeData struct {
	FullName   string  `json:"full_name"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	Education  *string `json:"education"`
	Experience *string `json:"experience"`
	Skills     *string `json:"skills"`
}

// JSON encodes the form as the resume_data field: values trimmed, blank
// optional values sent as null.
func (f ResumeForm) JSON() (string, error) {
	data, err := json.Marshal(resumeData{
		FullName:   strings.TrimSpace(f.FullName),
		Phone:      strings.TrimSpace(f.Phone),
		Email:      strings.TrimSpace(f.Email),
		Education:  blankToNil(f.Education),
		Experience: blankToNil(f.Experience),
		Skills:     blankToNil(f.Skills),
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ResumeFile is an uploaded résumé.
type ResumeFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// CheckFile enforces the extension whitelist and maxBytes.
func CheckFile(name string, size, maxBytes int64) error {
	if !slices.Contains(AllowedExtensions, strings.ToLower(path.Ext(name))) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, name)
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	return nil
}

// Submission carries exactly one of File or Form.
type Submission struct {
	File *ResumeFile
	Form *ResumeForm
}

// Application is a received response to a listing.
type Application struct {
	ID             int64           `json:"id"`
	VacancyID      *int64          `json:"vacancy_id,omitempty"`
	InternshipID   *int64          `json:"internship_id,omitempty"`
	ApplicantID    int64           `json:"applicant_id,omitempty"`
	CreatedAt      string          `json:"created_at"`
	ResumeFilePath string          `json:"resume_file_path,omitempty"`
	ResumeData     json.RawMessage `json:"resume_data,omitempty"`
}

// Target names the listing the application was sent to.
func (a Application) Target() (listings.Kind, int64) {
	if a.InternshipID != nil {
		return listings.KindInternship, *a.InternshipID
	}
	if a.VacancyID != nil {
		return listings.KindVacancy, *a.VacancyID
	}
	return "", 0
}

// ResumeField is one labelled questionnaire answer.
type ResumeField struct {
	Key   string
	Label string
	Value string
}

var resumeLabels = []struct{ key, label string }{
	{"full_name", "ФИО"},
	{"phone", "Телефон"},
	{"email", "Email"},
	{"education", "Образование"},
	{"experience", "Опыт работы"},
	{"skills", "Навыки"},
}

// Resume decodes resume_data, which the backend sends either as an object or
// as a JSON encoded string. Known fields come first in form order, unknown
// ones follow sorted by key. Undecodable data yields nil.
func (a Application) Resume() []ResumeField {
	raw := a.ResumeData
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}

	fields := make([]ResumeField, 0, len(values))
	for _, l := range resumeLabels {
		if v, ok := values[l.key]; ok {
			fields = append(fields, ResumeField{Key: l.key, Label: l.label, Value: display(v)})
			delete(values, l.key)
		}
	}
	rest := make([]string, 0, len(values))
	for k := range values {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		fields = append(fields, ResumeField{Key: k, Label: k, Value: display(values[k])})
	}
	return fields
}

func display(v any) string {
	if v == nil {
		return "—"
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "—"
	}
	return s
}

// ResumeFileName is the stored file name of an uploaded résumé, or "" when
// the applicant filled in the questionnaire.
func (a Application) ResumeFileName() string {
	if a.ResumeFilePath == "" {
		return ""
	}
	name := path.Base(strings.ReplaceAll(a.ResumeFilePath, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ValidFileName accepts a bare file name with an allowed extension.
func ValidFileName(name string) bool {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(AllowedExtensions, strings.ToLower(path.Ext(name)))
}
