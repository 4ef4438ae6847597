package applications

import (
	"context"
	"fmt"
	"strconv"

	"github.com/technopolis/careers-portal/internal/listings"
	"github.com/technopolis/careers-portal/internal/platform/backend"
)

// Service submits and lists applications.
type Service struct {
	client   *backend.Client
	maxBytes int64
}

// NewService constructs the service. Résumé files above maxBytes are refused
// before any request is made.
func NewService(client *backend.Client, maxBytes int64) *Service {
	return &Service{client: client, maxBytes: maxBytes}
}

// MaxBytes reports the résumé size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Apply sends a résumé for listing id of kind as multipart/form-data. A file
// takes precedence over the questionnaire.
func (s *Service) Apply(ctx context.Context, kind listings.Kind, id int64, sub Submission) error {
	var body backend.Body
	switch {
	case sub.File != nil:
		if err := CheckFile(sub.File.Name, sub.File.Size, s.maxBytes); err != nil {
			return err
		}
		body = backend.Multipart(nil, backend.File{Field: "resume_file", Filename: sub.File.Name, Content: sub.File.Content})
	case sub.Form != nil:
		data, err := sub.Form.JSON()
		if err != nil {
			return fmt.Errorf("applications: encode resume: %w", err)
		}
		body = backend.Multipart(map[string]string{"resume_data": data})
	default:
		return ErrEmptySubmission
	}
	target := "/applications/" + string(kind) + "/" + strconv.FormatInt(id, 10)
	if err := s.client.Post(ctx, target, body, nil); err != nil {
		return fmt.Errorf("applications: apply %s %d: %w", kind, id, err)
	}
	return nil
}

// Received lists applications to the caller's own listings of kind.
func (s *Service) Received(ctx context.Context, kind listings.Kind) ([]Application, error) {
	var items []Application
	if err := s.client.Get(ctx, "/applications/my-"+string(kind)+"-applications", &items); err != nil {
		return nil, fmt.Errorf("applications: received %s: %w", kind, err)
	}
	return items, nil
}

// Resume opens an uploaded résumé file by its stored name.
func (s *Service) Resume(ctx context.Context, name string) (*backend.Download, error) {
	if !ValidFileName(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, name)
	}
	dl, err := s.client.Open(ctx, "/applications/resume/"+name)
	if err != nil {
		return nil, fmt.Errorf("applications: resume %s: %w", name, err)
	}
	return dl, nil
}
