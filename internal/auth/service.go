package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
)

// Service talks to the backend auth and user endpoints.
type Service struct {
	client *backend.Client
}

// NewService constructs a new Service.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// Authenticate exchanges credentials for a token and resolves the user it
// belongs to. The returned snapshot always carries both token and user.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (authstore.Snapshot, error) {
	form := url.Values{
		"username": {strings.TrimSpace(creds.Email)},
		"password": {creds.Password},
	}
	var resp tokenResponse
	if err := s.client.Post(ctx, "/auth/token", backend.Form(form), &resp); err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			return authstore.Snapshot{}, ErrInvalidCredentials
		}
		return authstore.Snapshot{}, fmt.Errorf("auth: request token: %w", err)
	}
	if resp.AccessToken == "" {
		return authstore.Snapshot{}, ErrNoIdentity
	}

	user := resp.User
	if user == nil || !user.Role.Valid() {
		decoded, err := UserFromToken(resp.AccessToken)
		if err != nil {
			return authstore.Snapshot{}, err
		}
		user = decoded
	}
	if user.Email == "" {
		user.Email = strings.TrimSpace(creds.Email)
	}
	return authstore.Snapshot{Token: resp.AccessToken, User: user}, nil
}

// Register creates an account via POST /users/.
func (s *Service) Register(ctx context.Context, reg Registration) (*authstore.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	var created authstore.User
	if err := s.client.Post(ctx, "/users/", backend.JSON(reg), &created); err != nil {
		return nil, fmt.Errorf("auth: register: %w", err)
	}
	return &created, nil
}
