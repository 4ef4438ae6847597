package auth

import (
	"errors"

	"github.com/technopolis/careers-portal/internal/authstore"
)

var (
	// ErrInvalidCredentials indicates the backend refused the email/password pair.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrNoIdentity indicates a token whose owner could not be determined.
	ErrNoIdentity = errors.New("auth: token carries no usable identity")
)

// SelfServiceRoles are the roles offered on the registration form. Admin
// accounts are provisioned out of band.
var SelfServiceRoles = []authstore.Role{authstore.RoleApplicant, authstore.RoleHR, authstore.RoleUniversity}

// Credentials is the login form.
type Credentials struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// Registration is the sign-up form and the POST /users/ body.
type Registration struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,min=6"`
	Role     string `form:"role" json:"role" validate:"required,oneof=applicant hr university"`
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        *authstore.User `json:"user"`
}
