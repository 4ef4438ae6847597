package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/technopolis/careers-portal/internal/authstore"
)

// UserFromToken decodes the identity claims of an access token without
// verifying its signature; the backend verifies the token on every call.
func UserFromToken(raw string) (*authstore.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}

	roleClaim, _ := claims["role"].(string)
	role, err := authstore.ParseRole(roleClaim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}

	user := &authstore.User{Role: role}
	sub, _ := claims["sub"].(string)
	if email, ok := claims["email"].(string); ok && email != "" {
		user.Email = email
	} else if strings.Contains(sub, "@") {
		user.Email = sub
	}

	for _, key := range []string{"id", "user_id"} {
		if id, ok := numericClaim(claims[key]); ok {
			user.ID = id
			break
		}
	}
	if user.ID == 0 {
		if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
			user.ID = id
		}
	}
	return user, nil
}

func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	}
	return 0, false
}
