// Package identity authenticates operators and issues signed sessions.
package identity

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// RoleAdmin is the only role this service hands out.
const RoleAdmin = "admin"

// EnvAuthenticator checks credentials against a single operator account
// configured through the environment. The password is stored as a bcrypt
// hash, never in clear text.
type EnvAuthenticator struct {
	email        string
	passwordHash []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewEnvAuthenticator creates an authenticator for one operator account.
// An empty email or hash disables login.
func NewEnvAuthenticator(email, passwordHash string, ttl time.Duration) *EnvAuthenticator {
	return &EnvAuthenticator{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Authenticate implements ports.Authenticator.
func (a *EnvAuthenticator) Authenticate(_ context.Context, creds domain.Credentials) (*domain.Session, error) {
	if a.email == "" || len(a.passwordHash) == 0 {
		return nil, domain.NewServiceError(domain.ErrUnauthorized, "operator login disabled", domain.KindAuthentication)
	}

	email := strings.ToLower(strings.TrimSpace(creds.Email))
	// Always run bcrypt so a wrong email costs the same as a wrong password.
	pwErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(creds.Password))
	if email != a.email || pwErr != nil {
		return nil, domain.NewServiceError(domain.ErrUnauthorized, "", domain.KindAuthentication)
	}

	return &domain.Session{
		Subject:   a.email,
		Role:      RoleAdmin,
		ExpiresAt: a.now().Add(a.ttl),
	}, nil
}
