package identity

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

const issuer = "petbox-payments"

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewSessionIssuer creates an issuer for secret. With an empty secret a
// random key is generated, so tokens do not survive a restart.
func NewSessionIssuer(secret string) (*SessionIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	return &SessionIssuer{secret: key, now: time.Now}, nil
}

// Issue returns a signed token for s.
func (i *SessionIssuer) Issue(s *domain.Session) (string, error) {
	claims := sessionClaims{
		Role: s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.Subject,
			IssuedAt:  jwt.NewNumericDate(i.now()),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Verify parses tokenStr and returns the session it carries.
func (i *SessionIssuer) Verify(tokenStr string) (*domain.Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrUnauthorized, "invalid session", domain.KindAuthentication)
	}
	return &domain.Session{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
