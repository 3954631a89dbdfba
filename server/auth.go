package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parley/fault"
)

// Principal is the authenticated caller identity. Anonymous-but-
// authenticated identities are fine as long as the ID is stable, since it
// attributes usage events.
type Principal struct {
	ID string
}

// Authenticator validates bearer tokens on inbound requests. Tokens are
// HMAC-signed JWTs carrying the principal ID as subject.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate extracts and verifies the bearer token. Any absence or
// defect is UNAUTHENTICATED; this runs before all other request validation.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Principal{}, fault.New(fault.KindUnauthenticated, "authentication required")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Principal{}, fault.New(fault.KindUnauthenticated, "malformed authorization header")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, fault.Wrap(fault.KindUnauthenticated, "invalid token", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return Principal{}, fault.New(fault.KindUnauthenticated, "token carries no principal")
	}

	return Principal{ID: subject}, nil
}

// Issue mints a token for the given principal. Used by the server CLI to
// hand out client credentials and by tests.
func (a *Authenticator) Issue(principalID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   principalID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
