// Package session derives the signed-in user from a bearer token and gates
// access on it.
//
// Tokens are decoded without signature verification. The note store
// verifies signatures; the client only needs the claims to decide whether
// a token is worth sending.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the signed-in user as described by the token's claims.
type Session struct {
	Subject   string    `json:"subject"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is over at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

var parser = jwt.NewParser()

// Decode returns the session carried by token, or nil when the token is
// empty, malformed, missing its subject or expiry, or expired at now.
func Decode(token string, now time.Time) *Session {
	s, err := Parse(token, now)
	if err != nil {
		return nil
	}
	return s
}

// Parse is Decode with the reason for rejection.
func Parse(token string, now time.Time) (*Session, error) {
	if token == "" {
		return nil, errors.New("no token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("malformed token: %w", err)
	}

	subject := claimString(claims, "user_id")
	if subject == "" {
		subject = claimString(claims, "sub")
	}
	if subject == "" {
		return nil, errors.New("token has no subject")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("bad exp claim: %w", err)
	}
	if exp == nil {
		return nil, errors.New("token has no expiry")
	}

	s := &Session{
		Subject:   subject,
		Username:  claimString(claims, "username"),
		ExpiresAt: exp.Time,
	}
	if s.Expired(now) {
		return nil, fmt.Errorf("token expired at %s", s.ExpiresAt.Format(time.RFC3339))
	}
	return s, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
