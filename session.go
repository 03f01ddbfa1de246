package main

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the login state owned by the caller. It is a plain value:
// Login and Logout return new sessions and never modify the receiver.
type Session struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type accessClaims struct {
	PreferredUsername string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// NewSession builds a session for token. JWT claims are read without
// verifying the signature (the server does that), only to learn the user
// and the expiry. Opaque tokens give a session without expiry.
func NewSession(token string) Session {
	s := Session{Token: token}
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return s
	}
	s.Subject = claims.Subject
	if claims.PreferredUsername != "" {
		s.Subject = claims.PreferredUsername
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}

// Login returns the session holding token.
func (s Session) Login(token string) Session {
	return NewSession(token)
}

// Logout returns the empty session.
func (s Session) Logout() Session {
	return Session{}
}

// LoggedIn reports whether the session holds a token that is not expired at now.
func (s Session) LoggedIn(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// WithDefaultExpiry sets the expiry to now+ttl when the token did not carry one.
func (s Session) WithDefaultExpiry(now time.Time, ttl time.Duration) Session {
	if s.Token != "" && s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}
