// Package identity issues and validates the session identities the rest of
// the system treats as opaque: a messaging-platform subject id for
// patients, a staff account for the dashboard.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role distinguishes the two session kinds.
type Role string

const (
	RolePatient Role = "patient"
	RoleStaff   Role = "staff"
)

// Session is the explicit session object passed to every directory and
// queue operation. Subject is opaque; no domain code inspects it.
type Session struct {
	Subject string
	Role    Role
}

var (
	// ErrInvalidToken covers expired, malformed and mis-signed session tokens.
	ErrInvalidToken = errors.New("identity: invalid session token")

	// ErrInvalidCredentials is returned on a failed staff login.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// Sessions mints and parses HMAC-signed session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions builds a token service. An empty secret disables issuing and
// makes every parse fail, which is the safe default for a misconfigured
// environment.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token carrying the subject and role.
func (s *Sessions) Issue(subject string, role Role) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("identity: session secret not configured")
	}
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("identity: sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the session it carries.
func (s *Sessions) Parse(tokenString string) (Session, error) {
	if len(s.secret) == 0 {
		return Session{}, ErrInvalidToken
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}
	if claims.Subject == "" || (claims.Role != RolePatient && claims.Role != RoleStaff) {
		return Session{}, ErrInvalidToken
	}
	return Session{Subject: claims.Subject, Role: claims.Role}, nil
}
