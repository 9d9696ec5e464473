package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// StaffAuthenticator validates the dashboard's email/password login
// against a single configured account. The password is configured as a
// hex SHA-256 digest so the plaintext never sits in the environment.
type StaffAuthenticator struct {
	email       string
	passwordSHA string
}

// NewStaffAuthenticator builds an authenticator; empty values disable
// staff login entirely.
func NewStaffAuthenticator(email, passwordSHA string) *StaffAuthenticator {
	return &StaffAuthenticator{
		email:       strings.ToLower(strings.TrimSpace(email)),
		passwordSHA: strings.ToLower(strings.TrimSpace(passwordSHA)),
	}
}

// Authenticate checks the credentials in constant time.
func (a *StaffAuthenticator) Authenticate(email, password string) error {
	if a.email == "" || a.passwordSHA == "" {
		return ErrInvalidCredentials
	}
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])

	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(a.email))
	passOK := subtle.ConstantTimeCompare([]byte(digest), []byte(a.passwordSHA))
	if emailOK&passOK != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
