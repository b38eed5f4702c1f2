package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials holds the configured administrator identity: a
// single email plus a bcrypt hash of the password. There is no admin
// record in the store.
type AdminCredentials struct {
	Email        string
	PasswordHash string
}

// Verify checks a login attempt against the configured credentials.
// The email comparison is constant-time over the normalized form.
func (c AdminCredentials) Verify(email, password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(email))
	expected := strings.ToLower(strings.TrimSpace(c.Email))

	emailMatch := subtle.ConstantTimeCompare([]byte(normalized), []byte(expected)) == 1

	hashErr := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password))

	return emailMatch && hashErr == nil
}
