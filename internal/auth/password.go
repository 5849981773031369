// Package auth implements the authentication core: password hashing, signed
// session tokens and the login/registration/reset flows composed from them.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when an empty plaintext is passed to Hash.
var ErrEmptyPassword = errors.New("password must not be empty")

// Hasher hashes and verifies user passwords with bcrypt.  Cost is injected
// from configuration; bcrypt embeds the salt in the hash.
type Hasher struct {
	Cost int
}

// Hash returns the bcrypt hash of plain using the configured cost.
func (h Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt hash and a plain password.  It reports
// false on any mismatch and never returns an error to the caller.
func (h Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
