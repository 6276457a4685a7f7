// Package password wraps bcrypt hashing and the account password policy.
package password

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const hashCost = 12

const (
	minLength = 8
	maxLength = 128
)

// ErrPolicy is returned when a password does not satisfy the policy.
var ErrPolicy = errors.New("password must be 8-128 characters with upper and lower case letters, a digit and a symbol, and no whitespace")

// Hash returns the bcrypt hash of plaintext.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), hashCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plaintext matches hash.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// AssertPolicy validates plaintext against the password policy.
func AssertPolicy(plaintext string) error {
	runes := []rune(plaintext)
	if len(runes) < minLength || len(runes) > maxLength {
		return ErrPolicy
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case unicode.IsSpace(r):
			return ErrPolicy
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return ErrPolicy
	}
	return nil
}
