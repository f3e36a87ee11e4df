package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when an empty string is given to HashPassword.
var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword returns a bcrypt hash using the given cost.  bcrypt salts
// internally, so two hashes of the same input differ.  Hashing an empty
// password is rejected outright.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and plain password.  It
// returns false, never an error, for empty or malformed inputs.
func VerifyPassword(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
