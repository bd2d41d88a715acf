// Package password provides credential hashing for API users.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the shortest accepted password.
const MinLength = 8

// Hash derives a bcrypt hash from a plaintext password.
func Hash(plaintext string) (string, error) {
	if len(plaintext) < MinLength {
		return "", errors.New("password is too short")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether plaintext matches the stored hash.
func Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
