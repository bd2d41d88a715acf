// Package identity defines API user accounts and their persistence contract.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/platform/id"
)

// ErrNotFound indicates a requested user record is missing.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists indicates the email is already registered.
var ErrAlreadyExists = errors.New("user already exists")

// User stores one API user account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a user record with a generated ID and timestamps.
func NewUser(email, displayName, passwordHash string, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("email is invalid: %w", err)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email
	}
	if passwordHash == "" {
		return User{}, errors.New("password hash is required")
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:           userID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// UserStore persists API user records.
type UserStore interface {
	PutUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}
