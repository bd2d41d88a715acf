package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/identity"
)

// PutUser persists a user record.
func (s *Store) PutUser(ctx context.Context, u identity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("user email is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (
	id, email, display_name, password_hash, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	email = excluded.email,
	display_name = excluded.display_name,
	password_hash = excluded.password_hash,
	updated_at = excluded.updated_at
`,
		u.ID,
		u.Email,
		u.DisplayName,
		u.PasswordHash,
		toMillis(u.CreatedAt),
		toMillis(u.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return identity.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser fetches a user record by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (identity.User, error) {
	if err := ctx.Err(); err != nil {
		return identity.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return identity.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return identity.User{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, display_name, password_hash, created_at, updated_at
FROM users
WHERE id = ?
`, userID)
	return scanUser(row)
}

// GetUserByEmail fetches a user record by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	if err := ctx.Err(); err != nil {
		return identity.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return identity.User{}, fmt.Errorf("storage is not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return identity.User{}, fmt.Errorf("email is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, display_name, password_hash, created_at, updated_at
FROM users
WHERE email = ?
`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (identity.User, error) {
	var u identity.User
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.User{}, identity.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}
