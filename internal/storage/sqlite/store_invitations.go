package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/workspace/domain"
	"github.com/hyvve/hyvve/internal/workspace/storage"
)

const invitationColumns = `id, workspace_id, email, role, token, status, invited_by, created_at, updated_at, expires_at`

// PutInvitation persists an invitation record.
func (s *Store) PutInvitation(ctx context.Context, invitation domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(invitation.ID) == "" {
		return fmt.Errorf("invitation id is required")
	}
	if strings.TrimSpace(invitation.Token) == "" {
		return fmt.Errorf("invitation token is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO invitations (
	id, workspace_id, email, role, token, status, invited_by, created_at, updated_at, expires_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	role = excluded.role,
	token = excluded.token,
	status = excluded.status,
	updated_at = excluded.updated_at,
	expires_at = excluded.expires_at
`,
		invitation.ID,
		invitation.WorkspaceID,
		invitation.Email,
		domain.RoleLabel(invitation.Role),
		invitation.Token,
		domain.InvitationStatusLabel(invitation.Status),
		invitation.InvitedBy,
		toMillis(invitation.CreatedAt),
		toMillis(invitation.UpdatedAt),
		toMillis(invitation.ExpiresAt),
	)
	if isUniqueConstraintError(err) {
		return storage.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("put invitation: %w", err)
	}
	return nil
}

// GetInvitation fetches one invitation scoped to a workspace.
func (s *Store) GetInvitation(ctx context.Context, workspaceID, invitationID string) (domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Invitation{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Invitation{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+invitationColumns+`
FROM invitations
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(invitationID))
	return scanInvitationRow(row.Scan)
}

// GetInvitationByToken fetches an invitation by its claim token.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Invitation{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Invitation{}, fmt.Errorf("storage is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Invitation{}, fmt.Errorf("invitation token is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+invitationColumns+`
FROM invitations
WHERE token = ?
`, token)
	return scanInvitationRow(row.Scan)
}

// ListInvitations returns a page of a workspace's invitations ordered by ID.
func (s *Store) ListInvitations(ctx context.Context, workspaceID string, pageSize int, pageToken string) (storage.InvitationPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.InvitationPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.InvitationPage{}, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return storage.InvitationPage{}, fmt.Errorf("workspace id is required")
	}
	pageSize = clampPageSize(pageSize)

	limit := pageSize + 1
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+invitationColumns+`
FROM invitations
WHERE workspace_id = ? AND id > ?
ORDER BY id
LIMIT ?
`, workspaceID, strings.TrimSpace(pageToken), limit)
	if err != nil {
		return storage.InvitationPage{}, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	page := storage.InvitationPage{Invitations: make([]domain.Invitation, 0, pageSize)}
	for rows.Next() {
		invitation, err := scanInvitationRow(rows.Scan)
		if err != nil {
			return storage.InvitationPage{}, err
		}
		page.Invitations = append(page.Invitations, invitation)
	}
	if err := rows.Err(); err != nil {
		return storage.InvitationPage{}, fmt.Errorf("iterate invitation rows: %w", err)
	}

	if len(page.Invitations) > pageSize {
		page.NextPageToken = page.Invitations[pageSize-1].ID
		page.Invitations = page.Invitations[:pageSize]
	}
	return page, nil
}

// AcceptInvitation records the new membership and the settled invitation in
// one transaction, so a crash between the writes cannot leave a member behind
// a still-claimable invitation. Returns storage.ErrAlreadyExists when the
// user is already a member.
func (s *Store) AcceptInvitation(ctx context.Context, member domain.Member, invitation domain.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(member.WorkspaceID) == "" || strings.TrimSpace(member.UserID) == "" {
		return fmt.Errorf("workspace id and user id are required")
	}
	if strings.TrimSpace(invitation.ID) == "" {
		return fmt.Errorf("invitation id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept invitation: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO workspace_members (
	workspace_id, user_id, role, invited_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?)
`,
		member.WorkspaceID,
		member.UserID,
		domain.RoleLabel(member.Role),
		member.InvitedBy,
		toMillis(member.CreatedAt),
		toMillis(member.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return storage.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert accepted member: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
UPDATE invitations
SET status = ?, updated_at = ?
WHERE id = ?
`,
		domain.InvitationStatusLabel(invitation.Status),
		toMillis(invitation.UpdatedAt),
		invitation.ID,
	)
	if err != nil {
		return fmt.Errorf("settle accepted invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept invitation: %w", err)
	}
	return nil
}

// HasPendingInvitation reports whether a claimable invitation exists for an
// email in a workspace. Pending rows whose deadline passed do not count.
func (s *Store) HasPendingInvitation(ctx context.Context, workspaceID, email string, nowMillis int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	var count int
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM invitations
WHERE workspace_id = ? AND email = ? AND status = ? AND expires_at > ?
`, strings.TrimSpace(workspaceID), strings.ToLower(strings.TrimSpace(email)),
		domain.InvitationStatusLabel(domain.InvitationStatusPending), nowMillis)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("count pending invitations: %w", err)
	}
	return count > 0, nil
}

// DeleteSettledInvitationsBefore removes settled invitations last updated
// before the cutoff, along with pending invitations whose deadline passed
// before it. Returns how many rows were deleted.
func (s *Store) DeleteSettledInvitationsBefore(ctx context.Context, cutoffMillis int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	pendingLabel := domain.InvitationStatusLabel(domain.InvitationStatusPending)
	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM invitations
WHERE (status != ? AND updated_at < ?)
   OR (status = ? AND expires_at < ?)
`, pendingLabel, cutoffMillis, pendingLabel, cutoffMillis)
	if err != nil {
		return 0, fmt.Errorf("delete settled invitations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("settled invitations rows affected: %w", err)
	}
	return int(affected), nil
}

func scanInvitationRow(scan func(...any) error) (domain.Invitation, error) {
	var invitation domain.Invitation
	var role string
	var status string
	var createdAt int64
	var updatedAt int64
	var expiresAt int64
	if err := scan(
		&invitation.ID,
		&invitation.WorkspaceID,
		&invitation.Email,
		&role,
		&invitation.Token,
		&status,
		&invitation.InvitedBy,
		&createdAt,
		&updatedAt,
		&expiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Invitation{}, storage.ErrNotFound
		}
		return domain.Invitation{}, fmt.Errorf("scan invitation: %w", err)
	}
	invitation.Role = domain.RoleFromLabel(role)
	invitation.Status = domain.InvitationStatusFromLabel(status)
	invitation.CreatedAt = fromMillis(createdAt)
	invitation.UpdatedAt = fromMillis(updatedAt)
	invitation.ExpiresAt = fromMillis(expiresAt)
	return invitation, nil
}
