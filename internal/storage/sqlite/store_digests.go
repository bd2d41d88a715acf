package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/agent/prism"
)

// PutDigest stores the latest predictive snapshot for a workspace.
func (s *Store) PutDigest(ctx context.Context, digest prism.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(digest.WorkspaceID) == "" {
		return fmt.Errorf("workspace id is required")
	}

	payload, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO digests (
	workspace_id, generated_at, payload
) VALUES (?, ?, ?)
ON CONFLICT(workspace_id) DO UPDATE SET
	generated_at = excluded.generated_at,
	payload = excluded.payload
`,
		digest.WorkspaceID,
		toMillis(digest.GeneratedAt),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("put digest: %w", err)
	}
	return nil
}

// GetDigest fetches the most recent digest for a workspace.
func (s *Store) GetDigest(ctx context.Context, workspaceID string) (prism.Digest, error) {
	if err := ctx.Err(); err != nil {
		return prism.Digest{}, err
	}
	if s == nil || s.sqlDB == nil {
		return prism.Digest{}, fmt.Errorf("storage is not configured")
	}

	var payload string
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT payload
FROM digests
WHERE workspace_id = ?
`, strings.TrimSpace(workspaceID)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prism.Digest{}, prism.ErrNotFound
		}
		return prism.Digest{}, fmt.Errorf("get digest: %w", err)
	}

	var digest prism.Digest
	if err := json.Unmarshal([]byte(payload), &digest); err != nil {
		return prism.Digest{}, fmt.Errorf("unmarshal digest: %w", err)
	}
	return digest, nil
}
