package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/activity"
)

// PutEvent appends one journal entry.
func (s *Store) PutEvent(ctx context.Context, event activity.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("event id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO activity_events (
	id, workspace_id, kind, actor_id, subject_id, summary, occurred_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		event.ID,
		event.WorkspaceID,
		event.Kind,
		event.ActorID,
		event.SubjectID,
		event.Summary,
		toMillis(event.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit events, newest first.
func (s *Store) ListEvents(ctx context.Context, workspaceID string, limit int) ([]activity.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, workspace_id, kind, actor_id, subject_id, summary, occurred_at
FROM activity_events
WHERE workspace_id = ?
ORDER BY occurred_at DESC, id DESC
LIMIT ?
`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []activity.Event
	for rows.Next() {
		var event activity.Event
		var occurredAt int64
		if err := rows.Scan(
			&event.ID,
			&event.WorkspaceID,
			&event.Kind,
			&event.ActorID,
			&event.SubjectID,
			&event.Summary,
			&occurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.OccurredAt = fromMillis(occurredAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

// DeleteEventsBefore prunes events older than the cutoff and reports how
// many rows were removed.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoffMillis int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM activity_events
WHERE occurred_at < ?
`, cutoffMillis)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events rows affected: %w", err)
	}
	return int(affected), nil
}
