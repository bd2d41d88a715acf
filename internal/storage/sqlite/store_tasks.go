package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/pm/schedule"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
)

const taskColumns = `id, workspace_id, title, status, estimate_days, assignee, due_date, depends_on, created_at, updated_at`

// PutTask persists a task and its dependency edges.
func (s *Store) PutTask(ctx context.Context, task schedule.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(task.ID) == "" {
		return fmt.Errorf("task id is required")
	}

	dependsOn, err := encodeStrings(task.DependsOn)
	if err != nil {
		return err
	}

	dueDate := int64(0)
	if !task.DueDate.IsZero() {
		dueDate = toMillis(task.DueDate)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO tasks (
	id, workspace_id, title, status, estimate_days, assignee, due_date, depends_on, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	status = excluded.status,
	estimate_days = excluded.estimate_days,
	assignee = excluded.assignee,
	due_date = excluded.due_date,
	depends_on = excluded.depends_on,
	updated_at = excluded.updated_at
`,
		task.ID,
		task.WorkspaceID,
		task.Title,
		schedule.TaskStatusLabel(task.Status),
		task.EstimateDays,
		task.Assignee,
		dueDate,
		dependsOn,
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	return nil
}

// GetTask fetches one task scoped to a workspace.
func (s *Store) GetTask(ctx context.Context, workspaceID, taskID string) (schedule.Task, error) {
	if err := ctx.Err(); err != nil {
		return schedule.Task{}, err
	}
	if s == nil || s.sqlDB == nil {
		return schedule.Task{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(taskID))
	return scanTask(row.Scan)
}

// DeleteTask removes one task.
func (s *Store) DeleteTask(ctx context.Context, workspaceID, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM tasks
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(taskID))
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if affected == 0 {
		return pmstorage.ErrNotFound
	}
	return nil
}

// ListTasks returns a page of tasks ordered by ID, optionally narrowed to
// one status.
func (s *Store) ListTasks(ctx context.Context, workspaceID string, status schedule.TaskStatus, pageSize int, pageToken string) (pmstorage.TaskPage, error) {
	if err := ctx.Err(); err != nil {
		return pmstorage.TaskPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return pmstorage.TaskPage{}, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return pmstorage.TaskPage{}, fmt.Errorf("workspace id is required")
	}
	pageSize = clampPageSize(pageSize)

	query := `
SELECT ` + taskColumns + `
FROM tasks
WHERE workspace_id = ? AND id > ?
`
	args := []any{workspaceID, strings.TrimSpace(pageToken)}
	if status != schedule.TaskStatusUnspecified {
		query += "AND status = ?\n"
		args = append(args, schedule.TaskStatusLabel(status))
	}
	query += "ORDER BY id\nLIMIT ?\n"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return pmstorage.TaskPage{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	page := pmstorage.TaskPage{Tasks: make([]schedule.Task, 0, pageSize)}
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return pmstorage.TaskPage{}, err
		}
		page.Tasks = append(page.Tasks, task)
	}
	if err := rows.Err(); err != nil {
		return pmstorage.TaskPage{}, fmt.Errorf("iterate task rows: %w", err)
	}

	if len(page.Tasks) > pageSize {
		page.NextPageToken = page.Tasks[pageSize-1].ID
		page.Tasks = page.Tasks[:pageSize]
	}
	return page, nil
}

// ListAllTasks lists every task in a workspace, for schedule analysis.
func (s *Store) ListAllTasks(ctx context.Context, workspaceID string) ([]schedule.Task, error) {
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

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE workspace_id = ?
ORDER BY id
`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list all tasks: %w", err)
	}
	defer rows.Close()

	var tasks []schedule.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}

// CountTasksByStatus reports task counts per status for a workspace.
func (s *Store) CountTasksByStatus(ctx context.Context, workspaceID string) (map[schedule.TaskStatus]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT status, COUNT(*)
FROM tasks
WHERE workspace_id = ?
GROUP BY status
`, strings.TrimSpace(workspaceID))
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[schedule.TaskStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan task count: %w", err)
		}
		counts[schedule.TaskStatusFromLabel(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task counts: %w", err)
	}
	return counts, nil
}

// PutThroughputSample upserts one weekly throughput sample.
func (s *Store) PutThroughputSample(ctx context.Context, sample pmstorage.ThroughputSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sample.WorkspaceID) == "" {
		return fmt.Errorf("workspace id is required")
	}
	if sample.WeekStart.IsZero() {
		return fmt.Errorf("week start is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO throughput_samples (
	workspace_id, week_start, completed
) VALUES (?, ?, ?)
ON CONFLICT(workspace_id, week_start) DO UPDATE SET
	completed = excluded.completed
`,
		sample.WorkspaceID,
		toMillis(sample.WeekStart),
		sample.Completed,
	)
	if err != nil {
		return fmt.Errorf("put throughput sample: %w", err)
	}
	return nil
}

// ListThroughputSamples returns up to limit trailing samples in
// chronological order.
func (s *Store) ListThroughputSamples(ctx context.Context, workspaceID string, limit int) ([]pmstorage.ThroughputSample, error) {
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
		limit = 12
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT workspace_id, week_start, completed
FROM throughput_samples
WHERE workspace_id = ?
ORDER BY week_start DESC
LIMIT ?
`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list throughput samples: %w", err)
	}
	defer rows.Close()

	var samples []pmstorage.ThroughputSample
	for rows.Next() {
		var sample pmstorage.ThroughputSample
		var weekStart int64
		if err := rows.Scan(&sample.WorkspaceID, &weekStart, &sample.Completed); err != nil {
			return nil, fmt.Errorf("scan throughput sample: %w", err)
		}
		sample.WeekStart = fromMillis(weekStart)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate throughput samples: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

func scanTask(scan func(...any) error) (schedule.Task, error) {
	var task schedule.Task
	var status string
	var dependsOn string
	var dueDate int64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&task.ID,
		&task.WorkspaceID,
		&task.Title,
		&status,
		&task.EstimateDays,
		&task.Assignee,
		&dueDate,
		&dependsOn,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.Task{}, pmstorage.ErrNotFound
		}
		return schedule.Task{}, fmt.Errorf("scan task: %w", err)
	}
	deps, err := decodeStrings(dependsOn)
	if err != nil {
		return schedule.Task{}, err
	}
	task.DependsOn = deps
	task.Status = schedule.TaskStatusFromLabel(status)
	if dueDate > 0 {
		task.DueDate = fromMillis(dueDate)
	} else {
		task.DueDate = time.Time{}
	}
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return task, nil
}
