// Package schedule defines workspace tasks, their dependency graph, and
// critical-path analysis over it.
package schedule

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

// TaskStatus represents the lifecycle status of a task.
type TaskStatus int

const (
	// TaskStatusUnspecified represents an invalid task status.
	TaskStatusUnspecified TaskStatus = iota
	// TaskStatusTodo indicates unstarted work.
	TaskStatusTodo
	// TaskStatusInProgress indicates work underway.
	TaskStatusInProgress
	// TaskStatusDone indicates completed work.
	TaskStatusDone
)

var (
	// ErrEmptyTitle indicates a missing task title.
	ErrEmptyTitle = apperrors.New(apperrors.CodeTaskTitleEmpty, "task title is required")
)

// Task represents one unit of schedulable work.
type Task struct {
	ID          string
	WorkspaceID string
	Title       string
	Status      TaskStatus
	// EstimateDays is the planned effort in working days.
	EstimateDays float64
	Assignee    string
	DueDate     time.Time
	// DependsOn lists task IDs that must finish before this task starts.
	DependsOn []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateTaskInput describes the metadata needed to create a task.
type CreateTaskInput struct {
	WorkspaceID  string
	Title        string
	EstimateDays float64
	Assignee     string
	DueDate      time.Time
	DependsOn    []string
}

// CreateTask creates a task with a generated ID and timestamps.
func CreateTask(input CreateTaskInput, now func() time.Time, idGenerator func() (string, error)) (Task, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateTaskInput(input)
	if err != nil {
		return Task{}, err
	}

	taskID, err := idGenerator()
	if err != nil {
		return Task{}, fmt.Errorf("generate task id: %w", err)
	}

	createdAt := now().UTC()
	return Task{
		ID:           taskID,
		WorkspaceID:  normalized.WorkspaceID,
		Title:        normalized.Title,
		Status:       TaskStatusTodo,
		EstimateDays: normalized.EstimateDays,
		Assignee:     normalized.Assignee,
		DueDate:      normalized.DueDate,
		DependsOn:    normalized.DependsOn,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// NormalizeCreateTaskInput trims and validates task input metadata.
func NormalizeCreateTaskInput(input CreateTaskInput) (CreateTaskInput, error) {
	input.WorkspaceID = strings.TrimSpace(input.WorkspaceID)
	if input.WorkspaceID == "" {
		return CreateTaskInput{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace id is required")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return CreateTaskInput{}, ErrEmptyTitle
	}
	if input.EstimateDays < 0 {
		return CreateTaskInput{}, apperrors.New(apperrors.CodeTaskInvalidEstimate, "task estimate cannot be negative")
	}
	input.Assignee = strings.TrimSpace(input.Assignee)

	deps := make([]string, 0, len(input.DependsOn))
	seen := make(map[string]bool, len(input.DependsOn))
	for _, dep := range input.DependsOn {
		dep = strings.TrimSpace(dep)
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	input.DependsOn = deps
	return input, nil
}

// TaskStatusLabel returns the string label for a task status.
func TaskStatusLabel(status TaskStatus) string {
	switch status {
	case TaskStatusTodo:
		return "TODO"
	case TaskStatusInProgress:
		return "IN_PROGRESS"
	case TaskStatusDone:
		return "DONE"
	default:
		return "UNSPECIFIED"
	}
}

// TaskStatusFromLabel converts a status label to a TaskStatus value.
func TaskStatusFromLabel(label string) TaskStatus {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "TODO":
		return TaskStatusTodo
	case "IN_PROGRESS":
		return TaskStatusInProgress
	case "DONE":
		return TaskStatusDone
	default:
		return TaskStatusUnspecified
	}
}
