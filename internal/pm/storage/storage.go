// Package storage defines persistence contracts for planning state: saved
// views, dashboards, risks, tasks, and throughput history.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyvve/hyvve/internal/pm/dashboard"
	"github.com/hyvve/hyvve/internal/pm/risk"
	"github.com/hyvve/hyvve/internal/pm/schedule"
	"github.com/hyvve/hyvve/internal/pm/view"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// TaskPage stores a page of tasks.
type TaskPage struct {
	Tasks         []schedule.Task
	NextPageToken string
}

// RiskPage stores a page of risk entries.
type RiskPage struct {
	Risks         []risk.Entry
	NextPageToken string
}

// ThroughputSample records tasks completed during one week.
type ThroughputSample struct {
	WorkspaceID string
	// WeekStart is the Monday the sample covers, truncated to UTC midnight.
	WeekStart time.Time
	Completed int
}

// ViewStore persists saved views.
type ViewStore interface {
	PutView(ctx context.Context, savedView view.SavedView) error
	GetView(ctx context.Context, workspaceID, viewID string) (view.SavedView, error)
	DeleteView(ctx context.Context, workspaceID, viewID string) error
	ListViews(ctx context.Context, workspaceID, userID string) ([]view.SavedView, error)
}

// DashboardStore persists per-user dashboard layouts.
type DashboardStore interface {
	PutDashboard(ctx context.Context, layout dashboard.Layout) error
	GetDashboard(ctx context.Context, workspaceID, userID string) (dashboard.Layout, error)
}

// RiskStore persists risk register entries.
type RiskStore interface {
	PutRisk(ctx context.Context, entry risk.Entry) error
	GetRisk(ctx context.Context, workspaceID, riskID string) (risk.Entry, error)
	DeleteRisk(ctx context.Context, workspaceID, riskID string) error
	ListRisks(ctx context.Context, workspaceID string, pageSize int, pageToken string) (RiskPage, error)
	ListAllRisks(ctx context.Context, workspaceID string) ([]risk.Entry, error)
}

// TaskStore persists tasks and their dependency edges.
type TaskStore interface {
	PutTask(ctx context.Context, task schedule.Task) error
	GetTask(ctx context.Context, workspaceID, taskID string) (schedule.Task, error)
	DeleteTask(ctx context.Context, workspaceID, taskID string) error
	ListTasks(ctx context.Context, workspaceID string, status schedule.TaskStatus, pageSize int, pageToken string) (TaskPage, error)
	ListAllTasks(ctx context.Context, workspaceID string) ([]schedule.Task, error)
	CountTasksByStatus(ctx context.Context, workspaceID string) (map[schedule.TaskStatus]int, error)
}

// ThroughputStore persists weekly throughput history.
type ThroughputStore interface {
	PutThroughputSample(ctx context.Context, sample ThroughputSample) error
	ListThroughputSamples(ctx context.Context, workspaceID string, limit int) ([]ThroughputSample, error)
}

// Store aggregates the planning persistence contracts.
type Store interface {
	ViewStore
	DashboardStore
	RiskStore
	TaskStore
	ThroughputStore
}
