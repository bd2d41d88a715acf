// Package prism runs the predictive planning agent: it composes schedule,
// throughput, and risk signals into a per-workspace digest.
package prism

import (
	"context"
	"errors"
	"time"

	"github.com/hyvve/hyvve/internal/pm/anomaly"
	"github.com/hyvve/hyvve/internal/pm/forecast"
	"github.com/hyvve/hyvve/internal/pm/schedule"
)

// ErrNotFound indicates no digest has been produced for a workspace yet.
var ErrNotFound = errors.New("digest not found")

// Health summarizes delivery confidence for a workspace.
type Health string

const (
	// HealthOnTrack indicates no signals of concern.
	HealthOnTrack Health = "ON_TRACK"
	// HealthAtRisk indicates warning signals worth attention.
	HealthAtRisk Health = "AT_RISK"
	// HealthOffTrack indicates strong signals the plan will slip.
	HealthOffTrack Health = "OFF_TRACK"
)

// Digest is one predictive snapshot for a workspace.
type Digest struct {
	WorkspaceID string
	GeneratedAt time.Time
	Health      Health

	// Forecast holds the Monte Carlo completion outlook; zero when history
	// was insufficient.
	Forecast    forecast.Result
	HasForecast bool

	// CriticalPath is the longest dependency chain; empty when the task
	// graph has a cycle.
	CriticalPath    schedule.CriticalPath
	DependencyCycle bool

	// ThroughputAnomalies are weeks whose throughput deviated sharply.
	ThroughputAnomalies []anomaly.Point

	// OpenCriticalRisks counts open or mitigating risks in the critical
	// severity band.
	OpenCriticalRisks int

	// Notes are human-readable findings, one per signal.
	Notes []string
}

// Store persists digests.
type Store interface {
	PutDigest(ctx context.Context, digest Digest) error
	GetDigest(ctx context.Context, workspaceID string) (Digest, error)
}
