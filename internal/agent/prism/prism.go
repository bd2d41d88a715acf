package prism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyvve/hyvve/internal/pm/anomaly"
	"github.com/hyvve/hyvve/internal/pm/forecast"
	"github.com/hyvve/hyvve/internal/pm/risk"
	"github.com/hyvve/hyvve/internal/pm/schedule"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/random"
)

// Agent produces predictive digests from workspace planning state.
type Agent struct {
	tasks      pmstorage.TaskStore
	risks      pmstorage.RiskStore
	throughput pmstorage.ThroughputStore
	digests    Store
	now        func() time.Time
	seed       func() (int64, error)
}

// NewAgent creates a prism agent over the given stores.
func NewAgent(tasks pmstorage.TaskStore, risks pmstorage.RiskStore, throughput pmstorage.ThroughputStore, digests Store) *Agent {
	return &Agent{
		tasks:      tasks,
		risks:      risks,
		throughput: throughput,
		digests:    digests,
		now:        time.Now,
		seed:       random.NewSeed,
	}
}

// SetClock overrides the agent clock. Intended for tests.
func (a *Agent) SetClock(now func() time.Time) {
	a.now = now
}

// SetSeedSource overrides the forecast seed source. Intended for tests.
func (a *Agent) SetSeedSource(seed func() (int64, error)) {
	a.seed = seed
}

// Refresh recomputes and persists the digest for one workspace.
func (a *Agent) Refresh(ctx context.Context, workspaceID string) (Digest, error) {
	digest, err := a.compute(ctx, workspaceID)
	if err != nil {
		return Digest{}, err
	}
	if err := a.digests.PutDigest(ctx, digest); err != nil {
		return Digest{}, fmt.Errorf("persist digest: %w", err)
	}
	return digest, nil
}

// Latest returns the stored digest for a workspace.
func (a *Agent) Latest(ctx context.Context, workspaceID string) (Digest, error) {
	return a.digests.GetDigest(ctx, workspaceID)
}

func (a *Agent) compute(ctx context.Context, workspaceID string) (Digest, error) {
	digest := Digest{
		WorkspaceID: workspaceID,
		GeneratedAt: a.now().UTC(),
		Health:      HealthOnTrack,
	}

	tasks, err := a.tasks.ListAllTasks(ctx, workspaceID)
	if err != nil {
		return Digest{}, fmt.Errorf("list tasks: %w", err)
	}

	remaining := 0
	for _, task := range tasks {
		if task.Status != schedule.TaskStatusDone {
			remaining++
		}
	}

	path, err := schedule.ComputeCriticalPath(tasks)
	switch {
	case errors.Is(err, schedule.ErrDependencyCycle):
		digest.DependencyCycle = true
		digest.Notes = append(digest.Notes, "task dependencies form a cycle; the schedule cannot be sequenced")
	case err != nil:
		return Digest{}, fmt.Errorf("compute critical path: %w", err)
	default:
		digest.CriticalPath = path
		if len(path.TaskIDs) > 0 {
			digest.Notes = append(digest.Notes,
				fmt.Sprintf("critical path spans %d tasks over %.1f estimated days", len(path.TaskIDs), path.TotalDays))
		}
	}

	samples, err := a.throughput.ListThroughputSamples(ctx, workspaceID, forecast.WindowWeeks)
	if err != nil {
		return Digest{}, fmt.Errorf("list throughput: %w", err)
	}
	weekly := make([]int, len(samples))
	for i, sample := range samples {
		weekly[i] = sample.Completed
	}

	seed, err := a.seed()
	if err != nil {
		return Digest{}, fmt.Errorf("forecast seed: %w", err)
	}
	result, err := forecast.Run(weekly, remaining, seed)
	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		digest.Notes = append(digest.Notes, "not enough throughput history to forecast completion")
	case err != nil:
		return Digest{}, fmt.Errorf("run forecast: %w", err)
	default:
		digest.Forecast = result
		digest.HasForecast = true
		digest.Notes = append(digest.Notes,
			fmt.Sprintf("%d remaining tasks complete in %d weeks (p50) to %d weeks (p90)",
				result.RemainingTasks, result.P50Weeks, result.P90Weeks))
	}

	digest.ThroughputAnomalies = anomaly.Anomalies(weekly)
	for _, point := range digest.ThroughputAnomalies {
		digest.Notes = append(digest.Notes,
			fmt.Sprintf("throughput of %d in week %d deviates sharply from trend", point.Value, point.Index+1))
	}

	risks, err := a.risks.ListAllRisks(ctx, workspaceID)
	if err != nil {
		return Digest{}, fmt.Errorf("list risks: %w", err)
	}
	for _, entry := range risks {
		if entry.Status != risk.StatusOpen && entry.Status != risk.StatusMitigating {
			continue
		}
		if entry.Critical() {
			digest.OpenCriticalRisks++
		}
	}
	if digest.OpenCriticalRisks > 0 {
		digest.Notes = append(digest.Notes,
			fmt.Sprintf("%d open risks sit in the critical severity band", digest.OpenCriticalRisks))
	}

	digest.Health = assessHealth(digest)
	return digest, nil
}

// assessHealth derives the headline health from the digest signals.
func assessHealth(digest Digest) Health {
	if digest.DependencyCycle {
		return HealthOffTrack
	}
	signals := digest.OpenCriticalRisks
	if len(digest.ThroughputAnomalies) > 0 {
		signals++
	}
	if digest.HasForecast && digest.Forecast.P90Weeks > 2*digest.Forecast.P50Weeks && digest.Forecast.P50Weeks > 0 {
		signals++
	}
	switch {
	case signals >= 2:
		return HealthOffTrack
	case signals == 1:
		return HealthAtRisk
	default:
		return HealthOnTrack
	}
}
