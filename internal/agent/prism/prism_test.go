package prism

import (
	"context"
	"testing"
	"time"

	"github.com/hyvve/hyvve/internal/pm/risk"
	"github.com/hyvve/hyvve/internal/pm/schedule"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
)

type stubStores struct {
	tasks   []schedule.Task
	risks   []risk.Entry
	samples []pmstorage.ThroughputSample
	digests map[string]Digest
}

func newStubStores() *stubStores {
	return &stubStores{digests: make(map[string]Digest)}
}

func (s *stubStores) PutTask(ctx context.Context, task schedule.Task) error { return nil }
func (s *stubStores) GetTask(ctx context.Context, workspaceID, taskID string) (schedule.Task, error) {
	return schedule.Task{}, pmstorage.ErrNotFound
}
func (s *stubStores) DeleteTask(ctx context.Context, workspaceID, taskID string) error { return nil }
func (s *stubStores) ListTasks(ctx context.Context, workspaceID string, status schedule.TaskStatus, pageSize int, pageToken string) (pmstorage.TaskPage, error) {
	return pmstorage.TaskPage{Tasks: s.tasks}, nil
}
func (s *stubStores) ListAllTasks(ctx context.Context, workspaceID string) ([]schedule.Task, error) {
	return s.tasks, nil
}
func (s *stubStores) CountTasksByStatus(ctx context.Context, workspaceID string) (map[schedule.TaskStatus]int, error) {
	return nil, nil
}

func (s *stubStores) PutRisk(ctx context.Context, entry risk.Entry) error { return nil }
func (s *stubStores) GetRisk(ctx context.Context, workspaceID, riskID string) (risk.Entry, error) {
	return risk.Entry{}, pmstorage.ErrNotFound
}
func (s *stubStores) DeleteRisk(ctx context.Context, workspaceID, riskID string) error { return nil }
func (s *stubStores) ListRisks(ctx context.Context, workspaceID string, pageSize int, pageToken string) (pmstorage.RiskPage, error) {
	return pmstorage.RiskPage{Risks: s.risks}, nil
}
func (s *stubStores) ListAllRisks(ctx context.Context, workspaceID string) ([]risk.Entry, error) {
	return s.risks, nil
}

func (s *stubStores) PutThroughputSample(ctx context.Context, sample pmstorage.ThroughputSample) error {
	return nil
}
func (s *stubStores) ListThroughputSamples(ctx context.Context, workspaceID string, limit int) ([]pmstorage.ThroughputSample, error) {
	return s.samples, nil
}

func (s *stubStores) PutDigest(ctx context.Context, digest Digest) error {
	s.digests[digest.WorkspaceID] = digest
	return nil
}
func (s *stubStores) GetDigest(ctx context.Context, workspaceID string) (Digest, error) {
	digest, ok := s.digests[workspaceID]
	if !ok {
		return Digest{}, ErrNotFound
	}
	return digest, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
}

func newTestAgent(stores *stubStores) *Agent {
	agent := NewAgent(stores, stores, stores, stores)
	agent.SetClock(fixedNow)
	agent.SetSeedSource(func() (int64, error) { return 42, nil })
	return agent
}

func weeklySamples(completed ...int) []pmstorage.ThroughputSample {
	samples := make([]pmstorage.ThroughputSample, len(completed))
	week := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, c := range completed {
		samples[i] = pmstorage.ThroughputSample{
			WorkspaceID: "ws-1",
			WeekStart:   week.AddDate(0, 0, 7*i),
			Completed:   c,
		}
	}
	return samples
}

func TestRefreshHealthyWorkspace(t *testing.T) {
	stores := newStubStores()
	stores.tasks = []schedule.Task{
		{ID: "a", EstimateDays: 2},
		{ID: "b", EstimateDays: 3, DependsOn: []string{"a"}},
		{ID: "done", Status: schedule.TaskStatusDone},
	}
	stores.samples = weeklySamples(5, 5, 5, 5, 5, 5)

	digest, err := newTestAgent(stores).Refresh(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if digest.Health != HealthOnTrack {
		t.Fatalf("health = %s, want on track", digest.Health)
	}
	if !digest.HasForecast {
		t.Fatal("expected a forecast with sufficient history")
	}
	if digest.Forecast.P50Weeks != 1 {
		t.Fatalf("p50 = %d, want 1 week for 2 remaining tasks at 5 per week", digest.Forecast.P50Weeks)
	}
	if len(digest.CriticalPath.TaskIDs) != 2 || digest.CriticalPath.TotalDays != 5 {
		t.Fatalf("critical path = %+v, want a-b over 5 days", digest.CriticalPath)
	}
	if !digest.GeneratedAt.Equal(fixedNow()) {
		t.Fatalf("generated at = %s, want %s", digest.GeneratedAt, fixedNow())
	}
}

func TestRefreshFlagsDependencyCycle(t *testing.T) {
	stores := newStubStores()
	stores.tasks = []schedule.Task{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}

	digest, err := newTestAgent(stores).Refresh(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !digest.DependencyCycle {
		t.Fatal("expected cycle flag")
	}
	if digest.Health != HealthOffTrack {
		t.Fatalf("health = %s, want off track for a cycle", digest.Health)
	}
}

func TestRefreshCountsCriticalRisks(t *testing.T) {
	stores := newStubStores()
	stores.samples = weeklySamples(5, 5, 5, 5)
	stores.risks = []risk.Entry{
		{ID: "r1", Probability: 4, Impact: 4, Status: risk.StatusOpen},
		{ID: "r2", Probability: 5, Impact: 5, Status: risk.StatusResolved},
		{ID: "r3", Probability: 2, Impact: 2, Status: risk.StatusOpen},
	}

	digest, err := newTestAgent(stores).Refresh(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if digest.OpenCriticalRisks != 1 {
		t.Fatalf("open critical risks = %d, want 1", digest.OpenCriticalRisks)
	}
	if digest.Health != HealthAtRisk {
		t.Fatalf("health = %s, want at risk", digest.Health)
	}
}

func TestRefreshWithoutHistorySkipsForecast(t *testing.T) {
	stores := newStubStores()
	stores.tasks = []schedule.Task{{ID: "a"}}

	digest, err := newTestAgent(stores).Refresh(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if digest.HasForecast {
		t.Fatal("expected no forecast without throughput history")
	}
}

func TestLatestReturnsStoredDigest(t *testing.T) {
	stores := newStubStores()
	agent := newTestAgent(stores)

	if _, err := agent.Latest(context.Background(), "ws-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before refresh, got %v", err)
	}

	want, err := agent.Refresh(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, err := agent.Latest(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.WorkspaceID != want.WorkspaceID || !got.GeneratedAt.Equal(want.GeneratedAt) {
		t.Fatalf("latest = %+v, want %+v", got, want)
	}
}
