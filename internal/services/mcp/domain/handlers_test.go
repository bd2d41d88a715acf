package domain

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyvve/hyvve/internal/kb"
	"github.com/hyvve/hyvve/internal/pm/risk"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/storage/sqlite"
	wsdomain "github.com/hyvve/hyvve/internal/workspace/domain"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "hyvve.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func seedWorkspace(t *testing.T, store *sqlite.Store) wsdomain.Workspace {
	t.Helper()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	workspace := wsdomain.Workspace{
		ID:        "ws-1",
		Slug:      "apollo",
		Name:      "Apollo Program",
		Status:    wsdomain.StatusActive,
		CreatedBy: "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutWorkspace(context.Background(), workspace); err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	member := wsdomain.Member{
		WorkspaceID: workspace.ID,
		UserID:      "user-1",
		Role:        wsdomain.RoleOwner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.PutMember(context.Background(), member); err != nil {
		t.Fatalf("put member: %v", err)
	}
	return workspace
}

func TestWorkspaceListHandler(t *testing.T) {
	store := newTestStore(t)
	seedWorkspace(t, store)

	handler := WorkspaceListHandler(store)

	_, result, err := handler(context.Background(), nil, WorkspaceListInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("workspace_list: %v", err)
	}
	if len(result.Workspaces) != 1 {
		t.Fatalf("expected one workspace, got %d", len(result.Workspaces))
	}
	if result.Workspaces[0].Slug != "apollo" || result.Workspaces[0].Status != "ACTIVE" {
		t.Fatalf("workspace = %+v", result.Workspaces[0])
	}

	if _, _, err := handler(context.Background(), nil, WorkspaceListInput{}); err == nil {
		t.Fatal("expected error for missing user_id")
	}
}

func TestRiskListHandler(t *testing.T) {
	store := newTestStore(t)
	workspace := seedWorkspace(t, store)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	entries := []risk.Entry{
		{ID: "risk-low", WorkspaceID: workspace.ID, Title: "Minor slip", Status: risk.StatusOpen, Probability: 1, Impact: 2, CreatedAt: now, UpdatedAt: now},
		{ID: "risk-high", WorkspaceID: workspace.ID, Title: "Vendor slips", Status: risk.StatusOpen, Probability: 4, Impact: 5, CreatedAt: now, UpdatedAt: now},
	}
	for _, entry := range entries {
		if err := store.PutRisk(context.Background(), entry); err != nil {
			t.Fatalf("put risk %s: %v", entry.ID, err)
		}
	}

	handler := RiskListHandler(store, store)

	_, result, err := handler(context.Background(), nil, RiskListInput{WorkspaceSlug: "apollo"})
	if err != nil {
		t.Fatalf("risk_list: %v", err)
	}
	if len(result.Risks) != 2 {
		t.Fatalf("expected two risks, got %d", len(result.Risks))
	}
	if result.Risks[0].ID != "risk-high" || result.Risks[0].Severity != 20 || !result.Risks[0].Critical {
		t.Fatalf("top risk = %+v", result.Risks[0])
	}

	if _, _, err := handler(context.Background(), nil, RiskListInput{WorkspaceSlug: "ghost"}); err == nil {
		t.Fatal("expected error for unknown workspace")
	}
}

func TestForecastGetHandler(t *testing.T) {
	store := newTestStore(t)
	workspace := seedWorkspace(t, store)

	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	for week := 0; week < 6; week++ {
		sample := pmstorage.ThroughputSample{
			WorkspaceID: workspace.ID,
			WeekStart:   weekStart.AddDate(0, 0, 7*week),
			Completed:   3 + week%2,
		}
		if err := store.PutThroughputSample(context.Background(), sample); err != nil {
			t.Fatalf("put sample %d: %v", week, err)
		}
	}

	handler := ForecastGetHandler(store, store, store)

	_, result, err := handler(context.Background(), nil, ForecastGetInput{WorkspaceSlug: "apollo"})
	if err != nil {
		t.Fatalf("forecast_get: %v", err)
	}
	if result.SampleWeeks != 6 {
		t.Fatalf("sample weeks = %d, want 6", result.SampleWeeks)
	}
	if result.P50Weeks > result.P90Weeks {
		t.Fatalf("p50 %d exceeds p90 %d", result.P50Weeks, result.P90Weeks)
	}
}

func TestKBSearchHandler(t *testing.T) {
	store := newTestStore(t)
	workspace := seedWorkspace(t, store)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	articles := []kb.Article{
		{ID: "art-1", WorkspaceID: workspace.ID, Title: "Release checklist", Body: "Tag the release and deploy to staging first.", AuthorID: "user-1", CreatedAt: now, UpdatedAt: now},
		{ID: "art-2", WorkspaceID: workspace.ID, Title: "Onboarding guide", Body: "Accounts and repository access.", AuthorID: "user-1", CreatedAt: now, UpdatedAt: now},
	}
	for _, article := range articles {
		if err := store.PutArticle(context.Background(), article); err != nil {
			t.Fatalf("put article %s: %v", article.ID, err)
		}
	}

	handler := KBSearchHandler(store, store, nil)

	_, result, err := handler(context.Background(), nil, KBSearchInput{
		WorkspaceSlug: "apollo",
		Query:         "release deploy",
	})
	if err != nil {
		t.Fatalf("kb_search: %v", err)
	}
	if len(result.Results) == 0 {
		t.Fatal("expected search results")
	}
	if !strings.Contains(result.Results[0].Title, "Release") {
		t.Fatalf("top result = %+v", result.Results[0])
	}

	if _, _, err := handler(context.Background(), nil, KBSearchInput{WorkspaceSlug: "apollo"}); err == nil {
		t.Fatal("expected error for missing query")
	}
}
