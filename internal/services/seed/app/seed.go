// Package app seeds the local development database with demo data: a demo
// team, a workspace with tasks, risks, views, knowledge base articles, and
// enough throughput history to exercise the forecast.
package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/agent/prism"
	"github.com/hyvve/hyvve/internal/auth/password"
	"github.com/hyvve/hyvve/internal/identity"
	"github.com/hyvve/hyvve/internal/kb"
	"github.com/hyvve/hyvve/internal/pm/dashboard"
	"github.com/hyvve/hyvve/internal/pm/risk"
	"github.com/hyvve/hyvve/internal/pm/schedule"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/pm/view"
	"github.com/hyvve/hyvve/internal/storage/sqlite"
	"github.com/hyvve/hyvve/internal/workspace/domain"
	wsservice "github.com/hyvve/hyvve/internal/workspace/service"
)

// DemoPassword is the login password for every seeded user.
const DemoPassword = "hyvve-demo"

// Config controls seed execution.
type Config struct {
	DBPath string `env:"HYVVE_DB_PATH" envDefault:"hyvve.db"`
	// RandSeed makes throughput history reproducible; zero picks the clock.
	RandSeed int64 `env:"HYVVE_SEED_RANDOM_SEED"`
	// ThroughputWeeks is how many weeks of history to backfill.
	ThroughputWeeks int `env:"HYVVE_SEED_THROUGHPUT_WEEKS" envDefault:"10"`
}

type demoUser struct {
	email string
	name  string
	role  domain.Role
}

var demoUsers = []demoUser{
	{email: "ada@hyvve.dev", name: "Ada Lovelace", role: domain.RoleOwner},
	{email: "grace@hyvve.dev", name: "Grace Hopper", role: domain.RoleAdmin},
	{email: "alan@hyvve.dev", name: "Alan Turing", role: domain.RoleMember},
	{email: "edsger@hyvve.dev", name: "Edsger Dijkstra", role: domain.RoleViewer},
}

// Run seeds the configured database and exits.
func Run(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ThroughputWeeks <= 0 {
		cfg.ThroughputWeeks = 10
	}
	if cfg.RandSeed == 0 {
		cfg.RandSeed = time.Now().UnixNano()
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close storage: %v", closeErr)
		}
	}()

	return Seed(ctx, store, cfg)
}

// Seed writes the demo dataset into store. Users are reused across runs;
// each run creates a fresh demo workspace.
func Seed(ctx context.Context, store *sqlite.Store, cfg Config) error {
	users, err := seedUsers(ctx, store)
	if err != nil {
		return err
	}

	hub := activity.NewHub()
	journal := activity.NewJournal(store, hub)
	workspaces := wsservice.NewService(store, store, journal, nil)

	owner := users[0]
	workspace, err := workspaces.CreateWorkspace(ctx, owner.ID, domain.CreateWorkspaceInput{
		Name:        "Apollo Program",
		Description: "Demo workspace with a scheduled backlog, risk register, and knowledge base.",
	})
	if err != nil {
		return fmt.Errorf("create demo workspace: %w", err)
	}

	for i, user := range users[1:] {
		member, err := domain.NewMember(workspace.ID, user.ID, demoUsers[i+1].role, owner.ID, nil)
		if err != nil {
			return fmt.Errorf("build member %s: %w", user.Email, err)
		}
		if err := store.PutMember(ctx, member); err != nil {
			return fmt.Errorf("add member %s: %w", user.Email, err)
		}
	}

	if _, err := seedTasks(ctx, store, workspace.ID, users); err != nil {
		return err
	}
	if err := seedRisks(ctx, store, workspace.ID, users[1].ID); err != nil {
		return err
	}
	if err := seedViewsAndDashboard(ctx, store, workspace.ID, owner.ID); err != nil {
		return err
	}
	if err := seedArticles(ctx, store, workspace.ID, users[2].ID); err != nil {
		return err
	}
	if err := seedThroughput(ctx, store, workspace.ID, cfg); err != nil {
		return err
	}

	agent := prism.NewAgent(store, store, store, store)
	if _, err := agent.Refresh(ctx, workspace.ID); err != nil {
		return fmt.Errorf("refresh demo digest: %w", err)
	}

	log.Printf("seed: workspace %q ready; sign in as %s with password %q", workspace.Slug, owner.Email, DemoPassword)
	return nil
}

func seedUsers(ctx context.Context, store *sqlite.Store) ([]identity.User, error) {
	hash, err := password.Hash(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]identity.User, 0, len(demoUsers))
	for _, demo := range demoUsers {
		existing, err := store.GetUserByEmail(ctx, demo.email)
		if err == nil {
			users = append(users, existing)
			continue
		}
		user, err := identity.NewUser(demo.email, demo.name, hash, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("build user %s: %w", demo.email, err)
		}
		if err := store.PutUser(ctx, user); err != nil {
			return nil, fmt.Errorf("put user %s: %w", demo.email, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func seedTasks(ctx context.Context, store *sqlite.Store, workspaceID string, users []identity.User) ([]string, error) {
	type demoTask struct {
		title     string
		estimate  float64
		assignee  string
		status    schedule.TaskStatus
		dependsOn []int
	}
	backlog := []demoTask{
		{title: "Draft launch requirements", estimate: 3, assignee: users[0].ID, status: schedule.TaskStatusDone},
		{title: "Design booking flow", estimate: 5, assignee: users[1].ID, status: schedule.TaskStatusDone, dependsOn: []int{0}},
		{title: "Build booking API", estimate: 8, assignee: users[2].ID, status: schedule.TaskStatusInProgress, dependsOn: []int{1}},
		{title: "Build booking UI", estimate: 6, assignee: users[1].ID, status: schedule.TaskStatusInProgress, dependsOn: []int{1}},
		{title: "Integrate payments", estimate: 4, assignee: users[2].ID, status: schedule.TaskStatusTodo, dependsOn: []int{2}},
		{title: "End-to-end launch test", estimate: 3, assignee: users[0].ID, status: schedule.TaskStatusTodo, dependsOn: []int{3, 4}},
		{title: "Write launch runbook", estimate: 2, assignee: users[2].ID, status: schedule.TaskStatusTodo},
	}

	ids := make([]string, len(backlog))
	for i, demo := range backlog {
		dependsOn := make([]string, 0, len(demo.dependsOn))
		for _, dep := range demo.dependsOn {
			dependsOn = append(dependsOn, ids[dep])
		}
		task, err := schedule.CreateTask(schedule.CreateTaskInput{
			WorkspaceID:  workspaceID,
			Title:        demo.title,
			EstimateDays: demo.estimate,
			Assignee:     demo.assignee,
			DependsOn:    dependsOn,
		}, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("build task %q: %w", demo.title, err)
		}
		task.Status = demo.status
		if err := store.PutTask(ctx, task); err != nil {
			return nil, fmt.Errorf("put task %q: %w", demo.title, err)
		}
		ids[i] = task.ID
	}
	return ids, nil
}

func seedRisks(ctx context.Context, store *sqlite.Store, workspaceID, ownerUserID string) error {
	type demoRisk struct {
		title       string
		description string
		probability int
		impact      int
		status      risk.Status
	}
	register := []demoRisk{
		{title: "Payment vendor ships API change mid-launch", description: "Vendor deprecation window overlaps the launch week.", probability: 3, impact: 5, status: risk.StatusMitigating},
		{title: "Single reviewer for booking API", description: "Review throughput is a bottleneck while one maintainer is on leave.", probability: 4, impact: 3, status: risk.StatusOpen},
		{title: "Staging data drift", description: "Staging fixtures no longer mirror production shapes.", probability: 2, impact: 2, status: risk.StatusResolved},
	}
	for _, demo := range register {
		entry, err := risk.CreateEntry(risk.CreateEntryInput{
			WorkspaceID: workspaceID,
			Title:       demo.title,
			Description: demo.description,
			Probability: demo.probability,
			Impact:      demo.impact,
			OwnerUserID: ownerUserID,
		}, nil, nil)
		if err != nil {
			return fmt.Errorf("build risk %q: %w", demo.title, err)
		}
		entry.Status = demo.status
		if err := store.PutRisk(ctx, entry); err != nil {
			return fmt.Errorf("put risk %q: %w", demo.title, err)
		}
	}
	return nil
}

func seedViewsAndDashboard(ctx context.Context, store *sqlite.Store, workspaceID, ownerID string) error {
	shared, err := view.CreateSavedView(view.CreateSavedViewInput{
		WorkspaceID: workspaceID,
		Name:        "Launch board",
		Filter:      "status:in_progress",
		OrderBy:     "due_date",
		Visibility:  view.VisibilityShared,
		CreatedBy:   ownerID,
	}, nil, nil)
	if err != nil {
		return fmt.Errorf("build shared view: %w", err)
	}
	if err := store.PutView(ctx, shared); err != nil {
		return fmt.Errorf("put shared view: %w", err)
	}

	private, err := view.CreateSavedView(view.CreateSavedViewInput{
		WorkspaceID: workspaceID,
		Name:        "My follow-ups",
		Filter:      "assignee:" + ownerID,
		OrderBy:     "updated_at",
		Visibility:  view.VisibilityPrivate,
		CreatedBy:   ownerID,
	}, nil, nil)
	if err != nil {
		return fmt.Errorf("build private view: %w", err)
	}
	if err := store.PutView(ctx, private); err != nil {
		return fmt.Errorf("put private view: %w", err)
	}

	layout, err := dashboard.NewLayout(workspaceID, ownerID, []dashboard.Widget{
		{Kind: dashboard.WidgetTaskSummary, X: 0, Y: 0, W: 6, H: 4},
		{Kind: dashboard.WidgetRiskMatrix, X: 6, Y: 0, W: 6, H: 4},
		{Kind: dashboard.WidgetForecast, X: 0, Y: 4, W: 6, H: 4},
		{Kind: dashboard.WidgetSavedView, RefID: shared.ID, X: 6, Y: 4, W: 6, H: 4},
	}, nil)
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}
	if err := store.PutDashboard(ctx, layout); err != nil {
		return fmt.Errorf("put dashboard: %w", err)
	}
	return nil
}

func seedArticles(ctx context.Context, store *sqlite.Store, workspaceID, authorID string) error {
	type demoArticle struct {
		title string
		body  string
		tags  []string
	}
	articles := []demoArticle{
		{
			title: "Release checklist",
			body:  "Cut a release branch, tag the build, deploy to staging, then promote after the smoke suite passes.",
			tags:  []string{"process", "release"},
		},
		{
			title: "Incident response",
			body:  "Page the on-call, open a tracking issue, and post updates every thirty minutes until resolved.",
			tags:  []string{"process", "oncall"},
		},
		{
			title: "Booking API overview",
			body:  "The booking API exposes availability search, reservation holds, and payment capture as separate steps.",
			tags:  []string{"architecture"},
		},
	}
	for _, demo := range articles {
		article, err := kb.CreateArticle(kb.CreateArticleInput{
			WorkspaceID: workspaceID,
			Title:       demo.title,
			Body:        demo.body,
			Tags:        demo.tags,
			AuthorID:    authorID,
		}, nil, nil)
		if err != nil {
			return fmt.Errorf("build article %q: %w", demo.title, err)
		}
		if err := store.PutArticle(ctx, article); err != nil {
			return fmt.Errorf("put article %q: %w", demo.title, err)
		}
	}
	return nil
}

// seedThroughput backfills completed-task counts for the trailing weeks so
// the forecast has history to bootstrap from.
func seedThroughput(ctx context.Context, store *sqlite.Store, workspaceID string, cfg Config) error {
	rng := rand.New(rand.NewSource(cfg.RandSeed))
	weekStart := startOfWeek(time.Now().UTC()).AddDate(0, 0, -7*cfg.ThroughputWeeks)

	for week := 0; week < cfg.ThroughputWeeks; week++ {
		sample := pmstorage.ThroughputSample{
			WorkspaceID: workspaceID,
			WeekStart:   weekStart.AddDate(0, 0, 7*week),
			Completed:   2 + rng.Intn(5),
		}
		if err := store.PutThroughputSample(ctx, sample); err != nil {
			return fmt.Errorf("put throughput sample: %w", err)
		}
	}
	return nil
}

// startOfWeek returns midnight UTC of the Monday at or before t.
func startOfWeek(t time.Time) time.Time {
	t = t.Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
