// Package app runs the maintenance command: retention sweeps, weekly
// throughput sampling, knowledge base indexing, and digest refresh over a
// single storage handle.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyvve/hyvve/internal/agent/prism"
	"github.com/hyvve/hyvve/internal/kb"
	"github.com/hyvve/hyvve/internal/pm/schedule"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/storage/sqlite"
)

// Config controls maintenance startup and retention windows.
type Config struct {
	DBPath string `env:"HYVVE_DB_PATH" envDefault:"hyvve.db"`
	// InvitationRetention is how long settled invitations are kept.
	InvitationRetention time.Duration `env:"HYVVE_INVITATION_RETENTION" envDefault:"720h"`
	// ActivityRetention is how long activity events are kept.
	ActivityRetention time.Duration `env:"HYVVE_ACTIVITY_RETENTION" envDefault:"2160h"`
	// IndexBatch is how many unindexed articles one run embeds.
	IndexBatch int `env:"HYVVE_INDEX_BATCH" envDefault:"50"`
	// GenAIAPIKey enables the article indexer; empty skips indexing.
	GenAIAPIKey string `env:"HYVVE_GENAI_API_KEY"`
}

// Runtime holds the dependencies maintenance jobs run against.
type Runtime struct {
	store    *sqlite.Store
	embedder kb.Embedder
	agent    *prism.Agent
	cfg      Config
	now      func() time.Time
}

// Run executes one maintenance pass and exits. Operators schedule it with
// cron or a systemd timer.
func Run(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
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

	var embedder kb.Embedder
	if strings.TrimSpace(cfg.GenAIAPIKey) != "" {
		genaiEmbedder, err := kb.NewGenAIEmbedder(ctx, cfg.GenAIAPIKey)
		if err != nil {
			return fmt.Errorf("configure embedder: %w", err)
		}
		embedder = genaiEmbedder
	}

	runtime := &Runtime{
		store:    store,
		embedder: embedder,
		agent:    prism.NewAgent(store, store, store, store),
		cfg:      cfg,
		now:      time.Now,
	}
	return runtime.RunOnce(ctx)
}

// RunOnce executes every maintenance job against the configured store.
// Retention sweeps run concurrently; the per-workspace jobs run after them
// so pruning and sampling never interleave on the same tables.
func (r *Runtime) RunOnce(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.pruneInvitations(groupCtx) })
	group.Go(func() error { return r.pruneActivity(groupCtx) })
	if err := group.Wait(); err != nil {
		return err
	}

	workspaceIDs, err := r.store.ListActiveWorkspaceIDs(ctx)
	if err != nil {
		return fmt.Errorf("list workspaces: %w", err)
	}
	if err := r.sampleThroughput(ctx, workspaceIDs); err != nil {
		return err
	}
	if err := r.indexArticles(ctx); err != nil {
		return err
	}
	return r.refreshDigests(ctx, workspaceIDs)
}

func (r *Runtime) pruneInvitations(ctx context.Context) error {
	cutoff := r.now().Add(-r.cfg.InvitationRetention).UTC()
	pruned, err := r.store.DeleteSettledInvitationsBefore(ctx, cutoff.UnixMilli())
	if err != nil {
		return fmt.Errorf("prune invitations: %w", err)
	}
	if pruned > 0 {
		log.Printf("maintenance: pruned %d settled invitations older than %s", pruned, cutoff.Format(time.RFC3339))
	}
	return nil
}

func (r *Runtime) pruneActivity(ctx context.Context) error {
	cutoff := r.now().Add(-r.cfg.ActivityRetention).UTC()
	pruned, err := r.store.DeleteEventsBefore(ctx, cutoff.UnixMilli())
	if err != nil {
		return fmt.Errorf("prune activity: %w", err)
	}
	if pruned > 0 {
		log.Printf("maintenance: pruned %d activity events older than %s", pruned, cutoff.Format(time.RFC3339))
	}
	return nil
}

// sampleThroughput records how many tasks each workspace finished during the
// last completed week. A task counts toward the week its final update landed
// in, so re-running the job is idempotent for that week.
func (r *Runtime) sampleThroughput(ctx context.Context, workspaceIDs []string) error {
	weekEnd := startOfWeek(r.now().UTC())
	weekStart := weekEnd.AddDate(0, 0, -7)

	for _, workspaceID := range workspaceIDs {
		tasks, err := r.store.ListAllTasks(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("list tasks for %s: %w", workspaceID, err)
		}
		completed := 0
		for _, task := range tasks {
			if task.Status != schedule.TaskStatusDone {
				continue
			}
			if !task.UpdatedAt.Before(weekStart) && task.UpdatedAt.Before(weekEnd) {
				completed++
			}
		}
		sample := pmstorage.ThroughputSample{
			WorkspaceID: workspaceID,
			WeekStart:   weekStart,
			Completed:   completed,
		}
		if err := r.store.PutThroughputSample(ctx, sample); err != nil {
			return fmt.Errorf("put throughput sample for %s: %w", workspaceID, err)
		}
	}
	return nil
}

// indexArticles embeds articles whose stored vector is missing or stale.
// Embedding failures skip the article and leave it for the next run.
func (r *Runtime) indexArticles(ctx context.Context) error {
	if r.embedder == nil {
		return nil
	}

	articles, err := r.store.ListUnindexedArticles(ctx, r.cfg.IndexBatch)
	if err != nil {
		return fmt.Errorf("list unindexed articles: %w", err)
	}
	indexed := 0
	for _, article := range articles {
		vector, err := r.embedder.Embed(ctx, article.IndexText())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("maintenance: embed article %s: %v", article.ID, err)
			continue
		}
		if err := r.store.PutArticleEmbedding(ctx, article.WorkspaceID, article.ID, vector); err != nil {
			return fmt.Errorf("store embedding for %s: %w", article.ID, err)
		}
		indexed++
	}
	if indexed > 0 {
		log.Printf("maintenance: indexed %d articles", indexed)
	}
	return nil
}

func (r *Runtime) refreshDigests(ctx context.Context, workspaceIDs []string) error {
	for _, workspaceID := range workspaceIDs {
		if _, err := r.agent.Refresh(ctx, workspaceID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("maintenance: refresh digest for %s: %v", workspaceID, err)
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
