package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyvve/hyvve/internal/kb"
	kbstorage "github.com/hyvve/hyvve/internal/kb/storage"
	"github.com/hyvve/hyvve/internal/pm/forecast"
	"github.com/hyvve/hyvve/internal/pm/risk"
	"github.com/hyvve/hyvve/internal/pm/schedule"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/random"
	"github.com/hyvve/hyvve/internal/workspace/domain"
	wsstorage "github.com/hyvve/hyvve/internal/workspace/storage"
)

// defaultSearchLimit bounds kb_search results when the caller gives no limit.
const defaultSearchLimit = 10

// resolveWorkspace maps a slug input to a workspace record.
func resolveWorkspace(ctx context.Context, workspaces wsstorage.WorkspaceStore, slug string) (domain.Workspace, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Workspace{}, fmt.Errorf("workspace_slug is required")
	}
	workspace, err := workspaces.GetWorkspaceBySlug(ctx, slug)
	if err != nil {
		return domain.Workspace{}, fmt.Errorf("workspace %q not found", slug)
	}
	return workspace, nil
}

// WorkspaceListHandler lists the workspaces a user belongs to.
func WorkspaceListHandler(workspaces wsstorage.WorkspaceStore) mcp.ToolHandlerFor[WorkspaceListInput, WorkspaceListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WorkspaceListInput) (*mcp.CallToolResult, WorkspaceListResult, error) {
		userID := strings.TrimSpace(input.UserID)
		if userID == "" {
			return nil, WorkspaceListResult{}, fmt.Errorf("user_id is required")
		}

		page, err := workspaces.ListWorkspacesForUser(ctx, userID, input.PageSize, input.PageToken)
		if err != nil {
			return nil, WorkspaceListResult{}, fmt.Errorf("list workspaces: %w", err)
		}

		result := WorkspaceListResult{
			Workspaces:    make([]WorkspaceSummary, 0, len(page.Workspaces)),
			NextPageToken: page.NextPageToken,
		}
		for _, workspace := range page.Workspaces {
			result.Workspaces = append(result.Workspaces, WorkspaceSummary{
				ID:          workspace.ID,
				Slug:        workspace.Slug,
				Name:        workspace.Name,
				Description: workspace.Description,
				Status:      domain.StatusLabel(workspace.Status),
			})
		}
		return nil, result, nil
	}
}

// RiskListHandler reads a workspace risk register, highest severity first.
func RiskListHandler(workspaces wsstorage.WorkspaceStore, risks pmstorage.RiskStore) mcp.ToolHandlerFor[RiskListInput, RiskListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RiskListInput) (*mcp.CallToolResult, RiskListResult, error) {
		workspace, err := resolveWorkspace(ctx, workspaces, input.WorkspaceSlug)
		if err != nil {
			return nil, RiskListResult{}, err
		}

		entries, err := risks.ListAllRisks(ctx, workspace.ID)
		if err != nil {
			return nil, RiskListResult{}, fmt.Errorf("list risks: %w", err)
		}

		result := RiskListResult{Risks: make([]RiskSummary, 0, len(entries))}
		for _, entry := range entries {
			result.Risks = append(result.Risks, RiskSummary{
				ID:          entry.ID,
				Title:       entry.Title,
				Status:      risk.StatusLabel(entry.Status),
				Probability: entry.Probability,
				Impact:      entry.Impact,
				Severity:    entry.Severity(),
				Critical:    entry.Critical(),
			})
		}
		return nil, result, nil
	}
}

// ForecastGetHandler runs a Monte Carlo completion forecast for a workspace.
func ForecastGetHandler(workspaces wsstorage.WorkspaceStore, tasks pmstorage.TaskStore, throughput pmstorage.ThroughputStore) mcp.ToolHandlerFor[ForecastGetInput, ForecastGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ForecastGetInput) (*mcp.CallToolResult, ForecastGetResult, error) {
		workspace, err := resolveWorkspace(ctx, workspaces, input.WorkspaceSlug)
		if err != nil {
			return nil, ForecastGetResult{}, err
		}

		samples, err := throughput.ListThroughputSamples(ctx, workspace.ID, forecast.WindowWeeks)
		if err != nil {
			return nil, ForecastGetResult{}, fmt.Errorf("list throughput: %w", err)
		}
		counts := make([]int, 0, len(samples))
		for _, sample := range samples {
			counts = append(counts, sample.Completed)
		}

		statusCounts, err := tasks.CountTasksByStatus(ctx, workspace.ID)
		if err != nil {
			return nil, ForecastGetResult{}, fmt.Errorf("count tasks: %w", err)
		}
		remaining := 0
		for status, count := range statusCounts {
			if status != schedule.TaskStatusDone {
				remaining += count
			}
		}

		seed, err := random.NewSeed()
		if err != nil {
			return nil, ForecastGetResult{}, fmt.Errorf("seed forecast: %w", err)
		}
		run, err := forecast.Run(counts, remaining, seed)
		if err != nil {
			return nil, ForecastGetResult{}, fmt.Errorf("run forecast: %w", err)
		}

		return nil, ForecastGetResult{
			RemainingTasks: run.RemainingTasks,
			SampleWeeks:    run.SampleWeeks,
			Trials:         run.Trials,
			P50Weeks:       run.P50Weeks,
			P75Weeks:       run.P75Weeks,
			P90Weeks:       run.P90Weeks,
		}, nil
	}
}

// KBSearchHandler searches a workspace knowledge base. A nil embedder falls
// back to keyword ranking inside kb.Search.
func KBSearchHandler(workspaces wsstorage.WorkspaceStore, articles kbstorage.ArticleStore, embedder kb.Embedder) mcp.ToolHandlerFor[KBSearchInput, KBSearchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input KBSearchInput) (*mcp.CallToolResult, KBSearchResult, error) {
		workspace, err := resolveWorkspace(ctx, workspaces, input.WorkspaceSlug)
		if err != nil {
			return nil, KBSearchResult{}, err
		}
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, KBSearchResult{}, fmt.Errorf("query is required")
		}
		limit := input.Limit
		if limit <= 0 {
			limit = defaultSearchLimit
		}

		all, err := articles.ListAllArticles(ctx, workspace.ID)
		if err != nil {
			return nil, KBSearchResult{}, fmt.Errorf("list articles: %w", err)
		}
		matches, err := kb.Search(ctx, embedder, query, all, limit)
		if err != nil {
			return nil, KBSearchResult{}, fmt.Errorf("search articles: %w", err)
		}

		result := KBSearchResult{Results: make([]KBSearchMatch, 0, len(matches))}
		for _, match := range matches {
			result.Results = append(result.Results, KBSearchMatch{
				ID:    match.Article.ID,
				Title: match.Article.Title,
				Body:  match.Article.Body,
				Score: match.Score,
			})
		}
		return nil, result, nil
	}
}
