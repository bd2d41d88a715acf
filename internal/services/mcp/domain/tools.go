package domain

import "github.com/modelcontextprotocol/go-sdk/mcp"

// WorkspaceListInput selects the workspaces visible to one user.
type WorkspaceListInput struct {
	UserID    string `json:"user_id" jsonschema:"user identifier whose memberships are listed"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum workspaces to return"`
	PageToken string `json:"page_token,omitempty" jsonschema:"opaque cursor from a previous call"`
}

// WorkspaceSummary is one workspace row in a listing result.
type WorkspaceSummary struct {
	ID          string `json:"id" jsonschema:"workspace identifier"`
	Slug        string `json:"slug" jsonschema:"workspace URL slug"`
	Name        string `json:"name" jsonschema:"workspace display name"`
	Description string `json:"description,omitempty" jsonschema:"workspace description"`
	Status      string `json:"status" jsonschema:"workspace status (ACTIVE, ARCHIVED)"`
}

// WorkspaceListResult lists workspaces for a user.
type WorkspaceListResult struct {
	Workspaces    []WorkspaceSummary `json:"workspaces" jsonschema:"workspaces the user belongs to"`
	NextPageToken string             `json:"next_page_token,omitempty" jsonschema:"cursor for the next page"`
}

// RiskListInput selects the risk register of one workspace.
type RiskListInput struct {
	WorkspaceSlug string `json:"workspace_slug" jsonschema:"workspace URL slug"`
}

// RiskSummary is one risk register entry.
type RiskSummary struct {
	ID          string `json:"id" jsonschema:"risk identifier"`
	Title       string `json:"title" jsonschema:"risk title"`
	Status      string `json:"status" jsonschema:"risk status (OPEN, MITIGATING, RESOLVED, ACCEPTED)"`
	Probability int    `json:"probability" jsonschema:"probability score 1..5"`
	Impact      int    `json:"impact" jsonschema:"impact score 1..5"`
	Severity    int    `json:"severity" jsonschema:"probability times impact"`
	Critical    bool   `json:"critical" jsonschema:"severity at or above the critical threshold"`
}

// RiskListResult lists risks ordered by severity, highest first.
type RiskListResult struct {
	Risks []RiskSummary `json:"risks" jsonschema:"risk register entries, highest severity first"`
}

// ForecastGetInput selects the completion forecast of one workspace.
type ForecastGetInput struct {
	WorkspaceSlug string `json:"workspace_slug" jsonschema:"workspace URL slug"`
}

// ForecastGetResult reports a Monte Carlo completion forecast.
type ForecastGetResult struct {
	RemainingTasks int `json:"remaining_tasks" jsonschema:"tasks not yet done"`
	SampleWeeks    int `json:"sample_weeks" jsonschema:"throughput history weeks used"`
	Trials         int `json:"trials" jsonschema:"simulation trials run"`
	P50Weeks       int `json:"p50_weeks" jsonschema:"weeks to finish at 50 percent confidence"`
	P75Weeks       int `json:"p75_weeks" jsonschema:"weeks to finish at 75 percent confidence"`
	P90Weeks       int `json:"p90_weeks" jsonschema:"weeks to finish at 90 percent confidence"`
}

// KBSearchInput queries one workspace's knowledge base.
type KBSearchInput struct {
	WorkspaceSlug string `json:"workspace_slug" jsonschema:"workspace URL slug"`
	Query         string `json:"query" jsonschema:"search query text"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum results to return"`
}

// KBSearchMatch is one knowledge base search hit.
type KBSearchMatch struct {
	ID    string  `json:"id" jsonschema:"article identifier"`
	Title string  `json:"title" jsonschema:"article title"`
	Body  string  `json:"body" jsonschema:"article body"`
	Score float64 `json:"score" jsonschema:"relevance score, higher is better"`
}

// KBSearchResult lists knowledge base matches, best first.
type KBSearchResult struct {
	Results []KBSearchMatch `json:"results" jsonschema:"search hits ordered by relevance"`
}

// WorkspaceListTool defines the MCP tool schema for listing workspaces.
func WorkspaceListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "workspace_list",
		Description: "Lists the workspaces a user belongs to",
	}
}

// RiskListTool defines the MCP tool schema for reading a risk register.
func RiskListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "risk_list",
		Description: "Lists a workspace risk register ordered by severity",
	}
}

// ForecastGetTool defines the MCP tool schema for completion forecasts.
func ForecastGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "forecast_get",
		Description: "Runs a Monte Carlo completion forecast for a workspace",
	}
}

// KBSearchTool defines the MCP tool schema for knowledge base search.
func KBSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "kb_search",
		Description: "Searches a workspace knowledge base",
	}
}
