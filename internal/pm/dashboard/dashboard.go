// Package dashboard defines per-user workspace dashboard layouts.
package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Known widget kinds. Unknown kinds are rejected so stale layouts cannot
// reference widgets the frontend no longer renders.
const (
	WidgetTaskSummary  = "task_summary"
	WidgetRiskMatrix   = "risk_matrix"
	WidgetBurnup       = "burnup"
	WidgetForecast     = "forecast"
	WidgetActivityFeed = "activity_feed"
	WidgetSavedView    = "saved_view"
)

var knownWidgets = map[string]bool{
	WidgetTaskSummary:  true,
	WidgetRiskMatrix:   true,
	WidgetBurnup:       true,
	WidgetForecast:     true,
	WidgetActivityFeed: true,
	WidgetSavedView:    true,
}

// maxWidgets caps how many widgets one layout may hold.
const maxWidgets = 24

// gridColumns is the dashboard grid width in columns.
const gridColumns = 12

// Widget places one widget on the dashboard grid.
type Widget struct {
	Kind string `json:"kind"`
	// RefID points at a saved view for WidgetSavedView; empty otherwise.
	RefID string `json:"ref_id,omitempty"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
}

// Layout is one user's dashboard arrangement for one workspace.
type Layout struct {
	WorkspaceID string
	UserID      string
	Widgets     []Widget
	UpdatedAt   time.Time
}

// NewLayout validates and assembles a dashboard layout.
func NewLayout(workspaceID, userID string, widgets []Widget, now func() time.Time) (Layout, error) {
	if now == nil {
		now = time.Now
	}
	workspaceID = strings.TrimSpace(workspaceID)
	userID = strings.TrimSpace(userID)
	if workspaceID == "" || userID == "" {
		return Layout{}, errors.New("workspace id and user id are required")
	}
	if err := ValidateWidgets(widgets); err != nil {
		return Layout{}, err
	}
	return Layout{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Widgets:     widgets,
		UpdatedAt:   now().UTC(),
	}, nil
}

// ValidateWidgets checks widget kinds and grid geometry.
func ValidateWidgets(widgets []Widget) error {
	if len(widgets) > maxWidgets {
		return fmt.Errorf("layout exceeds %d widgets", maxWidgets)
	}
	for i, widget := range widgets {
		if !knownWidgets[widget.Kind] {
			return fmt.Errorf("widget %d has unknown kind %q", i, widget.Kind)
		}
		if widget.Kind == WidgetSavedView && strings.TrimSpace(widget.RefID) == "" {
			return fmt.Errorf("widget %d requires a saved view reference", i)
		}
		if widget.W <= 0 || widget.H <= 0 {
			return fmt.Errorf("widget %d has non-positive size", i)
		}
		if widget.X < 0 || widget.Y < 0 || widget.X+widget.W > gridColumns {
			return fmt.Errorf("widget %d does not fit the %d-column grid", i, gridColumns)
		}
	}
	return nil
}
