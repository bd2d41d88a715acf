// Package view defines saved views: named, shareable filter and ordering
// presets over workspace tasks.
package view

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

// Visibility controls who can see a saved view.
type Visibility int

const (
	// VisibilityUnspecified represents an invalid visibility value.
	VisibilityUnspecified Visibility = iota
	// VisibilityPrivate limits the view to its creator.
	VisibilityPrivate
	// VisibilityShared exposes the view to the whole workspace.
	VisibilityShared
)

// ErrEmptyName indicates a missing view name.
var ErrEmptyName = apperrors.New(apperrors.CodeViewNameEmpty, "view name is required")

// allowedOrderFields are the task fields a saved view may order by.
var allowedOrderFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"due_date":   true,
	"title":      true,
	"status":     true,
	"assignee":   true,
}

// SavedView represents one named filter preset over workspace tasks.
type SavedView struct {
	ID          string
	WorkspaceID string
	Name        string
	Filter      string
	OrderBy     string
	Visibility  Visibility
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateSavedViewInput describes the metadata needed to create a saved view.
type CreateSavedViewInput struct {
	WorkspaceID string
	Name        string
	Filter      string
	OrderBy     string
	Visibility  Visibility
	CreatedBy   string
}

// CreateSavedView creates a saved view with a generated ID and timestamps.
func CreateSavedView(input CreateSavedViewInput, now func() time.Time, idGenerator func() (string, error)) (SavedView, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateSavedViewInput(input)
	if err != nil {
		return SavedView{}, err
	}

	viewID, err := idGenerator()
	if err != nil {
		return SavedView{}, fmt.Errorf("generate view id: %w", err)
	}

	createdAt := now().UTC()
	return SavedView{
		ID:          viewID,
		WorkspaceID: normalized.WorkspaceID,
		Name:        normalized.Name,
		Filter:      normalized.Filter,
		OrderBy:     normalized.OrderBy,
		Visibility:  normalized.Visibility,
		CreatedBy:   normalized.CreatedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateSavedViewInput trims and validates saved view input.
func NormalizeCreateSavedViewInput(input CreateSavedViewInput) (CreateSavedViewInput, error) {
	input.WorkspaceID = strings.TrimSpace(input.WorkspaceID)
	if input.WorkspaceID == "" {
		return CreateSavedViewInput{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace id is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateSavedViewInput{}, ErrEmptyName
	}
	input.Filter = strings.TrimSpace(input.Filter)

	input.OrderBy = strings.TrimSpace(input.OrderBy)
	if input.OrderBy == "" {
		input.OrderBy = "created_at"
	}
	field := strings.TrimSuffix(strings.TrimSuffix(input.OrderBy, " desc"), " asc")
	if !allowedOrderFields[field] {
		return CreateSavedViewInput{}, apperrors.WithMetadata(
			apperrors.CodeViewInvalidOrderBy,
			"view order_by field is not orderable",
			map[string]string{"Field": input.OrderBy},
		)
	}

	if input.Visibility == VisibilityUnspecified {
		input.Visibility = VisibilityPrivate
	}
	input.CreatedBy = strings.TrimSpace(input.CreatedBy)
	return input, nil
}

// VisibleTo reports whether the view is visible to the given user.
func (v SavedView) VisibleTo(userID string) bool {
	if v.Visibility == VisibilityShared {
		return true
	}
	return v.CreatedBy != "" && v.CreatedBy == userID
}

// VisibilityLabel returns the string label for a visibility value.
func VisibilityLabel(visibility Visibility) string {
	switch visibility {
	case VisibilityPrivate:
		return "PRIVATE"
	case VisibilityShared:
		return "SHARED"
	default:
		return "UNSPECIFIED"
	}
}

// VisibilityFromLabel converts a visibility label to a Visibility value.
func VisibilityFromLabel(label string) Visibility {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PRIVATE":
		return VisibilityPrivate
	case "SHARED":
		return VisibilityShared
	default:
		return VisibilityUnspecified
	}
}
