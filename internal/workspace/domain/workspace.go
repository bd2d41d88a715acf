// Package domain defines workspace aggregates and their validation rules.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

// Status represents the lifecycle status of a workspace.
type Status int

const (
	// StatusUnspecified represents an invalid workspace status.
	StatusUnspecified Status = iota
	// StatusActive indicates a workspace accepting work.
	StatusActive
	// StatusArchived indicates a workspace closed to mutations.
	StatusArchived
)

var (
	// ErrEmptyName indicates a missing workspace name.
	ErrEmptyName = apperrors.New(apperrors.CodeWorkspaceNameEmpty, "workspace name is required")
)

// Workspace represents one tenant boundary.
type Workspace struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Status      Status
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateWorkspaceInput describes the metadata needed to create a workspace.
type CreateWorkspaceInput struct {
	Name        string
	Description string
	CreatedBy   string
}

// CreateWorkspace creates a new workspace with a generated ID, derived slug,
// and timestamps. Slug uniqueness is the storage layer's concern; callers
// retry with ResuffixSlug on conflict.
func CreateWorkspace(input CreateWorkspaceInput, now func() time.Time, idGenerator func() (string, error)) (Workspace, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateWorkspaceInput(input)
	if err != nil {
		return Workspace{}, err
	}

	workspaceID, err := idGenerator()
	if err != nil {
		return Workspace{}, fmt.Errorf("generate workspace id: %w", err)
	}

	slug, err := Slugify(normalized.Name)
	if err != nil {
		return Workspace{}, err
	}

	createdAt := now().UTC()
	return Workspace{
		ID:          workspaceID,
		Slug:        slug,
		Name:        normalized.Name,
		Description: normalized.Description,
		Status:      StatusActive,
		CreatedBy:   normalized.CreatedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateWorkspaceInput trims and validates workspace input metadata.
func NormalizeCreateWorkspaceInput(input CreateWorkspaceInput) (CreateWorkspaceInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateWorkspaceInput{}, ErrEmptyName
	}
	input.Description = strings.TrimSpace(input.Description)
	input.CreatedBy = strings.TrimSpace(input.CreatedBy)
	return input, nil
}

// StatusLabel returns the string label for a workspace status.
func StatusLabel(status Status) string {
	switch status {
	case StatusActive:
		return "ACTIVE"
	case StatusArchived:
		return "ARCHIVED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "ACTIVE":
		return StatusActive
	case "ARCHIVED":
		return StatusArchived
	default:
		return StatusUnspecified
	}
}
