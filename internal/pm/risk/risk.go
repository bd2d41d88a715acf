// Package risk defines workspace risk register entries.
package risk

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

// Status represents the lifecycle status of a risk entry.
type Status int

const (
	// StatusUnspecified represents an invalid risk status.
	StatusUnspecified Status = iota
	// StatusOpen indicates a risk under watch.
	StatusOpen
	// StatusMitigating indicates active mitigation work.
	StatusMitigating
	// StatusResolved indicates a retired risk.
	StatusResolved
	// StatusAccepted indicates a risk consciously carried.
	StatusAccepted
)

// Probability and impact are scored 1..5; severity is their product.
const (
	MinScore = 1
	MaxScore = 5
)

// SeverityCritical is the severity floor for critical risks (probability and
// impact both at least 4).
const SeverityCritical = 16

var (
	// ErrEmptyTitle indicates a missing risk title.
	ErrEmptyTitle = apperrors.New(apperrors.CodeRiskTitleEmpty, "risk title is required")
	// ErrInvalidScore indicates an out-of-range probability or impact.
	ErrInvalidScore = apperrors.New(apperrors.CodeRiskInvalidScore, "risk probability and impact must be between 1 and 5")
)

// Entry represents one risk register entry.
type Entry struct {
	ID          string
	WorkspaceID string
	Title       string
	Description string
	Probability int
	Impact      int
	Status      Status
	OwnerUserID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateEntryInput describes the metadata needed to create a risk entry.
type CreateEntryInput struct {
	WorkspaceID string
	Title       string
	Description string
	Probability int
	Impact      int
	OwnerUserID string
}

// CreateEntry creates a risk entry with a generated ID and timestamps.
func CreateEntry(input CreateEntryInput, now func() time.Time, idGenerator func() (string, error)) (Entry, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateEntryInput(input)
	if err != nil {
		return Entry{}, err
	}

	entryID, err := idGenerator()
	if err != nil {
		return Entry{}, fmt.Errorf("generate risk id: %w", err)
	}

	createdAt := now().UTC()
	return Entry{
		ID:          entryID,
		WorkspaceID: normalized.WorkspaceID,
		Title:       normalized.Title,
		Description: normalized.Description,
		Probability: normalized.Probability,
		Impact:      normalized.Impact,
		Status:      StatusOpen,
		OwnerUserID: normalized.OwnerUserID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateEntryInput trims and validates risk input metadata.
func NormalizeCreateEntryInput(input CreateEntryInput) (CreateEntryInput, error) {
	input.WorkspaceID = strings.TrimSpace(input.WorkspaceID)
	if input.WorkspaceID == "" {
		return CreateEntryInput{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace id is required")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return CreateEntryInput{}, ErrEmptyTitle
	}
	input.Description = strings.TrimSpace(input.Description)
	if input.Probability < MinScore || input.Probability > MaxScore ||
		input.Impact < MinScore || input.Impact > MaxScore {
		return CreateEntryInput{}, ErrInvalidScore
	}
	input.OwnerUserID = strings.TrimSpace(input.OwnerUserID)
	return input, nil
}

// Severity is the probability-impact product used for register ordering.
func (e Entry) Severity() int {
	return e.Probability * e.Impact
}

// Critical reports whether the entry sits in the critical band.
func (e Entry) Critical() bool {
	return e.Severity() >= SeverityCritical
}

// StatusLabel returns the string label for a risk status.
func StatusLabel(status Status) string {
	switch status {
	case StatusOpen:
		return "OPEN"
	case StatusMitigating:
		return "MITIGATING"
	case StatusResolved:
		return "RESOLVED"
	case StatusAccepted:
		return "ACCEPTED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "OPEN":
		return StatusOpen
	case "MITIGATING":
		return StatusMitigating
	case "RESOLVED":
		return StatusResolved
	case "ACCEPTED":
		return StatusAccepted
	default:
		return StatusUnspecified
	}
}
