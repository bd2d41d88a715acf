// Package activity records workspace events and fans them out to live feed
// subscribers.
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/platform/id"
)

// Event kinds recorded in the journal.
const (
	KindWorkspaceCreated   = "workspace.created"
	KindWorkspaceArchived  = "workspace.archived"
	KindMemberJoined       = "member.joined"
	KindMemberRemoved      = "member.removed"
	KindMemberRoleChanged  = "member.role_changed"
	KindInvitationSent     = "invitation.sent"
	KindInvitationAccepted = "invitation.accepted"
	KindTaskCreated        = "task.created"
	KindTaskCompleted      = "task.completed"
	KindRiskOpened         = "risk.opened"
	KindRiskResolved       = "risk.resolved"
	KindArticlePublished   = "article.published"
	KindDigestRefreshed    = "digest.refreshed"
)

// Event is one journal entry.
type Event struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Kind        string `json:"kind"`
	ActorID     string `json:"actor_id,omitempty"`
	// SubjectID identifies the record the event concerns.
	SubjectID  string    `json:"subject_id,omitempty"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store persists journal entries.
type Store interface {
	PutEvent(ctx context.Context, event Event) error
	ListEvents(ctx context.Context, workspaceID string, limit int) ([]Event, error)
	DeleteEventsBefore(ctx context.Context, cutoffMillis int64) (int, error)
}

// Journal records events and notifies the live feed.
type Journal struct {
	store Store
	hub   *Hub
	now   func() time.Time
	newID func() (string, error)
}

// NewJournal creates a journal over the given store. hub may be nil when no
// live feed is attached.
func NewJournal(store Store, hub *Hub) *Journal {
	return &Journal{
		store: store,
		hub:   hub,
		now:   time.Now,
		newID: id.NewID,
	}
}

// SetClock overrides the journal clock. Intended for tests.
func (j *Journal) SetClock(now func() time.Time) {
	j.now = now
}

// Record validates, persists, and broadcasts one event.
func (j *Journal) Record(ctx context.Context, workspaceID, kind, actorID, subjectID, summary string) (Event, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	kind = strings.TrimSpace(kind)
	if workspaceID == "" || kind == "" {
		return Event{}, fmt.Errorf("workspace id and kind are required")
	}

	eventID, err := j.newID()
	if err != nil {
		return Event{}, fmt.Errorf("generate event id: %w", err)
	}

	event := Event{
		ID:          eventID,
		WorkspaceID: workspaceID,
		Kind:        kind,
		ActorID:     strings.TrimSpace(actorID),
		SubjectID:   strings.TrimSpace(subjectID),
		Summary:     strings.TrimSpace(summary),
		OccurredAt:  j.now().UTC(),
	}
	if err := j.store.PutEvent(ctx, event); err != nil {
		return Event{}, fmt.Errorf("persist event: %w", err)
	}
	if j.hub != nil {
		j.hub.Broadcast(event)
	}
	return event, nil
}

// Recent returns the latest events for a workspace, newest first.
func (j *Journal) Recent(ctx context.Context, workspaceID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return j.store.ListEvents(ctx, workspaceID, limit)
}
