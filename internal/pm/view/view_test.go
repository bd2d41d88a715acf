package view

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
}

func staticID(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func TestCreateSavedView(t *testing.T) {
	saved, err := CreateSavedView(CreateSavedViewInput{
		WorkspaceID: "ws-1",
		Name:        "  Overdue tasks  ",
		Filter:      " status:todo ",
		CreatedBy:   "user-1",
	}, fixedNow, staticID("view-1"))
	if err != nil {
		t.Fatalf("create saved view: %v", err)
	}

	if saved.ID != "view-1" {
		t.Fatalf("id = %q, want view-1", saved.ID)
	}
	if saved.Name != "Overdue tasks" {
		t.Fatalf("name = %q, want trimmed", saved.Name)
	}
	if saved.OrderBy != "created_at" {
		t.Fatalf("order by = %q, want created_at default", saved.OrderBy)
	}
	if saved.Visibility != VisibilityPrivate {
		t.Fatalf("visibility = %v, want private default", saved.Visibility)
	}
	if !saved.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("created at = %s, want %s", saved.CreatedAt, fixedNow())
	}
}

func TestCreateSavedViewRequiresName(t *testing.T) {
	_, err := CreateSavedView(CreateSavedViewInput{
		WorkspaceID: "ws-1",
		Name:        "   ",
	}, fixedNow, staticID("view-1"))
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestCreateSavedViewRejectsUnknownOrderField(t *testing.T) {
	_, err := CreateSavedView(CreateSavedViewInput{
		WorkspaceID: "ws-1",
		Name:        "Board",
		OrderBy:     "secret_column",
	}, fixedNow, staticID("view-1"))
	if apperrors.CodeOf(err) != apperrors.CodeViewInvalidOrderBy {
		t.Fatalf("expected invalid order_by error, got %v", err)
	}
}

func TestCreateSavedViewAcceptsDirectionSuffix(t *testing.T) {
	saved, err := CreateSavedView(CreateSavedViewInput{
		WorkspaceID: "ws-1",
		Name:        "Recently updated",
		OrderBy:     "updated_at desc",
	}, fixedNow, staticID("view-1"))
	if err != nil {
		t.Fatalf("create saved view: %v", err)
	}
	if saved.OrderBy != "updated_at desc" {
		t.Fatalf("order by = %q, want updated_at desc", saved.OrderBy)
	}
}

func TestVisibleTo(t *testing.T) {
	private := SavedView{Visibility: VisibilityPrivate, CreatedBy: "user-1"}
	if !private.VisibleTo("user-1") {
		t.Fatal("expected private view visible to creator")
	}
	if private.VisibleTo("user-2") {
		t.Fatal("expected private view hidden from other members")
	}

	shared := SavedView{Visibility: VisibilityShared, CreatedBy: "user-1"}
	if !shared.VisibleTo("user-2") {
		t.Fatal("expected shared view visible to all members")
	}
}

func TestVisibilityLabelRoundTrip(t *testing.T) {
	for _, visibility := range []Visibility{VisibilityPrivate, VisibilityShared} {
		if got := VisibilityFromLabel(VisibilityLabel(visibility)); got != visibility {
			t.Fatalf("round trip for %v = %v", visibility, got)
		}
	}
	if VisibilityFromLabel("bogus") != VisibilityUnspecified {
		t.Fatal("expected unknown label to map to unspecified")
	}
}
