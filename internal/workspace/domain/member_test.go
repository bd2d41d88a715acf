package domain

import (
	"errors"
	"testing"
)

func TestNewMember(t *testing.T) {
	member, err := NewMember("ws-1", " user-2 ", RoleMember, "user-1", fixedNow)
	if err != nil {
		t.Fatalf("new member: %v", err)
	}
	if member.UserID != "user-2" {
		t.Fatalf("user id = %q, want trimmed", member.UserID)
	}
	if member.InvitedBy != "user-1" {
		t.Fatalf("invited by = %q", member.InvitedBy)
	}
	if !member.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("created at = %s", member.CreatedAt)
	}
}

func TestNewMemberValidation(t *testing.T) {
	if _, err := NewMember("", "user-2", RoleMember, "", fixedNow); err == nil {
		t.Fatal("expected error for empty workspace id")
	}
	if _, err := NewMember("ws-1", "", RoleMember, "", fixedNow); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := NewMember("ws-1", "user-2", RoleUnspecified, "", fixedNow); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRolePermissions(t *testing.T) {
	tests := []struct {
		role       Role
		manage     bool
		edit       bool
		read       bool
	}{
		{RoleViewer, false, false, true},
		{RoleMember, false, true, true},
		{RoleAdmin, true, true, true},
		{RoleOwner, true, true, true},
		{RoleUnspecified, false, false, false},
	}
	for _, tt := range tests {
		t.Run(RoleLabel(tt.role), func(t *testing.T) {
			if got := tt.role.CanManageMembers(); got != tt.manage {
				t.Fatalf("CanManageMembers = %v, want %v", got, tt.manage)
			}
			if got := tt.role.CanEdit(); got != tt.edit {
				t.Fatalf("CanEdit = %v, want %v", got, tt.edit)
			}
			if got := tt.role.CanRead(); got != tt.read {
				t.Fatalf("CanRead = %v, want %v", got, tt.read)
			}
		})
	}
}

func TestRoleLabelRoundTrip(t *testing.T) {
	for _, role := range []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner} {
		if got := RoleFromLabel(RoleLabel(role)); got != role {
			t.Fatalf("round trip for %v = %v", role, got)
		}
	}
	if RoleFromLabel("sudo") != RoleUnspecified {
		t.Fatal("expected unknown label to map to unspecified")
	}
}
