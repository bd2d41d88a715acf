package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeWorkspaceNotFound, "workspace ws-1 not found")
	target := New(CodeWorkspaceNotFound, "different message")
	if !stderrors.Is(err, target) {
		t.Fatal("expected errors with the same code to match")
	}
	other := New(CodeMemberNotFound, "member missing")
	if stderrors.Is(err, other) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("sql: no rows")
	err := Wrap(CodeRiskNotFound, "risk lookup failed", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Error() != "risk lookup failed" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"domain error", New(CodeRateLimited, "too many requests"), CodeRateLimited},
		{"wrapped domain error", fmt.Errorf("handler: %w", New(CodeInvitationExpired, "expired")), CodeInvitationExpired},
		{"plain error", stderrors.New("boom"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("CodeOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeWorkspaceNotFound, http.StatusNotFound},
		{CodeWorkspaceSlugUnavailable, http.StatusConflict},
		{CodeInvitationExpired, http.StatusGone},
		{CodeAuthInvalidToken, http.StatusUnauthorized},
		{CodeMemberForbidden, http.StatusForbidden},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnknown, http.StatusInternalServerError},
		{CodeTaskTitleEmpty, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Fatalf("%s.HTTPStatus() = %d, want %d", tt.code, got, tt.want)
		}
	}
}
