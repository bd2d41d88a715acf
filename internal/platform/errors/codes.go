// Package errors provides structured error handling for the HYVVE backend.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidArgument represents a malformed request payload.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Workspace errors
	CodeWorkspaceNameEmpty       Code = "WORKSPACE_NAME_EMPTY"
	CodeWorkspaceNotFound        Code = "WORKSPACE_NOT_FOUND"
	CodeWorkspaceArchived        Code = "WORKSPACE_ARCHIVED"
	CodeWorkspaceSlugInvalid     Code = "WORKSPACE_SLUG_INVALID"
	CodeWorkspaceSlugUnavailable Code = "WORKSPACE_SLUG_UNAVAILABLE"

	// Member errors
	CodeMemberNotFound       Code = "MEMBER_NOT_FOUND"
	CodeMemberAlreadyExists  Code = "MEMBER_ALREADY_EXISTS"
	CodeMemberInvalidRole    Code = "MEMBER_INVALID_ROLE"
	CodeMemberOwnerImmutable Code = "MEMBER_OWNER_IMMUTABLE"
	CodeMemberForbidden      Code = "MEMBER_FORBIDDEN"

	// Invitation errors
	CodeInvitationEmptyEmail Code = "INVITATION_EMPTY_EMAIL"
	CodeInvitationNotFound   Code = "INVITATION_NOT_FOUND"
	CodeInvitationNotPending Code = "INVITATION_NOT_PENDING"
	CodeInvitationExpired    Code = "INVITATION_EXPIRED"
	CodeInvitationDuplicate  Code = "INVITATION_DUPLICATE"

	// Auth errors
	CodeAuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthInvalidToken       Code = "AUTH_INVALID_TOKEN"

	// PM errors
	CodeViewNotFound             Code = "VIEW_NOT_FOUND"
	CodeViewNameEmpty            Code = "VIEW_NAME_EMPTY"
	CodeViewInvalidOrderBy       Code = "VIEW_INVALID_ORDER_BY"
	CodeRiskNotFound             Code = "RISK_NOT_FOUND"
	CodeRiskTitleEmpty           Code = "RISK_TITLE_EMPTY"
	CodeRiskInvalidScore         Code = "RISK_INVALID_SCORE"
	CodeTaskNotFound             Code = "TASK_NOT_FOUND"
	CodeTaskTitleEmpty           Code = "TASK_TITLE_EMPTY"
	CodeTaskInvalidEstimate      Code = "TASK_INVALID_ESTIMATE"
	CodeScheduleDependencyCycle  Code = "SCHEDULE_DEPENDENCY_CYCLE"
	CodeForecastInsufficientData Code = "FORECAST_INSUFFICIENT_DATA"

	// Knowledge base errors
	CodeArticleNotFound   Code = "ARTICLE_NOT_FOUND"
	CodeArticleTitleEmpty Code = "ARTICLE_TITLE_EMPTY"

	// Rate limit errors
	CodeRateLimited Code = "RATE_LIMITED"
)

// HTTPStatus maps an error code to an HTTP status code at the API boundary.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeWorkspaceNotFound, CodeMemberNotFound, CodeInvitationNotFound,
		CodeViewNotFound, CodeRiskNotFound, CodeTaskNotFound, CodeArticleNotFound:
		return http.StatusNotFound
	case CodeWorkspaceSlugUnavailable, CodeMemberAlreadyExists,
		CodeInvitationDuplicate, CodeInvitationNotPending:
		return http.StatusConflict
	case CodeInvitationExpired:
		return http.StatusGone
	case CodeAuthInvalidCredentials, CodeAuthInvalidToken:
		return http.StatusUnauthorized
	case CodeMemberForbidden, CodeMemberOwnerImmutable, CodeWorkspaceArchived:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
