package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/agent/prism"
	"github.com/hyvve/hyvve/internal/auth/password"
	"github.com/hyvve/hyvve/internal/auth/token"
	"github.com/hyvve/hyvve/internal/identity"
	"github.com/hyvve/hyvve/internal/platform/pagination"
	"github.com/hyvve/hyvve/internal/ratelimit"
	"github.com/hyvve/hyvve/internal/storage/sqlite"
	wsservice "github.com/hyvve/hyvve/internal/workspace/service"
)

type testAPI struct {
	routes http.Handler
	store  *sqlite.Store
	tokens token.Config
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "hyvve.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	hub := activity.NewHub()
	journal := activity.NewJournal(store, hub)
	tokens := token.Config{
		Issuer: "hyvve-test",
		Secret: []byte("test-secret-test-secret-test-key"),
		TTL:    time.Hour,
	}

	handler, err := NewHandler(Config{
		Workspaces: wsservice.NewService(store, store, journal, nil),
		Users:      store,
		Planning:   store,
		Articles:   store,
		Agent:      prism.NewAgent(store, store, store, store),
		Journal:    journal,
		Hub:        hub,
		Tokens:     tokens,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	return &testAPI{routes: handler.Routes(), store: store, tokens: tokens}
}

func (a *testAPI) createUser(t *testing.T, email, plaintext string) identity.User {
	t.Helper()

	hash, err := password.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := identity.NewUser(email, "", hash, nil, nil)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := a.store.PutUser(context.Background(), user); err != nil {
		t.Fatalf("put user: %v", err)
	}
	return user
}

func (a *testAPI) bearer(t *testing.T, userID string) string {
	t.Helper()

	accessToken, err := token.Mint(userID, a.tokens)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return accessToken
}

func (a *testAPI) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	a.routes.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return body
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	body := decodeBody(t, recorder)
	detail, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error body, got %q", recorder.Body.String())
	}
	code, _ := detail["code"].(string)
	return code
}

// createWorkspace provisions a user-owned workspace over the API and returns
// the workspace slug.
func (a *testAPI) createWorkspace(t *testing.T, bearer, name string) string {
	t.Helper()

	recorder := a.do(t, http.MethodPost, "/api/workspaces", bearer, map[string]any{"name": name})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create workspace status = %d body %q", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	slug, _ := body["slug"].(string)
	if slug == "" {
		t.Fatalf("expected workspace slug, got %q", recorder.Body.String())
	}
	return slug
}

func TestMintToken(t *testing.T) {
	api := newTestAPI(t)
	api.createUser(t, "ada@example.com", "correct horse battery")

	recorder := api.do(t, http.MethodPost, "/api/auth/token", "", map[string]any{
		"email":    "Ada@Example.com",
		"password": "correct horse battery",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("mint status = %d body %q", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["token_type"] != "Bearer" {
		t.Fatalf("token_type = %v", body["token_type"])
	}
	accessToken, _ := body["access_token"].(string)
	if accessToken == "" {
		t.Fatal("expected access token")
	}

	me := api.do(t, http.MethodGet, "/api/me", accessToken, nil)
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d body %q", me.Code, me.Body.String())
	}
	if decodeBody(t, me)["email"] != "ada@example.com" {
		t.Fatalf("me body = %q", me.Body.String())
	}
}

func TestMintTokenRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t)
	api.createUser(t, "ada@example.com", "correct horse battery")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ada@example.com", password: "guess"},
		{name: "unknown user", email: "ghost@example.com", password: "correct horse battery"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := api.do(t, http.MethodPost, "/api/auth/token", "", map[string]any{
				"email":    tc.email,
				"password": tc.password,
			})
			if recorder.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", recorder.Code)
			}
			if code := errorCode(t, recorder); code != "AUTH_INVALID_CREDENTIALS" {
				t.Fatalf("code = %q", code)
			}
		})
	}
}

func TestAuthRequiresBearerToken(t *testing.T) {
	api := newTestAPI(t)

	recorder := api.do(t, http.MethodGet, "/api/me", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}

	forged := api.do(t, http.MethodGet, "/api/me", "not-a-token", nil)
	if forged.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d, want 401", forged.Code)
	}
}

func TestCreateWorkspaceRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)

	recorder := api.do(t, http.MethodPost, "/api/workspaces", bearer, map[string]any{
		"name":  "Apollo",
		"bogus": true,
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	if code := errorCode(t, recorder); code != "INVALID_ARGUMENT" {
		t.Fatalf("code = %q", code)
	}
}

func TestWorkspaceLifecycle(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)

	slug := api.createWorkspace(t, bearer, "Apollo Program")

	got := api.do(t, http.MethodGet, "/api/workspaces/"+slug, bearer, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d body %q", got.Code, got.Body.String())
	}
	if decodeBody(t, got)["name"] != "Apollo Program" {
		t.Fatalf("get body = %q", got.Body.String())
	}

	patched := api.do(t, http.MethodPatch, "/api/workspaces/"+slug, bearer, map[string]any{
		"description": "moonshot",
	})
	if patched.Code != http.StatusOK {
		t.Fatalf("patch status = %d body %q", patched.Code, patched.Body.String())
	}
	if decodeBody(t, patched)["description"] != "moonshot" {
		t.Fatalf("patch body = %q", patched.Body.String())
	}

	members := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/members", bearer, nil)
	if members.Code != http.StatusOK {
		t.Fatalf("members status = %d body %q", members.Code, members.Body.String())
	}
	list, _ := decodeBody(t, members)["members"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected one founding member, got %d", len(list))
	}
	first, _ := list[0].(map[string]any)
	if first["role"] != "OWNER" {
		t.Fatalf("founding member role = %v", first["role"])
	}

	archived := api.do(t, http.MethodDelete, "/api/workspaces/"+slug, bearer, nil)
	if archived.Code != http.StatusOK {
		t.Fatalf("archive status = %d body %q", archived.Code, archived.Body.String())
	}
	if decodeBody(t, archived)["status"] != "ARCHIVED" {
		t.Fatalf("archive body = %q", archived.Body.String())
	}
}

func TestWorkspaceHiddenFromNonMembers(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	outsider := api.createUser(t, "mallory@example.com", "not a member here")

	slug := api.createWorkspace(t, api.bearer(t, owner.ID), "Apollo Program")

	recorder := api.do(t, http.MethodGet, "/api/workspaces/"+slug, api.bearer(t, outsider.ID), nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
	if code := errorCode(t, recorder); code != "WORKSPACE_NOT_FOUND" {
		t.Fatalf("code = %q", code)
	}
}

func TestInvitationAcceptGrantsMembership(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	invitee := api.createUser(t, "grace@example.com", "another passphrase")
	ownerBearer := api.bearer(t, owner.ID)
	inviteeBearer := api.bearer(t, invitee.ID)

	slug := api.createWorkspace(t, ownerBearer, "Apollo Program")

	invited := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/invitations", ownerBearer, map[string]any{
		"email": "grace@example.com",
		"role":  "member",
	})
	if invited.Code != http.StatusCreated {
		t.Fatalf("invite status = %d body %q", invited.Code, invited.Body.String())
	}

	// Invitation tokens travel by email; the store lookup stands in for the
	// link the invitee would click.
	invitations, err := api.store.ListInvitations(context.Background(), mustWorkspaceID(t, api, slug), 10, "")
	if err != nil {
		t.Fatalf("list invitations: %v", err)
	}
	if len(invitations.Invitations) != 1 {
		t.Fatalf("expected one invitation, got %d", len(invitations.Invitations))
	}

	accepted := api.do(t, http.MethodPost, "/api/invitations/accept", inviteeBearer, map[string]any{
		"token": invitations.Invitations[0].Token,
	})
	if accepted.Code != http.StatusOK {
		t.Fatalf("accept status = %d body %q", accepted.Code, accepted.Body.String())
	}
	if decodeBody(t, accepted)["role"] != "MEMBER" {
		t.Fatalf("accept body = %q", accepted.Body.String())
	}

	visible := api.do(t, http.MethodGet, "/api/workspaces/"+slug, inviteeBearer, nil)
	if visible.Code != http.StatusOK {
		t.Fatalf("workspace visible status = %d body %q", visible.Code, visible.Body.String())
	}
}

func mustWorkspaceID(t *testing.T, api *testAPI, slug string) string {
	t.Helper()

	workspace, err := api.store.GetWorkspaceBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("get workspace by slug: %v", err)
	}
	return workspace.ID
}

func TestTaskLifecycleAndCriticalPath(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	createTask := func(title string, estimate float64, dependsOn []string) string {
		t.Helper()
		recorder := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/tasks", bearer, map[string]any{
			"title":         title,
			"estimate_days": estimate,
			"depends_on":    dependsOn,
		})
		if recorder.Code != http.StatusCreated {
			t.Fatalf("create task %q status = %d body %q", title, recorder.Code, recorder.Body.String())
		}
		id, _ := decodeBody(t, recorder)["id"].(string)
		return id
	}

	design := createTask("Design", 2, nil)
	build := createTask("Build", 5, []string{design})
	createTask("Docs", 1, nil)

	done := api.do(t, http.MethodPatch, fmt.Sprintf("/api/workspaces/%s/tasks/%s", slug, design), bearer, map[string]any{
		"status": "done",
	})
	if done.Code != http.StatusOK {
		t.Fatalf("patch status = %d body %q", done.Code, done.Body.String())
	}
	if decodeBody(t, done)["status"] != "DONE" {
		t.Fatalf("patch body = %q", done.Body.String())
	}

	path := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/analytics/critical-path", bearer, nil)
	if path.Code != http.StatusOK {
		t.Fatalf("critical path status = %d body %q", path.Code, path.Body.String())
	}
	body := decodeBody(t, path)
	ids, _ := body["task_ids"].([]any)
	if len(ids) != 2 || ids[0] != design || ids[1] != build {
		t.Fatalf("critical path task_ids = %v", ids)
	}

	missing := api.do(t, http.MethodPatch, "/api/workspaces/"+slug+"/tasks/task-missing", bearer, map[string]any{
		"status": "done",
	})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing task status = %d, want 404", missing.Code)
	}
}

func TestTaskListPaginatesWithOpaqueCursor(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	for _, title := range []string{"Design", "Build", "Docs"} {
		recorder := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/tasks", bearer, map[string]any{
			"title":         title,
			"estimate_days": 1,
		})
		if recorder.Code != http.StatusCreated {
			t.Fatalf("create task %q status = %d body %q", title, recorder.Code, recorder.Body.String())
		}
	}

	first := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/tasks?page_size=2", bearer, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first page status = %d body %q", first.Code, first.Body.String())
	}
	firstBody := decodeBody(t, first)
	if tasks, _ := firstBody["tasks"].([]any); len(tasks) != 2 {
		t.Fatalf("first page size = %d, want 2", len(tasks))
	}
	pageToken, _ := firstBody["next_page_token"].(string)
	if pageToken == "" {
		t.Fatal("expected a next page token")
	}

	// The token is an opaque cursor, not a raw row ID.
	cursor, err := pagination.Decode(pageToken)
	if err != nil {
		t.Fatalf("page token is not a cursor: %v", err)
	}
	if cursor.AfterID == "" {
		t.Fatal("cursor carries no keyset position")
	}

	second := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/tasks?page_size=2&page_token="+url.QueryEscape(pageToken), bearer, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second page status = %d body %q", second.Code, second.Body.String())
	}
	secondBody := decodeBody(t, second)
	if tasks, _ := secondBody["tasks"].([]any); len(tasks) != 1 {
		t.Fatalf("second page size = %d, want 1", len(tasks))
	}
	if token, _ := secondBody["next_page_token"].(string); token != "" {
		t.Fatalf("second page token = %q, want empty", token)
	}

	// Changing the filter between pages invalidates the token.
	mismatched := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/tasks?status=todo&page_token="+url.QueryEscape(pageToken), bearer, nil)
	if mismatched.Code != http.StatusBadRequest {
		t.Fatalf("filter change status = %d, want 400", mismatched.Code)
	}
	if code := errorCode(t, mismatched); code != "INVALID_ARGUMENT" {
		t.Fatalf("code = %q", code)
	}

	// So does a token that never was a cursor.
	garbage := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/tasks?page_token=not-a-cursor", bearer, nil)
	if garbage.Code != http.StatusBadRequest {
		t.Fatalf("garbage token status = %d, want 400", garbage.Code)
	}
}

func TestTaskListFiltersByStatus(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	created := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/tasks", bearer, map[string]any{
		"title":         "Design",
		"estimate_days": 2,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %q", created.Code, created.Body.String())
	}
	id, _ := decodeBody(t, created)["id"].(string)
	open := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/tasks", bearer, map[string]any{
		"title":         "Build",
		"estimate_days": 5,
	})
	if open.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %q", open.Code, open.Body.String())
	}

	done := api.do(t, http.MethodPatch, fmt.Sprintf("/api/workspaces/%s/tasks/%s", slug, id), bearer, map[string]any{
		"status": "done",
	})
	if done.Code != http.StatusOK {
		t.Fatalf("patch status = %d body %q", done.Code, done.Body.String())
	}

	listed := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/tasks?status=done", bearer, nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("list status = %d body %q", listed.Code, listed.Body.String())
	}
	tasks, _ := decodeBody(t, listed)["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("filtered list size = %d, want 1", len(tasks))
	}
	task, _ := tasks[0].(map[string]any)
	if task["id"] != id || task["status"] != "DONE" {
		t.Fatalf("filtered task = %v", task)
	}

	invalid := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/tasks?status=bogus", bearer, nil)
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("invalid status filter = %d, want 400", invalid.Code)
	}
}

func TestCriticalPathReportsDependencyCycle(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	created := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/tasks", bearer, map[string]any{
		"title":         "Design",
		"estimate_days": 2,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %q", created.Code, created.Body.String())
	}
	id, _ := decodeBody(t, created)["id"].(string)

	// Dependencies are stored as-is; cycles surface at analysis time.
	cyclic := api.do(t, http.MethodPatch, fmt.Sprintf("/api/workspaces/%s/tasks/%s", slug, id), bearer, map[string]any{
		"depends_on": []string{id},
	})
	if cyclic.Code != http.StatusOK {
		t.Fatalf("self-dependency patch status = %d body %q", cyclic.Code, cyclic.Body.String())
	}

	path := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/analytics/critical-path", bearer, nil)
	if path.Code != http.StatusBadRequest {
		t.Fatalf("critical path status = %d body %q", path.Code, path.Body.String())
	}
	if code := errorCode(t, path); code != "SCHEDULE_DEPENDENCY_CYCLE" {
		t.Fatalf("code = %q", code)
	}
}

func TestRiskLifecycle(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	created := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/risks", bearer, map[string]any{
		"title":       "Vendor slips",
		"probability": 4,
		"impact":      5,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %q", created.Code, created.Body.String())
	}
	body := decodeBody(t, created)
	if body["severity"] != float64(20) {
		t.Fatalf("severity = %v, want 20", body["severity"])
	}
	if body["critical"] != true {
		t.Fatalf("critical = %v, want true", body["critical"])
	}
	id, _ := body["id"].(string)

	resolved := api.do(t, http.MethodPatch, fmt.Sprintf("/api/workspaces/%s/risks/%s", slug, id), bearer, map[string]any{
		"status": "resolved",
	})
	if resolved.Code != http.StatusOK {
		t.Fatalf("resolve status = %d body %q", resolved.Code, resolved.Body.String())
	}
	if decodeBody(t, resolved)["status"] != "RESOLVED" {
		t.Fatalf("resolve body = %q", resolved.Body.String())
	}

	invalid := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/risks", bearer, map[string]any{
		"title":       "Out of range",
		"probability": 9,
		"impact":      1,
	})
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("invalid probability status = %d body %q", invalid.Code, invalid.Body.String())
	}
	if code := errorCode(t, invalid); code != "RISK_INVALID_SCORE" {
		t.Fatalf("code = %q", code)
	}
}

func TestViewVisibilityScoping(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	invitee := api.createUser(t, "grace@example.com", "another passphrase")
	ownerBearer := api.bearer(t, owner.ID)
	inviteeBearer := api.bearer(t, invitee.ID)
	slug := api.createWorkspace(t, ownerBearer, "Apollo Program")

	invited := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/invitations", ownerBearer, map[string]any{
		"email": "grace@example.com",
		"role":  "member",
	})
	if invited.Code != http.StatusCreated {
		t.Fatalf("invite status = %d body %q", invited.Code, invited.Body.String())
	}
	invitations, err := api.store.ListInvitations(context.Background(), mustWorkspaceID(t, api, slug), 10, "")
	if err != nil {
		t.Fatalf("list invitations: %v", err)
	}
	accepted := api.do(t, http.MethodPost, "/api/invitations/accept", inviteeBearer, map[string]any{
		"token": invitations.Invitations[0].Token,
	})
	if accepted.Code != http.StatusOK {
		t.Fatalf("accept status = %d body %q", accepted.Code, accepted.Body.String())
	}

	private := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/views", ownerBearer, map[string]any{
		"name":       "My triage",
		"filter":     "status:todo",
		"visibility": "private",
	})
	if private.Code != http.StatusCreated {
		t.Fatalf("create private view status = %d body %q", private.Code, private.Body.String())
	}
	privateID, _ := decodeBody(t, private)["id"].(string)

	shared := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/views", ownerBearer, map[string]any{
		"name":       "Team board",
		"visibility": "shared",
	})
	if shared.Code != http.StatusCreated {
		t.Fatalf("create shared view status = %d body %q", shared.Code, shared.Body.String())
	}

	hidden := api.do(t, http.MethodGet, fmt.Sprintf("/api/workspaces/%s/views/%s", slug, privateID), inviteeBearer, nil)
	if hidden.Code != http.StatusNotFound {
		t.Fatalf("private view status for other member = %d, want 404", hidden.Code)
	}

	listed := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/views", inviteeBearer, nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("list views status = %d body %q", listed.Code, listed.Body.String())
	}
	views, _ := decodeBody(t, listed)["views"].([]any)
	if len(views) != 1 {
		t.Fatalf("expected only the shared view, got %d", len(views))
	}
}

func TestDashboardDefaultsToEmptyLayout(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	empty := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/dashboard", bearer, nil)
	if empty.Code != http.StatusOK {
		t.Fatalf("empty dashboard status = %d body %q", empty.Code, empty.Body.String())
	}
	widgets, ok := decodeBody(t, empty)["widgets"].([]any)
	if !ok || len(widgets) != 0 {
		t.Fatalf("expected empty widgets array, got %q", empty.Body.String())
	}

	put := api.do(t, http.MethodPut, "/api/workspaces/"+slug+"/dashboard", bearer, map[string]any{
		"widgets": []map[string]any{
			{"kind": "task_summary", "x": 0, "y": 0, "w": 6, "h": 4},
			{"kind": "forecast", "x": 6, "y": 0, "w": 6, "h": 4},
		},
	})
	if put.Code != http.StatusOK {
		t.Fatalf("put dashboard status = %d body %q", put.Code, put.Body.String())
	}
	saved, _ := decodeBody(t, put)["widgets"].([]any)
	if len(saved) != 2 {
		t.Fatalf("expected two widgets, got %q", put.Body.String())
	}
}

func TestArticleSearchFallsBackToKeywords(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	publish := func(title, body string) {
		t.Helper()
		recorder := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/kb", bearer, map[string]any{
			"title": title,
			"body":  body,
		})
		if recorder.Code != http.StatusCreated {
			t.Fatalf("publish %q status = %d body %q", title, recorder.Code, recorder.Body.String())
		}
	}
	publish("Release checklist", "Cut a branch, tag the release, deploy to staging first.")
	publish("Onboarding guide", "Accounts, repository access, and the first week plan.")

	recorder := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/kb/search?q=release+deploy", bearer, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("search status = %d body %q", recorder.Code, recorder.Body.String())
	}
	results, _ := decodeBody(t, recorder)["results"].([]any)
	if len(results) == 0 {
		t.Fatalf("expected search results, got %q", recorder.Body.String())
	}
	top, _ := results[0].(map[string]any)
	article, _ := top["article"].(map[string]any)
	if article["title"] != "Release checklist" {
		t.Fatalf("top result = %v", article["title"])
	}

	missingQuery := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/kb/search", bearer, nil)
	if missingQuery.Code != http.StatusBadRequest {
		t.Fatalf("missing query status = %d, want 400", missingQuery.Code)
	}
}

func TestActivityJournalRecordsWrites(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	created := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/tasks", bearer, map[string]any{
		"title":         "Design",
		"estimate_days": 2,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create task status = %d body %q", created.Code, created.Body.String())
	}

	recorder := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/activity", bearer, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("activity status = %d body %q", recorder.Code, recorder.Body.String())
	}
	events, _ := decodeBody(t, recorder)["events"].([]any)
	if len(events) == 0 {
		t.Fatalf("expected events, got %q", recorder.Body.String())
	}
	kinds := make(map[string]bool, len(events))
	for _, raw := range events {
		event, _ := raw.(map[string]any)
		kind, _ := event["kind"].(string)
		kinds[kind] = true
	}
	if !kinds[activity.KindTaskCreated] {
		t.Fatalf("expected a %s event, got kinds %v", activity.KindTaskCreated, kinds)
	}
	if !kinds[activity.KindWorkspaceCreated] {
		t.Fatalf("expected a %s event, got kinds %v", activity.KindWorkspaceCreated, kinds)
	}
}

func TestRateLimitHeadersAndRejection(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)

	handler, err := NewHandler(Config{
		Workspaces: wsservice.NewService(api.store, api.store, nil, nil),
		Users:      api.store,
		Planning:   api.store,
		Articles:   api.store,
		Limiter:    ratelimit.NewLimiter(ratelimit.Limit{PerMinute: 60, Burst: 2}),
		Tokens:     api.tokens,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	limited := &testAPI{routes: handler.Routes(), store: api.store, tokens: api.tokens}

	for i := 0; i < 2; i++ {
		recorder := limited.do(t, http.MethodGet, "/api/workspaces", bearer, nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d status = %d body %q", i, recorder.Code, recorder.Body.String())
		}
		if recorder.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("request %d X-RateLimit-Limit = %q", i, recorder.Header().Get("X-RateLimit-Limit"))
		}
		if recorder.Header().Get("X-RateLimit-Reset") == "" {
			t.Fatalf("request %d missing X-RateLimit-Reset", i)
		}
	}

	rejected := limited.do(t, http.MethodGet, "/api/workspaces", bearer, nil)
	if rejected.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rejected.Code)
	}
	if code := errorCode(t, rejected); code != "RATE_LIMITED" {
		t.Fatalf("code = %q", code)
	}
	if rejected.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
	if rejected.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q", rejected.Header().Get("X-RateLimit-Remaining"))
	}

	// A different principal still has a full bucket.
	other := limited.do(t, http.MethodGet, "/api/workspaces", api.bearer(t, api.createUser(t, "grace@example.com", "another passphrase").ID), nil)
	if other.Code != http.StatusOK {
		t.Fatalf("other principal status = %d body %q", other.Code, other.Body.String())
	}
}

func TestRateLimitBoundsTokenMinting(t *testing.T) {
	api := newTestAPI(t)
	api.createUser(t, "ada@example.com", "correct horse battery")

	handler, err := NewHandler(Config{
		Workspaces: wsservice.NewService(api.store, api.store, nil, nil),
		Users:      api.store,
		Planning:   api.store,
		Articles:   api.store,
		Limiter:    ratelimit.NewLimiter(ratelimit.Limit{PerMinute: 60, Burst: 2}),
		Tokens:     api.tokens,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	limited := &testAPI{routes: handler.Routes(), store: api.store, tokens: api.tokens}

	// Unauthenticated minting attempts bucket by remote address and must
	// carry the rate headers from the first response on.
	mint := map[string]any{"email": "ada@example.com", "password": "wrong password"}
	for i := 0; i < 2; i++ {
		recorder := limited.do(t, http.MethodPost, "/api/auth/token", "", mint)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i, recorder.Code)
		}
		if recorder.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("attempt %d X-RateLimit-Limit = %q", i, recorder.Header().Get("X-RateLimit-Limit"))
		}
	}

	rejected := limited.do(t, http.MethodPost, "/api/auth/token", "", mint)
	if rejected.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rejected.Code)
	}
	if code := errorCode(t, rejected); code != "RATE_LIMITED" {
		t.Fatalf("code = %q", code)
	}
	if rejected.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestDigestRefreshAndFetch(t *testing.T) {
	api := newTestAPI(t)
	owner := api.createUser(t, "ada@example.com", "correct horse battery")
	bearer := api.bearer(t, owner.ID)
	slug := api.createWorkspace(t, bearer, "Apollo Program")

	created := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/tasks", bearer, map[string]any{
		"title":         "Design",
		"estimate_days": 2,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create task status = %d body %q", created.Code, created.Body.String())
	}

	refreshed := api.do(t, http.MethodPost, "/api/workspaces/"+slug+"/analytics/digest/refresh", bearer, nil)
	if refreshed.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body %q", refreshed.Code, refreshed.Body.String())
	}
	body := decodeBody(t, refreshed)
	if body["health"] == "" || body["health"] == nil {
		t.Fatalf("expected digest health, got %q", refreshed.Body.String())
	}

	fetched := api.do(t, http.MethodGet, "/api/workspaces/"+slug+"/analytics/digest", bearer, nil)
	if fetched.Code != http.StatusOK {
		t.Fatalf("fetch status = %d body %q", fetched.Code, fetched.Body.String())
	}
}
