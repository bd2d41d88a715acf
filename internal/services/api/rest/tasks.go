package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
	"github.com/hyvve/hyvve/internal/pm/schedule"
)

type taskResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	EstimateDays float64  `json:"estimate_days"`
	Assignee     string   `json:"assignee,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	DependsOn    []string `json:"depends_on,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func taskToResponse(task schedule.Task) taskResponse {
	response := taskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Status:       schedule.TaskStatusLabel(task.Status),
		EstimateDays: task.EstimateDays,
		Assignee:     task.Assignee,
		DependsOn:    task.DependsOn,
		CreatedAt:    task.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    task.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !task.DueDate.IsZero() {
		response.DueDate = task.DueDate.UTC().Format(time.RFC3339)
	}
	return response
}

type taskPageResponse struct {
	Tasks         []taskResponse `json:"tasks"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	status := schedule.TaskStatusUnspecified
	filter := ""
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = schedule.TaskStatusFromLabel(raw)
		if status == schedule.TaskStatusUnspecified {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "task status is invalid"))
			return
		}
		filter = "status=" + schedule.TaskStatusLabel(status)
	}

	pageSize, afterID, err := pageParams(r, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.planning.ListTasks(r.Context(), scope.ID, status, pageSize, afterID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := taskPageResponse{
		Tasks:         make([]taskResponse, 0, len(page.Tasks)),
		NextPageToken: nextPageToken(page.NextPageToken, filter),
	}
	for _, task := range page.Tasks {
		response.Tasks = append(response.Tasks, taskToResponse(task))
	}
	writeJSON(w, http.StatusOK, response)
}

type createTaskRequest struct {
	Title        string   `json:"title"`
	EstimateDays float64  `json:"estimate_days"`
	Assignee     string   `json:"assignee"`
	DueDate      string   `json:"due_date"`
	DependsOn    []string `json:"depends_on"`
}

func parseDueDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "due_date must be RFC 3339", err)
	}
	return parsed.UTC(), nil
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := schedule.CreateTask(schedule.CreateTaskInput{
		WorkspaceID:  scope.ID,
		Title:        req.Title,
		EstimateDays: req.EstimateDays,
		Assignee:     req.Assignee,
		DueDate:      dueDate,
		DependsOn:    req.DependsOn,
	}, h.now, h.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.planning.PutTask(r.Context(), task); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, activity.KindTaskCreated, task.ID, fmt.Sprintf("created task %q", task.Title))
	writeJSON(w, http.StatusCreated, taskToResponse(task))
}

type updateTaskRequest struct {
	Title        *string   `json:"title"`
	Status       *string   `json:"status"`
	EstimateDays *float64  `json:"estimate_days"`
	Assignee     *string   `json:"assignee"`
	DueDate      *string   `json:"due_date"`
	DependsOn    *[]string `json:"depends_on"`
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	task, err := h.planning.GetTask(r.Context(), scope.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeTaskNotFound, "task not found"))
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := schedule.CreateTaskInput{
		WorkspaceID:  task.WorkspaceID,
		Title:        task.Title,
		EstimateDays: task.EstimateDays,
		Assignee:     task.Assignee,
		DueDate:      task.DueDate,
		DependsOn:    task.DependsOn,
	}
	if req.Title != nil {
		input.Title = *req.Title
	}
	if req.EstimateDays != nil {
		input.EstimateDays = *req.EstimateDays
	}
	if req.Assignee != nil {
		input.Assignee = *req.Assignee
	}
	if req.DueDate != nil {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(w, err)
			return
		}
		input.DueDate = dueDate
	}
	if req.DependsOn != nil {
		input.DependsOn = *req.DependsOn
	}

	normalized, err := schedule.NormalizeCreateTaskInput(input)
	if err != nil {
		writeError(w, err)
		return
	}

	wasDone := task.Status == schedule.TaskStatusDone
	if req.Status != nil {
		status := schedule.TaskStatusFromLabel(*req.Status)
		if status == schedule.TaskStatusUnspecified {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "task status is invalid"))
			return
		}
		task.Status = status
	}

	task.Title = normalized.Title
	task.EstimateDays = normalized.EstimateDays
	task.Assignee = normalized.Assignee
	task.DueDate = normalized.DueDate
	task.DependsOn = normalized.DependsOn
	task.UpdatedAt = h.now().UTC()

	if err := h.planning.PutTask(r.Context(), task); err != nil {
		writeError(w, err)
		return
	}

	if !wasDone && task.Status == schedule.TaskStatusDone {
		h.record(r, activity.KindTaskCompleted, task.ID, fmt.Sprintf("completed task %q", task.Title))
	}
	writeJSON(w, http.StatusOK, taskToResponse(task))
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	if err := h.planning.DeleteTask(r.Context(), scope.ID, r.PathValue("id")); err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeTaskNotFound, "task not found"))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
