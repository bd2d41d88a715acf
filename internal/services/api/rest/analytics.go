package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/agent/prism"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
	"github.com/hyvve/hyvve/internal/pm/anomaly"
	"github.com/hyvve/hyvve/internal/pm/forecast"
	"github.com/hyvve/hyvve/internal/pm/schedule"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/random"
)

// anomalyWindowWeeks bounds the history scanned for throughput anomalies.
const anomalyWindowWeeks = 26

type forecastResponse struct {
	RemainingTasks int `json:"remaining_tasks"`
	SampleWeeks    int `json:"sample_weeks"`
	Trials         int `json:"trials"`
	P50Weeks       int `json:"p50_weeks"`
	P75Weeks       int `json:"p75_weeks"`
	P90Weeks       int `json:"p90_weeks"`
}

func forecastToResponse(result forecast.Result) forecastResponse {
	return forecastResponse{
		RemainingTasks: result.RemainingTasks,
		SampleWeeks:    result.SampleWeeks,
		Trials:         result.Trials,
		P50Weeks:       result.P50Weeks,
		P75Weeks:       result.P75Weeks,
		P90Weeks:       result.P90Weeks,
	}
}

// remainingTasks counts work not yet done in a workspace.
func (h *Handler) remainingTasks(r *http.Request, workspaceID string) (int, error) {
	counts, err := h.planning.CountTasksByStatus(r.Context(), workspaceID)
	if err != nil {
		return 0, err
	}
	remaining := 0
	for status, count := range counts {
		if status != schedule.TaskStatusDone {
			remaining += count
		}
	}
	return remaining, nil
}

func (h *Handler) throughputCounts(r *http.Request, workspaceID string, limit int) ([]int, error) {
	samples, err := h.planning.ListThroughputSamples(r.Context(), workspaceID, limit)
	if err != nil {
		return nil, err
	}
	counts := make([]int, 0, len(samples))
	for _, sample := range samples {
		counts = append(counts, sample.Completed)
	}
	return counts, nil
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	counts, err := h.throughputCounts(r, scope.ID, forecast.WindowWeeks)
	if err != nil {
		writeError(w, err)
		return
	}
	remaining, err := h.remainingTasks(r, scope.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	seed, err := random.NewSeed()
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := forecast.Run(counts, remaining, seed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forecastToResponse(result))
}

type criticalPathResponse struct {
	TaskIDs   []string `json:"task_ids"`
	TotalDays float64  `json:"total_days"`
}

func (h *Handler) handleCriticalPath(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	tasks, err := h.planning.ListAllTasks(r.Context(), scope.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	path, err := schedule.ComputeCriticalPath(tasks)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, criticalPathResponse{
		TaskIDs:   path.TaskIDs,
		TotalDays: path.TotalDays,
	})
}

type anomalyPointResponse struct {
	Index     int     `json:"index"`
	Value     int     `json:"value"`
	ZScore    float64 `json:"z_score"`
	Anomalous bool    `json:"anomalous"`
}

type anomaliesResponse struct {
	SampleWeeks int                    `json:"sample_weeks"`
	Points      []anomalyPointResponse `json:"points"`
}

func (h *Handler) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	counts, err := h.throughputCounts(r, scope.ID, anomalyWindowWeeks)
	if err != nil {
		writeError(w, err)
		return
	}

	points := anomaly.Detect(counts)
	response := anomaliesResponse{
		SampleWeeks: len(counts),
		Points:      make([]anomalyPointResponse, 0, len(points)),
	}
	for _, point := range points {
		response.Points = append(response.Points, anomalyPointResponse(point))
	}
	writeJSON(w, http.StatusOK, response)
}

type putThroughputRequest struct {
	WeekStart string `json:"week_start"`
	Completed int    `json:"completed"`
}

func (h *Handler) handlePutThroughput(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	var req putThroughputRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	weekStart, err := time.Parse(time.RFC3339, req.WeekStart)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "week_start must be RFC 3339", err))
		return
	}
	if req.Completed < 0 {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "completed cannot be negative"))
		return
	}

	sample := pmstorage.ThroughputSample{
		WorkspaceID: scope.ID,
		WeekStart:   weekStart.UTC().Truncate(24 * time.Hour),
		Completed:   req.Completed,
	}
	if err := h.planning.PutThroughputSample(r.Context(), sample); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type digestResponse struct {
	WorkspaceID         string                 `json:"workspace_id"`
	GeneratedAt         string                 `json:"generated_at"`
	Health              string                 `json:"health"`
	Forecast            *forecastResponse      `json:"forecast,omitempty"`
	CriticalPath        *criticalPathResponse  `json:"critical_path,omitempty"`
	DependencyCycle     bool                   `json:"dependency_cycle"`
	ThroughputAnomalies []anomalyPointResponse `json:"throughput_anomalies,omitempty"`
	OpenCriticalRisks   int                    `json:"open_critical_risks"`
	Notes               []string               `json:"notes,omitempty"`
}

func digestToResponse(digest prism.Digest) digestResponse {
	response := digestResponse{
		WorkspaceID:       digest.WorkspaceID,
		GeneratedAt:       digest.GeneratedAt.UTC().Format(time.RFC3339),
		Health:            string(digest.Health),
		DependencyCycle:   digest.DependencyCycle,
		OpenCriticalRisks: digest.OpenCriticalRisks,
		Notes:             digest.Notes,
	}
	if digest.HasForecast {
		forecastBody := forecastToResponse(digest.Forecast)
		response.Forecast = &forecastBody
	}
	if !digest.DependencyCycle {
		response.CriticalPath = &criticalPathResponse{
			TaskIDs:   digest.CriticalPath.TaskIDs,
			TotalDays: digest.CriticalPath.TotalDays,
		}
	}
	for _, point := range digest.ThroughputAnomalies {
		response.ThroughputAnomalies = append(response.ThroughputAnomalies, anomalyPointResponse(point))
	}
	return response
}

func (h *Handler) handleGetDigest(w http.ResponseWriter, r *http.Request) {
	if h.agent == nil {
		writeError(w, apperrors.New(apperrors.CodeUnknown, "digest agent is not configured"))
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	digest, err := h.agent.Latest(r.Context(), scope.ID)
	if errors.Is(err, prism.ErrNotFound) {
		digest, err = h.agent.Refresh(r.Context(), scope.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, digestToResponse(digest))
}

func (h *Handler) handleRefreshDigest(w http.ResponseWriter, r *http.Request) {
	if h.agent == nil {
		writeError(w, apperrors.New(apperrors.CodeUnknown, "digest agent is not configured"))
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	digest, err := h.agent.Refresh(r.Context(), scope.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.record(r, activity.KindDigestRefreshed, scope.ID, "refreshed the delivery digest")
	writeJSON(w, http.StatusOK, digestToResponse(digest))
}
