package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/models"
	"github.com/ternarybob/sellersync/internal/services/runs"
)

type RunsHandler struct {
	runs   RunManager
	logger arbor.ILogger
}

func NewRunsHandler(runManager RunManager, logger arbor.ILogger) *RunsHandler {
	return &RunsHandler{
		runs:   runManager,
		logger: logger,
	}
}

type batchRequest struct {
	ProfileIDs []string `json:"profile_ids"` // empty runs every profile
	Wait       bool     `json:"wait"`
}

// BatchHandler starts a batch: POST /api/batch.
// By default the run continues in the background and progress arrives over /ws.
func (h *RunsHandler) BatchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Wait {
		report, err := h.runs.RunSync(r.Context(), runs.TriggerAPI, req.ProfileIDs)
		if err != nil {
			WriteError(w, runErrorStatus(err), err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, report)
		return
	}

	runID, err := h.runs.Start(r.Context(), runs.TriggerAPI, req.ProfileIDs)
	if err != nil {
		WriteError(w, runErrorStatus(err), err.Error())
		return
	}
	h.logger.Info().Str("run_id", runID).Int("profiles", len(req.ProfileIDs)).Msg("Batch started from API")
	WriteStarted(w, runID)
}

func runErrorStatus(err error) int {
	if errors.Is(err, models.ErrRunActive) {
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

// ListHandler returns recent run reports: GET /api/runs?limit=N
func (h *RunsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	reports, err := h.runs.List(r.Context(), GetLimitParam(r, 20, 100))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reports == nil {
		reports = []*models.BatchReport{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":   reports,
		"active": h.runs.Active(),
	})
}

// GetHandler returns one run report: GET /api/runs/{id}
func (h *RunsHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	runID := PathParam(r, "/api/runs/")
	if runID == "" {
		WriteError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	report, err := h.runs.Get(r.Context(), runID)
	if errors.Is(err, models.ErrReportNotFound) {
		WriteError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, report)
}
