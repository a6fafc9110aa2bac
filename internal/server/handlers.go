package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/autoshorts/internal/pipeline"
	"github.com/maauso/autoshorts/internal/run"
)

// maxBodyBytes caps the trigger request body.
const maxBodyBytes = 1 << 16

// RunService is what the handlers need from the pipeline.
// *pipeline.Service satisfies it.
type RunService interface {
	Trigger(ctx context.Context, in pipeline.Input) (*run.Run, error)
	GetRun(ctx context.Context, id string) (*run.Run, error)
	ListRuns(ctx context.Context) ([]*run.Run, error)
	Busy() bool
}

// Compile-time check that pipeline.Service implements RunService.
var _ RunService = (*pipeline.Service)(nil)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   RunService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service RunService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Busy: h.service.Busy()})
}

// CreateRun handles POST /runs requests. The body is optional.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	created, err := h.service.Trigger(r.Context(), pipeline.Input{Genre: req.Genre, Privacy: req.Privacy})
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "a run is already in progress", "RUN_IN_PROGRESS")
			return
		}
		h.logger.Error("failed to start run",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to start run", "RUN_START_FAILED")
		return
	}

	w.Header().Set("Location", "/runs/"+created.ID)
	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		ID:    created.ID,
		Stage: string(created.Stage),
	})
}

// GetRun handles GET /runs/{id} requests.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run ID is required", "MISSING_RUN_ID")
		return
	}

	found, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, run.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get run",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run", "RUN_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(found))
}

// ListRuns handles GET /runs requests.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns(r.Context())
	if err != nil {
		h.logger.Error("failed to list runs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list runs", "RUN_LIST_FAILED")
		return
	}

	resp := ListRunsResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, rr := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(rr))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toRunResponse(r *run.Run) RunResponse {
	resp := RunResponse{
		ID:          r.ID,
		Stage:       string(r.Stage),
		FailedStage: string(r.FailedStage),
		Error:       r.Error,
		Genre:       r.Genre,
		Title:       r.Title,
		Clips:       r.Clips,
		SpeedFactor: r.SpeedFactor,
		VideoID:     r.VideoID,
		VideoURL:    r.VideoURL,
		ArchiveURL:  r.ArchiveURL,
		CreatedAt:   r.CreatedAt,
	}
	if !r.CompletedAt.IsZero() {
		t := r.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
