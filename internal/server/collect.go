package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
	"github.com/textaudit/collector/internal/tasks"
)

// CollectRequest is the body of POST /api/v1/collect.
type CollectRequest struct {
	Source models.Source           `json:"source"`
	Config models.CollectionConfig `json:"config"`
}

// CollectResponse acknowledges an accepted submission.
type CollectResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON error envelope for the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CollectHandler serves the task API over the orchestrator.
type CollectHandler struct {
	orchestrator *tasks.Orchestrator
	logger       *log.Logger
}

// NewCollectHandler creates a CollectHandler.
func NewCollectHandler(orchestrator *tasks.Orchestrator, logger *log.Logger) *CollectHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CollectHandler{orchestrator: orchestrator, logger: logger}
}

// Routes returns the path patterns this handler serves.
func (h *CollectHandler) Routes() []string {
	return []string{"/api/v1/collect", "/api/v1/status/", "/api/v1/tasks"}
}

// ServeHTTP dispatches by method and path.
func (h *CollectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/collect" && r.Method == http.MethodPost:
		h.handleSubmit(w, r)
	case strings.HasPrefix(path, "/api/v1/status/") && r.Method == http.MethodGet:
		h.handleStatus(w, r)
	case path == "/api/v1/tasks" && r.Method == http.MethodGet:
		h.handleList(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed for this path")
	}
}

// handleSubmit validates a submission and returns the new task id.
func (h *CollectHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	taskID, err := h.orchestrator.Submit(r.Context(), req.Source, req.Config)
	if err != nil {
		h.writeOrchestratorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CollectResponse{
		TaskID:  taskID,
		Message: "collection task accepted",
	})
}

// handleStatus returns the snapshot for one task.
func (h *CollectHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimPrefix(r.URL.Path, "/api/v1/status/")
	if taskID == "" || strings.Contains(taskID, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "task id is required")
		return
	}

	snapshot, err := h.orchestrator.Status(r.Context(), taskID)
	if err != nil {
		h.writeOrchestratorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// handleList returns a page of task snapshots.
func (h *CollectHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.orchestrator.List(r.Context(), q.Get("status"), page, pageSize)
	if err != nil {
		h.writeOrchestratorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeOrchestratorError maps domain errors to HTTP responses.
func (h *CollectHandler) writeOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidSource):
		writeError(w, http.StatusBadRequest, "invalid_source", err.Error())
	case errors.Is(err, shared.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, "invalid_config", err.Error())
	case errors.Is(err, shared.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task_not_found", err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	})
}
