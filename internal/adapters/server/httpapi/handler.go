// Package httpapi provides the REST HTTP adapter for the task API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/evanschultz/taskdeck/internal/adapters/server/common"
	"github.com/evanschultz/taskdeck/internal/backend"
	"github.com/evanschultz/taskdeck/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the task API subrouter mounted under `/api`.
type Handler struct {
	tasks    common.TaskService
	commands common.CommandRunner
}

// ErrorEnvelope is the JSON body of every failed request.
type ErrorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// createTaskRequest is the POST /tasks/ body.
type createTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// updateTaskRequest is the PUT and PATCH /tasks/{id}/ body. Read-only task
// fields are accepted so clients may send back a whole task.
type updateTaskRequest struct {
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	Status        *string         `json:"status"`
	ID            json.RawMessage `json:"id"`
	StatusDisplay json.RawMessage `json:"status_display"`
	CreatedAt     json.RawMessage `json:"created_at"`
	UpdatedAt     json.RawMessage `json:"updated_at"`
}

// commandRequest is the POST /ai/command/ body.
type commandRequest struct {
	Command string `json:"command"`
}

// NewHandler constructs the task API adapter. commands may be nil.
func NewHandler(tasks common.TaskService, commands common.CommandRunner) *Handler {
	return &Handler{tasks: tasks, commands: commands}
}

// ServeHTTP routes one API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch {
	case path == "tasks":
		switch r.Method {
		case http.MethodGet:
			h.handleListTasks(w, r)
		case http.MethodPost:
			h.handleCreateTask(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
		return
	case path == "tasks/filter_by_status":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleFilterByStatus(w, r)
		return
	case path == "ai/command":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleCommand(w, r)
		return
	default:
		taskID, ok := resolveTaskID(path)
		if !ok {
			writeJSONError(w, http.StatusNotFound, ErrorEnvelope{Error: "endpoint not found", Code: "not_found"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGetTask(w, r, taskID)
		case http.MethodPut, http.MethodPatch:
			h.handleUpdateTask(w, r, taskID)
		case http.MethodDelete:
			h.handleDeleteTask(w, r, taskID)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
		}
	}
}

// handleListTasks serves GET `/tasks/`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	h.writeTaskList(w, r, domain.Status(strings.TrimSpace(r.URL.Query().Get("status"))))
}

// handleFilterByStatus serves GET `/tasks/filter_by_status/`.
func (h *Handler) handleFilterByStatus(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		writeJSONError(w, http.StatusBadRequest, ErrorEnvelope{Error: "Status parameter is required", Code: "invalid_request"})
		return
	}
	h.writeTaskList(w, r, domain.Status(status))
}

func (h *Handler) writeTaskList(w http.ResponseWriter, r *http.Request, status domain.Status) {
	tasks, err := h.tasks.ListTasks(r.Context(), status)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// handleCreateTask serves POST `/tasks/`.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if req.Title == nil {
		writeJSONError(w, http.StatusBadRequest, ErrorEnvelope{Error: "title is required", Code: "invalid_request"})
		return
	}
	if req.Status != nil && *req.Status != string(domain.StatusNotStarted) {
		writeJSONError(w, http.StatusBadRequest, ErrorEnvelope{Error: "new tasks always start as NOT_STARTED", Code: "invalid_request"})
		return
	}
	task, err := h.tasks.CreateTask(r.Context(), domain.TaskInput{
		Title:       *req.Title,
		Description: deref(req.Description),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// handleGetTask serves GET `/tasks/{id}/`.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request, id int64) {
	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleUpdateTask serves PUT and PATCH `/tasks/{id}/`.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if r.Method == http.MethodPut && req.Title == nil {
		writeJSONError(w, http.StatusBadRequest, ErrorEnvelope{Error: "title is required", Code: "invalid_request"})
		return
	}
	patch := backend.TaskPatch{Title: req.Title, Description: req.Description, Status: req.Status}
	if r.Method == http.MethodPut && patch.Description == nil {
		empty := ""
		patch.Description = &empty
	}
	task, err := h.tasks.UpdateTask(r.Context(), id, patch)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleDeleteTask serves DELETE `/tasks/{id}/`.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.tasks.DeleteTask(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommand serves POST `/ai/command/`.
func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	if h.commands == nil {
		writeJSONError(w, http.StatusNotImplemented, ErrorEnvelope{Error: "assistant is not configured", Code: "not_implemented"})
		return
	}
	var req commandRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	resp, err := h.commands.RunCommand(r.Context(), req.Command)
	if errors.Is(err, backend.ErrAssistantUnavailable) {
		writeJSONError(w, http.StatusServiceUnavailable, ErrorEnvelope{Error: resp.Error, Code: "assistant_unavailable"})
		return
	}
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveTaskID parses `tasks/{id}` paths.
func resolveTaskID(path string) (int64, bool) {
	const prefix = "tasks/"
	if !strings.HasPrefix(path, prefix) {
		return 0, false
	}
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// writeErrorFrom maps service errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	class := common.Classify(err)
	writeJSONError(w, class.Status, ErrorEnvelope{Error: common.PublicMessage(err), Code: class.Code})
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, ErrorEnvelope{Error: "method not allowed", Code: "method_not_allowed"})
}

// writeJSONError writes one error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, envelope ErrorEnvelope) {
	writeJSON(w, statusCode, envelope)
}

// writeJSON writes one JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q,"code":"encode_error"}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
