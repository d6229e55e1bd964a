package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Assistant action names understood by the command dispatcher.
const (
	ActionCreateTask       = "create_task"
	ActionUpdateTaskStatus = "update_task_status"
	ActionListTasks        = "list_tasks"
	ActionDeleteTask       = "delete_task"
	ActionUnknown          = "unknown"
	ActionError            = "error"
)

// AIIntent is the structured action an interpreter produced for a command.
type AIIntent struct {
	Action  string         `json:"action"`
	Params  map[string]any `json:"params,omitempty"`
	Message string         `json:"message,omitempty"`
}

// AITaskRef is the compact task summary embedded in assistant results.
type AITaskRef struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status,omitempty"`
}

// AIResult is the outcome of dispatching an intent.
type AIResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Task    *AITaskRef  `json:"task,omitempty"`
	Tasks   []AITaskRef `json:"tasks,omitempty"`
}

// AIResponse is the payload of the assistant command endpoint.
// Exactly one of Result, Error, or Message is normally set.
type AIResponse struct {
	OriginalCommand string    `json:"original_command,omitempty"`
	Intent          *AIIntent `json:"interpreted_intent,omitempty"`
	Result          *AIResult `json:"result,omitempty"`
	Error           string    `json:"error,omitempty"`
	Message         string    `json:"message,omitempty"`
	// UnmatchedIntent echoes the intent when the action was not understood.
	UnmatchedIntent *AIIntent `json:"intent,omitempty"`
}

// HasPayload reports whether any assistant field was decoded.
func (r AIResponse) HasPayload() bool {
	return r.Result != nil || strings.TrimSpace(r.Error) != "" || strings.TrimSpace(r.Message) != ""
}

// Succeeded reports whether the command was understood and applied.
func (r AIResponse) Succeeded() bool {
	return r.Error == "" && r.Result != nil && r.Result.Success
}

// Feedback returns the text to show the user for this response.
func (r AIResponse) Feedback() string {
	switch {
	case strings.TrimSpace(r.Error) != "":
		return r.Error
	case r.Result != nil:
		return r.Result.Message
	default:
		return r.Message
	}
}

// StringParam returns a trimmed string parameter.
func (i AIIntent) StringParam(key string) string {
	raw, ok := i.Params[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// IDParam returns a positive integer id parameter. Numeric strings are accepted.
func (i AIIntent) IDParam(key string) (int64, bool) {
	raw, ok := i.Params[key]
	if !ok || raw == nil {
		return 0, false
	}
	var id int64
	switch v := raw.(type) {
	case float64:
		id = int64(v)
	case int:
		id = int64(v)
	case int64:
		id = v
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		id = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	default:
		return 0, false
	}
	return id, id > 0
}
