package mcpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/evanschultz/taskdeck/internal/adapters/storage/sqlite"
	"github.com/evanschultz/taskdeck/internal/assistant"
	"github.com/evanschultz/taskdeck/internal/backend"
	"github.com/evanschultz/taskdeck/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()
	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "taskdeck-test",
				"version": "1.0.0",
			},
		},
	}
}

// newTestServer starts an MCP server over an in-memory store.
func newTestServer(t *testing.T, withCommands bool) *httptest.Server {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	tasks, err := backend.NewTaskService(repo)
	if err != nil {
		t.Fatalf("NewTaskService() error = %v", err)
	}
	var handler *Handler
	if withCommands {
		handler, err = NewHandler(Config{}, tasks, backend.NewCommandService(assistant.NewRuleInterpreter(), backend.NewDispatcher(tasks)))
	} else {
		handler, err = NewHandler(Config{}, tasks, nil)
	}
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

func listToolNames(t *testing.T, server *httptest.Server) []string {
	t.Helper()
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	names := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		names = append(names, name)
	}
	return names
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	server := newTestServer(t, false)
	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

func TestHandlerRegistersTools(t *testing.T) {
	names := listToolNames(t, newTestServer(t, false))
	for _, required := range []string{
		"taskdeck.list_tasks",
		"taskdeck.get_task",
		"taskdeck.create_task",
		"taskdeck.update_task",
		"taskdeck.delete_task",
	} {
		if !slices.Contains(names, required) {
			t.Fatalf("tool list missing %q: %#v", required, names)
		}
	}
	if slices.Contains(names, "taskdeck.run_command") {
		t.Fatalf("unexpected command tool without a command runner: %#v", names)
	}
	if names := listToolNames(t, newTestServer(t, true)); !slices.Contains(names, "taskdeck.run_command") {
		t.Fatalf("tool list missing taskdeck.run_command: %#v", names)
	}
}

func TestHandlerTaskToolsRoundTrip(t *testing.T) {
	server := newTestServer(t, false)

	_, createResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "taskdeck.create_task", map[string]any{
		"title":       "Plan sprint",
		"description": "before monday",
	}))
	var created domain.Task
	if err := json.Unmarshal([]byte(toolResultText(t, createResp.Result)), &created); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if created.ID <= 0 || created.Status != domain.StatusNotStarted {
		t.Fatalf("unexpected created task %#v", created)
	}

	_, updateResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "taskdeck.update_task", map[string]any{
		"task_id": created.ID,
		"status":  "IN_PROGRESS",
	}))
	var updated domain.Task
	if err := json.Unmarshal([]byte(toolResultText(t, updateResp.Result)), &updated); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if updated.Status != domain.StatusInProgress || updated.Description != "before monday" {
		t.Fatalf("unexpected updated task %#v", updated)
	}

	_, rejectResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "taskdeck.update_task", map[string]any{
		"task_id": created.ID,
		"status":  "NOT_STARTED",
	}))
	if isError, _ := rejectResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", rejectResp.Result["isError"])
	}
	if text := toolResultText(t, rejectResp.Result); !strings.HasPrefix(text, "invalid_transition: ") {
		t.Fatalf("unexpected error text %q", text)
	}

	_, listResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(6, "taskdeck.list_tasks", map[string]any{"status": "IN_PROGRESS"}))
	var listed struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(toolResultText(t, listResp.Result)), &listed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(listed.Tasks) != 1 || listed.Tasks[0].ID != created.ID {
		t.Fatalf("unexpected listed tasks %#v", listed.Tasks)
	}

	_, _ = postJSONRPC(t, server.Client(), server.URL, callToolRequest(7, "taskdeck.delete_task", map[string]any{"task_id": created.ID}))
	_, getResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(8, "taskdeck.get_task", map[string]any{"task_id": created.ID}))
	if text := toolResultText(t, getResp.Result); !strings.HasPrefix(text, "not_found: ") {
		t.Fatalf("unexpected get-after-delete text %q", text)
	}
}

func TestHandlerToolArgumentErrors(t *testing.T) {
	server := newTestServer(t, true)

	_, missingArgResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "taskdeck.create_task", map[string]any{}))
	if isError, _ := missingArgResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missingArgResp.Result["isError"])
	}

	_, blankResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "taskdeck.create_task", map[string]any{"title": "  "}))
	if text := toolResultText(t, blankResp.Result); !strings.HasPrefix(text, "invalid_request: ") {
		t.Fatalf("unexpected blank-title text %q", text)
	}

	_, commandResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "taskdeck.run_command", map[string]any{"command": "Add a task to buy milk"}))
	var resp domain.AIResponse
	if err := json.Unmarshal([]byte(toolResultText(t, commandResp.Result)), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !resp.Succeeded() {
		t.Fatalf("unexpected command response %#v", resp)
	}
}
