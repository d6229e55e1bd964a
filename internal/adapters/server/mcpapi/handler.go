// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/taskdeck/internal/adapters/server/common"
	"github.com/evanschultz/taskdeck/internal/backend"
	"github.com/evanschultz/taskdeck/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with task tools and, when
// commands is non-nil, the assistant command tool.
func NewHandler(cfg Config, tasks common.TaskService, commands common.CommandRunner) (*Handler, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerTaskTools(mcpSrv, tasks)
	if commands != nil {
		registerCommandTool(mcpSrv, commands)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "taskdeck"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// statusEnum lists the accepted status argument values.
func statusEnum() []string {
	out := make([]string, 0, 3)
	for _, status := range domain.Statuses() {
		out = append(out, string(status))
	}
	return out
}

// registerTaskTools registers the task CRUD tools.
func registerTaskTools(srv *mcpserver.MCPServer, tasks common.TaskService) {
	srv.AddTool(
		mcp.NewTool(
			"taskdeck.list_tasks",
			mcp.WithDescription("List tasks newest first, optionally filtered by status."),
			mcp.WithString("status", mcp.Description("Only return tasks in this status"), mcp.Enum(statusEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := tasks.ListTasks(ctx, domain.Status(req.GetString("status", "")))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_tasks", map[string]any{"tasks": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskdeck.get_task",
			mcp.WithDescription("Return one task by id."),
			mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireInt("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := tasks.GetTask(ctx, int64(taskID))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskdeck.create_task",
			mcp.WithDescription("Create a task. New tasks start as NOT_STARTED."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Optional description")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := tasks.CreateTask(ctx, domain.TaskInput{
				Title:       title,
				Description: req.GetString("description", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskdeck.update_task",
			mcp.WithDescription("Update a task's title, description, or status. Status moves forward only: NOT_STARTED to IN_PROGRESS to COMPLETED."),
			mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("description", mcp.Description("New description")),
			mcp.WithString("status", mcp.Description("New status"), mcp.Enum(statusEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireInt("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			args := req.GetArguments()
			patch := backend.TaskPatch{
				Title:       optionalString(args, "title"),
				Description: optionalString(args, "description"),
				Status:      optionalString(args, "status"),
			}
			task, err := tasks.UpdateTask(ctx, int64(taskID), patch)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskdeck.delete_task",
			mcp.WithDescription("Delete one task by id."),
			mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireInt("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := tasks.DeleteTask(ctx, int64(taskID)); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_task", map[string]any{"deleted": taskID})
		},
	)
}

// registerCommandTool registers `taskdeck.run_command`.
func registerCommandTool(srv *mcpserver.MCPServer, commands common.CommandRunner) {
	srv.AddTool(
		mcp.NewTool(
			"taskdeck.run_command",
			mcp.WithDescription("Interpret a natural-language task command and apply it."),
			mcp.WithString("command", mcp.Required(), mcp.Description("Free-text command, e.g. 'Add a task to buy milk'")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			command, err := req.RequireString("command")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resp, err := commands.RunCommand(ctx, command)
			if errors.Is(err, backend.ErrAssistantUnavailable) {
				return mcp.NewToolResultError("assistant_unavailable: " + resp.Error), nil
			}
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("run_command", resp)
		},
	)
}

func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// optionalString returns a pointer to a string argument when it was supplied.
func optionalString(args map[string]any, key string) *string {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil
	}
	return &value
}

// toolResultFromError maps service errors into MCP tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	class := common.Classify(err)
	return mcp.NewToolResultError(class.Code + ": " + common.PublicMessage(err))
}
