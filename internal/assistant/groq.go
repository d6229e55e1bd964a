package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/taskdeck/internal/domain"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqModel        = "llama-3.3-70b-versatile"
	groqTemperature  = 0.1
	groqMaxTokens    = 500
	groqMaxRetries   = 3
	groqInitialDelay = 1 * time.Second
	groqTimeout      = 30 * time.Second
)

// systemInstruction tells the model which actions and statuses exist and
// pins the output to JSON.
const systemInstruction = `You are an AI assistant for a Task Management System.
Your job is to interpret user natural language commands and convert them into a structured JSON action.

The system supports the following actions:
1. 'create_task': Create a new task.
2. 'update_task_status': Change the status of a task.
3. 'delete_task': Delete a task.
4. 'list_tasks': Show tasks, optionally filtered by status.

Task Statuses: 'NOT_STARTED', 'IN_PROGRESS', 'COMPLETED'.

CRITICAL: You must respond with ONLY valid JSON.
If the user requests multiple actions (e.g., "Add task 1 and task 2"), return a LIST of JSON objects.
If it is a single action, return a single JSON object or a list with one object.

Output Format Examples:
- User: "Add a task to buy milk"
  Output: [{"action": "create_task", "params": {"title": "Buy milk"}}]

- User: "Add task A and task B"
  Output: [
      {"action": "create_task", "params": {"title": "Task A"}},
      {"action": "create_task", "params": {"title": "Task B"}}
  ]

- User: "Mark task 5 as completed"
  Output: [{"action": "update_task_status", "params": {"task_id": 5, "status": "COMPLETED"}}]

- User: "Start working on the presentation"
  Output: [{"action": "update_task_status", "params": {"title": "presentation", "status": "IN_PROGRESS"}}]

- User: "Show me all completed tasks"
  Output: [{"action": "list_tasks", "params": {"status": "COMPLETED"}}]

- User: "Delete the task about meeting"
  Output: [{"action": "delete_task", "params": {"title": "meeting"}}]

If the intent is unclear, return [{"action": "unknown", "message": "Could not understand command"}]

Remember: ONLY output valid JSON, nothing else.`

// GroqConfig configures the Groq chat-completions interpreter.
type GroqConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
	Logger     *log.Logger
}

// GroqInterpreter interprets commands with an OpenAI-compatible chat API.
type GroqInterpreter struct {
	apiKey       string
	endpoint     string
	model        string
	maxRetries   int
	initialDelay time.Duration
	client       *http.Client
	logger       *log.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// errMissingAPIKey is reported when no key was configured.
var errMissingAPIKey = errors.New("GROQ_API_KEY not set")

// NewGroqInterpreter constructs a new value for this package.
func NewGroqInterpreter(cfg GroqConfig) *GroqInterpreter {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = groqModel
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = groqMaxRetries
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: groqTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &GroqInterpreter{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		endpoint:     baseURL + "/chat/completions",
		model:        model,
		maxRetries:   retries,
		initialDelay: groqInitialDelay,
		client:       client,
		logger:       logger,
	}
}

// Interpret implements Interpreter.
func (g *GroqInterpreter) Interpret(ctx context.Context, command string) domain.AIIntent {
	content, err := g.complete(ctx, command)
	if err != nil {
		g.logger.Warn("assistant interpretation failed", "model", g.model, "err", err)
		return errorIntent(err.Error())
	}
	intent := ParseIntent(content)
	if intent.Action == domain.ActionError {
		g.logger.Warn("assistant returned unusable output", "model", g.model, "message", intent.Message)
	}
	return intent
}

// complete runs one chat completion and returns the message content.
func (g *GroqInterpreter) complete(ctx context.Context, command string) (string, error) {
	if g.apiKey == "" {
		return "", errMissingAPIKey
	}
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: command},
		},
		Temperature:    groqTemperature,
		MaxTokens:      groqMaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * g.initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if ctx.Err() != nil {
				return "", lastErr
			}
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr apiError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				lastErr = fmt.Errorf("Groq API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("Groq API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				g.logger.Debug("assistant request retrying", "attempt", attempt+1, "status", resp.StatusCode)
				continue
			}
			return "", lastErr
		}

		var decoded chatResponse
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(decoded.Choices) == 0 {
			return "", errors.New("no choices returned")
		}
		return decoded.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("max retries (%d) exceeded: %w", g.maxRetries, lastErr)
}
