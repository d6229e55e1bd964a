// Package assistant turns free-text commands into structured task intents.
package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// Interpreter maps one command to one intent. Failures are reported as an
// intent with action "error" rather than as a Go error, so callers have a
// single value to route on.
type Interpreter interface {
	Interpret(ctx context.Context, command string) domain.AIIntent
}

// InterpreterFunc adapts a function to Interpreter.
type InterpreterFunc func(ctx context.Context, command string) domain.AIIntent

// Interpret implements Interpreter.
func (f InterpreterFunc) Interpret(ctx context.Context, command string) domain.AIIntent {
	return f(ctx, command)
}

// ParseIntent decodes model output. A list yields its first element.
func ParseIntent(raw string) domain.AIIntent {
	raw = strings.TrimSpace(raw)
	var decoded any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return errorIntent("Failed to parse AI response")
	}
	if list, ok := decoded.([]any); ok {
		if len(list) == 0 {
			return domain.AIIntent{Action: domain.ActionUnknown, Message: "AI returned an empty list"}
		}
		decoded = list[0]
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return errorIntent("AI returned invalid JSON structure (not a dictionary)")
	}
	return intentFromObject(obj)
}

func intentFromObject(obj map[string]any) domain.AIIntent {
	intent := domain.AIIntent{}
	if action, ok := obj["action"].(string); ok {
		intent.Action = strings.TrimSpace(action)
	}
	if message, ok := obj["message"].(string); ok {
		intent.Message = message
	}
	if params, ok := obj["params"].(map[string]any); ok {
		intent.Params = params
	}
	if intent.Action == "" {
		intent.Action = domain.ActionUnknown
	}
	return intent
}

func errorIntent(message string) domain.AIIntent {
	return domain.AIIntent{Action: domain.ActionError, Message: message}
}
