package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// notUnderstoodMessage is returned when the interpreter found no action.
const notUnderstoodMessage = "I didn't understand that command."

var (
	ErrCommandRequired      = errors.New("Command is required")
	ErrAssistantUnavailable = errors.New("assistant unavailable")
)

// IntentInterpreter maps a command to an intent.
type IntentInterpreter interface {
	Interpret(ctx context.Context, command string) domain.AIIntent
}

// CommandService runs free-text commands end to end.
type CommandService struct {
	interpreter IntentInterpreter
	dispatcher  *Dispatcher
}

// NewCommandService constructs a new value for this package.
func NewCommandService(interpreter IntentInterpreter, dispatcher *Dispatcher) *CommandService {
	return &CommandService{interpreter: interpreter, dispatcher: dispatcher}
}

// RunCommand interprets and dispatches one command. An interpreter failure
// returns the error payload together with ErrAssistantUnavailable.
func (c *CommandService) RunCommand(ctx context.Context, command string) (domain.AIResponse, error) {
	if strings.TrimSpace(command) == "" {
		return domain.AIResponse{}, ErrCommandRequired
	}
	intent := c.interpreter.Interpret(ctx, command)
	switch intent.Action {
	case domain.ActionError:
		message := intent.Message
		if message == "" {
			message = "assistant failed"
		}
		return domain.AIResponse{Error: message}, fmt.Errorf("%w: %s", ErrAssistantUnavailable, message)
	case domain.ActionUnknown, "":
		return domain.AIResponse{Message: notUnderstoodMessage, UnmatchedIntent: &intent}, nil
	}
	result, err := c.dispatcher.Dispatch(ctx, intent)
	if err != nil {
		return domain.AIResponse{}, fmt.Errorf("dispatch %s: %w", intent.Action, err)
	}
	return domain.AIResponse{
		OriginalCommand: command,
		Intent:          &intent,
		Result:          &result,
	}, nil
}
