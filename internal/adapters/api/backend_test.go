package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evanschultz/taskdeck/internal/adapters/server/httpapi"
	"github.com/evanschultz/taskdeck/internal/adapters/storage/sqlite"
	"github.com/evanschultz/taskdeck/internal/assistant"
	"github.com/evanschultz/taskdeck/internal/backend"
	"github.com/evanschultz/taskdeck/internal/domain"
)

// newBackendClient serves the REST handler over a fresh store with interpreter.
func newBackendClient(t *testing.T, interpreter backend.IntentInterpreter) *Client {
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
	commands := backend.NewCommandService(interpreter, backend.NewDispatcher(tasks))
	srv := httptest.NewServer(http.StripPrefix("/api", httpapi.NewHandler(tasks, commands)))
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestSendAICommandInterpreterOutageIsHTTPError(t *testing.T) {
	client := newBackendClient(t, assistant.InterpreterFunc(func(context.Context, string) domain.AIIntent {
		return domain.AIIntent{Action: domain.ActionError, Message: "upstream down"}
	}))

	resp, err := client.SendAICommand(context.Background(), "add a task to buy milk")
	if !errors.Is(err, ErrHTTP) {
		t.Fatalf("expected ErrHTTP, got resp=%#v err=%v", resp, err)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable || httpErr.Message != "upstream down" {
		t.Fatalf("unexpected http error %#v", httpErr)
	}
	if resp.HasPayload() {
		t.Fatalf("expected empty response, got %#v", resp)
	}
}

func TestSendAICommandAgainstRuleInterpreter(t *testing.T) {
	client := newBackendClient(t, assistant.NewRuleInterpreter())

	resp, err := client.SendAICommand(context.Background(), "create a task to review the budget")
	if err != nil {
		t.Fatalf("SendAICommand() error = %v", err)
	}
	if !resp.Succeeded() {
		t.Fatalf("expected success, got %#v", resp)
	}
	tasks, err := client.ListTasks(context.Background(), "")
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Status != domain.StatusNotStarted {
		t.Fatalf("unexpected tasks %#v", tasks)
	}

	resp, err = client.SendAICommand(context.Background(), "sing me a song")
	if err != nil {
		t.Fatalf("SendAICommand() error = %v", err)
	}
	if resp.Succeeded() || resp.Feedback() != "I didn't understand that command." {
		t.Fatalf("unexpected not-understood response %#v", resp)
	}
}
