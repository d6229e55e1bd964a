package assistant

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// RuleInterpreter is an offline interpreter for a small command grammar.
// It covers the same four actions as the model-backed interpreter.
type RuleInterpreter struct{}

// NewRuleInterpreter constructs a new value for this package.
func NewRuleInterpreter() RuleInterpreter {
	return RuleInterpreter{}
}

var (
	reCreate    = regexp.MustCompile(`(?i)^(?:please\s+)?(?:add|create|new)\s+(?:a\s+)?(?:new\s+)?(?:task\s*)?(?:to\s+|called\s+|named\s+|:\s*)?(.+)$`)
	reMarkByID  = regexp.MustCompile(`(?i)^(?:mark|set|move)\s+task\s+#?(\d+)\s+(?:as\s+|to\s+)?(.+)$`)
	reMarkTitle = regexp.MustCompile(`(?i)^(?:mark|set|move)\s+(?:the\s+)?(?:task\s+)?(?:about\s+)?(.+?)\s+(?:as|to)\s+(.+)$`)
	reStart     = regexp.MustCompile(`(?i)^(?:start|begin)\s+(?:working\s+on\s+)?(?:the\s+)?(?:task\s+)?(?:about\s+)?(.+)$`)
	reFinish    = regexp.MustCompile(`(?i)^(?:finish|complete|done\s+with)\s+(?:the\s+)?(?:task\s+)?(?:about\s+)?(.+)$`)
	reList      = regexp.MustCompile(`(?i)^(?:show|list|display|what\s+are)\b(.*)$`)
	reDeleteID  = regexp.MustCompile(`(?i)^(?:delete|remove)\s+task\s+#?(\d+)$`)
	reDelete    = regexp.MustCompile(`(?i)^(?:delete|remove)\s+(?:the\s+)?(?:task\s+)?(?:about\s+|called\s+|named\s+)?(.+)$`)
)

// statusWords maps loose phrasing to wire statuses, longest phrases first.
var statusWords = []struct {
	phrase string
	status domain.Status
}{
	{"not started", domain.StatusNotStarted},
	{"not_started", domain.StatusNotStarted},
	{"in progress", domain.StatusInProgress},
	{"in_progress", domain.StatusInProgress},
	{"started", domain.StatusInProgress},
	{"completed", domain.StatusCompleted},
	{"complete", domain.StatusCompleted},
	{"finished", domain.StatusCompleted},
	{"done", domain.StatusCompleted},
}

// Interpret implements Interpreter.
func (RuleInterpreter) Interpret(_ context.Context, command string) domain.AIIntent {
	text := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(command), ".!"))
	if text == "" {
		return unknownIntent()
	}

	if m := reDeleteID.FindStringSubmatch(text); m != nil {
		return idIntent(domain.ActionDeleteTask, m[1], "")
	}
	if m := reDelete.FindStringSubmatch(text); m != nil {
		return titleIntent(domain.ActionDeleteTask, m[1], "")
	}
	if m := reMarkByID.FindStringSubmatch(text); m != nil {
		if status, ok := matchStatus(m[2]); ok {
			return idIntent(domain.ActionUpdateTaskStatus, m[1], status)
		}
		return unknownIntent()
	}
	if m := reMarkTitle.FindStringSubmatch(text); m != nil {
		if status, ok := matchStatus(m[2]); ok {
			return titleIntent(domain.ActionUpdateTaskStatus, m[1], status)
		}
		return unknownIntent()
	}
	if m := reStart.FindStringSubmatch(text); m != nil {
		return titleIntent(domain.ActionUpdateTaskStatus, m[1], domain.StatusInProgress)
	}
	if m := reFinish.FindStringSubmatch(text); m != nil {
		return titleIntent(domain.ActionUpdateTaskStatus, m[1], domain.StatusCompleted)
	}
	if m := reList.FindStringSubmatch(text); m != nil {
		intent := domain.AIIntent{Action: domain.ActionListTasks, Params: map[string]any{}}
		if status, ok := matchStatus(m[1]); ok {
			intent.Params["status"] = string(status)
		}
		return intent
	}
	if m := reCreate.FindStringSubmatch(text); m != nil {
		title := cleanTitle(m[1])
		if title == "" {
			return unknownIntent()
		}
		return domain.AIIntent{Action: domain.ActionCreateTask, Params: map[string]any{"title": capitalize(title)}}
	}
	return unknownIntent()
}

func idIntent(action, rawID string, status domain.Status) domain.AIIntent {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return unknownIntent()
	}
	params := map[string]any{"task_id": id}
	if status != "" {
		params["status"] = string(status)
	}
	return domain.AIIntent{Action: action, Params: params}
}

func titleIntent(action, rawTitle string, status domain.Status) domain.AIIntent {
	title := cleanTitle(rawTitle)
	if title == "" {
		return unknownIntent()
	}
	params := map[string]any{"title": title}
	if status != "" {
		params["status"] = string(status)
	}
	return domain.AIIntent{Action: action, Params: params}
}

func matchStatus(text string) (domain.Status, bool) {
	text = strings.ToLower(text)
	for _, word := range statusWords {
		if strings.Contains(text, word.phrase) {
			return word.status, true
		}
	}
	return "", false
}

func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	return strings.TrimSpace(title)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func unknownIntent() domain.AIIntent {
	return domain.AIIntent{Action: domain.ActionUnknown, Message: "Could not understand command"}
}
