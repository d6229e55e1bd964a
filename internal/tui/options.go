package tui

import (
	"time"

	"github.com/evanschultz/taskdeck/internal/domain"
)

type Option func(*Model)

// ClipboardFunc writes text to the system clipboard.
type ClipboardFunc func(string) error

func WithDefaultFilter(filter domain.Filter) Option {
	return func(m *Model) {
		if parsed, err := domain.ParseFilter(string(filter)); err == nil {
			m.filter = parsed
		}
	}
}

func WithShowAssistant(show bool) Option {
	return func(m *Model) {
		m.showAssistant = show
	}
}

func WithShowDescriptions(show bool) Option {
	return func(m *Model) {
		m.showDescriptions = show
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(m *Model) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}
