package domain

import (
	"slices"
	"strings"
)

// Status is the lifecycle state of a task as carried on the wire.
type Status string

// StatusNotStarted and related constants are the only valid task states.
const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

var validStatuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

var statusLabels = map[Status]string{
	StatusNotStarted: "Not Started",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
}

// nextStatus is the forward-only advance hint shown on task cards.
var nextStatus = map[Status]Status{
	StatusNotStarted: StatusInProgress,
	StatusInProgress: StatusCompleted,
}

// Statuses returns all statuses in lifecycle order.
func Statuses() []Status {
	return slices.Clone(validStatuses)
}

// ParseStatus validates one wire status value. Matching is case-sensitive.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.TrimSpace(raw))
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return slices.Contains(validStatuses, s)
}

// Label returns the human-readable status name.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// NextStatus returns the status a task may be advanced to from the card.
// It is a display hint only; the server owns the transition rules.
func NextStatus(s Status) (Status, bool) {
	next, ok := nextStatus[s]
	return next, ok
}
