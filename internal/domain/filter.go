package domain

import "strings"

// Filter selects which tasks the list shows.
type Filter string

// FilterAll and related constants define the selectable list filters.
const (
	FilterAll        Filter = "ALL"
	FilterNotStarted Filter = Filter(StatusNotStarted)
	FilterInProgress Filter = Filter(StatusInProgress)
	FilterCompleted  Filter = Filter(StatusCompleted)
)

var filterOrder = []Filter{FilterAll, FilterNotStarted, FilterInProgress, FilterCompleted}

// Filters returns the filters in display order.
func Filters() []Filter {
	return append([]Filter(nil), filterOrder...)
}

// ParseFilter parses a filter name. Input is case-insensitive and "" means ALL.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	raw = strings.ReplaceAll(raw, " ", "_")
	raw = strings.ReplaceAll(raw, "-", "_")
	if raw == "" {
		return FilterAll, nil
	}
	for _, f := range filterOrder {
		if string(f) == raw {
			return f, nil
		}
	}
	return "", ErrInvalidFilter
}

// Status returns the server-side status query for the filter; ALL has none.
func (f Filter) Status() (Status, bool) {
	if f == FilterAll || f == "" {
		return "", false
	}
	status := Status(f)
	if !status.Valid() {
		return "", false
	}
	return status, true
}

// Label returns the filter tab label.
func (f Filter) Label() string {
	if status, ok := f.Status(); ok {
		return status.Label()
	}
	return "All"
}

// Shift returns the filter delta steps away, wrapping around.
func (f Filter) Shift(delta int) Filter {
	idx := 0
	for i, candidate := range filterOrder {
		if candidate == f {
			idx = i
			break
		}
	}
	n := len(filterOrder)
	idx = ((idx+delta)%n + n) % n
	return filterOrder[idx]
}
