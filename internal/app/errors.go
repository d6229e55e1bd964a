package app

import "errors"

// ErrTitleRequired and related errors describe client-side precondition failures.
var (
	ErrTitleRequired   = errors.New("title is required")
	ErrCommandRequired = errors.New("command is required")
	ErrGatewayRequired = errors.New("gateway is required")
	ErrStatusStalled   = errors.New("status did not advance")
)
