package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrRefused is returned when the remote system answers an operation with a refusal,
	// e.g. permission denied.
	ErrRefused = errors.New("refused")
)

// ElementNotFoundError is returned when no element in a browsing context matches a text.
type ElementNotFoundError struct {
	Context string
	Text    string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element with text %q not found in context %q", e.Text, e.Context)
}

// ContentTimeoutError is returned when a browsing context content never satisfied the
// expected condition before the deadline.
type ContentTimeoutError struct {
	Context      string
	LastSeenText string
	Timeout      time.Duration
}

func (e *ContentTimeoutError) Error() string {
	return fmt.Sprintf("context %q content not ready after %s (last seen %d chars)", e.Context, e.Timeout, len(e.LastSeenText))
}

// NavigationError annotates a failed navigation step with its recipe and step index.
type NavigationError struct {
	Recipe string
	Step   int
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("recipe %q failed at step %d: %s", e.Recipe, e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ProgressTimeoutError is returned when a monitored operation never reached a terminal state.
type ProgressTimeoutError struct {
	LastPercent int
	Timeout     time.Duration
}

func (e *ProgressTimeoutError) Error() string {
	return fmt.Sprintf("operation did not finish after %s (last progress %d%%)", e.Timeout, e.LastPercent)
}

// ProgressFailedError is returned when a monitored operation finished badly.
type ProgressFailedError struct {
	Reason      string
	LastPercent int
}

func (e *ProgressFailedError) Error() string {
	return fmt.Sprintf("operation failed at %d%%: %s", e.LastPercent, e.Reason)
}

// UnreachableError is returned when the system under test could not be reached at all.
type UnreachableError struct {
	Target string
	Err    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("could not reach %s: %s", e.Target, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// CommandError is returned when a remote command exits with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}
