package content

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	LoadFailure   FailureKind = "load"
	SaveFailure   FailureKind = "save"
	DeleteFailure FailureKind = "delete"
	ToggleFailure FailureKind = "toggle"
)

var failureMessages = map[FailureKind]string{
	LoadFailure:   "Failed to load data",
	SaveFailure:   "Failed to save data",
	DeleteFailure: "Failed to delete item",
	ToggleFailure: "Failed to toggle featured status",
}

// Failure is a user-facing error: Message is the one line shown to the operator,
// Err keeps the cause for logs.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func NewFailure(kind FailureKind, err error) *Failure {
	message, ok := failureMessages[kind]
	if !ok {
		message = "Request failed"
	}
	return &Failure{Kind: kind, Message: message, Err: err}
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Err == nil {
		return f.Message
	}
	return fmt.Sprintf("%s: %v", f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsFailure reports whether err carries a Failure of the given kind.
func IsFailure(err error, kind FailureKind) bool {
	var failure *Failure
	return errors.As(err, &failure) && failure.Kind == kind
}

// Message returns the operator-facing line for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Message
	}
	return err.Error()
}
