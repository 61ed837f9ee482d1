package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// DomainError is an error with a fixed HTTP status and a message safe to
// show the caller.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

// notFound turns a missing row into a 404 carrying message; other errors pass through.
func notFound(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
	}
	return err
}
