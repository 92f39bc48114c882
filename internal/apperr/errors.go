package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrMalformedSource     = errors.New("malformed source")
	ErrSubmissionsNotFound = errors.New("submissions not found")
	ErrNotFound            = errors.New("not found")
	ErrStorageFailure      = errors.New("storage failure")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// MalformedSourceError describes an unrecoverable lexical error in one file
type MalformedSourceError struct {
	Path   string
	Line   int
	Column int
	Reason string
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Reason)
}

func (e *MalformedSourceError) Unwrap() error {
	return ErrMalformedSource
}

// Storage marks err as a failure of an external storage collaborator.
// The wrapped error stays reachable through errors.Is and errors.As.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// Code maps an error to the code returned to API clients
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedLanguage):
		return "UNSUPPORTED_LANGUAGE"
	case errors.Is(err, ErrSubmissionsNotFound):
		return "SUBMISSIONS_NOT_FOUND"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidArgument):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrStorageFailure):
		return "STORAGE_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}
