package main

import (
	"errors"
	"fmt"
)

var (
	// ErrNoArticle means extraction found no readable main content.
	// It is terminal for the session; there is no partial article.
	ErrNoArticle = errors.New("no readable article content found")

	// ErrNoArchiver is returned by the package assembler when no
	// compression backend is configured.
	ErrNoArchiver = errors.New("package compression unavailable")

	// ErrExportInFlight is returned when an export is requested for an
	// article that is already being exported.
	ErrExportInFlight = errors.New("an export is already running for this article")

	// ErrSessionNotFound means no article is held for the session id.
	ErrSessionNotFound = errors.New("no article found in session")

	// ErrKeyNotFound is returned by KV stores for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)

// ValidationError reports user input that was rejected before any side
// effect took place.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// isValidation reports whether err is (or wraps) a ValidationError.
func isValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
