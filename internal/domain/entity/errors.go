package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrConfigLoad indicates that the bot configuration or the keyword file
	// is missing or malformed. Fatal at startup, recoverable on rehash.
	ErrConfigLoad = errors.New("configuration load failed")

	// ErrEmptyKeywordTable indicates that an operation needed at least one
	// configured channel but the keyword table is empty.
	ErrEmptyKeywordTable = fmt.Errorf("%w: keyword table is empty", ErrConfigLoad)

	// ErrFeedFetch indicates that fetching or parsing a feed failed.
	ErrFeedFetch = errors.New("feed fetch failed")

	// ErrCommandFormat indicates that a command was invoked with the wrong
	// number or shape of arguments.
	ErrCommandFormat = errors.New("malformed command")

	// ErrTransportDisconnect indicates that the IRC connection was lost.
	ErrTransportDisconnect = errors.New("transport disconnected")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ValidationError against ErrConfigLoad.
func (e *ValidationError) Unwrap() error {
	return ErrConfigLoad
}
