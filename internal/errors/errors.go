package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrRaceDetected = errors.New("concurrent update conflict, retries exhausted")
)

// ConfigurationError reports an invalid schedule or schema configuration.
// It is always surfaced to the administrator, never auto-resolved.
type ConfigurationError struct {
	Code    string // "conflicting_override" or "slot_overlap"
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Code, e.Message)
}

func NewConflictingOverride(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Code: "conflicting_override", Message: fmt.Sprintf(format, args...)}
}

func NewSlotOverlap(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Code: "slot_overlap", Message: fmt.Sprintf(format, args...)}
}

// CapacityError is a booking rejection, not a hard failure. The message is
// suitable for direct display to staff.
type CapacityError struct {
	Code      string // ledger rejection reason, e.g. "insufficient_capacity"
	Message   string
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity error (%s): %s", e.Code, e.Message)
}

// ValidationError reports a malformed request that never reached the
// database: unknown slugs, party sizes outside the configured bounds, and
// similar client mistakes.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StateError reports an invalid reservation transition. It indicates a logic
// defect in the caller and is never retried.
type StateError struct {
	From    string
	To      string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Message)
}

func NewInvalidTransition(from, to, message string) *StateError {
	return &StateError{From: from, To: to, Message: message}
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsCapacity reports whether err is a capacity rejection.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// IsState reports whether err is an invalid-transition error.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsValidation reports whether err is a request validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
