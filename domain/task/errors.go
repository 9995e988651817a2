package task

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is returned when input shape or content is rejected.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState is returned for an illegal status or timer transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrUnauthenticated is returned when the credential is missing, invalid or expired.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when a valid credential targets another owner's task.
	ErrForbidden = errors.New("not allowed to access this task")
	// ErrNotFound is returned when the task id does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrConflict is returned when the task changed since the version the caller holds.
	ErrConflict = errors.New("task was modified concurrently")
	// ErrStore is returned when the underlying persistence fails.
	ErrStore = errors.New("task store failure")
)

// kinds is ordered: the first match wins when errors.Is matches several sentinels.
var kinds = []error{
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrConflict,
	ErrValidation,
	ErrInvalidState,
	ErrStore,
}

// KindOf returns the sentinel that classifies err, or nil if none does.
//
// Errors returned by request-reply services lose their identity on the wire, so
// after errors.Is fails the sentinel text is matched inside the message. The
// sentinel that occurs first wins: anything after it is detail and may carry
// caller input.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return firstKind(err.Error())
}

func firstKind(msg string) error {
	var found error
	at := -1
	for _, kind := range kinds {
		i := strings.Index(msg, kind.Error())
		if i >= 0 && (at < 0 || i < at) {
			found, at = kind, i
		}
	}
	return found
}

// Reason strips the sentinel prefix from err's message, leaving the detail
// that is safe to show a caller ("task title is required").
func Reason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	kind := KindOf(err)
	if kind == nil {
		return msg
	}
	if i := strings.Index(msg, kind.Error()+": "); i >= 0 {
		return msg[i+len(kind.Error())+2:]
	}
	return kind.Error()
}
