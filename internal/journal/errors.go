// ABOUTME: Sentinel errors returned by the entry index.
// ABOUTME: Callers match them with errors.Is.
package journal

import "errors"

var (
	// ErrConflict is returned when an operation names an entry the index does not hold.
	ErrConflict = errors.New("entry not in index")

	// ErrInFlight is returned when an AI request is already running for the entry.
	ErrInFlight = errors.New("AI request already in flight for entry")

	// ErrTooShort is returned when there is not enough text to send for analysis.
	ErrTooShort = errors.New("write a bit more first")

	// ErrNoGenerator is returned when no AI collaborator is configured.
	ErrNoGenerator = errors.New("no AI collaborator configured")
)
