package agent

import (
	"errors"
	"fmt"
)

// InvalidInputError reports malformed caller input. It is the only failure
// that crosses the pipeline boundary; every other condition is absorbed
// into a degraded-but-successful result.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// IsInvalidInput reports whether err is (or wraps) an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// Sentinel errors for conditions the runner absorbs. They never escape a
// run; they classify log entries so operators can tell a degraded reply
// from a healthy one.
var (
	ErrContextUnavailable    = errors.New("patient context unavailable")
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
	ErrNotificationFailed    = errors.New("review notification failed")
)
