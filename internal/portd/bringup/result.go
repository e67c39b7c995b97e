package bringup

import (
	"fmt"

	"portd/internal/portd/device"
)

// Severity classifies how a step failure is handled by the sequencing loop.
type Severity uint8

const (
	// Fatal aborts the bring-up and releases everything acquired so far.
	Fatal Severity = iota
	// Degraded is recorded at warning level and the sequence continues with
	// the prior configuration value.
	Degraded
	// Informational steps never fail the bring-up; an unreadable value is
	// reported as unknown.
	Informational
)

func (s Severity) String() string {
	switch s {
	case Fatal:
		return "fatal"
	case Degraded:
		return "degraded"
	case Informational:
		return "informational"
	}
	return "unknown"
}

// Diagnostic records the outcome of one tolerated or informational step for
// telemetry consumers.
type Diagnostic struct {
	Step     string
	Severity Severity
	Code     device.Errno
	Detail   string
}

// BringUpError is the terminal failure of a fatal step. It carries the step
// name and the raw numeric code from the device layer.
type BringUpError struct {
	Step string
	Code device.Errno
	Err  error
}

func (e *BringUpError) Error() string {
	return fmt.Sprintf("bring-up failed at step %q: %v (code %d)", e.Step, e.Err, int(e.Code))
}

func (e *BringUpError) Unwrap() error { return e.Err }
