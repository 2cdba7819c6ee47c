// Package scan provides scan session management on top of pluggable device
// scanners. A session bridges the scanner's callbacks into an ordered and
// deduplicated event stream with bounded buffering.
package scan

import (
	"errors"
	"fmt"
)

// The available scan failure codes.
const (
	FailureAlreadyStarted = 1
	FailureRegistration   = 2
	FailureInternal       = 3
	FailureUnsupported    = 4
)

// Result represents a single discovery reported by a scanner.
type Result struct {
	Address  string
	Name     string
	RSSI     int16
	Services []string
	Source   string
}

// Identity returns the stable key that identifies the discovered device.
func (r Result) Identity() string {
	return r.Address
}

// Event is delivered by a session for every newly discovered device. A failed
// scan yields one final event with Err set before the stream is closed.
type Event struct {
	Device Result
	Err    error
}

// Error represents a scan failure reported by a scanner.
type Error struct {
	Code int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("scan failed: code %d", e.Code)
}

// FailureCode returns the failure code carried by the provided error, or zero
// if the error is not a scan failure.
func FailureCode(err error) int {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Callback receives raw discoveries from a scanner. Scanners never overlap
// invocations of the same callback.
type Callback interface {
	// OnResults reports one or more discoveries in a single notification.
	OnResults(results ...Result)
	// OnFailure reports a fatal scan failure using one of the failure codes.
	OnFailure(code int)
}

// Scanner is the external scanning primitive. Start begins a scan matching
// the provided filters and invokes the callback until Stop is called with the
// same callback.
type Scanner interface {
	Start(filters []Filter, settings Settings, cb Callback) error
	Stop(cb Callback) error
}
