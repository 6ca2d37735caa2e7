// Package ltimer defines the logical timer contract shared by every
// platform backend. A logical timer presents one monotonic time source and
// one timeout slot over whatever hardware the platform actually has; the
// backend packages under plat/ and arch/ realise the contract.
package ltimer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a nil collaborator or a malformed value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTimeoutPassed reports an absolute timeout whose instant was
	// already reached when SetTimeout ran. Callers can use it to tell
	// "expired" apart from "nonsense".
	ErrTimeoutPassed = errors.New("absolute timeout already passed")

	// ErrNotImplemented reports a query the backend has no meaningful
	// answer for, such as Resolution on multi-unit platforms.
	ErrNotImplemented = errors.New("not implemented on this platform")

	// ErrUnsupported reports hardware that is absent or unusable, such as
	// an architected counter the platform configuration does not export or
	// a counter whose frequency register reads zero.
	ErrUnsupported = errors.New("unsupported by platform configuration")
)

// TimeoutKind selects how SetTimeout interprets its nanosecond argument.
type TimeoutKind int

const (
	// TimeoutRelative fires once, the given duration after now.
	TimeoutRelative TimeoutKind = iota
	// TimeoutAbsolute fires once, when the counter reaches the given value.
	TimeoutAbsolute
	// TimeoutPeriodic fires repeatedly with the given period until
	// superseded, reset, or closed. The backend re-arms it itself.
	TimeoutPeriodic
)

func (k TimeoutKind) String() string {
	switch k {
	case TimeoutRelative:
		return "relative"
	case TimeoutAbsolute:
		return "absolute"
	case TimeoutPeriodic:
		return "periodic"
	default:
		return fmt.Sprintf("TimeoutKind(%d)", int(k))
	}
}

// Valid reports whether k names a defined timeout kind.
func (k TimeoutKind) Valid() bool {
	return k >= TimeoutRelative && k <= TimeoutPeriodic
}

// Timer is the handle a caller holds on a platform backend.
//
// Backends assume exactly one execution context calls in at a time, with
// the exception that HandleIRQ may run from an interrupt-handling context
// that preempts ordinary calls. Time is safe from either context; callers
// are expected to run SetTimeout and Reset with timer interrupts masked,
// since those mutate the same timeout state HandleIRQ does. No method
// blocks.
type Timer interface {
	// Time returns nanoseconds of monotonically increasing time since the
	// backend's free-running counter started.
	Time() (uint64, error)

	// Resolution returns the smallest representable interval in
	// nanoseconds, or ErrNotImplemented where the hardware has no
	// meaningful answer.
	Resolution() (uint64, error)

	// SetTimeout arms the single timeout slot, superseding any timeout
	// already armed. An absolute instant at or before the current time
	// fails with ErrTimeoutPassed without touching hardware; a failed
	// call supersedes nothing.
	SetTimeout(ns uint64, kind TimeoutKind) error

	// HandleIRQ services one delivered interrupt. The caller's interrupt
	// plumbing is responsible for delivery; num is the hardware interrupt
	// number from the backend's resource descriptors. Numbers matching
	// neither owned unit are logged and swallowed: the interrupt dispatch
	// loop has no useful way to recover, and a mismatch is a provisioning
	// bug rather than a runtime condition.
	HandleIRQ(num uint32) error

	// Reset stops and restarts the timeout unit, clearing any pending
	// timeout. The time source keeps counting; Time stays monotonic
	// across Reset.
	Reset() error

	// Close stops all owned hardware units, unmaps every mapped register
	// window, and releases backend state. It is safe after a partially
	// failed construction and never reports an error; there is nobody
	// left to report to.
	Close() error
}
