package kernel

import "errors"

// Errors returned by the queue and poll primitives.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrFull is returned by a NoWait Put on a queue with no free slot.
	ErrFull = errors.New("kernel: queue full")

	// ErrEmpty is returned by a NoWait Get on a queue holding nothing.
	ErrEmpty = errors.New("kernel: queue empty")

	// ErrWouldBlock is returned when a bounded Put or Get wait expires.
	ErrWouldBlock = errors.New("kernel: wait expired")

	// ErrTimedOut is returned by Poll when no watched queue became ready in time.
	ErrTimedOut = errors.New("kernel: poll timed out")

	// ErrNoEvents is returned by Poll when given nothing to watch.
	ErrNoEvents = errors.New("kernel: no poll events")
)
