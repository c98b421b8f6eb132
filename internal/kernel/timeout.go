package kernel

import (
	"fmt"
	"time"
)

// Timeout selects how long a blocking primitive may wait.
type Timeout struct {
	d       time.Duration
	forever bool
}

var (
	// NoWait makes the call return immediately.
	NoWait = Timeout{}

	// Forever makes the call wait until it can complete.
	Forever = Timeout{forever: true}
)

// After returns a Timeout that waits at most d. A non-positive d is NoWait.
func After(d time.Duration) Timeout {
	if d <= 0 {
		return NoWait
	}
	return Timeout{d: d}
}

// IsNoWait reports whether the timeout never blocks.
func (t Timeout) IsNoWait() bool {
	return !t.forever && t.d <= 0
}

// IsForever reports whether the timeout never expires.
func (t Timeout) IsForever() bool {
	return t.forever
}

// Duration returns the bounded wait, or zero for NoWait and Forever.
func (t Timeout) Duration() time.Duration {
	return t.d
}

// String implements fmt.Stringer.
func (t Timeout) String() string {
	switch {
	case t.forever:
		return "forever"
	case t.d <= 0:
		return "no-wait"
	default:
		return fmt.Sprintf("after(%s)", t.d)
	}
}
