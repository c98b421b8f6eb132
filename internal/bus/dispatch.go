package bus

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/graybus/internal/kernel"
)

// defaultRunInterval bounds each wait in Dispatcher.Run so cancellation is
// noticed even when no data arrives.
const defaultRunInterval = 100 * time.Millisecond

// PollEvents returns one NotReady readiness event per subscriber, in order.
func PollEvents(subs ...Source) []kernel.PollEvent {
	events := make([]kernel.PollEvent, len(subs))
	for i, s := range subs {
		events[i] = s.PollEvent()
	}
	return events
}

// HandleReady invokes the callback of every subscriber whose event is
// DataAvailable, then resets that event to NotReady.
//
// A subscriber without a callback is still re-armed; its owner must drain
// the queue some other way. Callbacks run inline, so a blocking callback
// blocks this call.
//
// subs and events are parallel lists; a length mismatch panics with
// ErrConfigurationCorruption.
func HandleReady(subs []Source, events []kernel.PollEvent) {
	if len(subs) != len(events) {
		corruption("%d subscribers but %d poll events", len(subs), len(events))
	}

	for i := range events {
		if events[i].State != kernel.DataAvailable {
			continue
		}
		subs[i].Notify()
		events[i].State = kernel.NotReady
	}
}

// WaitAndHandle waits for readiness on events and dispatches ready subscribers.
//
// Returns the wait result unchanged:
//   - nil: data arrived and callbacks ran
//   - kernel.ErrTimedOut: nothing arrived; no callback ran
//   - any other error from kernel.Poll
func WaitAndHandle(subs []Source, events []kernel.PollEvent, timeout kernel.Timeout) error {
	if err := kernel.Poll(events, timeout); err != nil {
		return err
	}
	HandleReady(subs, events)
	return nil
}

// Dispatcher owns a subscriber list and its readiness events.
//
// It is the goroutine-shaped form of a subscriber thread: create it once
// with the subscribers it serves and call Run, or drive WaitAndHandle from
// an existing loop.
type Dispatcher struct {
	name   string
	subs   []Source
	events []kernel.PollEvent
	logger Logger
}

// NewDispatcher creates a dispatcher serving subs.
func NewDispatcher(name string, subs ...Source) *Dispatcher {
	list := make([]Source, len(subs))
	copy(list, subs)

	return &Dispatcher{
		name:   name,
		subs:   list,
		events: PollEvents(list...),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Name returns the dispatcher name.
func (d *Dispatcher) Name() string {
	return d.name
}

// Events returns the readiness events, parallel to the subscriber list.
func (d *Dispatcher) Events() []kernel.PollEvent {
	return d.events
}

// HandleReady dispatches every subscriber currently marked ready.
func (d *Dispatcher) HandleReady() {
	HandleReady(d.subs, d.events)
}

// WaitAndHandle waits up to timeout and dispatches ready subscribers.
// See the package-level WaitAndHandle for the result codes.
func (d *Dispatcher) WaitAndHandle(timeout kernel.Timeout) error {
	return WaitAndHandle(d.subs, d.events, timeout)
}

// Run dispatches until ctx is cancelled.
//
// Each wait is bounded by interval (a default applies when it is not
// positive) so cancellation is seen within one interval. Timeouts are
// expected and ignored; any other wait error ends the loop.
//
// Returns:
//   - error: nil on cancellation, or the wait error that stopped the loop
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultRunInterval
	}
	timeout := kernel.After(interval)

	d.logger.Info("dispatcher started", "dispatcher", d.name, "subscribers", len(d.subs))
	defer d.logger.Info("dispatcher stopped", "dispatcher", d.name)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := d.WaitAndHandle(timeout)
		if err != nil && !errors.Is(err, kernel.ErrTimedOut) {
			d.logger.Error("dispatch wait failed", "dispatcher", d.name, "error", err)
			return err
		}
	}
}
