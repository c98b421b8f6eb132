// Package kernel provides the host primitives the message bus is built on.
//
// On an RTOS these would be the kernel's message queue and poll facilities.
// In a Go process they are supplied here with the same contract:
//
//   - MsgQueue: a bounded FIFO with a fixed capacity and element type,
//     allocated once and never grown.
//   - Poll: blocks until one or more watched queues hold data, or a
//     timeout elapses.
//
// # Timeouts
//
// Every blocking call takes a Timeout:
//
//	q.Put(msg, kernel.NoWait)                 // fail immediately with ErrFull
//	q.Put(msg, kernel.Forever)                // wait for room
//	q.Get(kernel.After(50 * time.Millisecond)) // bounded wait, ErrWouldBlock on expiry
//
// # Readiness
//
// Poll is level-triggered. It marks every event whose queue currently holds
// data as DataAvailable and never clears a state itself; callers reset the
// state once they have handled the event:
//
//	events := []kernel.PollEvent{kernel.NewPollEvent(q1), kernel.NewPollEvent(q2)}
//	if err := kernel.Poll(events, kernel.Forever); err == nil {
//	    for i := range events {
//	        if events[i].State == kernel.DataAvailable {
//	            // drain
//	            events[i].State = kernel.NotReady
//	        }
//	    }
//	}
//
// Thread Safety: MsgQueue is safe for any number of concurrent producers and
// consumers. A PollEvent slice belongs to one polling goroutine.
package kernel
