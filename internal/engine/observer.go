package engine

import (
	"time"

	"github.com/roach88/combatlens/internal/event"
)

// Observer receives dispatch notifications, typically for metrics.
// Calls happen synchronously on the dispatching goroutine.
type Observer interface {
	EventDispatched(ev event.Event)
	HandlerInvoked(module Handle, ev event.Event)
	HandlerFaulted(fault *HandlerFault)
	EventMalformed(err *MalformedEventError)
	RunCompleted(events int, elapsed time.Duration)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) EventDispatched(event.Event) {}
func (NopObserver) HandlerInvoked(Handle, event.Event) {}
func (NopObserver) HandlerFaulted(*HandlerFault) {}
func (NopObserver) EventMalformed(*MalformedEventError) {}
func (NopObserver) RunCompleted(int, time.Duration) {}
