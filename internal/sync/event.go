// ABOUTME: Auto-reset event used to park and wake device worker goroutines
// ABOUTME: Wraps a one-slot channel so signals never block and never stack
package sync

// Event is an auto-reset synchronization primitive. Signal wakes exactly
// one waiter (or lets the next Wait return immediately); signals posted
// while one is already pending coalesce into that single token.
type Event struct {
	ch chan struct{}
}

// NewEvent creates an event with no pending signal.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Signal marks the event signaled. If a goroutine is blocked in Wait it
// wakes up, otherwise the next Wait returns immediately. Signaling an
// already-signaled event is a no-op.
func (e *Event) Signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the event is signaled and consumes the signal.
func (e *Event) Wait() {
	<-e.ch
}

// Reset discards a pending signal, if any, without blocking.
func (e *Event) Reset() {
	select {
	case <-e.ch:
	default:
	}
}

// C exposes the signal channel for use in select statements. Receiving
// from it consumes the signal exactly like Wait.
func (e *Event) C() <-chan struct{} {
	return e.ch
}
