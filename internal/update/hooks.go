package update

import "github.com/muurk/smartrelay/internal/events"

// Hooks receive the lifecycle of one update attempt. A transport calls
// OnStart once, OnProgress as data arrives, then exactly one of OnEnd or
// OnError. OnError may also be called without OnStart when the attempt is
// refused up front.
type Hooks interface {
	OnStart()
	OnProgress(percent int)
	OnEnd()
	OnError(kind ErrorKind)
}

type startEvent struct{}

type progressEvent struct{ percent int }

type endEvent struct{}

type errorEvent struct{ kind ErrorKind }

// deferredHooks turn hook calls into queued events.
type deferredHooks struct {
	q *events.Queue
}

// Deferred returns Hooks that push events onto q instead of running
// application code on the transport's goroutine. The main loop hands the
// events to Service.Handle.
func Deferred(q *events.Queue) Hooks {
	return deferredHooks{q: q}
}

func (d deferredHooks) OnStart()               { d.q.Push(startEvent{}) }
func (d deferredHooks) OnProgress(percent int) { d.q.Push(progressEvent{percent: percent}) }
func (d deferredHooks) OnEnd()                 { d.q.Push(endEvent{}) }
func (d deferredHooks) OnError(kind ErrorKind) { d.q.Push(errorEvent{kind: kind}) }
