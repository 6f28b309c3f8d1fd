package timing

import "time"

// Queue executes deferred actions one at a time on a single goroutine,
// in fire-time order. It replaces ad-hoc delayed closures with an explicit
// (fireAt, action) abstraction: actions are never cancelled, so anything
// queued here must check its own preconditions when it finally runs.
type Queue struct {
	clock   Clock
	actions chan func()
	quit    chan struct{}
	done    chan struct{}
}

// NewQueue creates a Queue and starts its run loop.
func NewQueue(clock Clock) *Queue {
	q := &Queue{
		clock:   clock,
		actions: make(chan func(), 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// ScheduleAt queues action to run at fireAt. A fireAt in the past runs the
// action as soon as the loop is free.
func (q *Queue) ScheduleAt(fireAt time.Time, action func()) {
	q.ScheduleAfter(fireAt.Sub(q.clock.Now()), action)
}

// ScheduleAfter queues action to run after delay.
func (q *Queue) ScheduleAfter(delay time.Duration, action func()) {
	if delay <= 0 {
		q.post(action)
		return
	}
	q.clock.AfterFunc(delay, func() {
		q.post(action)
	})
}

// Sync blocks until every action posted before the call has run. Used by
// tests to settle the loop after advancing a fake clock.
func (q *Queue) Sync() {
	ack := make(chan struct{})
	q.post(func() { close(ack) })
	select {
	case <-ack:
	case <-q.quit:
	}
}

// Close stops the run loop. Actions still pending are dropped.
func (q *Queue) Close() {
	close(q.quit)
	<-q.done
}

func (q *Queue) post(action func()) {
	select {
	case q.actions <- action:
	case <-q.quit:
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case action := <-q.actions:
			action()
		case <-q.quit:
			return
		}
	}
}
