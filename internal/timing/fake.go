package timing

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests. Advance fires due
// timers synchronously in deadline order, so a test that advances past a
// deadline and then calls Queue.Sync observes every resulting action.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	nextSeq int
	timers  []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	seq      int
	fn       func()
}

// NewFakeClock returns a FakeClock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers fn to fire once the clock has been advanced past d.
// A non-positive d fires immediately.
func (f *FakeClock) AfterFunc(d time.Duration, fn func()) {
	if d <= 0 {
		fn()
		return
	}
	f.mu.Lock()
	f.nextSeq++
	f.timers = append(f.timers, &fakeTimer{
		deadline: f.now.Add(d),
		seq:      f.nextSeq,
		fn:       fn,
	})
	f.mu.Unlock()
}

// Advance moves the clock forward by d, firing due timers in deadline
// order. Each timer observes Now() equal to its own deadline when it fires.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		timer := f.popDue(target)
		if timer == nil {
			break
		}
		timer.fn()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

func (f *FakeClock) popDue(target time.Time) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	sort.SliceStable(f.timers, func(i, j int) bool {
		if f.timers[i].deadline.Equal(f.timers[j].deadline) {
			return f.timers[i].seq < f.timers[j].seq
		}
		return f.timers[i].deadline.Before(f.timers[j].deadline)
	})

	if len(f.timers) == 0 || f.timers[0].deadline.After(target) {
		return nil
	}

	timer := f.timers[0]
	f.timers = f.timers[1:]
	f.now = timer.deadline
	return timer
}
