// Package timing provides the wall-clock abstraction and deferred-action
// queue that drive transcript highlighting and puppet playback.
package timing

import "time"

// Clock abstracts wall time so scheduling logic can be tested
// deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc runs fn after d has elapsed. There is no cancellation;
	// callers guard their own actions against staleness.
	AfterFunc(d time.Duration, fn func())
}

// RealClock is the production Clock backed by the time package.
type RealClock struct{}

// NewRealClock returns a Clock that uses the system clock.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc delegates to time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
