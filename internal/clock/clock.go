// Package clock abstracts timers so polling and rendering loops can run on
// the wall clock in production and on a deterministic clock in tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped a pending run.
	Stop() bool
}

// Scheduler schedules callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Real is the wall-clock scheduler backed by time.AfterFunc.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (Real) Now() time.Time {
	return time.Now()
}

// repeater re-arms itself only after f returns, so runs never overlap.
type repeater struct {
	mu       sync.Mutex
	s        Scheduler
	interval time.Duration
	f        func()
	t        Timer
	stopped  bool
}

// Repeat runs f after first, then again interval after each run completes,
// until the returned timer is stopped. f may stop its own timer.
func Repeat(s Scheduler, first, interval time.Duration, f func()) Timer {
	r := &repeater{s: s, interval: interval, f: f}
	r.mu.Lock()
	r.t = s.AfterFunc(first, r.run)
	r.mu.Unlock()
	return r
}

func (r *repeater) run() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.f()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.t = r.s.AfterFunc(r.interval, r.run)
	}
}

func (r *repeater) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.stopped = true
	if r.t != nil {
		r.t.Stop()
	}
	return true
}
