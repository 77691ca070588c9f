package sched

import (
	"sync"
	"time"
)

// Detached is one detached coroutine: a goroutine that parks itself on
// a rendezvous channel at every yield point. The scheduler and the
// goroutine strictly alternate; exactly one of them runs at a time, so
// the cooperative single-threaded model holds even though the
// suspended computation lives on its own goroutine.
type Detached struct {
	s      *Scheduler
	resume chan struct{}
	parked chan struct{}

	mu     sync.Mutex
	status Status
	err    error
}

// Yielder is the handle a detached function suspends through. It is
// only valid inside the function passed to Detach.
type Yielder struct {
	d *Detached
}

// Detach starts fn as a detached coroutine and runs it until its first
// yield or completion, returning the handle and its status after that
// first slice (pending work yields StatusYielded; a function that never
// suspends returns StatusCompleted or StatusError immediately).
func (s *Scheduler) Detach(fn func(*Yielder) error) (*Detached, Status) {
	d := &Detached{
		s:      s,
		resume: make(chan struct{}),
		parked: make(chan struct{}),
		status: StatusPending,
	}
	go func() {
		err := fn(&Yielder{d: d})
		d.mu.Lock()
		if err != nil {
			d.status = StatusError
			d.err = err
		} else {
			d.status = StatusCompleted
		}
		d.mu.Unlock()
		d.parked <- struct{}{}
	}()
	<-d.parked
	return d, d.Status()
}

// Status returns the coroutine's current lifecycle state.
func (d *Detached) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Err returns the error a StatusError coroutine failed with.
func (d *Detached) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// runUntilParked hands control back to the goroutine and blocks until
// it suspends again or finishes. Called by Poll for each ready entry.
func (d *Detached) runUntilParked() (Status, error) {
	d.resume <- struct{}{}
	<-d.parked
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, d.err
}

// park registers the new suspension, signals whoever is driving this
// coroutine, and blocks until resumed.
func (d *Detached) park(reason Reason, fd int, mask EventMask, deadline time.Time) {
	d.mu.Lock()
	d.status = StatusYielded
	d.mu.Unlock()
	d.s.register(reason, fd, mask, deadline, d)
	d.parked <- struct{}{}
	<-d.resume
	d.mu.Lock()
	d.status = StatusPending
	d.mu.Unlock()
}

// AwaitIO suspends until fd reports readiness matching mask.
func (y *Yielder) AwaitIO(fd int, mask EventMask) {
	y.d.park(ReasonIO, fd, mask, time.Time{})
}

// Sleep suspends until the given duration has elapsed.
func (y *Yielder) Sleep(dur time.Duration) {
	y.d.park(ReasonSleep, 0, 0, time.Now().Add(dur))
}
