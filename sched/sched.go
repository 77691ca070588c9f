// Package sched implements the detached-coroutine I/O scheduler: a
// single-threaded cooperative layer multiplexing fd/timer readiness
// into resumes. Go has no public coroutine primitive, so a detached
// coroutine is modeled as a goroutine blocked on a rendezvous channel
// at each yield point.
package sched

import (
	"sort"
	"sync"
	"time"

	"github.com/lus-lang/lus/internal/metrics"
	"github.com/lus-lang/lus/internal/rtlog"
)

// Status is the coroutine.detach status enum.
type Status int

const (
	StatusPending   Status = 1
	StatusCompleted Status = 2
	StatusYielded   Status = 3
	StatusError     Status = 4
)

// Reason is why a detached coroutine yielded.
type Reason int

const (
	ReasonIO Reason = iota
	ReasonSleep
)

// EventMask selects which fd readiness a coroutine is waiting for.
type EventMask int

const (
	EventRead EventMask = 1 << iota
	EventWrite
)

// entry is one suspended detached coroutine.
type entry struct {
	id       int
	reason   Reason
	fd       int
	mask     EventMask
	deadline time.Time
	seq      int

	// d is set for entries registered through Detach; Poll resumes the
	// parked goroutine through it. Raw Register entries leave it nil.
	d *Detached
}

// PollFunc abstracts the host's readiness probe (e.g. an epoll/kqueue
// wrapper) so Scheduler stays portable; the default implementation
// below is a plain timer-driven select with no real fd multiplexing,
// sufficient where the caller only needs sleep semantics. Hosts that
// need real fd polling supply their own PollFunc.
type PollFunc func(waits []FDWait, timeout time.Duration) (ready []int, err error)

// FDWait is one registered fd + mask a PollFunc must check.
type FDWait struct {
	FD   int
	Mask EventMask
}

// Scheduler tracks every suspended detached coroutine and multiplexes
// readiness into resumes. Not safe for concurrent use from multiple
// goroutines: all mutation happens on the host goroutine that owns the
// VM.
type Scheduler struct {
	mu       sync.Mutex
	entries  []*entry
	nextID   int
	seq      int
	poll     PollFunc
	metrics  *metrics.Registry
	errors   map[int]error
}

// New creates a Scheduler. poll may be nil to use a sleep-only fallback
// poller (no fd readiness, only deadlines) suitable for hosts without a
// fd multiplexer wired in.
func New(poll PollFunc, reg *metrics.Registry) *Scheduler {
	if poll == nil {
		poll = func(waits []FDWait, timeout time.Duration) ([]int, error) {
			time.Sleep(timeout)
			return nil, nil
		}
	}
	return &Scheduler{poll: poll, metrics: reg, errors: map[int]error{}}
}

// Register adds a newly suspended coroutine, returning its entry id.
func (s *Scheduler) Register(reason Reason, fd int, mask EventMask, deadline time.Time) int {
	return s.register(reason, fd, mask, deadline, nil)
}

func (s *Scheduler) register(reason Reason, fd int, mask EventMask, deadline time.Time, d *Detached) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.seq++
	e := &entry{id: s.nextID, reason: reason, fd: fd, mask: mask, deadline: deadline,
		seq: s.seq, d: d}
	s.entries = append(s.entries, e)
	if s.metrics != nil {
		s.metrics.PendingCoroutines.Set(float64(len(s.entries)))
	}
	return e.id
}

// Cancel removes a pending entry.
func (s *Scheduler) Cancel(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	if s.metrics != nil {
		s.metrics.PendingCoroutines.Set(float64(len(s.entries)))
	}
}

// Pending returns the count of suspended coroutines.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ReportError records a background coroutine failure to be surfaced on
// the next Poll.
func (s *Scheduler) ReportError(id int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[id] = err
}

// Ready describes one coroutine that Poll determined is ready to
// resume.
type Ready struct {
	ID     int
	Status Status
	Err    error
}

// Poll computes the effective timeout from the earliest sleep deadline,
// probes fd readiness, and returns every coroutine ready to resume.
// Sleeps are processed before fd wakeups within the same tick, and no
// entry is returned twice in one call. Timeout semantics: nil ->
// non-blocking, negative -> block indefinitely, >=0 -> upper bound in
// seconds.
func (s *Scheduler) Poll(timeout *float64) []Ready {
	if s.metrics != nil {
		s.metrics.SchedulerPolls.Inc()
	}

	s.mu.Lock()
	now := time.Now()

	var sleepEntries, ioEntries []*entry
	var waits []FDWait
	earliest := time.Time{}
	for _, e := range s.entries {
		if e.reason == ReasonSleep {
			sleepEntries = append(sleepEntries, e)
			if earliest.IsZero() || e.deadline.Before(earliest) {
				earliest = e.deadline
			}
		} else {
			ioEntries = append(ioEntries, e)
			waits = append(waits, FDWait{FD: e.fd, Mask: e.mask})
		}
	}
	s.mu.Unlock()

	waitDur := resolveTimeout(timeout, earliest, now)
	readyFDs, _ := s.poll(waits, waitDur)
	readyFDSet := map[int]bool{}
	for _, fd := range readyFDs {
		readyFDSet[fd] = true
	}

	now = time.Now()
	s.mu.Lock()

	// sleeps before fds, in FIFO (registration) order, within this tick.
	sorted := append([]*entry{}, s.entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].seq < sorted[j].seq })

	var toResume []*entry
	resumed := map[int]bool{}
	for _, e := range sorted {
		if e.reason == ReasonSleep && !e.deadline.After(now) {
			toResume = append(toResume, e)
			resumed[e.id] = true
		}
	}
	for _, e := range sorted {
		if !resumed[e.id] && e.reason == ReasonIO && readyFDSet[e.fd] {
			toResume = append(toResume, e)
			resumed[e.id] = true
		}
	}
	var remaining []*entry
	for _, e := range sorted {
		if !resumed[e.id] {
			remaining = append(remaining, e)
		}
	}
	s.entries = remaining
	if s.metrics != nil {
		s.metrics.PendingCoroutines.Set(float64(len(s.entries)))
	}
	s.mu.Unlock()

	// resume outside the lock: a resumed coroutine may immediately
	// re-register a new entry
	var ready []Ready
	for _, e := range toResume {
		ready = append(ready, s.finish(e))
	}
	return ready
}

func (s *Scheduler) finish(e *entry) Ready {
	rtlog.For("sched").Debug().Int("id", e.id).Msg("resuming detached coroutine")
	if e.d != nil {
		st, err := e.d.runUntilParked()
		return Ready{ID: e.id, Status: st, Err: err}
	}
	st := StatusCompleted
	var err error
	s.mu.Lock()
	if perr, ok := s.errors[e.id]; ok {
		st = StatusError
		err = perr
		delete(s.errors, e.id)
	}
	s.mu.Unlock()
	return Ready{ID: e.id, Status: st, Err: err}
}

func resolveTimeout(timeout *float64, earliestDeadline time.Time, now time.Time) time.Duration {
	if timeout == nil {
		return 0
	}
	if *timeout < 0 {
		if earliestDeadline.IsZero() {
			return 24 * time.Hour
		}
		return maxDuration(0, earliestDeadline.Sub(now))
	}
	d := time.Duration(*timeout * float64(time.Second))
	if !earliestDeadline.IsZero() {
		if sd := earliestDeadline.Sub(now); sd < d {
			d = sd
		}
	}
	return maxDuration(0, d)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
