// Package worker implements the M:N worker pool: N logical Workers
// multiplexed onto M OS threads (here, goroutines dispatched onto a
// bounded pool), each with its own
// inbox/outbox guarded by a mutex+cond, plus a select-style Receive
// across several workers using a shared-context/ready-flag protocol
// that avoids the classic lost-wakeup race.
package worker

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/lus-lang/lus/arena"
	"github.com/lus-lang/lus/internal/metrics"
	"github.com/lus-lang/lus/internal/rtlog"
	"github.com/lus-lang/lus/wire"
)

// Status is a worker's lifecycle state. String returns the
// script-visible names ("running"/"dead"/"error").
type Status int

const (
	StatusRunning Status = iota
	StatusBlocked
	StatusDead
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusRunning, StatusBlocked:
		return "running"
	case StatusDead:
		return "dead"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// message is one queued value plus the arena it was serialized into.
// On pop, arena ownership transfers to the consumer, which frees it
// after deserializing.
type message struct {
	a    *arena.StandaloneArena
	data []byte
}

// ReceiveContext is the shared rendezvous point for a selective
// receive. Producers signal it, with Ready set before the signal under
// the context's own mutex, in addition to signaling the per-worker
// outbox condition.
type ReceiveContext struct {
	mu    sync.Mutex
	cond  *sync.Cond
	Ready bool
}

func newReceiveContext() *ReceiveContext {
	rc := &ReceiveContext{}
	rc.cond = sync.NewCond(&rc.mu)
	return rc
}

// Worker is one logical script instance.
type Worker struct {
	ScriptPath string
	Args       []wire.Value

	mu         sync.Mutex
	outboxCond *sync.Cond
	inboxCond  *sync.Cond
	inbox      []message
	outbox     []message
	status     Status
	errMsg     string
	errRaised  bool
	recvCtx    *ReceiveContext
}

func newWorker(script string, args []wire.Value) *Worker {
	w := &Worker{ScriptPath: script, Args: args, status: StatusRunning}
	w.inboxCond = sync.NewCond(&w.mu)
	w.outboxCond = sync.NewCond(&w.mu)
	return w
}

// Status returns the worker's current status under lock.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Err returns the stored error message, if the worker ended in error.
func (w *Worker) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

// Message pushes v onto the worker's outbox, signaling both the
// per-worker outbox condition and, if registered, the shared receive
// context. Lock order: snapshot recvCtx while holding the worker mutex,
// release it, then lock the context. Never hold both.
func (w *Worker) Message(v wire.Value, reg *metrics.Registry) {
	a := arena.NewStandalone(0)
	wr := wire.NewWriter(a)
	_ = wire.Encode(wr, v)

	w.mu.Lock()
	w.outbox = append(w.outbox, message{a: a, data: wr.Bytes()})
	rc := w.recvCtx
	w.mu.Unlock()

	w.outboxCond.Broadcast()
	if reg != nil {
		reg.WorkerMessages.Inc()
	}
	if rc != nil {
		rc.mu.Lock()
		rc.Ready = true
		rc.cond.Signal()
		rc.mu.Unlock()
	}
}

// Peek blocks until the inbox has a message, then pops and deserializes
// it. The worker reads as "running" to its owner while blocked here.
func (w *Worker) Peek() (wire.Value, bool) {
	w.mu.Lock()
	for len(w.inbox) == 0 && w.status != StatusDead {
		w.status = StatusBlocked
		w.inboxCond.Wait()
	}
	if w.status == StatusBlocked {
		w.status = StatusRunning
	}
	if len(w.inbox) == 0 {
		w.mu.Unlock()
		return wire.Nil(), false
	}
	m := w.inbox[0]
	w.inbox = w.inbox[1:]
	w.mu.Unlock()

	v, _ := wire.Decode(wire.NewReader(m.data))
	m.a.Free()
	return v, true
}

// send serializes v into a fresh standalone arena and pushes it onto
// the worker's inbox.
func (w *Worker) send(v wire.Value) {
	a := arena.NewStandalone(0)
	wr := wire.NewWriter(a)
	_ = wire.Encode(wr, v)
	w.mu.Lock()
	w.inbox = append(w.inbox, message{a: a, data: wr.Bytes()})
	w.mu.Unlock()
	w.inboxCond.Broadcast()
}

func (w *Worker) popOutboxLocked() (message, bool) {
	if len(w.outbox) == 0 {
		return message{}, false
	}
	m := w.outbox[0]
	w.outbox = w.outbox[1:]
	return m, true
}

func (w *Worker) finish(err error) {
	w.mu.Lock()
	if err != nil {
		w.status = StatusError
		w.errMsg = err.Error()
	} else {
		w.status = StatusDead
	}
	rc := w.recvCtx
	w.mu.Unlock()
	w.inboxCond.Broadcast()
	w.outboxCond.Broadcast()
	// a selective receive may be parked on the shared context waiting
	// for this worker; wake it so it can observe the terminal status
	if rc != nil {
		rc.mu.Lock()
		rc.Ready = true
		rc.cond.Signal()
		rc.mu.Unlock()
	}
}

// Script is the callable a Pool dispatches a Worker to run, with access
// to this Worker via Peek/Message. The pool calls it directly; there is
// no separate setup callback and no library bindings are replicated.
type Script func(w *Worker) error

// Pool is the fixed M-thread pool servicing a runnable queue of worker
// VMs. Here, "OS threads" are a bounded set of goroutines; Go's
// scheduler already multiplexes goroutines onto OS threads, so M only
// bounds concurrency, not physical threads.
type Pool struct {
	mu        sync.Mutex
	queueCond *sync.Cond
	queue     []*dispatch
	shutdown  bool
	m         int
	metrics   *metrics.Registry
}

type dispatch struct {
	w      *Worker
	script Script
}

// New creates a Pool with m worker threads; m <= 0 defaults to
// runtime.NumCPU() clamped to [1, 32].
func New(m int, reg *metrics.Registry) *Pool {
	if m <= 0 {
		m = runtime.NumCPU()
		if m < 1 {
			m = 1
		}
		if m > 32 {
			m = 32
		}
	}
	p := &Pool{m: m, metrics: reg}
	p.queueCond = sync.NewCond(&p.mu)
	for i := 0; i < m; i++ {
		go p.threadLoop()
	}
	return p
}

func (p *Pool) threadLoop() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.shutdown {
			p.queueCond.Wait()
		}
		if p.shutdown && len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		d := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if p.metrics != nil {
			p.metrics.ActiveWorkers.Inc()
		}
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker panic: %v", r)
				}
			}()
			return d.script(d.w)
		}()
		if p.metrics != nil {
			p.metrics.ActiveWorkers.Dec()
		}
		if err != nil {
			rtlog.For("worker").Error().Str("script", d.w.ScriptPath).Err(err).Msg("worker failed")
		}
		d.w.finish(err)
	}
}

// Create starts a new logical Worker running script with args
// pre-queued into its inbox, and links it into the runnable queue.
func (p *Pool) Create(scriptPath string, args []wire.Value, script Script) *Worker {
	w := newWorker(scriptPath, args)
	for _, a := range args {
		w.send(a)
	}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		w.finish(fmt.Errorf("worker pool is shut down"))
		return w
	}
	p.queue = append(p.queue, &dispatch{w: w, script: script})
	if p.metrics != nil {
		p.metrics.RunnableQueue.Set(float64(len(p.queue)))
	}
	p.mu.Unlock()
	p.queueCond.Signal()
	return w
}

// Send pushes v onto w's inbox.
func (p *Pool) Send(w *Worker, v wire.Value) {
	w.send(v)
}

// ErrAllDead is returned by Receive when every listed worker has
// terminated and no messages remain.
var ErrAllDead = errors.New("worker: all workers terminated")

// Receive is the selective receive: it waits for the first available
// outbox message among workers, returning it paired with the index of
// the worker it came from. Workers are scanned in argument order on
// each wake so earlier workers are preferred when multiple became ready
// concurrently, giving FIFO-per-worker delivery while keeping the scan
// itself deterministic. A worker that terminated in error re-raises
// that error to the first Receive that observes it.
func (p *Pool) Receive(workers ...*Worker) (idx int, v wire.Value, err error) {
	rc := newReceiveContext()
	for _, w := range workers {
		w.mu.Lock()
		w.recvCtx = rc
		w.mu.Unlock()
	}
	defer func() {
		for _, w := range workers {
			w.mu.Lock()
			if w.recvCtx == rc {
				w.recvCtx = nil
			}
			w.mu.Unlock()
		}
	}()

	for {
		anyAlive := false
		for i, w := range workers {
			w.mu.Lock()
			if m, has := w.popOutboxLocked(); has {
				w.mu.Unlock()
				val, _ := wire.Decode(wire.NewReader(m.data))
				m.a.Free()
				return i, val, nil
			}
			if w.status == StatusError && !w.errRaised {
				w.errRaised = true
				msg := w.errMsg
				path := w.ScriptPath
				w.mu.Unlock()
				return i, wire.Nil(), fmt.Errorf("worker %s: %s", path, msg)
			}
			if w.status == StatusRunning || w.status == StatusBlocked {
				anyAlive = true
			}
			w.mu.Unlock()
		}
		if !anyAlive {
			return -1, wire.Nil(), ErrAllDead
		}

		rc.mu.Lock()
		if !rc.Ready {
			rc.cond.Wait()
		}
		rc.Ready = false
		rc.mu.Unlock()
	}
}

// Shutdown sets the shutdown flag and wakes every thread loop; it does not wait for in-flight scripts to finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
	p.queueCond.Broadcast()
}
