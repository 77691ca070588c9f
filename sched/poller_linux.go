//go:build linux

package sched

import (
	"time"

	"golang.org/x/sys/unix"
)

// EpollPoller is a PollFunc backed by Linux epoll. The epoll set is
// rebuilt per call; registrations are short-lived and few, so the
// rebuild is cheaper than tracking incremental adds/removes.
type EpollPoller struct {
	epfd int
}

// NewEpollPoller creates an epoll instance. Returns an error if epoll
// creation fails (e.g. fd exhaustion).
func NewEpollPoller() (*EpollPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &EpollPoller{epfd: fd}, nil
}

// Close releases the underlying epoll fd.
func (p *EpollPoller) Close() error { return unix.Close(p.epfd) }

// Poll implements PollFunc: registers waits, blocks for up to timeout,
// and returns the fds that became ready.
func (p *EpollPoller) Poll(waits []FDWait, timeout time.Duration) ([]int, error) {
	for _, w := range waits {
		var events uint32
		if w.Mask&EventRead != 0 {
			events |= unix.EPOLLIN
		}
		if w.Mask&EventWrite != 0 {
			events |= unix.EPOLLOUT
		}
		ev := unix.EpollEvent{Events: events, Fd: int32(w.FD)}
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, w.FD, &ev)
	}
	defer func() {
		for _, w := range waits {
			_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, w.FD, nil)
		}
	}()

	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}
	events := make([]unix.EpollEvent, len(waits)+1)
	n, err := unix.EpollWait(p.epfd, events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ready = append(ready, int(events[i].Fd))
	}
	return ready, nil
}
