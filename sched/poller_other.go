//go:build !linux

package sched

import "time"

// EpollPoller is a stub outside Linux: like Scheduler's default poller,
// Poll only sleeps for the timeout and reports no ready fds.
type EpollPoller struct{}

func NewEpollPoller() (*EpollPoller, error) { return &EpollPoller{}, nil }

func (p *EpollPoller) Close() error { return nil }

func (p *EpollPoller) Poll(waits []FDWait, timeout time.Duration) ([]int, error) {
	time.Sleep(timeout)
	return nil, nil
}
