package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepBeforeIOInSameTick(t *testing.T) {
	s := New(func(waits []FDWait, timeout time.Duration) ([]int, error) {
		var ready []int
		for _, w := range waits {
			ready = append(ready, w.FD)
		}
		return ready, nil
	}, nil)

	ioID := s.Register(ReasonIO, 5, EventRead, time.Time{})
	sleepID := s.Register(ReasonSleep, 0, 0, time.Now().Add(-time.Millisecond))

	timeout := 0.0
	ready := s.Poll(&timeout)
	require.Len(t, ready, 2)
	require.Equal(t, sleepID, ready[0].ID)
	require.Equal(t, ioID, ready[1].ID)
	require.Equal(t, 0, s.Pending())
}

func TestCancelRemovesEntry(t *testing.T) {
	s := New(nil, nil)
	id := s.Register(ReasonSleep, 0, 0, time.Now().Add(time.Hour))
	require.Equal(t, 1, s.Pending())
	s.Cancel(id)
	require.Equal(t, 0, s.Pending())
}

func TestErrorSurfacedOnNextPoll(t *testing.T) {
	s := New(func(waits []FDWait, timeout time.Duration) ([]int, error) { return nil, nil }, nil)
	id := s.Register(ReasonSleep, 0, 0, time.Now().Add(-time.Millisecond))
	s.ReportError(id, errBoom)
	timeout := 0.0
	ready := s.Poll(&timeout)
	require.Len(t, ready, 1)
	require.Equal(t, StatusError, ready[0].Status)
	require.Equal(t, errBoom, ready[0].Err)
}

var errBoom = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func TestDetachedSleepCompletes(t *testing.T) {
	s := New(nil, nil)
	var order []string
	d, st := s.Detach(func(y *Yielder) error {
		order = append(order, "start")
		y.Sleep(time.Millisecond)
		order = append(order, "resumed")
		return nil
	})
	require.Equal(t, StatusYielded, st)
	require.Equal(t, []string{"start"}, order)
	require.Equal(t, 1, s.Pending())

	timeout := -1.0
	ready := s.Poll(&timeout)
	require.Len(t, ready, 1)
	require.Equal(t, StatusCompleted, ready[0].Status)
	require.Equal(t, []string{"start", "resumed"}, order)
	require.Equal(t, StatusCompleted, d.Status())
	require.Equal(t, 0, s.Pending())
}

func TestDetachedErrorSurfacesOnPoll(t *testing.T) {
	s := New(nil, nil)
	d, st := s.Detach(func(y *Yielder) error {
		y.Sleep(time.Millisecond)
		return errBoom
	})
	require.Equal(t, StatusYielded, st)

	timeout := -1.0
	ready := s.Poll(&timeout)
	require.Len(t, ready, 1)
	require.Equal(t, StatusError, ready[0].Status)
	require.Equal(t, errBoom, ready[0].Err)
	require.Equal(t, errBoom, d.Err())
}

func TestDetachedReYieldStaysPending(t *testing.T) {
	s := New(nil, nil)
	_, st := s.Detach(func(y *Yielder) error {
		y.Sleep(time.Millisecond)
		y.Sleep(time.Millisecond)
		return nil
	})
	require.Equal(t, StatusYielded, st)

	timeout := -1.0
	ready := s.Poll(&timeout)
	require.Len(t, ready, 1)
	require.Equal(t, StatusYielded, ready[0].Status)
	require.Equal(t, 1, s.Pending())

	ready = s.Poll(&timeout)
	require.Len(t, ready, 1)
	require.Equal(t, StatusCompleted, ready[0].Status)
	require.Equal(t, 0, s.Pending())
}

func TestDetachedCompletesWithoutYield(t *testing.T) {
	s := New(nil, nil)
	_, st := s.Detach(func(y *Yielder) error { return nil })
	require.Equal(t, StatusCompleted, st)
	require.Equal(t, 0, s.Pending())
}
