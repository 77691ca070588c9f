package worker

import (
	"fmt"
	"time"

	"testing"

	"github.com/lus-lang/lus/wire"
	"github.com/stretchr/testify/require"
)

func TestSelectiveReceiveOrdersByReadiness(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown()

	w1 := p.Create("w1.lus", nil, func(w *Worker) error {
		time.Sleep(10 * time.Millisecond)
		w.Message(wire.Str("a"), nil)
		return nil
	})
	w2 := p.Create("w2.lus", nil, func(w *Worker) error {
		time.Sleep(2 * time.Millisecond)
		w.Message(wire.Str("b"), nil)
		return nil
	})

	idx, v, err := p.Receive(w1, w2)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.True(t, wire.Equal(wire.Str("b"), v))

	idx, v, err = p.Receive(w1, w2)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.True(t, wire.Equal(wire.Str("a"), v))
}

func TestWorkerPeekReceivesPrequeuedArgs(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	done := make(chan wire.Value, 1)
	w := p.Create("echo.lus", []wire.Value{wire.Int(7)}, func(w *Worker) error {
		v, ok := w.Peek()
		require.True(t, ok)
		done <- v
		return nil
	})
	_ = w

	select {
	case v := <-done:
		require.True(t, wire.Equal(wire.Int(7), v))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for worker")
	}
}

func TestWorkerErrorSurfacedToStatus(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	w := p.Create("fail.lus", nil, func(w *Worker) error {
		return require.AnError
	})
	for i := 0; i < 100 && w.Status() == StatusRunning; i++ {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, StatusError, w.Status())
	require.NotEmpty(t, w.Err())
}

func TestReceiveReRaisesWorkerError(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	w := p.Create("boom.lus", nil, func(w *Worker) error {
		return fmt.Errorf("load failed")
	})

	_, _, err := p.Receive(w)
	require.Error(t, err)
	require.Contains(t, err.Error(), "load failed")

	// the error raises once; afterwards the worker is just dead
	_, _, err = p.Receive(w)
	require.ErrorIs(t, err, ErrAllDead)
}

func TestReceiveAllDead(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	w := p.Create("quick.lus", nil, func(w *Worker) error { return nil })
	for i := 0; i < 200 && w.Status() == StatusRunning; i++ {
		time.Sleep(time.Millisecond)
	}
	_, _, err := p.Receive(w)
	require.ErrorIs(t, err, ErrAllDead)
}

func TestMessagesFIFOPerWorker(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	w := p.Create("seq.lus", nil, func(w *Worker) error {
		for i := int64(1); i <= 3; i++ {
			w.Message(wire.Int(i), nil)
		}
		return nil
	})
	for want := int64(1); want <= 3; want++ {
		_, v, err := p.Receive(w)
		require.NoError(t, err)
		require.True(t, wire.Equal(wire.Int(want), v))
	}
}
