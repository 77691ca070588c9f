package arena_test

import (
	"testing"

	"github.com/lus-lang/lus/arena"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocAlignment(t *testing.T) {
	a := arena.New(64)
	p1 := a.Alloc(3)
	p2 := a.Alloc(3)
	require.Len(t, p1, 3)
	require.Len(t, p2, 3)
	require.NotEqual(t, &p1[0], &p2[0])
}

func TestArenaOversizeBlock(t *testing.T) {
	a := arena.New(16)
	big := a.Alloc(1024)
	require.Len(t, big, 1024)
	// a normal small alloc afterwards must still succeed via a fresh
	// regular block, not silently share the oversize block.
	small := a.Alloc(4)
	require.Len(t, small, 4)
}

func TestArenaResetRetainsBlocks(t *testing.T) {
	a := arena.New(64)
	p := a.Alloc(8)
	for i := range p {
		p[i] = 0xAB
	}
	allocated, count := a.Stats()
	require.Equal(t, 8, allocated)
	require.Equal(t, 1, count)

	a.Reset()
	allocated, count = a.Stats()
	require.Zero(t, allocated)
	require.Zero(t, count)

	q := a.Alloc(8)
	require.Len(t, q, 8)
}

func TestArenaFreeClearsChain(t *testing.T) {
	a := arena.New(64)
	a.Alloc(8)
	a.Free()
	allocated, count := a.Stats()
	require.Zero(t, allocated)
	require.Zero(t, count)
}

func TestStandaloneArenaCrossGoroutineFree(t *testing.T) {
	sa := arena.NewStandalone(64)
	p := sa.Alloc(16)
	copy(p, []byte("hello world!!!!!"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		// ownership passes to this goroutine, which starts after the
		// writes above; it only reads, then frees.
		require.Equal(t, "hello world!!!!!", string(p))
		sa.Free()
	}()
	<-done
}
