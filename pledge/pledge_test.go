package pledge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobGrantMatches(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Pledge("net", "", "example.*"))
	require.True(t, r.Has("net", "", "example.com"))
	require.False(t, r.Has("net", "", "other.com"))
}

func TestSealFreezesFuturePledges(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Pledge("net", "", "a.com"))
	r.Seal()
	require.NoError(t, r.Pledge("net", "", "b.com")) // no-op, not an error
	require.True(t, r.Has("net", "", "a.com"))
	require.False(t, r.Has("net", "", "b.com"))
}

func TestRejectDenies(t *testing.T) {
	r := New(nil)
	r.Reject("env")
	require.False(t, r.Has("env", "", "PATH"))
	require.Error(t, r.Pledge("env", "", "PATH"))
}

func TestFSGranterReadWriteSeparation(t *testing.T) {
	r := New(nil)
	r.RegisterGranter("fs", FSGranter())
	require.NoError(t, r.Pledge("fs", "read", "/tmp/*"))
	require.True(t, r.Has("fs", "read", "/tmp/file.txt"))
	require.False(t, r.Has("fs", "write", "/tmp/file.txt"))
}
