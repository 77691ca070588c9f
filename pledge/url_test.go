package pledge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLGranterHostSeparator(t *testing.T) {
	r := New(nil)
	r.RegisterGranter("net", URLGranter())
	require.NoError(t, r.Pledge("net", "", "https://*.example.com"))

	require.True(t, r.Has("net", "", "https://api.example.com/v1"))
	require.False(t, r.Has("net", "", "https://evil-example.com/"))
	require.False(t, r.Has("net", "", "http://api.example.com/"))
}

func TestURLGranterPathAware(t *testing.T) {
	r := New(nil)
	r.RegisterGranter("net", URLGranter())
	require.NoError(t, r.Pledge("net", "", "api.example.com/v1/*"))

	require.True(t, r.Has("net", "", "https://api.example.com/v1/users"))
	require.False(t, r.Has("net", "", "https://api.example.com/v2/users"))
	// any scheme is accepted when the pattern names none
	require.True(t, r.Has("net", "", "http://api.example.com/v1/users"))
}
