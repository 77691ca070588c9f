package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatEmpty(t *testing.T) {
	out, err := Source("", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestFormatIdempotent(t *testing.T) {
	src := "if x ~= nil then\n  if x.y ~= nil then\n    f(x.y)\n  end\nend\n"
	out1, err := Source(src, "chunk", DefaultOptions())
	require.NoError(t, err)
	out2, err := Source(out1, "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}

func TestFormatLocalAssign(t *testing.T) {
	out, err := Source("local x = 1", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "local x = 1\n", out)
}

func TestFormatNestedIfExactOutput(t *testing.T) {
	out, err := Source("if x~=nil then if x.y~=nil then f(x.y) end end", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "if x ~= nil then\n  if x.y ~= nil then\n    f(x.y)\n  end\nend\n", out)

	again, err := Source(out, "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestFormatPreservesComments(t *testing.T) {
	out, err := Source("-- header\nlocal x = 1", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "-- header\nlocal x = 1\n", out)
}

func TestFormatPreservesBlankLineGap(t *testing.T) {
	out, err := Source("local a = 1\n\nlocal b = 2", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "local a = 1\n\nlocal b = 2\n", out)
}

func TestFormatMethodDefinition(t *testing.T) {
	out, err := Source("function t:m(a) return a end", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "function t:m(a)\n  return a\nend\n", out)
}

func TestFormatQuotePreserved(t *testing.T) {
	out, err := Source("local s = 'single'", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "local s = 'single'\n", out)
}

func TestFormatInterpString(t *testing.T) {
	out, err := Source("local s = `hi $name and $(1 + 2)`", "chunk", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "local s = `hi $name and $(1 + 2)`\n", out)
}
