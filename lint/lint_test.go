package lint

import (
	"testing"

	"github.com/lus-lang/lus/bytecode"
	"github.com/lus-lang/lus/parser"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *CollectSink {
	t.Helper()
	container, err := parser.Parse(src, bytecode.NewChunk(), parser.Options{CaptureAST: true})
	require.NoError(t, err)
	sink := &CollectSink{}
	Lint(container, sink)
	return sink
}

func TestLintFromDestructureCandidate(t *testing.T) {
	sink := parse(t, "local a, b, c = t.a, t.b, t.c")
	require.Len(t, sink.Warnings, 1)
	require.Equal(t, RuleUseFromDestructure, sink.Warnings[0].Rule)
	require.Contains(t, sink.Warnings[0].Message, "use 'from' destructuring")
	require.Contains(t, sink.Warnings[0].Message, "t")
}

func TestLintDeprecatedPcall(t *testing.T) {
	sink := parse(t, "local ok = pcall(f)")
	found := false
	for _, w := range sink.Warnings {
		if w.Rule == RuleDeprecatedPcall {
			found = true
		}
	}
	require.True(t, found)
}

func TestLintNoWarningsOnPlainCode(t *testing.T) {
	sink := parse(t, "local x = 1\nlocal y = x + 1")
	require.Empty(t, sink.Warnings)
}

func TestLintSealThenPledge(t *testing.T) {
	sink := parse(t, "pledge(\"seal\")\npledge(\"fs\")")
	require.Len(t, sink.Warnings, 1)
	require.Equal(t, RuleSealAfterSeal, sink.Warnings[0].Rule)
	require.Equal(t, 2, sink.Warnings[0].Line)
}

func TestLintMoveableLocal(t *testing.T) {
	sink := parse(t, "local x = f()\nif x then g() end")
	found := false
	for _, w := range sink.Warnings {
		if w.Rule == RuleMoveableLocal {
			found = true
		}
	}
	require.True(t, found)
}

func TestLintMoveableLocalNotWhenUsedAfter(t *testing.T) {
	sink := parse(t, "local x = f()\nif x then g() end\nh(x)")
	for _, w := range sink.Warnings {
		require.NotEqual(t, RuleMoveableLocal, w.Rule)
	}
}

func TestLintNestedNilChecks(t *testing.T) {
	sink := parse(t, "if x ~= nil then if x.y ~= nil then f(x.y) end end")
	found := false
	for _, w := range sink.Warnings {
		if w.Rule == RuleUseOptionalChain {
			found = true
		}
	}
	require.True(t, found)
}
