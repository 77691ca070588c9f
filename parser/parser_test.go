package parser

import (
	"testing"

	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/bytecode"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) (*bytecode.Chunk, *ast.Container) {
	t.Helper()
	chunk := bytecode.NewChunk()
	container, err := Parse(src, chunk, Options{ChunkName: "test", CaptureAST: true, IncludeComments: true})
	require.NoError(t, err)
	require.True(t, container.OK(), "parse errors: %+v", container.Errors)
	return chunk, container
}

func TestParseEmptyChunk(t *testing.T) {
	_, container := parseOK(t, "")
	require.Equal(t, 0, len(container.Errors))
}

func TestParseLocalAssignment(t *testing.T) {
	_, container := parseOK(t, "local x = 1")
	require.NotNil(t, container.Root)
}

func TestParseOptionalChain(t *testing.T) {
	_, container := parseOK(t, "local r = a?.b?.c")
	require.NotNil(t, container.Root)
}

func TestParseFromDestructure(t *testing.T) {
	_, container := parseOK(t, "local x, y from t")
	require.NotNil(t, container.Root)
}

func TestParseCatchWithHandler(t *testing.T) {
	_, container := parseOK(t, `local ok, v = catch[function(e) return e end] (f())`)
	require.NotNil(t, container.Root)
}

func TestParseIfAssignCondition(t *testing.T) {
	_, container := parseOK(t, `if x = f() then print(x) end`)
	require.NotNil(t, container.Root)
}

func TestParseLocalGroup(t *testing.T) {
	_, container := parseOK(t, `local g <group> = { x = 1, y = 2 } local z = g.x`)
	require.NotNil(t, container.Root)
}

func TestParseEnum(t *testing.T) {
	_, container := parseOK(t, `local Color = enum Red, Green, Blue end`)
	require.NotNil(t, container.Root)
}

func TestParseSlice(t *testing.T) {
	_, container := parseOK(t, `local s = t[1, 3]`)
	require.NotNil(t, container.Root)
}

func TestParseInterpString(t *testing.T) {
	_, container := parseOK(t, "local s = `hello $name`")
	require.NotNil(t, container.Root)
}

func TestRecoverModeDoesNotPanic(t *testing.T) {
	chunk := bytecode.NewChunk()
	container, err := Parse("local x = \nend end", chunk, Options{Recover: true, CaptureAST: true})
	require.NoError(t, err)
	require.NotNil(t, container)
}

func TestParseGroupOverwrite(t *testing.T) {
	_, container := parseOK(t, `local g <group> = { x = 1, y = 2 }
g = { x = 3 }`)
	require.NotNil(t, container.Root)
}

func TestParseGroupOverwriteUnknownFieldFails(t *testing.T) {
	chunk := bytecode.NewChunk()
	_, err := Parse("local g <group> = { x = 1 }\ng = { z = 3 }", chunk, Options{CaptureAST: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not part of group")
}

func TestParseConstAssignmentFails(t *testing.T) {
	chunk := bytecode.NewChunk()
	_, err := Parse("local x <const> = 1\nx = 2", chunk, Options{CaptureAST: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "const")
}

func TestParseGotoWithoutLabelFails(t *testing.T) {
	chunk := bytecode.NewChunk()
	_, err := Parse("goto missing", chunk, Options{CaptureAST: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no visible label")
}

func TestParseEmptySlice(t *testing.T) {
	_, container := parseOK(t, `local s = t[,]`)
	require.NotNil(t, container.Root)
}

func TestParseBreakOutsideLoopFails(t *testing.T) {
	chunk := bytecode.NewChunk()
	_, err := Parse("break", chunk, Options{CaptureAST: true})
	require.Error(t, err)
}

func TestParseSubgroup(t *testing.T) {
	_, container := parseOK(t, `local g <group> = { pos = { x = 1, y = 2 }, name = "p" }
local a = g.pos.x
g.pos.y = 5
g = { pos = { x = 9 } }`)
	require.NotNil(t, container.Root)
}
