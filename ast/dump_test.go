package ast_test

import (
	"encoding/json"
	"testing"

	"github.com/lus-lang/lus/ast"
	"github.com/stretchr/testify/require"
)

func dumpFixture() *ast.Container {
	root := ast.New(ast.KindChunk, 1)
	ifNode := ast.New(ast.KindIf, 1)
	cond := ast.New(ast.KindBinop, 1)
	cond.Op = "~="
	left := ast.New(ast.KindName, 1)
	left.Name = "x"
	right := ast.New(ast.KindNil, 1)
	cond.Left, cond.Right = left, right
	ifNode.Cond = cond
	then := ast.New(ast.KindBlock, 1)
	body := ast.New(ast.KindCallStat, 2)
	then.Child = body
	ifNode.Child = then
	root.Child = ifNode

	c := ast.NewContainer(false, false)
	c.Root = root
	return c
}

func TestDOTLabelsAndRoles(t *testing.T) {
	out := ast.DOT(dumpFixture())
	require.Contains(t, out, "digraph ast {")
	require.Contains(t, out, `label="binop\n~="`)
	require.Contains(t, out, `label="name\nx"`)
	require.Contains(t, out, `[label="cond"]`)
	require.Contains(t, out, `[label="then"]`)
	require.Contains(t, out, `[label="L"]`)
	require.Contains(t, out, `[label="R"]`)
}

func TestDOTNumberingRestartsPerDump(t *testing.T) {
	c := dumpFixture()
	require.Equal(t, ast.DOT(c), ast.DOT(c))
}

func TestJSONRoundTripsThroughStdlib(t *testing.T) {
	out := ast.JSON(dumpFixture())

	var v map[string]any
	require.NoError(t, json.Unmarshal(out, &v))
	require.Equal(t, "chunk", v["type"])
	children := v["children"].([]any)
	ifObj := children[0].(map[string]any)
	require.Equal(t, "if", ifObj["type"])
	cond := ifObj["cond"].(map[string]any)
	require.Equal(t, "~=", cond["op"])
	require.Equal(t, "x", cond["left"].(map[string]any)["name"])
}

func TestJSONEscapesControlCharacters(t *testing.T) {
	root := ast.New(ast.KindString, 1)
	root.Text = "a\x01b"
	c := ast.NewContainer(false, false)
	c.Root = root

	out := ast.JSON(c)
	require.Contains(t, string(out), "\\u0001")

	var v map[string]any
	require.NoError(t, json.Unmarshal(out, &v))
	require.Equal(t, "a\x01b", v["value"])
}
