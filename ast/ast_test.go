package ast_test

import (
	"testing"

	"github.com/lus-lang/lus/ast"
	"github.com/stretchr/testify/require"
)

func TestAppendBuildsSiblingChain(t *testing.T) {
	var head *ast.Node
	a := ast.New(ast.KindLocal, 1)
	b := ast.New(ast.KindLocal, 2)
	c := ast.New(ast.KindLocal, 3)
	ast.Append(&head, a)
	ast.Append(&head, b)
	ast.Append(&head, c)

	require.Equal(t, 3, ast.Len(head))
	require.Same(t, a, head)
	require.Same(t, b, head.Next)
	require.Same(t, c, head.Next.Next)
}

func TestInspectVisitsAllReachableKinds(t *testing.T) {
	root := ast.New(ast.KindChunk, 1)
	ifNode := ast.New(ast.KindIf, 2)
	ifNode.Cond = ast.New(ast.KindName, 2)
	ifNode.Cond.Name = "x"
	then := ast.New(ast.KindCallStat, 3)
	ifNode.Child = then
	root.Child = ifNode

	var seen []ast.Kind
	ast.Walk(root, func(n *ast.Node) { seen = append(seen, n.Kind) })

	require.Contains(t, seen, ast.KindIf)
	require.Contains(t, seen, ast.KindName)
	require.Contains(t, seen, ast.KindCallStat)
}

func TestGroupDescPreservesOrder(t *testing.T) {
	g := ast.NewGroupDesc()
	g.Add("x", 0)
	g.Add("y", 1)
	g.Add("x", 5) // re-add must not duplicate order, but updates reg
	require.Equal(t, []string{"x", "y"}, g.Order)
	reg, ok := g.Reg("x")
	require.True(t, ok)
	require.Equal(t, 5, reg)
}

func TestContainerRecoverAccumulatesErrors(t *testing.T) {
	c := ast.NewContainer(true, true)
	c.AddError(3, 7, "unexpected token")
	require.False(t, c.OK())
	require.Len(t, c.Errors, 1)
	require.Equal(t, 3, c.Errors[0].Line)
}
