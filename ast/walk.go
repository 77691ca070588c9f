package ast

// Inspect traverses an AST in depth-first, pre-order fashion, calling f
// for every reachable node. If f returns false the node's own
// descendants are skipped, but traversal continues with its sibling.
// A single closure instead of a full per-kind visitor interface,
// which is enough for the linter and formatter passes that only care about a
// handful of kinds at a time.
func Inspect(n *Node, f func(*Node) bool) {
	for c := n; c != nil; c = c.Next {
		if !f(c) {
			continue
		}
		for _, edge := range []*Node{c.Child, c.Left, c.Right, c.Cond, c.Step, c.Params, c.Body, c.Recv, c.Fields, c.Handler} {
			if edge != nil {
				Inspect(edge, f)
			}
		}
	}
}

// Walk is Inspect without the early-stop signal, for callers that always
// want to visit every node.
func Walk(n *Node, f func(*Node)) {
	Inspect(n, func(n *Node) bool {
		f(n)
		return true
	})
}

// Count returns the number of nodes reachable from n (inclusive),
// counting n's sibling chain as well.
func Count(n *Node) int {
	c := 0
	Walk(n, func(*Node) { c++ })
	return c
}
