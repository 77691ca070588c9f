// Package lint implements the pedantic AST linter: a pattern-matching
// pass emitting W1-W5 diagnostics. Each rule only pattern-matches a
// couple of node kinds, so the walk is a single ast.Inspect rather than
// a full per-kind visitor.
package lint

import (
	"fmt"

	"github.com/lus-lang/lus/ast"
)

// Rule identifies a diagnostic.
type Rule string

const (
	RuleSealAfterSeal      Rule = "W1"
	RuleDeprecatedPcall    Rule = "W2"
	RuleMoveableLocal      Rule = "W3"
	RuleUseOptionalChain   Rule = "W4"
	RuleUseFromDestructure Rule = "W5"
)

// Warning is one emitted diagnostic.
type Warning struct {
	Rule    Rule
	Line    int
	Message string
}

// Sink receives warnings as the linter walks the tree.
type Sink interface {
	Warn(w Warning)
}

// CollectSink is a Sink that just appends into a slice, for tests and
// batch CLI output.
type CollectSink struct{ Warnings []Warning }

func (c *CollectSink) Warn(w Warning) { c.Warnings = append(c.Warnings, w) }

// Lint walks container's AST, emitting every diagnostic W1-W5 applies
// to, into sink.
func Lint(container *ast.Container, sink Sink) {
	if container == nil || container.Root == nil {
		return
	}
	ast.Walk(container.Root, func(n *ast.Node) {
		checkSeal(n, sink)
		checkPcall(n, sink)
		checkMoveableLocal(n, sink)
		checkOptionalChainCandidate(n, sink)
		checkFromCandidate(n, sink)
	})
}

func isPledgeSealCall(n *ast.Node) bool {
	if n == nil || (n.Kind != ast.KindCallStat && n.Kind != ast.KindCallExpr) {
		return false
	}
	call := n
	if n.Kind == ast.KindCallStat {
		call = n.Child
	}
	if call == nil || call.Kind != ast.KindCallExpr || call.Left == nil || call.Left.Name != "pledge" {
		return false
	}
	arg := call.Child
	return arg != nil && arg.Kind == ast.KindString && arg.Text == "seal"
}

func isPledgeCall(n *ast.Node) bool {
	if n == nil || n.Kind != ast.KindCallStat {
		return false
	}
	call := n.Child
	return call != nil && call.Kind == ast.KindCallExpr && call.Left != nil && call.Left.Name == "pledge"
}

// checkSeal implements W1: a pledge(x) call after pledge("seal") in
// execution order within the same statement list is a no-op.
func checkSeal(n *ast.Node, sink Sink) {
	if n.Kind != ast.KindBlock && n.Kind != ast.KindChunk {
		return
	}
	localSealed := false
	for s := n.Child; s != nil; s = s.Next {
		if isPledgeSealCall(s) {
			localSealed = true
			continue
		}
		if localSealed && isPledgeCall(s) {
			sink.Warn(Warning{Rule: RuleSealAfterSeal, Line: s.Line,
				Message: "seal freezes permissions; later pledge() call is a no-op"})
		}
	}
}

// checkPcall implements W2.
func checkPcall(n *ast.Node, sink Sink) {
	if n.Kind != ast.KindName {
		return
	}
	if n.Name == "pcall" || n.Name == "xpcall" {
		sink.Warn(Warning{Rule: RuleDeprecatedPcall, Line: n.Line,
			Message: fmt.Sprintf("%q is deprecated; use 'catch'", n.Name)})
	}
}

// checkMoveableLocal implements W3: `local x = ...` immediately followed
// by an if/while whose condition references x, with x unused after.
func checkMoveableLocal(n *ast.Node, sink Sink) {
	if n.Kind != ast.KindBlock && n.Kind != ast.KindChunk {
		return
	}
	for s := n.Child; s != nil; s = s.Next {
		if s.Kind != ast.KindLocal || s.Group != nil || s.Params == nil || ast.Len(s.Params.Child) != 1 {
			continue
		}
		name := s.Params.Child.Name
		next := s.Next
		if next == nil || (next.Kind != ast.KindIf && next.Kind != ast.KindWhile) {
			continue
		}
		if !condReferences(next.Cond, name) {
			continue
		}
		if usedAfter(next.Next, name) {
			continue
		}
		sink.Warn(Warning{Rule: RuleMoveableLocal, Line: s.Line,
			Message: fmt.Sprintf("local %q is only used in the following condition; move it into an assignment condition", name)})
	}
}

func condReferences(cond *ast.Node, name string) bool {
	found := false
	if cond == nil {
		return false
	}
	ast.Walk(cond, func(n *ast.Node) {
		if n.Kind == ast.KindName && n.Name == name {
			found = true
		}
	})
	return found
}

func usedAfter(head *ast.Node, name string) bool {
	found := false
	for s := head; s != nil; s = s.Next {
		ast.Walk(s, func(n *ast.Node) {
			if n.Kind == ast.KindName && n.Name == name {
				found = true
			}
		})
	}
	return found
}

// checkOptionalChainCandidate implements W4: two-level nested
// `if x ~= nil then if x.y ~= nil then ... end end`, or an and-chain of
// depth >= 2 with field-access right-hand sides.
func checkOptionalChainCandidate(n *ast.Node, sink Sink) {
	if n.Kind == ast.KindIf && isNotNilCheck(n.Cond) {
		inner := firstBlockStatement(n)
		if inner != nil && inner.Kind == ast.KindIf && isNotNilCheck(inner.Cond) {
			base := notNilBase(n.Cond)
			innerBase := notNilBase(inner.Cond)
			// the inner check must test a field hanging off the outer
			// base, e.g. x ~= nil followed by x.y ~= nil
			if innerBase != nil && innerBase.Kind == ast.KindField && sameExpr(innerBase.Left, base) {
				sink.Warn(Warning{Rule: RuleUseOptionalChain, Line: n.Line,
					Message: "nested nil checks can use optional chaining (?.)"})
			}
		}
	}
	if n.Kind == ast.KindBinop && n.Op == "and" {
		depth := 1
		cur := n.Left
		for cur != nil && cur.Kind == ast.KindBinop && cur.Op == "and" {
			depth++
			cur = cur.Left
		}
		if depth >= 2 && isFieldAccess(n.Right) {
			sink.Warn(Warning{Rule: RuleUseOptionalChain, Line: n.Line,
				Message: "and-chain over field access can use optional chaining (?.)"})
		}
	}
}

func isFieldAccess(n *ast.Node) bool { return n != nil && n.Kind == ast.KindField }

func isNotNilCheck(cond *ast.Node) bool {
	return cond != nil && cond.Kind == ast.KindBinop && cond.Op == "~=" &&
		cond.Right != nil && cond.Right.Kind == ast.KindNil
}

func notNilBase(cond *ast.Node) *ast.Node {
	if cond == nil || cond.Kind != ast.KindBinop {
		return nil
	}
	return cond.Left
}

func sameExpr(a, b *ast.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Name != b.Name {
		return false
	}
	if a.Kind == ast.KindField {
		return sameExpr(a.Left, b.Left)
	}
	return true
}

func firstBlockStatement(ifNode *ast.Node) *ast.Node {
	children := ast.Children(ifNode)
	if len(children) == 0 || children[0].Kind != ast.KindBlock {
		return nil
	}
	return children[0].Child
}

// checkFromCandidate implements W5: `local a, b, c = t.a, t.b, t.c` where
// every RHS is a field access of the same table and the field names
// match the variable names.
func checkFromCandidate(n *ast.Node, sink Sink) {
	if n.Kind != ast.KindLocal || n.Group != nil || n.Child == nil {
		return
	}
	names := namesOf(n.Params)
	if len(names) < 2 {
		return
	}
	var table string
	i := 0
	for v := n.Child; v != nil; v, i = v.Next, i+1 {
		if i >= len(names) || v.Kind != ast.KindField {
			return
		}
		if v.Left == nil || v.Left.Kind != ast.KindName {
			return
		}
		if table == "" {
			table = v.Left.Name
		} else if v.Left.Name != table {
			return
		}
		if v.Name != names[i] {
			return
		}
	}
	if i != len(names) {
		return
	}
	sink.Warn(Warning{Rule: RuleUseFromDestructure, Line: n.Line,
		Message: fmt.Sprintf("use 'from' destructuring: local %s from %s", joinNames(names), table)})
}

func namesOf(nameList *ast.Node) []string {
	if nameList == nil {
		return nil
	}
	var out []string
	for c := nameList.Child; c != nil; c = c.Next {
		out = append(out, c.Name)
	}
	return out
}

func joinNames(names []string) string {
	s := ""
	for i, n := range names {
		if i > 0 {
			s += ", "
		}
		s += n
	}
	return s
}
