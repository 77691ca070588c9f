package ast

import (
	"fmt"
	"strings"
)

// dotDumper numbers nodes as it walks; the counter lives here rather
// than in a package global so two dumps never share numbering.
type dotDumper struct {
	b    strings.Builder
	next int
}

// DOT renders the container's AST as a Graphviz digraph: one graph node
// per AST node, labeled by kind (and value, for literals, names, and
// operators), edged to children with role labels.
func DOT(c *Container) string {
	d := &dotDumper{}
	d.b.WriteString("digraph ast {\n")
	d.b.WriteString("  node [shape=box, fontname=\"monospace\"];\n")
	if c.Root != nil {
		d.node(c.Root)
	}
	d.b.WriteString("}\n")
	return d.b.String()
}

// node emits n and its subtree, returning n's graph id.
func (d *dotDumper) node(n *Node) int {
	id := d.next
	d.next++
	fmt.Fprintf(&d.b, "  n%d [label=\"%s\"];\n", id, dotLabel(n))

	for c := n.Child; c != nil; c = c.Next {
		cid := d.node(c)
		d.edge(id, cid, childRole(n, c))
	}
	d.edgeList(id, n.Left, roleFor(n, "L"))
	d.edgeList(id, n.Right, roleFor(n, "R"))
	d.edgeList(id, n.Cond, "cond")
	d.edgeList(id, n.Step, "step")
	d.edgeList(id, n.Params, "params")
	d.edgeList(id, n.Body, "body")
	d.edgeList(id, n.Recv, "recv")
	d.edgeList(id, n.Fields, "fields")
	d.edgeList(id, n.Handler, "handler")
	return id
}

// edgeList walks head's sibling chain so list-valued edges (assign
// targets, expression lists) each get their own arrow.
func (d *dotDumper) edgeList(from int, head *Node, role string) {
	for c := head; c != nil; c = c.Next {
		cid := d.node(c)
		d.edge(from, cid, role)
	}
}

func (d *dotDumper) edge(from, to int, role string) {
	if role == "" {
		fmt.Fprintf(&d.b, "  n%d -> n%d;\n", from, to)
		return
	}
	fmt.Fprintf(&d.b, "  n%d -> n%d [label=\"%s\"];\n", from, to, role)
}

// dotLabel builds the node label; the embedded \n is Graphviz's own
// line-break escape, and literal quotes/backslashes in values are
// escaped so the label stays a valid quoted string.
func dotLabel(n *Node) string {
	switch n.Kind {
	case KindName, KindField, KindGoto, KindLabel, KindParam:
		return fmt.Sprintf("%s\\n%s", n.Kind, dotEscape(n.Name))
	case KindString:
		return fmt.Sprintf("%s\\n%s", n.Kind, dotEscape(truncate(n.Text, 24)))
	case KindNumber:
		if n.IsFloat {
			return fmt.Sprintf("%s\\n%g", n.Kind, n.FloatVal)
		}
		return fmt.Sprintf("%s\\n%d", n.Kind, n.IntVal)
	case KindBinop, KindUnop:
		return fmt.Sprintf("%s\\n%s", n.Kind, dotEscape(n.Op))
	}
	return n.Kind.String()
}

func dotEscape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n")
	return r.Replace(s)
}

// roleFor maps the generic Left/Right slots onto their per-kind meaning
// where one exists; binops keep the terse L/R.
func roleFor(n *Node, generic string) string {
	switch n.Kind {
	case KindAssign:
		if generic == "L" {
			return "targets"
		}
		return "values"
	case KindForNum:
		if generic == "L" {
			return "start"
		}
		return "stop"
	}
	return generic
}

// childRole labels a Child-chain edge: if-statements hang their then
// block plus any elseif/else arms off Child, everything else hangs a
// body there.
func childRole(parent, child *Node) string {
	switch child.Kind {
	case KindElseIf:
		return "elseif"
	case KindElse:
		return "else"
	}
	if parent.Kind == KindIf {
		return "then"
	}
	return "body"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
