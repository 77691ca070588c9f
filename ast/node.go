package ast

// Node is the discriminated AST record. All nodes produced by the
// parser are allocated through the engine's main allocator (not the
// parser arena) and chained with owner links, so the tree outlives the
// parser's transient tables.
//
// Rather than one struct type per Kind plus a 50-method visitor
// interface, this is a single discriminated record: one struct, a Kind
// tag, and a payload big enough for every variant. Unused fields for a
// given Kind are simply left zero.
type Node struct {
	Kind Kind

	Line    int
	EndLine int

	// Structural links: Next is the sibling in a list,
	// Child is the first child of a body. Variant-specific edges below
	// supplement these two for nodes that need more than one outgoing
	// edge (binop, if, for, while...).
	Next  *Node
	Child *Node

	// binop/index/assign targets; if/while condition; for start/stop/step.
	Left  *Node
	Right *Node
	Cond  *Node
	Step  *Node

	// Function/call auxiliary edges.
	Params *Node // head of a KindParam/KindNameList linked list
	Body   *Node // function body block (Child is used by other compound stmts)
	Recv   *Node // method-call receiver, or optchain base

	// Name-bearing nodes (name/field/label/goto/enum member/param).
	Name string

	// String literal payload: the original quote rune ('"', '\'', '`'
	// or 0 for a never-quoted synthetic string), and the unescaped
	// text. The text is copied out of the lexer's interned string at
	// AST-build time rather than holding a live reference that would
	// require pausing GC.
	Text  string
	Quote rune

	// Number literal payload.
	IsFloat  bool
	IntVal   int64
	FloatVal float64

	// Operator nodes (binop/unop).
	Op string

	// Expression metadata.
	Paren bool

	// Table constructor / enum / group fields, interpolated string
	// segments, statement lists: held as a Next-linked list starting
	// at Child or a dedicated field depending on the owning Kind.
	Fields *Node

	// catch handler function, if any (KindCatchExpr/KindCatchStat).
	Handler *Node

	// local-group metadata: field name -> register index, built by the
	// parser when compiling `local g <group> = {...}`.
	Group *GroupDesc

	// Parse-error payload (KindErrorStat / recover-mode partial trees).
	ErrLine    int
	ErrColumn  int
	ErrMessage string
}

// GroupDesc maps a local group's field names to the register index the
// parser allocated for each field.
type GroupDesc struct {
	Order  []string
	Fields map[string]int
}

// NewGroupDesc returns an empty, ready-to-use GroupDesc.
func NewGroupDesc() *GroupDesc {
	return &GroupDesc{Fields: map[string]int{}}
}

// Add records field -> reg, preserving declaration order.
func (g *GroupDesc) Add(field string, reg int) {
	if _, ok := g.Fields[field]; !ok {
		g.Order = append(g.Order, field)
	}
	g.Fields[field] = reg
}

// Reg looks up a field's register, reporting whether it exists.
func (g *GroupDesc) Reg(field string) (int, bool) {
	r, ok := g.Fields[field]
	return r, ok
}

// New allocates a bare node of the given kind at the given source line.
func New(kind Kind, line int) *Node {
	return &Node{Kind: kind, Line: line, EndLine: line}
}

// Append adds n to the end of the sibling list starting at *head.
// Every list-shaped AST production is built head-first with tail
// appends.
func Append(head **Node, n *Node) {
	if *head == nil {
		*head = n
		return
	}
	tail := *head
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.Next = n
}

// Children returns n's child list as a slice, walking the Next chain
// starting at n.Child. Convenience only; hot paths should walk the
// linked list directly.
func Children(n *Node) []*Node {
	var out []*Node
	for c := n.Child; c != nil; c = c.Next {
		out = append(out, c)
	}
	return out
}

// Len counts the nodes in a Next-linked list starting at head.
func Len(head *Node) int {
	n := 0
	for c := head; c != nil; c = c.Next {
		n++
	}
	return n
}
