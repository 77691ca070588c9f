package ast

import (
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"
)

// JSON renders the container's AST as a JSON object tree: one object
// per node with "type" and "line" keys plus a type-specific set of
// keyed children; generic child lists come out under "children".
// Strings go through jsonenc, which escapes control characters as
// \u00XX.
func JSON(c *Container) []byte {
	if c.Root == nil {
		return []byte("null")
	}
	return appendNode(nil, c.Root)
}

func appendNode(dst []byte, n *Node) []byte {
	dst = append(dst, '{')
	dst = appendKey(dst, "type")
	dst = jsonenc.AppendString(dst, n.Kind.String())
	dst = append(dst, ',')
	dst = appendKey(dst, "line")
	dst = strconv.AppendInt(dst, int64(n.Line), 10)

	switch n.Kind {
	case KindName, KindField, KindGoto, KindLabel, KindParam, KindForNum, KindForGen:
		if n.Name != "" {
			dst = append(dst, ',')
			dst = appendKey(dst, "name")
			dst = jsonenc.AppendString(dst, n.Name)
		}
	case KindString:
		dst = append(dst, ',')
		dst = appendKey(dst, "value")
		dst = jsonenc.AppendString(dst, n.Text)
	case KindNumber:
		dst = append(dst, ',')
		dst = appendKey(dst, "value")
		if n.IsFloat {
			dst = jsonenc.AppendFloat64(dst, n.FloatVal)
		} else {
			dst = strconv.AppendInt(dst, n.IntVal, 10)
		}
	case KindBinop, KindUnop:
		dst = append(dst, ',')
		dst = appendKey(dst, "op")
		dst = jsonenc.AppendString(dst, n.Op)
	}

	dst = appendEdge(dst, "cond", n.Cond)
	dst = appendEdge(dst, "step", n.Step)
	dst = appendEdge(dst, "body", n.Body)
	dst = appendEdge(dst, "recv", n.Recv)
	dst = appendEdge(dst, "handler", n.Handler)

	switch n.Kind {
	case KindAssign:
		dst = appendEdgeList(dst, "targets", n.Left)
		dst = appendEdgeList(dst, "values", n.Right)
	case KindLocal:
		if n.Params != nil {
			dst = appendEdgeList(dst, "names", n.Params.Child)
		}
		dst = appendEdgeList(dst, "values", n.Child)
	default:
		dst = appendEdge(dst, "left", n.Left)
		dst = appendEdge(dst, "right", n.Right)
		dst = appendEdgeList(dst, "params", n.Params)
		dst = appendEdgeList(dst, "children", n.Child)
	}
	dst = appendEdgeList(dst, "fields", n.Fields)

	return append(dst, '}')
}

func appendKey(dst []byte, key string) []byte {
	dst = jsonenc.AppendString(dst, key)
	return append(dst, ':')
}

func appendEdge(dst []byte, key string, n *Node) []byte {
	if n == nil {
		return dst
	}
	dst = append(dst, ',')
	dst = appendKey(dst, key)
	return appendNode(dst, n)
}

func appendEdgeList(dst []byte, key string, head *Node) []byte {
	if head == nil {
		return dst
	}
	dst = append(dst, ',')
	dst = appendKey(dst, key)
	dst = append(dst, '[')
	for c := head; c != nil; c = c.Next {
		if c != head {
			dst = append(dst, ',')
		}
		dst = appendNode(dst, c)
	}
	return append(dst, ']')
}
