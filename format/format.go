// Package format implements the canonical source emitter: a two-pass
// walk over an ast.Node tree that reproduces comments, blank-line
// grouping, and precedence-correct parenthesization.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lus-lang/lus/ast"
)

// Options configures Format's output.
type Options struct {
	IndentWidth  int
	MaxLineWidth int
}

// DefaultOptions is what the CLI uses when no widths are given.
func DefaultOptions() Options { return Options{IndentWidth: 2, MaxLineWidth: 100} }

// Format renders container's AST back to canonical source.
func Format(container *ast.Container, opts Options) (string, error) {
	if opts.IndentWidth <= 0 {
		opts.IndentWidth = 2
	}
	p := &printer{
		indentWidth: opts.IndentWidth,
		maxWidth:    opts.MaxLineWidth,
		nextComment: container.Comments.Head(),
	}
	if container.Root != nil {
		p.stmts(container.Root.Child)
	}
	for p.nextComment != nil {
		p.drainComments(p.nextComment.Line + 1)
	}
	out := p.sb.String()
	out = trimTrailingWS(out)
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if out == "" {
		return "", nil
	}
	return out, nil
}

func trimTrailingWS(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, "\n")
}

type printer struct {
	sb          strings.Builder
	depth       int
	indentWidth int
	maxWidth    int
	nextComment *ast.Comment
	lastLine    int
}

func (p *printer) indent()   { p.depth++ }
func (p *printer) unindent() { p.depth-- }

func (p *printer) pad() string { return strings.Repeat(" ", p.depth*p.indentWidth) }

func (p *printer) writeLine(s string) {
	p.sb.WriteString(p.pad())
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

// drainComments emits every pending comment whose line is strictly
// less than beforeLine, at the current indent.
func (p *printer) drainComments(beforeLine int) {
	for p.nextComment != nil && p.nextComment.Line < beforeLine {
		c := p.nextComment
		if c.Long {
			p.writeLine(fmt.Sprintf("--[[%s]]", c.Text))
		} else {
			p.writeLine("--" + c.Text)
		}
		p.lastLine = c.EndLine
		p.nextComment = c.Next
	}
}

// maybeBlankLine preserves a single blank line when the source left a
// gap between the previous construct and line.
func (p *printer) maybeBlankLine(line int) {
	if p.lastLine != 0 && line > p.lastLine+1 {
		p.sb.WriteByte('\n')
	}
}

// stmts renders a statement list at the current indent; block renders
// one nesting level deeper.
func (p *printer) stmts(head *ast.Node) {
	for n := head; n != nil; n = n.Next {
		p.drainComments(n.Line)
		p.maybeBlankLine(n.Line)
		p.statement(n)
		p.lastLine = n.EndLine
	}
}

func (p *printer) block(head *ast.Node) {
	p.indent()
	p.stmts(head)
	p.unindent()
}

func (p *printer) statement(n *ast.Node) {
	switch n.Kind {
	case ast.KindLocal:
		p.localStat(n)
	case ast.KindFrom:
		p.fromStat(n)
	case ast.KindAssign:
		p.assignStat(n)
	case ast.KindCallStat:
		p.writeLine(p.expr(n.Child))
	case ast.KindIf:
		p.ifStat(n)
	case ast.KindWhile:
		p.writeLine(fmt.Sprintf("while %s do", p.condExpr(n.Cond)))
		p.block(n.Child)
		p.writeLine("end")
	case ast.KindRepeat:
		p.writeLine("repeat")
		p.block(n.Child)
		p.writeLine(fmt.Sprintf("until %s", p.expr(n.Cond)))
	case ast.KindForNum:
		p.forNumStat(n)
	case ast.KindForGen:
		p.forGenStat(n)
	case ast.KindDo:
		p.writeLine("do")
		p.block(n.Child)
		p.writeLine("end")
	case ast.KindReturn:
		p.writeLine("return " + p.exprList(n.Child))
	case ast.KindBreak:
		p.writeLine("break")
	case ast.KindGoto:
		p.writeLine("goto " + n.Name)
	case ast.KindLabel:
		p.writeLine("::" + n.Name + "::")
	case ast.KindFuncStat:
		p.funcStat(n)
	case ast.KindLocalFunc:
		p.writeLine(fmt.Sprintf("local function %s%s", n.Name, p.funcBody(n.Body)))
	case ast.KindCatchStat:
		p.writeLine(p.expr(n.Child))
	case ast.KindProvide:
		p.writeLine("provide " + p.expr(n.Right))
	default:
		p.writeLine(p.expr(n))
	}
}

func (p *printer) localStat(n *ast.Node) {
	if n.Group != nil {
		var parts []string
		for f := n.Fields; f != nil; f = f.Next {
			parts = append(parts, fmt.Sprintf("%s = %s", f.Name, p.expr(f.Right)))
		}
		p.writeLine(fmt.Sprintf("local %s <group> = { %s }", n.Name, strings.Join(parts, ", ")))
		return
	}
	names := namesOf(n.Params)
	if n.Child == nil {
		p.writeLine("local " + strings.Join(names, ", "))
		return
	}
	p.writeLine(fmt.Sprintf("local %s = %s", strings.Join(names, ", "), p.exprList(n.Child)))
}

func (p *printer) fromStat(n *ast.Node) {
	names := namesOf(n.Params)
	p.writeLine(fmt.Sprintf("local %s from %s", strings.Join(names, ", "), p.expr(n.Right)))
}

func (p *printer) assignStat(n *ast.Node) {
	var lhs, rhs []string
	for t := n.Left; t != nil; t = t.Next {
		lhs = append(lhs, p.expr(t))
	}
	for v := n.Right; v != nil; v = v.Next {
		rhs = append(rhs, p.expr(v))
	}
	p.writeLine(fmt.Sprintf("%s = %s", strings.Join(lhs, ", "), strings.Join(rhs, ", ")))
}

func (p *printer) condExpr(n *ast.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == ast.KindAssign {
		var parts []string
		for c := n.Child; c != nil; c = c.Next {
			parts = append(parts, fmt.Sprintf("%s = %s", c.Name, p.expr(c.Right)))
		}
		return strings.Join(parts, ", ")
	}
	return p.expr(n)
}

func (p *printer) ifStat(n *ast.Node) {
	p.writeLine(fmt.Sprintf("if %s then", p.condExpr(n.Cond)))
	branches := ast.Children(n)
	for _, b := range branches {
		switch b.Kind {
		case ast.KindBlock:
			p.block(b.Child)
		case ast.KindElseIf:
			p.writeLine(fmt.Sprintf("elseif %s then", p.condExpr(b.Cond)))
			p.block(b.Child)
		case ast.KindElse:
			p.writeLine("else")
			p.block(b.Child)
		}
	}
	p.writeLine("end")
}

func (p *printer) forNumStat(n *ast.Node) {
	if n.Step != nil {
		p.writeLine(fmt.Sprintf("for %s = %s, %s, %s do", n.Name, p.expr(n.Left), p.expr(n.Right), p.expr(n.Step)))
	} else {
		p.writeLine(fmt.Sprintf("for %s = %s, %s do", n.Name, p.expr(n.Left), p.expr(n.Right)))
	}
	p.block(n.Child)
	p.writeLine("end")
}

func (p *printer) forGenStat(n *ast.Node) {
	names := namesOf(n.Params)
	var exprs []string
	for e := n.Right; e != nil; e = e.Next {
		exprs = append(exprs, p.expr(e))
	}
	p.writeLine(fmt.Sprintf("for %s in %s do", strings.Join(names, ", "), strings.Join(exprs, ", ")))
	p.block(n.Child)
	p.writeLine("end")
}

func (p *printer) funcStat(n *ast.Node) {
	method := n.Op == ":"
	name := p.funcTargetName(n.Left, method)
	p.writeLine(fmt.Sprintf("function %s%s", name, p.funcBodyOpts(n.Body, method)))
}

// funcTargetName renders a dotted definition target; when method is
// true, the final separator is the method colon.
func (p *printer) funcTargetName(n *ast.Node, method bool) string {
	if n.Kind == ast.KindField {
		sep := "."
		if method {
			sep = ":"
		}
		return p.funcTargetName(n.Left, false) + sep + n.Name
	}
	return n.Name
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

func (p *printer) funcBody(fn *ast.Node) string { return p.funcBodyOpts(fn, false) }

// funcBodyOpts renders a parameter list and body; method definitions
// drop the implicit leading self.
func (p *printer) funcBodyOpts(fn *ast.Node, method bool) string {
	names := namesOf(fn.Params)
	if method && len(names) > 0 && names[0] == "self" {
		names = names[1:]
	}
	var sb strings.Builder
	sb.WriteString("(" + strings.Join(names, ", ") + ")\n")
	sub := &printer{indentWidth: p.indentWidth, maxWidth: p.maxWidth, depth: p.depth, nextComment: p.nextComment}
	sub.block(fn.Child)
	p.nextComment = sub.nextComment
	sb.WriteString(sub.sb.String())
	sb.WriteString(p.pad() + "end")
	return sb.String()
}

func (p *printer) exprList(head *ast.Node) string {
	var parts []string
	for n := head; n != nil; n = n.Next {
		parts = append(parts, p.expr(n))
	}
	return strings.Join(parts, ", ")
}

var precedence = map[string]int{
	"or": 1, "and": 2,
	"<": 3, ">": 3, "<=": 3, ">=": 3, "~=": 3, "==": 3,
	"..": 4, "+": 5, "-": 5, "*": 6, "/": 6, "%": 6, "^": 8,
}

func (p *printer) expr(n *ast.Node) string {
	return p.exprPrec(n, 0)
}

func (p *printer) exprPrec(n *ast.Node, parentPrec int) string {
	if n == nil {
		return ""
	}
	s := p.exprRaw(n)
	if n.Kind == ast.KindBinop {
		prec := precedence[n.Op]
		if prec < parentPrec || n.Paren {
			return "(" + s + ")"
		}
	}
	if n.Paren && n.Kind != ast.KindBinop {
		return "(" + s + ")"
	}
	return s
}

func (p *printer) exprRaw(n *ast.Node) string {
	switch n.Kind {
	case ast.KindNil:
		return "nil"
	case ast.KindTrue:
		return "true"
	case ast.KindFalse:
		return "false"
	case ast.KindVararg:
		return "..."
	case ast.KindNumber:
		if n.IsFloat {
			return strconv.FormatFloat(n.FloatVal, 'g', -1, 64)
		}
		return strconv.FormatInt(n.IntVal, 10)
	case ast.KindString:
		return quoteString(n.Text, n.Quote)
	case ast.KindName:
		return n.Name
	case ast.KindField:
		return p.expr(n.Left) + "." + n.Name
	case ast.KindIndex:
		return fmt.Sprintf("%s[%s]", p.expr(n.Left), p.expr(n.Right))
	case ast.KindSlice:
		return fmt.Sprintf("%s[%s, %s]", p.expr(n.Left), p.expr(n.Cond), p.expr(n.Step))
	case ast.KindOptChain:
		return p.optChain(n)
	case ast.KindBinop:
		prec := precedence[n.Op]
		leftPrec, rightPrec := prec, prec+1
		if n.Op == ".." || n.Op == "^" {
			// right-associative: parenthesize the left side on ties
			leftPrec, rightPrec = prec+1, prec
		}
		left := p.exprPrec(n.Left, leftPrec)
		right := p.exprPrec(n.Right, rightPrec)
		return fmt.Sprintf("%s %s %s", left, n.Op, right)
	case ast.KindUnop:
		operand := p.exprPrec(n.Left, 7)
		if n.Op == "-" && strings.HasPrefix(operand, "-") {
			return "- " + operand
		}
		if n.Op == "not" {
			return "not " + operand
		}
		return n.Op + operand
	case ast.KindCallExpr:
		return p.expr(n.Left) + "(" + p.exprList(n.Child) + ")"
	case ast.KindMethodCall:
		return p.expr(n.Recv) + ":" + n.Name + "(" + p.exprList(n.Child) + ")"
	case ast.KindFuncExpr:
		return "function" + p.funcBody(n)
	case ast.KindTable:
		return p.tableCtor(n)
	case ast.KindEnum:
		var names []string
		for f := n.Fields; f != nil; f = f.Next {
			names = append(names, f.Name)
		}
		return "enum " + strings.Join(names, ", ") + " end"
	case ast.KindCatchExpr:
		if n.Handler != nil {
			return fmt.Sprintf("catch[%s] %s", p.expr(n.Handler), p.expr(n.Child))
		}
		return "catch " + p.expr(n.Child)
	case ast.KindInterp:
		return p.interpString(n)
	}
	return ""
}

func (p *printer) optChain(n *ast.Node) string {
	var sb strings.Builder
	sb.WriteString(p.expr(n.Recv))
	for seg := n.Fields; seg != nil; seg = seg.Next {
		switch seg.Kind {
		case ast.KindField:
			sb.WriteString("?." + seg.Name)
		case ast.KindCallExpr:
			sb.WriteString("?.(" + p.exprList(seg.Child) + ")")
		case ast.KindMethodCall:
			sb.WriteString("?." + seg.Name + "(" + p.exprList(seg.Child) + ")")
		}
	}
	return sb.String()
}

// tableCtor renders a one-line form for <=3 fields, multi-line
// otherwise.
func (p *printer) tableCtor(n *ast.Node) string {
	var fields []*ast.Node
	for f := n.Fields; f != nil; f = f.Next {
		fields = append(fields, f)
	}
	render := func(f *ast.Node) string {
		switch {
		case f.Name != "":
			return fmt.Sprintf("%s = %s", f.Name, p.expr(f.Right))
		case f.Left != nil:
			return fmt.Sprintf("[%s] = %s", p.expr(f.Left), p.expr(f.Right))
		default:
			return p.expr(f.Right)
		}
	}
	if len(fields) <= 3 {
		var parts []string
		for _, f := range fields {
			parts = append(parts, render(f))
		}
		if len(parts) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, f := range fields {
		sb.WriteString(p.pad() + strings.Repeat(" ", p.indentWidth) + render(f) + ",\n")
	}
	sb.WriteString(p.pad() + "}")
	return sb.String()
}

// interpString reconstructs backtick syntax: literal segments escape
// `$`/backtick/backslash; simple name holes render as `$name`; complex
// holes as `$(expr)`.
func (p *printer) interpString(n *ast.Node) string {
	var sb strings.Builder
	sb.WriteByte('`')
	for seg := n.Fields; seg != nil; seg = seg.Next {
		if seg.Kind == ast.KindString {
			sb.WriteString(escapeInterpLiteral(seg.Text))
			continue
		}
		if seg.Kind == ast.KindName && seg.Right == nil {
			sb.WriteString("$" + seg.Name)
			continue
		}
		sb.WriteString("$(" + p.expr(seg) + ")")
	}
	sb.WriteByte('`')
	return sb.String()
}

func escapeInterpLiteral(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`", "$", "\\$")
	return r.Replace(s)
}

// quoteString reuses the original quote when available; otherwise
// prefers double quotes unless the string contains a double quote and
// no single quote.
func quoteString(s string, quote rune) string {
	if quote == 0 {
		quote = '"'
		if strings.Contains(s, "\"") && !strings.Contains(s, "'") {
			quote = '\''
		}
	}
	var sb strings.Builder
	sb.WriteRune(quote)
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		case '\\':
			sb.WriteString("\\\\")
		case quote:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			if r < 0x20 || r == 0x7f {
				sb.WriteString(fmt.Sprintf("\\x%02X", r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteRune(quote)
	return sb.String()
}
