package parser

import (
	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/bytecode"
	"github.com/lus-lang/lus/lexer"
)

// binPrec holds only a placeholder entry and is not consulted; binOpPrec
// below gives each binary operator's precedence. parseBinExpr parses the
// right operand one level above that precedence, except for the
// right-associative operators `..` and `^`, whose right operand is
// parsed at the same level.
var binPrec = map[lexer.Kind]int{
	lexer.Keyword: 0, // placeholder, `and`/`or` handled via text below
}

func binOpPrec(t lexer.Token) (prec int, rightAssoc bool, ok bool) {
	if t.Kind == lexer.Keyword {
		switch t.Text {
		case "or":
			return 1, false, true
		case "and":
			return 2, false, true
		}
		return 0, false, false
	}
	switch t.Kind {
	case lexer.Lt, lexer.Gt, lexer.Le, lexer.Ge, lexer.EqEq, lexer.NotEq:
		return 3, false, true
	case lexer.DotDot:
		return 4, true, true
	case lexer.Plus, lexer.Minus:
		return 5, false, true
	case lexer.Star, lexer.Slash, lexer.Percent:
		return 6, false, true
	case lexer.Caret:
		return 8, true, true
	}
	return 0, false, false
}

const unaryPrec = 7

// parseExpr parses a full expression via precedence climbing.
func (p *Parser) parseExpr() *ast.Node { return p.parseBinExpr(0) }

func (p *Parser) parseBinExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		prec, rightAssoc, ok := binOpPrec(p.cur())
		if !ok || prec < minPrec {
			return left
		}
		opTok := p.advance()
		nextMin := prec + 1
		if rightAssoc {
			nextMin = prec
		}
		right := p.parseBinExpr(nextMin)
		n := ast.New(ast.KindBinop, opTok.Line)
		n.Op = opTok.Text
		if opTok.Kind == lexer.Keyword {
			n.Op = opTok.Text
		}
		n.Left = left
		n.Right = right
		left = n
	}
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	t := p.cur()
	if t.Kind == lexer.Minus || t.Kind == lexer.Hash || (t.Kind == lexer.Keyword && t.Text == "not") {
		p.advance()
		operand := p.parseBinExpr(unaryPrec)
		n := ast.New(ast.KindUnop, t.Line)
		n.Op = t.Text
		n.Left = operand
		return n
	}
	return p.parsePowExpr()
}

func (p *Parser) parsePowExpr() *ast.Node {
	return p.parseSuffixedExpr()
}

// parseSuffixedExpr parses a primary expression and every following
// suffix (`.name`, `[expr]`, `[a,b]` slice, `:name(args)`, call,
// optional-chain variants). All optional-chain suffixes in one chain
// share a single base register so the short-circuit test needs no
// explicit nil store.
func (p *Parser) parseSuffixedExpr() *ast.Node {
	e := p.parsePrimaryExpr()
	for {
		switch {
		case p.check(lexer.Dot):
			p.advance()
			line := p.curLine()
			name := p.expect(lexer.Ident, "identifier").Text
			n := ast.New(ast.KindField, line)
			n.Left = e
			n.Name = name
			e = n
		case p.check(lexer.QDot):
			p.advance()
			e = p.parseOptChainSuffix(e)
		case p.check(lexer.LBrack):
			p.advance()
			e = p.parseIndexOrSlice(e)
		case p.check(lexer.Colon):
			p.advance()
			line := p.curLine()
			name := p.expect(lexer.Ident, "identifier").Text
			args := p.parseCallArgs()
			n := ast.New(ast.KindMethodCall, line)
			n.Recv = e
			n.Name = name
			n.Child = args
			e = n
		case p.check(lexer.LParen) || p.check(lexer.LBrace) || p.check(lexer.String):
			line := p.curLine()
			args := p.parseCallArgs()
			n := ast.New(ast.KindCallExpr, line)
			n.Left = e
			n.Child = args
			e = n
		default:
			return e
		}
	}
}

// parseOptChainSuffix wraps e in a KindOptChain (or extends an existing
// one) and parses exactly one `?.` suffix: `.name`, `(args)` call, or
// `:name(args)` method call.
func (p *Parser) parseOptChainSuffix(base *ast.Node) *ast.Node {
	var chain *ast.Node
	if base.Kind == ast.KindOptChain {
		chain = base
	} else {
		chain = ast.New(ast.KindOptChain, base.Line)
		chain.Recv = base
	}
	line := p.curLine()
	var seg *ast.Node
	switch {
	case p.check(lexer.LParen):
		args := p.parseCallArgs()
		seg = ast.New(ast.KindCallExpr, line)
		seg.Child = args
	case p.check(lexer.Colon):
		p.advance()
		name := p.expect(lexer.Ident, "identifier").Text
		args := p.parseCallArgs()
		seg = ast.New(ast.KindMethodCall, line)
		seg.Name = name
		seg.Child = args
	default:
		name := p.expect(lexer.Ident, "identifier").Text
		seg = ast.New(ast.KindField, line)
		seg.Name = name
	}
	ast.Append(&chain.Fields, seg)
	return chain
}

func (p *Parser) parseIndexOrSlice(e *ast.Node) *ast.Node {
	line := p.curLine()
	var start, stop *ast.Node
	if !p.check(lexer.Comma) {
		start = p.parseExpr()
	}
	if p.match(lexer.Comma) {
		if !p.check(lexer.RBrack) {
			stop = p.parseExpr()
		}
		p.expect(lexer.RBrack, "]")
		n := ast.New(ast.KindSlice, line)
		n.Left = e
		n.Cond = start
		n.Step = stop
		return n
	}
	p.expect(lexer.RBrack, "]")
	n := ast.New(ast.KindIndex, line)
	n.Left = e
	n.Right = start
	return n
}

func (p *Parser) parseCallArgs() *ast.Node {
	if p.check(lexer.String) {
		t := p.advance()
		n := ast.New(ast.KindString, t.Line)
		n.Text = t.Str
		n.Quote = t.Quote
		return n
	}
	if p.check(lexer.LBrace) {
		return p.parseTableConstructor()
	}
	p.expect(lexer.LParen, "(")
	var head *ast.Node
	if !p.check(lexer.RParen) {
		for _, e := range p.parseExprList() {
			ast.Append(&head, e)
		}
	}
	p.expect(lexer.RParen, ")")
	return head
}

func (p *Parser) parseExprList() []*ast.Node {
	var out []*ast.Node
	out = append(out, p.parseExpr())
	for p.match(lexer.Comma) {
		out = append(out, p.parseExpr())
	}
	return out
}

// parsePrefixExpr parses a name or parenthesized expression plus its
// suffix chain. Used by `from`, where only a prefix-expression (not a
// full binary expression) names the destructuring source.
func (p *Parser) parsePrefixExpr() *ast.Node { return p.parseSuffixedExpr() }

func (p *Parser) parsePrimaryExpr() *ast.Node {
	t := p.cur()
	switch t.Kind {
	case lexer.Keyword:
		switch t.Text {
		case "nil":
			p.advance()
			return ast.New(ast.KindNil, t.Line)
		case "true":
			p.advance()
			return ast.New(ast.KindTrue, t.Line)
		case "false":
			p.advance()
			return ast.New(ast.KindFalse, t.Line)
		case "function":
			p.advance()
			return p.parseFuncBody(t.Line, false)
		case "enum":
			return p.parseEnum()
		case "catch":
			return p.parseCatchExpr()
		}
		p.fail("unexpected keyword %q in expression", t.Text)
	case lexer.Int:
		p.advance()
		n := ast.New(ast.KindNumber, t.Line)
		n.IntVal = t.IntVal
		return n
	case lexer.Float:
		p.advance()
		n := ast.New(ast.KindNumber, t.Line)
		n.IsFloat = true
		n.FloatVal = t.FloatVal
		return n
	case lexer.String:
		p.advance()
		n := ast.New(ast.KindString, t.Line)
		n.Text = t.Str
		n.Quote = t.Quote
		return n
	case lexer.Ellipsis:
		p.advance()
		if !p.fs.vararg {
			p.failSemantic(t.Line, "cannot use '...' outside a vararg function")
		}
		return ast.New(ast.KindVararg, t.Line)
	case lexer.Backtick, lexer.InterpHoleL:
		return p.parseInterpString()
	case lexer.LBrace:
		return p.parseTableConstructor()
	case lexer.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(lexer.RParen, ")")
		e.Paren = true
		return e
	case lexer.Ident:
		p.advance()
		return p.resolveNameNode(t)
	}
	p.fail("unexpected token %q", describeToken(t))
	return nil
}

func (p *Parser) resolveNameNode(t lexer.Token) *ast.Node {
	n := ast.New(ast.KindName, t.Line)
	n.Name = t.Text
	// group-field compile-time resolution: `g.x` where g is a bound
	// local group is handled by groupFieldReg (codegen.go) at emit time,
	// since the AST still looks like a plain Field node.
	return n
}

// ---- enum ----

func (p *Parser) parseEnum() *ast.Node {
	line := p.expectKeyword("enum").Line
	n := ast.New(ast.KindEnum, line)
	var head *ast.Node
	idx := int64(0)
	for !p.checkKeyword("end") {
		mline := p.curLine()
		name := p.expect(lexer.Ident, "identifier").Text
		mn := ast.New(ast.KindName, mline)
		mn.Name = name
		mn.IntVal = idx
		ast.Append(&head, mn)
		idx++
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expectKeyword("end")
	n.Fields = head
	n.EndLine = p.curLine()
	return n
}

// ---- catch expression ----

// parseCatchExpr parses
// `catch expr` / `catch[handler] expr`, bracketing the protected expression
// with paired OP_CATCH/OP_ENDCATCH pseudo-instructions.
func (p *Parser) parseCatchExpr() *ast.Node {
	line := p.expectKeyword("catch").Line
	n := ast.New(ast.KindCatchExpr, line)
	if p.match(lexer.LBrack) {
		n.Handler = p.parseExpr()
		p.expect(lexer.RBrack, "]")
	}
	catchPC := p.em.Emit(bytecode.OpCatch, 0, 0, 0, line)

	inner := p.parseSuffixedExpr()
	n.Child = inner

	tmp := p.em.Reserve(1)
	p.emitExprInto(inner, tmp)
	p.em.Emit(bytecode.OpEndCatch, 0, 0, 0, p.curLine())
	p.em.Patch(catchPC, p.em.Here())
	p.catchRegs[n] = tmp
	n.EndLine = p.curLine()
	return n
}

// ---- table constructor ----

func (p *Parser) parseTableConstructor() *ast.Node {
	line := p.expectOpenBrace()
	n := ast.New(ast.KindTable, line)
	var head *ast.Node
	for !p.check(lexer.RBrace) {
		fline := p.curLine()
		var field *ast.Node
		switch {
		case p.check(lexer.LBrack):
			p.advance()
			key := p.parseExpr()
			p.expect(lexer.RBrack, "]")
			p.expect(lexer.Assign, "=")
			val := p.parseExpr()
			field = ast.New(ast.KindTableField, fline)
			field.Left = key
			field.Right = val
		case p.check(lexer.Ident) && p.peekAt(1).Kind == lexer.Assign:
			name := p.advance().Text
			p.advance() // '='
			val := p.parseExpr()
			field = ast.New(ast.KindTableField, fline)
			field.Name = name
			field.Right = val
		default:
			val := p.parseExpr()
			field = ast.New(ast.KindTableField, fline)
			field.Right = val
		}
		ast.Append(&head, field)
		if !p.match(lexer.Comma) && !p.match(lexer.Semi) {
			break
		}
	}
	p.expect(lexer.RBrace, "}")
	n.Fields = head
	n.EndLine = p.curLine()
	return n
}

func (p *Parser) expectOpenBrace() int {
	t := p.expect(lexer.LBrace, "{")
	return t.Line
}

// ---- interpolated strings ----

// parseInterpString drains the lexer's alternating literal/hole tokens
// into a KindInterp node whose
// Fields list alternates KindString literal segments and hole
// expressions; codegen emits ToString on each hole and a final n-way
// Concat, matching the lexer/parser contract.
func (p *Parser) parseInterpString() *ast.Node {
	t := p.advance() // Backtick (no holes) or InterpHoleL; Str is the leading literal
	line := t.Line
	n := ast.New(ast.KindInterp, line)
	var head *ast.Node

	lit := ast.New(ast.KindString, line)
	lit.Text = t.Str
	ast.Append(&head, lit)

	for t.Kind == lexer.InterpHoleL {
		var hole *ast.Node
		if t.Text == "(" {
			hole = p.parseExpr()
			p.expect(lexer.InterpHoleR, ")")
		} else {
			nameTok := p.expect(lexer.Ident, "identifier")
			hole = ast.New(ast.KindName, nameTok.Line)
			hole.Name = nameTok.Text
		}
		ast.Append(&head, hole)

		// continuation: the next token is the following literal segment,
		// either another hole opener or the closing backtick
		t = p.advance()
		seg := ast.New(ast.KindString, t.Line)
		seg.Text = t.Str
		ast.Append(&head, seg)
	}
	n.Fields = head
	n.EndLine = p.curLine()
	return n
}

// emitInterp evaluates every segment into a scratch register range,
// coerces the holes with ToString, and concatenates into reg. The
// scratch range is released once the result has landed.
func (p *Parser) emitInterp(n *ast.Node, reg int) {
	var parts []*ast.Node
	for c := n.Fields; c != nil; c = c.Next {
		parts = append(parts, c)
	}
	base := p.em.Reserve(len(parts))
	for i, part := range parts {
		p.emitExprInto(part, base+i)
		if part.Kind != ast.KindString {
			p.em.Emit(bytecode.OpToString, base+i, base+i, 0, n.Line)
		}
	}
	p.em.Emit(bytecode.OpConcat, reg, base, len(parts), n.Line)
	p.em.Free(base)
}
