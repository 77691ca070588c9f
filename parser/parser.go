// Package parser implements the single-pass recursive-descent parser:
// it drives the Lexer, maintains the function-state stack, emits
// bytecode through a bytecode.Emitter, and simultaneously builds an
// ast.Node tree when AST capture is enabled.
package parser

import (
	"fmt"

	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/bytecode"
	"github.com/lus-lang/lus/lexer"
)

// Options configures a Parse call.
type Options struct {
	ChunkName       string
	Recover         bool // accumulate errors onto the Container instead of unwinding
	IncludeComments bool // capture comments for the formatter
	CaptureAST      bool // build ast.Node tree alongside codegen
}

// Parser holds all state for one parse of one chunk: the token stream,
// the AST container/current attach point, the function-state stack,
// and the bytecode emitter it targets.
type Parser struct {
	toks []lexer.Token
	pos  int

	opts Options

	container *ast.Container
	em        bytecode.Emitter

	// catchRegs maps each catch expression to the register its protected
	// result was left in at parse time, so emitExprInto can move it into
	// the caller's slot later without re-running the protected code.
	catchRegs map[*ast.Node]int

	fs *funcState
}

// Parse lexes and parses source into em (a fresh chunk when em is nil),
// returning the AST container; its Root is nil when CaptureAST is false.
// Syntax errors in recover mode accumulate on the container; any other
// error aborts the parse and is returned.
func Parse(source string, em bytecode.Emitter, opts Options) (c *ast.Container, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *SyntaxError:
				c, err = nil, e
			case *SemanticError:
				c, err = nil, e
			default:
				panic(r)
			}
		}
	}()

	container := ast.NewContainer(opts.Recover, opts.IncludeComments)

	lx := lexer.New(source, opts.IncludeComments, &container.Comments)
	toks, err := lx.All()
	if err != nil {
		le := err.(*lexer.LexError)
		if opts.Recover {
			container.AddError(le.Line, le.Column, le.Message)
			return container, nil
		}
		return nil, &SyntaxError{Line: le.Line, Column: le.Column, Message: le.Message}
	}

	if em == nil {
		em = bytecode.NewChunk()
	}

	p := &Parser{toks: toks, opts: opts, container: container, em: em,
		catchRegs: map[*ast.Node]int{}, fs: newFuncState(nil)}
	p.fs.vararg = true

	chunk := ast.New(ast.KindChunk, 1)
	body := p.parseBlockBody(func() bool { return p.cur().Kind == lexer.EOF })
	chunk.Child = body
	if gs := p.fs.block.gotos; len(gs) > 0 {
		return nil, &SemanticError{Line: gs[0].line, Message: fmt.Sprintf("no visible label %q for goto", gs[0].name)}
	}
	if len(p.toks) > 0 {
		chunk.EndLine = p.toks[len(p.toks)-1].Line
	}
	if opts.CaptureAST {
		container.Root = chunk
	}
	p.em.Emit(bytecode.OpReturn, 0, 0, 0, chunk.EndLine)

	return container, nil
}

// ---- token-stream helpers ----

func (p *Parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(off int) lexer.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) checkKeyword(kw string) bool {
	return p.cur().Kind == lexer.Keyword && p.cur().Text == kw
}

func (p *Parser) match(k lexer.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) matchKeyword(kw string) bool {
	if p.checkKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func describeToken(t lexer.Token) string {
	if t.Kind == lexer.EOF {
		return "<eof>"
	}
	if t.Text != "" {
		return t.Text
	}
	return t.Kind.String()
}

func (p *Parser) expect(k lexer.Kind, what string) lexer.Token {
	if !p.check(k) {
		p.fail("expected %s, got %q", what, describeToken(p.cur()))
	}
	return p.advance()
}

func (p *Parser) expectKeyword(kw string) lexer.Token {
	if !p.checkKeyword(kw) {
		p.fail("expected %q, got %q", kw, describeToken(p.cur()))
	}
	return p.advance()
}

func (p *Parser) curLine() int { return p.cur().Line }

// fail raises a SyntaxError. In recover mode, parseStatementRecovering
// catches it around each statement-level call; fail always
// panics with the error so a single recover() point can catch it.
func (p *Parser) fail(format string, args ...interface{}) {
	tok := p.cur()
	panic(&SyntaxError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) failSemantic(line int, format string, args ...interface{}) {
	panic(&SemanticError{Line: line, Message: fmt.Sprintf(format, args...)})
}
