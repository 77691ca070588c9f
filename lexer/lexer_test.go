package lexer_test

import (
	"testing"

	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/lexer"
	"github.com/stretchr/testify/require"
)

func kinds(toks []lexer.Token) []lexer.Kind {
	var out []lexer.Kind
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func TestLexIdentifiersAndKeywords(t *testing.T) {
	l := lexer.New("local x = foo", false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	require.Equal(t, []lexer.Kind{
		lexer.Keyword, lexer.Ident, lexer.Assign, lexer.Ident, lexer.EOF,
	}, kinds(toks))
	require.Equal(t, "local", toks[0].Text)
	require.Equal(t, "x", toks[1].Text)
}

func TestLexExtendedKeywords(t *testing.T) {
	l := lexer.New("from catch enum group provide", false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	for _, tok := range toks[:5] {
		require.Equal(t, lexer.Keyword, tok.Kind)
	}
}

func TestLexNumbers(t *testing.T) {
	l := lexer.New("42 3.14 0x1F 1e10", false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	require.Equal(t, lexer.Int, toks[0].Kind)
	require.EqualValues(t, 42, toks[0].IntVal)
	require.Equal(t, lexer.Float, toks[1].Kind)
	require.InDelta(t, 3.14, toks[1].FloatVal, 0.0001)
	require.Equal(t, lexer.Int, toks[2].Kind)
	require.EqualValues(t, 31, toks[2].IntVal)
	require.Equal(t, lexer.Float, toks[3].Kind)
}

func TestLexQuotedStringEscapes(t *testing.T) {
	l := lexer.New(`"a\nb\tc"`, false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	require.Equal(t, lexer.String, toks[0].Kind)
	require.Equal(t, "a\nb\tc", toks[0].Str)
	require.Equal(t, '"', toks[0].Quote)
}

func TestLexLongBracketString(t *testing.T) {
	l := lexer.New("[[hello\nworld]]", false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	require.Equal(t, lexer.String, toks[0].Kind)
	require.Equal(t, "hello\nworld", toks[0].Str)
}

func TestLexLineCommentCaptured(t *testing.T) {
	comments := &ast.CommentList{}
	l := lexer.New("-- hi there\nlocal x", true, comments)
	_, err := l.All()
	require.NoError(t, err)
	require.Equal(t, 1, comments.Len())
	require.Equal(t, " hi there", comments.Head().Text)
	require.False(t, comments.Head().Long)
}

func TestLexLongCommentCaptured(t *testing.T) {
	comments := &ast.CommentList{}
	l := lexer.New("--[[ block\ncomment ]]\nlocal x", true, comments)
	_, err := l.All()
	require.NoError(t, err)
	require.Equal(t, 1, comments.Len())
	require.True(t, comments.Head().Long)
}

func TestLexOperatorsGreedyMatch(t *testing.T) {
	l := lexer.New("a ~= b == c <= d ?. e ... f", false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	ks := kinds(toks)
	require.Contains(t, ks, lexer.NotEq)
	require.Contains(t, ks, lexer.EqEq)
	require.Contains(t, ks, lexer.Le)
	require.Contains(t, ks, lexer.QDot)
	require.Contains(t, ks, lexer.Ellipsis)
}

func TestLexBacktickInterpolation(t *testing.T) {
	l := lexer.New("`hello $name world`", false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	require.Equal(t, []lexer.Kind{
		lexer.InterpHoleL, lexer.Ident, lexer.Backtick, lexer.EOF,
	}, kinds(toks))
	require.Equal(t, "hello ", toks[0].Str)
	require.Equal(t, "name", toks[0].Text)
	require.Equal(t, "name", toks[1].Text)
	require.Equal(t, " world", toks[2].Str)
}

func TestLexBacktickExprHole(t *testing.T) {
	l := lexer.New("`v=$(f(x)) done`", false, nil)
	toks, err := l.All()
	require.NoError(t, err)
	require.Equal(t, []lexer.Kind{
		lexer.InterpHoleL, lexer.Ident, lexer.LParen, lexer.Ident,
		lexer.RParen, lexer.InterpHoleR, lexer.Backtick, lexer.EOF,
	}, kinds(toks))
	require.Equal(t, "v=", toks[0].Str)
	require.Equal(t, "(", toks[0].Text)
	require.Equal(t, " done", toks[6].Str)
}

func TestLexUnterminatedStringError(t *testing.T) {
	l := lexer.New(`"unterminated`, false, nil)
	_, err := l.All()
	require.Error(t, err)
}
