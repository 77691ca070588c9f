// Package lexer is the tokenizer the parser consumes. It is
// deliberately small: tokens carry a position and a semantic payload,
// nothing else.
package lexer

// Kind enumerates token categories, including the extended-grammar
// tokens (optional-chain dot, interpolation holes, backtick, dollar).
// The extended-grammar words (catch, enum, from, group, provide) lex as
// Keyword.
type Kind int

const (
	EOF Kind = iota
	Ident
	Keyword
	Int
	Float
	String      // a quoted or long-bracket string literal
	InterpHoleL // '$' or '$(' opening an interpolation hole; Str carries the preceding literal segment
	InterpHoleR // ')' closing a '$(' hole (only emitted for the paren form)

	// punctuation / operators
	Plus, Minus, Star, Slash, Percent, Caret, Hash
	EqEq, NotEq, Lt, Gt, Le, Ge
	Assign, Semi, Colon, DColon, Comma, Dot, DotDot, Ellipsis
	LParen, RParen, LBrace, RBrace, LBrack, RBrack
	QDot // ?.
	Backtick
	Dollar
)

var keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
	// extended-grammar keywords
	"catch": true, "enum": true, "from": true, "group": true, "provide": true,
}

// Token is one lexed unit: a Kind, its source span (Line/Column are
// 1-based), and whatever semantic payload (string/number) applies.
type Token struct {
	Kind   Kind
	Line   int
	Column int
	Text   string // identifier name, keyword spelling, raw operator text
	Str    string // decoded string-literal / interp-literal contents
	Quote  rune   // original quote char for String ('"', '\'', '`', 0 for long bracket)

	IntVal   int64
	FloatVal float64
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Int, Float:
		return "number"
	case String:
		return "string"
	default:
		return "token"
	}
}
