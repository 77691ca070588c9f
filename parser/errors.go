package parser

import "fmt"

// SyntaxError is a lexical/syntactic error: raised with
// source location. Outside recover mode it unwinds Parse; inside
// recover mode it is instead recorded on the ast.Container and parsing
// continues from the next statement boundary.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// SemanticError is a compile-time semantic error (unknown attribute,
// duplicate label, group misuse). Always fatal, even in recover mode.
type SemanticError struct {
	Line    int
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Message)
}
