package format

import (
	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/bytecode"
	"github.com/lus-lang/lus/parser"
)

// Source formats raw source text: parse with AST capture and comment
// retention on, then render.
func Source(source, chunkName string, opts Options) (string, error) {
	container, err := parser.Parse(source, bytecode.NewChunk(), parser.Options{
		ChunkName:       chunkName,
		IncludeComments: true,
		CaptureAST:      true,
	})
	if err != nil {
		return "", err
	}
	if container.Root == nil {
		container.Root = ast.New(ast.KindChunk, 1)
	}
	return Format(container, opts)
}
