package parser

import "github.com/lus-lang/lus/ast"

// localVar is one entry of the parser's active-variable list: a name bound
// to the register the Emitter allocated for it, plus the local group it
// belongs to, if any.
type localVar struct {
	name    string
	reg     int
	group   *ast.GroupDesc
	isConst bool
}

// pendingGoto is an unresolved goto, tracked on the pending-goto list
// until its label is seen or the function ends.
type pendingGoto struct {
	name string
	pc   int
	line int
}

// labelEntry records a resolved label's bytecode position.
type labelEntry struct {
	name string
	pc   int
}

// blockScope is one lexical block within a function: the local-variable
// high-water mark at entry (so locals declared inside can be discarded
// on exit), whether it's loop-shaped (so `break` has somewhere to jump),
// and the block's own labels/gotos.
type blockScope struct {
	parent     *blockScope
	localBase  int
	regBase    int
	isLoop     bool
	breakJumps []int
	labels     []labelEntry
	gotos      []pendingGoto
}

// funcState is one frame of the function state stack: the
// active-variable list, goto/label tracking, and the current block
// chain. Functions nest via parent.
type funcState struct {
	parent *funcState
	locals []localVar
	block  *blockScope
	vararg bool
}

func newFuncState(parent *funcState) *funcState {
	fs := &funcState{parent: parent}
	fs.block = &blockScope{}
	return fs
}

func (fs *funcState) pushBlock(isLoop bool, regBase int) *blockScope {
	b := &blockScope{parent: fs.block, localBase: len(fs.locals), regBase: regBase, isLoop: isLoop}
	fs.block = b
	return b
}

func (fs *funcState) popBlock() *blockScope {
	b := fs.block
	fs.locals = fs.locals[:b.localBase]
	fs.block = b.parent
	// unresolved gotos bubble up so an enclosing block's label can
	// still capture them; whatever survives to function end is an error
	if fs.block != nil {
		fs.block.gotos = append(fs.block.gotos, b.gotos...)
	}
	return b
}

// declareLocal records a new local variable bound to reg in the current
// block.
func (fs *funcState) declareLocal(name string, reg int, group *ast.GroupDesc) {
	fs.locals = append(fs.locals, localVar{name: name, reg: reg, group: group})
}

// markConst flags the most recently declared local as <const>.
func (fs *funcState) markConst() {
	fs.locals[len(fs.locals)-1].isConst = true
}

// resolve looks up name among this function's locals (innermost first).
func (fs *funcState) resolve(name string) (localVar, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return fs.locals[i], true
		}
	}
	return localVar{}, false
}
