package parser

import (
	"strings"

	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/bytecode"
)

// emitExprInto emits the bytecode that evaluates n and leaves its
// result in reg. This is the single dispatch point every expression
// production in stmt.go/expr.go routes through.
func (p *Parser) emitExprInto(n *ast.Node, reg int) {
	if n == nil {
		p.em.Emit(bytecode.OpLoadNil, reg, 0, 0, 0)
		return
	}
	switch n.Kind {
	case ast.KindNil:
		p.em.Emit(bytecode.OpLoadNil, reg, 0, 0, n.Line)
	case ast.KindTrue:
		p.em.Emit(bytecode.OpLoadBool, reg, 1, 0, n.Line)
	case ast.KindFalse:
		p.em.Emit(bytecode.OpLoadBool, reg, 0, 0, n.Line)
	case ast.KindNumber:
		var k int
		if n.IsFloat {
			k = p.em.Constant(n.FloatVal)
		} else {
			k = p.em.Constant(n.IntVal)
		}
		p.em.Emit(bytecode.OpLoadConst, reg, k, 0, n.Line)
	case ast.KindString:
		k := p.em.Constant(n.Text)
		p.em.Emit(bytecode.OpLoadConst, reg, k, 0, n.Line)
	case ast.KindVararg:
		p.em.Emit(bytecode.OpVararg, reg, 1, 0, n.Line)
	case ast.KindName:
		p.emitNameInto(n, reg)
	case ast.KindField:
		p.emitFieldInto(n, reg)
	case ast.KindIndex:
		objReg := p.em.Reserve(1)
		p.emitExprInto(n.Left, objReg)
		idxReg := p.em.Reserve(1)
		p.emitExprInto(n.Right, idxReg)
		p.em.Emit(bytecode.OpGetIndex, reg, objReg, idxReg, n.Line)
		p.em.Free(objReg)
	case ast.KindSlice:
		p.emitSliceInto(n, reg)
	case ast.KindBinop:
		p.emitBinopInto(n, reg)
	case ast.KindUnop:
		p.emitUnopInto(n, reg)
	case ast.KindCallExpr:
		p.emitCallInto(n, reg)
	case ast.KindMethodCall:
		p.emitMethodCallInto(n, reg)
	case ast.KindTable:
		p.emitTableInto(n, reg)
	case ast.KindFuncExpr:
		p.em.Emit(bytecode.OpClosure, reg, 0, 0, n.Line)
	case ast.KindOptChain:
		p.emitOptChainInto(n, reg)
	case ast.KindInterp:
		p.emitInterp(n, reg)
	case ast.KindEnum:
		k := p.em.Constant(n)
		p.em.Emit(bytecode.OpLoadConst, reg, k, 0, n.Line)
	case ast.KindCatchExpr:
		// codegen for the protected body already happened while
		// parsing (catch brackets the code as it is parsed); the
		// result sits in the register parseCatchExpr recorded, so only
		// a move into the caller's slot remains.
		if src, ok := p.catchRegs[n]; ok {
			if src != reg {
				p.em.Emit(bytecode.OpMove, reg, src, 0, n.Line)
			}
		} else {
			p.em.Emit(bytecode.OpLoadNil, reg, 0, 0, n.Line)
		}
	default:
		p.em.Emit(bytecode.OpLoadNil, reg, 0, 0, n.Line)
	}
}

func (p *Parser) emitNameInto(n *ast.Node, reg int) {
	if lv, ok := p.fs.resolve(n.Name); ok {
		if lv.group != nil {
			p.failSemantic(n.Line, "group %q used as a value", n.Name)
		}
		p.em.Emit(bytecode.OpMove, reg, lv.reg, 0, n.Line)
		return
	}
	p.em.Emit(bytecode.OpGetGlobal, reg, p.em.Constant(n.Name), 0, n.Line)
}

// emitFieldInto handles `recv.name`, resolving compile-time group-field
// access first.
func (p *Parser) emitFieldInto(n *ast.Node, reg int) {
	if gr, ok := p.groupFieldReg(n); ok {
		p.em.Emit(bytecode.OpMove, reg, gr, 0, n.Line)
		return
	}
	objReg := p.em.Reserve(1)
	p.emitExprInto(n.Left, objReg)
	p.em.Emit(bytecode.OpGetField, reg, objReg, p.em.Constant(n.Name), n.Line)
	p.em.Free(objReg)
}

// groupFieldReg resolves a possibly nested field chain rooted at a
// local group binding to the register of its leaf, using the flattened
// dotted path subgroup declaration recorded.
func (p *Parser) groupFieldReg(n *ast.Node) (int, bool) {
	var parts []string
	cur := n
	for cur != nil && cur.Kind == ast.KindField {
		parts = append(parts, cur.Name)
		cur = cur.Left
	}
	if cur == nil || cur.Kind != ast.KindName {
		return 0, false
	}
	lv, ok := p.fs.resolve(cur.Name)
	if !ok || lv.group == nil {
		return 0, false
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return lv.group.Reg(strings.Join(parts, "."))
}

// emitSliceInto loads both endpoints into an adjacent register pair
// (nil where omitted) so OpSlice's C operand names the pair's base.
func (p *Parser) emitSliceInto(n *ast.Node, reg int) {
	objReg := p.em.Reserve(1)
	p.emitExprInto(n.Left, objReg)
	pair := p.em.Reserve(2)
	p.emitExprInto(n.Cond, pair)
	p.emitExprInto(n.Step, pair+1)
	p.em.Emit(bytecode.OpSlice, reg, objReg, pair, n.Line)
	p.em.Free(objReg)
}

var binopcodes = map[string]bytecode.Op{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod, "^": bytecode.OpPow,
	"..": bytecode.OpConcat, "==": bytecode.OpEq, "<": bytecode.OpLt,
	"<=": bytecode.OpLe,
}

func (p *Parser) emitBinopInto(n *ast.Node, reg int) {
	switch n.Op {
	case "and":
		p.emitExprInto(n.Left, reg)
		j := p.em.Emit(bytecode.OpJumpIfFalse, reg, 0, 0, n.Line)
		p.emitExprInto(n.Right, reg)
		p.em.Patch(j, p.em.Here())
		return
	case "or":
		p.emitExprInto(n.Left, reg)
		j := p.em.Emit(bytecode.OpJumpIfTrue, reg, 0, 0, n.Line)
		p.emitExprInto(n.Right, reg)
		p.em.Patch(j, p.em.Here())
		return
	case "~=":
		lreg := p.em.Reserve(1)
		p.emitExprInto(n.Left, lreg)
		rreg := p.em.Reserve(1)
		p.emitExprInto(n.Right, rreg)
		p.em.Emit(bytecode.OpEq, reg, lreg, rreg, n.Line)
		p.em.Emit(bytecode.OpNot, reg, reg, 0, n.Line)
		p.em.Free(lreg)
		return
	case ">":
		lreg := p.em.Reserve(1)
		p.emitExprInto(n.Right, lreg)
		rreg := p.em.Reserve(1)
		p.emitExprInto(n.Left, rreg)
		p.em.Emit(bytecode.OpLt, reg, lreg, rreg, n.Line)
		p.em.Free(lreg)
		return
	case ">=":
		lreg := p.em.Reserve(1)
		p.emitExprInto(n.Right, lreg)
		rreg := p.em.Reserve(1)
		p.emitExprInto(n.Left, rreg)
		p.em.Emit(bytecode.OpLe, reg, lreg, rreg, n.Line)
		p.em.Free(lreg)
		return
	}
	op, ok := binopcodes[n.Op]
	if !ok {
		op = bytecode.OpAdd
	}
	lreg := p.em.Reserve(1)
	p.emitExprInto(n.Left, lreg)
	rreg := p.em.Reserve(1)
	p.emitExprInto(n.Right, rreg)
	p.em.Emit(op, reg, lreg, rreg, n.Line)
	p.em.Free(lreg)
}

func (p *Parser) emitUnopInto(n *ast.Node, reg int) {
	operandReg := p.em.Reserve(1)
	p.emitExprInto(n.Left, operandReg)
	switch n.Op {
	case "-":
		p.em.Emit(bytecode.OpUnm, reg, operandReg, 0, n.Line)
	case "not":
		p.em.Emit(bytecode.OpNot, reg, operandReg, 0, n.Line)
	case "#":
		p.em.Emit(bytecode.OpLen, reg, operandReg, 0, n.Line)
	}
	p.em.Free(operandReg)
}

func (p *Parser) emitCallInto(n *ast.Node, reg int) {
	fnReg := p.em.Reserve(1)
	p.emitExprInto(n.Left, fnReg)
	argc := p.emitArgList(n.Child)
	p.em.Emit(bytecode.OpCall, fnReg, argc, 1, n.Line)
	p.em.Emit(bytecode.OpMove, reg, fnReg, 0, n.Line)
	p.em.Free(fnReg)
}

func (p *Parser) emitMethodCallInto(n *ast.Node, reg int) {
	recvReg := p.em.Reserve(1)
	p.emitExprInto(n.Recv, recvReg)
	fnReg := p.em.Reserve(1)
	p.em.Emit(bytecode.OpGetField, fnReg, recvReg, p.em.Constant(n.Name), n.Line)
	argc := p.emitArgList(n.Child) + 1 // self
	p.em.Emit(bytecode.OpCall, fnReg, argc, 1, n.Line)
	p.em.Emit(bytecode.OpMove, reg, fnReg, 0, n.Line)
	p.em.Free(recvReg)
}

func (p *Parser) emitArgList(head *ast.Node) int {
	n := ast.Len(head)
	base := p.em.Reserve(n)
	i := 0
	for c := head; c != nil; c = c.Next {
		p.emitExprInto(c, base+i)
		i++
	}
	return n
}

func (p *Parser) emitTableInto(n *ast.Node, reg int) {
	p.em.Emit(bytecode.OpNewTable, reg, 0, 0, n.Line)
	arrayIdx := int64(1)
	for f := n.Fields; f != nil; f = f.Next {
		valReg := p.em.Reserve(1)
		p.emitExprInto(f.Right, valReg)
		switch {
		case f.Name != "":
			p.em.Emit(bytecode.OpSetField, reg, p.em.Constant(f.Name), valReg, f.Line)
		case f.Left != nil:
			keyReg := p.em.Reserve(1)
			p.emitExprInto(f.Left, keyReg)
			p.em.Emit(bytecode.OpSetIndex, reg, keyReg, valReg, f.Line)
			p.em.Free(keyReg)
		default:
			p.em.Emit(bytecode.OpAppendField, reg, int(arrayIdx), valReg, f.Line)
			arrayIdx++
		}
		p.em.Free(valReg)
	}
}

// emitOptChainInto compiles an optional chain: all
// suffixes write into the same base register; after the receiver is
// evaluated, each subsequent suffix is guarded by a test/jump that
// short-circuits straight to the chain's end, relying on the base
// register already holding nil when the jump fires.
func (p *Parser) emitOptChainInto(n *ast.Node, reg int) {
	p.emitExprInto(n.Recv, reg)
	var endJumps []int
	for seg := n.Fields; seg != nil; seg = seg.Next {
		j := p.em.Emit(bytecode.OpTest, reg, 0, 0, seg.Line)
		endJumps = append(endJumps, j)
		switch seg.Kind {
		case ast.KindField:
			p.em.Emit(bytecode.OpGetField, reg, reg, p.em.Constant(seg.Name), seg.Line)
		case ast.KindCallExpr:
			argc := p.emitArgList(seg.Child)
			p.em.Emit(bytecode.OpCall, reg, argc, 1, seg.Line)
		case ast.KindMethodCall:
			fnReg := p.em.Reserve(1)
			p.em.Emit(bytecode.OpGetField, fnReg, reg, p.em.Constant(seg.Name), seg.Line)
			argc := p.emitArgList(seg.Child) + 1
			p.em.Emit(bytecode.OpCall, fnReg, argc, 1, seg.Line)
			p.em.Emit(bytecode.OpMove, reg, fnReg, 0, seg.Line)
			p.em.Free(fnReg)
		}
	}
	p.patchAll(endJumps, p.em.Here())
}
