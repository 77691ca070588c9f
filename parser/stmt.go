package parser

import (
	"github.com/lus-lang/lus/ast"
	"github.com/lus-lang/lus/bytecode"
	"github.com/lus-lang/lus/lexer"
)

var blockEndKeywords = map[string]bool{
	"end": true, "else": true, "elseif": true, "until": true,
}

func (p *Parser) atBlockEnd(extra func() bool) bool {
	if p.check(lexer.EOF) {
		return true
	}
	if p.cur().Kind == lexer.Keyword && blockEndKeywords[p.cur().Text] {
		return true
	}
	return extra != nil && extra()
}

// parseBlockBody parses statements until isEnd reports true, returning
// the head of the Next-linked statement list. In recover mode, a
// statement whose parse panics with a *SyntaxError is recorded on the
// Container and parsing resumes at the next token that looks like a
// statement start; a *SemanticError still aborts the parse.
func (p *Parser) parseBlockBody(isEnd func() bool) *ast.Node {
	var head *ast.Node
	for !p.atBlockEnd(isEnd) {
		stmt, ok := p.parseStatementRecovering()
		if ok && stmt != nil {
			ast.Append(&head, stmt)
		}
		if !ok && !p.opts.Recover {
			break
		}
	}
	return head
}

func (p *Parser) parseStatementRecovering() (stmt *ast.Node, ok bool) {
	if !p.opts.Recover {
		return p.parseStatement(), true
	}
	defer func() {
		if r := recover(); r != nil {
			// semantic errors stay fatal even in recover mode; only
			// syntax errors degrade to a recorded partial tree
			e, isSyntax := r.(*SyntaxError)
			if !isSyntax {
				panic(r)
			}
			p.container.AddError(e.Line, e.Column, e.Message)
			p.resync()
			ok = false
		}
	}()
	return p.parseStatement(), true
}

var stmtStartKeywords = map[string]bool{
	"local": true, "if": true, "while": true, "repeat": true, "for": true,
	"function": true, "return": true, "break": true, "goto": true, "do": true,
	"catch": true,
}

// resync advances past the failing token until a plausible statement
// boundary, so recover-mode parsing can keep producing a partial
// tree.
func (p *Parser) resync() {
	for {
		t := p.cur()
		if t.Kind == lexer.EOF || t.Kind == lexer.Semi {
			return
		}
		if t.Kind == lexer.Keyword && (stmtStartKeywords[t.Text] || blockEndKeywords[t.Text]) {
			return
		}
		p.advance()
	}
}

func (p *Parser) parseStatement() *ast.Node {
	for p.match(lexer.Semi) {
	}
	t := p.cur()
	if t.Kind == lexer.Keyword {
		switch t.Text {
		case "local":
			return p.parseLocal()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "repeat":
			return p.parseRepeat()
		case "for":
			return p.parseFor()
		case "function":
			return p.parseFuncStat()
		case "return":
			return p.parseReturn()
		case "break":
			return p.parseBreak()
		case "goto":
			return p.parseGoto()
		case "do":
			return p.parseDo()
		case "catch":
			return p.parseCatchStat()
		case "provide":
			return p.parseProvide()
		}
	}
	if t.Kind == lexer.DColon {
		return p.parseLabel()
	}
	return p.parseExprOrAssignStat()
}

func (p *Parser) parseDo() *ast.Node {
	line := p.expectKeyword("do").Line
	n := ast.New(ast.KindDo, line)
	base := p.reserveScopeMarker()
	p.fs.pushBlock(false, base)
	n.Child = p.parseBlockBody(nil)
	p.fs.popBlock()
	p.em.Free(base)
	p.expectKeyword("end")
	n.EndLine = p.curLine()
	return n
}

func (p *Parser) reserveScopeMarker() int {
	return p.em.Reserve(0)
}

// ---- local / local-group / from ----

func (p *Parser) parseLocal() *ast.Node {
	line := p.expectKeyword("local").Line
	if p.checkKeyword("function") {
		return p.parseLocalFunc(line)
	}
	// local g <group> = { ... }
	if p.check(lexer.Ident) && p.peekAt(1).Kind == lexer.Lt && isGroupAttr(p.peekAt(2)) {
		return p.parseLocalGroup(line)
	}

	var names []string
	var attrs []string
	names = append(names, p.expect(lexer.Ident, "identifier").Text)
	attrs = append(attrs, p.parseAttrib())
	for p.match(lexer.Comma) {
		names = append(names, p.expect(lexer.Ident, "identifier").Text)
		attrs = append(attrs, p.parseAttrib())
	}

	if p.matchKeyword("from") {
		return p.parseFromDestructure(line, names)
	}

	n := ast.New(ast.KindLocal, line)
	nameList := ast.New(ast.KindNameList, line)
	var nlHead *ast.Node
	for _, nm := range names {
		nn := ast.New(ast.KindName, line)
		nn.Name = nm
		ast.Append(&nlHead, nn)
	}
	nameList.Child = nlHead
	n.Params = nameList

	var exprHead *ast.Node
	var exprs []*ast.Node
	if p.match(lexer.Assign) {
		exprs = p.parseExprList()
		for _, e := range exprs {
			ast.Append(&exprHead, e)
		}
	}
	n.Child = exprHead

	for i, nm := range names {
		reg := p.em.Reserve(1)
		if i < len(exprs) {
			p.emitExprInto(exprs[i], reg)
		} else {
			p.em.Emit(bytecode.OpLoadNil, reg, 0, 0, line)
		}
		p.fs.declareLocal(nm, reg, nil)
		if attrs[i] == "const" {
			p.fs.markConst()
		}
	}
	n.EndLine = line
	return n
}

func isGroupAttr(name lexer.Token) bool {
	return name.Kind == lexer.Keyword && name.Text == "group"
}

func (p *Parser) parseAttrib() string {
	if p.match(lexer.Lt) {
		name := p.expect(lexer.Ident, "attribute").Text
		p.expect(lexer.Gt, ">")
		if name != "const" && name != "close" {
			p.failSemantic(p.curLine(), "unknown attribute %q", name)
		}
		return name
	}
	return ""
}

// parseFromDestructure handles `from` destructuring:
// `local a, b from t` desugars to `local a, b = t.a, t.b`, reserving
// target registers before evaluating the source so each GETFIELD writes
// directly into its slot.
func (p *Parser) parseFromDestructure(line int, names []string) *ast.Node {
	n := ast.New(ast.KindFrom, line)
	var nlHead *ast.Node
	for _, nm := range names {
		nn := ast.New(ast.KindName, line)
		nn.Name = nm
		ast.Append(&nlHead, nn)
	}
	n.Params = &ast.Node{Kind: ast.KindNameList, Line: line, Child: nlHead}

	srcExpr := p.parsePrefixExpr()
	n.Right = srcExpr

	regs := make([]int, len(names))
	for i := range names {
		regs[i] = p.em.Reserve(1)
	}
	srcReg := p.em.Reserve(1)
	p.emitExprInto(srcExpr, srcReg)
	for i, nm := range names {
		k := p.em.Constant(nm)
		p.em.Emit(bytecode.OpGetField, regs[i], srcReg, k, line)
		p.fs.declareLocal(nm, regs[i], nil)
	}
	n.EndLine = line
	return n
}

// parseLocalGroup handles `local g <group> = {...}`: each field of
// the constructor becomes a real local bound to its own register, with
// a side GroupDesc recording field -> register so `g.x` resolves at
// compile time instead of through a runtime table lookup.
func (p *Parser) parseLocalGroup(line int) *ast.Node {
	groupName := p.expect(lexer.Ident, "identifier").Text
	p.expect(lexer.Lt, "<")
	p.expectKeyword("group")
	p.expect(lexer.Gt, ">")
	p.expect(lexer.Assign, "=")

	n := ast.New(ast.KindLocal, line)
	n.Name = groupName
	desc := ast.NewGroupDesc()
	tbl := p.parseGroupCtor(groupName, "", desc)
	n.Fields = tbl.Fields
	n.Group = desc
	p.fs.declareLocal(groupName, -1, desc)
	n.EndLine = p.curLine()
	return n
}

// parseGroupCtor parses one level of a group constructor. Subgroups
// recurse with a dotted prefix, so every leaf field lands in desc under
// its flattened path ("sub.a") bound to its own register.
func (p *Parser) parseGroupCtor(groupName, prefix string, desc *ast.GroupDesc) *ast.Node {
	lb := p.expect(lexer.LBrace, "{")
	tbl := ast.New(ast.KindTable, lb.Line)
	var head *ast.Node
	for !p.check(lexer.RBrace) {
		fline := p.curLine()
		fname := p.expect(lexer.Ident, "field name").Text
		p.expect(lexer.Assign, "=")
		fn := ast.New(ast.KindTableField, fline)
		fn.Name = fname
		if p.check(lexer.LBrace) {
			fn.Right = p.parseGroupCtor(groupName, prefix+fname+".", desc)
		} else {
			val := p.parseExpr()
			reg := p.em.Reserve(1)
			p.emitExprInto(val, reg)
			desc.Add(prefix+fname, reg)
			p.fs.declareLocal(groupName+"."+prefix+fname, reg, nil)
			fn.Right = val
		}
		ast.Append(&head, fn)

		if !p.match(lexer.Comma) && !p.match(lexer.Semi) {
			break
		}
	}
	p.expect(lexer.RBrace, "}")
	tbl.Fields = head
	tbl.EndLine = p.curLine()
	return tbl
}

func (p *Parser) parseLocalFunc(line int) *ast.Node {
	p.expectKeyword("function")
	name := p.expect(lexer.Ident, "identifier").Text
	reg := p.em.Reserve(1)
	p.fs.declareLocal(name, reg, nil)

	n := ast.New(ast.KindLocalFunc, line)
	n.Name = name
	n.Body = p.parseFuncBody(line, false)
	p.em.Emit(bytecode.OpClosure, reg, p.em.Constant(name), 0, line)
	n.EndLine = p.curLine()
	return n
}

// ---- assignment statements & assignment conditions ----

func (p *Parser) parseExprOrAssignStat() *ast.Node {
	line := p.curLine()
	first := p.parseSuffixedExpr()

	if p.check(lexer.Comma) || p.check(lexer.Assign) {
		targets := []*ast.Node{first}
		for p.match(lexer.Comma) {
			targets = append(targets, p.parseSuffixedExpr())
		}
		p.expect(lexer.Assign, "=")
		values := p.parseExprList()
		return p.buildAssign(line, targets, values)
	}

	if first.Kind != ast.KindCallExpr && first.Kind != ast.KindMethodCall && first.Kind != ast.KindCatchExpr {
		p.fail("syntax error: expression statement must be a call")
	}
	n := ast.New(ast.KindCallStat, line)
	n.Child = first
	n.EndLine = line
	return n
}

func (p *Parser) buildAssign(line int, targets []*ast.Node, values []*ast.Node) *ast.Node {
	n := ast.New(ast.KindAssign, line)
	var tHead, vHead *ast.Node
	for _, t := range targets {
		ast.Append(&tHead, t)
	}
	for _, v := range values {
		ast.Append(&vHead, v)
	}
	n.Left = tHead
	n.Right = vHead

	for i, tgt := range targets {
		var v *ast.Node
		if i < len(values) {
			v = values[i]
		}
		p.emitAssignTo(tgt, v, line)
	}
	n.EndLine = line
	return n
}

func (p *Parser) emitAssignTo(tgt, val *ast.Node, line int) {
	// group overwrite never constructs a table, so it is resolved before
	// the ordinary value evaluation below
	if tgt.Kind == ast.KindName {
		if lv, ok := p.fs.resolve(tgt.Name); ok && lv.group != nil {
			p.emitGroupOverwrite(lv, val, line)
			return
		}
	}

	tmp := p.em.Reserve(1)
	if val != nil {
		p.emitExprInto(val, tmp)
	} else {
		p.em.Emit(bytecode.OpLoadNil, tmp, 0, 0, line)
	}
	switch tgt.Kind {
	case ast.KindName:
		if lv, ok := p.fs.resolve(tgt.Name); ok {
			if lv.isConst {
				p.failSemantic(line, "cannot assign to const variable %q", tgt.Name)
			}
			p.em.Emit(bytecode.OpMove, lv.reg, tmp, 0, line)
		} else {
			p.em.Emit(bytecode.OpSetGlobal, tmp, p.em.Constant(tgt.Name), 0, line)
		}
	case ast.KindField:
		// group fields are plain registers, no table write involved
		if reg, ok := p.groupFieldReg(tgt); ok {
			p.em.Emit(bytecode.OpMove, reg, tmp, 0, line)
			break
		}
		objReg := p.em.Reserve(1)
		p.emitExprInto(tgt.Left, objReg)
		p.em.Emit(bytecode.OpSetField, objReg, p.em.Constant(tgt.Name), tmp, line)
		p.em.Free(objReg)
	case ast.KindIndex:
		objReg := p.em.Reserve(1)
		p.emitExprInto(tgt.Left, objReg)
		idxReg := p.em.Reserve(1)
		p.emitExprInto(tgt.Right, idxReg)
		p.em.Emit(bytecode.OpSetIndex, objReg, idxReg, tmp, line)
		p.em.Free(objReg)
	default:
		p.failSemantic(line, "cannot assign to this expression")
	}
	p.em.Free(tmp)
}

// emitGroupOverwrite compiles `g = { x = newv }`: a field-wise move
// into the group's registers. Only a constructor or another group of
// the same shape may be assigned to a group binding, and a constructor
// field absent from the original group is rejected; this is the one
// assignment form that rejects unknown keys.
func (p *Parser) emitGroupOverwrite(lv localVar, val *ast.Node, line int) {
	if val == nil {
		p.failSemantic(line, "cannot assign nil to group %q", lv.name)
	}
	switch val.Kind {
	case ast.KindTable:
		p.emitGroupFieldMoves(lv, "", val)
	case ast.KindName:
		src, ok := p.fs.resolve(val.Name)
		if !ok || src.group == nil {
			p.failSemantic(line, "only a constructor or another group may be assigned to group %q", lv.name)
		}
		for _, field := range lv.group.Order {
			dst, _ := lv.group.Reg(field)
			srcReg, ok := src.group.Reg(field)
			if !ok {
				p.failSemantic(line, "group %q has no field %q", val.Name, field)
			}
			p.em.Emit(bytecode.OpMove, dst, srcReg, 0, line)
		}
	default:
		p.failSemantic(line, "only a constructor or another group may be assigned to group %q", lv.name)
	}
}

// emitGroupFieldMoves walks one level of an overwrite constructor,
// recursing into nested constructors with a dotted prefix to reach
// subgroup leaves.
func (p *Parser) emitGroupFieldMoves(lv localVar, prefix string, tbl *ast.Node) {
	for f := tbl.Fields; f != nil; f = f.Next {
		if f.Name == "" {
			p.failSemantic(f.Line, "group overwrite requires named fields")
		}
		key := prefix + f.Name
		if f.Right != nil && f.Right.Kind == ast.KindTable {
			p.emitGroupFieldMoves(lv, key+".", f.Right)
			continue
		}
		reg, ok := lv.group.Reg(key)
		if !ok {
			p.failSemantic(f.Line, "field %q is not part of group %q", key, lv.name)
		}
		tmp := p.em.Reserve(1)
		p.emitExprInto(f.Right, tmp)
		p.em.Emit(bytecode.OpMove, reg, tmp, 0, f.Line)
		p.em.Free(tmp)
	}
}

// parseAssignCond parses the `x = expr` condition form used by `if`/
// `while`: it returns the condition node plus the names of the
// declared locals (already bound, live through the construct), from
// which emitFalsePathJumps builds the falsiness test. Falls back to an ordinary
// boolean expression when the token after a name isn't a bare `=`.
func (p *Parser) parseAssignCond() (*ast.Node, []string) {
	if p.check(lexer.Ident) && p.peekAt(1).Kind == lexer.Assign {
		line := p.curLine()
		var names []string
		n := ast.New(ast.KindAssign, line)
		var condHead *ast.Node
		for {
			name := p.expect(lexer.Ident, "identifier").Text
			p.expect(lexer.Assign, "=")
			val := p.parseExpr()
			reg := p.em.Reserve(1)
			p.emitExprInto(val, reg)
			p.fs.declareLocal(name, reg, nil)
			names = append(names, name)

			nn := ast.New(ast.KindName, line)
			nn.Name = name
			nn.Right = val
			ast.Append(&condHead, nn)

			if !p.match(lexer.Comma) {
				break
			}
		}
		n.Child = condHead
		return n, names
	}
	return p.parseExpr(), nil
}

// ---- if / while / repeat / for ----

func (p *Parser) parseIf() *ast.Node {
	line := p.expectKeyword("if").Line
	n := ast.New(ast.KindIf, line)

	base := p.reserveScopeMarker()
	p.fs.pushBlock(false, base)
	cond, declared := p.parseAssignCond()
	n.Cond = cond

	p.expectKeyword("then")
	falseJumps := p.emitFalsePathJumps(cond, declared, line)

	var head *ast.Node
	thenBlk := ast.New(ast.KindBlock, p.curLine())
	thenBlk.Child = p.parseBlockBody(nil)
	ast.Append(&head, thenBlk)

	endJumps := []int{p.em.Emit(bytecode.OpJump, 0, 0, 0, p.curLine())}
	p.patchAll(falseJumps, p.em.Here())

	for p.checkKeyword("elseif") {
		eline := p.expectKeyword("elseif").Line
		econd, edeclared := p.parseAssignCond()
		p.expectKeyword("then")
		efalse := p.emitFalsePathJumps(econd, edeclared, eline)
		eb := ast.New(ast.KindElseIf, eline)
		eb.Cond = econd
		eb.Child = p.parseBlockBody(nil)
		ast.Append(&head, eb)
		endJumps = append(endJumps, p.em.Emit(bytecode.OpJump, 0, 0, 0, p.curLine()))
		p.patchAll(efalse, p.em.Here())
	}
	if p.matchKeyword("else") {
		eb := ast.New(ast.KindElse, p.curLine())
		eb.Child = p.parseBlockBody(nil)
		ast.Append(&head, eb)
	}
	p.patchAll(endJumps, p.em.Here())
	p.expectKeyword("end")
	p.fs.popBlock()
	p.em.Free(base)

	n.Child = head
	n.EndLine = p.curLine()
	return n
}

// emitFalsePathJumps emits the false path of an assignment condition
// as a logical disjunction: if any declared variable is falsey, the
// condition is false. Returns the list of unpatched
// jump-pcs to the false branch.
func (p *Parser) emitFalsePathJumps(cond *ast.Node, declared []string, line int) []int {
	if len(declared) == 0 {
		r := p.em.Reserve(1)
		p.emitExprInto(cond, r)
		j := p.em.Emit(bytecode.OpJumpIfFalse, r, 0, 0, line)
		p.em.Free(r)
		return []int{j}
	}
	var jumps []int
	for _, name := range declared {
		lv, _ := p.fs.resolve(name)
		jumps = append(jumps, p.em.Emit(bytecode.OpJumpIfFalse, lv.reg, 0, 0, line))
	}
	return jumps
}

func (p *Parser) patchAll(pcs []int, target int) {
	for _, pc := range pcs {
		p.em.Patch(pc, target)
	}
}

func (p *Parser) parseWhile() *ast.Node {
	line := p.expectKeyword("while").Line
	n := ast.New(ast.KindWhile, line)
	loopStart := p.em.Here()

	base := p.reserveScopeMarker()
	blk := p.fs.pushBlock(true, base)
	cond, declared := p.parseAssignCond()
	n.Cond = cond
	p.expectKeyword("do")
	falseJumps := p.emitFalsePathJumps(cond, declared, line)

	n.Child = p.parseBlockBody(nil)
	p.em.Emit(bytecode.OpJump, 0, loopStart, 0, p.curLine())
	p.patchAll(falseJumps, p.em.Here())
	p.patchAll(blk.breakJumps, p.em.Here())
	p.fs.popBlock()
	p.em.Free(base)

	p.expectKeyword("end")
	n.EndLine = p.curLine()
	return n
}

func (p *Parser) parseRepeat() *ast.Node {
	line := p.expectKeyword("repeat").Line
	n := ast.New(ast.KindRepeat, line)
	loopStart := p.em.Here()

	base := p.reserveScopeMarker()
	blk := p.fs.pushBlock(true, base)
	n.Child = p.parseBlockBody(nil)
	p.expectKeyword("until")
	// the until condition may reference locals declared in the body.
	cond := p.parseExpr()
	n.Cond = cond
	r := p.em.Reserve(1)
	p.emitExprInto(cond, r)
	p.em.Emit(bytecode.OpJumpIfFalse, r, loopStart, 0, p.curLine())
	p.em.Free(r)
	p.patchAll(blk.breakJumps, p.em.Here())
	p.fs.popBlock()
	p.em.Free(base)
	n.EndLine = p.curLine()
	return n
}

func (p *Parser) parseFor() *ast.Node {
	line := p.expectKeyword("for").Line
	name := p.expect(lexer.Ident, "identifier").Text
	if p.check(lexer.Assign) {
		return p.parseForNum(line, name)
	}
	return p.parseForGen(line, name)
}

func (p *Parser) parseForNum(line int, name string) *ast.Node {
	p.expect(lexer.Assign, "=")
	start := p.parseExpr()
	p.expect(lexer.Comma, ",")
	stop := p.parseExpr()
	var step *ast.Node
	if p.match(lexer.Comma) {
		step = p.parseExpr()
	}
	p.expectKeyword("do")

	n := ast.New(ast.KindForNum, line)
	n.Name = name
	n.Left = start
	n.Right = stop
	n.Step = step

	base := p.reserveScopeMarker()
	blk := p.fs.pushBlock(true, base)
	ctrl := p.em.Reserve(3)
	p.emitExprInto(start, ctrl)
	p.emitExprInto(stop, ctrl+1)
	if step != nil {
		p.emitExprInto(step, ctrl+2)
	} else {
		p.em.Emit(bytecode.OpLoadConst, ctrl+2, p.em.Constant(int64(1)), 0, line)
	}
	loopReg := p.em.Reserve(1)
	p.fs.declareLocal(name, loopReg, nil)
	prep := p.em.Emit(bytecode.OpForPrep, ctrl, 0, 0, line)

	bodyStart := p.em.Here()
	n.Child = p.parseBlockBody(nil)
	p.em.Emit(bytecode.OpForLoop, ctrl, bodyStart, 0, p.curLine())
	p.em.Patch(prep, p.em.Here())

	p.patchAll(blk.breakJumps, p.em.Here())
	p.fs.popBlock()
	p.em.Free(base)
	p.expectKeyword("end")
	n.EndLine = p.curLine()
	return n
}

func (p *Parser) parseForGen(line int, firstName string) *ast.Node {
	names := []string{firstName}
	for p.match(lexer.Comma) {
		names = append(names, p.expect(lexer.Ident, "identifier").Text)
	}
	p.expectKeyword("in")
	exprs := p.parseExprList()
	p.expectKeyword("do")

	n := ast.New(ast.KindForGen, line)
	var nlHead *ast.Node
	for _, nm := range names {
		nn := ast.New(ast.KindName, line)
		nn.Name = nm
		ast.Append(&nlHead, nn)
	}
	n.Params = &ast.Node{Kind: ast.KindNameList, Line: line, Child: nlHead}
	var exHead *ast.Node
	for _, e := range exprs {
		ast.Append(&exHead, e)
	}
	n.Right = exHead

	base := p.reserveScopeMarker()
	blk := p.fs.pushBlock(true, base)
	ctrl := p.em.Reserve(3)
	for i := 0; i < 3; i++ {
		if i < len(exprs) {
			p.emitExprInto(exprs[i], ctrl+i)
		} else {
			p.em.Emit(bytecode.OpLoadNil, ctrl+i, 0, 0, line)
		}
	}
	loopStart := p.em.Here()
	varBase := p.em.Reserve(len(names))
	for i, nm := range names {
		p.fs.declareLocal(nm, varBase+i, nil)
	}
	p.em.Emit(bytecode.OpCall, ctrl, 2, len(names), line)
	endJump := p.em.Emit(bytecode.OpJumpIfFalse, varBase, 0, 0, line)

	n.Child = p.parseBlockBody(nil)
	p.em.Emit(bytecode.OpJump, 0, loopStart, 0, p.curLine())
	p.em.Patch(endJump, p.em.Here())

	p.patchAll(blk.breakJumps, p.em.Here())
	p.fs.popBlock()
	p.em.Free(base)
	p.expectKeyword("end")
	n.EndLine = p.curLine()
	return n
}

func (p *Parser) parseBreak() *ast.Node {
	line := p.expectKeyword("break").Line
	n := ast.New(ast.KindBreak, line)
	blk := p.fs.block
	for blk != nil && !blk.isLoop {
		blk = blk.parent
	}
	if blk == nil {
		p.failSemantic(line, "break outside a loop")
	}
	pc := p.em.Emit(bytecode.OpJump, 0, 0, 0, line)
	blk.breakJumps = append(blk.breakJumps, pc)
	n.EndLine = line
	return n
}

func (p *Parser) parseGoto() *ast.Node {
	line := p.expectKeyword("goto").Line
	name := p.expect(lexer.Ident, "identifier").Text
	n := ast.New(ast.KindGoto, line)
	n.Name = name
	pc := p.em.Emit(bytecode.OpJump, 0, -1, 0, line)
	p.fs.block.gotos = append(p.fs.block.gotos, pendingGoto{name: name, pc: pc, line: line})
	n.EndLine = line
	return n
}

func (p *Parser) parseLabel() *ast.Node {
	line := p.curLine()
	p.expect(lexer.DColon, "::")
	name := p.expect(lexer.Ident, "identifier").Text
	p.expect(lexer.DColon, "::")
	n := ast.New(ast.KindLabel, line)
	n.Name = name
	here := p.em.Here()
	for _, b := range blockChain(p.fs.block) {
		for _, l := range b.labels {
			if l.name == name {
				p.failSemantic(line, "label %q already defined", name)
			}
		}
	}
	p.fs.block.labels = append(p.fs.block.labels, labelEntry{name: name, pc: here})
	var remaining []pendingGoto
	for _, g := range allPendingGotos(p.fs.block) {
		if g.name == name {
			p.em.Patch(g.pc, here)
		} else {
			remaining = append(remaining, g)
		}
	}
	p.fs.block.gotos = remaining
	n.EndLine = line
	return n
}

func blockChain(b *blockScope) []*blockScope {
	var out []*blockScope
	for ; b != nil; b = b.parent {
		out = append(out, b)
	}
	return out
}

func allPendingGotos(b *blockScope) []pendingGoto {
	return b.gotos
}

// ---- return / catch-stat / provide ----

func (p *Parser) parseReturn() *ast.Node {
	line := p.expectKeyword("return").Line
	n := ast.New(ast.KindReturn, line)
	var exprs []*ast.Node
	if !p.atBlockEnd(nil) && !p.check(lexer.Semi) {
		exprs = p.parseExprList()
	}
	p.match(lexer.Semi)
	var head *ast.Node
	base := -1
	for i, e := range exprs {
		ast.Append(&head, e)
		r := p.em.Reserve(1)
		if i == 0 {
			base = r
		}
		p.emitExprInto(e, r)
	}
	n.Child = head
	if base < 0 {
		base = p.em.Reserve(0)
	}
	p.em.Emit(bytecode.OpReturn, base, len(exprs), 0, line)
	n.EndLine = line
	return n
}

// parseCatchStat handles `catch expr` / `catch[h] expr` used as a bare
// statement (its result discarded). The expression form (parseCatchExpr)
// is shared so `local ok, v = catch ...` reuses the same codegen.
func (p *Parser) parseCatchStat() *ast.Node {
	line := p.curLine()
	expr := p.parseCatchExpr()
	n := ast.New(ast.KindCatchStat, line)
	n.Child = expr
	n.EndLine = line
	return n
}

func (p *Parser) parseProvide() *ast.Node {
	line := p.expectKeyword("provide").Line
	n := ast.New(ast.KindProvide, line)
	if p.check(lexer.LBrace) {
		n.Right = p.parseTableConstructor()
	} else {
		n.Right = p.parseExpr()
	}
	n.EndLine = line
	return n
}

// ---- funcstat ----

func (p *Parser) parseFuncStat() *ast.Node {
	line := p.expectKeyword("function").Line
	nameLine := p.curLine()
	base := ast.New(ast.KindName, nameLine)
	base.Name = p.expect(lexer.Ident, "identifier").Text

	var target *ast.Node = base
	isMethod := false
	for p.check(lexer.Dot) || p.check(lexer.Colon) {
		isMethod = p.check(lexer.Colon)
		p.advance()
		field := ast.New(ast.KindField, p.curLine())
		field.Left = target
		field.Name = p.expect(lexer.Ident, "identifier").Text
		target = field
		if isMethod {
			break
		}
	}

	n := ast.New(ast.KindFuncStat, line)
	n.Left = target
	if isMethod {
		n.Op = ":"
	}
	n.Body = p.parseFuncBody(line, isMethod)

	tmp := p.em.Reserve(1)
	p.em.Emit(bytecode.OpClosure, tmp, 0, 0, line)
	p.emitAssignTo(target, nil, line)
	p.em.Free(tmp)

	n.EndLine = p.curLine()
	return n
}

// parseFuncBody parses `(params) block end`, returning a KindFuncExpr
// node whose Params hold the parameter list and whose Child holds the
// body statements. Registers for params are reserved in a
// fresh function scope.
func (p *Parser) parseFuncBody(line int, isMethod bool) *ast.Node {
	fn := ast.New(ast.KindFuncExpr, line)
	parentFS := p.fs
	p.fs = newFuncState(parentFS)

	p.expect(lexer.LParen, "(")
	var params []string
	if isMethod {
		params = append(params, "self")
	}
	vararg := false
	if !p.check(lexer.RParen) {
		for {
			if p.match(lexer.Ellipsis) {
				vararg = true
				break
			}
			params = append(params, p.expect(lexer.Ident, "identifier").Text)
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	p.expect(lexer.RParen, ")")
	p.fs.vararg = vararg

	var plHead *ast.Node
	for _, nm := range params {
		reg := p.em.Reserve(1)
		p.fs.declareLocal(nm, reg, nil)
		pn := ast.New(ast.KindParam, line)
		pn.Name = nm
		ast.Append(&plHead, pn)
	}
	if vararg {
		// keep the explicit marker so the formatter can reproduce it
		pn := ast.New(ast.KindParam, line)
		pn.Name = "..."
		ast.Append(&plHead, pn)
	}
	fn.Params = &ast.Node{Kind: ast.KindNameList, Line: line, Child: plHead}

	fn.Child = p.parseBlockBody(nil)
	p.em.Emit(bytecode.OpReturn, 0, 0, 0, p.curLine())
	p.expectKeyword("end")
	fn.EndLine = p.curLine()
	if gs := p.fs.block.gotos; len(gs) > 0 {
		p.failSemantic(gs[0].line, "no visible label %q for goto", gs[0].name)
	}

	p.fs = parentFS
	return fn
}
