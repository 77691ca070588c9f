// Package ast implements the tagged-union AST node tree:
// parent/child/sibling links over a closed set of node kinds, plus the
// side comment list the formatter and linter consume.
package ast

// Kind discriminates AST node variants.
type Kind int

const (
	KindInvalid Kind = iota

	KindChunk
	KindBlock
	KindLocal
	KindGlobal
	KindAssign
	KindIf
	KindWhile
	KindRepeat
	KindForNum
	KindForGen
	KindFuncStat
	KindLocalFunc
	KindGlobalFunc
	KindReturn
	KindCallStat
	KindBreak
	KindGoto
	KindLabel
	KindCatchStat
	KindDo
	KindNil
	KindTrue
	KindFalse
	KindNumber
	KindString
	KindVararg
	KindName
	KindIndex
	KindField
	KindBinop
	KindUnop
	KindTable
	KindFuncExpr
	KindCallExpr
	KindMethodCall
	KindEnum
	KindOptChain
	KindFrom
	KindCatchExpr
	KindSlice
	KindParam
	KindNameList
	KindExpList
	KindElseIf
	KindElse
	KindTableField
	KindInterp
	KindDoExpr
	KindProvide
	KindErrorStat

	kindSentinel // count marker, not a real variant
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindChunk:       "chunk",
	KindBlock:       "block",
	KindLocal:       "local",
	KindGlobal:      "global",
	KindAssign:      "assign",
	KindIf:          "if",
	KindWhile:       "while",
	KindRepeat:      "repeat",
	KindForNum:      "fornum",
	KindForGen:      "forgen",
	KindFuncStat:    "funcstat",
	KindLocalFunc:   "localfunc",
	KindGlobalFunc:  "globalfunc",
	KindReturn:      "return",
	KindCallStat:    "callstat",
	KindBreak:       "break",
	KindGoto:        "goto",
	KindLabel:       "label",
	KindCatchStat:   "catchstat",
	KindDo:          "do",
	KindNil:         "nil",
	KindTrue:        "true",
	KindFalse:       "false",
	KindNumber:      "number",
	KindString:      "string",
	KindVararg:      "vararg",
	KindName:        "name",
	KindIndex:       "index",
	KindField:       "field",
	KindBinop:       "binop",
	KindUnop:        "unop",
	KindTable:       "table",
	KindFuncExpr:    "funcexpr",
	KindCallExpr:    "callexpr",
	KindMethodCall:  "methodcall",
	KindEnum:        "enum",
	KindOptChain:    "optchain",
	KindFrom:        "from",
	KindCatchExpr:   "catchexpr",
	KindSlice:       "slice",
	KindParam:       "param",
	KindNameList:    "namelist",
	KindExpList:     "explist",
	KindElseIf:      "elseif",
	KindElse:        "else",
	KindTableField:  "tablefield",
	KindInterp:      "interp",
	KindDoExpr:      "doexpr",
	KindProvide:     "provide",
	KindErrorStat:   "error_stat",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}
