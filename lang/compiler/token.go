package compiler

// tokenKind enumerates the lexical token kinds produced by the scanner half
// of the single-pass compiler.
type tokenKind uint8

//nolint:revive
const (
	tEOF tokenKind = iota
	tIllegal

	tIdent
	tNumber
	tString
	tChar

	// punctuation
	tPlus
	tMinus
	tStar
	tSlash
	tPercent
	tDotDot // ..
	tEqEq
	tNotEq
	tLt
	tLe
	tGt
	tGe
	tEq
	tBang
	tHash
	tPlusPlus
	tMinusMinus
	tLParen
	tRParen
	tLBrace
	tRBrace
	tLBrack
	tRBrack
	tComma
	tDot
	tColon
	tSemi
	tNewline

	// keywords
	tAnd
	tOr
	tNot
	tTrue
	tFalse
	tNil
	tLocal
	tGlobal
	tVar
	tIf
	tElseif
	tElse
	tEnd
	tWhile
	tDo
	tFor
	tIn
	tFunction
	tReturn
)

var keywords = map[string]tokenKind{
	"and":      tAnd,
	"or":       tOr,
	"not":      tNot,
	"true":     tTrue,
	"false":    tFalse,
	"nil":      tNil,
	"local":    tLocal,
	"global":   tGlobal,
	"var":      tVar,
	"if":       tIf,
	"elseif":   tElseif,
	"else":     tElse,
	"end":      tEnd,
	"while":    tWhile,
	"do":       tDo,
	"for":      tFor,
	"in":       tIn,
	"function": tFunction,
	"return":   tReturn,
}

// token is one lexeme plus its source line and, for literal kinds, its
// decoded value.
type token struct {
	kind tokenKind
	text string
	line int

	num float64
	ch  byte
}

func (t tokenKind) String() string {
	switch t {
	case tEOF:
		return "EOF"
	case tIllegal:
		return "illegal token"
	case tIdent:
		return "identifier"
	case tNumber:
		return "number"
	case tString:
		return "string"
	case tChar:
		return "char"
	default:
		return "token"
	}
}
