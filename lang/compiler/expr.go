package compiler

import (
	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/value"
)

// expression parses one expression binding at prec or tighter, leaving
// exactly one value on the stack (tracked via c.pushed).
func (c *Compiler) expression(prec precedence) {
	c.prefix(prec)
	for {
		ip := infixPrec(c.cur.kind)
		if ip == precNone || ip < prec {
			break
		}
		c.infix(c.cur.kind)
	}
}

// prefix dispatches on the current token's prefix meaning. canAssign is
// true when an assignable prefix (identifier/index) may be followed by
// '=' to produce an assignment instead of a load.
func (c *Compiler) prefix(prec precedence) {
	canAssign := prec <= precAssignment
	switch c.cur.kind {
	case tNumber:
		c.number()
	case tString:
		c.stringLit()
	case tChar:
		c.charLit()
	case tTrue:
		c.advance()
		c.emit(chunk.EncodeI(chunk.OpPushTrue))
		c.push(1)
	case tFalse:
		c.advance()
		c.emit(chunk.EncodeI(chunk.OpPushFalse))
		c.push(1)
	case tNil:
		c.advance()
		c.emit(chunk.EncodeI(chunk.OpPushNil))
		c.push(1)
	case tIdent:
		c.namedVariable(canAssign)
	case tMinus:
		c.unary(chunk.OpNegate)
	case tNot:
		c.unary(chunk.OpNot)
	case tHash:
		c.unary(chunk.OpLength)
	case tPlusPlus, tMinusMinus:
		c.prefixIncDec()
	case tLParen:
		c.advance()
		c.expression(precAssignment)
		c.expect(tRParen, "')'")
	case tLBrace:
		c.tableLiteral()
	case tFunction:
		c.functionLiteral()
	default:
		c.errorAt(c.cur, "expression expected")
		c.advance()
	}
}

func (c *Compiler) infix(k tokenKind) {
	switch k {
	case tPlus, tMinus, tStar, tSlash, tPercent, tEqEq, tNotEq, tLt, tLe, tGt, tGe:
		c.binary(k)
	case tDotDot:
		c.concat()
	case tAnd:
		c.logicalAnd()
	case tOr:
		c.logicalOr()
	case tLParen:
		c.call()
	case tDot:
		c.dotAccess(true)
	case tLBrack:
		c.indexAccess(true)
	default:
		c.errorAt(c.cur, "unexpected token")
		c.advance()
	}
}

func (c *Compiler) number() {
	t := c.cur
	c.advance()
	idx := c.addConstant(value.Number(t.num))
	c.emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)))
	c.push(1)
}

func (c *Compiler) stringLit() {
	t := c.cur
	c.advance()
	idx := c.addConstant(c.heap.NewString(t.text))
	c.emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)))
	c.push(1)
}

func (c *Compiler) charLit() {
	t := c.cur
	c.advance()
	idx := c.addConstant(value.Char(t.ch))
	c.emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)))
	c.push(1)
}

// namedVariable resolves name as local, upvalue, or global (in that order)
// and either loads it or, when canAssign and the next token is '=',
// compiles an assignment.
func (c *Compiler) namedVariable(canAssign bool) {
	t := c.cur
	c.advance()
	name := t.text

	if canAssign && c.match(tEq) {
		c.expression(precAssignment)
		c.storeVariable(name, t.line)
		return
	}
	if canAssign && (c.check(tPlusPlus) || c.check(tMinusMinus)) {
		op := chunk.OpInc
		if c.cur.kind == tMinusMinus {
			op = chunk.OpDec
		}
		postLine := c.cur.line
		c.advance()
		c.loadVariable(name, t.line)
		c.emitAt(chunk.EncodeIAx(op, 0), postLine) // post flavor: pushes [old,next]
		c.push(1)
		c.storeVariable(name, postLine)
		c.emit(chunk.EncodeIAx(chunk.OpPop, 1))
		c.pop(1)
		return
	}
	c.loadVariable(name, t.line)
}

func (c *Compiler) loadVariable(name string, line int) {
	if slot := c.resolveLocal(name); slot >= 0 {
		c.emitAt(chunk.EncodeIAx(chunk.OpGetBase, uint32(slot)), line)
		c.push(1)
		return
	}
	if idx := c.resolveUpvalue(name); idx >= 0 {
		c.emitAt(chunk.EncodeIAx(chunk.OpGetUpvalue, uint32(idx)), line)
		c.push(1)
		return
	}
	idx := c.internIdentifier(name)
	c.emitAt(chunk.EncodeIAx(chunk.OpGetGlobal, uint32(idx)), line)
	c.push(1)
}

// storeVariable assumes the rhs value is already pushed (push(1) already
// accounted for by the caller's expression()) and emits the matching
// set-variant opcode, which leaves that same value on the stack as the
// assignment expression's result.
func (c *Compiler) storeVariable(name string, line int) {
	if slot := c.resolveLocal(name); slot >= 0 {
		c.emitAt(chunk.EncodeIAx(chunk.OpSetBase, uint32(slot)), line)
		return
	}
	if idx := c.resolveUpvalue(name); idx >= 0 {
		c.emitAt(chunk.EncodeIAx(chunk.OpSetUpvalue, uint32(idx)), line)
		return
	}
	idx := c.internIdentifier(name)
	c.emitAt(chunk.EncodeIAx(chunk.OpDefineGlobal, uint32(idx)), line)
	// define-global pops the value rather than peeking (it is used both
	// for fresh declarations and for plain reassignment); reload it so the
	// assignment still yields a value as its result, matching set-base/
	// set-upvalue's peek semantics.
	c.emitAt(chunk.EncodeIAx(chunk.OpGetGlobal, uint32(idx)), line)
}

func (c *Compiler) unary(op chunk.Op) {
	line := c.cur.line
	c.advance()
	c.expression(precUnary)
	c.emitAt(chunk.EncodeI(op), line)
}

func (c *Compiler) binary(k tokenKind) {
	line := c.cur.line
	c.advance()
	prec := infixPrec(k) + 1 // left-associative
	c.expression(prec)

	var op chunk.Op
	switch k {
	case tPlus:
		op = chunk.OpAdd
	case tMinus:
		op = chunk.OpSub
	case tStar:
		op = chunk.OpMul
	case tSlash:
		op = chunk.OpDiv
	case tPercent:
		op = chunk.OpMod
	case tEqEq:
		op = chunk.OpEqual
	case tLt:
		op = chunk.OpLess
	case tGt:
		op = chunk.OpGreater
	case tLe:
		// a <= b  <=>  not (a > b)
		c.emitAt(chunk.EncodeI(chunk.OpGreater), line)
		c.emitAt(chunk.EncodeI(chunk.OpNot), line)
		c.pop(1)
		return
	case tGe:
		// a >= b  <=>  not (a < b)
		c.emitAt(chunk.EncodeI(chunk.OpLess), line)
		c.emitAt(chunk.EncodeI(chunk.OpNot), line)
		c.pop(1)
		return
	case tNotEq:
		c.emitAt(chunk.EncodeI(chunk.OpEqual), line)
		c.emitAt(chunk.EncodeI(chunk.OpNot), line)
		c.pop(1)
		return
	}
	c.emitAt(chunk.EncodeI(op), line)
	c.pop(1)
}

func (c *Compiler) concat() {
	line := c.cur.line
	c.advance()
	prec := infixPrec(tDotDot) + 1
	c.expression(prec)
	c.emitAt(chunk.EncodeIAx(chunk.OpConcat, 2), line)
	c.pop(1)
}

// logicalAnd: lhs already pushed. cnd-not-jump skips the rhs (and its pop)
// when lhs is falsy, short-circuiting to lhs's own value.
func (c *Compiler) logicalAnd() {
	c.advance()
	jump := c.emitJump(chunk.OpCndNotJump)
	c.emit(chunk.EncodeIAx(chunk.OpPop, 1))
	c.pop(1)
	c.expression(precAnd)
	c.patchJump(jump)
}

func (c *Compiler) logicalOr() {
	c.advance()
	jump := c.emitJump(chunk.OpCndJump)
	c.emit(chunk.EncodeIAx(chunk.OpPop, 1))
	c.pop(1)
	c.expression(precOr)
	c.patchJump(jump)
}

// call compiles `callee(args...)`; the callee is already on the stack.
func (c *Compiler) call() {
	c.advance() // '('
	nargs := 0
	if !c.check(tRParen) {
		for {
			c.expression(precAssignment)
			nargs++
			if !c.match(tComma) {
				break
			}
		}
	}
	c.expect(tRParen, "')'")
	c.emit(chunk.EncodeIAx(chunk.OpCall, uint32(nargs)))
	c.pop(nargs + 1)
	c.push(1)
}

// dotAccess compiles `.name`, optionally as an assignment target.
func (c *Compiler) dotAccess(canAssign bool) {
	c.advance() // '.'
	nameTok := c.expect(tIdent, "field name")
	idx := c.addConstant(c.heap.NewString(nameTok.text))
	c.emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)))
	c.push(1)

	if canAssign && c.match(tEq) {
		c.expression(precAssignment)
		c.emitAt(chunk.EncodeI(chunk.OpNewIndex), nameTok.line)
		c.pop(3)
		c.push(1)
		return
	}
	c.emitAt(chunk.EncodeI(chunk.OpIndex), nameTok.line)
	c.pop(2)
	c.push(1)
}

// indexAccess compiles `[expr]`, optionally as an assignment target.
func (c *Compiler) indexAccess(canAssign bool) {
	line := c.cur.line
	c.advance() // '['
	c.expression(precAssignment)
	c.expect(tRBrack, "']'")

	if canAssign && c.match(tEq) {
		c.expression(precAssignment)
		c.emitAt(chunk.EncodeI(chunk.OpNewIndex), line)
		c.pop(3)
		c.push(1)
		return
	}
	c.emitAt(chunk.EncodeI(chunk.OpIndex), line)
	c.pop(2)
	c.push(1)
}

// prefixIncDec handles `++x` / `--x`: only simple variable lvalues
// (local/upvalue/global) are supported.
func (c *Compiler) prefixIncDec() {
	op := chunk.OpInc
	if c.cur.kind == tMinusMinus {
		op = chunk.OpDec
	}
	line := c.cur.line
	c.advance()
	name, ok := c.assignableIdent()
	if !ok {
		c.errorAt(c.cur, "invalid assignment target")
		return
	}
	c.loadVariable(name, line)
	c.emitAt(chunk.EncodeIAx(op, 1), line)
	c.push(1) // net +1 relative to the loaded value (pop old, push 2)
	c.storeVariable(name, line)
	c.emit(chunk.EncodeIAx(chunk.OpPop, 1))
	c.pop(1)
}

// assignableIdent consumes a bare identifier token and reports whether the
// current token was one, for prefix ++/-- targets.
func (c *Compiler) assignableIdent() (string, bool) {
	if c.cur.kind != tIdent {
		return "", false
	}
	t := c.cur
	c.advance()
	return t.text, true
}

// tableLiteral compiles `{ key: value, ... }` / `{ a, b, c }`, with a bare
// entry (no ':') given an implicit integer index starting at 0.
func (c *Compiler) tableLiteral() {
	c.advance() // '{'
	n := 0
	nextImplicit := 0.0
	for !c.check(tRBrace) && c.cur.kind != tEOF {
		if c.check(tIdent) && c.aheadIsColon() {
			keyTok := c.cur
			c.advance() // ident
			c.advance() // ':'
			idx := c.addConstant(c.heap.NewString(keyTok.text))
			c.emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)))
			c.push(1)
			c.expression(precAssignment)
		} else if c.check(tString) && c.aheadIsColon() {
			keyTok := c.cur
			c.advance()
			c.advance()
			idx := c.addConstant(c.heap.NewString(keyTok.text))
			c.emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)))
			c.push(1)
			c.expression(precAssignment)
		} else {
			idx := c.addConstant(value.Number(nextImplicit))
			nextImplicit++
			c.emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)))
			c.push(1)
			c.expression(precAssignment)
		}
		n++
		if !c.match(tComma) {
			break
		}
		c.skipTerminators()
	}
	c.expect(tRBrace, "'}'")
	c.emit(chunk.EncodeIAx(chunk.OpNewTable, uint32(n)))
	c.pop(2 * n)
	c.push(1)
}

func (c *Compiler) aheadIsColon() bool { return c.ahead.kind == tColon }

// functionLiteral compiles an anonymous `function(args) ... end` as an
// expression, leaving its closure value on the stack.
func (c *Compiler) functionLiteral() {
	c.advance() // 'function'
	proto := c.compileFunctionBody("")
	constIdx := c.addConstant(c.heap.NewFunction(proto))
	c.emit(chunk.EncodeIAx(chunk.OpMakeClosure, uint32(constIdx)))
	c.emitCaptureDescriptors(proto)
	c.push(1)
}
