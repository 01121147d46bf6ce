// Package compiler implements GavelScript's single-pass Pratt compiler: a
// lexer, a precedence-climbing parser, and a code generator fused into one
// pass that emits directly to a *chunk.Chunk, with no intermediate AST.
package compiler

import (
	"fmt"

	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/value"
)

// Heap is the allocation surface the compiler needs: interned string
// constants and Function objects wrapping nested FunctionProtos.
type Heap interface {
	NewString(s string) value.Value
	NewFunction(fp *value.FunctionProto) value.Value
}

type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precConcat
	precAdditive
	precMultiplicative
	precUnary
	precCall
	precPrimary
)

// infixPrec returns the infix binding precedence of a token kind, or
// precNone if it is not an infix operator.
func infixPrec(k tokenKind) precedence {
	switch k {
	case tOr:
		return precOr
	case tAnd:
		return precAnd
	case tEqEq, tNotEq:
		return precEquality
	case tLt, tLe, tGt, tGe:
		return precComparison
	case tDotDot:
		return precConcat
	case tPlus, tMinus:
		return precAdditive
	case tStar, tSlash, tPercent:
		return precMultiplicative
	case tLParen, tLBrack, tDot:
		return precCall
	default:
		return precNone
	}
}

// local is a compile-time record of a declared local variable: its name,
// the scope depth it was declared at (-1 until its initializer finishes
// compiling, so it cannot see itself), its stack slot, and whether any
// nested function has captured it as an upvalue (forcing close-local on
// scope exit).
type local struct {
	name     string
	depth    int
	slot     int
	captured bool
}

// upvalueDesc mirrors value.UpvalInfo during compilation, before the
// FunctionProto is finalized.
type upvalueDesc struct {
	fromParentLocal bool
	index           int
}

// compileError is the single error type a parse ever reports; the compiler
// recovers by skipping to the next token-of-interest rather than spraying
// cascades of messages (its panic flag suppresses follow-on reports).
type compileError struct {
	msg  string
	line int
}

func (e *compileError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

// Compiler compiles one function body (the top-level script, or a nested
// function/for-each body literal) against a shared lexer cursor. Nested
// function literals instantiate a child Compiler whose parent chain is
// walked during upvalue resolution.
type Compiler struct {
	parent *Compiler
	heap   Heap
	lx     *lexer

	chunk *chunk.Chunk
	proto *value.FunctionProto

	cur, ahead token

	locals     []local
	scopeDepth int
	upvalues   []upvalueDesc

	// identifiers dedups identifier-pool slots so repeated references to the
	// same global name share one Identifiers entry.
	identifiers map[string]int

	// pushed tracks the running count of values the instructions emitted so
	// far in the current statement would leave on the stack, with the
	// baseline reset at each statement boundary.
	pushed int

	hadError bool
	panicked bool
	firstErr error
}

// Compile compiles src as a top-level program and returns its FunctionProto
// (named "_MAIN", zero arity, zero upvalues).
func Compile(heap Heap, src string) (*value.FunctionProto, error) {
	c := &Compiler{
		heap:        heap,
		lx:          newLexer(src),
		chunk:       chunk.New(),
		identifiers: make(map[string]int),
	}
	c.proto = &value.FunctionProto{Name: "_MAIN", Arity: 0, Chunk: c.chunk}
	// Slot 0 of every frame is the callee itself, same as any function.
	c.locals = append(c.locals, local{name: "", depth: 0, slot: 0})
	c.advance()
	c.advance()

	c.skipTerminators()
	for c.cur.kind != tEOF {
		c.declaration()
		c.skipTerminators()
	}
	c.chunk.Emit(chunk.EncodeI(chunk.OpEnd), c.cur.line)

	if c.firstErr != nil {
		return nil, c.firstErr
	}
	return c.proto, nil
}

func childCompiler(parent *Compiler, name string) *Compiler {
	c := &Compiler{
		parent:      parent,
		heap:        parent.heap,
		lx:          parent.lx,
		chunk:       chunk.New(),
		identifiers: make(map[string]int),
	}
	c.proto = &value.FunctionProto{Name: name, Chunk: c.chunk}
	// Slot 0 of every function frame is the callee itself.
	c.locals = append(c.locals, local{name: "", depth: 0, slot: 0})
	// A function body is a local scope: declarations in it bind locals.
	c.beginScope()
	c.cur, c.ahead = parent.cur, parent.ahead
	return c
}

// adoptCursor copies the child's lexer position back into the parent so
// parsing can continue after the nested function literal.
func (c *Compiler) adoptCursor(child *Compiler) {
	c.cur, c.ahead = child.cur, child.ahead
	if child.firstErr != nil && c.firstErr == nil {
		c.firstErr = child.firstErr
	}
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.cur = c.ahead
	c.ahead = c.lx.next()
	if c.ahead.kind == tIllegal && !c.panicked {
		c.errorAt(c.ahead, c.ahead.text)
	}
}

func (c *Compiler) check(k tokenKind) bool { return c.cur.kind == k }

func (c *Compiler) match(k tokenKind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) expect(k tokenKind, what string) token {
	if !c.check(k) {
		c.errorAt(c.cur, "expected "+what)
		return c.cur
	}
	t := c.cur
	c.advance()
	return t
}

func (c *Compiler) skipTerminators() {
	for c.cur.kind == tNewline || c.cur.kind == tSemi {
		c.advance()
	}
}

func (c *Compiler) errorAt(t token, msg string) {
	if c.panicked {
		return
	}
	c.panicked = true
	c.hadError = true
	if c.firstErr == nil {
		c.firstErr = &compileError{msg: msg, line: t.line}
	}
}

func (c *Compiler) synchronize() {
	c.panicked = false
	for c.cur.kind != tEOF {
		if c.cur.kind == tNewline || c.cur.kind == tSemi {
			c.advance()
			return
		}
		switch c.cur.kind {
		case tFunction, tLocal, tGlobal, tVar, tIf, tWhile, tFor, tReturn, tEnd:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---------------------------------------------------

func (c *Compiler) emit(ins chunk.Instruction) int {
	return c.chunk.Emit(ins, c.cur.line)
}

func (c *Compiler) emitAt(ins chunk.Instruction, line int) int {
	return c.chunk.Emit(ins, line)
}

func (c *Compiler) push(n int) { c.pushed += n }
func (c *Compiler) pop(n int)  { c.pushed -= n }

func (c *Compiler) internIdentifier(name string) int {
	if idx, ok := c.identifiers[name]; ok {
		return idx
	}
	idx := c.chunk.AddIdentifier(c.heap.NewString(name))
	c.identifiers[name] = idx
	return idx
}

func (c *Compiler) addConstant(v value.Value) int {
	return c.chunk.AddConstant(v)
}

// emitJump emits a forward jump of the given opcode with a placeholder
// operand and returns its address, to be back-patched by patchJump.
func (c *Compiler) emitJump(op chunk.Op) int {
	return c.emit(chunk.EncodeIAx(op, 0))
}

func (c *Compiler) patchJump(addr int) {
	dist := uint32(len(c.chunk.Code) - addr - 1)
	op := c.chunk.Code[addr].Op()
	c.chunk.Patch(addr, chunk.EncodeIAx(op, dist))
}

func (c *Compiler) emitJumpBack(target int) {
	dist := uint32(len(c.chunk.Code) + 1 - target)
	c.emit(chunk.EncodeIAx(chunk.OpJumpBack, dist))
}

// --- scopes ---------------------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope pops locals declared in the scope being exited, emitting
// close-local first for any that were captured by a nested closure.
func (c *Compiler) endScope() {
	c.scopeDepth--
	n := 0
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.captured {
			c.emit(chunk.EncodeIAx(chunk.OpCloseLocal, uint32(last.slot)))
		}
		c.locals = c.locals[:len(c.locals)-1]
		n++
	}
	if n > 0 {
		c.emit(chunk.EncodeIAx(chunk.OpPop, uint32(n)))
	}
}

func (c *Compiler) declareLocal(name string) int {
	slot := len(c.locals)
	c.locals = append(c.locals, local{name: name, depth: -1, slot: slot})
	return slot
}

func (c *Compiler) markInitialized() {
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

// resolveLocal returns the slot of the innermost local named name, or -1.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.errorAt(c.cur, "cannot reference "+name+" in its own initializer")
			}
			return c.locals[i].slot
		}
	}
	return -1
}

// resolveUpvalue walks the parent chain looking for name as an enclosing
// local or an enclosing upvalue, recording a capture descriptor in this
// Compiler's upvalue list (deduplicated) and marking the source local as
// captured.
func (c *Compiler) resolveUpvalue(name string) int {
	if c.parent == nil {
		return -1
	}
	if slot := c.parent.resolveLocal(name); slot >= 0 {
		c.parent.locals[c.localIndexBySlot(c.parent, slot)].captured = true
		return c.addUpvalue(upvalueDesc{fromParentLocal: true, index: slot})
	}
	if idx := c.parent.resolveUpvalue(name); idx >= 0 {
		return c.addUpvalue(upvalueDesc{fromParentLocal: false, index: idx})
	}
	return -1
}

func (c *Compiler) localIndexBySlot(of *Compiler, slot int) int {
	for i, l := range of.locals {
		if l.slot == slot {
			return i
		}
	}
	return -1
}

func (c *Compiler) addUpvalue(d upvalueDesc) int {
	for i, u := range c.upvalues {
		if u == d {
			return i
		}
	}
	c.upvalues = append(c.upvalues, d)
	return len(c.upvalues) - 1
}

// --- top-level declarations and statements ------------------------------

func (c *Compiler) declaration() {
	switch c.cur.kind {
	case tLocal:
		c.localDecl()
	case tGlobal:
		c.globalDecl()
	case tVar:
		c.varDecl()
	case tFunction:
		c.functionDecl()
	default:
		c.statement()
	}
	if c.panicked {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch c.cur.kind {
	case tIf:
		c.ifStatement()
	case tWhile:
		c.whileStatement()
	case tFor:
		c.forEachStatement()
	case tReturn:
		c.returnStatement()
	case tDo:
		c.advance()
		c.beginScope()
		c.block(tEnd)
		c.endScope()
		c.expect(tEnd, "'end'")
	default:
		c.expressionStatement()
	}
}

// expressionStatement compiles a bare expression used as a statement (a
// call, an assignment, a pre/post increment): the pushed-value tracking
// rule emits a trailing pop for whatever the expression left behind, or
// reports "expression expected" if it somehow left nothing.
func (c *Compiler) expressionStatement() {
	baseline := c.pushed
	c.expression(precAssignment)
	delta := c.pushed - baseline
	if delta > 0 {
		c.emit(chunk.EncodeIAx(chunk.OpPop, uint32(delta)))
	} else if delta < 0 {
		c.errorAt(c.cur, "expression expected")
	}
	c.pushed = baseline
}

// block parses statements up to (but not consuming) a token in stop.
func (c *Compiler) block(stop ...tokenKind) {
	c.skipTerminators()
	for !c.atStop(stop) && c.cur.kind != tEOF {
		c.declaration()
		c.skipTerminators()
	}
}

func (c *Compiler) atStop(stop []tokenKind) bool {
	for _, k := range stop {
		if c.cur.kind == k {
			return true
		}
	}
	return false
}

func (c *Compiler) declVarName() (string, bool) {
	t := c.expect(tIdent, "identifier")
	return t.text, t.kind == tIdent
}

// localDecl declares a new local slot. The initializer's pushed value IS
// the local's storage: since locals are declared in strict stack order
// with every other statement kind net-zero on the stack, the slot number
// recorded by declareLocal always matches the stack position the push
// lands in. No separate store instruction is needed.
func (c *Compiler) localDecl() {
	c.advance() // 'local'
	name, _ := c.declVarName()
	c.declareLocal(name)
	if c.match(tEq) {
		c.expression(precAssignment)
	} else {
		c.emit(chunk.EncodeI(chunk.OpPushNil))
		c.push(1)
	}
	c.pop(1) // the pushed initializer becomes the local's permanent slot
	c.markInitialized()
}

func (c *Compiler) globalDecl() {
	c.advance() // 'global'
	name, _ := c.declVarName()
	idx := c.internIdentifier(name)
	if c.match(tEq) {
		c.expression(precAssignment)
	} else {
		c.emit(chunk.EncodeI(chunk.OpPushNil))
		c.push(1)
	}
	c.pop(1)
	c.emit(chunk.EncodeIAx(chunk.OpDefineGlobal, uint32(idx)))
}

// varDecl picks local-vs-global based on scope depth: at depth 0 (top
// level) it declares a global, otherwise a local.
func (c *Compiler) varDecl() {
	c.advance() // 'var'
	if c.scopeDepth == 0 {
		name, _ := c.declVarName()
		idx := c.internIdentifier(name)
		if c.match(tEq) {
			c.expression(precAssignment)
		} else {
			c.emit(chunk.EncodeI(chunk.OpPushNil))
			c.push(1)
		}
		c.pop(1)
		c.emit(chunk.EncodeIAx(chunk.OpDefineGlobal, uint32(idx)))
		return
	}
	name, _ := c.declVarName()
	c.declareLocal(name)
	if c.match(tEq) {
		c.expression(precAssignment)
	} else {
		c.emit(chunk.EncodeI(chunk.OpPushNil))
		c.push(1)
	}
	c.pop(1)
	c.markInitialized()
}

// functionDecl parses `function name(params) ... end`, desugaring to the
// same local/global binding rule as `var`: a named function declared at
// top level binds a global, nested declarations bind a local. The name is
// declared (and, for locals, marked initialized) before the body compiles
// so that the function can recurse.
func (c *Compiler) functionDecl() {
	c.advance() // 'function'
	nameTok := c.expect(tIdent, "function name")
	name := nameTok.text

	isGlobal := c.scopeDepth == 0
	var globalIdx int
	if isGlobal {
		globalIdx = c.internIdentifier(name)
	} else {
		c.declareLocal(name)
		c.markInitialized()
	}

	proto := c.compileFunctionBody(name)
	constIdx := c.addConstant(c.heap.NewFunction(proto))
	c.emit(chunk.EncodeIAx(chunk.OpMakeClosure, uint32(constIdx)))
	c.emitCaptureDescriptors(proto)

	if isGlobal {
		c.emit(chunk.EncodeIAx(chunk.OpDefineGlobal, uint32(globalIdx)))
	}
	// For a local function declaration, the just-emitted closure push IS the
	// local's slot (see localDecl): no separate store is needed.
}

// emitCaptureDescriptors appends the N capture-descriptor pseudo-instructions
// a make-closure for proto must be followed by, reusing the get-base/
// get-upvalue encodings per the bytecode format.
func (c *Compiler) emitCaptureDescriptors(proto *value.FunctionProto) {
	for _, info := range proto.UpvalInfos {
		if info.FromParentLocal {
			c.emitAt(chunk.EncodeIAx(chunk.OpGetBase, uint32(info.Index)), c.cur.line)
		} else {
			c.emitAt(chunk.EncodeIAx(chunk.OpGetUpvalue, uint32(info.Index)), c.cur.line)
		}
	}
}

// compileFunctionBody parses `(params) stmts end` with a fresh child
// Compiler and returns the finished FunctionProto.
func (c *Compiler) compileFunctionBody(name string) *value.FunctionProto {
	child := childCompiler(c, name)

	child.expect(tLParen, "'('")
	arity := 0
	if !child.check(tRParen) {
		for {
			pt := child.expect(tIdent, "parameter name")
			child.declareLocal(pt.text)
			child.markInitialized()
			arity++
			if !child.match(tComma) {
				break
			}
		}
	}
	child.expect(tRParen, "')'")
	child.proto.Arity = arity

	child.skipTerminators()
	child.block(tEnd)
	child.expect(tEnd, "'end'")

	// Always guarantee a return even when control falls off the end.
	child.emit(chunk.EncodeI(chunk.OpPushNil))
	child.emit(chunk.EncodeI(chunk.OpReturn))

	child.proto.NumUpvals = len(child.upvalues)
	child.proto.UpvalInfos = make([]value.UpvalInfo, len(child.upvalues))
	for i, u := range child.upvalues {
		child.proto.UpvalInfos[i] = value.UpvalInfo{FromParentLocal: u.fromParentLocal, Index: u.index}
	}

	c.adoptCursor(child)
	return child.proto
}

func (c *Compiler) ifStatement() {
	c.advance() // 'if'
	c.expect(tLParen, "'('")
	c.expression(precAssignment)
	c.pop(1)
	c.expect(tRParen, "')'")

	elseJump := c.emitJump(chunk.OpIfJump)
	c.beginScope()
	c.block(tElseif, tElse, tEnd)
	c.endScope()

	endJumps := []int{}
	for c.cur.kind == tElseif {
		endJumps = append(endJumps, c.emitJump(chunk.OpJump))
		c.patchJump(elseJump)

		c.advance() // 'elseif'
		c.expect(tLParen, "'('")
		c.expression(precAssignment)
		c.pop(1)
		c.expect(tRParen, "')'")
		elseJump = c.emitJump(chunk.OpIfJump)
		c.beginScope()
		c.block(tElseif, tElse, tEnd)
		c.endScope()
	}

	if c.cur.kind == tElse {
		endJumps = append(endJumps, c.emitJump(chunk.OpJump))
		c.patchJump(elseJump)
		c.advance() // 'else'
		c.beginScope()
		c.block(tEnd)
		c.endScope()
	} else {
		c.patchJump(elseJump)
	}

	c.expect(tEnd, "'end'")
	for _, j := range endJumps {
		c.patchJump(j)
	}
}

func (c *Compiler) whileStatement() {
	c.advance() // 'while'
	condStart := len(c.chunk.Code)
	c.expect(tLParen, "'('")
	c.expression(precAssignment)
	c.pop(1)
	c.expect(tRParen, "')'")

	exitJump := c.emitJump(chunk.OpIfJump)
	c.expect(tDo, "'do'")
	c.beginScope()
	c.block(tEnd)
	c.endScope()
	c.expect(tEnd, "'end'")
	c.emitJumpBack(condStart)
	c.patchJump(exitJump)
}

// forEachStatement lowers `for (k, v in expr) do ... end` into: evaluate
// expr, compile the body as an embedded two-parameter Function, make a
// closure over it, and emit for-each.
func (c *Compiler) forEachStatement() {
	c.advance() // 'for'
	c.expect(tLParen, "'('")
	keyTok := c.expect(tIdent, "key name")
	c.expect(tComma, "','")
	valTok := c.expect(tIdent, "value name")
	c.expect(tIn, "'in'")
	c.expression(precAssignment)
	c.pop(1)
	c.expect(tRParen, "')'")
	c.expect(tDo, "'do'")

	child := childCompiler(c, "")
	child.proto.Embedded = true
	child.declareLocal(keyTok.text)
	child.markInitialized()
	child.declareLocal(valTok.text)
	child.markInitialized()
	child.proto.Arity = 2

	child.skipTerminators()
	child.block(tEnd)
	child.expect(tEnd, "'end'")
	child.emit(chunk.EncodeI(chunk.OpEnd))

	child.proto.NumUpvals = len(child.upvalues)
	child.proto.UpvalInfos = make([]value.UpvalInfo, len(child.upvalues))
	for i, u := range child.upvalues {
		child.proto.UpvalInfos[i] = value.UpvalInfo{FromParentLocal: u.fromParentLocal, Index: u.index}
	}
	c.adoptCursor(child)

	constIdx := c.addConstant(c.heap.NewFunction(child.proto))
	c.emit(chunk.EncodeIAx(chunk.OpMakeClosure, uint32(constIdx)))
	c.emitCaptureDescriptors(child.proto)
	c.emit(chunk.EncodeI(chunk.OpForEach))
}

func (c *Compiler) returnStatement() {
	line := c.cur.line
	c.advance() // 'return'
	if c.cur.kind == tNewline || c.cur.kind == tSemi || c.cur.kind == tEnd || c.cur.kind == tEOF {
		c.emitAt(chunk.EncodeI(chunk.OpPushNil), line)
	} else {
		c.expression(precAssignment)
		c.pop(1)
	}
	c.emitAt(chunk.EncodeI(chunk.OpReturn), line)
}
