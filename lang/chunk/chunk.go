package chunk

import "github.com/cpunch/gavelscript/lang/value"

// Chunk is a compiled instruction buffer: the ordered instruction sequence,
// a parallel line-number table (one entry per instruction, for Objection
// traces), the compile-time constant pool, and the identifier pool used by
// the global-access opcodes (define-global/get-global/set-global).
//
// A Chunk owns its non-string constants outright; string constants are heap
// objects that additionally live in the owning Heap's string pool (or not,
// if the Heap disabled interning) and are only tracked by the GC from here
// on, per invariant (vi).
type Chunk struct {
	Code      []Instruction
	Lines     []int
	Constants []value.Value

	// Identifiers holds interned string Values used by the global-access
	// opcodes (define-global/get-global/set-global reference an index into
	// this table). Storing the interned Value, not a raw Go string, is what
	// lets the GC trace "every live Chunk's identifier strings" as a root
	// set per the specification: these strings are heap objects too.
	Identifiers []value.Value
}

// New returns an empty Chunk ready for the compiler to append to.
func New() *Chunk {
	return &Chunk{}
}

// Emit appends ins to the code stream, recording line as its source line,
// and returns the instruction's address (index).
func (c *Chunk) Emit(ins Instruction, line int) int {
	c.Code = append(c.Code, ins)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// Patch overwrites the instruction at addr, used to back-patch forward jump
// targets once they are known.
func (c *Chunk) Patch(addr int, ins Instruction) {
	c.Code[addr] = ins
}

// AddConstant appends v to the constant pool and returns its index. Chunk
// does not deduplicate, and the compiler adds a new constant for every
// literal, including repeated ones.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// AddIdentifier appends the interned string name to the identifier pool,
// used by the compiler when it wants a fresh global-access slot; it is the
// compiler's job to deduplicate repeated names so that two references to
// the same global share one slot.
func (c *Chunk) AddIdentifier(name value.Value) int {
	c.Identifiers = append(c.Identifiers, name)
	return len(c.Identifiers) - 1
}

// LineAt returns the source line recorded for the instruction at pc, or 0 if
// pc is out of range.
func (c *Chunk) LineAt(pc int) int {
	if pc < 0 || pc >= len(c.Lines) {
		return 0
	}
	return c.Lines[pc]
}

// ChunkRoots returns every Value this chunk keeps alive on its own: its
// constants and its identifier pool. Implements the interface package gc
// uses to trace "every live Chunk"'s roots (see gc.ChunkRootProvider and the
// unexported chunkRoots interface gc.Heap.markFunctionProto consults).
func (c *Chunk) ChunkRoots() []value.Value {
	out := make([]value.Value, 0, len(c.Constants)+len(c.Identifiers))
	out = append(out, c.Constants...)
	out = append(out, c.Identifiers...)
	return out
}
