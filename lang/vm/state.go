// Package vm implements GavelScript's stack-based virtual machine: the
// fetch-decode-execute loop, the value stack and call-frame management, the
// call protocol (closures, host CFunctions, BoundCalls), closures/upvalues,
// and the for-each iteration opcode.
package vm

import (
	"fmt"

	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/value"
)

// Status reflects the outcome of the most recent run on a State.
type Status uint8

const (
	StatusOK Status = iota
	StatusYielded
	StatusRaised
)

// Limits bounds a State's stack and call-frame depth, mirroring the
// CALLS_MAX/STACK_MAX knobs of the original implementation (see
// internal/gavelcfg for how hosts configure these).
type Limits struct {
	StackMax int
	CallsMax int
}

func (l Limits) withDefaults() Limits {
	if l.CallsMax <= 0 {
		l.CallsMax = 64
	}
	if l.StackMax <= 0 {
		l.StackMax = l.CallsMax * 8
	}
	return l
}

// Frame is the VM's per-call record: the executing closure, its program
// counter into the closure's chunk, and the base index into the value stack
// (slot 0 is the callee itself, slots 1..arity are parameters).
type Frame struct {
	Closure *value.Obj // OClosure
	PC      int
	Base    int

	// ForEachBody is set for frames running a for-each-generated loop body:
	// a `return` inside such a frame must propagate out of the *enclosing*
	// call rather than merely ending this one iteration (see vm/foreach.go).
	ForEachBody bool
}

// State is one GavelScript VM instance: a value stack, a call-frame stack,
// a globals table, and the open-upvalue list, all owned by a single Heap
// (possibly shared with sibling States, per the concurrency model -- States
// themselves must never be driven concurrently).
type State struct {
	Heap    *gc.Heap
	Globals *value.Table

	limits Limits

	stack []value.Value
	top   int

	frames []Frame

	// openUpvalues is sorted by descending StackAt, per invariant: closing
	// converts open -> closed in place and is found by a linear scan from
	// the head.
	openUpvalues []*value.Obj

	status    Status
	objection value.Value
	yield     yieldState

	unregister func()
}

// New constructs a State against heap, registering it as a GC root provider.
func New(heap *gc.Heap, limits Limits) *State {
	limits = limits.withDefaults()
	st := &State{
		Heap:    heap,
		Globals: value.NewTable(16),
		limits:  limits,
		stack:   make([]value.Value, limits.StackMax),
	}
	st.unregister = heap.Register(st)
	return st
}

// Close deregisters the State from its Heap. After Close, the State must not
// be used again.
func (st *State) Close() {
	if st.unregister != nil {
		st.unregister()
		st.unregister = nil
	}
}

// MarkRoots implements gc.RootProvider.
func (st *State) MarkRoots(mark func(value.Value)) {
	for i := 0; i < st.top; i++ {
		mark(st.stack[i])
	}
	for _, fr := range st.frames {
		mark(value.FromObj(fr.Closure))
	}
	for _, uv := range st.openUpvalues {
		mark(value.FromObj(uv))
	}
	st.Globals.Each(func(k, v value.Value) bool {
		mark(k)
		mark(v)
		return true
	})
}

// Status returns the outcome of the most recent Run/Resume.
func (st *State) Status() Status { return st.status }

// LastObjection returns the Objection raised by the most recent run, if
// Status is StatusRaised.
func (st *State) LastObjection() value.Value { return st.objection }

// --- stack primitives ---

func (st *State) push(v value.Value) error {
	if st.top >= len(st.stack) {
		return fmt.Errorf("stack overflow")
	}
	st.stack[st.top] = v
	st.top++
	return nil
}

func (st *State) pop() value.Value {
	st.top--
	return st.stack[st.top]
}

func (st *State) popN(n int) {
	st.top -= n
}

func (st *State) peek(depthFromTop int) value.Value {
	return st.stack[st.top-1-depthFromTop]
}

// Push makes a host-visible value push (part of the embedding surface).
func (st *State) Push(v value.Value) error { return st.push(v) }

// Pop makes a host-visible value pop.
func (st *State) Pop() value.Value { return st.pop() }

// SetGlobal registers a named global value (embedding surface).
func (st *State) SetGlobal(name string, v value.Value) {
	st.Globals.Set(st.Heap.NewString(name), v)
}

// GetGlobal reads a named global value (embedding surface).
func (st *State) GetGlobal(name string) (value.Value, bool) {
	return st.Globals.Get(st.Heap.NewString(name))
}
