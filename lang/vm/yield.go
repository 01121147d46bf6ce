package vm

import "github.com/cpunch/gavelscript/lang/value"

// Yield/Resume hook. Per the specification this is single-state only (no
// fiber multiplexing) and is explicitly a future extension point, not a
// coroutine scheduler -- see "Non-goals" and Design Notes. This
// implementation records the single most recent yielded value; because
// run() unwinds through Go's own call stack (one Go frame per GavelScript
// call, see vm/run.go's doc comment), a real suspend/resume would need to
// snapshot and later replay that call chain, which is out of scope here.
// Yield does not stop the running bytecode, and Resume does not re-enter
// it at any call depth: the pair only records and hands back one value.
type yieldState struct {
	pending bool
	value   value.Value
}

// Yield marks st as yielded with value v. It is called from host code such
// as a CFunc; internal/stdlib registers no "yield" builtin.
func (st *State) Yield(v value.Value) {
	st.yield.pending = true
	st.yield.value = v
	st.status = StatusYielded
}

// Yielded reports whether the state is currently suspended.
func (st *State) Yielded() bool { return st.yield.pending }

// Resume clears the yielded flag and returns the value that was passed to
// Yield. It does not re-enter any suspended bytecode loop (see the type
// doc comment); it is provided so host code that only uses yield as a
// one-shot "pause and hand back a value" signal (not true coroutines) has
// a symmetrical API.
func (st *State) Resume() (value.Value, error) {
	if !st.yield.pending {
		return value.Nil, st.raise("cannot resume a state that has not yielded")
	}
	v := st.yield.value
	st.yield.pending = false
	st.status = StatusOK
	return v, nil
}
