package vm

import "github.com/cpunch/gavelscript/lang/value"

// RunFunction is the embedding surface's top-level entry point: it wraps
// the root FunctionProto produced by the compiler in a zero-upvalue
// Closure and invokes it with args (normally none, for a top-level
// program). The returned error, when non-nil, is always the same
// Objection reachable via st.LastObjection after the call.
func (st *State) RunFunction(fp *value.FunctionProto, args []value.Value) (value.Value, error) {
	st.status = StatusOK
	st.objection = value.Nil
	cl := st.Heap.NewClosure(fp, nil)
	result, err := st.Call(cl, args)
	if err != nil {
		return value.Nil, err
	}
	return result, nil
}
