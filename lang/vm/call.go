package vm

import "github.com/cpunch/gavelscript/lang/value"

// Call invokes callee with args from host code (the embedding surface's
// "invoke a callee with N arguments" operation). It is also used internally
// by the `call` opcode's handler.
func (st *State) Call(callee value.Value, args []value.Value) (value.Value, error) {
	if !callee.IsObj() {
		return value.Nil, st.raise("attempt to call a non-callable value (%s)", callee.TypeName())
	}
	o := callee.AsObj()
	switch o.Kind {
	case value.OClosure:
		return st.callClosure(o, args)
	case value.OFunction:
		// A bare Function (no captured upvalues) may be called directly by
		// wrapping it as a closure with zero upvalues; this happens for
		// compiler-generated top-level code and for-each bodies that never
		// actually capture anything.
		cl := st.Heap.NewClosure(o.Function(), nil)
		return st.callClosure(cl.AsObj(), args)
	case value.OCFunction:
		return st.callHost(o.CFunction(), args)
	case value.OBoundCall:
		b := o.BoundCall()
		if !b.Alive() {
			return value.Nil, st.raise("attempt to call a bound method whose receiver was freed")
		}
		full := make([]value.Value, 0, len(args)+1)
		full = append(full, value.FromObj(value.NewPrototableObj(b.Receiver)))
		full = append(full, args...)
		return st.callHost(b.Fn, full)
	default:
		return value.Nil, st.raise("attempt to call a non-callable value (%s)", o.Kind.String())
	}
}

func (st *State) callHost(fn value.CFunc, args []value.Value) (value.Value, error) {
	if len(st.frames) >= st.limits.CallsMax {
		return value.Nil, st.raise("call stack overflow")
	}
	result, err := fn(st.Heap, args)
	if err != nil {
		return value.Nil, st.raise("%s", err.Error())
	}
	return result, nil
}

// callClosure pushes a new call frame for closureObj, runs it to completion,
// and closes/pops the frame on every exit path (return, end, or a raised
// Objection), per the resource-release sequence in the specification.
func (st *State) callClosure(closureObj *value.Obj, args []value.Value) (value.Value, error) {
	cl := closureObj.Closure()
	proto := cl.Proto

	if len(args) != proto.Arity {
		return value.Nil, st.raise("expected %d arguments, got %d", proto.Arity, len(args))
	}
	if len(st.frames) >= st.limits.CallsMax {
		return value.Nil, st.raise("call stack overflow")
	}

	base := st.top
	if err := st.push(value.FromObj(closureObj)); err != nil {
		return value.Nil, st.raise("%s", err.Error())
	}
	for _, a := range args {
		if err := st.push(a); err != nil {
			return value.Nil, st.raise("%s", err.Error())
		}
	}

	st.frames = append(st.frames, Frame{Closure: closureObj, PC: 0, Base: base})

	result, err := st.run()

	// Release sequence: close upvalues at or above the frame base, drop the
	// frame, restore the caller's view of the stack.
	st.closeUpvaluesFrom(base)
	st.frames = st.frames[:len(st.frames)-1]
	st.top = base

	if err != nil {
		return value.Nil, err
	}
	return result, nil
}

// callForEachBody runs the for-each-generated body closure for one (key,
// value) pair, marking the frame so that a `return` inside the body raises
// a nonLocalReturn instead of just ending this one call.
func (st *State) callForEachBody(closureObj *value.Obj, key, val value.Value) (value.Value, error) {
	if len(st.frames) >= st.limits.CallsMax {
		return value.Nil, st.raise("call stack overflow")
	}

	base := st.top
	if err := st.push(value.FromObj(closureObj)); err != nil {
		return value.Nil, st.raise("%s", err.Error())
	}
	if err := st.push(key); err != nil {
		return value.Nil, st.raise("%s", err.Error())
	}
	if err := st.push(val); err != nil {
		return value.Nil, st.raise("%s", err.Error())
	}

	st.frames = append(st.frames, Frame{Closure: closureObj, PC: 0, Base: base, ForEachBody: true})

	result, err := st.run()

	st.closeUpvaluesFrom(base)
	st.frames = st.frames[:len(st.frames)-1]
	st.top = base

	if err != nil {
		return value.Nil, err
	}
	return result, nil
}
