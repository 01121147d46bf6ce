package gc

import "github.com/cpunch/gavelscript/lang/value"

var _ value.Heap = (*Heap)(nil)

// NewString interns s (if interning is enabled) and returns it as a Value.
// Per invariant (v), two calls with equal content return values whose
// underlying Obj pointers are identical whenever interning is on.
func (h *Heap) NewString(s string) value.Value {
	h.maybeCollect(len(s))
	if h.opts.InternStrings {
		if o, ok := h.pool.Get(s); ok {
			return value.FromObj(o)
		}
		o := value.NewStringObj(s)
		h.link(o, estSize(value.OString, len(s)))
		h.pool.Put(s, o)
		return value.FromObj(o)
	}
	o := value.NewStringObj(s)
	h.link(o, estSize(value.OString, len(s)))
	return value.FromObj(o)
}

// NewTable allocates an empty table with room for size entries.
func (h *Heap) NewTable(size int) value.Value {
	h.maybeCollect(0)
	t := value.NewTable(size)
	o := value.NewTableObj(t)
	h.link(o, estSize(value.OTable, size*16))
	return value.FromObj(o)
}

// NewPrototable wraps an already-constructed Prototable as a heap Value.
func (h *Heap) NewPrototable(p *value.Prototable) value.Value {
	h.maybeCollect(0)
	o := value.NewPrototableObj(p)
	h.link(o, estSize(value.OPrototable, 0))
	return value.FromObj(o)
}

// NewFunction wraps a compiled FunctionProto as a heap Value.
func (h *Heap) NewFunction(fp *value.FunctionProto) value.Value {
	h.maybeCollect(0)
	o := value.NewFunctionObj(fp)
	h.link(o, estSize(value.OFunction, 0))
	return value.FromObj(o)
}

// NewClosure allocates a Closure over proto with the given captured
// upvalues (each must be an OUpvalue Value).
func (h *Heap) NewClosure(proto *value.FunctionProto, upvalues []*value.Obj) value.Value {
	h.maybeCollect(len(upvalues) * 8)
	c := &value.Closure{Proto: proto, Upvalues: upvalues}
	o := value.NewClosureObj(c)
	h.link(o, estSize(value.OClosure, len(upvalues)*8))
	return value.FromObj(o)
}

// NewOpenUpvalue allocates an upvalue that currently points at stackAt in
// the owning State's stack.
func (h *Heap) NewOpenUpvalue(stackAt int) *value.Obj {
	h.maybeCollect(0)
	u := &value.Upvalue{Open: true, StackAt: stackAt}
	o := value.NewUpvalueObj(u)
	h.link(o, estSize(value.OUpvalue, 0))
	return o
}

// NewCFunction wraps a host callback as a heap Value.
func (h *Heap) NewCFunction(fn value.CFunc) value.Value {
	h.maybeCollect(0)
	o := value.NewCFunctionObj(fn)
	h.link(o, estSize(value.OCFunction, 0))
	return value.FromObj(o)
}

// NewBoundCall allocates a BoundCall pairing fn with receiver.
func (h *Heap) NewBoundCall(receiver *value.Prototable, fn value.CFunc) value.Value {
	h.maybeCollect(0)
	b := value.NewBoundCall(receiver, fn)
	o := value.NewBoundCallObj(b)
	h.link(o, estSize(value.OBoundCall, 0))
	return value.FromObj(o)
}

// NewObjection allocates an Objection carrying msg and the given call
// trace (most recent call first, matching how the VM walks its frame
// stack).
func (h *Heap) NewObjection(msg string, trace []value.CallFrame) value.Value {
	h.maybeCollect(len(msg))
	obj := &value.Objection{Message: msg, Trace: trace}
	o := value.NewObjectionObj(obj)
	h.link(o, estSize(value.OObjection, len(msg)))
	return value.FromObj(o)
}
