package vm

import (
	"fmt"

	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/value"
)

// objectionErr wraps a fully-built Objection Value so it can propagate
// through Go's call stack (across nested callClosure/run invocations)
// without losing the call trace captured at the point it was raised.
type objectionErr struct {
	obj value.Value
}

func (e *objectionErr) Error() string {
	return e.obj.AsObj().Objection().Message
}

// nonLocalReturn signals a `return` executed inside a for-each-generated
// loop body: it must unwind past the for-each opcode and become the
// enclosing call's own return value (see Frame.ForEachBody).
type nonLocalReturn struct {
	value value.Value
}

func (n *nonLocalReturn) Error() string { return "non-local return" }

// raise synthesizes a runtime Objection from the current call-frame stack:
// for each frame (most recent first), the owning Function's name and the
// source line of the currently-executing instruction, skipping frames whose
// Function is marked "embedded" (for-each-generated bodies).
func (st *State) raise(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	trace := st.buildTrace()
	obj := st.Heap.NewObjection(msg, trace)
	st.status = StatusRaised
	st.objection = obj
	return &objectionErr{obj: obj}
}

func (st *State) buildTrace() []value.CallFrame {
	var trace []value.CallFrame
	for i := len(st.frames) - 1; i >= 0; i-- {
		fr := st.frames[i]
		proto := fr.Closure.Closure().Proto
		if proto.Embedded {
			continue
		}
		name := proto.Name
		if name == "" {
			name = "_MAIN"
		}
		line := 0
		if ch, ok := proto.Chunk.(*chunk.Chunk); ok {
			line = ch.LineAt(fr.PC - 1)
		}
		trace = append(trace, value.CallFrame{FuncName: name, Line: line})
	}
	return trace
}

// FormatObjection renders an Objection the way a host presents a failure:
// the message followed by a multi-line call trace.
func FormatObjection(v value.Value) string {
	if !v.IsObj() || v.AsObj().Kind != value.OObjection {
		return v.String()
	}
	o := v.AsObj().Objection()
	s := o.Message
	for _, fr := range o.Trace {
		s += fmt.Sprintf("\n  at %s:%d", fr.FuncName, fr.Line)
	}
	return s
}
