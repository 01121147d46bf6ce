package vm

import (
	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/value"
)

// run executes the topmost call frame until it returns (via a return/end
// opcode) or a runtime fault raises an Objection. It never recurses into
// itself directly for nested GavelScript calls: those go through
// st.Call -> st.callClosure -> run again, one Go stack frame per
// GavelScript call, which keeps recursion depth naturally bounded by
// Limits.CallsMax.
func (st *State) run() (value.Value, error) {
	idx := len(st.frames) - 1
	base := st.frames[idx].Base
	closureObj := st.frames[idx].Closure
	proto := closureObj.Closure().Proto
	ch, ok := proto.Chunk.(*chunk.Chunk)
	if !ok {
		return value.Nil, st.raise("internal error: function %q has no chunk", proto.Name)
	}
	code := ch.Code
	pc := st.frames[idx].PC

	setpc := func() { st.frames[idx].PC = pc }

	for {
		if pc >= len(code) {
			return value.Nil, nil
		}
		ins := code[pc]
		pc++
		setpc()
		op := ins.Op()

		switch op {
		case chunk.OpLoadConstant:
			if err := st.push(ch.Constants[ins.Ax()]); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpDefineGlobal:
			name := ch.Identifiers[ins.Ax()]
			st.Globals.Set(name, st.pop())

		case chunk.OpGetGlobal:
			name := ch.Identifiers[ins.Ax()]
			v, ok := st.Globals.Get(name)
			if !ok {
				return value.Nil, st.raise("undefined global %q", name.String())
			}
			if err := st.push(v); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpSetGlobal:
			name := ch.Identifiers[ins.Ax()]
			st.Globals.Set(name, st.peek(0))

		case chunk.OpGetBase:
			if err := st.push(st.stack[base+int(ins.Ax())]); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpSetBase:
			st.stack[base+int(ins.Ax())] = st.peek(0)

		case chunk.OpGetUpvalue:
			uv := closureObj.Closure().Upvalues[ins.Ax()].Upvalue()
			if err := st.push(uv.Get(st.stack)); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpSetUpvalue:
			uv := closureObj.Closure().Upvalues[ins.Ax()].Upvalue()
			uv.Set(st.stack, st.peek(0))

		case chunk.OpMakeClosure:
			target := ch.Constants[ins.Ax()].AsObj().Function()
			upvalues := make([]*value.Obj, len(target.UpvalInfos))
			for i, info := range target.UpvalInfos {
				descriptor := code[pc]
				pc++
				setpc()
				if info.FromParentLocal {
					upvalues[i] = st.captureUpvalue(base + int(descriptor.Ax()))
				} else {
					upvalues[i] = closureObj.Closure().Upvalues[descriptor.Ax()]
				}
			}
			v := st.Heap.NewClosure(target, upvalues)
			if err := st.push(v); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpCloseLocal:
			st.closeUpvaluesFrom(base + int(ins.Ax()))

		case chunk.OpPop:
			st.popN(int(ins.Ax()))

		case chunk.OpIfJump:
			cond := st.pop()
			if !cond.Truthy() {
				pc += int(ins.Ax())
				setpc()
			}

		case chunk.OpCndJump:
			if st.peek(0).Truthy() {
				pc += int(ins.Ax())
				setpc()
			}

		case chunk.OpCndNotJump:
			if !st.peek(0).Truthy() {
				pc += int(ins.Ax())
				setpc()
			}

		case chunk.OpJump:
			pc += int(ins.Ax())
			setpc()

		case chunk.OpJumpBack:
			pc -= int(ins.Ax())
			setpc()

		case chunk.OpCall:
			nargs := int(ins.Ax())
			args := make([]value.Value, nargs)
			copy(args, st.stack[st.top-nargs:st.top])
			callee := st.stack[st.top-nargs-1]
			st.popN(nargs + 1)
			result, err := st.Call(callee, args)
			if err != nil {
				return value.Nil, err
			}
			if err := st.push(result); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpReturn:
			if st.frames[idx].ForEachBody {
				return value.Nil, &nonLocalReturn{value: st.pop()}
			}
			return st.pop(), nil

		case chunk.OpEnd:
			return value.Nil, nil

		case chunk.OpNewTable:
			n := int(ins.Ax())
			t := st.Heap.NewTable(n)
			tbl := t.AsObj().Table()
			entries := st.stack[st.top-2*n : st.top]
			for i := 0; i < n; i++ {
				k := entries[2*i]
				v := entries[2*i+1]
				tbl.Set(k, v)
			}
			st.popN(2 * n)
			if err := st.push(t); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpIndex:
			key := st.pop()
			container := st.pop()
			v, err := st.index(container, key)
			if err != nil {
				return value.Nil, err
			}
			if err := st.push(v); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpNewIndex:
			val := st.pop()
			key := st.pop()
			container := st.pop()
			if err := st.newIndex(container, key, val); err != nil {
				return value.Nil, err
			}
			if err := st.push(val); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpForEach:
			closureV := st.pop()
			iterable := st.pop()
			if err := st.forEach(iterable, closureV); err != nil {
				if nlr, ok := err.(*nonLocalReturn); ok {
					return nlr.value, nil
				}
				return value.Nil, err
			}

		case chunk.OpNegate:
			x := st.pop()
			if x.Kind() != value.KNumber {
				return value.Nil, st.raise("attempt to perform arithmetic on a %s value", x.TypeName())
			}
			if err := st.push(value.Number(-x.AsNumber())); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpNot:
			x := st.pop()
			if err := st.push(value.Bool(!x.Truthy())); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpLength:
			x := st.pop()
			n, err := st.length(x)
			if err != nil {
				return value.Nil, err
			}
			if err := st.push(value.Number(float64(n))); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpAdd, chunk.OpSub, chunk.OpMul, chunk.OpDiv, chunk.OpMod:
			b := st.pop()
			a := st.pop()
			res, err := st.arith(op, a, b)
			if err != nil {
				return value.Nil, err
			}
			if err := st.push(res); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpEqual:
			b := st.pop()
			a := st.pop()
			if err := st.push(value.Bool(value.Equal(a, b))); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpGreater, chunk.OpLess:
			b := st.pop()
			a := st.pop()
			res, err := st.compare(op, a, b)
			if err != nil {
				return value.Nil, err
			}
			if err := st.push(value.Bool(res)); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpInc, chunk.OpDec:
			old := st.pop()
			if old.Kind() != value.KNumber {
				return value.Nil, st.raise("attempt to increment/decrement a %s value", old.TypeName())
			}
			delta := 1.0
			if op == chunk.OpDec {
				delta = -1.0
			}
			next := value.Number(old.AsNumber() + delta)
			pre := ins.Ax() != 0
			if pre {
				if err := st.push(next); err != nil {
					return value.Nil, st.raise("%s", err.Error())
				}
				if err := st.push(next); err != nil {
					return value.Nil, st.raise("%s", err.Error())
				}
			} else {
				if err := st.push(old); err != nil {
					return value.Nil, st.raise("%s", err.Error())
				}
				if err := st.push(next); err != nil {
					return value.Nil, st.raise("%s", err.Error())
				}
			}

		case chunk.OpConcat:
			n := int(ins.Ax())
			s := ""
			for i := st.top - n; i < st.top; i++ {
				s += st.stack[i].String()
			}
			st.popN(n)
			if err := st.push(st.Heap.NewString(s)); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpPushTrue:
			if err := st.push(value.Bool(true)); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpPushFalse:
			if err := st.push(value.Bool(false)); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		case chunk.OpPushNil:
			if err := st.push(value.Nil); err != nil {
				return value.Nil, st.raise("%s", err.Error())
			}

		default:
			return value.Nil, st.raise("invalid opcode %v", op)
		}
	}
}
