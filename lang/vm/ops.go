package vm

import (
	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/value"
)

// arith implements the numeric binary opcodes. GavelScript's arithmetic
// operators only accept Number operands; concatenation is a separate
// opcode (concat) precisely so that "+" never has to guess whether the
// programmer meant addition or string concatenation.
func (st *State) arith(op chunk.Op, a, b value.Value) (value.Value, error) {
	if a.Kind() != value.KNumber || b.Kind() != value.KNumber {
		bad := a
		if a.Kind() == value.KNumber {
			bad = b
		}
		return value.Nil, st.raise("attempt to perform arithmetic on a %s value", bad.TypeName())
	}
	x, y := a.AsNumber(), b.AsNumber()
	switch op {
	case chunk.OpAdd:
		return value.Number(x + y), nil
	case chunk.OpSub:
		return value.Number(x - y), nil
	case chunk.OpMul:
		return value.Number(x * y), nil
	case chunk.OpDiv:
		if y == 0 {
			return value.Nil, st.raise("attempt to divide by zero")
		}
		return value.Number(x / y), nil
	case chunk.OpMod:
		if y == 0 {
			return value.Nil, st.raise("attempt to perform 'mod' by zero")
		}
		m := x - y*float64(int64(x/y))
		return value.Number(m), nil
	default:
		return value.Nil, st.raise("internal error: unreachable arithmetic opcode")
	}
}

// compare implements greater/less. Operand order is fixed per the
// specification's resolution of the original's inconsistent "<"/">" operand
// swap: less(a, b) holds iff a < b, greater(a, b) holds iff a > b, with a
// the value pushed first (deeper on the stack) and b the value pushed
// second.
func (st *State) compare(op chunk.Op, a, b value.Value) (bool, error) {
	if a.Kind() != value.KNumber || b.Kind() != value.KNumber {
		bad := a
		if a.Kind() == value.KNumber {
			bad = b
		}
		return false, st.raise("attempt to compare a %s value", bad.TypeName())
	}
	switch op {
	case chunk.OpLess:
		return a.AsNumber() < b.AsNumber(), nil
	case chunk.OpGreater:
		return a.AsNumber() > b.AsNumber(), nil
	default:
		return false, st.raise("internal error: unreachable comparison opcode")
	}
}

// index implements the `index` opcode: container[key]. Tables and
// Prototables are the only indexable object kinds; strings support
// numeric indexing to a single-Character value.
func (st *State) index(container, key value.Value) (value.Value, error) {
	if !container.IsObj() {
		return value.Nil, st.raise("attempt to index a %s value", container.TypeName())
	}
	o := container.AsObj()
	switch o.Kind {
	case value.OTable:
		v, ok := o.Table().Get(key)
		if !ok {
			return value.Nil, nil
		}
		return v, nil
	case value.OPrototable:
		return st.indexPrototable(o.Prototable(), key)
	case value.OString:
		if key.Kind() != value.KNumber {
			return value.Nil, st.raise("string index must be a number")
		}
		i := int(key.AsNumber())
		s := o.Str()
		if i < 0 || i >= len(s) {
			return value.Nil, st.raise("string index out of range")
		}
		return value.Char(s[i]), nil
	default:
		return value.Nil, st.raise("attempt to index a %s value", o.Kind.String())
	}
}

func (st *State) indexPrototable(p *value.Prototable, key value.Value) (value.Value, error) {
	if key.Kind() != value.KObject || key.AsObj().Kind != value.OString {
		return value.Nil, st.raise("prototable fields must be indexed by string")
	}
	name := key.AsObj().Str()
	if acc, ok := p.Fields[name]; ok && acc.Get != nil {
		return acc.Get(p.Receiver)
	}
	if fn, ok := p.Methods[name]; ok {
		bc := st.Heap.NewBoundCall(p, fn)
		return bc, nil
	}
	return value.Nil, nil
}

// newIndex implements the `new-index` opcode: container[key] = val.
// Per the Design Notes, writes to an interned string (`s[i] = c`) are
// silently ignored to avoid identity-aliasing hazards.
func (st *State) newIndex(container, key, val value.Value) error {
	if !container.IsObj() {
		return st.raise("attempt to index a %s value", container.TypeName())
	}
	o := container.AsObj()
	switch o.Kind {
	case value.OTable:
		o.Table().Set(key, val)
		return nil
	case value.OPrototable:
		return st.newIndexPrototable(o.Prototable(), key, val)
	case value.OString:
		// writes to strings are a no-op.
		return nil
	default:
		return st.raise("attempt to index a %s value", o.Kind.String())
	}
}

func (st *State) newIndexPrototable(p *value.Prototable, key, val value.Value) error {
	if key.Kind() != value.KObject || key.AsObj().Kind != value.OString {
		return st.raise("prototable fields must be indexed by string")
	}
	name := key.AsObj().Str()
	acc, ok := p.Fields[name]
	if !ok || acc.Set == nil {
		return st.raise("field %q is not assignable", name)
	}
	return acc.Set(p.Receiver, val)
}

// length implements the `length` (#) opcode for Strings and Tables.
func (st *State) length(v value.Value) (int, error) {
	if !v.IsObj() {
		return 0, st.raise("attempt to get length of a %s value", v.TypeName())
	}
	o := v.AsObj()
	switch o.Kind {
	case value.OString:
		return len(o.Str()), nil
	case value.OTable:
		return o.Table().Len(), nil
	default:
		return 0, st.raise("attempt to get length of a %s value", o.Kind.String())
	}
}
