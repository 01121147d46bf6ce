// Package value implements GavelScript's tagged value model: the small
// stack-friendly Value union and the heap object variants it can point to.
//
// A Value is a discriminated union rather than an interface hierarchy: every
// operation (equality, hashing, truthiness, stringification) is a switch on
// the Kind tag instead of a virtual dispatch. Heap-allocated data (strings,
// tables, functions, closures, ...) lives behind a single Obj type that is
// itself a tagged union with an intrusive GC list link; see Obj in object.go.
package value

import (
	"fmt"
	"math"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KNil Kind = iota
	KBool
	KNumber
	KChar
	KObject
)

func (k Kind) String() string {
	switch k {
	case KNil:
		return "nil"
	case KBool:
		return "boolean"
	case KNumber:
		return "number"
	case KChar:
		return "char"
	case KObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is GavelScript's tagged value: Nil, Boolean, Number, Character, or an
// owning reference to a heap Obj. Value is comparable (all fields are plain
// scalars or a pointer), which lets it serve directly as a key type in a
// swiss.Map without a custom hasher.
type Value struct {
	kind Kind
	b    bool
	n    float64
	c    byte
	obj  *Obj
}

// Nil is the singular Nil value.
var Nil = Value{kind: KNil}

// Bool constructs a Boolean value.
func Bool(b bool) Value { return Value{kind: KBool, b: b} }

// Number constructs a Number value.
func Number(n float64) Value { return Value{kind: KNumber, n: n} }

// Char constructs a Character value.
func Char(c byte) Value { return Value{kind: KChar, c: c} }

// FromObj wraps a heap object in a Value. It panics on a nil obj since Nil
// already has its own tag; callers that want "no object" should use Nil.
func FromObj(o *Obj) Value {
	if o == nil {
		panic("value: FromObj called with nil Obj")
	}
	return Value{kind: KObject, obj: o}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNil() bool  { return v.kind == KNil }
func (v Value) IsObj() bool  { return v.kind == KObject }
func (v Value) AsBool() bool { return v.b }
func (v Value) AsNumber() float64 {
	return v.n
}
func (v Value) AsChar() byte { return v.c }
func (v Value) AsObj() *Obj  { return v.obj }

// Truthy implements GavelScript's falsiness rule: only Nil and Boolean false
// are falsy. Everything else -- including 0 and the empty string -- is
// truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KNil:
		return false
	case KBool:
		return v.b
	default:
		return true
	}
}

// Equal reports whether two values are equal: the kind tags must match and
// the payloads must match, with Object equality delegated to objEqual.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KNil:
		return true
	case KBool:
		return a.b == b.b
	case KNumber:
		return a.n == b.n
	case KChar:
		return a.c == b.c
	case KObject:
		return objEqual(a.obj, b.obj)
	default:
		return false
	}
}

// Hash computes a hash for v: type-tag XOR payload hash, with Nil hashing to
// its tag alone.
func Hash(v Value) uint64 {
	tag := uint64(v.kind)
	switch v.kind {
	case KNil:
		return tag
	case KBool:
		h := uint64(0)
		if v.b {
			h = 1
		}
		return tag ^ h
	case KNumber:
		return tag ^ math.Float64bits(v.n)
	case KChar:
		return tag ^ uint64(v.c)
	case KObject:
		return tag ^ objHash(v.obj)
	default:
		return tag
	}
}

// TypeName returns the short name GavelScript programs see from a type-query
// built-in, e.g. "nil", "boolean", "number", "char", or the Obj's own kind
// name ("string", "table", ...).
func (v Value) TypeName() string {
	if v.kind == KObject {
		return v.obj.Kind.String()
	}
	return v.kind.String()
}

// String renders v the way GavelScript's print/tostring built-ins do.
func (v Value) String() string {
	switch v.kind {
	case KNil:
		return "nil"
	case KBool:
		if v.b {
			return "true"
		}
		return "false"
	case KNumber:
		return formatNumber(v.n)
	case KChar:
		return string(rune(v.c))
	case KObject:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%.0f", n)
	}
	return fmt.Sprintf("%g", n)
}
