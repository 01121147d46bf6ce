package value

import (
	"fmt"
	"unsafe"
)

// ObjKind discriminates the heap object variants. Kept as a tagged union
// (single Obj struct) rather than a virtual hierarchy: every subsystem that
// needs to act on an object (equality, hashing, stringification, GC
// blackening) does so with a switch on Kind.
type ObjKind uint8

const (
	OString ObjKind = iota
	OTable
	OPrototable
	OFunction
	OClosure
	OUpvalue
	OCFunction
	OBoundCall
	OObjection
)

func (k ObjKind) String() string {
	switch k {
	case OString:
		return "string"
	case OTable:
		return "table"
	case OPrototable:
		return "prototable"
	case OFunction:
		return "function"
	case OClosure:
		return "closure"
	case OUpvalue:
		return "upvalue"
	case OCFunction:
		return "cfunction"
	case OBoundCall:
		return "boundcall"
	case OObjection:
		return "objection"
	default:
		return "unknown-object"
	}
}

// Obj is the single heap-object type. Exactly one of the typed payload fields
// below is meaningful, selected by Kind. GCNext and Marked are bookkeeping
// used exclusively by package gc's intrusive object list and tri-color
// sweep; nothing outside gc should read or write them.
type Obj struct {
	Kind ObjKind

	GCNext *Obj
	Marked bool

	str string // OString

	table *Table // OTable

	proto *Prototable // OPrototable

	fn *FunctionProto // OFunction

	closure *Closure // OClosure

	upvalue *Upvalue // OUpvalue

	cfn CFunc // OCFunction

	bound *BoundCall // OBoundCall

	objection *Objection // OObjection
}

// --- constructors (pure, no GC registration: package gc wraps these and
// links the result into the heap's object list and bumps the byte counter) ---

func NewStringObj(s string) *Obj { return &Obj{Kind: OString, str: s} }
func NewTableObj(t *Table) *Obj  { return &Obj{Kind: OTable, table: t} }
func NewPrototableObj(p *Prototable) *Obj {
	return &Obj{Kind: OPrototable, proto: p}
}
func NewFunctionObj(fn *FunctionProto) *Obj { return &Obj{Kind: OFunction, fn: fn} }
func NewClosureObj(c *Closure) *Obj         { return &Obj{Kind: OClosure, closure: c} }
func NewUpvalueObj(u *Upvalue) *Obj         { return &Obj{Kind: OUpvalue, upvalue: u} }
func NewCFunctionObj(f CFunc) *Obj          { return &Obj{Kind: OCFunction, cfn: f} }
func NewBoundCallObj(b *BoundCall) *Obj     { return &Obj{Kind: OBoundCall, bound: b} }
func NewObjectionObj(o *Objection) *Obj     { return &Obj{Kind: OObjection, objection: o} }

// --- typed accessors ---

func (o *Obj) Str() string { return o.str }

func (o *Obj) Table() *Table { return o.table }

func (o *Obj) Prototable() *Prototable { return o.proto }

func (o *Obj) Function() *FunctionProto { return o.fn }

func (o *Obj) Closure() *Closure { return o.closure }

func (o *Obj) Upvalue() *Upvalue { return o.upvalue }

func (o *Obj) CFunction() CFunc { return o.cfn }

func (o *Obj) BoundCall() *BoundCall { return o.bound }

func (o *Obj) Objection() *Objection { return o.objection }

// String renders the object the way GavelScript's print/tostring built-ins
// do for heap values.
func (o *Obj) String() string {
	switch o.Kind {
	case OString:
		return o.str
	case OTable:
		return fmt.Sprintf("table: %p", o)
	case OPrototable:
		return fmt.Sprintf("prototable: %p", o)
	case OFunction:
		name := o.fn.Name
		if name == "" {
			name = "anonymous"
		}
		return fmt.Sprintf("function: %s", name)
	case OClosure:
		return o.closure.Proto.String()
	case OUpvalue:
		return "upvalue"
	case OCFunction:
		return "function: builtin"
	case OBoundCall:
		return "function: bound"
	case OObjection:
		return "objection: " + o.objection.Message
	default:
		return "<invalid object>"
	}
}

func objEqual(a, b *Obj) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	// Strings compare by content so callers that bypass interning (e.g. a
	// Heap created with InternStrings=false) still get value semantics; for
	// an interned pool, identical content always shares identity anyway (see
	// invariant (v) in the specification), so this is equivalent to a
	// pointer comparison for interned strings and correct for non-interned
	// ones too.
	if a.Kind == OString {
		return a.str == b.str
	}
	return false
}

func objHash(o *Obj) uint64 {
	if o == nil {
		return 0
	}
	if o.Kind == OString {
		return fnv1a(o.str)
	}
	// identity hash for everything else: objects of other kinds are only
	// ever equal to themselves.
	return uint64(uintptr(unsafe.Pointer(o)))
}

func fnv1a(s string) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
