// Package bytecode implements GavelScript's binary (de)serializer: a
// platform-portable dump of a compiled Function (and everything it closes
// over constant-wise) to a byte stream, and the matching loader.
//
// Format (normative): magic "COSMO", one version byte, one endian byte
// (1 = the dump was produced on a big-endian host), then the root Function.
// Integers are written as fixed 32-bit quantities and byte-swapped on load
// if the endian byte disagrees with the host. Doubles are written as their
// raw 8 bytes -- not portable across differing float representations,
// a documented caveat, not a bug. Strings are length-prefixed byte runs.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/value"
)

// Version is bumped whenever the wire format changes incompatibly.
const Version byte = 0x01

var magic = [5]byte{'C', 'O', 'S', 'M', 'O'}

// constKind tags a constant pool entry's wire representation; deliberately
// narrower than value.Kind/value.ObjKind since only a subset of value kinds
// can ever appear in a Chunk's constant pool.
type constKind byte

const (
	ckNil constKind = iota
	ckBool
	ckNumber
	ckChar
	ckString
	ckFunction
)

// hostIsBigEndian reports whether this process is running on a big-endian
// host, used to decide the dump's endian byte and whether a load needs to
// byte-swap.
func hostIsBigEndian() bool {
	var x uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&x))
	return b[0] == 0
}

// Heap is the allocation surface Undump needs to materialize strings and
// function objects.
type Heap interface {
	NewString(s string) value.Value
	NewFunction(fp *value.FunctionProto) value.Value
}

// Dump serializes fp (and, recursively, every FunctionProto its constant
// pool references) to a self-contained byte stream.
func Dump(fp *value.FunctionProto) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(Version)
	if hostIsBigEndian() {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := dumpFunction(&buf, fp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dumpU32 and dumpF64 write in the host's own byte order; the endian byte
// written by Dump records which order that was, so Undump knows whether to
// byte-swap on a host that disagrees.
func dumpU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	if hostIsBigEndian() {
		binary.BigEndian.PutUint32(b[:], v)
	} else {
		binary.LittleEndian.PutUint32(b[:], v)
	}
	buf.Write(b[:])
}

func dumpF64(buf *bytes.Buffer, f float64) {
	var b [8]byte
	bits := math.Float64bits(f)
	if hostIsBigEndian() {
		binary.BigEndian.PutUint64(b[:], bits)
	} else {
		binary.LittleEndian.PutUint64(b[:], bits)
	}
	buf.Write(b[:])
}

func dumpString(buf *bytes.Buffer, s string) {
	dumpU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func dumpFunction(buf *bytes.Buffer, fp *value.FunctionProto) error {
	ch, ok := fp.Chunk.(*chunk.Chunk)
	if !ok {
		return fmt.Errorf("bytecode: function %q has no chunk", fp.Name)
	}

	dumpString(buf, fp.Name)
	dumpU32(buf, uint32(fp.Arity))
	dumpU32(buf, uint32(fp.NumUpvals))
	if fp.Embedded {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	dumpU32(buf, uint32(len(fp.UpvalInfos)))
	for _, info := range fp.UpvalInfos {
		if info.FromParentLocal {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		dumpU32(buf, uint32(info.Index))
	}

	dumpU32(buf, uint32(len(ch.Code)))
	for _, ins := range ch.Code {
		dumpU32(buf, uint32(ins))
	}
	dumpU32(buf, uint32(len(ch.Lines)))
	for _, ln := range ch.Lines {
		dumpU32(buf, uint32(ln))
	}

	dumpU32(buf, uint32(len(ch.Constants)))
	for _, c := range ch.Constants {
		if err := dumpConstant(buf, c); err != nil {
			return err
		}
	}

	dumpU32(buf, uint32(len(ch.Identifiers)))
	for _, id := range ch.Identifiers {
		if id.Kind() != value.KObject || id.AsObj().Kind != value.OString {
			return fmt.Errorf("bytecode: non-string identifier pool entry")
		}
		dumpString(buf, id.AsObj().Str())
	}
	return nil
}

func dumpConstant(buf *bytes.Buffer, v value.Value) error {
	switch v.Kind() {
	case value.KNil:
		buf.WriteByte(byte(ckNil))
	case value.KBool:
		buf.WriteByte(byte(ckBool))
		if v.AsBool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case value.KNumber:
		buf.WriteByte(byte(ckNumber))
		dumpF64(buf, v.AsNumber())
	case value.KChar:
		buf.WriteByte(byte(ckChar))
		buf.WriteByte(v.AsChar())
	case value.KObject:
		o := v.AsObj()
		switch o.Kind {
		case value.OString:
			buf.WriteByte(byte(ckString))
			dumpString(buf, o.Str())
		case value.OFunction:
			buf.WriteByte(byte(ckFunction))
			if err := dumpFunction(buf, o.Function()); err != nil {
				return err
			}
		default:
			return fmt.Errorf("bytecode: constant kind %s is not serializable", o.Kind.String())
		}
	default:
		return fmt.Errorf("bytecode: constant kind %s is not serializable", v.Kind().String())
	}
	return nil
}

// reader walks a dump's byte stream, applying an endian swap to every
// fixed-width integer read if the dump's endian byte disagreed with the
// host at Undump time.
type reader struct {
	b      []byte
	pos    int
	swap   bool
	heap   Heap
}

func (r *reader) bytesLeft() int { return len(r.b) - r.pos }

func (r *reader) u8() (byte, error) {
	if r.bytesLeft() < 1 {
		return 0, fmt.Errorf("bytecode: truncated stream")
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.bytesLeft() < 4 {
		return 0, fmt.Errorf("bytecode: truncated stream")
	}
	var v uint32
	if hostIsBigEndian() {
		v = binary.BigEndian.Uint32(r.b[r.pos : r.pos+4])
	} else {
		v = binary.LittleEndian.Uint32(r.b[r.pos : r.pos+4])
	}
	r.pos += 4
	if r.swap {
		v = bits32swap(v)
	}
	return v, nil
}

func bits32swap(u uint32) uint32 {
	return (u&0x000000FF)<<24 | (u&0x0000FF00)<<8 | (u&0x00FF0000)>>8 | (u&0xFF000000)>>24
}

func (r *reader) f64() (float64, error) {
	if r.bytesLeft() < 8 {
		return 0, fmt.Errorf("bytecode: truncated stream")
	}
	var bits uint64
	if hostIsBigEndian() {
		bits = binary.BigEndian.Uint64(r.b[r.pos : r.pos+8])
	} else {
		bits = binary.LittleEndian.Uint64(r.b[r.pos : r.pos+8])
	}
	r.pos += 8
	return math.Float64frombits(bits), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.bytesLeft() < int(n) {
		return "", fmt.Errorf("bytecode: truncated stream")
	}
	s := string(r.b[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// Undump parses a dump produced by Dump (on this host or another) back into
// a FunctionProto, allocating strings and nested Function constants against
// heap.
func Undump(heap Heap, data []byte) (*value.FunctionProto, error) {
	if len(data) < len(magic)+2 {
		return nil, fmt.Errorf("bytecode: truncated header")
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("bytecode: bad magic")
	}
	pos := len(magic)
	ver := data[pos]
	pos++
	if ver != Version {
		return nil, fmt.Errorf("bytecode: unsupported version %d", ver)
	}
	endianByte := data[pos]
	pos++

	r := &reader{b: data, pos: pos, swap: (endianByte == 1) != hostIsBigEndian(), heap: heap}
	return undumpFunction(r)
}

func undumpFunction(r *reader) (*value.FunctionProto, error) {
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	arity, err := r.u32()
	if err != nil {
		return nil, err
	}
	numUpvals, err := r.u32()
	if err != nil {
		return nil, err
	}
	embeddedByte, err := r.u8()
	if err != nil {
		return nil, err
	}

	nUpvalInfos, err := r.u32()
	if err != nil {
		return nil, err
	}
	upvalInfos := make([]value.UpvalInfo, nUpvalInfos)
	for i := range upvalInfos {
		fb, err := r.u8()
		if err != nil {
			return nil, err
		}
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		upvalInfos[i] = value.UpvalInfo{FromParentLocal: fb == 1, Index: int(idx)}
	}

	nCode, err := r.u32()
	if err != nil {
		return nil, err
	}
	code := make([]chunk.Instruction, nCode)
	for i := range code {
		w, err := r.u32()
		if err != nil {
			return nil, err
		}
		code[i] = chunk.Instruction(w)
	}

	nLines, err := r.u32()
	if err != nil {
		return nil, err
	}
	lines := make([]int, nLines)
	for i := range lines {
		ln, err := r.u32()
		if err != nil {
			return nil, err
		}
		lines[i] = int(ln)
	}

	nConsts, err := r.u32()
	if err != nil {
		return nil, err
	}
	consts := make([]value.Value, nConsts)
	for i := range consts {
		v, err := undumpConstant(r)
		if err != nil {
			return nil, err
		}
		consts[i] = v
	}

	nIdents, err := r.u32()
	if err != nil {
		return nil, err
	}
	idents := make([]value.Value, nIdents)
	for i := range idents {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		idents[i] = r.heap.NewString(s)
	}

	ch := &chunk.Chunk{Code: code, Lines: lines, Constants: consts, Identifiers: idents}
	fp := &value.FunctionProto{
		Name:       name,
		Arity:      int(arity),
		NumUpvals:  int(numUpvals),
		Embedded:   embeddedByte == 1,
		Chunk:      ch,
		UpvalInfos: upvalInfos,
	}
	return fp, nil
}

func undumpConstant(r *reader) (value.Value, error) {
	kb, err := r.u8()
	if err != nil {
		return value.Nil, err
	}
	switch constKind(kb) {
	case ckNil:
		return value.Nil, nil
	case ckBool:
		b, err := r.u8()
		if err != nil {
			return value.Nil, err
		}
		return value.Bool(b == 1), nil
	case ckNumber:
		f, err := r.f64()
		if err != nil {
			return value.Nil, err
		}
		return value.Number(f), nil
	case ckChar:
		b, err := r.u8()
		if err != nil {
			return value.Nil, err
		}
		return value.Char(b), nil
	case ckString:
		s, err := r.str()
		if err != nil {
			return value.Nil, err
		}
		return r.heap.NewString(s), nil
	case ckFunction:
		fp, err := undumpFunction(r)
		if err != nil {
			return value.Nil, err
		}
		return r.heap.NewFunction(fp), nil
	default:
		return value.Nil, fmt.Errorf("bytecode: unknown constant tag %d", kb)
	}
}
