package datatype

import (
	"math"
	"unsafe"
)

// Basic identifies an elementary type. The numeric values are stable and
// are used as portable identities in flattened descriptors; new entries are
// only ever appended.
type Basic uint8

const (
	BasicInvalid Basic = iota
	BasicByte
	BasicPacked
	BasicChar
	BasicInt8
	BasicUint8
	BasicInt16
	BasicUint16
	BasicInt32
	BasicUint32
	BasicInt64
	BasicUint64
	BasicInt
	BasicLong
	BasicAint
	BasicFloat32
	BasicFloat64
	BasicComplex64
	BasicComplex128
	BasicBool
	BasicLongDouble

	numBasics
)

type basicInfo struct {
	name  string
	size  int64
	align int64
}

var basics = [numBasics]basicInfo{
	BasicInvalid:    {"invalid", 0, 1},
	BasicByte:       {"byte", 1, 1},
	BasicPacked:     {"packed", 1, 1},
	BasicChar:       {"char", 1, 1},
	BasicInt8:       {"int8", 1, 1},
	BasicUint8:      {"uint8", 1, 1},
	BasicInt16:      {"int16", 2, 2},
	BasicUint16:     {"uint16", 2, 2},
	BasicInt32:      {"int32", 4, 4},
	BasicUint32:     {"uint32", 4, 4},
	BasicInt64:      {"int64", 8, 8},
	BasicUint64:     {"uint64", 8, 8},
	BasicInt:        {"int", 4, 4},
	BasicLong:       {"long", 8, 8},
	BasicAint:       {"aint", int64(unsafe.Sizeof(uintptr(0))), int64(unsafe.Alignof(uintptr(0)))},
	BasicFloat32:    {"float32", 4, 4},
	BasicFloat64:    {"float64", 8, 8},
	BasicComplex64:  {"complex64", 8, 4},
	BasicComplex128: {"complex128", 16, 8},
	BasicBool:       {"bool", 1, 1},
	BasicLongDouble: {"long_double", 16, 16},
}

func (b Basic) String() string {
	if b < numBasics {
		return basics[b].name
	}
	return "unknown"
}

// Valid reports whether b names a known elementary type.
func (b Basic) Valid() bool {
	return b > BasicInvalid && b < numBasics
}

// Size returns the native size in bytes on this machine.
func (b Basic) Size() int64 {
	if b < numBasics {
		return basics[b].size
	}
	return 0
}

// Align returns the native alignment in bytes on this machine.
func (b Basic) Align() int64 {
	if b < numBasics {
		return basics[b].align
	}
	return 1
}

// ParseBasic maps an elementary type name back to its Basic.
func ParseBasic(name string) (Basic, bool) {
	for i := BasicByte; i < numBasics; i++ {
		if basics[i].name == name {
			return i, true
		}
	}
	return BasicInvalid, false
}

// Pairable reports whether b can be the value member of a Pair.
func (b Basic) Pairable() bool {
	switch b {
	case BasicFloat32, BasicFloat64, BasicLong, BasicInt, BasicInt32, BasicInt16, BasicLongDouble:
		return true
	default:
		return false
	}
}

var elementary [numBasics]*Type

// Elementary singletons.
var (
	Byte       = Of(BasicByte)
	Packed     = Of(BasicPacked)
	Char       = Of(BasicChar)
	Int8       = Of(BasicInt8)
	Uint8      = Of(BasicUint8)
	Int16      = Of(BasicInt16)
	Uint16     = Of(BasicUint16)
	Int32      = Of(BasicInt32)
	Uint32     = Of(BasicUint32)
	Int64      = Of(BasicInt64)
	Uint64     = Of(BasicUint64)
	Int        = Of(BasicInt)
	Long       = Of(BasicLong)
	Aint       = Of(BasicAint)
	Float32    = Of(BasicFloat32)
	Float64    = Of(BasicFloat64)
	Complex64  = Of(BasicComplex64)
	Complex128 = Of(BasicComplex128)
	Bool       = Of(BasicBool)
	LongDouble = Of(BasicLongDouble)
)

// Of returns the committed singleton for an elementary type, or nil if b is
// not valid.
func Of(b Basic) *Type {
	if !b.Valid() {
		return nil
	}
	if t := elementary[b]; t != nil {
		return t
	}
	size := b.Size()
	t := &Type{
		kind:        KindElementary,
		basic:       b,
		size:        size,
		extent:      size,
		ub:          size,
		trueUB:      size,
		align:       b.Align(),
		elementSize: size,
		segs:        []Segment{{Offset: 0, Length: size}},
		prefix:      []int64{0, size},
		elems:       []Element{{Offset: 0, Basic: b, Count: 1}},
		contig:      true,
	}
	t.refs.Store(math.MaxInt64 / 2)
	t.committed.Store(true)
	elementary[b] = t
	return t
}
