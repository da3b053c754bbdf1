package external

import (
	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
)

// class selects the conversion applied to one elementary value.
type class uint8

const (
	classNone    class = iota // no canonical mapping
	classRaw                  // single bytes
	classInt                  // two's complement integer, sign extended
	classUint                 // unsigned integer, zero extended
	classFloat                // IEEE value, byte swapped
	classComplex              // two IEEE halves, each byte swapped
)

type mapping struct {
	width int64
	class class
}

var widths = map[datatype.Basic]mapping{
	datatype.BasicByte:       {1, classRaw},
	datatype.BasicPacked:     {1, classRaw},
	datatype.BasicChar:       {1, classRaw},
	datatype.BasicInt8:       {1, classRaw},
	datatype.BasicUint8:      {1, classRaw},
	datatype.BasicBool:       {1, classRaw},
	datatype.BasicInt16:      {2, classInt},
	datatype.BasicUint16:     {2, classUint},
	datatype.BasicInt32:      {4, classInt},
	datatype.BasicUint32:     {4, classUint},
	datatype.BasicInt:        {4, classInt},
	datatype.BasicLong:       {4, classInt},
	datatype.BasicFloat32:    {4, classFloat},
	datatype.BasicInt64:      {8, classInt},
	datatype.BasicUint64:     {8, classUint},
	datatype.BasicAint:       {8, classInt},
	datatype.BasicFloat64:    {8, classFloat},
	datatype.BasicComplex64:  {8, classComplex},
	datatype.BasicComplex128: {16, classComplex},
}

// Width returns the external32 width of an elementary type.
func Width(b datatype.Basic) (int64, error) {
	m, ok := widths[b]
	if !ok {
		return 0, typerrors.UnsupportedConversion(typerrors.PhaseExternal, b.String())
	}
	return m.width, nil
}

// SizeExternal32 returns the canonical size of one instance of dt.
func SizeExternal32(dt *datatype.Type) (int64, error) {
	if err := checkCommitted(dt); err != nil {
		return 0, err
	}
	return instanceSize(dt)
}

func instanceSize(dt *datatype.Type) (int64, error) {
	var size int64
	for _, e := range dt.Elements() {
		w, err := Width(e.Basic)
		if err != nil {
			return 0, err
		}
		n, ok := abi.SafeMul(w, e.Count)
		if !ok {
			return 0, typerrors.Overflow(typerrors.PhaseExternal, nil, e.Count, "external32 size")
		}
		if size, ok = abi.SafeAdd(size, n); !ok {
			return 0, typerrors.Overflow(typerrors.PhaseExternal, nil, e.Count, "external32 size")
		}
	}
	return size, nil
}

func checkCommitted(dt *datatype.Type) error {
	if dt == nil {
		return typerrors.InvalidArgument(typerrors.PhaseExternal, []string{"datatype"}, "nil datatype")
	}
	if !dt.IsCommitted() {
		return typerrors.NotCommitted(typerrors.PhaseExternal, dt.String())
	}
	return nil
}
