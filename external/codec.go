package external

import (
	"encoding/binary"
	"math/bits"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
	"github.com/wippyai/typerep/stream"
)

// Pack writes count instances of dt from in to out in external32 form and
// returns the number of bytes written. The whole region is converted in
// one call; out must hold at least count*SizeExternal32(dt) bytes.
//
// A value that does not fit its canonical width fails with an overflow
// error. Values before it have already been written.
func Pack(in stream.Buffer, count int64, dt *datatype.Type, out []byte) (int64, error) {
	total, err := regionSize(count, dt)
	if err != nil {
		return 0, err
	}
	if int64(len(out)) < total {
		return 0, shortBuffer("output", int64(len(out)), total)
	}

	extent := dt.Extent()
	var pos int64
	for i := int64(0); i < count; i++ {
		origin := in.Origin + i*extent
		for _, e := range dt.Elements() {
			m := widths[e.Basic]
			native := e.Basic.Size()
			for k := int64(0); k < e.Count; k++ {
				at := origin + e.Offset + k*native
				if err := encode(out[pos:pos+m.width], in.Data[at:at+native], m, e.Basic); err != nil {
					return pos, err
				}
				pos += m.width
			}
		}
	}
	return pos, nil
}

// Unpack reads count instances of dt in external32 form from in into out
// and returns the number of bytes consumed.
func Unpack(in []byte, out stream.Buffer, count int64, dt *datatype.Type) (int64, error) {
	total, err := regionSize(count, dt)
	if err != nil {
		return 0, err
	}
	if int64(len(in)) < total {
		return 0, shortBuffer("input", int64(len(in)), total)
	}

	extent := dt.Extent()
	var pos int64
	for i := int64(0); i < count; i++ {
		origin := out.Origin + i*extent
		for _, e := range dt.Elements() {
			m := widths[e.Basic]
			native := e.Basic.Size()
			for k := int64(0); k < e.Count; k++ {
				at := origin + e.Offset + k*native
				if err := decode(out.Data[at:at+native], in[pos:pos+m.width], m, e.Basic); err != nil {
					return pos, err
				}
				pos += m.width
			}
		}
	}
	return pos, nil
}

// Marshal returns the external32 form of count instances of dt.
func Marshal(in stream.Buffer, count int64, dt *datatype.Type) ([]byte, error) {
	total, err := regionSize(count, dt)
	if err != nil {
		return nil, err
	}
	out := make([]byte, total)
	if _, err := Pack(in, count, dt, out); err != nil {
		return nil, err
	}
	return out, nil
}

func regionSize(count int64, dt *datatype.Type) (int64, error) {
	if err := checkCommitted(dt); err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, typerrors.NegativeArgument(typerrors.PhaseExternal, []string{"count"}, count)
	}
	per, err := instanceSize(dt)
	if err != nil {
		return 0, err
	}
	total, ok := abi.SafeMul(count, per)
	if !ok {
		return 0, typerrors.Overflow(typerrors.PhaseExternal, []string{"count"}, count, "external32 size")
	}
	return total, nil
}

func shortBuffer(which string, got, need int64) error {
	return typerrors.New(typerrors.PhaseExternal, typerrors.KindInvalidArgument).
		Path(which).
		Value(got).
		Detail("%s buffer holds %d bytes, need %d", which, got, need).
		Build()
}

func encode(dst, src []byte, m mapping, b datatype.Basic) error {
	switch m.class {
	case classRaw:
		dst[0] = src[0]
	case classFloat:
		storeBig(dst, loadNative(src))
	case classComplex:
		half := len(dst) / 2
		storeBig(dst[:half], loadNative(src[:half]))
		storeBig(dst[half:], loadNative(src[half:]))
	case classInt:
		v := signExtend(loadNative(src), len(src))
		if !fitsSigned(v, len(dst)) {
			return typerrors.Overflow(typerrors.PhaseExternal, nil, v, b.String()+" external32")
		}
		storeBig(dst, uint64(v))
	case classUint:
		v := loadNative(src)
		if !fitsUnsigned(v, len(dst)) {
			return typerrors.Overflow(typerrors.PhaseExternal, nil, v, b.String()+" external32")
		}
		storeBig(dst, v)
	default:
		return typerrors.UnsupportedConversion(typerrors.PhaseExternal, b.String())
	}
	return nil
}

func decode(dst, src []byte, m mapping, b datatype.Basic) error {
	switch m.class {
	case classRaw:
		dst[0] = src[0]
	case classFloat:
		storeNative(dst, loadBig(src))
	case classComplex:
		half := len(src) / 2
		storeNative(dst[:half], loadBig(src[:half]))
		storeNative(dst[half:], loadBig(src[half:]))
	case classInt:
		v := signExtend(loadBig(src), len(src))
		if !fitsSigned(v, len(dst)) {
			return typerrors.Overflow(typerrors.PhaseExternal, nil, v, "native "+b.String())
		}
		storeNative(dst, uint64(v))
	case classUint:
		v := loadBig(src)
		if !fitsUnsigned(v, len(dst)) {
			return typerrors.Overflow(typerrors.PhaseExternal, nil, v, "native "+b.String())
		}
		storeNative(dst, v)
	default:
		return typerrors.UnsupportedConversion(typerrors.PhaseExternal, b.String())
	}
	return nil
}

func signExtend(u uint64, size int) int64 {
	shift := 64 - 8*size
	return int64(u<<shift) >> shift
}

func fitsSigned(v int64, size int) bool {
	if size >= 8 {
		return true
	}
	limit := int64(1) << (8*size - 1)
	return v >= -limit && v < limit
}

func fitsUnsigned(v uint64, size int) bool {
	return size >= 8 || bits.Len64(v) <= 8*size
}

func loadNative(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.NativeEndian.Uint16(b))
	case 4:
		return uint64(binary.NativeEndian.Uint32(b))
	default:
		return binary.NativeEndian.Uint64(b)
	}
}

func storeNative(b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.NativeEndian.PutUint16(b, uint16(v))
	case 4:
		binary.NativeEndian.PutUint32(b, uint32(v))
	default:
		binary.NativeEndian.PutUint64(b, v)
	}
}

func loadBig(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(b))
	case 4:
		return uint64(binary.BigEndian.Uint32(b))
	default:
		return binary.BigEndian.Uint64(b)
	}
}

func storeBig(b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(b, uint32(v))
	default:
		binary.BigEndian.PutUint64(b, v)
	}
}
