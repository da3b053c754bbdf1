package stream

import (
	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
)

// Buffer addresses a typed region: displacement d of instance i is
// Data[Origin + i*extent + d].
type Buffer struct {
	Data   []byte
	Origin int64
}

// At returns a Buffer whose instances start at data[origin].
func At(data []byte, origin int64) Buffer {
	return Buffer{Data: data, Origin: origin}
}

// IOV describes one contiguous run of a region. Offset is an absolute index
// into the Buffer's Data.
type IOV struct {
	Offset int64
	Len    int64
}

// Bytes returns the run as a view of data without copying.
func (v IOV) Bytes(data []byte) []byte {
	return data[v.Offset : v.Offset+v.Len]
}

// End returns the index one past the run.
func (v IOV) End() int64 {
	return v.Offset + v.Len
}

// PackedSize returns the length of the packed image of count instances of
// dt, or -1 when it does not fit in an int64.
func PackedSize(count int64, dt *datatype.Type) int64 {
	n, ok := abi.SafeMul(count, dt.Size())
	if !ok {
		return -1
	}
	return n
}

// Copy copies raw bytes and returns the number copied.
func Copy(out, in []byte) int {
	return copy(out, in)
}

// validate checks the arguments shared by every transfer and returns the
// packed image length of the region.
func validate(phase typerrors.Phase, count int64, dt *datatype.Type) (int64, error) {
	if dt == nil {
		return 0, typerrors.InvalidArgument(phase, []string{"datatype"}, "nil datatype")
	}
	if !dt.IsCommitted() {
		return 0, typerrors.NotCommitted(phase, dt.String())
	}
	if count < 0 {
		return 0, typerrors.NegativeArgument(phase, []string{"count"}, count)
	}
	total, ok := abi.SafeMul(count, dt.Size())
	if !ok {
		return 0, typerrors.Overflow(phase, []string{"count"}, count, "packed size")
	}
	return total, nil
}
