// Package linear runs typed transfers directly against WebAssembly linear
// memories hosted by wazero.
//
// A guest exposes structured data at some address of its memory; Memory
// gathers it with stream.Pack, scatters into it with stream.Unpack, or
// describes it with stream.ToIOV, all without copying the memory out of the
// runtime. Every call bounds-checks the whole region against the current
// memory size first, so a bad guest address fails instead of panicking.
//
// Views are taken per call. Growing the memory between calls is safe;
// growing it during a call from another goroutine is not.
package linear

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
	"github.com/wippyai/typerep/stream"
)

// Memory adapts a wazero api.Memory to typed transfers.
type Memory struct {
	Mem api.Memory
}

// Wrap returns a Memory for mem, or nil when mem is nil.
func Wrap(mem api.Memory) *Memory {
	if mem == nil {
		return nil
	}
	return &Memory{Mem: mem}
}

// Region returns a Buffer addressing count instances of dt at addr after
// checking that every touched byte lies inside the memory.
func (m *Memory) Region(addr uint32, count int64, dt *datatype.Type) (stream.Buffer, error) {
	if dt == nil {
		return stream.Buffer{}, typerrors.InvalidArgument(typerrors.PhaseMemory, []string{"datatype"}, "nil datatype")
	}
	if count < 0 {
		return stream.Buffer{}, typerrors.NegativeArgument(typerrors.PhaseMemory, []string{"count"}, count)
	}

	size := m.Mem.Size()
	data, ok := m.Mem.Read(0, size)
	if !ok {
		return stream.Buffer{}, typerrors.OutOfBounds(typerrors.PhaseMemory, 0, int64(size), int64(size))
	}
	buf := stream.At(data, int64(addr))
	if count == 0 || dt.Size() == 0 {
		return buf, nil
	}

	lo, hi, ok := span(count, dt)
	if !ok {
		return stream.Buffer{}, typerrors.Overflow(typerrors.PhaseMemory, []string{"count"}, count, "region span")
	}
	start, end := int64(addr)+lo, int64(addr)+hi
	if start < 0 || end > int64(size) {
		return stream.Buffer{}, typerrors.OutOfBounds(typerrors.PhaseMemory, start, hi-lo, int64(size))
	}
	return buf, nil
}

// span returns the touched byte range of count instances relative to the
// origin of the first.
func span(count int64, dt *datatype.Type) (int64, int64, bool) {
	last, ok := abi.SafeMul(count-1, dt.Extent())
	if !ok {
		return 0, 0, false
	}
	lo, ok1 := abi.SafeAdd(dt.TrueLB(), abi.Min64(0, last))
	hi, ok2 := abi.SafeAdd(dt.TrueUB(), abi.Max64(0, last))
	return lo, hi, ok1 && ok2
}

// Pack gathers count instances of dt at addr into out, resuming at offset
// within the packed image.
func (m *Memory) Pack(addr uint32, count int64, dt *datatype.Type, offset int64, out []byte) (int64, error) {
	buf, err := m.Region(addr, count, dt)
	if err != nil {
		return 0, err
	}
	return stream.Pack(buf, count, dt, offset, out)
}

// Unpack scatters packed bytes into count instances of dt at addr.
func (m *Memory) Unpack(in []byte, addr uint32, count int64, dt *datatype.Type, offset int64) (int64, error) {
	buf, err := m.Region(addr, count, dt)
	if err != nil {
		return 0, err
	}
	return stream.Unpack(in, buf, count, dt, offset)
}

// ToIOV describes the region at addr. Descriptor offsets are guest
// addresses.
func (m *Memory) ToIOV(addr uint32, count int64, dt *datatype.Type, iovOffset int64, iov []stream.IOV) (int, error) {
	buf, err := m.Region(addr, count, dt)
	if err != nil {
		return 0, err
	}
	return stream.ToIOV(buf, count, dt, iovOffset, iov)
}

// Copy moves a typed region from one linear memory to another, or within
// one memory, matching the two regions by packed image.
func Copy(dst *Memory, dstAddr uint32, dstCount int64, dstType *datatype.Type,
	src *Memory, srcAddr uint32, srcCount int64, srcType *datatype.Type) (int64, error) {
	sbuf, err := src.Region(srcAddr, srcCount, srcType)
	if err != nil {
		return 0, err
	}
	dbuf, err := dst.Region(dstAddr, dstCount, dstType)
	if err != nil {
		return 0, err
	}
	return stream.LocalCopy(sbuf, srcCount, srcType, dbuf, dstCount, dstType)
}
