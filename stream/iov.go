package stream

import (
	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
)

// segmentCount returns the number of segments in the logical segment
// sequence of a region. A gap-free region is a single segment.
func segmentCount(count int64, dt *datatype.Type, total int64) (int64, bool) {
	if total == 0 {
		return 0, true
	}
	if dt.IsGapFree() {
		return 1, true
	}
	return abi.SafeMul(count, int64(len(dt.Segments())))
}

// ToIOV writes segment descriptors for count instances of dt into iov,
// starting at segment iovOffset of the region's segment sequence. It
// returns the number written; callers resume at iovOffset plus that number.
func ToIOV(buf Buffer, count int64, dt *datatype.Type, iovOffset int64, iov []IOV) (int, error) {
	total, err := validate(typerrors.PhaseIOV, count, dt)
	if err != nil {
		return 0, err
	}
	nsegs, ok := segmentCount(count, dt, total)
	if !ok {
		return 0, typerrors.Overflow(typerrors.PhaseIOV, []string{"count"}, count, "segment count")
	}
	if iovOffset < 0 || iovOffset > nsegs {
		return 0, typerrors.InvalidOffset(typerrors.PhaseIOV, iovOffset, nsegs)
	}

	n := int(min(int64(len(iov)), nsegs-iovOffset))
	if n == 0 {
		return 0, nil
	}

	segs := dt.Segments()
	if dt.IsGapFree() {
		iov[0] = IOV{Offset: buf.Origin + segs[0].Offset, Len: total}
		return 1, nil
	}

	per := int64(len(segs))
	inst, j := iovOffset/per, int(iovOffset%per)
	extent := dt.Extent()
	for k := 0; k < n; k++ {
		s := segs[j]
		iov[k] = IOV{Offset: buf.Origin + inst*extent + s.Offset, Len: s.Length}
		j++
		if j == len(segs) {
			j = 0
			inst++
		}
	}
	return n, nil
}

// IOVLen returns how many whole segments of the region's segment sequence
// fit in maxBytes. A negative maxBytes means no limit.
func IOVLen(count int64, dt *datatype.Type, maxBytes int64) (int64, error) {
	total, err := validate(typerrors.PhaseIOV, count, dt)
	if err != nil {
		return 0, err
	}
	nsegs, ok := segmentCount(count, dt, total)
	if !ok {
		return 0, typerrors.Overflow(typerrors.PhaseIOV, []string{"count"}, count, "segment count")
	}
	if maxBytes < 0 || maxBytes >= total {
		return nsegs, nil
	}
	if dt.IsGapFree() {
		return 0, nil
	}

	size := dt.Size()
	full := maxBytes / size
	idx, _ := dt.Seek(maxBytes % size)
	return full*int64(len(dt.Segments())) + int64(idx), nil
}

// ToIOVBytes is the byte-granular form of ToIOV. It describes the packed
// image from byteOffset on, splitting segments at both ends as needed, and
// stops after len(iov) descriptors or maxBytes bytes (no limit when
// negative). It returns the descriptors written and the bytes they cover.
func ToIOVBytes(buf Buffer, count int64, dt *datatype.Type, byteOffset int64, iov []IOV, maxBytes int64) (int, int64, error) {
	total, err := validate(typerrors.PhaseIOV, count, dt)
	if err != nil {
		return 0, 0, err
	}
	if byteOffset < 0 || byteOffset > total {
		return 0, 0, typerrors.InvalidOffset(typerrors.PhaseIOV, byteOffset, total)
	}

	limit := total - byteOffset
	if maxBytes >= 0 {
		limit = min(limit, maxBytes)
	}
	if limit == 0 || len(iov) == 0 {
		return 0, 0, nil
	}

	c := newCursor(buf, count, dt, byteOffset, total)
	var done int64
	n := 0
	for n < len(iov) && done < limit {
		addr, l := c.next(limit - done)
		iov[n] = IOV{Offset: addr, Len: l}
		done += l
		n++
	}
	return n, done, nil
}
