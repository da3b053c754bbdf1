package stream

import (
	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
)

// LocalCopy copies the packed image of one region into another without an
// intermediate buffer the caller has to size. The two regions may use
// different types; only their packed images are matched. When the source
// image is longer than the destination, the destination is filled and a
// truncation error is returned alongside the byte count.
func LocalCopy(src Buffer, srcCount int64, srcType *datatype.Type, dst Buffer, dstCount int64, dstType *datatype.Type) (int64, error) {
	srcTotal, err := validate(typerrors.PhasePack, srcCount, srcType)
	if err != nil {
		return 0, err
	}
	dstTotal, err := validate(typerrors.PhaseUnpack, dstCount, dstType)
	if err != nil {
		return 0, err
	}

	total := min(srcTotal, dstTotal)
	n, err := localCopy(src, srcCount, srcType, dst, dstCount, dstType, total)
	if err != nil {
		return n, err
	}
	if srcTotal > dstTotal {
		return n, typerrors.New(typerrors.PhaseUnpack, typerrors.KindInvalidArgument).
			Value(srcTotal).
			Detail("message of %d bytes truncated to %d", srcTotal, dstTotal).
			Build()
	}
	return n, nil
}

func localCopy(src Buffer, srcCount int64, srcType *datatype.Type, dst Buffer, dstCount int64, dstType *datatype.Type, total int64) (int64, error) {
	if total == 0 {
		return 0, nil
	}

	switch {
	case srcType.IsGapFree() && dstType.IsGapFree():
		s := src.Origin + srcType.Segments()[0].Offset
		d := dst.Origin + dstType.Segments()[0].Offset
		return int64(copy(dst.Data[d:d+total], src.Data[s:s+total])), nil

	case srcType.IsGapFree():
		s := src.Origin + srcType.Segments()[0].Offset
		return Unpack(src.Data[s:s+total], dst, dstCount, dstType, 0)

	case dstType.IsGapFree():
		d := dst.Origin + dstType.Segments()[0].Offset
		return Pack(src, srcCount, srcType, 0, dst.Data[d:d+total])
	}

	chunk := getChunk()
	defer putChunk(chunk)

	var off int64
	for off < total {
		limit := min(int64(len(*chunk)), total-off)
		n, err := Pack(src, srcCount, srcType, off, (*chunk)[:limit])
		if err != nil {
			return off, err
		}
		if _, err := Unpack((*chunk)[:n], dst, dstCount, dstType, off); err != nil {
			return off, err
		}
		off += n
	}
	debugf("local copy %d bytes via %d byte chunks", total, len(*chunk))
	return off, nil
}
