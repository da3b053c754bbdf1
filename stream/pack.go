package stream

import (
	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
)

// Pack copies the packed image of count instances of dt, starting at byte
// offset within that image, into out. It returns the number of bytes
// written, which is less than len(out) only when the region is exhausted.
func Pack(in Buffer, count int64, dt *datatype.Type, offset int64, out []byte) (int64, error) {
	total, err := validate(typerrors.PhasePack, count, dt)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset > total {
		return 0, typerrors.InvalidOffset(typerrors.PhasePack, offset, total)
	}

	limit := min(int64(len(out)), total-offset)
	if limit == 0 {
		return 0, nil
	}
	debugf("pack %s count=%d offset=%d limit=%d", dt, count, offset, limit)

	c := newCursor(in, count, dt, offset, total)
	var done int64
	for done < limit {
		addr, n := c.next(limit - done)
		copy(out[done:done+n], in.Data[addr:addr+n])
		done += n
	}
	return done, nil
}

// Unpack scatters bytes of a packed image into count instances of dt,
// starting at byte offset within that image. It returns the number of bytes
// consumed from in.
func Unpack(in []byte, out Buffer, count int64, dt *datatype.Type, offset int64) (int64, error) {
	total, err := validate(typerrors.PhaseUnpack, count, dt)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset > total {
		return 0, typerrors.InvalidOffset(typerrors.PhaseUnpack, offset, total)
	}

	limit := min(int64(len(in)), total-offset)
	if limit == 0 {
		return 0, nil
	}
	debugf("unpack %s count=%d offset=%d limit=%d", dt, count, offset, limit)

	c := newCursor(out, count, dt, offset, total)
	var done int64
	for done < limit {
		addr, n := c.next(limit - done)
		copy(out.Data[addr:addr+n], in[done:done+n])
		done += n
	}
	return done, nil
}

// Marshal returns the whole packed image of count instances of dt.
func Marshal(in Buffer, count int64, dt *datatype.Type) ([]byte, error) {
	total, err := validate(typerrors.PhasePack, count, dt)
	if err != nil {
		return nil, err
	}
	out := make([]byte, total)
	if _, err := Pack(in, count, dt, 0, out); err != nil {
		return nil, err
	}
	return out, nil
}
