package stream

import (
	"github.com/wippyai/typerep/datatype"
)

// cursor walks the runs of a region in packed order. A gap-free region is
// walked as a single run spanning all instances.
type cursor struct {
	origin int64
	extent int64
	segs   []datatype.Segment
	whole  [1]datatype.Segment

	inst int64
	seg  int
	off  int64
}

// newCursor positions a cursor at packed byte offset of a region whose
// packed image is total bytes long. offset must be below total.
func newCursor(buf Buffer, count int64, dt *datatype.Type, offset, total int64) *cursor {
	c := &cursor{origin: buf.Origin, extent: dt.Extent()}
	if dt.IsGapFree() {
		c.whole[0] = datatype.Segment{Offset: dt.Segments()[0].Offset, Length: total}
		c.segs = c.whole[:]
		c.off = offset
		return c
	}
	c.segs = dt.Segments()
	size := dt.Size()
	c.inst = offset / size
	c.seg, c.off = dt.Seek(offset % size)
	return c
}

// next returns the absolute index and length of the next run, capped at
// limit bytes, and advances past it.
func (c *cursor) next(limit int64) (int64, int64) {
	s := c.segs[c.seg]
	addr := c.origin + c.inst*c.extent + s.Offset + c.off
	n := s.Length - c.off
	if n > limit {
		c.off += limit
		return addr, limit
	}
	c.off = 0
	c.seg++
	if c.seg == len(c.segs) {
		c.seg = 0
		c.inst++
	}
	return addr, n
}
