package datatype

import (
	"math"

	"go.uber.org/zap"

	typerrors "github.com/wippyai/typerep/errors"
)

// MaxSegments bounds the number of segments or element runs a single commit
// may materialize. Commits that would exceed it fail with OutOfMemory.
var MaxSegments int64 = 1 << 28

// Commit builds the segment list. Committing an already committed type is
// a no-op; bases are committed first.
func (t *Type) Commit() error {
	if t.committed.Load() {
		return nil
	}
	if !t.alive() {
		return typerrors.InvalidArgument(typerrors.PhaseCommit, nil, "commit of destroyed datatype")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed.Load() {
		return nil
	}

	for _, base := range t.contents.Types {
		if err := base.Commit(); err != nil {
			return err
		}
	}

	if t.kind == KindResized || t.kind == KindDup {
		base := t.contents.Types[0]
		t.segs = base.segs
		t.elems = base.elems
	} else {
		est := t.estimateRuns()
		if est > MaxSegments {
			return typerrors.OutOfMemory(typerrors.PhaseCommit, saturatingMul(est, 24))
		}
		var sb segmentBuilder
		var eb elementBuilder
		err := t.eachBlock(func(disp, blocklen int64, base *Type) error {
			sb.block(disp, blocklen, base)
			eb.block(disp, blocklen, base)
			return nil
		})
		if err != nil {
			return err
		}
		t.segs = sb.segs
		t.elems = eb.elems
	}

	t.prefix = make([]int64, len(t.segs)+1)
	for i, s := range t.segs {
		t.prefix[i+1] = t.prefix[i] + s.Length
	}
	t.contig = len(t.segs) == 1 && t.segs[0].Length == t.TrueExtent()
	t.committed.Store(true)

	Logger().Debug("committed datatype",
		zap.Stringer("type", t),
		zap.Int("segments", len(t.segs)),
		zap.Int("elements", len(t.elems)),
		zap.Bool("contiguous", t.contig),
		zap.Int64("extent", t.extent),
	)
	return nil
}

// estimateRuns returns an upper bound on the segment and element runs the
// commit would produce.
func (t *Type) estimateRuns() int64 {
	c := &t.contents
	if t.kind == KindVector || t.kind == KindHVector {
		if _, ok := t.backToBack(); !ok {
			segs, elems := blockRuns(c.BlockLength, c.Types[0])
			return max(saturatingMul(segs, c.Count), saturatingMul(elems, c.Count))
		}
	}

	var segs, elems int64
	_ = t.eachBlock(func(_, blocklen int64, base *Type) error {
		s, e := blockRuns(blocklen, base)
		segs = saturatingAdd(segs, s)
		elems = saturatingAdd(elems, e)
		if segs > MaxSegments || elems > MaxSegments {
			return errStop
		}
		return nil
	})
	return max(segs, elems)
}

// blockRuns bounds the segment and element runs one block of blocklen base
// instances adds.
func blockRuns(blocklen int64, base *Type) (segs, elems int64) {
	if blocklen == 0 || base.size == 0 {
		return 0, 0
	}
	if base.IsGapFree() {
		segs = 1
	} else {
		segs = saturatingMul(blocklen, int64(len(base.segs)))
	}
	if base.elemsGapFree() {
		elems = 1
	} else {
		elems = saturatingMul(blocklen, int64(len(base.elems)))
	}
	return segs, elems
}

var errStop = typerrors.InvalidArgument(typerrors.PhaseCommit, nil, "stop")

// elemsGapFree reports whether repeating the type continues a single run of
// one elementary type.
func (t *Type) elemsGapFree() bool {
	if len(t.elems) != 1 {
		return false
	}
	e := t.elems[0]
	return e.Offset == t.trueLB && e.Count*e.Basic.Size() == t.extent
}

type segmentBuilder struct {
	segs []Segment
}

func (b *segmentBuilder) add(offset, length int64) {
	if length == 0 {
		return
	}
	if n := len(b.segs); n > 0 && b.segs[n-1].End() == offset {
		b.segs[n-1].Length += length
		return
	}
	b.segs = append(b.segs, Segment{Offset: offset, Length: length})
}

func (b *segmentBuilder) block(disp, blocklen int64, base *Type) {
	if blocklen == 0 || base.size == 0 {
		return
	}
	if base.IsGapFree() {
		b.add(disp+base.segs[0].Offset, blocklen*base.size)
		return
	}
	for j := int64(0); j < blocklen; j++ {
		origin := disp + j*base.extent
		for _, s := range base.segs {
			b.add(origin+s.Offset, s.Length)
		}
	}
}

type elementBuilder struct {
	elems []Element
}

func (b *elementBuilder) add(offset int64, basic Basic, count int64) {
	if count == 0 {
		return
	}
	if n := len(b.elems); n > 0 {
		last := &b.elems[n-1]
		if last.Basic == basic && last.Offset+last.Count*basic.Size() == offset {
			last.Count += count
			return
		}
	}
	b.elems = append(b.elems, Element{Offset: offset, Basic: basic, Count: count})
}

func (b *elementBuilder) block(disp, blocklen int64, base *Type) {
	if blocklen == 0 || len(base.elems) == 0 {
		return
	}
	if base.elemsGapFree() {
		e := base.elems[0]
		b.add(disp+e.Offset, e.Basic, blocklen*e.Count)
		return
	}
	for j := int64(0); j < blocklen; j++ {
		origin := disp + j*base.extent
		for _, e := range base.elems {
			b.add(origin+e.Offset, e.Basic, e.Count)
		}
	}
}

func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func saturatingMul(a, b int64) int64 {
	if a != 0 && b > math.MaxInt64/a {
		return math.MaxInt64
	}
	return a * b
}
