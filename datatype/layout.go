package datatype

import (
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
)

// eachBlock calls fn for every block in argument order with the block's
// byte displacement, its repetition count and its base type.
func (t *Type) eachBlock(fn func(disp, blocklen int64, base *Type) error) error {
	c := &t.contents
	switch t.kind {
	case KindContiguous:
		return fn(0, c.Count, c.Types[0])

	case KindVector, KindHVector:
		base := c.Types[0]
		if c.BlockLength == 0 || base.size == 0 {
			return nil
		}
		if n, ok := t.backToBack(); ok {
			return fn(0, n, base)
		}
		stride, err := t.byteStride()
		if err != nil {
			return err
		}
		for k := int64(0); k < c.Count; k++ {
			if err := fn(k*stride, c.BlockLength, c.Types[0]); err != nil {
				return err
			}
		}

	case KindIndexedBlock, KindHIndexedBlock:
		for i, d := range c.Displacements {
			disp, err := t.byteDisp(d, c.Types[0], i)
			if err != nil {
				return err
			}
			if err := fn(disp, c.BlockLength, c.Types[0]); err != nil {
				return err
			}
		}

	case KindIndexed, KindHIndexed:
		for i, d := range c.Displacements {
			disp, err := t.byteDisp(d, c.Types[0], i)
			if err != nil {
				return err
			}
			if err := fn(disp, c.BlockLengths[i], c.Types[0]); err != nil {
				return err
			}
		}

	case KindStruct, KindPair:
		for i, d := range c.Displacements {
			if err := fn(d, c.BlockLengths[i], c.Types[i]); err != nil {
				return err
			}
		}

	case KindResized, KindDup:
		return fn(0, 1, c.Types[0])
	}
	return nil
}

func (t *Type) byteStride() (int64, error) {
	c := &t.contents
	if t.kind == KindHVector {
		return c.Stride, nil
	}
	s, ok := abi.SafeMul(c.Stride, c.Types[0].extent)
	if !ok {
		return 0, typerrors.Overflow(typerrors.PhaseConstruct, []string{"stride"}, c.Stride, "byte stride")
	}
	return s, nil
}

// backToBack reports whether each vector block starts where the previous
// one ends, in which case the vector is a single block of n base instances.
func (t *Type) backToBack() (n int64, ok bool) {
	c := &t.contents
	stride, err := t.byteStride()
	if err != nil {
		return 0, false
	}
	span, ok1 := abi.SafeMul(c.BlockLength, c.Types[0].extent)
	n, ok2 := abi.SafeMul(c.Count, c.BlockLength)
	return n, ok1 && ok2 && stride == span
}

func (t *Type) byteDisp(d int64, base *Type, i int) (int64, error) {
	if t.kind.ByteDisplacements() {
		return d, nil
	}
	v, ok := abi.SafeMul(d, base.extent)
	if !ok {
		return 0, typerrors.Overflow(typerrors.PhaseConstruct, []string{"displacements"}, d, "byte displacement")
	}
	return v, nil
}

// bounds accumulates the extremes and data size of a set of blocks.
type bounds struct {
	lb, ub, trueLB, trueUB int64
	size                   int64
	align                  int64
	basic                  Basic
	mixed                  bool
	sticky                 bool
	nonEmpty               bool
	seenBase               bool
}

func (b *bounds) add(disp, blocklen int64, base *Type, reps int64) error {
	if b.align < base.align {
		b.align = base.align
	}
	b.sticky = b.sticky || base.sticky
	if !b.seenBase {
		b.basic = base.basic
		b.seenBase = true
	} else if b.basic != base.basic {
		b.mixed = true
	}

	if blocklen == 0 || reps == 0 {
		return nil
	}

	overflow := func(what string) error {
		return typerrors.Overflow(typerrors.PhaseConstruct, nil, blocklen, what)
	}

	span, ok := abi.SafeMul(blocklen-1, base.extent)
	if !ok {
		return overflow("block span")
	}
	lb, ok1 := abi.SafeAdd(disp, base.lb)
	ub, ok2 := abi.SafeAdd(disp, span)
	ub, ok3 := abi.SafeAdd(ub, base.ub)
	tlb, ok4 := abi.SafeAdd(disp, base.trueLB)
	tub, ok5 := abi.SafeAdd(disp, span)
	tub, ok6 := abi.SafeAdd(tub, base.trueUB)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return overflow("bounds")
	}

	bytes, ok := abi.SafeMul(blocklen, base.size)
	if !ok {
		return overflow("size")
	}
	bytes, ok = abi.SafeMul(bytes, reps)
	if !ok {
		return overflow("size")
	}
	size, ok := abi.SafeAdd(b.size, bytes)
	if !ok {
		return overflow("size")
	}
	b.size = size

	if !b.nonEmpty {
		b.lb, b.ub, b.trueLB, b.trueUB = lb, ub, tlb, tub
		b.nonEmpty = true
		return nil
	}
	b.lb = abi.Min64(b.lb, lb)
	b.ub = abi.Max64(b.ub, ub)
	b.trueLB = abi.Min64(b.trueLB, tlb)
	b.trueUB = abi.Max64(b.trueUB, tub)
	return nil
}

func (t *Type) computeLayout() error {
	c := &t.contents
	b := bounds{align: 1}

	switch t.kind {
	case KindVector, KindHVector:
		// blocks are evenly spaced, so the first and last decide the bounds
		stride, err := t.byteStride()
		if err != nil {
			return err
		}
		if c.Count == 0 {
			b.basic = c.Types[0].basic
			b.align = c.Types[0].align
			break
		}
		if err := b.add(0, c.BlockLength, c.Types[0], 1); err != nil {
			return err
		}
		if c.Count > 1 {
			last, ok := abi.SafeMul(c.Count-1, stride)
			if !ok {
				return typerrors.Overflow(typerrors.PhaseConstruct, []string{"count"}, c.Count, "vector span")
			}
			if err := b.add(last, c.BlockLength, c.Types[0], c.Count-1); err != nil {
				return err
			}
		}

	case KindResized:
		base := c.Types[0]
		t.copyLayout(base)
		t.lb = c.LB
		t.ub = c.LB + c.Extent
		t.extent = c.Extent
		t.sticky = true
		return nil

	case KindDup:
		t.copyLayout(c.Types[0])
		return nil

	default:
		if err := t.eachBlock(func(disp, blocklen int64, base *Type) error {
			return b.add(disp, blocklen, base, 1)
		}); err != nil {
			return err
		}
	}

	t.size = b.size
	t.lb, t.ub = b.lb, b.ub
	t.trueLB, t.trueUB = b.trueLB, b.trueUB
	t.align = b.align
	t.sticky = b.sticky
	t.basic = b.basic
	if b.mixed {
		t.basic = BasicInvalid
	}
	if t.basic.Valid() {
		t.elementSize = t.basic.Size()
	}

	t.extent = t.ub - t.lb
	if (t.kind == KindStruct || t.kind == KindPair) && !t.sticky {
		t.extent = abi.AlignTo(t.extent, t.align)
		t.ub = t.lb + t.extent
	}
	return nil
}

func (t *Type) copyLayout(base *Type) {
	t.basic = base.basic
	t.size = base.size
	t.extent = base.extent
	t.lb = base.lb
	t.ub = base.ub
	t.trueLB = base.trueLB
	t.trueUB = base.trueUB
	t.align = base.align
	t.elementSize = base.elementSize
	t.sticky = base.sticky
}
