package datatype

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	typerrors "github.com/wippyai/typerep/errors"
)

// Segment is one contiguous run of bytes within a single instance. Offset
// is relative to the instance origin and may be negative.
type Segment struct {
	Offset int64
	Length int64
}

// End returns one past the last byte of the segment.
func (s Segment) End() int64 {
	return s.Offset + s.Length
}

// Element is a run of Count consecutive elementary values of one Basic type
// starting at Offset within an instance.
type Element struct {
	Offset int64
	Basic  Basic
	Count  int64
}

// Contents holds the arguments a type was constructed with. Slices are
// shared with the type and must not be modified.
type Contents struct {
	Types         []*Type // base types; one entry except for struct and pair
	BlockLengths  []int64 // indexed, hindexed, struct, pair
	Displacements []int64 // element or byte units depending on Kind
	Count         int64   // contiguous, vector, hvector
	BlockLength   int64   // vector, hvector, indexed_block, hindexed_block
	Stride        int64   // elements for vector, bytes for hvector
	LB            int64   // resized
	Extent        int64   // resized
	Value         Basic   // pair
}

// Type is a node of the type tree.
type Type struct {
	contents Contents

	kind  Kind
	basic Basic

	size        int64
	extent      int64
	lb          int64
	ub          int64
	trueLB      int64
	trueUB      int64
	align       int64
	elementSize int64
	sticky      bool

	refs atomic.Int64

	mu        sync.Mutex
	committed atomic.Bool
	segs      []Segment
	prefix    []int64
	elems     []Element
	contig    bool
}

// Kind returns the constructor kind.
func (t *Type) Kind() Kind { return t.kind }

// Basic returns the elementary type for elementary types, the uniform
// elementary type of a composite, or BasicInvalid when mixed.
func (t *Type) Basic() Basic { return t.basic }

// Size returns the number of data bytes in one instance.
func (t *Type) Size() int64 { return t.size }

// Extent returns the repetition stride between instances.
func (t *Type) Extent() int64 { return t.extent }

// LB returns the lower bound, including any resized override.
func (t *Type) LB() int64 { return t.lb }

// UB returns the upper bound, including any resized override.
func (t *Type) UB() int64 { return t.ub }

// TrueLB returns the offset of the first touched byte.
func (t *Type) TrueLB() int64 { return t.trueLB }

// TrueUB returns one past the last touched byte.
func (t *Type) TrueUB() int64 { return t.trueUB }

// TrueExtent returns TrueUB - TrueLB.
func (t *Type) TrueExtent() int64 { return t.trueUB - t.trueLB }

// Alignment returns the largest elementary alignment in the type.
func (t *Type) Alignment() int64 { return t.align }

// ElementSize returns the size of the uniform elementary type, or 0 when
// the type mixes elementary types.
func (t *Type) ElementSize() int64 { return t.elementSize }

// Contents returns the constructor arguments.
func (t *Type) Contents() Contents { return t.contents }

// RefCount returns the number of outstanding references.
func (t *Type) RefCount() int64 { return t.refs.Load() }

// IsCommitted reports whether the segment list has been built.
func (t *Type) IsCommitted() bool { return t.committed.Load() }

// IsElementary reports whether t is an elementary singleton.
func (t *Type) IsElementary() bool { return t.kind == KindElementary }

// IsContiguous reports whether one committed instance is a single run
// spanning the true extent. It is false before commit.
func (t *Type) IsContiguous() bool {
	return t.committed.Load() && t.contig
}

// IsGapFree reports whether consecutive instances are byte-adjacent too, so
// that any count of instances forms a single run.
func (t *Type) IsGapFree() bool {
	return t.IsContiguous() && t.size == t.extent
}

// Segments returns the committed segment list for one instance, or nil
// before commit. The slice must not be modified.
func (t *Type) Segments() []Segment {
	if !t.committed.Load() {
		return nil
	}
	return t.segs
}

// Elements returns the committed elementary typemap runs for one instance.
func (t *Type) Elements() []Element {
	if !t.committed.Load() {
		return nil
	}
	return t.elems
}

// Seek locates the packed byte offset within one instance: it returns the
// index of the segment holding that byte and the offset into that segment.
// An offset equal to Size returns len(Segments()) and 0.
func (t *Type) Seek(within int64) (int, int64) {
	n := len(t.segs)
	// first segment whose end lies beyond within
	i := sort.Search(n, func(i int) bool { return t.prefix[i+1] > within })
	if i == n {
		return n, 0
	}
	return i, within - t.prefix[i]
}

// PackedBefore returns the number of packed bytes preceding segment i.
func (t *Type) PackedBefore(i int) int64 {
	return t.prefix[i]
}

// Retain adds a reference. Retaining a destroyed type fails.
func (t *Type) Retain() error {
	if t.kind == KindElementary {
		return nil
	}
	for {
		n := t.refs.Load()
		if n <= 0 {
			return typerrors.InvalidArgument(typerrors.PhaseConstruct, nil, "retain of destroyed datatype")
		}
		if t.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Free drops one reference. When the last reference goes, the node releases
// its bases and its segment list.
func (t *Type) Free() error {
	if t.kind == KindElementary {
		return nil
	}
	for {
		n := t.refs.Load()
		if n <= 0 {
			return typerrors.InvalidArgument(typerrors.PhaseFree, nil, "datatype already freed")
		}
		if !t.refs.CompareAndSwap(n, n-1) {
			continue
		}
		if n > 1 {
			return nil
		}
		break
	}

	Logger().Debug("destroying datatype", zap.Stringer("type", t))
	for _, base := range t.contents.Types {
		_ = base.Free()
	}

	t.mu.Lock()
	t.committed.Store(false)
	t.segs = nil
	t.prefix = nil
	t.elems = nil
	t.mu.Unlock()
	return nil
}

func (t *Type) alive() bool {
	return t != nil && t.refs.Load() > 0
}
