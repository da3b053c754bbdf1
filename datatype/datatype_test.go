package datatype

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	typerrors "github.com/wippyai/typerep/errors"
)

func mustCommit(t *testing.T, dt *Type, err error) *Type {
	t.Helper()
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := dt.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return dt
}

func segs(pairs ...int64) []Segment {
	out := make([]Segment, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Segment{Offset: pairs[i], Length: pairs[i+1]})
	}
	return out
}

type layoutWant struct {
	size, extent, lb, ub, trueLB, trueUB int64
	segments                             []Segment
	contiguous                           bool
}

func checkLayout(t *testing.T, dt *Type, want layoutWant) {
	t.Helper()
	if dt.Size() != want.size {
		t.Errorf("size: got %d, want %d", dt.Size(), want.size)
	}
	if dt.Extent() != want.extent {
		t.Errorf("extent: got %d, want %d", dt.Extent(), want.extent)
	}
	if dt.LB() != want.lb || dt.UB() != want.ub {
		t.Errorf("bounds: got [%d,%d), want [%d,%d)", dt.LB(), dt.UB(), want.lb, want.ub)
	}
	if dt.TrueLB() != want.trueLB || dt.TrueUB() != want.trueUB {
		t.Errorf("true bounds: got [%d,%d), want [%d,%d)", dt.TrueLB(), dt.TrueUB(), want.trueLB, want.trueUB)
	}
	if !reflect.DeepEqual(dt.Segments(), want.segments) {
		t.Errorf("segments: got %v, want %v", dt.Segments(), want.segments)
	}
	if dt.IsContiguous() != want.contiguous {
		t.Errorf("contiguous: got %v, want %v", dt.IsContiguous(), want.contiguous)
	}
}

func TestConstructLayouts(t *testing.T) {
	t.Run("vector_with_gaps", func(t *testing.T) {
		dt, err := Vector(3, 2, 5, Int32)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 24, extent: 48, ub: 48, trueUB: 48,
			segments: segs(0, 8, 20, 8, 40, 8),
		})
	})

	t.Run("vector_stride_equals_block", func(t *testing.T) {
		dt, err := Vector(3, 2, 2, Int32)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 24, extent: 24, ub: 24, trueUB: 24,
			segments: segs(0, 24), contiguous: true,
		})
	})

	t.Run("vector_negative_stride_keeps_order", func(t *testing.T) {
		dt, err := Vector(3, 1, -1, Int32)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 12, extent: 12, lb: -8, ub: 4, trueLB: -8, trueUB: 4,
			segments: segs(0, 4, -4, 4, -8, 4),
		})
	})

	t.Run("hvector_overlapping", func(t *testing.T) {
		dt, err := HVector(2, 2, 4, Int32)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 16, extent: 12, ub: 12, trueUB: 12,
			segments: segs(0, 8, 4, 8),
		})
	})

	t.Run("indexed_out_of_order", func(t *testing.T) {
		dt, err := Indexed([]int64{1, 1}, []int64{3, 0}, Int32)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 8, extent: 16, ub: 16, trueUB: 16,
			segments: segs(12, 4, 0, 4),
		})
	})

	t.Run("hindexed_adjacent_blocks_merge", func(t *testing.T) {
		dt, err := HIndexed([]int64{2, 1}, []int64{0, 8}, Int32)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 12, extent: 12, ub: 12, trueUB: 12,
			segments: segs(0, 12), contiguous: true,
		})
	})

	t.Run("indexed_block", func(t *testing.T) {
		dt, err := IndexedBlock(2, []int64{4, 0}, Int16)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 8, extent: 12, ub: 12, trueUB: 12,
			segments: segs(8, 4, 0, 4),
		})
	})

	t.Run("hindexed_block_zero_blocklength", func(t *testing.T) {
		dt, err := HIndexedBlock(0, []int64{4, 0}, Int16)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{segments: nil})
	})

	t.Run("struct_padding", func(t *testing.T) {
		dt, err := Struct([]int64{1, 1}, []int64{0, 8}, []*Type{Int32, Float64})
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 12, extent: 16, ub: 16, trueUB: 16,
			segments: segs(0, 4, 8, 8),
		})
		if dt.ElementSize() != 0 || dt.Basic() != BasicInvalid {
			t.Errorf("mixed struct element size %d basic %v", dt.ElementSize(), dt.Basic())
		}
	})

	t.Run("struct_trailing_padding", func(t *testing.T) {
		dt, err := Struct([]int64{1, 1}, []int64{0, 4}, []*Type{Int32, Int8})
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 5, extent: 8, ub: 8, trueUB: 5,
			segments: segs(0, 5), contiguous: true,
		})
		arr, err := Contiguous(3, dt)
		mustCommit(t, arr, err)
		checkLayout(t, arr, layoutWant{
			size: 15, extent: 24, ub: 24, trueUB: 21,
			segments: segs(0, 5, 8, 5, 16, 5),
		})
	})

	t.Run("uniform_struct_element_size", func(t *testing.T) {
		dt, err := Struct([]int64{1, 2}, []int64{0, 8}, []*Type{Int32, Int32})
		mustCommit(t, dt, err)
		if dt.ElementSize() != 4 || dt.Basic() != BasicInt32 {
			t.Errorf("element size %d basic %v", dt.ElementSize(), dt.Basic())
		}
	})

	t.Run("resized_padding", func(t *testing.T) {
		r, err := Resized(Float64, 0, 16)
		mustCommit(t, r, err)
		checkLayout(t, r, layoutWant{
			size: 8, extent: 16, ub: 16, trueUB: 8,
			segments: segs(0, 8), contiguous: true,
		})
		arr, err := Contiguous(4, r)
		mustCommit(t, arr, err)
		checkLayout(t, arr, layoutWant{
			size: 32, extent: 64, ub: 64, trueUB: 56,
			segments: segs(0, 8, 16, 8, 32, 8, 48, 8),
		})
	})

	t.Run("resized_struct_skips_padding", func(t *testing.T) {
		r, err := Resized(Int32, 0, 6)
		if err != nil {
			t.Fatal(err)
		}
		dt, err := Struct([]int64{1}, []int64{0}, []*Type{r})
		mustCommit(t, dt, err)
		if dt.Extent() != 6 {
			t.Errorf("explicit bounds must not be padded: extent %d", dt.Extent())
		}
	})

	t.Run("merge_across_constructors", func(t *testing.T) {
		inner, err := Contiguous(2, Int32)
		if err != nil {
			t.Fatal(err)
		}
		dt, err := Vector(3, 1, 1, inner)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 24, extent: 24, ub: 24, trueUB: 24,
			segments: segs(0, 24), contiguous: true,
		})
	})

	t.Run("vector_of_gap_free_struct", func(t *testing.T) {
		s, err := Struct([]int64{1, 1}, []int64{0, 4}, []*Type{Int32, Float32})
		if err != nil {
			t.Fatal(err)
		}
		dt, err := Vector(3, 2, 4, s)
		mustCommit(t, dt, err)
		checkLayout(t, dt, layoutWant{
			size: 48, extent: 80, ub: 80, trueUB: 80,
			segments: segs(0, 16, 32, 16, 64, 16),
		})
	})

	t.Run("dup", func(t *testing.T) {
		v, err := Vector(3, 2, 5, Int32)
		if err != nil {
			t.Fatal(err)
		}
		d, err := Dup(v)
		mustCommit(t, d, err)
		if d == v {
			t.Fatal("dup must be a distinct handle")
		}
		if !reflect.DeepEqual(d.Segments(), v.Segments()) || d.Extent() != v.Extent() {
			t.Error("dup layout differs")
		}
		if d.RefCount() != 1 || v.RefCount() != 2 {
			t.Errorf("refcounts: dup %d base %d", d.RefCount(), v.RefCount())
		}
	})
}

func TestPair(t *testing.T) {
	tests := []struct {
		value        Basic
		size, extent int64
	}{
		{BasicFloat32, 8, 8},
		{BasicFloat64, 12, 16},
		{BasicLong, 12, 16},
		{BasicInt, 8, 8},
		{BasicInt16, 6, 8},
		{BasicLongDouble, 20, 32},
	}

	for _, tc := range tests {
		t.Run(tc.value.String(), func(t *testing.T) {
			p, err := Pair(tc.value)
			mustCommit(t, p, err)
			if p.Size() != tc.size || p.Extent() != tc.extent {
				t.Errorf("size %d extent %d, want %d %d", p.Size(), p.Extent(), tc.size, tc.extent)
			}
			if p.Contents().Value != tc.value {
				t.Errorf("value %v", p.Contents().Value)
			}
		})
	}

	if _, err := Pair(BasicByte); !errors.Is(err, typerrors.ErrInvalidArgument) {
		t.Errorf("Pair(byte): %v", err)
	}
}

func TestConstructErrors(t *testing.T) {
	base, err := Contiguous(2, Int32)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fn   func() (*Type, error)
	}{
		{"negative_count", func() (*Type, error) { return Contiguous(-1, base) }},
		{"negative_blocklength", func() (*Type, error) { return Vector(1, -2, 1, base) }},
		{"negative_vector_count", func() (*Type, error) { return HVector(-1, 1, 1, base) }},
		{"nil_base", func() (*Type, error) { return Contiguous(1, nil) }},
		{"indexed_length_mismatch", func() (*Type, error) { return Indexed([]int64{1}, []int64{0, 1}, base) }},
		{"indexed_negative_block", func() (*Type, error) { return HIndexed([]int64{1, -1}, []int64{0, 1}, base) }},
		{"indexed_block_negative", func() (*Type, error) { return IndexedBlock(-1, []int64{0}, base) }},
		{"struct_types_mismatch", func() (*Type, error) { return Struct([]int64{1, 1}, []int64{0, 8}, []*Type{base}) }},
		{"struct_nil_type", func() (*Type, error) { return Struct([]int64{1, 1}, []int64{0, 8}, []*Type{base, nil}) }},
		{"resized_negative_extent", func() (*Type, error) { return Resized(base, 0, -1) }},
		{"dup_nil", func() (*Type, error) { return Dup(nil) }},
		{"stride_overflow", func() (*Type, error) { return Vector(2, 1, 1<<62, base) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dt, err := tc.fn()
			if dt != nil {
				t.Error("failed constructor returned a type")
			}
			if !errors.Is(err, typerrors.ErrInvalidArgument) && !errors.Is(err, typerrors.ErrOverflow) {
				t.Errorf("unexpected error: %v", err)
			}
			if base.RefCount() != 1 {
				t.Errorf("failed constructor took a reference: %d", base.RefCount())
			}
		})
	}
}

func TestCommitIdempotentAndConcurrent(t *testing.T) {
	inner, err := Vector(4, 1, 3, Int32)
	if err != nil {
		t.Fatal(err)
	}
	dt, err := Contiguous(5, inner)
	if err != nil {
		t.Fatal(err)
	}
	if dt.IsCommitted() || dt.Segments() != nil {
		t.Fatal("type committed before Commit")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dt.Commit(); err != nil {
				t.Errorf("commit: %v", err)
			}
		}()
	}
	wg.Wait()

	if !inner.IsCommitted() {
		t.Error("base not committed bottom-up")
	}
	first := dt.Segments()
	if err := dt.Commit(); err != nil {
		t.Fatal(err)
	}
	// the last run of one instance touches the first of the next
	if len(first) != 16 || !reflect.DeepEqual(first, dt.Segments()) {
		t.Errorf("segments changed or wrong count: %d", len(first))
	}
}

func TestCommitOutOfMemory(t *testing.T) {
	saved := MaxSegments
	MaxSegments = 3
	defer func() { MaxSegments = saved }()

	dt, err := Vector(4, 1, 2, Int32)
	if err != nil {
		t.Fatal(err)
	}
	if err := dt.Commit(); !errors.Is(err, typerrors.ErrOutOfMemory) {
		t.Errorf("expected out of memory, got %v", err)
	}
	if dt.IsCommitted() {
		t.Error("failed commit left type committed")
	}
}

// commitWithin commits dt and fails the test if that takes longer than d.
func commitWithin(t *testing.T, dt *Type, d time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- dt.Commit() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatal("commit did not return")
		return nil
	}
}

func TestCommitHugeVectors(t *testing.T) {
	empty, err := Contiguous(0, Int32)
	if err != nil {
		t.Fatal(err)
	}
	defer empty.Free()

	tests := []struct {
		name  string
		build func() (*Type, error)
		want  []Segment
		oom   bool
	}{
		{
			name:  "zero blocklength",
			build: func() (*Type, error) { return Vector(1<<40, 0, 1, Int32) },
		},
		{
			name:  "zero size base",
			build: func() (*Type, error) { return HVector(1<<40, 1, 8, empty) },
		},
		{
			name:  "back to back blocks",
			build: func() (*Type, error) { return Vector(1<<40, 2, 2, Int32) },
			want:  segs(0, 8<<40),
		},
		{
			name:  "back to back hvector",
			build: func() (*Type, error) { return HVector(1<<40, 1, 4, Int32) },
			want:  segs(0, 4<<40),
		},
		{
			name:  "gapped blocks",
			build: func() (*Type, error) { return Vector(1<<40, 1, 2, Int32) },
			oom:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := tt.build()
			if err != nil {
				t.Fatal(err)
			}
			defer dt.Free()

			err = commitWithin(t, dt, 5*time.Second)
			if tt.oom {
				if !errors.Is(err, typerrors.ErrOutOfMemory) {
					t.Errorf("expected out of memory, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(dt.Segments()) != len(tt.want) || (len(tt.want) > 0 && !reflect.DeepEqual(dt.Segments(), tt.want)) {
				t.Errorf("segments = %v, want %v", dt.Segments(), tt.want)
			}
		})
	}
}

func TestBackToBackVectorMatchesContiguous(t *testing.T) {
	s, err := Struct([]int64{1, 1}, []int64{0, 8}, []*Type{Int32, Float64})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Free()

	v, err := Vector(3, 2, 2, s)
	mustCommit(t, v, err)
	c, err := Contiguous(6, s)
	mustCommit(t, c, err)

	if !reflect.DeepEqual(v.Segments(), c.Segments()) {
		t.Errorf("vector segments %v, contiguous %v", v.Segments(), c.Segments())
	}
	if !reflect.DeepEqual(v.Elements(), c.Elements()) {
		t.Errorf("vector elements %v, contiguous %v", v.Elements(), c.Elements())
	}
}

func TestContiguityProperty(t *testing.T) {
	build := []func() (*Type, error){
		func() (*Type, error) { return Contiguous(7, Float64) },
		func() (*Type, error) { return Vector(3, 2, 2, Int16) },
		func() (*Type, error) { return HIndexed([]int64{1, 1}, []int64{4, 0}, Int32) },
		func() (*Type, error) { return Resized(Int64, -8, 32) },
		func() (*Type, error) { return Pair(BasicFloat32) },
		func() (*Type, error) { return Struct([]int64{3}, []int64{-12}, []*Type{Int32}) },
	}

	for i, fn := range build {
		dt, err := fn()
		mustCommit(t, dt, err)
		if !dt.IsContiguous() {
			continue
		}
		s := dt.Segments()
		if len(s) != 1 || s[0].Length != dt.TrueUB()-dt.TrueLB() {
			t.Errorf("case %d: contiguous type has segments %v, true extent %d", i, s, dt.TrueExtent())
		}
	}
}

func TestElements(t *testing.T) {
	s, err := Struct([]int64{2, 1}, []int64{0, 8}, []*Type{Int32, Float64})
	if err != nil {
		t.Fatal(err)
	}
	dt, err := Contiguous(2, s)
	mustCommit(t, dt, err)

	want := []Element{
		{Offset: 0, Basic: BasicInt32, Count: 2},
		{Offset: 8, Basic: BasicFloat64, Count: 1},
		{Offset: 16, Basic: BasicInt32, Count: 2},
		{Offset: 24, Basic: BasicFloat64, Count: 1},
	}
	if !reflect.DeepEqual(dt.Elements(), want) {
		t.Errorf("elements: got %v, want %v", dt.Elements(), want)
	}

	big, err := Contiguous(1<<40, Int32)
	mustCommit(t, big, err)
	if len(big.Elements()) != 1 || big.Elements()[0].Count != 1<<40 {
		t.Errorf("gap-free repetition should stay one run: %v", big.Elements())
	}
	if len(big.Segments()) != 1 {
		t.Errorf("gap-free repetition should stay one segment: %v", big.Segments())
	}
}

func TestSeek(t *testing.T) {
	dt, err := Struct([]int64{1, 1}, []int64{0, 8}, []*Type{Int32, Float64})
	mustCommit(t, dt, err)

	tests := []struct {
		within int64
		idx    int
		off    int64
	}{
		{0, 0, 0},
		{3, 0, 3},
		{4, 1, 0},
		{11, 1, 7},
		{12, 2, 0},
	}
	for _, tc := range tests {
		idx, off := dt.Seek(tc.within)
		if idx != tc.idx || off != tc.off {
			t.Errorf("Seek(%d) = (%d, %d), want (%d, %d)", tc.within, idx, off, tc.idx, tc.off)
		}
	}
	if dt.PackedBefore(1) != 4 {
		t.Errorf("PackedBefore(1) = %d", dt.PackedBefore(1))
	}
}

func TestFreeLifecycle(t *testing.T) {
	base, err := Contiguous(2, Int32)
	if err != nil {
		t.Fatal(err)
	}
	v, err := Vector(2, 1, 3, base)
	mustCommit(t, v, err)
	if base.RefCount() != 2 {
		t.Fatalf("base refcount %d, want 2", base.RefCount())
	}

	if err := v.Retain(); err != nil {
		t.Fatal(err)
	}
	if err := v.Free(); err != nil {
		t.Fatal(err)
	}
	if !v.IsCommitted() {
		t.Fatal("type destroyed while still referenced")
	}

	if err := v.Free(); err != nil {
		t.Fatal(err)
	}
	if v.IsCommitted() || v.Segments() != nil {
		t.Error("destroyed type kept its segments")
	}
	if base.RefCount() != 1 {
		t.Errorf("base refcount %d after derived free", base.RefCount())
	}

	if err := base.Free(); err != nil {
		t.Fatal(err)
	}
	if err := base.Free(); !errors.Is(err, typerrors.ErrInvalidArgument) {
		t.Errorf("double free: %v", err)
	}
	if err := base.Retain(); err == nil {
		t.Error("retain of destroyed type succeeded")
	}
	if err := base.Commit(); err == nil {
		t.Error("commit of destroyed type succeeded")
	}
	if _, err := Contiguous(1, base); !errors.Is(err, typerrors.ErrInvalidArgument) {
		t.Errorf("constructor on destroyed base: %v", err)
	}
}

func TestBuildWithFreedBaseTakesNoReferences(t *testing.T) {
	live, err := Contiguous(2, Int32)
	if err != nil {
		t.Fatal(err)
	}
	defer live.Free()
	dead, err := Contiguous(2, Int32)
	if err != nil {
		t.Fatal(err)
	}
	if err := dead.Free(); err != nil {
		t.Fatal(err)
	}

	// the freed base slips past argument checks, as under a concurrent Free
	_, err = build(KindStruct, Contents{
		BlockLengths:  []int64{1, 1},
		Displacements: []int64{0, 16},
		Types:         []*Type{live, dead},
	})
	if !errors.Is(err, typerrors.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
	if live.RefCount() != 1 {
		t.Errorf("live base refcount %d, want 1", live.RefCount())
	}
	if dead.RefCount() != 0 {
		t.Errorf("freed base refcount %d, want 0", dead.RefCount())
	}
}

func TestConcurrentRetainFree(t *testing.T) {
	dt, err := Contiguous(4, Int32)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				if err := dt.Retain(); err != nil {
					t.Error(err)
					return
				}
				if err := dt.Free(); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if dt.RefCount() != 1 {
		t.Fatalf("refcount %d after balanced retain/free", dt.RefCount())
	}

	if err := dt.Free(); err != nil {
		t.Fatal(err)
	}
	for range 4 {
		if err := dt.Retain(); err == nil {
			t.Fatal("retain of destroyed type succeeded")
		}
		if err := dt.Free(); err == nil {
			t.Fatal("free of destroyed type succeeded")
		}
	}
	if dt.RefCount() != 0 {
		t.Errorf("refcount %d on destroyed type", dt.RefCount())
	}
}

func TestStringAndDump(t *testing.T) {
	v, err := Vector(3, 2, 5, Int32)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "vector(3, 2, 5, int32)" {
		t.Errorf("String() = %q", got)
	}

	s, err := Struct([]int64{1, 1}, []int64{0, 64}, []*Type{v, Float64})
	mustCommit(t, s, err)
	if got := s.String(); got != "struct([1 1], [0 64], [vector(3, 2, 5, int32) float64])" {
		t.Errorf("String() = %q", got)
	}

	var b strings.Builder
	if err := Dump(&b, s); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{
		"struct blocks=2",
		"├─ [0] 1 @ 0: vector count=3 blocklength=2 stride=5",
		"│  └─ elementary int32",
		"└─ [1] 1 @ 64: elementary float64",
		"segments=4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
