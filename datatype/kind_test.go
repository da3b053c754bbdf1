package datatype

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		want string
		kind Kind
	}{
		{"elementary", KindElementary},
		{"contiguous", KindContiguous},
		{"vector", KindVector},
		{"hvector", KindHVector},
		{"indexed_block", KindIndexedBlock},
		{"hindexed_block", KindHIndexedBlock},
		{"indexed", KindIndexed},
		{"hindexed", KindHIndexed},
		{"struct", KindStruct},
		{"resized", KindResized},
		{"dup", KindDup},
		{"pair", KindPair},
		{"unknown", Kind(255)},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.kind.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
			if tc.kind == Kind(255) {
				return
			}
			back, ok := ParseKind(tc.want)
			if !ok || back != tc.kind {
				t.Errorf("ParseKind(%q) = %v, %v", tc.want, back, ok)
			}
		})
	}

	if _, ok := ParseKind("matrix"); ok {
		t.Error("ParseKind accepted unknown name")
	}
}

func TestKindByteDisplacements(t *testing.T) {
	byteKinds := []Kind{KindHVector, KindHIndexedBlock, KindHIndexed, KindStruct}
	for _, k := range byteKinds {
		if !k.ByteDisplacements() {
			t.Errorf("%s should use byte displacements", k)
		}
	}
	elemKinds := []Kind{KindVector, KindIndexedBlock, KindIndexed, KindContiguous}
	for _, k := range elemKinds {
		if k.ByteDisplacements() {
			t.Errorf("%s should use element displacements", k)
		}
	}
}

func TestBasics(t *testing.T) {
	tests := []struct {
		basic Basic
		name  string
		size  int64
	}{
		{BasicByte, "byte", 1},
		{BasicInt16, "int16", 2},
		{BasicInt32, "int32", 4},
		{BasicInt, "int", 4},
		{BasicLong, "long", 8},
		{BasicFloat64, "float64", 8},
		{BasicComplex128, "complex128", 16},
		{BasicLongDouble, "long_double", 16},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.basic.String() != tc.name {
				t.Errorf("String() = %q", tc.basic.String())
			}
			if tc.basic.Size() != tc.size {
				t.Errorf("Size() = %d, want %d", tc.basic.Size(), tc.size)
			}
			back, ok := ParseBasic(tc.name)
			if !ok || back != tc.basic {
				t.Errorf("ParseBasic(%q) = %v, %v", tc.name, back, ok)
			}

			e := Of(tc.basic)
			if e != Of(tc.basic) {
				t.Error("Of should return a singleton")
			}
			if !e.IsCommitted() || !e.IsContiguous() || !e.IsElementary() {
				t.Error("elementary types are committed and contiguous")
			}
			if e.Extent() != tc.size || e.ElementSize() != tc.size {
				t.Errorf("extent %d element size %d", e.Extent(), e.ElementSize())
			}
		})
	}

	if Of(BasicInvalid) != nil || Of(Basic(200)) != nil {
		t.Error("Of should reject invalid basics")
	}
	if Basic(200).String() != "unknown" || Basic(200).Valid() {
		t.Error("out of range basic")
	}
}

func TestElementaryNeverFreed(t *testing.T) {
	before := Int32.RefCount()
	for i := 0; i < 3; i++ {
		if err := Int32.Free(); err != nil {
			t.Fatalf("Free: %v", err)
		}
	}
	if err := Int32.Retain(); err != nil {
		t.Fatalf("Retain: %v", err)
	}
	if Int32.RefCount() != before {
		t.Errorf("refcount changed: %d -> %d", before, Int32.RefCount())
	}
	if !Int32.IsCommitted() {
		t.Error("singleton lost its segments")
	}
}
