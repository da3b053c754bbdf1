package datatype

import (
	"slices"
	"strconv"

	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
)

// Contiguous builds count consecutive copies of base.
func Contiguous(count int64, base *Type) (*Type, error) {
	if err := checkCount(count, "count"); err != nil {
		return nil, err
	}
	if err := checkBase(base, "base"); err != nil {
		return nil, err
	}
	return build(KindContiguous, Contents{Count: count, Types: []*Type{base}})
}

// Vector builds count blocks of blocklen copies of base, block k starting at
// k*stride base extents. The stride may be negative or smaller than the
// block, producing overlapping blocks.
func Vector(count, blocklen, stride int64, base *Type) (*Type, error) {
	return vector(KindVector, count, blocklen, stride, base)
}

// HVector is Vector with the stride given in bytes.
func HVector(count, blocklen, stride int64, base *Type) (*Type, error) {
	return vector(KindHVector, count, blocklen, stride, base)
}

func vector(kind Kind, count, blocklen, stride int64, base *Type) (*Type, error) {
	if err := checkCount(count, "count"); err != nil {
		return nil, err
	}
	if err := checkCount(blocklen, "blocklength"); err != nil {
		return nil, err
	}
	if err := checkBase(base, "base"); err != nil {
		return nil, err
	}
	return build(kind, Contents{
		Count:       count,
		BlockLength: blocklen,
		Stride:      stride,
		Types:       []*Type{base},
	})
}

// IndexedBlock builds one block of blocklen copies of base per displacement,
// displacements counted in base extents.
func IndexedBlock(blocklen int64, displs []int64, base *Type) (*Type, error) {
	return indexedBlock(KindIndexedBlock, blocklen, displs, base)
}

// HIndexedBlock is IndexedBlock with byte displacements.
func HIndexedBlock(blocklen int64, displs []int64, base *Type) (*Type, error) {
	return indexedBlock(KindHIndexedBlock, blocklen, displs, base)
}

func indexedBlock(kind Kind, blocklen int64, displs []int64, base *Type) (*Type, error) {
	if err := checkCount(blocklen, "blocklength"); err != nil {
		return nil, err
	}
	if err := checkBase(base, "base"); err != nil {
		return nil, err
	}
	return build(kind, Contents{
		BlockLength:   blocklen,
		Displacements: slices.Clone(displs),
		Types:         []*Type{base},
	})
}

// Indexed builds blocks of varying length, displacements counted in base
// extents. Blocks are kept in argument order.
func Indexed(blocklens, displs []int64, base *Type) (*Type, error) {
	return indexed(KindIndexed, blocklens, displs, base)
}

// HIndexed is Indexed with byte displacements.
func HIndexed(blocklens, displs []int64, base *Type) (*Type, error) {
	return indexed(KindHIndexed, blocklens, displs, base)
}

func indexed(kind Kind, blocklens, displs []int64, base *Type) (*Type, error) {
	if len(displs) != len(blocklens) {
		return nil, typerrors.LengthMismatch(typerrors.PhaseConstruct, "displacements", len(displs), len(blocklens))
	}
	if err := checkCounts(blocklens, "blocklengths"); err != nil {
		return nil, err
	}
	if err := checkBase(base, "base"); err != nil {
		return nil, err
	}
	return build(kind, Contents{
		BlockLengths:  slices.Clone(blocklens),
		Displacements: slices.Clone(displs),
		Types:         []*Type{base},
	})
}

// Struct builds heterogeneous blocks: block i holds blocklens[i] copies of
// types[i] at byte displacement displs[i].
func Struct(blocklens, displs []int64, types []*Type) (*Type, error) {
	if len(displs) != len(blocklens) {
		return nil, typerrors.LengthMismatch(typerrors.PhaseConstruct, "displacements", len(displs), len(blocklens))
	}
	if len(types) != len(blocklens) {
		return nil, typerrors.LengthMismatch(typerrors.PhaseConstruct, "types", len(types), len(blocklens))
	}
	if err := checkCounts(blocklens, "blocklengths"); err != nil {
		return nil, err
	}
	for i, base := range types {
		if err := checkBase(base, "types", strconv.Itoa(i)); err != nil {
			return nil, err
		}
	}
	return build(KindStruct, Contents{
		BlockLengths:  slices.Clone(blocklens),
		Displacements: slices.Clone(displs),
		Types:         slices.Clone(types),
	})
}

// Resized overrides the bounds of base. The touched bytes are unchanged.
func Resized(base *Type, lb, extent int64) (*Type, error) {
	if err := checkBase(base, "base"); err != nil {
		return nil, err
	}
	if err := checkCount(extent, "extent"); err != nil {
		return nil, err
	}
	if _, ok := abi.SafeAdd(lb, extent); !ok {
		return nil, typerrors.Overflow(typerrors.PhaseConstruct, []string{"extent"}, extent, "upper bound")
	}
	return build(KindResized, Contents{LB: lb, Extent: extent, Types: []*Type{base}})
}

// Dup returns a new handle with the same layout as base.
func Dup(base *Type) (*Type, error) {
	if err := checkBase(base, "base"); err != nil {
		return nil, err
	}
	return build(KindDup, Contents{Types: []*Type{base}})
}

// Pair builds the {value, int} combination used by location reductions.
func Pair(value Basic) (*Type, error) {
	if !value.Pairable() {
		return nil, typerrors.New(typerrors.PhaseConstruct, typerrors.KindInvalidArgument).
			Path("value").
			Type(value.String()).
			Detail("not a pair value type").
			Build()
	}
	return build(KindPair, Contents{
		Value:         value,
		BlockLengths:  []int64{1, 1},
		Displacements: []int64{0, abi.AlignTo(value.Size(), BasicInt.Align())},
		Types:         []*Type{Of(value), Int},
	})
}

func build(kind Kind, c Contents) (*Type, error) {
	t := &Type{kind: kind, contents: c}
	if err := t.computeLayout(); err != nil {
		return nil, err
	}
	for i, base := range c.Types {
		if err := base.Retain(); err != nil {
			for _, held := range c.Types[:i] {
				_ = held.Free()
			}
			return nil, typerrors.InvalidArgument(typerrors.PhaseConstruct,
				[]string{"types", strconv.Itoa(i)}, "base datatype freed during construction")
		}
	}
	t.refs.Store(1)
	return t, nil
}

func checkCount(v int64, path ...string) error {
	if v < 0 {
		return typerrors.NegativeArgument(typerrors.PhaseConstruct, path, v)
	}
	return nil
}

func checkCounts(vs []int64, name string) error {
	for i, v := range vs {
		if err := checkCount(v, name, strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

func checkBase(base *Type, path ...string) error {
	if base == nil {
		return typerrors.InvalidArgument(typerrors.PhaseConstruct, path, "nil base datatype")
	}
	if !base.alive() {
		return typerrors.InvalidArgument(typerrors.PhaseConstruct, path, "base datatype already freed")
	}
	return nil
}
