// Package datatype implements the type tree and the commit engine.
//
// A Type describes the memory layout of one logical instance: which bytes
// relative to a notional origin belong to it, and how far apart consecutive
// instances sit (the extent). Types are built bottom-up from the elementary
// singletons through constructors:
//
//	Contiguous   count copies of a base
//	Vector       strided blocks (stride in base extents)
//	HVector      strided blocks (stride in bytes)
//	IndexedBlock uniform blocks at element displacements
//	HIndexedBlock uniform blocks at byte displacements
//	Indexed      variable blocks at element displacements
//	HIndexed     variable blocks at byte displacements
//	Struct       heterogeneous blocks at byte displacements
//	Resized      bound override (padding for arrays of structs)
//	Dup          distinct handle with identical layout
//	Pair         value + int combination used by reductions
//
// # Commit
//
// Commit flattens the tree into a segment list: ordered (offset, length)
// runs covering one instance. Runs that touch are merged no matter which
// constructor produced them, so a vector of gap-free structs collapses to
// one run per block, and a contiguous array of anything gap-free collapses
// to a single run. Segments keep argument order: overlapping or unsorted
// displacements are emitted as given.
//
//	t, _ := datatype.Vector(3, 2, 5, datatype.Int32)
//	_ = t.Commit()
//	t.Segments() // [{0 8} {20 8} {40 8}]
//
// # Ownership
//
// Constructors take a reference on every base. Free drops one reference and
// destroys the node once none remain, releasing its bases in turn.
// Elementary singletons are never destroyed.
//
// # Thread Safety
//
// Committed types are immutable and safe for concurrent reads. Commit,
// Retain and Free may be called concurrently; freeing a type while a
// transfer is using it is a caller error.
package datatype
