// Package portable encodes datatype trees as self-describing descriptors
// that can be shipped to another process and rebuilt there.
//
// A descriptor records constructor arguments only. Sizes, extents and
// segment lists are recomputed by Unflatten from the receiving machine's
// elementary sizes, so the same descriptor yields the layout the receiver
// would have built itself.
//
// Layout:
//
//	descriptor := "TRPD" version:uleb node
//	node       := tag:byte len:uleb body[len]
//
// Each body holds the constructor's fields as LEB128 values followed by the
// child nodes. Readers ignore body bytes past the fields they know, so new
// fields may be appended without breaking older readers.
package portable
