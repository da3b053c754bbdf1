// Package binary provides LEB128 readers and writers for the portable
// datatype descriptor stream.
//
// Unsigned fields (tags, counts, body lengths) use unsigned LEB128; byte
// displacements, strides and bounds use signed LEB128 since they may be
// negative.
package binary
