// Package witlayout describes the canonical ABI memory layout of WIT value
// types as committed datatypes.
//
// A component that stores an array of records in its linear memory can
// hand the record's datatype to the stream engine and gather exactly the
// bytes that carry data, skipping alignment padding. Strings and lists are
// described by their (pointer, length) pair; the referenced payload lives
// elsewhere in memory and is not followed. Variant payloads are described
// as raw bytes sized for the largest case.
package witlayout
