// Package external converts typed regions to and from the external32
// canonical representation: every elementary value is written big-endian
// at a fixed width that does not depend on the local machine, with no
// padding between values.
//
// Sizes and alignment of the local machine only affect where values are
// read from or written to; the canonical stream for a given typemap is the
// same everywhere. Conversions that cannot be represented fail instead of
// silently truncating.
package external
