// Package abi provides checked arithmetic and alignment helpers shared by
// the datatype constructors and the transfer engines.
//
// Byte counts in this library are int64 so that multi-gigabyte regions and
// negative displacements share one representation; every product or sum of
// user-supplied counts goes through the Safe* helpers before it is stored.
package abi
