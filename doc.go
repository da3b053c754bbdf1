// Package typerep maps typed, possibly non-contiguous memory layouts onto
// linear byte streams, segment descriptor lists and a machine-independent
// encoding.
//
// This package holds no code. It documents how the subpackages fit together.
//
// # Architecture Overview
//
//	typerep/
//	├── datatype/        Type tree, constructors, commit into segment lists
//	├── stream/          Resumable pack, unpack, iov and typed local copy
//	├── external/        external32 big-endian codec
//	├── portable/        Flatten/unflatten of self-describing type descriptors
//	├── linear/          Pack/unpack against wazero guest linear memory
//	├── witlayout/       Datatypes for canonical ABI layouts of WIT types
//	├── typedef/         TOML catalog of named type definitions
//	├── errors/          Structured error types
//	└── cmd/typerep/     Catalog explorer and walkthrough CLI
//
// # Quick Start
//
// Describe three blocks of two int32 spaced five elements apart, then gather
// two instances into a packed image:
//
//	vec, err := datatype.Vector(3, 2, 5, datatype.Int32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer vec.Free()
//	if err := vec.Commit(); err != nil {
//	    log.Fatal(err)
//	}
//
//	image, err := stream.Marshal(stream.At(data, 0), 2, vec)
//
// Transports that move data in chunks resume by byte offset:
//
//	n, err := stream.Pack(in, count, vec, offset, chunk)
//	offset += n
//
// # Thread Safety
//
// Committed types are immutable and may be shared by any number of
// goroutines. Commit is safe to call concurrently. Transfer calls hold no
// state between calls; Packer and Unpacker are not safe for concurrent use.
//
// # Memory Model
//
// The engine never allocates the user buffers it reads or writes. Callers
// size output with stream.PackedSize, external.SizeExternal32 or
// portable.FlattenSize. Addressing beyond the buffers a caller hands in is a
// contract violation and panics like any out-of-range slice access; the
// linear package bounds-checks guest memory before touching it.
package typerep
