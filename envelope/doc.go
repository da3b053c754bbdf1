// Package envelope frames a typed region as a self-describing message.
//
// A sealed message carries everything a receiver needs to rebuild the data
// without sharing type handles with the sender: the portable descriptor of
// the datatype, the instance count and the payload bytes. The frame is a
// deterministic CBOR map with small integer keys, so fields can be appended
// later without breaking older readers.
//
//	msg, err := envelope.Seal(stream.At(grid, 0), 4, column, envelope.SealOptions{
//	    Encoding:    envelope.External32,
//	    Compression: envelope.Zstd,
//	})
//
//	m, err := envelope.Open(msg)
//	if err != nil {
//	    return err
//	}
//	defer m.Release()
//	_, err = m.Unpack(stream.At(local, 0))
//
// # Encodings
//
// Native payloads are the packed image in the sender's representation and
// are only portable between machines with the same elementary sizes. Open
// rejects a native payload whose length disagrees with the descriptor as
// rebuilt locally. External32 payloads use the canonical big-endian widths
// and decode anywhere.
//
// # Compression
//
// Payloads may be zstd compressed. Decompression is bounded by MaxPayload
// and by the size the descriptor implies.
package envelope
