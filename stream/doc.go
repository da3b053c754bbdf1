// Package stream moves data between typed memory regions and linear byte
// streams.
//
// A region is described by a Buffer, a repetition count and a committed
// datatype. Instance i of the type starts at Buffer.Origin + i*Extent()
// within Buffer.Data, so displacements may be negative as long as the
// touched bytes stay inside Data.
//
// Every transfer is resumable. Pack and Unpack take a byte offset into the
// packed image of the region, which is count*Size() bytes long; ToIOV takes
// a segment offset. Output capacity never causes an error: a call simply
// produces fewer bytes or segments, and the caller resumes at the returned
// position.
//
//	buf := stream.At(mem, 0)
//	var off int64
//	for off < stream.PackedSize(count, dt) {
//	    n, err := stream.Pack(buf, count, dt, off, chunk)
//	    if err != nil {
//	        return err
//	    }
//	    send(chunk[:n])
//	    off += n
//	}
//
// Packer and Unpacker wrap this loop as an io.Reader and io.Writer.
//
// Transfers never lock: committed types are immutable, so any number of
// goroutines may pack from or unpack into disjoint regions concurrently.
package stream
