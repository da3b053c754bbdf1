package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
)

func committed(t *testing.T, dt *datatype.Type, err error) *datatype.Type {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, dt.Commit())
	return dt
}

// region allocates memory for count instances of dt, filled with a byte
// pattern, and returns a Buffer whose origin keeps negative displacements in
// range.
func region(count int64, dt *datatype.Type) Buffer {
	origin := int64(0)
	if dt.TrueLB() < 0 {
		origin = -dt.TrueLB()
	}
	size := origin + dt.TrueUB()
	if count > 1 {
		size += (count - 1) * dt.Extent()
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + 1)
	}
	return At(data, origin)
}

func sampleTypes(t *testing.T) map[string]*datatype.Type {
	t.Helper()
	out := map[string]*datatype.Type{}

	v, err := datatype.Vector(3, 2, 5, datatype.Int32)
	out["vector"] = committed(t, v, err)

	neg, err := datatype.Vector(3, 1, -1, datatype.Int32)
	out["negative_stride"] = committed(t, neg, err)

	s, err := datatype.Struct([]int64{1, 1}, []int64{0, 8}, []*datatype.Type{datatype.Int32, datatype.Float64})
	out["struct"] = committed(t, s, err)

	idx, err := datatype.Indexed([]int64{2, 1, 3}, []int64{6, 0, 2}, datatype.Int16)
	out["indexed"] = committed(t, idx, err)

	r, err := datatype.Resized(datatype.Float64, 0, 16)
	require.NoError(t, err)
	arr, err := datatype.Contiguous(4, r)
	out["resized_array"] = committed(t, arr, err)

	c, err := datatype.Contiguous(5, datatype.Int64)
	out["contiguous"] = committed(t, c, err)

	nested, err := datatype.HVector(2, 2, 40, v)
	out["nested"] = committed(t, nested, err)

	return out
}

func packAll(t *testing.T, buf Buffer, count int64, dt *datatype.Type) []byte {
	t.Helper()
	out := make([]byte, PackedSize(count, dt))
	n, err := Pack(buf, count, dt, 0, out)
	require.NoError(t, err)
	require.Equal(t, int64(len(out)), n)
	return out
}

func TestPackVectorSelectsBlocks(t *testing.T) {
	dt, err := datatype.Vector(3, 2, 5, datatype.Int32)
	dt = committed(t, dt, err)

	data := make([]byte, 48)
	for i := 0; i < 12; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i))
	}

	out := packAll(t, At(data, 0), 1, dt)
	require.Len(t, out, 24)

	var got []uint32
	for i := 0; i < 6; i++ {
		got = append(got, binary.LittleEndian.Uint32(out[i*4:]))
	}
	assert.Equal(t, []uint32{0, 1, 5, 6, 10, 11}, got)
}

func TestPackResizedCopiesTrueBytes(t *testing.T) {
	r, err := datatype.Resized(datatype.Float64, 0, 16)
	r = committed(t, r, err)

	arr, err := datatype.Contiguous(4, r)
	arr = committed(t, arr, err)
	assert.Equal(t, int64(64), arr.Extent())
	assert.Equal(t, int64(8), r.TrueUB())

	buf := region(1, r)
	out := make([]byte, 16)
	n, err := Pack(buf, 1, r, 0, out)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, buf.Data[:8], out[:8])
}

func TestRoundTrip(t *testing.T) {
	for name, dt := range sampleTypes(t) {
		t.Run(name, func(t *testing.T) {
			const count = 3
			src := region(count, dt)
			packed := packAll(t, src, count, dt)

			dst := At(make([]byte, len(src.Data)), src.Origin)
			n, err := Unpack(packed, dst, count, dt, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(len(packed)), n)

			assert.Equal(t, packed, packAll(t, dst, count, dt))

			// bytes outside the segments stay untouched
			touched := make([]bool, len(src.Data))
			iov := make([]IOV, 64)
			var off int64
			for {
				k, err := ToIOV(src, count, dt, off, iov)
				require.NoError(t, err)
				if k == 0 {
					break
				}
				for _, v := range iov[:k] {
					for i := v.Offset; i < v.End(); i++ {
						touched[i] = true
					}
				}
				off += int64(k)
			}
			for i, b := range dst.Data {
				if !touched[i] {
					assert.Zero(t, b, "byte %d outside segments was written", i)
				}
			}
		})
	}
}

func TestChunkedPackMatchesWhole(t *testing.T) {
	for name, dt := range sampleTypes(t) {
		t.Run(name, func(t *testing.T) {
			const count = 4
			src := region(count, dt)
			whole := packAll(t, src, count, dt)

			for _, chunk := range []int{1, 3, 5, 7, 16, 1000} {
				var got []byte
				out := make([]byte, chunk)
				var off int64
				for {
					n, err := Pack(src, count, dt, off, out)
					require.NoError(t, err)
					if n == 0 {
						break
					}
					got = append(got, out[:n]...)
					off += n
				}
				assert.Equal(t, whole, got, "chunk %d", chunk)

				dst := At(make([]byte, len(src.Data)), src.Origin)
				off = 0
				for off < int64(len(whole)) {
					end := min(off+int64(chunk), int64(len(whole)))
					n, err := Unpack(whole[off:end], dst, count, dt, off)
					require.NoError(t, err)
					off += n
				}
				assert.Equal(t, whole, packAll(t, dst, count, dt), "unpack chunk %d", chunk)
			}
		})
	}
}

func TestIOVCoverage(t *testing.T) {
	for name, dt := range sampleTypes(t) {
		t.Run(name, func(t *testing.T) {
			const count = 3
			src := region(count, dt)
			whole := packAll(t, src, count, dt)

			nsegs, err := IOVLen(count, dt, -1)
			require.NoError(t, err)

			var gathered []byte
			var covered, off int64
			iov := make([]IOV, 2)
			for {
				k, err := ToIOV(src, count, dt, off, iov)
				require.NoError(t, err)
				if k == 0 {
					break
				}
				for _, v := range iov[:k] {
					covered += v.Len
					gathered = append(gathered, v.Bytes(src.Data)...)
				}
				off += int64(k)
			}
			assert.Equal(t, nsegs, off)
			assert.Equal(t, count*dt.Size(), covered)
			assert.Equal(t, whole, gathered)
		})
	}
}

func TestToIOVBytesChunks(t *testing.T) {
	for name, dt := range sampleTypes(t) {
		t.Run(name, func(t *testing.T) {
			const count = 2
			src := region(count, dt)
			whole := packAll(t, src, count, dt)

			var gathered []byte
			var off int64
			iov := make([]IOV, 2)
			for {
				k, n, err := ToIOVBytes(src, count, dt, off, iov, 5)
				require.NoError(t, err)
				if k == 0 {
					break
				}
				assert.LessOrEqual(t, n, int64(5))
				for _, v := range iov[:k] {
					gathered = append(gathered, v.Bytes(src.Data)...)
				}
				off += n
			}
			assert.Equal(t, whole, gathered)
		})
	}
}

func TestToIOVSegments(t *testing.T) {
	dt, err := datatype.Vector(3, 2, 5, datatype.Int32)
	dt = committed(t, dt, err)
	buf := At(make([]byte, 200), 10)

	iov := make([]IOV, 4)
	n, err := ToIOV(buf, 2, dt, 1, iov)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.Equal(t, []IOV{
		{Offset: 30, Len: 8},
		{Offset: 50, Len: 8},
		{Offset: 58, Len: 8},
		{Offset: 78, Len: 8},
	}, iov)

	n, err = ToIOV(buf, 2, dt, 5, iov)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, IOV{Offset: 98, Len: 8}, iov[0])

	n, err = ToIOV(buf, 2, dt, 6, iov)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestToIOVKeepsInstancesSeparate(t *testing.T) {
	v, err := datatype.Vector(2, 1, 2, datatype.Int32)
	dt := committed(t, v, err)
	require.Equal(t, int64(12), dt.Extent())

	buf := At(make([]byte, 24), 0)
	iov := make([]IOV, 8)
	n, err := ToIOV(buf, 2, dt, 0, iov)
	require.NoError(t, err)
	assert.Equal(t, []IOV{{0, 4}, {8, 4}, {12, 4}, {20, 4}}, iov[:n])
}

func TestToIOVGapFreeRegion(t *testing.T) {
	dt, err := datatype.Contiguous(3, datatype.Int32)
	dt = committed(t, dt, err)

	iov := make([]IOV, 4)
	n, err := ToIOV(At(make([]byte, 64), 4), 5, dt, 0, iov)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, IOV{Offset: 4, Len: 60}, iov[0])

	_, err = ToIOV(At(nil, 0), 5, dt, 2, iov)
	assert.ErrorIs(t, err, typerrors.ErrInvalidOffset)
}

func TestIOVLen(t *testing.T) {
	v, err := datatype.Vector(3, 2, 5, datatype.Int32)
	v = committed(t, v, err)
	c, err := datatype.Contiguous(4, datatype.Int32)
	c = committed(t, c, err)

	tests := []struct {
		name     string
		dt       *datatype.Type
		maxBytes int64
		want     int64
	}{
		{"unlimited", v, -1, 6},
		{"partial_instance", v, 20, 2},
		{"one_instance", v, 24, 3},
		{"beyond_region", v, 100, 6},
		{"zero", v, 0, 0},
		{"gap_free_short", c, 31, 0},
		{"gap_free_fits", c, 32, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IOVLen(2, tc.dt, tc.maxBytes)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTransferErrors(t *testing.T) {
	uncommitted, err := datatype.Contiguous(2, datatype.Int32)
	require.NoError(t, err)

	_, err = Pack(At(nil, 0), 1, uncommitted, 0, nil)
	assert.ErrorIs(t, err, typerrors.ErrNotCommitted)
	_, err = Unpack(nil, At(nil, 0), 1, uncommitted, 0)
	assert.ErrorIs(t, err, typerrors.ErrNotCommitted)
	_, err = ToIOV(At(nil, 0), 1, uncommitted, 0, nil)
	assert.ErrorIs(t, err, typerrors.ErrNotCommitted)
	_, _, err = ToIOVBytes(At(nil, 0), 1, uncommitted, 0, nil, -1)
	assert.ErrorIs(t, err, typerrors.ErrNotCommitted)

	require.NoError(t, uncommitted.Commit())
	buf := At(make([]byte, 16), 0)
	_, err = Pack(buf, 2, uncommitted, 17, make([]byte, 4))
	assert.ErrorIs(t, err, typerrors.ErrInvalidOffset)
	_, err = Pack(buf, 2, uncommitted, -1, make([]byte, 4))
	assert.ErrorIs(t, err, typerrors.ErrInvalidOffset)
	_, err = Unpack(make([]byte, 4), buf, 2, uncommitted, 20)
	assert.ErrorIs(t, err, typerrors.ErrInvalidOffset)
	_, err = Pack(buf, -1, uncommitted, 0, nil)
	assert.ErrorIs(t, err, typerrors.ErrInvalidArgument)

	// capacity limits shorten the transfer instead of failing
	n, err := Pack(buf, 2, uncommitted, 16, make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = Pack(buf, 2, uncommitted, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPackerUnpacker(t *testing.T) {
	dt, err := datatype.Indexed([]int64{2, 1, 3}, []int64{6, 0, 2}, datatype.Int16)
	dt = committed(t, dt, err)
	const count = 5
	src := region(count, dt)
	whole := packAll(t, src, count, dt)

	p, err := NewPacker(src, count, dt)
	require.NoError(t, err)
	var got bytes.Buffer
	chunk := make([]byte, 3)
	for {
		n, err := p.Read(chunk)
		got.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, whole, got.Bytes())
	assert.Zero(t, p.Remaining())

	pos, err := p.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)
	rest, err := io.ReadAll(p)
	require.NoError(t, err)
	assert.Equal(t, whole[4:], rest)
	_, err = p.Seek(1, io.SeekEnd)
	assert.ErrorIs(t, err, typerrors.ErrInvalidOffset)

	dst := At(make([]byte, len(src.Data)), src.Origin)
	u, err := NewUnpacker(dst, count, dt)
	require.NoError(t, err)
	_, err = io.Copy(u, bytes.NewReader(whole))
	require.NoError(t, err)
	assert.True(t, u.Done())
	assert.Equal(t, whole, packAll(t, dst, count, dt))

	n, err := u.Write([]byte{1})
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestCopy(t *testing.T) {
	out := make([]byte, 3)
	assert.Equal(t, 3, Copy(out, []byte("abcdef")))
	assert.Equal(t, []byte("abc"), out)
}

func TestLocalCopy(t *testing.T) {
	types := sampleTypes(t)
	strided := types["vector"]
	contig, err := datatype.Contiguous(6, datatype.Int32)
	contig = committed(t, contig, err)
	idx, err := datatype.Indexed([]int64{3, 3}, []int64{10, 0}, datatype.Int32)
	idx = committed(t, idx, err)

	tests := []struct {
		name     string
		src, dst *datatype.Type
	}{
		{"strided_to_strided", strided, idx},
		{"strided_to_contiguous", strided, contig},
		{"contiguous_to_strided", contig, strided},
		{"contiguous_to_contiguous", contig, contig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			const count = 3
			src := region(count, tc.src)
			dst := At(make([]byte, len(region(count, tc.dst).Data)), 0)

			n, err := LocalCopy(src, count, tc.src, dst, count, tc.dst)
			require.NoError(t, err)
			assert.Equal(t, int64(72), n)
			assert.Equal(t, packAll(t, src, count, tc.src), packAll(t, dst, count, tc.dst))
		})
	}

	t.Run("truncated", func(t *testing.T) {
		src := region(2, contig)
		dst := At(make([]byte, 48), 0)
		n, err := LocalCopy(src, 2, contig, dst, 1, strided)
		assert.ErrorIs(t, err, typerrors.ErrInvalidArgument)
		assert.Equal(t, int64(24), n)
		assert.Equal(t, src.Data[:24], packAll(t, dst, 1, strided))
	})
}
