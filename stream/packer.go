package stream

import (
	"io"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
)

// Packer reads the packed image of a region in pieces. It keeps the resume
// offset between calls so transports can drain a region under their own
// buffer budget.
type Packer struct {
	buf    Buffer
	count  int64
	dt     *datatype.Type
	offset int64
	total  int64
}

// NewPacker returns a Packer positioned at the start of the region.
func NewPacker(buf Buffer, count int64, dt *datatype.Type) (*Packer, error) {
	total, err := validate(typerrors.PhasePack, count, dt)
	if err != nil {
		return nil, err
	}
	return &Packer{buf: buf, count: count, dt: dt, total: total}, nil
}

// Read implements io.Reader over the packed image.
func (p *Packer) Read(out []byte) (int, error) {
	if p.offset == p.total {
		return 0, io.EOF
	}
	n, err := Pack(p.buf, p.count, p.dt, p.offset, out)
	p.offset += n
	return int(n), err
}

// Offset returns the number of bytes packed so far.
func (p *Packer) Offset() int64 { return p.offset }

// Remaining returns the number of bytes left to pack.
func (p *Packer) Remaining() int64 { return p.total - p.offset }

// Seek moves the resume offset within the packed image.
func (p *Packer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += p.offset
	case io.SeekEnd:
		offset += p.total
	default:
		return p.offset, typerrors.InvalidArgument(typerrors.PhasePack, []string{"whence"}, "unknown whence")
	}
	if offset < 0 || offset > p.total {
		return p.offset, typerrors.InvalidOffset(typerrors.PhasePack, offset, p.total)
	}
	p.offset = offset
	return offset, nil
}

// Unpacker fills a region from successive pieces of its packed image.
type Unpacker struct {
	buf    Buffer
	count  int64
	dt     *datatype.Type
	offset int64
	total  int64
}

// NewUnpacker returns an Unpacker positioned at the start of the region.
func NewUnpacker(buf Buffer, count int64, dt *datatype.Type) (*Unpacker, error) {
	total, err := validate(typerrors.PhaseUnpack, count, dt)
	if err != nil {
		return nil, err
	}
	return &Unpacker{buf: buf, count: count, dt: dt, total: total}, nil
}

// Write implements io.Writer. Bytes beyond the end of the region are
// rejected with io.ErrShortWrite.
func (u *Unpacker) Write(in []byte) (int, error) {
	n, err := Unpack(in, u.buf, u.count, u.dt, u.offset)
	u.offset += n
	if err != nil {
		return int(n), err
	}
	if int(n) < len(in) {
		return int(n), io.ErrShortWrite
	}
	return int(n), nil
}

// Offset returns the number of bytes unpacked so far.
func (u *Unpacker) Offset() int64 { return u.offset }

// Done reports whether the whole region has been filled.
func (u *Unpacker) Done() bool { return u.offset == u.total }
