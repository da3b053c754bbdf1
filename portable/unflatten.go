package portable

import (
	"bytes"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/binary"
)

// MaxDepth bounds the nesting of descriptors accepted by Unflatten.
const MaxDepth = 512

// Unflatten rebuilds a committed datatype from a descriptor. The caller
// owns the single reference of the result.
func Unflatten(buf []byte) (*datatype.Type, error) {
	if len(buf) < len(Magic) || !bytes.Equal(buf[:len(Magic)], []byte(Magic)) {
		return nil, typerrors.InvalidData(typerrors.PhaseUnflatten, nil, "missing descriptor magic")
	}
	r := binary.NewBytesReader(buf[len(Magic):])
	version, err := r.ReadU64()
	if err != nil {
		return nil, truncated(nil, err)
	}
	if version == 0 {
		return nil, typerrors.InvalidData(typerrors.PhaseUnflatten, []string{"version"}, "zero descriptor version")
	}

	d := &decoder{}
	t, err := d.node(buf[len(Magic)+r.Position():], nil)
	if err != nil {
		return nil, err
	}
	if err := t.Commit(); err != nil {
		_ = t.Free()
		return nil, err
	}

	Logger().Debug("unflattened datatype",
		zap.Uint64("version", version),
		zap.Int("nodes", d.nodes),
		zap.Stringer("type", t),
	)
	return t, nil
}

type decoder struct {
	depth int
	nodes int
}

// node decodes the first node of data.
func (d *decoder) node(data []byte, path []string) (*datatype.Type, error) {
	if d.depth >= MaxDepth {
		return nil, typerrors.InvalidData(typerrors.PhaseUnflatten, path, "descriptor nested too deeply")
	}
	d.depth++
	defer func() { d.depth-- }()
	d.nodes++

	r := binary.NewBytesReader(data)
	tag, err := r.ReadByte()
	if err != nil {
		return nil, truncated(path, err)
	}
	n, err := r.ReadU64()
	if err != nil {
		return nil, truncated(path, err)
	}
	start := r.Position()
	if n > uint64(len(data)-start) {
		return nil, typerrors.InvalidData(typerrors.PhaseUnflatten, path, "node body exceeds descriptor")
	}
	body := &bodyReader{data: data[start : start+int(n)], path: path}
	body.r = binary.NewBytesReader(body.data)

	kind := datatype.Kind(tag)
	path = append(path, kind.String())
	body.path = path

	switch kind {
	case datatype.KindElementary:
		b := datatype.Basic(body.uint())
		if body.err != nil {
			return nil, body.err
		}
		if !b.Valid() {
			return nil, typerrors.InvalidData(typerrors.PhaseUnflatten, path, "unknown elementary type "+strconv.Itoa(int(b)))
		}
		return datatype.Of(b), nil

	case datatype.KindContiguous:
		count := body.count()
		return d.withChild(body, func(base *datatype.Type) (*datatype.Type, error) {
			return datatype.Contiguous(count, base)
		})

	case datatype.KindVector, datatype.KindHVector:
		count, blocklen, stride := body.count(), body.count(), body.int()
		return d.withChild(body, func(base *datatype.Type) (*datatype.Type, error) {
			if kind == datatype.KindHVector {
				return datatype.HVector(count, blocklen, stride, base)
			}
			return datatype.Vector(count, blocklen, stride, base)
		})

	case datatype.KindIndexedBlock, datatype.KindHIndexedBlock:
		blocklen := body.count()
		displs := body.ints(body.length())
		return d.withChild(body, func(base *datatype.Type) (*datatype.Type, error) {
			if kind == datatype.KindHIndexedBlock {
				return datatype.HIndexedBlock(blocklen, displs, base)
			}
			return datatype.IndexedBlock(blocklen, displs, base)
		})

	case datatype.KindIndexed, datatype.KindHIndexed:
		blocklens, displs := body.blocks()
		return d.withChild(body, func(base *datatype.Type) (*datatype.Type, error) {
			if kind == datatype.KindHIndexed {
				return datatype.HIndexed(blocklens, displs, base)
			}
			return datatype.Indexed(blocklens, displs, base)
		})

	case datatype.KindStruct:
		blocklens, displs := body.blocks()
		if body.err != nil {
			return nil, body.err
		}
		types := make([]*datatype.Type, 0, len(blocklens))
		defer func() {
			for _, t := range types {
				_ = t.Free()
			}
		}()
		for i := range blocklens {
			child, err := d.child(body, strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			types = append(types, child)
		}
		return datatype.Struct(blocklens, displs, types)

	case datatype.KindResized:
		lb, extent := body.int(), body.count()
		return d.withChild(body, func(base *datatype.Type) (*datatype.Type, error) {
			return datatype.Resized(base, lb, extent)
		})

	case datatype.KindDup:
		return d.withChild(body, datatype.Dup)

	case datatype.KindPair:
		value := datatype.Basic(body.uint())
		if body.err != nil {
			return nil, body.err
		}
		return datatype.Pair(value)
	}

	return nil, typerrors.InvalidData(typerrors.PhaseUnflatten, path, "unknown node tag "+strconv.Itoa(int(tag)))
}

// withChild decodes the single child node of body and builds the parent
// from it. The parent holds its own reference, so the decoder's is dropped.
func (d *decoder) withChild(body *bodyReader, build func(*datatype.Type) (*datatype.Type, error)) (*datatype.Type, error) {
	if body.err != nil {
		return nil, body.err
	}
	base, err := d.child(body, "base")
	if err != nil {
		return nil, err
	}
	defer func() { _ = base.Free() }()
	return build(base)
}

func (d *decoder) child(body *bodyReader, name string) (*datatype.Type, error) {
	pos := body.r.Position()
	rest := body.data[pos:]
	t, err := d.node(rest, append(body.path, name))
	if err != nil {
		return nil, err
	}
	// advance past the child node
	sub := binary.NewBytesReader(rest)
	_, _ = sub.ReadByte()
	n, _ := sub.ReadU64()
	if err := body.r.Skip(sub.Position() + int(n)); err != nil {
		_ = t.Free()
		return nil, truncated(body.path, err)
	}
	return t, nil
}

// bodyReader reads constructor fields and keeps the first error.
type bodyReader struct {
	data []byte
	r    *binary.Reader
	path []string
	err  error
}

func (b *bodyReader) uint() uint64 {
	if b.err != nil {
		return 0
	}
	v, err := b.r.ReadU64()
	if err != nil {
		b.err = truncated(b.path, err)
	}
	return v
}

func (b *bodyReader) int() int64 {
	if b.err != nil {
		return 0
	}
	v, err := b.r.ReadS64()
	if err != nil {
		b.err = truncated(b.path, err)
	}
	return v
}

// count reads a non-negative value that must fit an int64.
func (b *bodyReader) count() int64 {
	v := b.uint()
	if b.err == nil && v > 1<<62 {
		b.err = typerrors.InvalidData(typerrors.PhaseUnflatten, b.path, "count out of range")
	}
	return int64(v)
}

// length reads an array length, bounded by the bytes left in the body.
func (b *bodyReader) length() int {
	v := b.uint()
	if b.err == nil && v > uint64(len(b.data)-b.r.Position()) {
		b.err = typerrors.InvalidData(typerrors.PhaseUnflatten, b.path, "array length exceeds node body")
	}
	return int(v)
}

func (b *bodyReader) ints(n int) []int64 {
	if b.err != nil {
		return nil
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = b.int()
	}
	return out
}

func (b *bodyReader) blocks() ([]int64, []int64) {
	n := b.length()
	if b.err != nil {
		return nil, nil
	}
	blocklens := make([]int64, n)
	for i := range blocklens {
		blocklens[i] = b.count()
	}
	return blocklens, b.ints(n)
}

func truncated(path []string, err error) error {
	return typerrors.New(typerrors.PhaseUnflatten, typerrors.KindInvalidData).
		Path(path...).
		Cause(err).
		Detail("truncated descriptor").
		Build()
}
