package portable

import (
	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/binary"
)

// Magic opens every descriptor.
const Magic = "TRPD"

// Version is the descriptor version written by this package.
const Version = 1

// Marshal returns the descriptor for dt.
func Marshal(dt *datatype.Type) ([]byte, error) {
	if dt == nil {
		return nil, typerrors.InvalidArgument(typerrors.PhaseFlatten, []string{"datatype"}, "nil datatype")
	}
	w := binary.NewWriter()
	w.WriteBytes([]byte(Magic))
	w.WriteU64(Version)
	writeNode(w, dt)
	return w.Bytes(), nil
}

// FlattenSize returns the number of bytes Flatten needs for dt.
func FlattenSize(dt *datatype.Type) (int, error) {
	if dt == nil {
		return 0, typerrors.InvalidArgument(typerrors.PhaseFlatten, []string{"datatype"}, "nil datatype")
	}
	return len(Magic) + binary.SizeU64(Version) + nodeSize(dt), nil
}

// Flatten writes the descriptor for dt into buf and returns its length.
func Flatten(dt *datatype.Type, buf []byte) (int, error) {
	b, err := Marshal(dt)
	if err != nil {
		return 0, err
	}
	if len(buf) < len(b) {
		return 0, typerrors.New(typerrors.PhaseFlatten, typerrors.KindInvalidArgument).
			Path("buf").
			Value(len(buf)).
			Detail("descriptor needs %d bytes, buffer holds %d", len(b), len(buf)).
			Build()
	}
	return copy(buf, b), nil
}

// fieldWriter receives the LEB128 fields of a node body.
type fieldWriter interface {
	WriteU64(v uint64)
	WriteS64(v int64)
}

// sizer counts encoded bytes without writing them.
type sizer struct{ n int }

func (s *sizer) WriteU64(v uint64) { s.n += binary.SizeU64(v) }
func (s *sizer) WriteS64(v int64)  { s.n += binary.SizeS64(v) }

func writeNode(w *binary.Writer, t *datatype.Type) {
	body := binary.NewWriter()
	writeFields(body, t)
	for _, child := range children(t) {
		writeNode(body, child)
	}

	w.Byte(byte(t.Kind()))
	w.WriteU64(uint64(body.Len()))
	w.WriteBytes(body.Bytes())
}

func nodeSize(t *datatype.Type) int {
	var s sizer
	writeFields(&s, t)
	body := s.n
	for _, child := range children(t) {
		body += nodeSize(child)
	}
	return 1 + binary.SizeU64(uint64(body)) + body
}

func children(t *datatype.Type) []*datatype.Type {
	if t.Kind() == datatype.KindElementary || t.Kind() == datatype.KindPair {
		return nil
	}
	return t.Contents().Types
}

func writeFields(w fieldWriter, t *datatype.Type) {
	c := t.Contents()
	switch t.Kind() {
	case datatype.KindElementary:
		w.WriteU64(uint64(t.Basic()))
	case datatype.KindContiguous:
		w.WriteU64(uint64(c.Count))
	case datatype.KindVector, datatype.KindHVector:
		w.WriteU64(uint64(c.Count))
		w.WriteU64(uint64(c.BlockLength))
		w.WriteS64(c.Stride)
	case datatype.KindIndexedBlock, datatype.KindHIndexedBlock:
		w.WriteU64(uint64(c.BlockLength))
		writeInts(w, c.Displacements)
	case datatype.KindIndexed, datatype.KindHIndexed, datatype.KindStruct:
		w.WriteU64(uint64(len(c.BlockLengths)))
		for _, bl := range c.BlockLengths {
			w.WriteU64(uint64(bl))
		}
		for _, d := range c.Displacements {
			w.WriteS64(d)
		}
	case datatype.KindResized:
		w.WriteS64(c.LB)
		w.WriteU64(uint64(c.Extent))
	case datatype.KindPair:
		w.WriteU64(uint64(c.Value))
	}
}

func writeInts(w fieldWriter, vs []int64) {
	w.WriteU64(uint64(len(vs)))
	for _, v := range vs {
		w.WriteS64(v)
	}
}
