package envelope

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/external"
	"github.com/wippyai/typerep/internal/abi"
	"github.com/wippyai/typerep/portable"
	"github.com/wippyai/typerep/stream"
)

// Version is the frame version written by Seal.
const Version = 1

// Encoding selects the payload representation.
type Encoding uint8

const (
	Native Encoding = iota
	External32
)

func (e Encoding) String() string {
	switch e {
	case Native:
		return "native"
	case External32:
		return "external32"
	default:
		return "unknown"
	}
}

// SealOptions controls how Seal frames a region. The zero value seals a
// native, uncompressed payload under a fresh random ID.
type SealOptions struct {
	ID          uuid.UUID
	Encoding    Encoding
	Compression Compression
}

// Message is an opened frame. Type is owned by the message until Release.
type Message struct {
	ID          uuid.UUID
	Count       int64
	Type        *datatype.Type
	Encoding    Encoding
	Compression Compression
	Payload     []byte
}

type frame struct {
	Version     uint64 `cbor:"1,keyasint"`
	ID          []byte `cbor:"2,keyasint"`
	Count       int64  `cbor:"3,keyasint"`
	Descriptor  []byte `cbor:"4,keyasint"`
	Encoding    uint8  `cbor:"5,keyasint"`
	Compression uint8  `cbor:"6,keyasint,omitempty"`
	Payload     []byte `cbor:"7,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

// Seal packs count instances of dt from in and frames them together with
// the descriptor of dt.
func Seal(in stream.Buffer, count int64, dt *datatype.Type, opts SealOptions) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch opts.Encoding {
	case Native:
		raw, err = stream.Marshal(in, count, dt)
	case External32:
		raw, err = external.Marshal(in, count, dt)
	default:
		return nil, typerrors.New(typerrors.PhaseEnvelope, typerrors.KindInvalidArgument).
			Path("encoding").
			Value(uint8(opts.Encoding)).
			Detail("unknown encoding %d", opts.Encoding).
			Build()
	}
	if err != nil {
		return nil, err
	}

	desc, err := portable.Marshal(dt)
	if err != nil {
		return nil, err
	}
	payload, err := deflate(opts.Compression, raw)
	if err != nil {
		return nil, err
	}

	id := opts.ID
	if id == uuid.Nil {
		if id, err = uuid.NewRandom(); err != nil {
			return nil, typerrors.Wrap(typerrors.PhaseEnvelope, typerrors.KindInvalidArgument, err, "message id")
		}
	}

	out, err := encMode.Marshal(frame{
		Version:     Version,
		ID:          id[:],
		Count:       count,
		Descriptor:  desc,
		Encoding:    uint8(opts.Encoding),
		Compression: uint8(opts.Compression),
		Payload:     payload,
	})
	if err != nil {
		return nil, typerrors.Wrap(typerrors.PhaseEnvelope, typerrors.KindInvalidArgument, err, "encode frame")
	}

	Logger().Debug("sealed message",
		zap.Stringer("id", id),
		zap.Stringer("type", dt),
		zap.Int64("count", count),
		zap.Stringer("encoding", opts.Encoding),
		zap.Stringer("compression", opts.Compression),
		zap.Int("raw", len(raw)),
		zap.Int("frame", len(out)))
	return out, nil
}

// Open decodes a frame, rebuilds its datatype and checks that the payload
// matches what the descriptor describes.
func Open(data []byte) (*Message, error) {
	var f frame
	if err := decMode.Unmarshal(data, &f); err != nil {
		return nil, typerrors.Wrap(typerrors.PhaseEnvelope, typerrors.KindInvalidData, err, "decode frame")
	}
	if f.Version == 0 || f.Version > Version {
		return nil, typerrors.New(typerrors.PhaseEnvelope, typerrors.KindInvalidData).
			Path("version").
			Value(f.Version).
			Detail("unsupported frame version %d", f.Version).
			Build()
	}
	id, err := uuid.FromBytes(f.ID)
	if err != nil {
		return nil, typerrors.Wrap(typerrors.PhaseEnvelope, typerrors.KindInvalidData, err, "message id")
	}
	if f.Count < 0 {
		return nil, typerrors.InvalidData(typerrors.PhaseEnvelope, []string{"count"}, "negative count")
	}
	enc := Encoding(f.Encoding)
	if enc != Native && enc != External32 {
		return nil, typerrors.New(typerrors.PhaseEnvelope, typerrors.KindInvalidData).
			Path("encoding").
			Value(f.Encoding).
			Detail("unknown encoding %d", f.Encoding).
			Build()
	}

	dt, err := portable.Unflatten(f.Descriptor)
	if err != nil {
		return nil, err
	}
	m, err := open(f, id, enc, dt)
	if err != nil {
		_ = dt.Free()
		return nil, err
	}
	Logger().Debug("opened message",
		zap.Stringer("id", id),
		zap.Stringer("type", dt),
		zap.Int64("count", m.Count),
		zap.Stringer("encoding", enc))
	return m, nil
}

func open(f frame, id uuid.UUID, enc Encoding, dt *datatype.Type) (*Message, error) {
	want, err := payloadSize(enc, f.Count, dt)
	if err != nil {
		return nil, err
	}
	payload, err := inflate(Compression(f.Compression), f.Payload, want)
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) != want {
		return nil, typerrors.New(typerrors.PhaseEnvelope, typerrors.KindInvalidData).
			Path("payload").
			Type(dt.String()).
			Value(len(payload)).
			Detail("payload holds %d bytes, descriptor describes %d", len(payload), want).
			Build()
	}
	return &Message{
		ID:          id,
		Count:       f.Count,
		Type:        dt,
		Encoding:    enc,
		Compression: Compression(f.Compression),
		Payload:     payload,
	}, nil
}

func payloadSize(enc Encoding, count int64, dt *datatype.Type) (int64, error) {
	if enc == Native {
		total := stream.PackedSize(count, dt)
		if total < 0 {
			return 0, typerrors.Overflow(typerrors.PhaseEnvelope, []string{"count"}, count, "packed size")
		}
		return total, nil
	}
	per, err := external.SizeExternal32(dt)
	if err != nil {
		return 0, err
	}
	total, ok := abi.SafeMul(count, per)
	if !ok {
		return 0, typerrors.Overflow(typerrors.PhaseEnvelope, []string{"count"}, count, "external32 size")
	}
	return total, nil
}

// Unpack scatters the payload into Count instances of Type at out.
func (m *Message) Unpack(out stream.Buffer) (int64, error) {
	if m.Type == nil {
		return 0, typerrors.InvalidArgument(typerrors.PhaseEnvelope, nil, "message released")
	}
	if m.Encoding == External32 {
		return external.Unpack(m.Payload, out, m.Count, m.Type)
	}
	return stream.Unpack(m.Payload, out, m.Count, m.Type, 0)
}

// Release drops the message's reference on Type.
func (m *Message) Release() error {
	if m.Type == nil {
		return nil
	}
	err := m.Type.Free()
	m.Type = nil
	return err
}
