package envelope

import (
	"sync"

	"github.com/klauspost/compress/zstd"

	typerrors "github.com/wippyai/typerep/errors"
)

// MaxPayload bounds the decompressed size of a payload accepted by Open.
const MaxPayload = 1 << 30

// Compression selects how the payload is stored in the frame.
type Compression uint8

const (
	None Compression = iota
	Zstd
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Encoder and Decoder are safe for concurrent EncodeAll/DecodeAll.
var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayload))
	})
	return zstdEnc, zstdDec, zstdErr
}

func deflate(c Compression, raw []byte) ([]byte, error) {
	switch c {
	case None:
		return raw, nil
	case Zstd:
		enc, _, err := codecs()
		if err != nil {
			return nil, typerrors.Wrap(typerrors.PhaseEnvelope, typerrors.KindInvalidArgument, err, "zstd encoder")
		}
		return enc.EncodeAll(raw, nil), nil
	default:
		return nil, typerrors.New(typerrors.PhaseEnvelope, typerrors.KindInvalidArgument).
			Path("compression").
			Value(uint8(c)).
			Detail("unknown compression %d", c).
			Build()
	}
}

// inflate restores a payload whose uncompressed length must be want.
func inflate(c Compression, data []byte, want int64) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		if want > MaxPayload {
			return nil, typerrors.New(typerrors.PhaseEnvelope, typerrors.KindOutOfMemory).
				Path("payload").
				Value(want).
				Detail("payload of %d bytes exceeds limit %d", want, MaxPayload).
				Build()
		}
		_, dec, err := codecs()
		if err != nil {
			return nil, typerrors.Wrap(typerrors.PhaseEnvelope, typerrors.KindInvalidData, err, "zstd decoder")
		}
		out, err := dec.DecodeAll(data, make([]byte, 0, want))
		if err != nil {
			return nil, typerrors.Wrap(typerrors.PhaseEnvelope, typerrors.KindInvalidData, err, "corrupt zstd payload")
		}
		return out, nil
	default:
		return nil, typerrors.New(typerrors.PhaseEnvelope, typerrors.KindInvalidData).
			Path("compression").
			Value(uint8(c)).
			Detail("unknown compression %d", c).
			Build()
	}
}
