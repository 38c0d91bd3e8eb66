package snapshot

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecodeAllCapLimit(true),
	)
}

// Upper bounds on how many raw bytes one payload byte can expand to. An LZ4
// match extension byte adds at most 255. A 4-byte ZSTD RLE block yields at
// most one 128 KiB block.
const (
	maxLZ4Ratio  = 255
	maxZSTDRatio = 128 << 10 / 4
)

// checkExpansion rejects a raw length that payloadLen bytes of c could not
// decode to.
func checkExpansion(payloadLen, rawLen uint64, c Compression) error {
	var ratio uint64
	switch c {
	case CompressionNone:
		ratio = 1
	case CompressionLZ4:
		ratio = maxLZ4Ratio
	case CompressionZSTD:
		ratio = maxZSTDRatio
	default:
		return fmt.Errorf("%w: %s", ErrIncompatibleFormat, c)
	}
	if rawLen/ratio > payloadLen {
		return fmt.Errorf("%w: %s payload of %d bytes cannot expand to %d", ErrCorrupt, c, payloadLen, rawLen)
	}
	return nil
}

// compress returns the payload and the compression actually applied. Data
// that does not shrink is stored uncompressed.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, c, err
		}
		out = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, c, err
		}
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, c, fmt.Errorf("%w: %s", ErrIncompatibleFormat, c)
	}

	if len(out) == 0 || len(out) >= len(data) {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

// decompress inflates payload into a buffer of exactly rawLen bytes. The
// caller bounds rawLen with checkExpansion.
func decompress(payload []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(payload) != rawLen {
			return nil, fmt.Errorf("%w: payload length %d, want %d", ErrCorrupt, len(payload), rawLen)
		}
		return payload, nil
	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, n, rawLen)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, len(out), rawLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrIncompatibleFormat, c)
	}
}
