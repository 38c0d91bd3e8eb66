package snapshot

import (
	"errors"
	"fmt"
)

// Magic identifies an arena snapshot.
var Magic = [4]byte{'T', 'A', 'R', 'N'}

// Version is the current format version.
const Version uint16 = 1

// Snapshot layout, little-endian:
//
//	magic        [4]byte
//	version      uint16
//	compression  uint8
//	reserved     uint8
//	alignment    uint32
//	regionCount  uint32
//	capacity     uint64
//	used         uint64
//	regions      regionCount x (offset uint64, length uint64)
//	payloadLen   uint64
//	rawLen       uint64
//	checksum     uint32   CRC32C of every preceding byte and the payload
//	payload      payloadLen bytes
const (
	fixedHeaderSize = 32
	regionSize      = 16
	trailerSize     = 20
)

var (
	// ErrCorrupt is returned when a snapshot fails structural or checksum
	// validation.
	ErrCorrupt = errors.New("snapshot: corrupt")
	// ErrIncompatibleFormat is returned for an unknown magic, version or
	// compression type.
	ErrIncompatibleFormat = errors.New("snapshot: incompatible format")
	// ErrTooLarge is returned when a snapshot's capacity exceeds the limit
	// set with WithMaxCapacity or DecodeLimit.
	ErrTooLarge = errors.New("snapshot: capacity exceeds limit")
)

// Compression selects how the arena buffer is stored.
type Compression uint8

const (
	// CompressionNone stores the buffer verbatim.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio, slower).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZSTD
}
