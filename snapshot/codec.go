package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/tensorarena/internal/arena"
	"github.com/hupe1980/tensorarena/internal/conv"
	"github.com/hupe1980/tensorarena/internal/hash"
)

// Encode serializes img. The requested compression is a preference: a
// buffer that does not shrink is stored uncompressed.
func Encode(img arena.Image, c Compression) ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("%w: %s", ErrIncompatibleFormat, c)
	}
	if len(img.Data) != img.Capacity {
		return nil, fmt.Errorf("snapshot: image data length %d != capacity %d", len(img.Data), img.Capacity)
	}

	alignment, err := conv.IntToUint32(img.Alignment)
	if err != nil {
		return nil, fmt.Errorf("snapshot: alignment: %w", err)
	}
	count, err := conv.IntToUint32(len(img.Regions))
	if err != nil {
		return nil, fmt.Errorf("snapshot: region count: %w", err)
	}
	capacity, err := conv.IntToUint64(img.Capacity)
	if err != nil {
		return nil, fmt.Errorf("snapshot: capacity: %w", err)
	}
	used, err := conv.IntToUint64(img.Used)
	if err != nil {
		return nil, fmt.Errorf("snapshot: used: %w", err)
	}

	payload, applied, err := compress(img.Data, c)
	if err != nil {
		return nil, fmt.Errorf("snapshot: compress: %w", err)
	}

	headerLen := fixedHeaderSize + len(img.Regions)*regionSize + trailerSize
	out := make([]byte, headerLen+len(payload))

	copy(out[0:4], Magic[:])
	binary.LittleEndian.PutUint16(out[4:], Version)
	out[6] = byte(applied)
	binary.LittleEndian.PutUint32(out[8:], alignment)
	binary.LittleEndian.PutUint32(out[12:], count)
	binary.LittleEndian.PutUint64(out[16:], capacity)
	binary.LittleEndian.PutUint64(out[24:], used)

	pos := fixedHeaderSize
	for _, r := range img.Regions {
		binary.LittleEndian.PutUint64(out[pos:], r.Offset)
		binary.LittleEndian.PutUint64(out[pos+8:], r.Length)
		pos += regionSize
	}

	binary.LittleEndian.PutUint64(out[pos:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(out[pos+8:], capacity)
	pos += 16

	copy(out[headerLen:], payload)
	crc := hash.UpdateCRC32C(hash.CRC32C(out[:pos]), payload)
	binary.LittleEndian.PutUint32(out[pos:], crc)

	return out, nil
}

// Decode parses a snapshot produced by Encode. The checksum is verified
// before the payload is decompressed. For uncompressed snapshots the
// returned Data aliases data.
//
// Decode checks the encoding only; arena invariants are checked when the
// image is restored.
func Decode(data []byte) (arena.Image, error) {
	return DecodeLimit(data, 0)
}

// DecodeLimit is Decode with an upper bound on the restored capacity. A
// snapshot whose capacity exceeds maxCapacity fails with ErrTooLarge before
// the payload is decompressed. A maxCapacity of zero or less disables the
// bound.
func DecodeLimit(data []byte, maxCapacity int) (arena.Image, error) {
	if len(data) < fixedHeaderSize+trailerSize {
		return arena.Image{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	if !bytes.Equal(data[0:4], Magic[:]) {
		return arena.Image{}, fmt.Errorf("%w: bad magic %q", ErrIncompatibleFormat, data[0:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != Version {
		return arena.Image{}, fmt.Errorf("%w: version %d", ErrIncompatibleFormat, v)
	}
	c := Compression(data[6])
	if !c.valid() {
		return arena.Image{}, fmt.Errorf("%w: %s", ErrIncompatibleFormat, c)
	}

	alignment := binary.LittleEndian.Uint32(data[8:])
	count := binary.LittleEndian.Uint32(data[12:])
	capacity := binary.LittleEndian.Uint64(data[16:])
	used := binary.LittleEndian.Uint64(data[24:])

	if uint64(len(data)) < uint64(fixedHeaderSize)+uint64(count)*regionSize+trailerSize {
		return arena.Image{}, fmt.Errorf("%w: %d regions exceed %d bytes", ErrCorrupt, count, len(data))
	}

	pos := fixedHeaderSize
	regions := make([]arena.Region, count)
	for i := range regions {
		regions[i] = arena.Region{
			Offset: binary.LittleEndian.Uint64(data[pos:]),
			Length: binary.LittleEndian.Uint64(data[pos+8:]),
		}
		pos += regionSize
	}

	payloadLen := binary.LittleEndian.Uint64(data[pos:])
	rawLen := binary.LittleEndian.Uint64(data[pos+8:])
	sum := binary.LittleEndian.Uint32(data[pos+16:])
	crcEnd := pos + 16
	payload := data[pos+trailerSize:]

	if payloadLen != uint64(len(payload)) {
		return arena.Image{}, fmt.Errorf("%w: payload length %d, have %d bytes", ErrCorrupt, payloadLen, len(payload))
	}
	if got := hash.UpdateCRC32C(hash.CRC32C(data[:crcEnd]), payload); got != sum {
		return arena.Image{}, fmt.Errorf("%w: checksum %08x, want %08x", ErrCorrupt, got, sum)
	}
	if rawLen != capacity {
		return arena.Image{}, fmt.Errorf("%w: raw length %d != capacity %d", ErrCorrupt, rawLen, capacity)
	}
	if maxCapacity > 0 && capacity > uint64(maxCapacity) {
		return arena.Image{}, fmt.Errorf("%w: capacity %d, limit %d", ErrTooLarge, capacity, maxCapacity)
	}
	if err := checkExpansion(payloadLen, rawLen, c); err != nil {
		return arena.Image{}, err
	}

	img := arena.Image{Regions: regions}
	var err error
	if img.Alignment, err = conv.Uint32ToInt(alignment); err != nil {
		return arena.Image{}, fmt.Errorf("%w: alignment: %w", ErrCorrupt, err)
	}
	if img.Capacity, err = conv.Uint64ToInt(capacity); err != nil {
		return arena.Image{}, fmt.Errorf("%w: capacity: %w", ErrCorrupt, err)
	}
	if img.Used, err = conv.Uint64ToInt(used); err != nil {
		return arena.Image{}, fmt.Errorf("%w: used: %w", ErrCorrupt, err)
	}
	if img.Data, err = decompress(payload, c, img.Capacity); err != nil {
		return arena.Image{}, err
	}
	return img, nil
}
