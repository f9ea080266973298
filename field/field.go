// Package field implements the big-endian, bit-precise field codec used to
// extract and insert header field values at arbitrary bit offsets.
package field

import "encoding/binary"

// Extract reads a field of the given width (bits) starting at bitOffset
// bits from the start of the header's byte range (byteOffset into buf).
//
// Widths of 8, 16, 32 and 64 at a byte-aligned offset take a fast path
// through encoding/binary. Widths greater than 64 that are a multiple of
// 8 are returned as a raw byte copy. Every other width is extracted by
// walking bytes: the high bits of the first byte, whole bytes in the
// middle, and the low bits of the last byte, most-significant-bit first.
func Extract(buf []byte, byteOffset, bitOffset, width int) (scalar uint64, raw []byte) {
	if width <= 0 {
		return 0, nil
	}

	byteOffset += bitOffset / 8
	bitOffset %= 8

	if bitOffset == 0 {
		switch {
		case width == 8:
			return uint64(buf[byteOffset]), nil
		case width == 16:
			return uint64(binary.BigEndian.Uint16(buf[byteOffset : byteOffset+2])), nil
		case width == 32:
			return uint64(binary.BigEndian.Uint32(buf[byteOffset : byteOffset+4])), nil
		case width == 64:
			return binary.BigEndian.Uint64(buf[byteOffset : byteOffset+8]), nil
		case width > 64 && width%8 == 0:
			n := width / 8
			raw = make([]byte, n)
			copy(raw, buf[byteOffset:byteOffset+n])
			return 0, raw
		}
	}

	return extractBits(buf, byteOffset, bitOffset, width), nil
}

// extractBits walks the byte range bit by bit, accumulating the
// big-endian value of a field narrower than 64 bits that starts at an
// arbitrary bit offset.
func extractBits(buf []byte, byteOffset, bitOffset, width int) uint64 {
	var value uint64
	remaining := width
	pos := byteOffset
	cur := bitOffset

	for remaining > 0 {
		bitsInByte := 8 - cur
		take := bitsInByte
		if take > remaining {
			take = remaining
		}
		shift := uint(bitsInByte - take)
		mask := byte(1<<uint(take) - 1)
		chunk := (buf[pos] >> shift) & mask

		value = value<<uint(take) | uint64(chunk)
		remaining -= take
		pos++
		cur = 0
	}

	return value
}

// Insert writes a field's current value into dst (the header's full byte
// range) at bitOffset bits from the start of the range. Exactly one of
// scalar or raw is meaningful, selected by width: width<=64 writes scalar,
// width>64 (a multiple of 8) copies raw in directly.
//
// Byte-aligned whole-byte widths write directly. Arbitrary offsets mask
// each destination byte, preserving the bits outside the field, and OR in
// the new bits.
func Insert(dst []byte, bitOffset, width int, scalar uint64, raw []byte) {
	if width <= 0 {
		return
	}

	byteOffset := bitOffset / 8
	bitOffset %= 8

	if len(raw) > 0 {
		copy(dst[byteOffset:byteOffset+len(raw)], raw)
		return
	}

	if bitOffset == 0 {
		switch {
		case width == 8:
			dst[byteOffset] = byte(scalar)
			return
		case width == 16:
			binary.BigEndian.PutUint16(dst[byteOffset:byteOffset+2], uint16(scalar))
			return
		case width == 32:
			binary.BigEndian.PutUint32(dst[byteOffset:byteOffset+4], uint32(scalar))
			return
		case width == 64:
			binary.BigEndian.PutUint64(dst[byteOffset:byteOffset+8], scalar)
			return
		}
	}

	insertBits(dst, byteOffset, bitOffset, width, scalar)
}

// insertBits is the mirror of extractBits: it shifts the value so its
// remaining high bits line up with each destination byte's free bits,
// masks out the field's span in that byte, and ORs the new bits in.
func insertBits(dst []byte, byteOffset, bitOffset, width int, value uint64) {
	remaining := width
	pos := byteOffset
	cur := bitOffset

	for remaining > 0 {
		bitsInByte := 8 - cur
		take := bitsInByte
		if take > remaining {
			take = remaining
		}
		shift := uint(bitsInByte - take)
		chunkShift := uint(remaining - take)
		chunkMask := uint64(1<<uint(take) - 1)
		chunk := byte((value >> chunkShift) & chunkMask)

		byteMask := byte(chunkMask) << shift
		dst[pos] = dst[pos]&^byteMask | chunk<<shift

		remaining -= take
		pos++
		cur = 0
	}
}
