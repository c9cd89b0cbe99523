package ring

import "encoding/binary"

// WriteMatrixRaw appends the little-endian word encoding of m to dst, in
// (row, col, coeff) order (spec.md §4.E, §4.I). The reference Rust
// implementation uses native-endian words; little-endian is chosen here
// per spec.md §9's "Endianness" design note for cross-machine
// interoperability.
func WriteMatrixRaw(dst []byte, m *MatrixRaw) []byte {
	var b [8]byte
	for _, v := range m.Data {
		binary.LittleEndian.PutUint64(b[:], v)
		dst = append(dst, b[:]...)
	}
	return dst
}

// MatrixRawByteLen returns the serialized length in bytes of a rows x cols
// matrix over ring r.
func MatrixRawByteLen(r *Ring, rows, cols int) int {
	return rows * cols * r.N * 8
}

// ReadMatrixRaw decodes len(m.Data) little-endian words from src into m,
// returning the number of bytes consumed.
func ReadMatrixRaw(m *MatrixRaw, src []byte) int {
	n := len(m.Data)
	for i := 0; i < n; i++ {
		m.Data[i] = binary.LittleEndian.Uint64(src[i*8 : i*8+8])
	}
	return n * 8
}

// ReadArbitraryBits reads a width-bit (width <= 64) value from the bit
// stream data, starting at bit offset bitOffset (MSB-first within each
// logical byte, crossing byte boundaries as needed). This reproduces
// read_arbitrary_bits from client.rs bit-exactly: it is the inverse of a
// packer that emits the high bit of each value first.
func ReadArbitraryBits(data []byte, bitOffset, width int) uint64 {
	var result uint64
	for i := 0; i < width; i++ {
		bitPos := bitOffset + i
		byteIdx := bitPos / 8
		bitInByte := 7 - (bitPos % 8)
		var bit uint64
		if byteIdx < len(data) {
			bit = uint64((data[byteIdx] >> bitInByte) & 1)
		}
		result = (result << 1) | bit
	}
	return result
}

// WriteArbitraryBits is the packer corresponding to [ReadArbitraryBits]: it
// writes the low `width` bits of value, MSB-first, into data starting at
// bitOffset, growing data as needed.
func WriteArbitraryBits(data []byte, bitOffset, width int, value uint64) []byte {
	needed := (bitOffset + width + 7) / 8
	for len(data) < needed {
		data = append(data, 0)
	}
	for i := 0; i < width; i++ {
		bit := (value >> (width - 1 - i)) & 1
		bitPos := bitOffset + i
		byteIdx := bitPos / 8
		bitInByte := 7 - (bitPos % 8)
		if bit == 1 {
			data[byteIdx] |= 1 << bitInByte
		}
	}
	return data
}

// WriteModPWords packs values, each bitsPerEl wide, wordsPerChunk to a
// 64-bit little-endian chunk (low bits hold the first value of the chunk),
// reproducing client.rs's result.to_vec(p_bits, modp_words_per_chunk()).
func WriteModPWords(values []uint64, bitsPerEl, wordsPerChunk int) []byte {
	numChunks := CeilDiv(len(values), wordsPerChunk)
	out := make([]byte, numChunks*8)
	for i, v := range values {
		chunk := i / wordsPerChunk
		pos := i % wordsPerChunk
		word := binary.LittleEndian.Uint64(out[chunk*8 : chunk*8+8])
		word |= (v & ((1 << uint(bitsPerEl)) - 1)) << uint(pos*bitsPerEl)
		binary.LittleEndian.PutUint64(out[chunk*8:chunk*8+8], word)
	}
	return out
}
