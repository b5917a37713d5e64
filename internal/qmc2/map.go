package qmc2

const (
	// mapPageSize is the period of the map cipher mask.
	mapPageSize = 0x7FFF
	// mapIndexSalt is added to the squared offset when picking a key byte.
	mapIndexSalt = 71214
)

// mapCipher XORs the payload with a mask table derived once from a short key.
// The table holds one extra entry: offset 0x7FFF itself is not reduced modulo the
// page size, so exactly that byte reads past the end of the first page.
type mapCipher struct {
	table [mapPageSize + 1]byte
}

func newMapCipher(key []byte) *mapCipher {
	c := &mapCipher{}
	n := uint64(len(key))

	for i := range c.table {
		idx := (uint64(i)*uint64(i) + mapIndexSalt) % n
		c.table[i] = swizzle(key[idx], byte(idx))
	}

	return c
}

// swizzle shifts value both ways by (idx+4) mod 8 and merges the halves.
// It is not a rotation; the format depends on this exact mixing.
func swizzle(value, idx byte) byte {
	shift := (idx + 4) % 8

	return value<<shift | value>>shift
}

func mapIndex(offset int64) int64 {
	if offset > mapPageSize {
		offset %= mapPageSize
	}

	return offset
}

func (c *mapCipher) Decrypt(buf []byte, offset int64) {
	for i := range buf {
		buf[i] ^= c.table[mapIndex(offset+int64(i))]
	}
}
