package qmc2

const (
	// HeadSize is the number of leading payload bytes decrypted byte by byte.
	HeadSize = 0x80
	// SegmentSize is the length of a stream cipher segment, counted from HeadSize.
	SegmentSize = 0x1400

	segmentMask = 0x1FF
)

// KeyHash multiplies the non-zero key bytes with wrapping uint32 arithmetic.
// The walk stops at the first product that is zero or not larger than the
// running value. A product that wraps but still grows is kept.
func KeyHash(key []byte) uint32 {
	hash := uint32(1)

	for _, v := range key {
		if v == 0 {
			continue
		}

		next := hash * uint32(v)
		if next == 0 || next <= hash {
			break
		}

		hash = next
	}

	return hash
}

// SegmentKey derives the per-segment (or, in the head, per-byte) key value
// floor(hash / (seed * (id+1)) * 100). A zero seed yields zero.
func SegmentKey(hash uint32, id uint64, seed byte) uint64 {
	if seed == 0 {
		return 0
	}

	return uint64(float64(hash) / float64(uint64(seed)*(id+1)) * 100.0)
}

// segmentState is the keystream position inside one segment.
type segmentState struct {
	id  int64
	pos int64

	box  []byte
	j, k int
}

// newSegmentState builds the state for segment id from scratch: a fresh key
// schedule over the whole key followed by the segment's keystream discard.
// It depends on nothing but its arguments.
func newSegmentState(key []byte, hash uint32, id int64) *segmentState {
	n := len(key)
	box := make([]byte, n)

	for i := range box {
		box[i] = byte(i)
	}

	for i, j := 0, 0; i < n; i++ {
		j = (j + int(box[i]) + int(key[i])) % n
		box[i], box[j] = box[j], box[i]
	}

	s := &segmentState{id: id, box: box}

	seed := key[(id&segmentMask)%int64(n)]
	s.discard(int(SegmentKey(hash, uint64(id), seed) & segmentMask))

	return s
}

func (s *segmentState) next() byte {
	n := len(s.box)

	s.j = (s.j + 1) % n
	s.k = (int(s.box[s.j]) + s.k) % n
	s.box[s.j], s.box[s.k] = s.box[s.k], s.box[s.j]

	return s.box[(int(s.box[s.j])+int(s.box[s.k]))%n]
}

func (s *segmentState) discard(count int) {
	for range count {
		s.next()
	}
}

// xor decrypts buf, which must fit in the rest of the segment.
func (s *segmentState) xor(buf []byte) {
	for i := range buf {
		buf[i] ^= s.next()
	}

	s.pos += int64(len(buf))
}

// segmentCipher is the stream cipher used for long keys. It keeps at most one
// segment state, replacing it on every segment boundary.
type segmentCipher struct {
	key  []byte
	hash uint32
	seg  *segmentState
}

func newSegmentCipher(key []byte) *segmentCipher {
	return &segmentCipher{
		key:  key,
		hash: KeyHash(key),
	}
}

func (c *segmentCipher) Decrypt(buf []byte, offset int64) {
	if offset < HeadSize {
		head := min(int64(len(buf)), HeadSize-offset)
		c.decryptHead(buf[:head], offset)

		buf = buf[head:]
		offset += head
	}

	for len(buf) > 0 {
		id := (offset - HeadSize) / SegmentSize
		pos := (offset - HeadSize) % SegmentSize

		c.enter(id, pos)

		chunk := min(int64(len(buf)), SegmentSize-pos)
		c.seg.xor(buf[:chunk])

		buf = buf[chunk:]
		offset += chunk
	}
}

// enter makes c.seg describe segment id at position pos. Sequential input reuses
// the current state; anything else rebuilds it.
func (c *segmentCipher) enter(id, pos int64) {
	if c.seg != nil && c.seg.id == id && c.seg.pos == pos {
		return
	}

	c.seg = newSegmentState(c.key, c.hash, id)
	c.seg.discard(int(pos))
	c.seg.pos = pos
}

func (c *segmentCipher) decryptHead(buf []byte, offset int64) {
	n := uint64(len(c.key))

	for i := range buf {
		o := uint64(offset) + uint64(i)
		seed := c.key[o%n]
		buf[i] ^= c.key[SegmentKey(c.hash, o, seed)%n]
	}
}
