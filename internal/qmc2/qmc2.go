// Package qmc2 implements the QMC2 content ciphers and picks one from the length
// of the raw content key.
//
// Keys shorter than KeyLengthThreshold use the map cipher, a position-indexed XOR
// mask with a 0x7FFF period. Longer keys use the segmented cipher: the first
// HeadSize bytes are masked byte by byte, the rest is an RC4-style stream over a
// key-sized permutation that is rebuilt from the key every SegmentSize bytes.
package qmc2

import (
	"errors"
	"fmt"

	"github.com/idelchi/unqmc/internal/stream"
)

// KeyLengthThreshold is the smallest key length handled by the segmented cipher.
const KeyLengthThreshold = 300

// ErrEmptyKey is returned when the raw key is empty.
var ErrEmptyKey = errors.New("empty content key")

// Kind names a content cipher.
type Kind int

const (
	// KindMap is the map cipher for short keys.
	KindMap Kind = iota
	// KindSegmented is the segmented stream cipher for long keys.
	KindSegmented
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindSegmented:
		return "segmented-rc4"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindFor returns the cipher used for a key of keyLen bytes.
func KindFor(keyLen int) Kind {
	if keyLen < KeyLengthThreshold {
		return KindMap
	}

	return KindSegmented
}

// Cipher is one of the content ciphers, fixed at construction.
type Cipher struct {
	kind      Kind
	mapped    *mapCipher
	segmented *segmentCipher
}

// NewCipher selects and initializes the cipher for key. The key must not be
// modified afterwards.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	c := &Cipher{kind: KindFor(len(key))}

	switch c.kind {
	case KindMap:
		c.mapped = newMapCipher(key)
	case KindSegmented:
		c.segmented = newSegmentCipher(key)
	}

	return c, nil
}

// Kind returns the selected cipher.
func (c *Cipher) Kind() Kind {
	return c.kind
}

// Decrypt decrypts buf in place; offset is the payload offset of buf[0].
func (c *Cipher) Decrypt(buf []byte, offset int64) {
	switch c.kind {
	case KindMap:
		c.mapped.Decrypt(buf, offset)
	case KindSegmented:
		c.segmented.Decrypt(buf, offset)
	}
}

// NewSession returns a decryption session for key. The payload handed to the
// session must already exclude the tail record.
func NewSession(key []byte) (*stream.Machine, Kind, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, 0, err
	}

	return stream.New(c), c.kind, nil
}
