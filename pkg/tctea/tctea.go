// Package tctea implements the Tencent flavour of TEA in its "oi_symmetry" CBC framing.
//
// The block primitive is 16-cycle TEA (32 Feistel rounds) from golang.org/x/crypto/tea.
// Plaintext is framed as
//
//	[control byte][pad][2 salt][plaintext][7 zero bytes]
//
// where the low 3 bits of the control byte hold the pad length and the total is a
// multiple of the 8-byte block size. Blocks are chained with two values: the previous
// ciphertext block and the previous pre-encryption block.
package tctea

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/tea"
)

const (
	// BlockSize is the TEA block size in bytes.
	BlockSize = 8
	// KeySize is the TEA key size in bytes.
	KeySize = 16

	rounds  = 32
	saltLen = 2
	zeroLen = 7

	// overhead is the minimum framing added around a plaintext.
	overhead = 1 + saltLen + zeroLen
)

var (
	// ErrKeySize is returned when the key is not 16 bytes.
	ErrKeySize = errors.New("tctea: key must be 16 bytes")
	// ErrCiphertextSize is returned when the ciphertext is not a whole number of blocks
	// or is too short to hold the framing.
	ErrCiphertextSize = errors.New("tctea: invalid ciphertext size")
	// ErrZeroCheck is returned when the trailing zero bytes do not decrypt to zero.
	ErrZeroCheck = errors.New("tctea: zero check failed")
)

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	block, err := tea.NewCipherWithRounds(key, rounds)
	if err != nil {
		return nil, fmt.Errorf("tctea: creating block cipher: %w", err)
	}

	return block, nil
}

// EncryptedLen returns the ciphertext length for a plaintext of n bytes.
func EncryptedLen(n int) int {
	return n + overhead + padLen(n)
}

func padLen(n int) int {
	return (BlockSize - (n+overhead)%BlockSize) % BlockSize
}

// Encrypt frames and encrypts plaintext with key. Pad and salt bytes are read from
// random; a nil random uses crypto/rand.
func Encrypt(key, plaintext []byte, random io.Reader) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	if random == nil {
		random = rand.Reader
	}

	pad := padLen(len(plaintext))
	framed := make([]byte, EncryptedLen(len(plaintext)))

	// control byte, pad and salt are random; the pad length overrides the low bits.
	head := framed[:1+pad+saltLen]
	if _, err := io.ReadFull(random, head); err != nil {
		return nil, fmt.Errorf("tctea: reading salt: %w", err)
	}

	head[0] = head[0]&0xF8 | byte(pad)
	copy(framed[len(head):], plaintext)

	out := make([]byte, len(framed))

	var prevCipher, prevPlain, mixed [BlockSize]byte

	for pos := 0; pos < len(framed); pos += BlockSize {
		subtle.XORBytes(mixed[:], framed[pos:pos+BlockSize], prevCipher[:])
		block.Encrypt(out[pos:pos+BlockSize], mixed[:])
		subtle.XORBytes(out[pos:pos+BlockSize], out[pos:pos+BlockSize], prevPlain[:])

		prevPlain = mixed
		copy(prevCipher[:], out[pos:pos+BlockSize])
	}

	return out, nil
}

// Decrypt reverses Encrypt. The trailing zero bytes are verified in constant time;
// no plaintext is returned when the check fails.
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext)%BlockSize != 0 || len(ciphertext) < 2*BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextSize, len(ciphertext))
	}

	framed := make([]byte, len(ciphertext))

	var prevCipher, prevPlain, mixed [BlockSize]byte

	for pos := 0; pos < len(ciphertext); pos += BlockSize {
		subtle.XORBytes(mixed[:], ciphertext[pos:pos+BlockSize], prevPlain[:])
		block.Decrypt(mixed[:], mixed[:])
		subtle.XORBytes(framed[pos:pos+BlockSize], mixed[:], prevCipher[:])

		prevPlain = mixed
		copy(prevCipher[:], ciphertext[pos:pos+BlockSize])
	}

	start := 1 + int(framed[0]&0x07) + saltLen
	end := len(framed) - zeroLen

	if start > end {
		return nil, fmt.Errorf("%w: pad length exceeds payload", ErrCiphertextSize)
	}

	var zeros [zeroLen]byte
	if subtle.ConstantTimeCompare(framed[end:], zeros[:]) != 1 {
		return nil, ErrZeroCheck
	}

	return framed[start:end], nil
}
