package tctea_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/unqmc/pkg/tctea"
)

func sequentialKey(start byte) []byte {
	key := make([]byte, tctea.KeySize)
	for i := range key {
		key[i] = start + byte(i)
	}

	return key
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	key := sequentialKey(0x10)

	for _, size := range []int{0, 1, 5, 6, 7, 8, 13, 64, 248, 1000} {
		plaintext := bytes.Repeat([]byte{0xA5}, size)

		ciphertext, err := tctea.Encrypt(key, plaintext, nil)
		require.NoError(t, err)
		assert.Len(t, ciphertext, tctea.EncryptedLen(size))
		assert.Zero(t, len(ciphertext)%tctea.BlockSize, "size %d", size)

		decrypted, err := tctea.Decrypt(key, ciphertext)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, plaintext, decrypted, "size %d", size)
	}
}

func TestEncryptedLen(t *testing.T) {
	t.Parallel()

	// 248 + 10 framing bytes round up to 264.
	assert.Equal(t, 264, tctea.EncryptedLen(248))
	assert.Equal(t, 16, tctea.EncryptedLen(6))
	assert.Equal(t, 24, tctea.EncryptedLen(7))
}

func TestDeterministicWithFixedRandom(t *testing.T) {
	t.Parallel()

	key := sequentialKey(0x40)
	plaintext := []byte("deterministic salt")

	first, err := tctea.Encrypt(key, plaintext, bytes.NewReader(make([]byte, 16)))
	require.NoError(t, err)

	second, err := tctea.Encrypt(key, plaintext, bytes.NewReader(make([]byte, 16)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecryptDetectsTampering(t *testing.T) {
	t.Parallel()

	key := sequentialKey(0x20)

	ciphertext, err := tctea.Encrypt(key, []byte("some wrapped key material"), nil)
	require.NoError(t, err)

	// Flipping a bit in the last block scrambles the trailing zero bytes.
	ciphertext[len(ciphertext)-1] ^= 0x01

	_, err = tctea.Decrypt(key, ciphertext)
	require.ErrorIs(t, err, tctea.ErrZeroCheck)
}

func TestDecryptWrongKey(t *testing.T) {
	t.Parallel()

	ciphertext, err := tctea.Encrypt(sequentialKey(0x01), bytes.Repeat([]byte{1}, 40), nil)
	require.NoError(t, err)

	_, err = tctea.Decrypt(sequentialKey(0x02), ciphertext)
	require.Error(t, err)
}

func TestDecryptRejectsBadSizes(t *testing.T) {
	t.Parallel()

	key := sequentialKey(0)

	_, err := tctea.Decrypt(key, make([]byte, 8))
	require.ErrorIs(t, err, tctea.ErrCiphertextSize)

	_, err = tctea.Decrypt(key, make([]byte, 17))
	require.ErrorIs(t, err, tctea.ErrCiphertextSize)

	_, err = tctea.Decrypt(key[:8], make([]byte, 16))
	require.ErrorIs(t, err, tctea.ErrKeySize)

	_, err = tctea.Encrypt(key[:15], nil, nil)
	require.ErrorIs(t, err, tctea.ErrKeySize)
}
