package ekey

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/idelchi/unqmc/pkg/tctea"
)

// Wrap produces the inner-wrapped EKey of key. Salt is read from random; nil uses
// crypto/rand.
func (u *Unwrapper) Wrap(key []byte, random io.Reader) (string, error) {
	if len(key) < plainPrefixSize {
		return "", fmt.Errorf("%w: %d bytes, need at least %d", ErrKeyTooShort, len(key), plainPrefixSize)
	}

	sealed, err := tctea.Encrypt(u.subKey(key[:plainPrefixSize]), key[plainPrefixSize:], random)
	if err != nil {
		return "", fmt.Errorf("wrapping key: %w", err)
	}

	wrapped := make([]byte, 0, plainPrefixSize+len(sealed))
	wrapped = append(wrapped, key[:plainPrefixSize]...)
	wrapped = append(wrapped, sealed...)

	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// WrapV2 produces the outer envelope EKey of key: the inner-wrapped EKey encrypted
// with the inner stage key, then the outer stage key, behind V2Prefix.
func (u *Unwrapper) WrapV2(key []byte, random io.Reader) (string, error) {
	inner, err := u.Wrap(key, random)
	if err != nil {
		return "", err
	}

	stage, err := tctea.Encrypt(u.inner[:], []byte(inner), random)
	if err != nil {
		return "", fmt.Errorf("inner stage: %w", err)
	}

	stage, err = tctea.Encrypt(u.outer[:], stage, random)
	if err != nil {
		return "", fmt.Errorf("outer stage: %w", err)
	}

	return base64.StdEncoding.EncodeToString(append([]byte(V2Prefix), stage...)), nil
}
