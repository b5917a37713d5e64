// Package ekey recovers the raw content key from an encoded QMC2 key (EKey).
//
// An EKey is base64 text. Its decoded form is either an inner-wrapped key
// (8 plaintext bytes followed by TEA-CBC ciphertext under a sub-key derived from
// those 8 bytes) or, when prefixed with "QQMusic EncV2,Key:", an outer envelope that
// holds the base64 of an inner-wrapped key encrypted twice with fixed stage keys.
package ekey

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/idelchi/unqmc/pkg/tctea"
)

const (
	// V2Prefix tags an outer envelope.
	V2Prefix = "QQMusic EncV2,Key:"

	// DefaultSeed starts the simple key sequence.
	DefaultSeed = 106

	// plainPrefixSize is the number of inner-wrapped bytes kept in the clear.
	plainPrefixSize = 8
	simpleKeySize   = plainPrefixSize
)

//nolint:gochecknoglobals // fixed scheme constants
var (
	defaultOuterStageKey = [tctea.KeySize]byte{
		0x33, 0x38, 0x36, 0x5A, 0x4A, 0x59, 0x21, 0x40,
		0x23, 0x2A, 0x24, 0x25, 0x5E, 0x26, 0x29, 0x28,
	}
	defaultInnerStageKey = [tctea.KeySize]byte{
		0x2A, 0x2A, 0x23, 0x21, 0x28, 0x23, 0x24, 0x25,
		0x26, 0x5E, 0x61, 0x31, 0x63, 0x5A, 0x2C, 0x54,
	}
)

// Unwrapper holds the file-independent parameters of the key escrow layer.
// It is immutable and safe for concurrent use.
type Unwrapper struct {
	seed  byte
	outer [tctea.KeySize]byte
	inner [tctea.KeySize]byte
}

// Option configures an Unwrapper.
type Option func(*Unwrapper)

// WithSeed replaces the simple key seed.
func WithSeed(seed byte) Option {
	return func(u *Unwrapper) {
		u.seed = seed
	}
}

// WithStageKeys replaces the outer and inner stage keys of the V2 envelope.
func WithStageKeys(outer, inner [tctea.KeySize]byte) Option {
	return func(u *Unwrapper) {
		u.outer = outer
		u.inner = inner
	}
}

// New returns an Unwrapper with the scheme's constants, adjusted by opts.
func New(opts ...Option) *Unwrapper {
	u := &Unwrapper{
		seed:  DefaultSeed,
		outer: defaultOuterStageKey,
		inner: defaultInnerStageKey,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Unwrap decodes ekey with the default parameters.
func Unwrap(ekey string) ([]byte, error) {
	return New().Unwrap(ekey)
}

// Unwrap turns an encoded key into the raw content key. On failure no partial key
// is returned and the error wraps ErrUnwrapFailed.
func (u *Unwrapper) Unwrap(ekey string) ([]byte, error) {
	decoded, err := decodeBase64(ekey)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding ekey: %w", ErrUnwrapFailed, err)
	}

	if rest, ok := bytes.CutPrefix(decoded, []byte(V2Prefix)); ok {
		decoded, err = u.unwrapOuter(rest)
		if err != nil {
			return nil, err
		}
	}

	return u.unwrapInner(decoded)
}

func (u *Unwrapper) unwrapOuter(envelope []byte) ([]byte, error) {
	stage, err := tctea.Decrypt(u.outer[:], envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: outer stage: %w", ErrUnwrapFailed, err)
	}

	stage, err = tctea.Decrypt(u.inner[:], stage)
	if err != nil {
		return nil, fmt.Errorf("%w: inner stage: %w", ErrUnwrapFailed, err)
	}

	wrapped, err := decodeBase64(string(stage))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding inner ekey: %w", ErrUnwrapFailed, err)
	}

	return wrapped, nil
}

func (u *Unwrapper) unwrapInner(wrapped []byte) ([]byte, error) {
	if len(wrapped) < plainPrefixSize+2*tctea.BlockSize {
		return nil, fmt.Errorf("%w: %w: wrapped key is %d bytes", ErrUnwrapFailed, ErrKeyTooShort, len(wrapped))
	}

	rest, err := tctea.Decrypt(u.subKey(wrapped[:plainPrefixSize]), wrapped[plainPrefixSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: inner key: %w", ErrUnwrapFailed, err)
	}

	key := make([]byte, 0, plainPrefixSize+len(rest))
	key = append(key, wrapped[:plainPrefixSize]...)

	return append(key, rest...), nil
}

// subKey interleaves the simple key (even positions) with the clear prefix (odd positions).
func (u *Unwrapper) subKey(prefix []byte) []byte {
	simple := SimpleKey(u.seed, simpleKeySize)
	key := make([]byte, tctea.KeySize)

	for i := range simpleKeySize {
		key[2*i] = simple[i]
		key[2*i+1] = prefix[i]
	}

	return key
}

// SimpleKey returns n bytes of floor(|tan(seed + 0.1*i)| * 100).
// The product is truncated through int64 before narrowing to a byte, matching the
// x86 conversion the format was produced with.
func SimpleKey(seed byte, n int) []byte {
	out := make([]byte, n)

	for i := range out {
		v := math.Abs(math.Tan(float64(seed)+float64(i)*0.1)) * 100.0
		out[i] = byte(int64(v))
	}

	return out
}

// decodeBase64 accepts padded and unpadded standard base64 surrounded by NULs or spaces.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Trim(s, "\x00 \t\r\n")
	s = strings.TrimRight(s, "=")

	out, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}

	return out, nil
}
