package decryption

import "errors"

// ErrNoEmbeddedKey is returned for tracks whose tail carries no key when no
// external key was configured.
var ErrNoEmbeddedKey = errors.New("tail record has no embedded key; provide one with --ekey or --ekey-file")
