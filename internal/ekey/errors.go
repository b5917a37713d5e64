package ekey

import "errors"

var (
	// ErrUnwrapFailed is wrapped by every Unwrap failure.
	ErrUnwrapFailed = errors.New("key unwrap failed")
	// ErrKeyTooShort is returned when a key is too short to wrap or unwrap.
	ErrKeyTooShort = errors.New("key too short")
)
