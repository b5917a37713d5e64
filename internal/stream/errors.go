package stream

import "errors"

var (
	// ErrWriteAfterEnd is returned when Write is called after End.
	ErrWriteAfterEnd = errors.New("write after end of input")
	// ErrTruncated is returned by End when the input stopped before the body began.
	ErrTruncated = errors.New("truncated input")
	// ErrInvalidBodyOffset is returned when a header points into itself.
	ErrInvalidBodyOffset = errors.New("invalid body offset")
)
