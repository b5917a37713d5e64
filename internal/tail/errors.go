package tail

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned for a recognized tail that carries no key.
	ErrUnsupported = errors.New("unsupported tail: no embedded key")
	// ErrUnrecognized is returned when no known tail shape matches.
	ErrUnrecognized = errors.New("unrecognized tail")
	// ErrMalformed is returned when a tail shape matches but its fields do not check out.
	ErrMalformed = errors.New("malformed tail record")
	// ErrOverflow is returned when a declared length exceeds its safety bound.
	ErrOverflow = errors.New("tail record size overflow")
)

// NeedMoreBytesError reports that the window is too short to finish parsing.
// Retrying with at least Required trailing bytes resolves it.
type NeedMoreBytesError struct {
	Required int64
}

func (e *NeedMoreBytesError) Error() string {
	return fmt.Sprintf("need %d trailing bytes", e.Required)
}
