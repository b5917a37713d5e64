package tail

import (
	"errors"
	"fmt"
	"io"
)

// DefaultWindowSize holds every known tail shape in a single read for typical keys.
const DefaultWindowSize = 4 * 1024

// ReadWindow returns the last n bytes of a source of the given size.
func ReadWindow(r io.ReadSeeker, size, n int64) ([]byte, error) {
	n = min(n, size)

	if _, err := r.Seek(size-n, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to tail window: %w", err)
	}

	window := make([]byte, n)
	if _, err := io.ReadFull(r, window); err != nil {
		return nil, fmt.Errorf("reading tail window: %w", err)
	}

	return window, nil
}

// Find locates the tail record of r, starting with a window of windowSize bytes and
// growing it while the locator asks for more. It returns the record and the total
// size of the source. The read position of r is left unspecified.
func Find(r io.ReadSeeker, windowSize int) (Record, int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Record{}, 0, fmt.Errorf("querying size: %w", err)
	}

	if size < markerSize {
		return Record{}, size, fmt.Errorf("%w: %d byte file", ErrUnrecognized, size)
	}

	want := max(int64(windowSize), markerSize)

	for {
		window, err := ReadWindow(r, size, want)
		if err != nil {
			return Record{}, size, err
		}

		rec, err := Locate(window)

		var more *NeedMoreBytesError
		if !errors.As(err, &more) {
			return rec, size, err
		}

		if more.Required > size {
			return Record{}, size, fmt.Errorf("%w: tail needs %d bytes, file has %d",
				ErrMalformed, more.Required, size)
		}

		if more.Required <= int64(len(window)) {
			return Record{}, size, fmt.Errorf("locating tail: %w", err)
		}

		want = more.Required
	}
}
