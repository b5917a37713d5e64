// Package stream implements the push-based decryption contract shared by every
// content cipher: ciphertext is written in file order with arbitrary chunking and
// plaintext is queued for the caller to drain. Output never depends on chunking.
package stream

import (
	"bytes"
	"fmt"
	"io"
)

// Cipher decrypts buf in place. offset is the absolute input offset of buf[0].
// Implementations are called with strictly increasing, contiguous offsets.
type Cipher interface {
	Decrypt(buf []byte, offset int64)
}

// State is a step of the machine.
type State int

const (
	// StateWaitForHeader buffers a fixed-size header.
	StateWaitForHeader State = iota
	// StateSeekToBody skips input until the body offset returned by the header parser.
	StateSeekToBody
	// StateDecrypt feeds every further byte through the cipher.
	StateDecrypt
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateWaitForHeader:
		return "wait-for-header"
	case StateSeekToBody:
		return "seek-to-body"
	case StateDecrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Header describes an optional leading header. Parse receives exactly Size bytes
// and returns the absolute offset at which the body starts.
type Header struct {
	Size  int
	Parse func(header []byte) (bodyOffset int64, err error)
}

// Machine is a single decryption session. It is not safe for concurrent use.
type Machine struct {
	cipher Cipher
	header *Header

	state      State
	bodyOffset int64
	cursor     Cursor

	out   bytes.Buffer
	err   error
	ended bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithHeader makes the machine start in StateWaitForHeader.
func WithHeader(header Header) Option {
	return func(m *Machine) {
		m.header = &header
		m.state = StateWaitForHeader
	}
}

// New returns a machine decrypting with c. Without options it starts in StateDecrypt.
func New(c Cipher, opts ...Option) *Machine {
	m := &Machine{
		cipher: c,
		state:  StateDecrypt,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Offset returns the number of input bytes accepted so far.
func (m *Machine) Offset() int64 {
	return m.cursor.Offset()
}

// Err returns the sticky error, if any.
func (m *Machine) Err() error {
	return m.err
}

func (m *Machine) fail(err error) error {
	if m.err == nil {
		m.err = err
	}

	return m.err
}

// Write accepts the next ciphertext bytes in file order. It always consumes all of p
// unless the machine has failed, in which case nothing is consumed.
func (m *Machine) Write(p []byte) (int, error) {
	if m.err != nil {
		return 0, m.err
	}

	if m.ended {
		return 0, m.fail(ErrWriteAfterEnd)
	}

	n := len(p)

	for len(p) > 0 {
		var done bool

		switch m.state {
		case StateWaitForHeader:
			if p, done = m.cursor.UntilLength(p, m.header.Size); !done {
				return n, nil
			}

			body, err := m.header.Parse(m.cursor.Bytes())
			m.cursor.Reset()

			if err != nil {
				return n, m.fail(fmt.Errorf("parsing header: %w", err))
			}

			if body < m.cursor.Offset() {
				return n, m.fail(fmt.Errorf("%w: body offset %d precedes header end %d",
					ErrInvalidBodyOffset, body, m.cursor.Offset()))
			}

			m.bodyOffset = body
			m.state = StateSeekToBody

			if body == m.cursor.Offset() {
				m.state = StateDecrypt
			}

		case StateSeekToBody:
			if p, done = m.cursor.UntilOffset(p, m.bodyOffset); !done {
				return n, nil
			}

			m.cursor.Reset()
			m.state = StateDecrypt

		case StateDecrypt:
			start := m.out.Len()
			m.out.Write(p)
			m.cipher.Decrypt(m.out.Bytes()[start:], m.cursor.Offset())
			m.cursor.Advance(len(p))

			p = nil
		}
	}

	return n, nil
}

// End signals end of input. It fails if the input stopped before the body began.
func (m *Machine) End() error {
	if m.err != nil {
		return m.err
	}

	if m.state != StateDecrypt {
		return m.fail(fmt.Errorf("%w: input ended in state %s", ErrTruncated, m.state))
	}

	m.ended = true

	return nil
}

// Buffered returns the number of plaintext bytes waiting to be drained.
func (m *Machine) Buffered() int {
	return m.out.Len()
}

// Drain returns and removes all queued plaintext.
func (m *Machine) Drain() []byte {
	out := bytes.Clone(m.out.Bytes())
	m.out.Reset()

	return out
}

// WriteTo drains queued plaintext into w. It implements io.WriterTo, so io.Copy
// can move output without an intermediate buffer.
func (m *Machine) WriteTo(w io.Writer) (int64, error) {
	n, err := m.out.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("draining plaintext: %w", err)
	}

	return n, nil
}
