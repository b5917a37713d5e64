package decryption

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/idelchi/unqmc/internal/qmc2"
	"github.com/idelchi/unqmc/internal/tail"
)

// track is an opened encrypted file with its located tail and unwrapped key.
type track struct {
	file   *os.File
	record tail.Record
	size   int64
	key    []byte
}

// payloadSize is the number of bytes handed to the cipher.
func (t *track) payloadSize() int64 {
	return t.size - t.record.ConsumedLength
}

func (t *track) Close() error {
	return t.file.Close()
}

// open locates the tail of filename and recovers its content key. No session and
// no output exist until this succeeds.
func (p *Processor) open(filename string) (_ *track, err error) {
	file, err := os.Open(filepath.Clean(filename))
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}

	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	record, size, err := tail.Find(file, p.cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("locating tail: %w", err)
	}

	log := p.log.WithFields(logrus.Fields{
		"file":     filename,
		"shape":    record.Shape,
		"consumed": record.ConsumedLength,
	})

	encoded := record.EKey

	if !record.HasKey() {
		if p.ekey == "" {
			return nil, fmt.Errorf("%w (filename %q)", ErrNoEmbeddedKey, record.Filename)
		}

		log.WithField("filename", record.Filename).Debug("using external key")

		encoded = p.ekey
	}

	key, err := p.unwrapper.Unwrap(encoded)
	if err != nil {
		return nil, fmt.Errorf("recovering key: %w", err)
	}

	log.WithFields(logrus.Fields{
		"key":    len(key),
		"cipher": qmc2.KindFor(len(key)),
	}).Debug("located tail")

	return &track{file: file, record: record, size: size, key: key}, nil
}

// headWriter forwards writes and keeps a copy of the first bytes.
type headWriter struct {
	w    io.Writer
	head []byte
}

func (h *headWriter) Write(p []byte) (int, error) {
	if room := sniffSize - len(h.head); room > 0 {
		h.head = append(h.head, p[:min(room, len(p))]...)
	}

	return h.w.Write(p)
}

// decrypt streams up to limit payload bytes of t into w and returns the first
// decrypted bytes for container detection.
func (p *Processor) decrypt(t *track, w io.Writer, limit int64) ([]byte, error) {
	session, _, err := qmc2.NewSession(t.key)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to payload: %w", err)
	}

	bufp := bufferPool.Get().(*[]byte) //nolint:forcetypeassert
	defer bufferPool.Put(bufp)

	buf := *bufp
	reader := io.LimitReader(t.file, min(limit, t.payloadSize()))
	out := &headWriter{w: w}

	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, err := session.Write(buf[:n]); err != nil {
				return nil, fmt.Errorf("decrypting payload: %w", err)
			}

			if _, err := session.WriteTo(out); err != nil {
				return nil, fmt.Errorf("writing plaintext: %w", err)
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("reading payload: %w", readErr)
		}
	}

	if err := session.End(); err != nil {
		return nil, fmt.Errorf("finishing session: %w", err)
	}

	return out.head, nil
}
