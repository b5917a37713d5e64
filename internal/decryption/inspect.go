package decryption

import (
	"io"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/unqmc/internal/qmc2"
)

// Report describes an encrypted track without decrypting it to disk.
type Report struct {
	File     string `yaml:"file"`
	Size     string `yaml:"size,omitempty"`
	Shape    string `yaml:"shape,omitempty"`
	Consumed int64  `yaml:"consumed,omitempty"`
	Payload  string `yaml:"payload,omitempty"`

	TrackID  string `yaml:"track-id,omitempty"`
	SongID   uint32 `yaml:"song-id,omitempty"`
	MediaID  string `yaml:"media-id,omitempty"`
	Filename string `yaml:"filename,omitempty"`

	KeyLength int    `yaml:"key-length,omitempty"`
	Cipher    string `yaml:"cipher,omitempty"`
	Container string `yaml:"container,omitempty"`
	Output    string `yaml:"output,omitempty"`

	Error string `yaml:"error,omitempty"`
}

// Inspect locates the tail of filename, recovers its key and decrypts the first
// bytes in memory to recognize the container. Failures are reported in the
// returned Report as well as the error.
func (p *Processor) Inspect(filename string) (Report, error) {
	report := Report{File: filename}

	t, err := p.open(filename)
	if err != nil {
		report.Error = err.Error()

		return report, err
	}
	defer t.Close()

	//nolint:gosec // sizes are non-negative
	report.Size = humanize.IBytes(uint64(t.size))
	report.Shape = t.record.Shape.String()
	report.Consumed = t.record.ConsumedLength
	report.Payload = humanize.IBytes(uint64(t.payloadSize())) //nolint:gosec
	report.TrackID = t.record.TrackID
	report.SongID = t.record.SongID
	report.MediaID = t.record.MediaID
	report.Filename = t.record.Filename
	report.KeyLength = len(t.key)
	report.Cipher = qmc2.KindFor(len(t.key)).String()

	head, err := p.decrypt(t, io.Discard, sniffSize)
	if err != nil {
		report.Error = err.Error()

		return report, err
	}

	mime, ext, _ := Sniff(head)
	report.Container = mime

	if p.cfg.NoSniff {
		ext = ""
	}

	report.Output = OutputPath(filename, ext)

	return report, nil
}
