package decryption

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/idelchi/unqmc/internal/fileutil"
)

const (
	// sniffSize is the number of plaintext bytes inspected to recognize the container.
	sniffSize = 3072

	// fallbackExtension names outputs whose container is unknown.
	fallbackExtension = ".bin"
	// collisionSuffix is inserted when the output would overwrite the input.
	collisionSuffix = ".decrypted"
)

// extensionMap maps encrypted extensions, matched by prefix, to plain ones.
//
//nolint:gochecknoglobals
var extensionMap = []struct {
	prefix    string
	extension string
}{
	{".mflac", ".flac"},
	{".mgg", ".ogg"},
	{".mmp4", ".m4a"},
}

// containers lists the MIME types accepted from the sniffer, including descendants.
//
//nolint:gochecknoglobals
var containers = []string{"audio/flac", "application/ogg", "audio/mpeg", "audio/x-m4a", "video/mp4", "audio/wav"}

// MapExtension returns the plain extension for an encrypted one.
func MapExtension(ext string) (string, bool) {
	ext = strings.ToLower(ext)

	for _, m := range extensionMap {
		if strings.HasPrefix(ext, m.prefix) {
			return m.extension, true
		}
	}

	return "", false
}

// Sniff recognizes the audio container of a decrypted head.
// It returns the MIME type and extension, and false for anything that is not audio.
func Sniff(head []byte) (string, string, bool) {
	detected := mimetype.Detect(head)

	for m := detected; m != nil; m = m.Parent() {
		for _, container := range containers {
			if m.Is(container) {
				return detected.String(), detected.Extension(), true
			}
		}
	}

	return detected.String(), "", false
}

// OutputPath names the plaintext file for input. A non-empty sniffed extension
// wins over the extension map.
func OutputPath(input, sniffed string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)

	plain := sniffed
	if plain == "" {
		if mapped, ok := MapExtension(ext); ok {
			plain = mapped
		} else {
			plain = fallbackExtension
		}
	}

	out := stem + plain
	if fileutil.SameFile(out, input) {
		out = stem + collisionSuffix + plain
	}

	return out
}
