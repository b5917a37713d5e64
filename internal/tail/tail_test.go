package tail_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/idelchi/unqmc/internal/tail"
)

// Part is one piece of a tail window in a golden file.
type Part struct {
	ASCII *string `yaml:"ascii"`
	U32BE *uint32 `yaml:"u32be"`
	U32LE *uint32 `yaml:"u32le"`
	Zeros int     `yaml:"zeros"`
}

// Want is the expected locator outcome.
type Want struct {
	Error    string `yaml:"error"`
	Required int64  `yaml:"required"`
	Shape    string `yaml:"shape"`
	Consumed int64  `yaml:"consumed"`
	EKey     string `yaml:"ekey"`
	Track    string `yaml:"track"`
}

// Case is a single golden case.
type Case struct {
	Description string `yaml:"description"`
	Parts       []Part `yaml:"parts"`
	Want        Want   `yaml:"want"`
}

// Group is a named collection of cases.
type Group struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Cases       []Case `yaml:"cases"`
}

func (c Case) window() []byte {
	var buf bytes.Buffer

	for _, part := range c.Parts {
		switch {
		case part.ASCII != nil:
			buf.WriteString(*part.ASCII)
		case part.U32BE != nil:
			buf.Write(binary.BigEndian.AppendUint32(nil, *part.U32BE))
		case part.U32LE != nil:
			buf.Write(binary.LittleEndian.AppendUint32(nil, *part.U32LE))
		default:
			buf.Write(make([]byte, part.Zeros))
		}
	}

	return buf.Bytes()
}

var sentinels = map[string]error{ //nolint:gochecknoglobals // test lookup table
	"unsupported":  tail.ErrUnsupported,
	"unrecognized": tail.ErrUnrecognized,
	"malformed":    tail.ErrMalformed,
	"overflow":     tail.ErrOverflow,
}

func loadGroups(t *testing.T) []Group {
	t.Helper()

	files, err := filepath.Glob("testdata/*.yml")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no testdata/*.yml files found")

	var all []Group

	for _, f := range files {
		data, err := os.ReadFile(f) //nolint:gosec // test helper reads known testdata files
		require.NoError(t, err)

		var groups []Group
		require.NoError(t, yaml.Unmarshal(data, &groups), "parsing %s", f)

		all = append(all, groups...)
	}

	return all
}

func TestLocateGolden(t *testing.T) {
	t.Parallel()

	for _, group := range loadGroups(t) {
		t.Run(group.Name, func(t *testing.T) {
			t.Parallel()

			for i, tc := range group.Cases {
				desc := tc.Description
				if desc == "" {
					desc = fmt.Sprintf("case_%d", i)
				}

				t.Run(desc, func(t *testing.T) {
					t.Parallel()

					rec, err := tail.Locate(tc.window())

					switch {
					case tc.Want.Error != "":
						sentinel, ok := sentinels[tc.Want.Error]
						require.True(t, ok, "unknown error name %q", tc.Want.Error)
						require.ErrorIs(t, err, sentinel)
					case tc.Want.Required != 0:
						var more *tail.NeedMoreBytesError
						require.ErrorAs(t, err, &more)
						assert.Equal(t, tc.Want.Required, more.Required)
					default:
						require.NoError(t, err)
						assert.Equal(t, tc.Want.Shape, rec.Shape.String())
						assert.Equal(t, tc.Want.Consumed, rec.ConsumedLength)
						assert.Equal(t, tc.Want.EKey, rec.EKey)
						assert.Equal(t, tc.Want.Track, rec.TrackID)
						assert.True(t, rec.HasKey())
					}
				})
			}
		})
	}
}

func wide(t *testing.T, s string, size int) []byte {
	t.Helper()

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	require.LessOrEqual(t, len(encoded), size)

	field := make([]byte, size)
	copy(field, encoded)

	return field
}

func musicEx(t *testing.T, size, version uint32, mediaID, filename string) []byte {
	t.Helper()

	var buf bytes.Buffer

	buf.Write(binary.LittleEndian.AppendUint32(nil, 4242))
	buf.Write(make([]byte, 8))
	buf.Write(wide(t, mediaID, 60))
	buf.Write(wide(t, filename, 100))
	buf.Write(make([]byte, 4))
	buf.Write(binary.LittleEndian.AppendUint32(nil, size))
	buf.Write(binary.LittleEndian.AppendUint32(nil, version))
	buf.WriteString("musicex\x00")

	require.Equal(t, tail.MusicExSize, buf.Len())

	return buf.Bytes()
}

func TestLocateMusicEx(t *testing.T) {
	t.Parallel()

	window := append(bytes.Repeat([]byte{0xEE}, 50), musicEx(t, 0xC0, 1, "003a6Hea0Ty9Ca", "F0M0003a6Hea0Ty9Ca.mflac")...)

	rec, err := tail.Locate(window)
	require.NoError(t, err)

	assert.Equal(t, tail.ShapeMusicEx, rec.Shape)
	assert.Equal(t, int64(0xC0), rec.ConsumedLength)
	assert.Equal(t, "F0M0003a6Hea0Ty9Ca.mflac", rec.Filename)
	assert.Equal(t, "003a6Hea0Ty9Ca", rec.MediaID)
	assert.Equal(t, uint32(4242), rec.SongID)
	assert.False(t, rec.HasKey())
}

func TestLocateMusicExNeedsWholeStruct(t *testing.T) {
	t.Parallel()

	full := musicEx(t, 0xC0, 1, "id", "name.mflac")

	_, err := tail.Locate(full[len(full)-40:])

	var more *tail.NeedMoreBytesError
	require.ErrorAs(t, err, &more)
	assert.Equal(t, int64(0xC0), more.Required)

	_, err = tail.Locate(full[len(full)-6:])
	require.ErrorAs(t, err, &more)
	assert.Equal(t, int64(16), more.Required)
}

func TestLocateMusicExOverflow(t *testing.T) {
	t.Parallel()

	full := musicEx(t, 0x1000, 1, "id", "name.mflac")

	// The overflow is reported from the trailer alone and for oversized windows alike.
	for _, window := range [][]byte{
		full[len(full)-16:],
		full,
		append(make([]byte, 0x2000), full...),
	} {
		_, err := tail.Locate(window)
		require.ErrorIs(t, err, tail.ErrOverflow)
	}
}

func TestLocateMusicExMalformed(t *testing.T) {
	t.Parallel()

	_, err := tail.Locate(musicEx(t, 0xC0, 2, "id", "name.mflac"))
	require.ErrorIs(t, err, tail.ErrMalformed)

	_, err = tail.Locate(musicEx(t, 0x80, 1, "id", "name.mflac"))
	require.ErrorIs(t, err, tail.ErrMalformed)
}

func TestLocateMusicExLookalike(t *testing.T) {
	t.Parallel()

	// Ends like the musicex magic but is not one; the PC fallback rejects the length.
	_, err := tail.Locate([]byte("0123456789abcdefnotmuscex\x00"))
	require.ErrorIs(t, err, tail.ErrUnrecognized)
}

func TestFindGrowsWindow(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte("A"), 600)

	file := append(bytes.Repeat([]byte{0x42}, 10000), key...)
	file = binary.LittleEndian.AppendUint32(file, uint32(len(key)))

	rec, size, err := tail.Find(bytes.NewReader(file), 16)
	require.NoError(t, err)

	assert.Equal(t, int64(len(file)), size)
	assert.Equal(t, tail.ShapePC, rec.Shape)
	assert.Equal(t, int64(604), rec.ConsumedLength)
	assert.Equal(t, string(key), rec.EKey)
}

func TestFindRecordLongerThanFile(t *testing.T) {
	t.Parallel()

	file := binary.BigEndian.AppendUint32([]byte("short"), 2000)
	file = append(file, "QTag"...)

	_, _, err := tail.Find(bytes.NewReader(file), tail.DefaultWindowSize)
	require.ErrorIs(t, err, tail.ErrMalformed)
}

func TestFindTinyFile(t *testing.T) {
	t.Parallel()

	_, _, err := tail.Find(bytes.NewReader([]byte{1, 2}), tail.DefaultWindowSize)
	require.ErrorIs(t, err, tail.ErrUnrecognized)
}

func TestFindUnsupported(t *testing.T) {
	t.Parallel()

	_, _, err := tail.Find(bytes.NewReader([]byte("payloadSTag")), tail.DefaultWindowSize)
	require.True(t, errors.Is(err, tail.ErrUnsupported))
}
