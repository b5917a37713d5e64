// Package tail locates the key record QMC2 tracks carry at the end of the file.
//
// Four mutually exclusive shapes exist, checked in this order:
//
//	STag     keyless trailer written by current clients
//	QTag     legacy Android record "ekey,track_id,2"
//	musicex  extended metadata struct naming the key by file name
//	PC       legacy desktop record: ekey text followed by its length
//
// Each shape may need more trailing bytes than the window holds; that is reported
// with *NeedMoreBytesError and resolved by retrying with a larger window.
package tail

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Shape identifies which tail layout matched.
type Shape int

const (
	// ShapeAndroid is the "QTag" record.
	ShapeAndroid Shape = iota + 1
	// ShapeMusicEx is the "musicex" extended metadata struct.
	ShapeMusicEx
	// ShapePC is the length-suffixed ekey fallback.
	ShapePC
)

// String implements fmt.Stringer.
func (s Shape) String() string {
	switch s {
	case ShapeAndroid:
		return "android"
	case ShapeMusicEx:
		return "musicex"
	case ShapePC:
		return "pc"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

const (
	markerSize = 4

	markerUnsupported = "STag"
	markerAndroid     = "QTag"

	// androidHeaderSize is the record length field plus the marker.
	androidHeaderSize = 8
	// MaxAndroidRecordSize bounds the declared Android record length.
	MaxAndroidRecordSize = 0x1000

	musicExMagic   = "musicex\x00"
	musicExVersion = 1
	// musicExTrailerSize covers size, version and magic.
	musicExTrailerSize = 16
	// MusicExSize is the size of the only known musicex struct, and its upper bound.
	MusicExSize = 0xC0

	musicExSongIDOffset   = 0
	musicExMediaIDOffset  = 12
	musicExMediaIDSize    = 30 * 2
	musicExFilenameOffset = musicExMediaIDOffset + musicExMediaIDSize
	musicExFilenameSize   = 50 * 2

	// MaxPCKeySize bounds the ekey length of the PC fallback.
	MaxPCKeySize = 0x1000
)

// Record is a successfully located tail.
type Record struct {
	Shape Shape
	// ConsumedLength is the number of trailing bytes that are not payload.
	ConsumedLength int64

	// EKey is the encoded key. It is empty for ShapeMusicEx.
	EKey string
	// TrackID is set for ShapeAndroid.
	TrackID string

	// SongID, MediaID and Filename are set for ShapeMusicEx.
	SongID   uint32
	MediaID  string
	Filename string
}

// HasKey reports whether the record embeds an encoded key.
func (r Record) HasKey() bool {
	return r.EKey != ""
}

// Locate identifies the tail shape at the end of window. window must be the last
// len(window) bytes of the file.
func Locate(window []byte) (Record, error) {
	if len(window) < markerSize {
		return Record{}, &NeedMoreBytesError{Required: markerSize}
	}

	marker := string(window[len(window)-markerSize:])

	switch {
	case marker == markerUnsupported:
		return Record{}, ErrUnsupported
	case marker == markerAndroid:
		return locateAndroid(window)
	case marker == musicExMagic[len(musicExMagic)-markerSize:]:
		rec, err := locateMusicEx(window)
		if !errors.Is(err, errNotMusicEx) {
			return rec, err
		}
	}

	return locatePC(window)
}

func locateAndroid(window []byte) (Record, error) {
	if len(window) < androidHeaderSize {
		return Record{}, &NeedMoreBytesError{Required: androidHeaderSize}
	}

	size := binary.BigEndian.Uint32(window[len(window)-androidHeaderSize:])
	if size > MaxAndroidRecordSize {
		return Record{}, fmt.Errorf("%w: android record declares %d bytes, limit %d",
			ErrOverflow, size, MaxAndroidRecordSize)
	}

	consumed := int64(size) + androidHeaderSize
	if int64(len(window)) < consumed {
		return Record{}, &NeedMoreBytesError{Required: consumed}
	}

	record := window[int64(len(window))-consumed : len(window)-androidHeaderSize]

	const fieldCount = 3

	fields := strings.Split(string(record), ",")
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: android record has %d fields, want %d",
			ErrMalformed, len(fields), fieldCount)
	}

	if fields[2] != "2" {
		return Record{}, fmt.Errorf("%w: android record version %q", ErrMalformed, fields[2])
	}

	if fields[0] == "" {
		return Record{}, fmt.Errorf("%w: android record has an empty key", ErrMalformed)
	}

	return Record{
		Shape:          ShapeAndroid,
		ConsumedLength: consumed,
		EKey:           fields[0],
		TrackID:        fields[1],
	}, nil
}

var errNotMusicEx = fmt.Errorf("%w: not a musicex trailer", ErrUnrecognized)

func locateMusicEx(window []byte) (Record, error) {
	if len(window) < musicExTrailerSize {
		return Record{}, &NeedMoreBytesError{Required: musicExTrailerSize}
	}

	trailer := window[len(window)-musicExTrailerSize:]
	if string(trailer[8:]) != musicExMagic {
		return Record{}, errNotMusicEx
	}

	size := binary.LittleEndian.Uint32(trailer[0:4])
	version := binary.LittleEndian.Uint32(trailer[4:8])

	// The declared size is checked before it sizes anything.
	if size > MusicExSize {
		return Record{}, fmt.Errorf("%w: musicex declares %d bytes, limit %d", ErrOverflow, size, MusicExSize)
	}

	if version != musicExVersion {
		return Record{}, fmt.Errorf("%w: musicex version %d", ErrMalformed, version)
	}

	if size < MusicExSize {
		return Record{}, fmt.Errorf("%w: musicex declares %d bytes, want %d", ErrMalformed, size, MusicExSize)
	}

	if len(window) < int(size) {
		return Record{}, &NeedMoreBytesError{Required: int64(size)}
	}

	tag := window[len(window)-int(size):]

	mediaID, err := decodeWide(tag[musicExMediaIDOffset : musicExMediaIDOffset+musicExMediaIDSize])
	if err != nil {
		return Record{}, fmt.Errorf("%w: musicex media id: %w", ErrMalformed, err)
	}

	filename, err := decodeWide(tag[musicExFilenameOffset : musicExFilenameOffset+musicExFilenameSize])
	if err != nil {
		return Record{}, fmt.Errorf("%w: musicex filename: %w", ErrMalformed, err)
	}

	return Record{
		Shape:          ShapeMusicEx,
		ConsumedLength: int64(size),
		SongID:         binary.LittleEndian.Uint32(tag[musicExSongIDOffset:]),
		MediaID:        mediaID,
		Filename:       filename,
	}, nil
}

// decodeWide decodes a NUL-padded UTF-16LE field.
func decodeWide(field []byte) (string, error) {
	for i := 0; i+1 < len(field); i += 2 {
		if field[i] == 0 && field[i+1] == 0 {
			field = field[:i]

			break
		}
	}

	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(field)
	if err != nil {
		return "", fmt.Errorf("decoding utf-16: %w", err)
	}

	return string(decoded), nil
}

func locatePC(window []byte) (Record, error) {
	size := binary.LittleEndian.Uint32(window[len(window)-markerSize:])
	if size == 0 || size > MaxPCKeySize {
		return Record{}, fmt.Errorf("%w: trailing length %#x", ErrUnrecognized, size)
	}

	consumed := int64(size) + markerSize
	if int64(len(window)) < consumed {
		return Record{}, &NeedMoreBytesError{Required: consumed}
	}

	ekey := bytes.TrimRight(window[int64(len(window))-consumed:len(window)-markerSize], "\x00")
	if len(ekey) == 0 {
		return Record{}, fmt.Errorf("%w: empty key", ErrMalformed)
	}

	if i := bytes.IndexFunc(ekey, notBase64); i >= 0 {
		return Record{}, fmt.Errorf("%w: non-base64 byte %#x in key", ErrUnrecognized, ekey[i])
	}

	return Record{
		Shape:          ShapePC,
		ConsumedLength: consumed,
		EKey:           string(ekey),
	}, nil
}

func notBase64(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r == '+', r == '/', r == '=':
		return false
	default:
		return true
	}
}
