// Package testutil builds fixture files shared by package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// GPS describes the tags embedded by WriteGPSJPEG. Empty fields are omitted from the file.
type GPS struct {
	Latitude     []float64 // degrees, minutes, seconds
	LatitudeRef  string
	Longitude    []float64
	LongitudeRef string
}

const (
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5

	tagGPSLatitudeRef  = 0x0001
	tagGPSLatitude     = 0x0002
	tagGPSLongitudeRef = 0x0003
	tagGPSLongitude    = 0x0004
	tagGPSIFDPointer   = 0x8825
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte // inline when len <= 4
}

// WriteGPSJPEG writes a JPEG-framed file whose APP1 segment carries the given GPS tags.
// Only the metadata is meaningful; there is no scan data.
func WriteGPSJPEG(t *testing.T, dir, name string, gps GPS) string {
	t.Helper()

	var entries []ifdEntry
	if gps.LatitudeRef != "" {
		entries = append(entries, asciiEntry(tagGPSLatitudeRef, gps.LatitudeRef))
	}
	if len(gps.Latitude) > 0 {
		entries = append(entries, rationalEntry(tagGPSLatitude, gps.Latitude))
	}
	if gps.LongitudeRef != "" {
		entries = append(entries, asciiEntry(tagGPSLongitudeRef, gps.LongitudeRef))
	}
	if len(gps.Longitude) > 0 {
		entries = append(entries, rationalEntry(tagGPSLongitude, gps.Longitude))
	}

	tiff := buildTIFF(entries)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	segment := append([]byte("Exif\x00\x00"), tiff...)
	binary.Write(&buf, binary.BigEndian, uint16(len(segment)+2))
	buf.Write(segment)
	buf.Write([]byte{0xFF, 0xD9})

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write EXIF fixture: %v", err)
	}
	return path
}

// WritePNG writes a small valid PNG without any metadata.
func WritePNG(t *testing.T, dir, name string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create PNG fixture: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode PNG fixture: %v", err)
	}
	return path
}

// WriteCoordinates writes a synthetic coordinate table.
func WriteCoordinates(t *testing.T, dir string, rows [][3]string) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("latitude,longitude,place\n")
	for _, row := range rows {
		buf.WriteString(row[0] + "," + row[1] + "," + row[2] + "\n")
	}

	path := filepath.Join(dir, "coords.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write coordinates fixture: %v", err)
	}
	return path
}

func asciiEntry(tag uint16, value string) ifdEntry {
	data := append([]byte(value), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(data)), data: data}
}

func rationalEntry(tag uint16, values []float64) ifdEntry {
	data := make([]byte, 0, 8*len(values))
	for _, v := range values {
		num := uint32(math.Round(v * 100))
		data = binary.LittleEndian.AppendUint32(data, num)
		data = binary.LittleEndian.AppendUint32(data, 100)
	}
	return ifdEntry{tag: tag, typ: tiffRational, count: uint32(len(values)), data: data}
}

// buildTIFF lays out: header, IFD0 holding only the GPS pointer, the GPS IFD, then value data.
func buildTIFF(gpsEntries []ifdEntry) []byte {
	le := binary.LittleEndian

	const ifd0Offset = 8
	const ifd0Size = 2 + 12 + 4
	gpsOffset := uint32(ifd0Offset + ifd0Size)
	gpsSize := uint32(2 + 12*len(gpsEntries) + 4)
	dataOffset := gpsOffset + gpsSize

	out := []byte{'I', 'I', 0x2A, 0x00}
	out = le.AppendUint32(out, ifd0Offset)

	out = le.AppendUint16(out, 1)
	out = appendEntry(out, ifdEntry{tag: tagGPSIFDPointer, typ: tiffLong, count: 1, data: le.AppendUint32(nil, gpsOffset)}, 0)
	out = le.AppendUint32(out, 0)

	var data []byte
	out = le.AppendUint16(out, uint16(len(gpsEntries)))
	for _, e := range gpsEntries {
		offset := dataOffset + uint32(len(data))
		out = appendEntry(out, e, offset)
		if len(e.data) > 4 {
			data = append(data, e.data...)
		}
	}
	out = le.AppendUint32(out, 0)

	return append(out, data...)
}

func appendEntry(out []byte, e ifdEntry, offset uint32) []byte {
	le := binary.LittleEndian
	out = le.AppendUint16(out, e.tag)
	out = le.AppendUint16(out, e.typ)
	out = le.AppendUint32(out, e.count)
	if len(e.data) > 4 {
		return le.AppendUint32(out, offset)
	}
	inline := make([]byte, 4)
	copy(inline, e.data)
	return append(out, inline...)
}
