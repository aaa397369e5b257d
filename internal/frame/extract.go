// Package frame turns the raw synchronous-FIFO byte stream delivered by the
// grabber into 14-bit thermal images. The stream is a repeating sequence of
// marker-delimited frames with no external clock: frame boundaries are
// recovered purely from the marker spacing, and damaged frames are reported
// as gaps rather than repaired.
package frame

import (
	"bytes"
	"encoding/binary"
)

// ThermalCapture grabber stream format constants.
const (
	// Magic delimits every frame in the FIFO stream.
	Magic = "TEAX"

	// Width and Height are the Tau 2 sensor geometry in image pixels.
	Width  = 640
	Height = 512

	// rawColumns is the per-row sample count on the wire: the image columns
	// plus one telemetry column on each side, dropped during extraction.
	rawColumns = Width + 2

	// headerBytes span the marker and the frame header that precedes the
	// first pixel sample.
	headerBytes = 10

	// payloadBytes is the pixel payload of one frame: Height rows of
	// rawColumns little-endian 16-bit samples.
	payloadBytes = 2 * Height * rawColumns

	// Stride is the byte distance between consecutive frame markers. Two
	// markers closer or farther apart than this bracket a damaged frame.
	Stride = headerBytes + payloadBytes

	// sampleMask keeps the 14 data bits of each 16-bit sample.
	sampleMask = 0x3FFF

	// dropSentinel is the masked sample value the FIFO emits in place of
	// bytes lost to overruns. A frame containing any such sample is invalid.
	dropSentinel = 255
)

var magicBytes = []byte(Magic)

// Image is one extracted thermal frame: Height*Width signed 14-bit counts in
// row-major order.
type Image struct {
	Pixels []int16
}

// At returns the count at image row r, column c.
func (im *Image) At(r, c int) int16 { return im.Pixels[r*Width+c] }

// Locate returns the offset of every frame marker in data, valid or not.
func Locate(data []byte) []int {
	var offsets []int
	for start := 0; ; {
		i := bytes.Index(data[start:], magicBytes)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, start+i)
		start += i + len(magicBytes)
	}
}

// Extract parses every complete frame in data. Each entry corresponds to one
// accepted marker pair; a nil entry marks a frame whose payload carried the
// drop sentinel. Marker pairs whose spacing differs from Stride are skipped
// entirely: their payload boundaries cannot be trusted. Bytes after the last
// marker are ignored, so callers should extract only from closed captures.
func Extract(data []byte) []*Image {
	offsets := Locate(data)

	var frames []*Image
	for i := 0; i+1 < len(offsets); i++ {
		if offsets[i+1]-offsets[i] != Stride {
			continue
		}
		frames = append(frames, decode(data[offsets[i]+headerBytes:offsets[i+1]]))
	}
	return frames
}

// decode unpacks one frame payload, trimming the flanking telemetry columns.
// Returns nil when any masked sample equals the drop sentinel.
func decode(payload []byte) *Image {
	pixels := make([]int16, 0, Height*Width)
	for r := 0; r < Height; r++ {
		row := payload[r*rawColumns*2 : (r+1)*rawColumns*2]
		for c := 1; c < rawColumns-1; c++ {
			v := int16(binary.LittleEndian.Uint16(row[c*2:]) & sampleMask)
			if v == dropSentinel {
				return nil
			}
			pixels = append(pixels, v)
		}
	}
	return &Image{Pixels: pixels}
}
