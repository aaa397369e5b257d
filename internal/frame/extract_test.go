package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFrame renders one wire-format frame whose sample at raw row r, raw
// column c is fill(r, c). Raw columns include the two telemetry columns.
func buildFrame(fill func(r, c int) uint16) []byte {
	data := make([]byte, 0, Stride)
	data = append(data, Magic...)
	data = append(data, make([]byte, headerBytes-len(Magic))...)
	for r := 0; r < Height; r++ {
		for c := 0; c < rawColumns; c++ {
			data = binary.LittleEndian.AppendUint16(data, fill(r, c)&sampleMask)
		}
	}
	return data
}

func flatFill(v uint16) func(int, int) uint16 {
	return func(int, int) uint16 { return v }
}

func TestStrideMatchesGeometry(t *testing.T) {
	assert.Equal(t, 657418, Stride)
	assert.Equal(t, Stride, len(buildFrame(flatFill(0))))
}

func TestLocate(t *testing.T) {
	stream := append([]byte{0x01, 0x02}, buildFrame(flatFill(300))...)
	stream = append(stream, buildFrame(flatFill(300))...)

	assert.Equal(t, []int{2, 2 + Stride}, Locate(stream))
	assert.Empty(t, Locate([]byte("TEA only")))
}

func TestExtract(t *testing.T) {
	fill := func(r, c int) uint16 { return uint16(1000 + r + c) }
	stream := append(buildFrame(fill), buildFrame(fill)...)
	stream = append(stream, buildFrame(fill)...)

	// Three markers close two complete frames; the trailing frame has no
	// closing marker and is dropped.
	frames := Extract(stream)
	require.Len(t, frames, 2)

	im := frames[0]
	require.NotNil(t, im)
	require.Len(t, im.Pixels, Height*Width)

	// Image column 0 is raw column 1: the telemetry columns are gone.
	assert.Equal(t, int16(1001), im.At(0, 0))
	assert.Equal(t, int16(1000+0+Width), im.At(0, Width-1))
	assert.Equal(t, int16(1000+Height-1+1), im.At(Height-1, 0))
}

func TestExtractRejectsBadSpacing(t *testing.T) {
	good := buildFrame(flatFill(500))
	truncated := good[:Stride-100]

	// marker, short gap, marker, full frame, marker
	stream := append(append([]byte{}, truncated...), good...)
	stream = append(stream, Magic...)

	frames := Extract(stream)
	require.Len(t, frames, 1)
	assert.NotNil(t, frames[0])
}

func TestExtractDropSentinel(t *testing.T) {
	bad := buildFrame(func(r, c int) uint16 {
		if r == 100 && c == 100 {
			return dropSentinel
		}
		return 900
	})
	stream := append(bad, buildFrame(flatFill(900))...)
	stream = append(stream, Magic...)

	frames := Extract(stream)
	require.Len(t, frames, 2)
	assert.Nil(t, frames[0], "frame with dropped bytes is reported as a gap")
	assert.NotNil(t, frames[1])
}

func TestExtractSentinelInTelemetryColumnIgnored(t *testing.T) {
	// The sentinel only invalidates image pixels, not the trimmed columns.
	stream := append(buildFrame(func(r, c int) uint16 {
		if c == 0 || c == rawColumns-1 {
			return dropSentinel
		}
		return 700
	}), Magic...)

	frames := Extract(stream)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0])
	assert.Equal(t, int16(700), frames[0].At(0, 0))
}

func TestExtractMasksHighBits(t *testing.T) {
	// Samples arrive with telemetry flags in the top two bits.
	stream := append(buildFrame(flatFill(0)), Magic...)
	binary.LittleEndian.PutUint16(stream[headerBytes+2:], 0x8000|1234)

	frames := Extract(stream)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0])
	assert.Equal(t, int16(1234), frames[0].At(0, 0))
}
