package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupm-obs/tau2grab/internal/frame"
)

func testImage(base int16) *frame.Image {
	im := &frame.Image{Pixels: make([]int16, frame.Width*frame.Height)}
	for i := range im.Pixels {
		im.Pixels[i] = base + int16(i%100)
	}
	return im
}

func TestRecordAndReplay(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, "test-session", 123456)
	require.NoError(t, err)

	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Record(testImage(1000), base))
	require.NoError(t, rec.Record(nil, base.Add(40*time.Millisecond)))
	require.NoError(t, rec.Record(testImage(2000), base.Add(80*time.Millisecond)))
	require.NoError(t, rec.Close())

	assert.Equal(t, uint64(2), rec.FrameCount())

	rd, err := OpenRun(dir)
	require.NoError(t, err)

	hdr := rd.Header()
	assert.Equal(t, uint64(2), hdr.TotalFrames)
	assert.Equal(t, uint64(1), hdr.DroppedGaps, "damaged frames are counted, not stored")
	assert.Equal(t, "test-session", hdr.SessionID)
	assert.Equal(t, uint32(123456), hdr.CameraSerial)
	assert.Equal(t, frame.Width, hdr.Width)

	im, at, err := rd.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, testImage(1000).Pixels, im.Pixels)
	assert.Equal(t, base.UnixNano(), at.UnixNano())

	im, at, err = rd.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, int16(2000), im.Pixels[0])
	assert.Equal(t, base.Add(80*time.Millisecond).UnixNano(), at.UnixNano())

	_, _, err = rd.Frame(2)
	assert.Error(t, err)
}

func TestRecorderLayout(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, "layout", 1)
	require.NoError(t, err)
	require.NoError(t, rec.Record(testImage(0), time.Now()))
	require.NoError(t, rec.Close())

	for _, name := range []string{"header.json", "index.bin", filepath.Join("frames", "chunk_0000.raw")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRecordAfterClose(t *testing.T) {
	rec, err := NewRecorder(t.TempDir(), "closed", 1)
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close(), "double close is harmless")

	assert.Error(t, rec.Record(testImage(0), time.Now()))
}
