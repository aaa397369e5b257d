package frame

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupm-obs/tau2grab/internal/tau2"
	"github.com/lupm-obs/tau2grab/internal/transport"
)

// streamLink wraps a test transport in a strict link already switched to
// streaming mode.
func streamLink(t *testing.T, tt *transport.TestTransport) *tau2.Link {
	t.Helper()
	l := tau2.NewLink(tt, tau2.GuardStrict)
	require.NoError(t, l.Transition(tau2.ModeStreaming))
	return l
}

func TestAlign(t *testing.T) {
	tt := transport.NewTestTransport()
	tt.AddReadData(append([]byte{0xAA, 0xBB, 0xCC}, []byte("TEAXrest-of-stream")...))

	got, err := Align(tt, time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("TEAXrest-of-stream"), got)
}

func TestAlignTimeout(t *testing.T) {
	tt := transport.NewTestTransport()
	tt.AddReadData([]byte("no marker here"))

	_, err := Align(tt, 20*time.Millisecond, false)
	require.ErrorIs(t, err, ErrNoMarker)
}

func TestAlignTimeoutAllowed(t *testing.T) {
	tt := transport.NewTestTransport()

	got, err := Align(tt, 20*time.Millisecond, true)
	require.NoError(t, err)
	assert.Nil(t, got, "idle stream yields an empty alignment")
}

func TestGrabberCapture(t *testing.T) {
	frameA := buildFrame(flatFill(1500))
	frameB := buildFrame(flatFill(1600))

	tt := transport.NewTestTransport()
	tt.AddReadData([]byte{0x00, 0x11}) // pre-marker noise
	tt.AddReadData(frameA)
	tt.AddReadData(frameB)
	tt.AddReadData([]byte(Magic)) // closes frameB

	g := NewGrabber(streamLink(t, tt), time.Second)
	win, err := g.Capture(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)

	require.NotEmpty(t, win.Data)
	assert.Equal(t, []byte(Magic), win.Data[:len(Magic)], "capture starts at a marker")
	assert.False(t, win.End.Before(win.Start))
	require.NotEmpty(t, win.Stamps)
	assert.Equal(t, 0, win.Stamps[0].Offset)

	frames := Extract(win.Data)
	require.Len(t, frames, 2)
	require.NotNil(t, frames[0])
	assert.Equal(t, int16(1500), frames[0].At(0, 0))
	assert.Equal(t, int16(1600), frames[1].At(0, 0))
}

func TestCaptureFrameTime(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	win := &Capture{
		Start: base,
		Stamps: []ChunkStamp{
			{Offset: 0, At: base},
			{Offset: 1000, At: base.Add(time.Second)},
			{Offset: 2000, At: base.Add(2 * time.Second)},
		},
	}

	assert.Equal(t, base, win.FrameTime(500))
	assert.Equal(t, base.Add(time.Second), win.FrameTime(1000))
	assert.Equal(t, base.Add(2*time.Second), win.FrameTime(5000))
}

func TestGrabberCaptureCancelled(t *testing.T) {
	tt := transport.NewTestTransport()
	tt.AddReadData([]byte(Magic))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGrabber(streamLink(t, tt), time.Second)
	_, err := g.Capture(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGrabberCaptureRequiresStreamingMode(t *testing.T) {
	tt := transport.NewTestTransport()
	tt.AddReadData([]byte(Magic))

	g := NewGrabber(tau2.NewLink(tt, tau2.GuardStrict), time.Second)
	_, err := g.Capture(context.Background(), 10*time.Millisecond)

	var wrong *tau2.ErrWrongMode
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, tau2.ModeStreaming, wrong.Want)
	assert.Equal(t, tau2.ModeCommand, wrong.Have)
	assert.Zero(t, tt.ReadCalls, "no bytes leave the FIFO in the wrong mode")
	assert.Empty(t, tt.ModeSwitches)
}

func TestGrabberCaptureAutoSwitchesPermissive(t *testing.T) {
	tt := transport.NewTestTransport()
	tt.AddReadData(buildFrame(flatFill(1500)))
	tt.AddReadData([]byte(Magic))

	g := NewGrabber(tau2.NewLink(tt, tau2.GuardPermissive), time.Second)
	win, err := g.Capture(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, []transport.BitMode{transport.BitModeSyncFF}, tt.ModeSwitches)
	frames := Extract(win.Data)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0])
	assert.Equal(t, int16(1500), frames[0].At(0, 0))
}

func TestCaptureAsyncHandsOverOnce(t *testing.T) {
	tt := transport.NewTestTransport()
	tt.AddReadData([]byte(Magic))

	g := NewGrabber(streamLink(t, tt), time.Second)
	out, errs := g.CaptureAsync(context.Background(), 10*time.Millisecond)

	win := <-out
	if win == nil {
		t.Fatalf("capture failed: %v", <-errs)
	}

	_, open := <-out
	assert.False(t, open, "channel closes after the single handover")
}
