package frame

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lupm-obs/tau2grab/internal/monitoring"
	"github.com/lupm-obs/tau2grab/internal/tau2"
)

// grabReadChunk is the per-read size during a capture window. Sized to a
// handful of USB transfers so chunk timestamps stay meaningful.
const grabReadChunk = 256 * 1024

// ChunkStamp records when the bytes starting at Offset arrived. The stamps
// let the decode stage assign a wall-clock time to each extracted frame by
// interpolating over the capture buffer.
type ChunkStamp struct {
	Offset int
	At     time.Time
}

// Capture is one closed acquisition window. Data begins at a frame marker
// when alignment succeeded; Stamps has one entry per transport read.
type Capture struct {
	Data   []byte
	Stamps []ChunkStamp
	Start  time.Time
	End    time.Time
}

// FrameTime estimates the arrival time of the byte at offset using the
// nearest preceding chunk stamp.
func (c *Capture) FrameTime(offset int) time.Time {
	at := c.Start
	for _, s := range c.Stamps {
		if s.Offset > offset {
			break
		}
		at = s.At
	}
	return at
}

// Grabber accumulates the raw FIFO stream over fixed wall-clock windows.
// The camera has no frame clock the host can see, so a window is closed by
// time, never by frame count, and the decode stage works out frame
// boundaries afterwards.
type Grabber struct {
	link        *tau2.Link
	syncTimeout time.Duration
}

// NewGrabber wraps a mode-guarded link. Each capture asserts streaming mode
// through the link's guard policy before touching the FIFO.
func NewGrabber(link *tau2.Link, syncTimeout time.Duration) *Grabber {
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncTimeout
	}
	return &Grabber{link: link, syncTimeout: syncTimeout}
}

// Capture aligns to the stream and then reads for the given window. The
// returned buffer is owned by the caller; the grabber keeps no reference to
// it, so it can be handed to a decode worker without copying.
func (g *Grabber) Capture(ctx context.Context, window time.Duration) (*Capture, error) {
	if err := g.link.Require(tau2.ModeStreaming); err != nil {
		return nil, err
	}
	raw := g.link.Transport()

	head, err := Align(raw, g.syncTimeout, false)
	if err != nil {
		return nil, err
	}

	win := &Capture{Start: time.Now()}
	if len(head) > 0 {
		win.Data = head
		win.Stamps = append(win.Stamps, ChunkStamp{Offset: 0, At: win.Start})
	}

	deadline := win.Start.Add(window)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := make([]byte, grabReadChunk)
		n, err := raw.Read(chunk)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("frame: capture read: %w", err)
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}

		win.Stamps = append(win.Stamps, ChunkStamp{Offset: len(win.Data), At: time.Now()})
		win.Data = append(win.Data, chunk[:n]...)
	}

	win.End = time.Now()
	monitoring.Logf("frame: captured %d bytes in %v (%d reads)", len(win.Data), win.End.Sub(win.Start).Round(time.Millisecond), len(win.Stamps))
	return win, nil
}

// CaptureAsync runs Capture in a goroutine and hands the closed buffer over
// exactly once on the returned channel, so decoding and persisting can
// overlap the next window. The channel is closed after the single send.
func (g *Grabber) CaptureAsync(ctx context.Context, window time.Duration) (<-chan *Capture, <-chan error) {
	out := make(chan *Capture, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		c, err := g.Capture(ctx, window)
		if err != nil {
			errs <- err
			return
		}
		out <- c
	}()
	return out, errs
}
