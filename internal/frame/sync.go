package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lupm-obs/tau2grab/internal/monitoring"
	"github.com/lupm-obs/tau2grab/internal/transport"
)

// DefaultSyncTimeout bounds the marker hunt when aligning to the stream.
const DefaultSyncTimeout = 200 * time.Millisecond

// syncReadChunk is the per-read size while hunting for a marker. Large
// enough to cover a worst-case alignment within a handful of reads.
const syncReadChunk = 64 * 1024

// ErrNoMarker is returned by Align when the timeout expires before a frame
// marker appears. With allowTimeout the condition is reported as an empty
// result instead; an idle camera is not an error during unattended runs.
var ErrNoMarker = errors.New("frame: no marker in stream")

// Align reads from the streaming link until a frame marker appears and
// returns the buffered bytes starting at that marker. The caller owns the
// returned slice and typically prepends it to the capture buffer so the
// first frame is not lost to alignment. Align works on the raw transport;
// the grabber asserts streaming mode before handing it over.
func Align(link transport.Transport, timeout time.Duration, allowTimeout bool) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	deadline := time.Now().Add(timeout)

	var data []byte
	for {
		chunk := make([]byte, syncReadChunk)
		n, err := link.Read(chunk)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("frame: sync read: %w", err)
		}
		data = append(data, chunk[:n]...)

		if i := bytes.Index(data, magicBytes); i >= 0 {
			return data[i:], nil
		}

		// Keep just enough tail to catch a marker split across reads.
		if len(data) > len(magicBytes) {
			data = data[len(data)-len(magicBytes)+1:]
		}

		if n == 0 {
			time.Sleep(time.Millisecond)
		}

		if time.Now().After(deadline) {
			if allowTimeout {
				monitoring.Logf("frame: no marker within %v, stream idle", timeout)
				return nil, nil
			}
			return nil, fmt.Errorf("%w within %v", ErrNoMarker, timeout)
		}
	}
}
