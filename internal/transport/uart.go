package transport

import (
	"bytes"
	"fmt"
	"time"
)

// MagicUART tags every command-channel unit on the FTDI link. Outgoing
// packets are prefixed with the tag and a one-byte length; incoming reply
// bytes arrive stuffed one-per-group inside repeating 6-byte UART groups.
var MagicUART = []byte("UART")

const (
	// uartGroupSize is the size of one stuffed group on the read side:
	// the 4-byte tag, a length byte, then the single payload byte.
	uartGroupSize = 6

	// DefaultSyncTimeout bounds the search for a magic marker.
	DefaultSyncTimeout = 200 * time.Millisecond

	// readChunk is the number of bytes pulled per transport read while
	// hunting for a marker; it matches the FTDI chip's 512-byte packet
	// size times the usual 8 packets per transfer.
	readChunk = 8 * 512
)

// UARTFramer wraps a Transport with the UART tagging scheme the grabber uses
// for the command channel while the FTDI chip is in reset mode. It owns the
// byte-level framing only; packet semantics stay in the protocol layer.
type UARTFramer struct {
	link        Transport
	syncTimeout time.Duration
}

// NewUARTFramer wraps link. A zero syncTimeout selects DefaultSyncTimeout.
func NewUARTFramer(link Transport, syncTimeout time.Duration) *UARTFramer {
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncTimeout
	}
	return &UARTFramer{link: link, syncTimeout: syncTimeout}
}

// WritePacket sends one command packet wrapped as UART + length + payload.
// The length byte is advisory; the camera ignores it.
func (f *UARTFramer) WritePacket(data []byte) error {
	buf := make([]byte, 0, len(MagicUART)+1+len(data))
	buf = append(buf, MagicUART...)
	buf = append(buf, byte(len(data)))
	buf = append(buf, data...)

	n, err := f.link.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("uart framer: short write: %d of %d bytes", n, len(buf))
	}
	return nil
}

// ReadPayload extracts n reply bytes from the stuffed read stream: it syncs
// to the first UART marker, accumulates 6*n raw bytes from there, and keeps
// every sixth byte (offset 5 within each group).
func (f *UARTFramer) ReadPayload(n int) ([]byte, error) {
	raw := n * uartGroupSize

	data, err := f.sync()
	if err != nil {
		return nil, err
	}

	for len(data) < raw {
		chunk := make([]byte, raw-len(data))
		m, err := f.link.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("uart framer: read: %w", err)
		}
		if m == 0 {
			break
		}
		data = append(data, chunk[:m]...)
	}
	if len(data) < raw {
		return nil, fmt.Errorf("uart framer: short read: %d of %d raw bytes", len(data), raw)
	}

	payload := make([]byte, 0, n)
	for i := uartGroupSize - 1; i < raw; i += uartGroupSize {
		payload = append(payload, data[i])
	}
	return payload, nil
}

// sync reads until the UART marker appears, then returns the buffer trimmed
// so the marker sits at position zero. Times out per the framer config.
func (f *UARTFramer) sync() ([]byte, error) {
	var data []byte
	deadline := time.Now().Add(f.syncTimeout)

	for {
		chunk := make([]byte, readChunk)
		n, err := f.link.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("uart framer: sync read: %w", err)
		}
		data = append(data, chunk[:n]...)

		if i := bytes.Index(data, MagicUART); i >= 0 {
			return data[i:], nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("uart framer: no marker within %v", f.syncTimeout)
		}
	}
}
