// Package transport abstracts the physical link to the ThermalCapture
// grabber: a plain serial port for the command channel, or the FTDI chip in
// either of its two bit-modes. The core protocol and frame-sync layers
// depend only on the interfaces here, which keeps them testable without
// hardware.
package transport

import (
	"errors"
	"io"
	"time"
)

// ErrLinkUnavailable is returned when the underlying link cannot accept a
// requested bit-mode (for example asking a plain serial port to stream).
var ErrLinkUnavailable = errors.New("transport: link cannot enter requested bit-mode")

// BitMode is the FTDI chip operating mode. Reset behaves like a UART and
// carries the packetized command channel; SyncFF is the synchronous FIFO
// mode that streams raw image bytes.
type BitMode int

const (
	BitModeReset BitMode = iota
	BitModeSyncFF
)

func (m BitMode) String() string {
	switch m {
	case BitModeReset:
		return "reset"
	case BitModeSyncFF:
		return "syncff"
	default:
		return "unknown"
	}
}

// Transport is the minimal contract the protocol core needs: blocking byte
// I/O, buffer purging around mode changes, and bit-mode control.
type Transport interface {
	io.ReadWriter
	io.Closer

	// Purge discards any bytes buffered in either direction.
	Purge() error

	// SetBitMode switches the link's operating mode. Implementations that
	// support only one mode return ErrLinkUnavailable for the other.
	SetBitMode(BitMode) error
}

// TimeoutTransport is implemented by transports whose reads can be bounded.
type TimeoutTransport interface {
	Transport
	SetReadTimeout(time.Duration) error
}
