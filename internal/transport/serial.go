package transport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// PortOptions describes the serial connection parameters used when opening a
// real command-channel port. Fields mirror the JSON acquisition config so the
// options can be passed through without translation.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
// The Tau 2 command channel runs at 921600 baud 8N1 out of the box.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 921600
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	opts.Parity = parity
	return opts, nil
}

// SerialMode converts the port options into the serial.Mode structure
// required by go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.StopBits(opts.StopBits),
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}

// SerialTransport drives the camera over a plain serial port. It carries the
// command channel only: a UART has no synchronous-FIFO mode, so requesting
// BitModeSyncFF fails with ErrLinkUnavailable.
type SerialTransport struct {
	port serial.Port
}

// OpenSerial opens the serial port at path with the given options.
func OpenSerial(path string, opts PortOptions) (*SerialTransport, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return &SerialTransport{port: port}, nil
}

func (s *SerialTransport) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialTransport) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *SerialTransport) Close() error                { return s.port.Close() }

// Purge drops both the input and output buffers of the port.
func (s *SerialTransport) Purge() error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return err
	}
	return s.port.ResetOutputBuffer()
}

// SetBitMode accepts BitModeReset (the port is already a UART) and rejects
// streaming, which needs the FTDI FIFO path.
func (s *SerialTransport) SetBitMode(m BitMode) error {
	if m != BitModeReset {
		return ErrLinkUnavailable
	}
	return nil
}

// SetReadTimeout bounds blocking reads on the port.
func (s *SerialTransport) SetReadTimeout(d time.Duration) error {
	return s.port.SetReadTimeout(d)
}
