package transport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestTransport implements Transport with configurable behaviour for tests:
// scripted read data, captured writes, injectable errors, and a record of
// every bit-mode switch and purge.
type TestTransport struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the link.
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set, then cleared.
	ReadError error

	// WriteError is returned by the next Write call if set, then cleared.
	WriteError error

	// BitModeError is returned by every SetBitMode call if set.
	BitModeError error

	// Mode is the current bit-mode.
	Mode BitMode

	// ModeSwitches records every SetBitMode call in order.
	ModeSwitches []BitMode

	// PurgeCalls counts Purge invocations.
	PurgeCalls int

	// ReadCalls and WriteCalls count the respective invocations.
	ReadCalls  int
	WriteCalls int

	// ReadTimeout is the last timeout passed to SetReadTimeout.
	ReadTimeout time.Duration

	// Closed indicates whether Close was called.
	Closed bool
}

// NewTestTransport creates an empty TestTransport in command mode.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
}

func (t *TestTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++
	if t.Closed {
		return 0, errors.New("transport closed")
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	return t.ReadBuffer.Read(p)
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++
	if t.Closed {
		return 0, errors.New("transport closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	return t.WriteBuffer.Write(p)
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return nil
}

// Purge records the flush but deliberately keeps scripted read data, so
// tests can preload a reply before invoking an operation that flushes first.
func (t *TestTransport) Purge() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.PurgeCalls++
	return nil
}

func (t *TestTransport) SetBitMode(m BitMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.BitModeError != nil {
		return t.BitModeError
	}
	t.Mode = m
	t.ModeSwitches = append(t.ModeSwitches, m)
	return nil
}

// SetReadTimeout implements TimeoutTransport.
func (t *TestTransport) SetReadTimeout(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = d
	return nil
}

// AddReadData appends data for subsequent Read calls to return.
func (t *TestTransport) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(data)
}

// Written returns all data written to the link so far.
func (t *TestTransport) Written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.WriteBuffer.Bytes()
}

// Reset clears buffers, counters and recorded calls.
func (t *TestTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Reset()
	t.WriteBuffer.Reset()
	t.ReadCalls = 0
	t.WriteCalls = 0
	t.PurgeCalls = 0
	t.ModeSwitches = nil
	t.ReadError = nil
	t.WriteError = nil
	t.BitModeError = nil
	t.Closed = false
}
