package tau2

import (
	"fmt"
	"sync"

	"github.com/lupm-obs/tau2grab/internal/monitoring"
	"github.com/lupm-obs/tau2grab/internal/transport"
)

// Mode is the logical state of the link. Exactly one is active at a time:
// packet exchanges are legal only in ModeCommand, frame reads only in
// ModeStreaming.
type Mode int

const (
	ModeCommand Mode = iota
	ModeStreaming
)

func (m Mode) String() string {
	if m == ModeStreaming {
		return "streaming"
	}
	return "command"
}

func (m Mode) bitMode() transport.BitMode {
	if m == ModeStreaming {
		return transport.BitModeSyncFF
	}
	return transport.BitModeReset
}

// GuardPolicy controls what happens when an operation is attempted in the
// wrong mode.
type GuardPolicy int

const (
	// GuardPermissive logs a warning and transitions to the required mode
	// before proceeding.
	GuardPermissive GuardPolicy = iota

	// GuardStrict fails the call with ErrWrongMode and leaves the link
	// untouched.
	GuardStrict
)

// ErrWrongMode is returned under GuardStrict when an operation is attempted
// in the wrong link mode.
type ErrWrongMode struct {
	Have Mode
	Want Mode
}

func (e *ErrWrongMode) Error() string {
	return fmt.Sprintf("link is in %s mode, operation requires %s mode", e.Have, e.Want)
}

// Link tracks which bit-mode the transport is in and serializes every mode
// decision. The device always connects in command mode; the machine has no
// terminal state and is rebuilt on reconnect.
type Link struct {
	mu     sync.Mutex
	t      transport.Transport
	mode   Mode
	policy GuardPolicy
}

// NewLink wraps t, which must be freshly connected and therefore in command
// mode.
func NewLink(t transport.Transport, policy GuardPolicy) *Link {
	return &Link{t: t, mode: ModeCommand, policy: policy}
}

// Transport exposes the underlying link for the frame-sync layer. Callers
// must hold the mode they need via Require first.
func (l *Link) Transport() transport.Transport { return l.t }

// Mode returns the current link mode.
func (l *Link) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Transition switches the link to the target mode: purge, set bit-mode,
// purge again so no in-flight bytes from the old mode survive. A no-op when
// already in the target mode.
func (l *Link) Transition(target Mode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transitionLocked(target)
}

func (l *Link) transitionLocked(target Mode) error {
	if l.mode == target {
		return nil
	}
	if err := l.t.Purge(); err != nil {
		return fmt.Errorf("purge before %s transition: %w", target, err)
	}
	if err := l.t.SetBitMode(target.bitMode()); err != nil {
		return fmt.Errorf("enter %s mode: %w", target, err)
	}
	if err := l.t.Purge(); err != nil {
		return fmt.Errorf("purge after %s transition: %w", target, err)
	}
	l.mode = target
	monitoring.Logf("link: switched to %s mode", target)
	return nil
}

// Require enforces the mode guard for an operation. Under GuardStrict a
// mismatch returns ErrWrongMode; under GuardPermissive the link transitions
// to the required mode first and logs the correction.
func (l *Link) Require(want Mode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode == want {
		return nil
	}
	if l.policy == GuardStrict {
		return &ErrWrongMode{Have: l.mode, Want: want}
	}
	monitoring.Logf("link: operation needs %s mode but link is in %s mode, switching", want, l.mode)
	return l.transitionLocked(want)
}

// Purge flushes the transport buffers without changing mode.
func (l *Link) Purge() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.t.Purge()
}

// Close closes the underlying transport.
func (l *Link) Close() error { return l.t.Close() }
