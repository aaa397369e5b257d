package tau2

import "time"

// Every command exchange shares the same cross-cutting behaviour: flush the
// transport buffers around the call, hold the link in command mode, pace the
// next command. That behaviour is an explicit middleware chain over a single
// exchange handler, applied in a fixed order independent of which command is
// being dispatched.

// Request is one command exchange: a catalog descriptor plus its argument
// bytes (nil for argument-less commands).
type Request struct {
	Cmd Command
	Arg []byte
}

// Handler performs one exchange against the link.
type Handler func(*Link, Request) (*Response, error)

// Middleware wraps a Handler with one pipeline stage.
type Middleware func(Handler) Handler

// Chain applies middleware so that the first element is the outermost stage.
func Chain(h Handler, stages ...Middleware) Handler {
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return h
}

// FlushAround purges the transport buffers before and after the exchange,
// so a stale partial reply can never be mistaken for the next response.
func FlushAround() Middleware {
	return func(next Handler) Handler {
		return func(l *Link, req Request) (*Response, error) {
			if err := l.Purge(); err != nil {
				return nil, err
			}
			resp, err := next(l, req)
			if perr := l.Purge(); perr != nil && err == nil {
				err = perr
			}
			return resp, err
		}
	}
}

// ModeGuard asserts the link is in the mode the operation needs, applying
// the link's guard policy on mismatch.
func ModeGuard(want Mode) Middleware {
	return func(next Handler) Handler {
		return func(l *Link, req Request) (*Response, error) {
			if err := l.Require(want); err != nil {
				return nil, err
			}
			return next(l, req)
		}
	}
}

// SettleDelay sleeps after the exchange to give the camera firmware time to
// commit the command before the next one arrives. Pacing lives here, not in
// the codec.
func SettleDelay(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(l *Link, req Request) (*Response, error) {
			resp, err := next(l, req)
			if d > 0 {
				time.Sleep(d)
			}
			return resp, err
		}
	}
}
