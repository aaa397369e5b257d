// Package monitoring holds the process-wide diagnostic logger. Camera
// control and acquisition run unattended for hours, so every layer logs
// through one replaceable sink instead of writing to stderr directly.
package monitoring

import (
	"log"
	"sync"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or
// mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Throttled returns a Logf-shaped function that emits at most one message
// per interval and counts the rest. The acquisition loop retries every
// capture window, so a persistent fault would otherwise repeat the same
// line for hours.
func Throttled(interval time.Duration) func(format string, v ...interface{}) {
	var mu sync.Mutex
	var last time.Time
	var dropped int
	return func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		if !last.IsZero() && time.Since(last) < interval {
			dropped++
			return
		}
		if dropped > 0 {
			Logf("(%d similar messages suppressed)", dropped)
			dropped = 0
		}
		last = time.Now()
		Logf(format, v...)
	}
}
