package monitoring

import (
	"testing"
	"time"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not reach the previous sink")
	}
}

func TestThrottled(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	warn := Throttled(time.Hour)
	warn("capture failed: %v", "fault")
	warn("capture failed: %v", "fault")
	warn("capture failed: %v", "fault")

	if len(lines) != 1 {
		t.Fatalf("expected 1 line within the interval, got %d: %v", len(lines), lines)
	}
}

func TestThrottledReportsSuppressed(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	warn := Throttled(10 * time.Millisecond)
	warn("first")
	warn("dropped")
	warn("dropped")
	time.Sleep(15 * time.Millisecond)
	warn("second")

	want := []string{"first", "(%d similar messages suppressed)", "second"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}
