package tau2

import "fmt"

// Status is the camera status byte carried in every response packet.
// Values are taken from the Tau 2 Software IDD status code table.
type Status byte

const (
	StatusOK                     Status = 0x00
	StatusNotReady               Status = 0x02
	StatusRangeError             Status = 0x03
	StatusUndefinedError         Status = 0x04
	StatusUndefinedProcessError  Status = 0x05
	StatusUndefinedFunctionError Status = 0x06
	StatusTimeoutError           Status = 0x07
	StatusByteCountError         Status = 0x09
	StatusFeatureNotEnabled      Status = 0x0A
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotReady:
		return "camera not ready"
	case StatusRangeError:
		return "range error"
	case StatusUndefinedError:
		return "undefined error"
	case StatusUndefinedProcessError:
		return "undefined process"
	case StatusUndefinedFunctionError:
		return "undefined function"
	case StatusTimeoutError:
		return "camera timeout"
	case StatusByteCountError:
		return "byte count error"
	case StatusFeatureNotEnabled:
		return "feature not enabled"
	default:
		return fmt.Sprintf("unknown status 0x%02X", byte(s))
	}
}

// Retryable reports whether a command that failed with this status is worth
// re-issuing unchanged. Range and feature errors indicate a configuration
// problem that a retry cannot fix.
func (s Status) Retryable() bool {
	switch s {
	case StatusNotReady, StatusTimeoutError:
		return true
	default:
		return false
	}
}

// StatusError is returned when a response parses structurally but the camera
// reports a non-OK status. Reply holds any argument bytes that came with the
// failed response; they are kept for diagnostics only and must not be
// interpreted as valid data.
type StatusError struct {
	Op     string
	Status Status
	Reply  []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: camera status: %s (0x%02X)", e.Op, e.Status, byte(e.Status))
}
