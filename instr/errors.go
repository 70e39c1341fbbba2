package instr

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by transports, codecs, readers and drivers.
//
// Drivers add context such as the device and command name with fmt.Errorf and %w,
// so callers should always test the kind with errors.Is.
var (
	// ErrOpen indicates that the transport could not be acquired.
	ErrOpen = errors.New("benchio: open failed")

	// ErrIO indicates that a write or read on an open transport failed.
	ErrIO = errors.New("benchio: i/o failure")

	// ErrNotOpen indicates that an operation was issued on a handle that is not open.
	ErrNotOpen = errors.New("benchio: transport not open")

	// ErrTimeout indicates that no response arrived within the deadline.
	ErrTimeout = errors.New("benchio: timeout")

	// ErrIncompletePacket indicates that the stream ended before the packet was complete.
	ErrIncompletePacket = errors.New("benchio: incomplete packet")

	// ErrFrame indicates that checksum or structural validation of a packet failed.
	ErrFrame = errors.New("benchio: frame error")

	// ErrProtocolStatus indicates that the remote device answered with a non-success status.
	// The concrete error is a *StatusError carrying the fault category.
	ErrProtocolStatus = errors.New("benchio: device status error")

	// ErrRange indicates that a caller-supplied value is outside the device's representable domain.
	ErrRange = errors.New("benchio: value out of range")

	// ErrCancelled indicates that the operation was aborted through its context.
	ErrCancelled = errors.New("benchio: cancelled")
)

// Fault is the category of a non-success status reported by a device.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultBadRequest
	FaultBadValue
	FaultUnknownAddress
	FaultUnknownOperation
	FaultOutOfRange
	FaultUnavailableWhileOff
	FaultUnknownStatus
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultBadRequest:
		return "malformed request"
	case FaultBadValue:
		return "malformed value"
	case FaultUnknownAddress:
		return "unknown address"
	case FaultUnknownOperation:
		return "unknown operation"
	case FaultOutOfRange:
		return "value out of range"
	case FaultUnavailableWhileOff:
		return "unavailable while powered off"
	default:
		return "unknown status"
	}
}

// StatusError is returned when a device rejects a request with a status code.
type StatusError struct {
	// Code is the raw status code as sent by the device.
	Code uint8
	// Fault is the category the code maps to.
	Fault Fault
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("benchio: device status 0x%02X: %s", e.Code, e.Fault)
}

// Is reports whether target is ErrProtocolStatus, so that errors.Is works on
// wrapped status errors without unwrapping to a concrete type.
func (e *StatusError) Is(target error) bool {
	return target == ErrProtocolStatus
}

// IsFault reports whether err carries a *StatusError with the given fault.
func IsFault(err error, fault Fault) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Fault == fault
	}

	return false
}

// CtxErr maps a finished context to ErrCancelled, keeping the context cause
// reachable through errors.Is.
func CtxErr(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
