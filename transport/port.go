package transport

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Port is an open byte channel to a device.
//
// Read must return (0, nil) when no data arrived within the port's poll
// interval, and io.EOF once the remote end is gone.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// Discarder is implemented by ports that can drop pending input and output.
type Discarder interface {
	Discard() error
}

// ContextReader is implemented by ports whose reads can be interrupted by a context.
type ContextReader interface {
	ReadContext(ctx context.Context, b []byte) (int, error)
}

// Opener acquires the Port named by id.
//
// Open may block; Handle runs it on its own goroutine so that callers can
// abandon it through their context.
type Opener interface {
	Open(ctx context.Context, id string) (Port, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, id string) (Port, error)

func (f OpenerFunc) Open(ctx context.Context, id string) (Port, error) { return f(ctx, id) }

// USBID identifies a USB device by vendor and product ID, optionally narrowed
// by serial number.
type USBID struct {
	VID    uint16
	PID    uint16
	Serial string
}

func (u USBID) String() string {
	s := fmt.Sprintf("%04X:%04X", u.VID, u.PID)
	if u.Serial != "" {
		s += ":" + u.Serial
	}

	return s
}

// ParseUSBID parses "VVVV:PPPP" or "VVVV:PPPP:SERIAL" with hexadecimal IDs.
func ParseUSBID(s string) (USBID, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return USBID{}, fmt.Errorf("transport: invalid USB id %q, want VVVV:PPPP", s)
	}

	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("transport: invalid vendor id in %q: %w", s, err)
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("transport: invalid product id in %q: %w", s, err)
	}

	id := USBID{VID: uint16(vid), PID: uint16(pid)}
	if len(parts) == 3 {
		id.Serial = parts[2]
	}

	return id, nil
}
