package thermometer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

// Variant selects the link to the thermometer.
type Variant int

const (
	// VariantSerial talks to the RS-232 output, usually through a USB adapter.
	VariantSerial Variant = iota
	// VariantHID talks to the built-in USB-HID interface.
	VariantHID
)

func (v Variant) String() string {
	switch v {
	case VariantSerial:
		return "serial"
	case VariantHID:
		return "hid"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant converts "serial" or "hid" to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "serial":
		return VariantSerial, nil
	case "hid":
		return VariantHID, nil
	default:
		return VariantSerial, fmt.Errorf("thermometer: unknown variant %q", s)
	}
}

const (
	// BaudRate is the line speed of the serial variant, 8N1.
	BaudRate = 4800

	DefaultSerialTimeout = 2 * time.Second
	DefaultHIDTimeout    = 1 * time.Second
)

// Option is a functional option for configuring a Driver.
type Option interface {
	apply(*Driver) error
}

type optFunc func(*Driver) error

func (f optFunc) apply(d *Driver) error { return f(d) }

// WithVariant selects the serial or HID link. The default is serial.
func WithVariant(v Variant) Option {
	return optFunc(func(d *Driver) error {
		if v != VariantSerial && v != VariantHID {
			return fmt.Errorf("thermometer: unknown variant %d", int(v))
		}
		d.variant = v

		return nil
	})
}

// WithOpener replaces the opener of the selected variant.
func WithOpener(o transport.Opener) Option {
	return optFunc(func(d *Driver) error {
		if o == nil {
			return errors.New("thermometer: opener must not be nil")
		}
		d.opener = o

		return nil
	})
}

// WithReadTimeout sets how long the driver waits for a reply. It defaults to
// 2s for the serial variant and 1s for HID.
func WithReadTimeout(t time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if t < time.Millisecond || t > time.Minute {
			return fmt.Errorf("thermometer: read timeout %v out of range [1ms, 1m]", t)
		}
		d.readTimeout = t

		return nil
	})
}

// WithLogger sets the logger of the driver.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(d *Driver) error {
		if l == nil {
			return errors.New("thermometer: logger must not be nil")
		}
		d.logger = l

		return nil
	})
}
