package chamber

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

const (
	// BaudRate is the line speed of the chamber controller, 8N1.
	BaudRate = 115200

	DefaultByteTimeout = 1 * time.Second
	MinByteTimeout     = 10 * time.Millisecond
	MaxByteTimeout     = 10 * time.Second
)

// Option is a functional option for configuring a Driver.
type Option interface {
	apply(*Driver) error
}

type optFunc func(*Driver) error

func (f optFunc) apply(d *Driver) error { return f(d) }

// WithOpener replaces the serial opener, e.g. with an in-memory port.
func WithOpener(o transport.Opener) Option {
	return optFunc(func(d *Driver) error {
		if o == nil {
			return errors.New("chamber: opener must not be nil")
		}
		d.opener = o

		return nil
	})
}

// WithAddress sets the bus address of the chamber. The default is 1.
func WithAddress(addr uint16) Option {
	return optFunc(func(d *Driver) error {
		d.address = addr
		return nil
	})
}

// WithByteTimeout sets how long the driver waits for each response byte.
func WithByteTimeout(t time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if t < MinByteTimeout || t > MaxByteTimeout {
			return fmt.Errorf("chamber: byte timeout %v out of range [%v, %v]", t, MinByteTimeout, MaxByteTimeout)
		}
		d.byteTimeout = t

		return nil
	})
}

// WithLogger sets the logger of the driver.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(d *Driver) error {
		if l == nil {
			return errors.New("chamber: logger must not be nil")
		}
		d.logger = l

		return nil
	})
}
