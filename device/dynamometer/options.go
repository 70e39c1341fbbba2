package dynamometer

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

const (
	// BaudRate is the line speed of the instrument, 8N1.
	BaudRate = 2400

	DefaultReadTimeout  = 2 * time.Second
	DefaultMaxBadFrames = 8
)

// Option is a functional option for configuring a Driver.
type Option interface {
	apply(*Driver) error
}

type optFunc func(*Driver) error

func (f optFunc) apply(d *Driver) error { return f(d) }

// WithOpener replaces the serial opener.
func WithOpener(o transport.Opener) Option {
	return optFunc(func(d *Driver) error {
		if o == nil {
			return errors.New("dynamometer: opener must not be nil")
		}
		d.opener = o

		return nil
	})
}

// WithReadTimeout sets how long ReadForce waits on a silent line.
func WithReadTimeout(t time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if t < time.Millisecond || t > time.Minute {
			return fmt.Errorf("dynamometer: read timeout %v out of range [1ms, 1m]", t)
		}
		d.readTimeout = t

		return nil
	})
}

// WithMaxBadFrames sets how many undecodable frames ReadForce skips before
// giving up.
func WithMaxBadFrames(n int) Option {
	return optFunc(func(d *Driver) error {
		if n < 0 {
			return fmt.Errorf("dynamometer: max bad frames %d must not be negative", n)
		}
		d.maxBadFrames = n

		return nil
	})
}

// WithLogger sets the logger of the driver.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(d *Driver) error {
		if l == nil {
			return errors.New("dynamometer: logger must not be nil")
		}
		d.logger = l

		return nil
	})
}
