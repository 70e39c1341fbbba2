package regulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

const (
	// BaudRate is the line speed of the regulator, 8N1.
	BaudRate = 9600

	DefaultReadTimeout = 1 * time.Second
	MinReadTimeout     = 10 * time.Millisecond
	MaxReadTimeout     = 30 * time.Second

	// MaxLineLen bounds a response line.
	MaxLineLen = 64
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
			return errors.New("regulator: opener must not be nil")
		}
		d.opener = o

		return nil
	})
}

// WithFullScale sets the full-scale output pressure in MPa. The default is 0.9.
func WithFullScale(mpa float64) Option {
	return optFunc(func(d *Driver) error {
		if !(mpa > 0) {
			return fmt.Errorf("regulator: full scale %v MPa must be positive", mpa)
		}
		d.fullScale = mpa

		return nil
	})
}

// WithReadTimeout sets how long the driver waits for a response line.
func WithReadTimeout(t time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if t < MinReadTimeout || t > MaxReadTimeout {
			return fmt.Errorf("regulator: read timeout %v out of range [%v, %v]", t, MinReadTimeout, MaxReadTimeout)
		}
		d.readTimeout = t

		return nil
	})
}

// WithLogger sets the logger of the driver.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(d *Driver) error {
		if l == nil {
			return errors.New("regulator: logger must not be nil")
		}
		d.logger = l

		return nil
	})
}
