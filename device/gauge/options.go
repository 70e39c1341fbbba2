package gauge

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

const (
	// BaudRate is the line speed of the gauge, 8N1.
	BaudRate = 9600

	DefaultReadTimeout = 500 * time.Millisecond
	MinReadTimeout     = 10 * time.Millisecond
	MaxReadTimeout     = 10 * time.Second
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
			return errors.New("gauge: opener must not be nil")
		}
		d.opener = o

		return nil
	})
}

// WithReadTimeout sets the idle timeout between response bytes.
func WithReadTimeout(t time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if t < MinReadTimeout || t > MaxReadTimeout {
			return fmt.Errorf("gauge: read timeout %v out of range [%v, %v]", t, MinReadTimeout, MaxReadTimeout)
		}
		d.readTimeout = t

		return nil
	})
}

// WithLogger sets the logger of the driver.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(d *Driver) error {
		if l == nil {
			return errors.New("gauge: logger must not be nil")
		}
		d.logger = l

		return nil
	})
}
