package thermostat

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

const (
	DefaultReadTimeout  = 1 * time.Second
	DefaultOpenDelay    = 300 * time.Millisecond
	DefaultPollInterval = 200 * time.Millisecond
	DefaultPowerTimeout = 10 * time.Second
)

// Option is a functional option for configuring a Driver.
type Option interface {
	apply(*Driver) error
}

type optFunc func(*Driver) error

func (f optFunc) apply(d *Driver) error { return f(d) }

// WithOpener replaces the HID opener.
func WithOpener(o transport.Opener) Option {
	return optFunc(func(d *Driver) error {
		if o == nil {
			return errors.New("thermostat: opener must not be nil")
		}
		d.opener = o

		return nil
	})
}

// WithAddress sets the network address, normally the serial number of the
// thermostat. The default is the broadcast address.
func WithAddress(addr string) Option {
	return optFunc(func(d *Driver) error {
		if !validAddress(addr) {
			return fmt.Errorf("thermostat: address %q must be 1 to 8 characters of [0-9A-Za-z]", addr)
		}
		d.address = addr

		return nil
	})
}

// WithReadTimeout sets how long the driver waits for a response report.
func WithReadTimeout(t time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if t < time.Millisecond || t > time.Minute {
			return fmt.Errorf("thermostat: read timeout %v out of range [1ms, 1m]", t)
		}
		d.readTimeout = t

		return nil
	})
}

// WithOpenDelay sets the pause before every open. The thermostat needs it
// after re-enumerating on the bus.
func WithOpenDelay(t time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if t < 0 {
			return fmt.Errorf("thermostat: open delay %v must not be negative", t)
		}
		d.openDelay = t

		return nil
	})
}

// WithPowerPolling sets the pause between power state polls and the overall
// deadline of TurnOn and TurnOff.
func WithPowerPolling(interval, timeout time.Duration) Option {
	return optFunc(func(d *Driver) error {
		if interval <= 0 || timeout < interval {
			return fmt.Errorf("thermostat: invalid power polling interval %v, timeout %v", interval, timeout)
		}
		d.pollInterval = interval
		d.powerTimeout = timeout

		return nil
	})
}

// WithLogger sets the logger of the driver.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(d *Driver) error {
		if l == nil {
			return errors.New("thermostat: logger must not be nil")
		}
		d.logger = l

		return nil
	})
}

func validAddress(s string) bool {
	if len(s) == 0 || len(s) > 8 {
		return false
	}
	for _, c := range s {
		if !('0' <= c && c <= '9' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z') {
			return false
		}
	}

	return true
}
