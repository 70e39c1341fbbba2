package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-benchio/logger"
)

const (
	DefaultReadTimeout = 1 * time.Second
	DefaultOpenTimeout = 5 * time.Second

	MinReadTimeout = 1 * time.Millisecond
	MaxReadTimeout = 60 * time.Second
)

// Config holds the settings of a Handle.
type Config struct {
	name        string
	readTimeout time.Duration
	openTimeout time.Duration
	logger      logger.Logger
}

// NewConfig creates a Handle configuration. opts are applied in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		name:        "device",
		readTimeout: DefaultReadTimeout,
		openTimeout: DefaultOpenTimeout,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Name returns the device name used in log records.
func (cfg *Config) Name() string { return cfg.name }

// ReadTimeout returns the default idle timeout of the deadline-bounded reads.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// OpenTimeout returns how long Open waits for the opener. Zero means no limit.
func (cfg *Config) OpenTimeout() time.Duration { return cfg.openTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithName sets the device name attached to every log record of the handle.
func WithName(name string) Option {
	return optFunc(func(cfg *Config) error {
		if name == "" {
			return errors.New("transport: name must not be empty")
		}
		cfg.name = name

		return nil
	})
}

// WithReadTimeout sets the idle timeout between bytes for reads that do not
// pass their own timeout. Must be within [1ms, 60s].
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinReadTimeout || d > MaxReadTimeout {
			return fmt.Errorf("transport: read timeout %v out of range [%v, %v]", d, MinReadTimeout, MaxReadTimeout)
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithOpenTimeout limits how long Open waits for the device. Zero disables the limit.
func WithOpenTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return errors.New("transport: open timeout must not be negative")
		}
		cfg.openTimeout = d

		return nil
	})
}

// WithLogger sets the logger of the handle.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
