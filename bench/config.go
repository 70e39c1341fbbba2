package bench

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/arloliu/go-benchio/device/thermometer"
	"github.com/arloliu/go-benchio/logger"
)

// EnvPrefix prefixes environment variables overriding the bench file, e.g.
// BENCH_GAUGE_PORT or BENCH_LOG_LEVEL.
const EnvPrefix = "BENCH"

// Config is the layout of a bench: one section per instrument plus logging.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Emulator    EmulatorConfig    `mapstructure:"emulator"`
	Chamber     ChamberConfig     `mapstructure:"chamber"`
	Gauge       InstrumentConfig  `mapstructure:"gauge"`
	Regulator   RegulatorConfig   `mapstructure:"regulator"`
	Thermostat  ThermostatConfig  `mapstructure:"thermostat"`
	Thermometer ThermometerConfig `mapstructure:"thermometer"`
	Dynamometer DynamometerConfig `mapstructure:"dynamometer"`
}

// InstrumentConfig is shared by every instrument section.
type InstrumentConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Emulate replaces the instrument with its emulator.
	Emulate bool `mapstructure:"emulate"`
	// Port is a serial port name or a VVVV:PPPP[:serial] USB identifier.
	Port        string        `mapstructure:"port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type ChamberConfig struct {
	InstrumentConfig `mapstructure:",squash"`
	Address          uint16 `mapstructure:"address"`
}

type RegulatorConfig struct {
	InstrumentConfig `mapstructure:",squash"`
	// FullScale is the pressure in MPa at the top raw count.
	FullScale float64 `mapstructure:"full_scale"`
}

type ThermostatConfig struct {
	InstrumentConfig `mapstructure:",squash"`
	Address          string        `mapstructure:"address"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	PowerTimeout     time.Duration `mapstructure:"power_timeout"`
}

type ThermometerConfig struct {
	InstrumentConfig `mapstructure:",squash"`
	// Variant is "serial" or "hid".
	Variant string `mapstructure:"variant"`
}

type DynamometerConfig struct {
	InstrumentConfig `mapstructure:",squash"`
	MaxBadFrames     int `mapstructure:"max_bad_frames"`
}

// EmulatorConfig tunes every emulated instrument.
type EmulatorConfig struct {
	Delay time.Duration `mapstructure:"delay"`
	// Noise is the amplitude of the uniform noise added to emulated readings,
	// in the unit of each reading.
	Noise float64 `mapstructure:"noise"`
}

// LogConfig selects the logging backend of the bench.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// Backend is "slog" or "zap".
	Backend string `mapstructure:"backend"`
	// Console switches to human readable output.
	Console bool          `mapstructure:"console"`
	File    LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotated log file when Path is set.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// LoadConfig reads the bench configuration from path, or from bench.yaml in
// the working directory when path is empty. A missing default file is not an
// error; environment variables and defaults still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bench")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("bench: read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("bench: decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.backend", "slog")
	v.SetDefault("log.console", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size", 50)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("emulator.delay", "300ms")
	v.SetDefault("emulator.noise", 0.0)

	for _, name := range []string{"chamber", "gauge", "regulator", "thermostat", "thermometer", "dynamometer"} {
		v.SetDefault(name+".enabled", false)
		v.SetDefault(name+".emulate", false)
		v.SetDefault(name+".port", "")
		v.SetDefault(name+".read_timeout", "0s")
	}

	v.SetDefault("chamber.address", 1)
	v.SetDefault("regulator.full_scale", 0.9)
	v.SetDefault("thermostat.address", "")
	v.SetDefault("thermostat.poll_interval", "0s")
	v.SetDefault("thermostat.power_timeout", "0s")
	v.SetDefault("thermometer.variant", "serial")
	v.SetDefault("dynamometer.max_bad_frames", 8)
}

// Validate checks the settings that are not validated by the drivers.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("bench: log.level: %w", err)
	}

	switch strings.ToLower(c.Log.Backend) {
	case "slog", "zap":
	default:
		return fmt.Errorf("bench: log.backend %q must be slog or zap", c.Log.Backend)
	}

	if _, err := thermometer.ParseVariant(c.Thermometer.Variant); err != nil {
		return fmt.Errorf("bench: thermometer.variant: %w", err)
	}

	if c.Emulator.Delay < 0 {
		return fmt.Errorf("bench: emulator.delay %v must not be negative", c.Emulator.Delay)
	}

	return nil
}
