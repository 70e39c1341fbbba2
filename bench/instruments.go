package bench

import (
	"github.com/arloliu/go-benchio/device/chamber"
	"github.com/arloliu/go-benchio/device/dynamometer"
	"github.com/arloliu/go-benchio/device/gauge"
	"github.com/arloliu/go-benchio/device/regulator"
	"github.com/arloliu/go-benchio/device/thermometer"
	"github.com/arloliu/go-benchio/device/thermostat"
	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/logger"
)

func newChamber(cfg *Config, l logger.Logger) (instr.ThermalChamber, error) {
	c := cfg.Chamber
	if c.Emulate {
		return chamber.NewEmulator(chamber.WithDelay(cfg.Emulator.Delay)), nil
	}

	opts := []chamber.Option{chamber.WithLogger(l), chamber.WithAddress(c.Address)}
	if c.ReadTimeout > 0 {
		opts = append(opts, chamber.WithByteTimeout(c.ReadTimeout))
	}

	return chamber.New(opts...)
}

func newGauge(cfg *Config, l logger.Logger) (instr.PressureGauge, error) {
	c := cfg.Gauge
	if c.Emulate {
		return gauge.NewEmulator(gauge.WithDelay(cfg.Emulator.Delay), gauge.WithNoise(cfg.Emulator.Noise)), nil
	}

	opts := []gauge.Option{gauge.WithLogger(l)}
	if c.ReadTimeout > 0 {
		opts = append(opts, gauge.WithReadTimeout(c.ReadTimeout))
	}

	return gauge.New(opts...)
}

func newRegulator(cfg *Config, l logger.Logger) (instr.PressureRegulator, error) {
	c := cfg.Regulator
	if c.Emulate {
		eopts := []regulator.EmulatorOption{
			regulator.WithDelay(cfg.Emulator.Delay),
			regulator.WithNoise(cfg.Emulator.Noise),
		}
		if c.FullScale > 0 {
			eopts = append(eopts, regulator.WithEmulatedFullScale(c.FullScale))
		}

		return regulator.NewEmulator(eopts...), nil
	}

	opts := []regulator.Option{regulator.WithLogger(l)}
	if c.FullScale > 0 {
		opts = append(opts, regulator.WithFullScale(c.FullScale))
	}
	if c.ReadTimeout > 0 {
		opts = append(opts, regulator.WithReadTimeout(c.ReadTimeout))
	}

	return regulator.New(opts...)
}

func newThermostat(cfg *Config, l logger.Logger) (instr.Thermostat, error) {
	c := cfg.Thermostat
	if c.Emulate {
		return thermostat.NewEmulator(thermostat.WithDelay(cfg.Emulator.Delay), thermostat.WithNoise(cfg.Emulator.Noise)), nil
	}

	opts := []thermostat.Option{thermostat.WithLogger(l)}
	if c.Address != "" {
		opts = append(opts, thermostat.WithAddress(c.Address))
	}
	if c.ReadTimeout > 0 {
		opts = append(opts, thermostat.WithReadTimeout(c.ReadTimeout))
	}
	if c.PollInterval > 0 || c.PowerTimeout > 0 {
		interval, timeout := thermostat.DefaultPollInterval, thermostat.DefaultPowerTimeout
		if c.PollInterval > 0 {
			interval = c.PollInterval
		}
		if c.PowerTimeout > 0 {
			timeout = c.PowerTimeout
		}
		opts = append(opts, thermostat.WithPowerPolling(interval, timeout))
	}

	return thermostat.New(opts...)
}

func newThermometer(cfg *Config, l logger.Logger) (instr.Thermometer, error) {
	c := cfg.Thermometer
	if c.Emulate {
		return thermometer.NewEmulator(thermometer.WithDelay(cfg.Emulator.Delay), thermometer.WithNoise(cfg.Emulator.Noise)), nil
	}

	variant, err := thermometer.ParseVariant(c.Variant)
	if err != nil {
		return nil, err
	}

	opts := []thermometer.Option{thermometer.WithLogger(l), thermometer.WithVariant(variant)}
	if c.ReadTimeout > 0 {
		opts = append(opts, thermometer.WithReadTimeout(c.ReadTimeout))
	}

	return thermometer.New(opts...)
}

func newDynamometer(cfg *Config, l logger.Logger) (instr.ForceMeter, error) {
	c := cfg.Dynamometer
	if c.Emulate {
		return dynamometer.NewEmulator(dynamometer.WithDelay(cfg.Emulator.Delay), dynamometer.WithNoise(cfg.Emulator.Noise)), nil
	}

	opts := []dynamometer.Option{dynamometer.WithLogger(l), dynamometer.WithMaxBadFrames(c.MaxBadFrames)}
	if c.ReadTimeout > 0 {
		opts = append(opts, dynamometer.WithReadTimeout(c.ReadTimeout))
	}

	return dynamometer.New(opts...)
}
