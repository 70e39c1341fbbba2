// Package bench assembles the instruments of a calibration bench from a
// Config, choosing for each one the hardware driver or its emulator.
package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/logger"
)

// Bench holds the enabled instruments. Disabled instruments are nil.
type Bench struct {
	Chamber     instr.ThermalChamber
	Gauge       instr.PressureGauge
	Regulator   instr.PressureRegulator
	Thermostat  instr.Thermostat
	Thermometer instr.Thermometer
	Dynamometer instr.ForceMeter

	cfg    *Config
	logger logger.Logger

	mu     sync.Mutex
	opened []member
}

type member struct {
	name string
	port string
	inst instr.Instrument
}

// New creates the instruments enabled in cfg without opening them.
func New(cfg *Config, l logger.Logger) (*Bench, error) {
	if cfg == nil {
		return nil, errors.New("bench: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.GetLogger()
	}

	b := &Bench{cfg: cfg, logger: l.With("component", "bench")}

	var err error
	if cfg.Chamber.Enabled {
		if b.Chamber, err = newChamber(cfg, l); err != nil {
			return nil, err
		}
	}
	if cfg.Gauge.Enabled {
		if b.Gauge, err = newGauge(cfg, l); err != nil {
			return nil, err
		}
	}
	if cfg.Regulator.Enabled {
		if b.Regulator, err = newRegulator(cfg, l); err != nil {
			return nil, err
		}
	}
	if cfg.Thermostat.Enabled {
		if b.Thermostat, err = newThermostat(cfg, l); err != nil {
			return nil, err
		}
	}
	if cfg.Thermometer.Enabled {
		if b.Thermometer, err = newThermometer(cfg, l); err != nil {
			return nil, err
		}
	}
	if cfg.Dynamometer.Enabled {
		if b.Dynamometer, err = newDynamometer(cfg, l); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (b *Bench) members() []member {
	var out []member
	add := func(name string, ic InstrumentConfig, inst instr.Instrument) {
		out = append(out, member{name: name, port: ic.Port, inst: inst})
	}

	if b.Chamber != nil {
		add("chamber", b.cfg.Chamber.InstrumentConfig, b.Chamber)
	}
	if b.Gauge != nil {
		add("gauge", b.cfg.Gauge, b.Gauge)
	}
	if b.Regulator != nil {
		add("regulator", b.cfg.Regulator.InstrumentConfig, b.Regulator)
	}
	if b.Thermostat != nil {
		add("thermostat", b.cfg.Thermostat.InstrumentConfig, b.Thermostat)
	}
	if b.Thermometer != nil {
		add("thermometer", b.cfg.Thermometer.InstrumentConfig, b.Thermometer)
	}
	if b.Dynamometer != nil {
		add("dynamometer", b.cfg.Dynamometer.InstrumentConfig, b.Dynamometer)
	}

	return out
}

// Names returns the names of the enabled instruments.
func (b *Bench) Names() []string {
	var names []string
	for _, m := range b.members() {
		names = append(names, m.name)
	}

	return names
}

// Open opens every enabled instrument on its configured port. When one fails,
// the instruments already opened are closed again.
func (b *Bench) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range b.members() {
		if err := m.inst.Open(ctx, m.port); err != nil {
			b.closeLocked()
			return fmt.Errorf("bench: open %s: %w", m.name, err)
		}
		b.opened = append(b.opened, m)
		b.logger.Info("instrument opened", "instrument", m.name, "port", m.port)
	}

	return nil
}

// Close closes the opened instruments in reverse order.
func (b *Bench) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closeLocked()
}

func (b *Bench) closeLocked() error {
	var errs []error
	for i := len(b.opened) - 1; i >= 0; i-- {
		m := b.opened[i]
		if err := m.inst.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bench: close %s: %w", m.name, err))
		}
	}
	b.opened = nil

	return errors.Join(errs...)
}

// Snapshot is one reading of every enabled instrument. Fields of disabled
// instruments are nil.
type Snapshot struct {
	At                time.Time
	Chamber           *instr.ChamberState
	GaugePressure     *instr.Reading
	RegulatorPressure *instr.Reading
	BathTemperature   *instr.Reading
	Thermometer       *instr.ThermometerReading
	Force             *instr.ForceReading
}

// Snapshot reads every enabled instrument concurrently. Readings that
// succeed are returned even when others fail; the failures are joined in the
// returned error.
func (b *Bench) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{At: time.Now()}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	read := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("bench: read %s: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	if b.Chamber != nil {
		read("chamber", func() error {
			s, err := b.Chamber.GetCurrentParams(ctx)
			if err == nil {
				snap.Chamber = &s
			}
			return err
		})
	}
	if b.Gauge != nil {
		read("gauge", func() error {
			r, err := b.Gauge.GetPressure(ctx)
			if err == nil {
				snap.GaugePressure = &r
			}
			return err
		})
	}
	if b.Regulator != nil {
		read("regulator", func() error {
			r, err := b.Regulator.GetPressure(ctx)
			if err == nil {
				snap.RegulatorPressure = &r
			}
			return err
		})
	}
	if b.Thermostat != nil {
		read("thermostat", func() error {
			r, err := b.Thermostat.GetTemperature(ctx)
			if err == nil {
				snap.BathTemperature = &r
			}
			return err
		})
	}
	if b.Thermometer != nil {
		read("thermometer", func() error {
			r, err := b.Thermometer.Read(ctx)
			if err == nil {
				snap.Thermometer = &r
			}
			return err
		})
	}
	if b.Dynamometer != nil {
		read("dynamometer", func() error {
			r, err := b.Dynamometer.ReadForce(ctx)
			if err == nil {
				snap.Force = &r
			}
			return err
		})
	}

	wg.Wait()

	return snap, errors.Join(errs...)
}
