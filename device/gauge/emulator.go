package gauge

import (
	"context"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
)

// DefaultEmulatorDelay is the simulated latency of every emulator operation.
const DefaultEmulatorDelay = 300 * time.Millisecond

// PressureFunc returns the emulated pressure in pascals at t.
type PressureFunc func(t time.Time) float64

// Emulator stands in for a pressure gauge. By default it reports the current
// second of the minute as pascals.
type Emulator struct {
	delay    time.Duration
	pressure PressureFunc
	noise    float64
	now      func() time.Time
}

var _ instr.PressureGauge = (*Emulator)(nil)

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithDelay sets the simulated latency.
func WithDelay(d time.Duration) EmulatorOption {
	return func(e *Emulator) { e.delay = d }
}

// WithPressureFunc sets the function producing emulated pressures.
func WithPressureFunc(f PressureFunc) EmulatorOption {
	return func(e *Emulator) {
		if f != nil {
			e.pressure = f
		}
	}
}

// WithNoise adds uniform noise in [-eps, eps) Pa to every reading.
func WithNoise(eps float64) EmulatorOption {
	return func(e *Emulator) { e.noise = eps }
}

// NewEmulator creates a gauge emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		delay:    DefaultEmulatorDelay,
		pressure: func(t time.Time) float64 { return float64(t.Second()) },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Emulator) Open(ctx context.Context, _ string) error {
	return util.Sleep(ctx, e.delay)
}

func (e *Emulator) Close() error { return nil }

func (e *Emulator) GetPressure(ctx context.Context) (instr.Reading, error) {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return instr.Reading{}, err
	}

	rec, err := EncodeRecord(instr.Reading{Value: e.pressure(e.now()) + util.Noise(e.noise), Unit: instr.UnitPascal})
	if err != nil {
		return instr.Reading{}, err
	}

	return DecodeRecord(rec)
}
