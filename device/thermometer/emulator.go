package thermometer

import (
	"context"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
)

// DefaultEmulatorDelay is the simulated latency of every emulator operation.
const DefaultEmulatorDelay = 300 * time.Millisecond

// TemperatureFunc returns the emulated temperature in °C at t.
type TemperatureFunc func(t time.Time) float64

// Emulator stands in for a thermometer. It reports a Pt100 resistance
// matching the emulated temperature, which defaults to 20 °C.
type Emulator struct {
	delay       time.Duration
	temperature TemperatureFunc
	noise       float64
}

var _ instr.Thermometer = (*Emulator)(nil)

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithDelay sets the simulated latency.
func WithDelay(d time.Duration) EmulatorOption {
	return func(e *Emulator) { e.delay = d }
}

// WithTemperatureFunc sets the function producing emulated temperatures.
func WithTemperatureFunc(f TemperatureFunc) EmulatorOption {
	return func(e *Emulator) {
		if f != nil {
			e.temperature = f
		}
	}
}

// WithNoise adds uniform noise in [-eps, eps) °C to every reading.
func WithNoise(eps float64) EmulatorOption {
	return func(e *Emulator) { e.noise = eps }
}

// NewEmulator creates a thermometer emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		delay:       DefaultEmulatorDelay,
		temperature: func(time.Time) float64 { return 20 },
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

// Read returns the emulated reading, quantized the way the thermometer
// prints it.
func (e *Emulator) Read(ctx context.Context) (instr.ThermometerReading, error) {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return instr.ThermometerReading{}, err
	}

	t := e.temperature(time.Now()) + util.Noise(e.noise)

	return ParseReading(FormatReading(instr.ThermometerReading{Resistance: instr.Pt100(t), Temperature: t}))
}
