package dynamometer

import (
	"context"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
)

// DefaultEmulatorDelay is the simulated interval between samples.
const DefaultEmulatorDelay = 300 * time.Millisecond

// ForceFunc returns the emulated force in newtons at t.
type ForceFunc func(t time.Time) float64

// Emulator stands in for a dynamometer displaying kilonewtons with three
// decimals on the 10 kN range. Forces beyond the range are reported as overloads.
type Emulator struct {
	delay time.Duration
	force ForceFunc
	noise float64
	now   func() time.Time
}

var _ instr.ForceMeter = (*Emulator)(nil)

const (
	emulatorRangeCode = 0x06
	emulatorDecimals  = 3
)

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithDelay sets the simulated interval between samples.
func WithDelay(d time.Duration) EmulatorOption {
	return func(e *Emulator) { e.delay = d }
}

// WithForceFunc sets the function producing emulated forces.
func WithForceFunc(f ForceFunc) EmulatorOption {
	return func(e *Emulator) {
		if f != nil {
			e.force = f
		}
	}
}

// WithNoise adds uniform noise in [-eps, eps) N to every sample.
func WithNoise(eps float64) EmulatorOption {
	return func(e *Emulator) { e.noise = eps }
}

// NewEmulator creates a dynamometer emulator reporting 0 N.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		delay: DefaultEmulatorDelay,
		force: func(time.Time) float64 { return 0 },
		now:   time.Now,
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

// ReadForce returns the next emulated sample, quantized through the frame
// encoding the real instrument uses.
func (e *Emulator) ReadForce(ctx context.Context) (instr.ForceReading, error) {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return instr.ForceReading{}, err
	}

	at := e.now()
	full := RangeFromCode(emulatorRangeCode)
	v := e.force(at) + util.Noise(e.noise)
	overload := v > full || v < -full
	if overload {
		v = min(max(v, -full), full)
	}

	b, err := EncodeFrame(Frame{Value: v / 1000, Unit: UnitKilonewton, Overload: overload, RangeCode: emulatorRangeCode, Decimals: emulatorDecimals})
	if err != nil {
		return instr.ForceReading{}, err
	}
	f, err := DecodeFrame(b)
	if err != nil {
		return instr.ForceReading{}, err
	}

	return instr.ForceReading{Force: f.Newtons(), Overload: f.Overload, Range: full, At: at}, nil
}
