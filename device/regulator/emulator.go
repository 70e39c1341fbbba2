package regulator

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
)

const (
	// DefaultEmulatorDelay is the simulated latency of every emulator operation.
	DefaultEmulatorDelay = 5 * time.Millisecond
	// DefaultEmulatorPressure is the output pressure an emulator starts at, in MPa.
	DefaultEmulatorPressure = 0.8
)

// Emulator stands in for a regulator. It holds a raw set-point code and
// reports it back as both the set-point and the measured output.
type Emulator struct {
	delay     time.Duration
	fullScale float64
	noise     float64

	mu   sync.Mutex
	code int
}

var _ instr.PressureRegulator = (*Emulator)(nil)

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithDelay sets the simulated latency.
func WithDelay(d time.Duration) EmulatorOption {
	return func(e *Emulator) { e.delay = d }
}

// WithEmulatedFullScale sets the emulated full-scale pressure in MPa.
func WithEmulatedFullScale(mpa float64) EmulatorOption {
	return func(e *Emulator) {
		if mpa > 0 {
			e.fullScale = mpa
		}
	}
}

// WithNoise adds uniform noise in [-eps, eps) MPa to the measured output.
func WithNoise(eps float64) EmulatorOption {
	return func(e *Emulator) { e.noise = eps }
}

// NewEmulator creates a regulator emulator holding DefaultEmulatorPressure.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{delay: DefaultEmulatorDelay, fullScale: DefaultFullScale}
	for _, opt := range opts {
		opt(e)
	}
	e.code, _ = EncodePressure(DefaultEmulatorPressure, e.fullScale)

	return e
}

func (e *Emulator) Open(ctx context.Context, _ string) error {
	return util.Sleep(ctx, e.delay)
}

func (e *Emulator) Close() error { return nil }

func (e *Emulator) GetPressure(ctx context.Context) (instr.Reading, error) {
	r, err := e.ConfirmPressure(ctx)
	if err != nil {
		return r, err
	}
	r.Value += util.Noise(e.noise)

	return r, nil
}

func (e *Emulator) SetPressure(ctx context.Context, mpa float64) error {
	code, err := EncodePressure(mpa, e.fullScale)
	if err != nil {
		return err
	}
	if err := util.Sleep(ctx, e.delay); err != nil {
		return err
	}

	e.mu.Lock()
	e.code = code
	e.mu.Unlock()

	return nil
}

func (e *Emulator) ConfirmPressure(ctx context.Context) (instr.Reading, error) {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return instr.Reading{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return instr.Reading{Value: DecodePressure(e.code, e.fullScale), Unit: instr.UnitMegapascal}, nil
}

func (e *Emulator) Bleed(ctx context.Context) error {
	return e.SetPressure(ctx, 0)
}

func (e *Emulator) Increase(ctx context.Context) error {
	return e.step(ctx, 1)
}

func (e *Emulator) Decrease(ctx context.Context) error {
	return e.step(ctx, -1)
}

func (e *Emulator) step(ctx context.Context, delta int) error {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return err
	}

	e.mu.Lock()
	e.code = min(max(e.code+delta, 0), MaxCode)
	e.mu.Unlock()

	return nil
}
