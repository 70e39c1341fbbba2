package thermostat

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
)

// DefaultEmulatorDelay is the simulated latency of every emulator operation.
const DefaultEmulatorDelay = 300 * time.Millisecond

// SettleRatio is the fraction of the set-point an emulated bath reaches.
const SettleRatio = 0.95

// Emulator stands in for a thermostat. After SetupTemperature it reports
// SettleRatio times the requested temperature.
type Emulator struct {
	delay time.Duration
	noise float64

	mu          sync.Mutex
	on          bool
	mode        instr.ThermostatMode
	fluid       instr.Fluid
	cooling     bool
	clock       time.Time
	program     []instr.ThermostatStep
	temperature float64
}

var _ instr.Thermostat = (*Emulator)(nil)

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithDelay sets the simulated latency.
func WithDelay(d time.Duration) EmulatorOption {
	return func(e *Emulator) { e.delay = d }
}

// WithNoise adds uniform noise in [-eps, eps) °C to the bath temperature.
func WithNoise(eps float64) EmulatorOption {
	return func(e *Emulator) { e.noise = eps }
}

// NewEmulator creates a thermostat emulator that is switched off.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		delay:   DefaultEmulatorDelay,
		mode:    instr.ModeSetpoint,
		fluid:   instr.FluidAny,
		program: make([]instr.ThermostatStep, ProgramSlots),
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

// update waits the emulated latency, then applies fn under the lock.
func (e *Emulator) update(ctx context.Context, fn func()) error {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn()

	return nil
}

func (e *Emulator) TurnOn(ctx context.Context) error {
	return e.update(ctx, func() { e.on = true })
}

func (e *Emulator) TurnOff(ctx context.Context) error {
	return e.update(ctx, func() { e.on = false })
}

// EmulatorState is a snapshot of the emulated settings.
type EmulatorState struct {
	On      bool
	Mode    instr.ThermostatMode
	Fluid   instr.Fluid
	Cooling bool
	Clock   time.Time
}

// State returns the current emulated settings.
func (e *Emulator) State() EmulatorState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return EmulatorState{On: e.on, Mode: e.mode, Fluid: e.fluid, Cooling: e.cooling, Clock: e.clock}
}

func (e *Emulator) SetupTemperature(ctx context.Context, temperature float64) error {
	return e.update(ctx, func() {
		e.on = true
		e.cooling = true
		e.fluid = instr.FluidAny
		e.mode = instr.ModeProgram
		e.program = make([]instr.ThermostatStep, ProgramSlots)
		e.program[0] = instr.ThermostatStep{Temperature: temperature, Minutes: HoldMinutes}
		e.temperature = temperature * SettleRatio
	})
}

func (e *Emulator) SetTimeScheme(ctx context.Context, steps []instr.ThermostatStep) error {
	if err := validateProgram(steps); err != nil {
		return err
	}

	return e.update(ctx, func() {
		e.program = make([]instr.ThermostatStep, ProgramSlots)
		copy(e.program, steps)
	})
}

// Program returns the stored program slots.
func (e *Emulator) Program() []instr.ThermostatStep {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]instr.ThermostatStep(nil), e.program...)
}

func (e *Emulator) StartProgramMode(ctx context.Context) error {
	return e.SetControlMode(ctx, instr.ModeProgram)
}

func (e *Emulator) SetControlMode(ctx context.Context, mode instr.ThermostatMode) error {
	if err := validateMode(mode); err != nil {
		return err
	}

	return e.update(ctx, func() { e.mode = mode })
}

func (e *Emulator) SetFluid(ctx context.Context, fluid instr.Fluid) error {
	if err := validateFluid(fluid); err != nil {
		return err
	}

	return e.update(ctx, func() { e.fluid = fluid })
}

func (e *Emulator) SetCoolingControl(ctx context.Context, enabled bool) error {
	return e.update(ctx, func() { e.cooling = enabled })
}

func (e *Emulator) SetClock(ctx context.Context, now time.Time) error {
	return e.update(ctx, func() { e.clock = now })
}

func (e *Emulator) GetTemperature(ctx context.Context) (instr.Reading, error) {
	var t float64
	err := e.update(ctx, func() { t = e.temperature })
	if err != nil {
		return instr.Reading{}, err
	}

	return instr.Reading{Value: t + util.Noise(e.noise), Unit: instr.UnitCelsius}, nil
}

// GetResistance reports the Pt100 resistance at the emulated bath temperature.
func (e *Emulator) GetResistance(ctx context.Context) (instr.Reading, error) {
	t, err := e.GetTemperature(ctx)
	if err != nil {
		return instr.Reading{}, err
	}

	return instr.Reading{Value: instr.Pt100(t.Value), Unit: instr.UnitOhm}, nil
}
