package chamber

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/frame"
	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
)

// DefaultEmulatorDelay is the simulated latency of every emulator operation.
const DefaultEmulatorDelay = 300 * time.Millisecond

// Emulator stands in for a thermal chamber without any I/O.
//
// It keeps the last written program and reports the first step temperature
// as the current temperature, with 25 %RH humidity and 1 % progress.
type Emulator struct {
	delay time.Duration

	mu      sync.Mutex
	scheme  instr.TimeScheme
	setup   instr.ChamberSetup
	clock   time.Time
	running bool
}

var _ instr.ThermalChamber = (*Emulator)(nil)

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithDelay sets the simulated latency.
func WithDelay(d time.Duration) EmulatorOption {
	return func(e *Emulator) { e.delay = d }
}

// NewEmulator creates a chamber emulator holding an empty program.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{delay: DefaultEmulatorDelay}
	for _, opt := range opts {
		opt(e)
	}
	e.scheme, _ = DecodeTimeScheme(make([]byte, SchemeLen))

	return e
}

func (e *Emulator) Open(ctx context.Context, _ string) error {
	return util.Sleep(ctx, e.delay)
}

func (e *Emulator) Close() error { return nil }

func (e *Emulator) ReadDeviceID(ctx context.Context) (instr.ChamberIdentity, error) {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return instr.ChamberIdentity{}, err
	}

	return instr.ChamberIdentity{DeviceType: frame.ChamberDeviceType, Address: frame.ChamberDefaultAddress}, nil
}

func (e *Emulator) WriteSetup(ctx context.Context, setup instr.ChamberSetup) error {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return err
	}

	e.mu.Lock()
	e.setup = setup
	e.mu.Unlock()

	return nil
}

// Setup returns the last written setup block.
func (e *Emulator) Setup() instr.ChamberSetup {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setup
}

func (e *Emulator) ReadTimeScheme(ctx context.Context) (instr.TimeScheme, error) {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return instr.TimeScheme{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.scheme.Clone(), nil
}

// WriteTimeScheme stores the program the way the controller does: as the
// full nine slot block.
func (e *Emulator) WriteTimeScheme(ctx context.Context, scheme instr.TimeScheme) error {
	block, err := EncodeTimeScheme(scheme)
	if err != nil {
		return err
	}
	if err := util.Sleep(ctx, e.delay); err != nil {
		return err
	}

	stored, err := DecodeTimeScheme(block)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.scheme = stored
	e.mu.Unlock()

	return nil
}

func (e *Emulator) StartProcess(ctx context.Context) error {
	return e.setRunning(ctx, true)
}

func (e *Emulator) StopProcess(ctx context.Context) error {
	return e.setRunning(ctx, false)
}

func (e *Emulator) setRunning(ctx context.Context, running bool) error {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return err
	}

	e.mu.Lock()
	e.running = running
	e.mu.Unlock()

	return nil
}

// Running reports whether the emulated program is running.
func (e *Emulator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

func (e *Emulator) SetClock(ctx context.Context, now time.Time) error {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return err
	}

	e.mu.Lock()
	e.clock = now
	e.mu.Unlock()

	return nil
}

func (e *Emulator) GetCurrentParams(ctx context.Context) (instr.ChamberState, error) {
	if err := util.Sleep(ctx, e.delay); err != nil {
		return instr.ChamberState{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return instr.ChamberState{
		Temperature: e.scheme.Entries[0].Temperature,
		Humidity:    25,
		Progress:    1,
	}, nil
}
