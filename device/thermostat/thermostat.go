// Package thermostat drives the "Master" precision liquid-bath thermostat
// over USB-HID.
//
// Requests and replies are ASCII lines carried in 64-byte reports. The
// thermostat re-enumerates on the bus when it is switched on or off, so the
// power commands close and reopen the device before every status poll.
package thermostat

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/frame"
	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

// Driver controls one thermostat.
type Driver struct {
	opener       transport.Opener
	address      string
	readTimeout  time.Duration
	openDelay    time.Duration
	pollInterval time.Duration
	powerTimeout time.Duration
	logger       logger.Logger
	now          func() time.Time

	handle *transport.Handle
	mu     sync.Mutex
	id     string
}

var _ instr.Thermostat = (*Driver)(nil)

// New creates a thermostat driver.
func New(opts ...Option) (*Driver, error) {
	d := &Driver{
		opener:       transport.NewHIDOpener(transport.HIDMode{ReportSize: ReportSize}),
		address:      BroadcastAddress,
		readTimeout:  DefaultReadTimeout,
		openDelay:    DefaultOpenDelay,
		pollInterval: DefaultPollInterval,
		powerTimeout: DefaultPowerTimeout,
		logger:       logger.GetLogger(),
		now:          time.Now,
	}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	cfg, err := transport.NewConfig(
		transport.WithName("thermostat"),
		transport.WithLogger(d.logger),
		transport.WithReadTimeout(d.readTimeout),
	)
	if err != nil {
		return nil, err
	}
	d.handle = transport.NewHandle(d.opener, cfg)
	d.logger = d.logger.With("device", "thermostat")

	return d, nil
}

// Handle returns the transport handle owned by the driver.
func (d *Driver) Handle() *transport.Handle { return d.handle }

// Open waits the open delay and opens the HID device named by id, or the
// first thermostat on the bus when id is empty.
func (d *Driver) Open(ctx context.Context, id string) error {
	if id == "" {
		id = DefaultDeviceID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.id = id

	return d.open(ctx)
}

func (d *Driver) open(ctx context.Context) error {
	if err := d.handle.Close(); err != nil {
		d.logger.Debug("close before open failed", "error", err)
	}
	if err := util.Sleep(ctx, d.openDelay); err != nil {
		return fmt.Errorf("thermostat: open: %w", err)
	}
	if err := d.handle.Open(ctx, d.id); err != nil {
		return fmt.Errorf("thermostat: open: %w", err)
	}

	return nil
}

func (d *Driver) Close() error {
	return d.handle.Close()
}

// TurnOn switches the thermostat on and waits until it reports running.
func (d *Driver) TurnOn(ctx context.Context) error {
	return d.setPower(ctx, true)
}

// TurnOff switches the thermostat off and waits until it reports stopped.
func (d *Driver) TurnOff(ctx context.Context) error {
	return d.setPower(ctx, false)
}

func (d *Driver) setPower(ctx context.Context, on bool) error {
	want := flag(on)
	if _, err := d.write(ctx, CmdRun, "", "", want); err != nil {
		return err
	}

	deadline := time.Now().Add(d.powerTimeout)
	for attempt := 1; time.Now().Before(deadline); attempt++ {
		if err := util.Sleep(ctx, d.pollInterval); err != nil {
			return fmt.Errorf("thermostat: %s: %w", CmdRun, err)
		}

		state, err := d.pollPower(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("thermostat: %s: %w", CmdRun, instr.CtxErr(ctx.Err()))
			}
			d.logger.Warn("power state poll failed", "attempt", attempt, "error", err)

			continue
		}

		d.logger.Info("power state", "attempt", attempt, "state", state, "want", want)
		if len(state) > 0 && state[:1] == want {
			return nil
		}
	}

	return fmt.Errorf("thermostat: %s: %w: power state did not become %s within %v", CmdRun, instr.ErrTimeout, want, d.powerTimeout)
}

// pollPower reopens the device, whose handles change while it switches, and
// reads the power state.
func (d *Driver) pollPower(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.open(ctx); err != nil {
		return "", err
	}

	return d.requestLocked(ctx, frame.ASCIIRequest{Command: CmdRun})
}

// SetupTemperature brings the thermostat into program mode holding
// temperature: it power cycles the thermostat, sets the clock, selects any
// fluid, enables the cooling machine and runs a one step program.
func (d *Driver) SetupTemperature(ctx context.Context, temperature float64) error {
	d.logger.Info("setting up temperature", "celsius", temperature)

	steps := []func() error{
		func() error { return d.TurnOff(ctx) },
		func() error { return d.TurnOn(ctx) },
		func() error { return d.SetClock(ctx, d.now()) },
		func() error { return d.SetFluid(ctx, instr.FluidAny) },
		func() error { return d.SetCoolingControl(ctx, true) },
		func() error {
			return d.SetTimeScheme(ctx, []instr.ThermostatStep{{Temperature: temperature, Minutes: HoldMinutes}})
		},
		func() error { return d.StartProgramMode(ctx) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	return nil
}

// SetTimeScheme writes all program slots; slots beyond steps are zeroed.
func (d *Driver) SetTimeScheme(ctx context.Context, steps []instr.ThermostatStep) error {
	if err := validateProgram(steps); err != nil {
		return fmt.Errorf("thermostat: %s: %w", CmdPrg, err)
	}

	for i := 1; i <= ProgramSlots; i++ {
		var s instr.ThermostatStep
		if i <= len(steps) {
			s = steps[i-1]
		}

		slot := strconv.Itoa(i)
		if _, err := d.write(ctx, CmdPrg, ParamPrgTemp, slot, formatTemperature(s.Temperature)); err != nil {
			return err
		}
		if _, err := d.write(ctx, CmdPrg, ParamPrgTime, slot, strconv.Itoa(s.Minutes)); err != nil {
			return err
		}
	}

	return nil
}

// StartProgramMode switches to program control; the program starts at its
// first non-empty step.
func (d *Driver) StartProgramMode(ctx context.Context) error {
	return d.SetControlMode(ctx, instr.ModeProgram)
}

func (d *Driver) SetControlMode(ctx context.Context, mode instr.ThermostatMode) error {
	if err := validateMode(mode); err != nil {
		return fmt.Errorf("thermostat: %s: %w", CmdMod, err)
	}

	_, err := d.write(ctx, CmdMod, "", "", string(mode))

	return err
}

func (d *Driver) SetFluid(ctx context.Context, fluid instr.Fluid) error {
	if err := validateFluid(fluid); err != nil {
		return fmt.Errorf("thermostat: %s: %w", CmdFlu, err)
	}

	_, err := d.write(ctx, CmdFlu, "", "", strconv.Itoa(int(fluid)))

	return err
}

// SetCoolingControl enables or disables control of the cooling machine.
func (d *Driver) SetCoolingControl(ctx context.Context, enabled bool) error {
	_, err := d.write(ctx, CmdFsw, "", "", flag(enabled))
	return err
}

// SetClock sets the real-time clock to the hour and minute of now.
func (d *Driver) SetClock(ctx context.Context, now time.Time) error {
	_, err := d.write(ctx, CmdRtc, ParamRtcTime, "", now.Format(ClockLayout))
	return err
}

// GetTemperature reads the bath temperature.
func (d *Driver) GetTemperature(ctx context.Context) (instr.Reading, error) {
	v, err := d.readFloat(ctx, ParamDatT)
	if err != nil {
		return instr.Reading{}, err
	}

	return instr.Reading{Value: v, Unit: instr.UnitCelsius}, nil
}

// GetResistance reads the resistance of the bath sensor.
func (d *Driver) GetResistance(ctx context.Context) (instr.Reading, error) {
	v, err := d.readFloat(ctx, ParamDatR)
	if err != nil {
		return instr.Reading{}, err
	}

	return instr.Reading{Value: v, Unit: instr.UnitOhm}, nil
}

func (d *Driver) readFloat(ctx context.Context, param string) (float64, error) {
	s, err := d.read(ctx, CmdDat, param, "")
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("thermostat: %s.%s: %w: value %q is not a number", CmdDat, param, instr.ErrFrame, s)
	}

	return v, nil
}

func (d *Driver) read(ctx context.Context, cmd, param, sub string) (string, error) {
	return d.request(ctx, frame.ASCIIRequest{Command: cmd, Parameter: param, SubParameter: sub})
}

func (d *Driver) write(ctx context.Context, cmd, param, sub, value string) (string, error) {
	return d.request(ctx, frame.ASCIIRequest{Command: cmd, Parameter: param, SubParameter: sub, Write: true, Value: value})
}

// request sends one request report and returns the value of the reply.
func (d *Driver) request(ctx context.Context, req frame.ASCIIRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.requestLocked(ctx, req)
}

// requestLocked is request for callers already holding d.mu.
func (d *Driver) requestLocked(ctx context.Context, req frame.ASCIIRequest) (string, error) {
	req.Address = d.address

	v, err := d.exchange(ctx, req)
	if err != nil {
		op := frame.OpRead
		if req.Write {
			op = frame.OpWrite
		}

		return "", fmt.Errorf("thermostat: %s %s: %w", req.Target(), op, err)
	}

	return v, nil
}

func (d *Driver) exchange(ctx context.Context, req frame.ASCIIRequest) (string, error) {
	line, err := frame.EncodeASCII(req)
	if err != nil {
		return "", err
	}

	report := make([]byte, ReportSize)
	if n := copy(report, line); n < len(line) {
		d.logger.Warn("request truncated to report size", "request", string(line), "size", ReportSize)
	}
	d.logger.Debug("tx", "request", string(line))

	if err := d.handle.Write(ctx, report); err != nil {
		return "", err
	}

	reply := make([]byte, ReportSize)
	if err := d.handle.ReadFull(ctx, reply, d.readTimeout); err != nil {
		return "", err
	}
	d.logger.Debug("rx", "reply", frame.TrimLine(reply))

	resp, err := frame.ParseASCIIResponse(reply)
	if err != nil {
		return "", err
	}

	return resp.Value, nil
}
