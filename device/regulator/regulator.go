// Package regulator drives the SMC ITV1050 electro-pneumatic regulator over
// its RS-232C line protocol.
//
// Every command is an ASCII line terminated by CRLF and is answered by one
// line. Pressures cross the wire as raw codes in [0, MaxCode] proportional to
// the full-scale pressure.
package regulator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/frame"
	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

// Commands.
const (
	CmdSet = "SET"
	CmdInc = "INC"
	CmdDec = "DEC"
	CmdReq = "REQ"
	CmdMon = "MON"
)

// Driver controls one regulator.
type Driver struct {
	opener      transport.Opener
	fullScale   float64
	readTimeout time.Duration
	logger      logger.Logger

	handle *transport.Handle
	mu     sync.Mutex
}

var _ instr.PressureRegulator = (*Driver)(nil)

// New creates a regulator driver.
func New(opts ...Option) (*Driver, error) {
	d := &Driver{
		opener:      transport.NewSerialOpener(transport.Mode8N1(BaudRate)),
		fullScale:   DefaultFullScale,
		readTimeout: DefaultReadTimeout,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	cfg, err := transport.NewConfig(
		transport.WithName("regulator"),
		transport.WithLogger(d.logger),
		transport.WithReadTimeout(d.readTimeout),
	)
	if err != nil {
		return nil, err
	}
	d.handle = transport.NewHandle(d.opener, cfg)
	d.logger = d.logger.With("device", "regulator")

	return d, nil
}

// FullScale returns the configured full-scale pressure in MPa.
func (d *Driver) FullScale() float64 { return d.fullScale }

func (d *Driver) Open(ctx context.Context, port string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.handle.Open(ctx, port); err != nil {
		return fmt.Errorf("regulator: open: %w", err)
	}

	return nil
}

func (d *Driver) Close() error {
	return d.handle.Close()
}

// GetPressure returns the measured output pressure.
func (d *Driver) GetPressure(ctx context.Context) (instr.Reading, error) {
	code, err := d.queryCode(ctx, CmdMon)
	if err != nil {
		return instr.Reading{}, err
	}

	p := DecodePressure(code, d.fullScale)
	d.logger.Info("output pressure", "mpa", p)

	return instr.Reading{Value: p, Unit: instr.UnitMegapascal}, nil
}

// SetPressure sets the output pressure. Values that do not map into the raw
// code range fail with instr.ErrRange and nothing is sent.
func (d *Driver) SetPressure(ctx context.Context, mpa float64) error {
	code, err := EncodePressure(mpa, d.fullScale)
	if err != nil {
		return fmt.Errorf("regulator: %s: %w", CmdSet, err)
	}

	line, err := d.command(ctx, CmdSet+" "+strconv.Itoa(code))
	if err != nil {
		return err
	}
	d.logger.Info("set pressure", "mpa", mpa, "code", code, "reply", line)

	return nil
}

// ConfirmPressure reads back the accepted set-point.
func (d *Driver) ConfirmPressure(ctx context.Context) (instr.Reading, error) {
	code, err := d.queryCode(ctx, CmdReq)
	if err != nil {
		return instr.Reading{}, err
	}

	p := DecodePressure(code, d.fullScale)
	d.logger.Info("confirmed set-point", "mpa", p, "code", code)

	return instr.Reading{Value: p, Unit: instr.UnitMegapascal}, nil
}

// Bleed vents the output; the regulator stops holding pressure.
func (d *Driver) Bleed(ctx context.Context) error {
	return d.SetPressure(ctx, 0)
}

func (d *Driver) Increase(ctx context.Context) error {
	_, err := d.command(ctx, CmdInc)
	return err
}

func (d *Driver) Decrease(ctx context.Context) error {
	_, err := d.command(ctx, CmdDec)
	return err
}

func (d *Driver) queryCode(ctx context.Context, cmd string) (int, error) {
	line, err := d.command(ctx, cmd)
	if err != nil {
		return 0, err
	}

	code, err := strconv.Atoi(line)
	if err != nil || code < 0 || code > MaxCode {
		return 0, fmt.Errorf("regulator: %s: %w: reply %q is not a code in [0, %d]", cmd, instr.ErrFrame, line, MaxCode)
	}

	return code, nil
}

// command sends one line and returns the trimmed reply line.
func (d *Driver) command(ctx context.Context, cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, _, _ := strings.Cut(cmd, " ")
	if err := d.handle.Write(ctx, frame.Line(cmd)); err != nil {
		return "", fmt.Errorf("regulator: %s: %w", name, err)
	}

	b, err := d.handle.ReadUntil(ctx, '\n', MaxLineLen, d.readTimeout)
	if err != nil {
		return "", fmt.Errorf("regulator: %s: %w", name, err)
	}

	return frame.TrimLine(b), nil
}
