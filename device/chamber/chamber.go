// Package chamber drives the thermal chamber controller over RS-232 and
// provides an emulator of it.
package chamber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/frame"
	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

// Command codes.
const (
	CmdReadDeviceID      byte = 0x00
	CmdReadCurrentParams byte = 0x01
	CmdWriteTimeScheme   byte = 0x04
	CmdReadTimeScheme    byte = 0x05
	CmdStartProcess      byte = 0x06
	CmdStopProcess       byte = 0x07
	CmdSetClock          byte = 0x0B
	CmdWriteSetup        byte = 0x14
)

var commandNames = map[byte]string{
	CmdReadDeviceID:      "read-device-id",
	CmdReadCurrentParams: "read-current-params",
	CmdWriteTimeScheme:   "write-time-scheme",
	CmdReadTimeScheme:    "read-time-scheme",
	CmdStartProcess:      "start-process",
	CmdStopProcess:       "stop-process",
	CmdSetClock:          "set-clock",
	CmdWriteSetup:        "write-setup",
}

func commandName(cmd byte) string {
	if s, ok := commandNames[cmd]; ok {
		return s
	}

	return fmt.Sprintf("cmd-0x%02X", cmd)
}

// Driver talks to a thermal chamber controller.
type Driver struct {
	opener      transport.Opener
	address     uint16
	byteTimeout time.Duration
	logger      logger.Logger

	handle *transport.Handle
	mu     sync.Mutex
}

var _ instr.ThermalChamber = (*Driver)(nil)

// New creates a chamber driver. The serial port is not opened until Open.
func New(opts ...Option) (*Driver, error) {
	d := &Driver{
		opener:      transport.NewSerialOpener(transport.Mode8N1(BaudRate)),
		address:     frame.ChamberDefaultAddress,
		byteTimeout: DefaultByteTimeout,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	cfg, err := transport.NewConfig(
		transport.WithName("chamber"),
		transport.WithLogger(d.logger),
		transport.WithReadTimeout(d.byteTimeout),
	)
	if err != nil {
		return nil, err
	}
	d.handle = transport.NewHandle(d.opener, cfg)
	d.logger = d.logger.With("device", "chamber")

	return d, nil
}

// Handle returns the transport handle owned by the driver.
func (d *Driver) Handle() *transport.Handle { return d.handle }

// Open opens the serial port named by port, closing any port already open.
func (d *Driver) Open(ctx context.Context, port string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.handle.Open(ctx, port); err != nil {
		return fmt.Errorf("chamber: open: %w", err)
	}

	return nil
}

// Close closes the serial port.
func (d *Driver) Close() error {
	return d.handle.Close()
}

// ReadDeviceID asks the chamber for its device type and address.
func (d *Driver) ReadDeviceID(ctx context.Context) (instr.ChamberIdentity, error) {
	pkt, err := d.exchange(ctx, CmdReadDeviceID, nil)
	if err != nil {
		return instr.ChamberIdentity{}, err
	}

	return instr.ChamberIdentity{DeviceType: pkt.DeviceType, Address: pkt.Address}, nil
}

// WriteSetup writes the regulation constants.
func (d *Driver) WriteSetup(ctx context.Context, setup instr.ChamberSetup) error {
	d.logger.Info("writing setup")
	_, err := d.exchange(ctx, CmdWriteSetup, EncodeSetup(setup))

	return err
}

// ReadTimeScheme reads the stored program. All nine slots are returned.
func (d *Driver) ReadTimeScheme(ctx context.Context) (instr.TimeScheme, error) {
	d.logger.Info("reading time scheme")

	pkt, err := d.exchange(ctx, CmdReadTimeScheme, nil)
	if err != nil {
		return instr.TimeScheme{}, err
	}

	s, err := DecodeTimeScheme(pkt.Payload)
	if err != nil {
		return instr.TimeScheme{}, fmt.Errorf("chamber: %s: %w", commandName(CmdReadTimeScheme), err)
	}

	return s, nil
}

// WriteTimeScheme replaces the stored program.
func (d *Driver) WriteTimeScheme(ctx context.Context, scheme instr.TimeScheme) error {
	block, err := EncodeTimeScheme(scheme)
	if err != nil {
		return fmt.Errorf("chamber: %s: %w", commandName(CmdWriteTimeScheme), err)
	}

	var first int8
	if len(scheme.Entries) > 0 {
		first = scheme.Entries[0].Temperature
	}
	d.logger.Info("writing time scheme", "entries", len(scheme.Entries), "repeat", scheme.Repeat, "t0", first)

	_, err = d.exchange(ctx, CmdWriteTimeScheme, block)

	return err
}

// StartProcess starts executing the stored program.
func (d *Driver) StartProcess(ctx context.Context) error {
	d.logger.Info("starting process")
	_, err := d.exchange(ctx, CmdStartProcess, nil)

	return err
}

// StopProcess stops the running program.
func (d *Driver) StopProcess(ctx context.Context) error {
	d.logger.Info("stopping process")
	_, err := d.exchange(ctx, CmdStopProcess, nil)

	return err
}

// SetClock sets the controller clock.
func (d *Driver) SetClock(ctx context.Context, now time.Time) error {
	_, err := d.exchange(ctx, CmdSetClock, EncodeClock(now))
	return err
}

// GetCurrentParams reads temperature, humidity and program progress.
func (d *Driver) GetCurrentParams(ctx context.Context) (instr.ChamberState, error) {
	pkt, err := d.exchange(ctx, CmdReadCurrentParams, nil)
	if err != nil {
		return instr.ChamberState{}, err
	}

	st, err := DecodeCurrentParams(pkt.Payload)
	if err != nil {
		return instr.ChamberState{}, fmt.Errorf("chamber: %s: %w", commandName(CmdReadCurrentParams), err)
	}

	return st, nil
}

// exchange sends one command and returns the validated response.
func (d *Driver) exchange(ctx context.Context, cmd byte, payload []byte) (frame.ChamberPacket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pkt, err := d.roundTrip(ctx, cmd, payload)
	if err != nil {
		return frame.ChamberPacket{}, fmt.Errorf("chamber: %s: %w", commandName(cmd), err)
	}

	return pkt, nil
}

func (d *Driver) roundTrip(ctx context.Context, cmd byte, payload []byte) (frame.ChamberPacket, error) {
	req, err := frame.EncodeChamber(frame.ChamberDeviceType, d.address, cmd, payload)
	if err != nil {
		return frame.ChamberPacket{}, err
	}

	if err := d.handle.Write(ctx, req); err != nil {
		return frame.ChamberPacket{}, err
	}

	n, err := d.handle.NextByte(ctx, d.byteTimeout)
	if err != nil {
		return frame.ChamberPacket{}, err
	}
	if int(n) < frame.ChamberMinLen {
		transport.Drain(ctx, d.handle, d.byteTimeout)
		return frame.ChamberPacket{}, fmt.Errorf("%w: response length byte %d", instr.ErrFrame, n)
	}

	resp := make([]byte, n)
	resp[0] = n
	if err := d.handle.ReadFull(ctx, resp[1:], d.byteTimeout); err != nil {
		return frame.ChamberPacket{}, err
	}

	pkt, err := frame.ValidateChamber(resp)
	if err != nil {
		return frame.ChamberPacket{}, err
	}
	if pkt.Command != cmd {
		d.logger.Warn("response command differs from request", "request", cmd, "response", pkt.Command)
	}

	pkt.Payload = util.CloneBytes(pkt.Payload)
	d.logger.Debug("response", "cmd", commandName(cmd), "type", pkt.DeviceType, "address", pkt.Address, "payload", util.Hex(pkt.Payload))

	return pkt, nil
}
