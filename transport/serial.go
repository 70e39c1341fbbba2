package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/arloliu/go-benchio/instr"
)

// DefaultPollInterval is the serial read timeout used for one poll.
const DefaultPollInterval = 20 * time.Millisecond

// usbPrefix marks a serial identifier that is resolved by USB vendor and product ID.
const usbPrefix = "usb:"

// SerialMode is the line configuration of a serial instrument.
type SerialMode struct {
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits

	// DTR and RTS are the modem output lines asserted right after opening.
	DTR bool
	RTS bool

	// PollInterval is the port read timeout. Zero selects DefaultPollInterval.
	PollInterval time.Duration
}

// Mode8N1 returns an 8 data bits, no parity, one stop bit mode at baud.
// DTR and RTS are left deasserted and no handshake is used.
func Mode8N1(baud int) SerialMode {
	return SerialMode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

func (m SerialMode) String() string {
	parity := "N"
	switch m.Parity {
	case serial.OddParity:
		parity = "O"
	case serial.EvenParity:
		parity = "E"
	case serial.MarkParity:
		parity = "M"
	case serial.SpaceParity:
		parity = "S"
	}

	stop := "1"
	switch m.StopBits {
	case serial.OnePointFiveStopBits:
		stop = "1.5"
	case serial.TwoStopBits:
		stop = "2"
	}

	return fmt.Sprintf("%d %d%s%s", m.BaudRate, m.DataBits, parity, stop)
}

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// openSerial is replaced in tests.
var openSerial = serial.Open

type serialOpener struct {
	mode SerialMode
}

// NewSerialOpener returns an Opener for serial ports in the given mode.
//
// The identifier is either a port name such as "/dev/ttyUSB0" or "COM3", or
// "usb:VVVV:PPPP[:SERIAL]" to open the first USB serial adapter with the
// given vendor and product ID.
func NewSerialOpener(mode SerialMode) Opener {
	if mode.PollInterval <= 0 {
		mode.PollInterval = DefaultPollInterval
	}

	return &serialOpener{mode: mode}
}

func (o *serialOpener) Open(_ context.Context, id string) (Port, error) {
	name, err := ResolveSerialPort(id)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: o.mode.BaudRate,
		DataBits: o.mode.DataBits,
		Parity:   o.mode.Parity,
		StopBits: o.mode.StopBits,
		InitialStatusBits: &serial.ModemOutputBits{
			DTR: o.mode.DTR,
			RTS: o.mode.RTS,
		},
	}

	p, err := openSerial(name, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", instr.ErrOpen, name, o.mode, err)
	}

	if err := p.SetReadTimeout(o.mode.PollInterval); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: %s: set read timeout: %w", instr.ErrOpen, name, err)
	}

	// not every driver honours InitialStatusBits
	if err := p.SetDTR(o.mode.DTR); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: %s: set DTR: %w", instr.ErrOpen, name, err)
	}
	if err := p.SetRTS(o.mode.RTS); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: %s: set RTS: %w", instr.ErrOpen, name, err)
	}

	return &serialPort{Port: p}, nil
}

// ResolveSerialPort maps a serial identifier to a port name.
// Identifiers without the "usb:" prefix are returned unchanged.
func ResolveSerialPort(id string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(id), usbPrefix) {
		if id == "" {
			return "", fmt.Errorf("%w: empty port name", instr.ErrOpen)
		}
		return id, nil
	}

	usbID, err := ParseUSBID(id[len(usbPrefix):])
	if err != nil {
		return "", fmt.Errorf("%w: %w", instr.ErrOpen, err)
	}

	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("%w: enumerate serial ports: %w", instr.ErrOpen, err)
	}

	vid := fmt.Sprintf("%04X", usbID.VID)
	pid := fmt.Sprintf("%04X", usbID.PID)
	for _, p := range ports {
		if !p.IsUSB || !strings.EqualFold(p.VID, vid) || !strings.EqualFold(p.PID, pid) {
			continue
		}
		if usbID.Serial != "" && p.SerialNumber != usbID.Serial {
			continue
		}

		return p.Name, nil
	}

	return "", fmt.Errorf("%w: no serial port matches %s", instr.ErrOpen, usbID)
}

// serialPort adapts serial.Port to Port.
type serialPort struct {
	serial.Port
}

var _ Discarder = (*serialPort)(nil)

func (p *serialPort) Discard() error {
	if err := p.ResetInputBuffer(); err != nil {
		return err
	}

	return p.ResetOutputBuffer()
}
