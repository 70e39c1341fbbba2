// Package thermometer drives the LT-300A contact thermometer over its serial
// output or its USB-HID interface.
package thermometer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

// USB identity of the HID variant.
const (
	VendorID  = 0xFFFF
	ProductID = 0x0002
)

// DefaultHIDDeviceID selects the first HID thermometer on the bus.
var DefaultHIDDeviceID = transport.USBID{VID: VendorID, PID: ProductID}.String()

// Wire constants.
const (
	cmdMeasure = 0x64
	terminator = 0x0D

	// ReportSize is the HID report length.
	ReportSize = 64
	// hidReportID is the first byte of a request report.
	hidReportID = 0x02
	// hidPayloadOff is where the command sits in a request report and the
	// text starts in a reply report.
	hidPayloadOff = 4

	maxLineLen = 64
)

// Driver reads one thermometer.
type Driver struct {
	variant     Variant
	opener      transport.Opener
	readTimeout time.Duration
	logger      logger.Logger

	handle *transport.Handle
	mu     sync.Mutex
	id     string
}

var _ instr.Thermometer = (*Driver)(nil)

// New creates a thermometer driver.
func New(opts ...Option) (*Driver, error) {
	d := &Driver{logger: logger.GetLogger()}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	if d.opener == nil {
		d.opener = defaultOpener(d.variant)
	}
	if d.readTimeout == 0 {
		d.readTimeout = DefaultSerialTimeout
		if d.variant == VariantHID {
			d.readTimeout = DefaultHIDTimeout
		}
	}

	cfg, err := transport.NewConfig(
		transport.WithName("thermometer"),
		transport.WithLogger(d.logger),
		transport.WithReadTimeout(d.readTimeout),
	)
	if err != nil {
		return nil, err
	}
	d.handle = transport.NewHandle(d.opener, cfg)
	d.logger = d.logger.With("device", "thermometer", "variant", d.variant.String())

	return d, nil
}

func defaultOpener(v Variant) transport.Opener {
	if v == VariantHID {
		return transport.NewHIDOpener(transport.HIDMode{ReportSize: ReportSize})
	}

	mode := transport.Mode8N1(BaudRate)
	mode.DTR = true
	mode.RTS = false

	return transport.NewSerialOpener(mode)
}

// Variant returns the link the driver uses.
func (d *Driver) Variant() Variant { return d.variant }

// Open opens the serial port named by id. The HID variant only records id,
// defaulting to the first thermometer on the bus, and opens the device for
// the duration of each Read.
func (d *Driver) Open(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.variant == VariantHID {
		if id == "" {
			id = DefaultHIDDeviceID
		}
		if _, err := transport.ParseUSBID(id); err != nil {
			return fmt.Errorf("thermometer: open: %w: %w", instr.ErrOpen, err)
		}
		d.id = id

		return d.handle.Close()
	}

	if err := d.handle.Open(ctx, id); err != nil {
		return fmt.Errorf("thermometer: open: %w", err)
	}
	d.id = id

	return nil
}

func (d *Driver) Close() error {
	return d.handle.Close()
}

// Read takes one measurement.
func (d *Driver) Read(ctx context.Context) (instr.ThermometerReading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		line string
		err  error
	)
	if d.variant == VariantHID {
		line, err = d.readHID(ctx)
	} else {
		line, err = d.readSerial(ctx)
	}
	if err != nil {
		return instr.ThermometerReading{}, fmt.Errorf("thermometer: read: %w", err)
	}

	r, err := ParseReading(line)
	if err != nil {
		d.logger.Warn("discarding malformed reading", "line", line)
		return instr.ThermometerReading{}, fmt.Errorf("thermometer: read: %w", err)
	}
	d.logger.Debug("reading", "ohm", r.Resistance, "celsius", r.Temperature)

	return r, nil
}

func (d *Driver) readSerial(ctx context.Context) (string, error) {
	if err := d.handle.Discard(); err != nil {
		return "", err
	}
	if err := d.handle.Write(ctx, []byte{cmdMeasure, terminator}); err != nil {
		return "", err
	}

	b, err := d.handle.ReadUntil(ctx, terminator, maxLineLen, d.readTimeout)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (d *Driver) readHID(ctx context.Context) (string, error) {
	if d.id == "" {
		return "", instr.ErrNotOpen
	}
	if err := d.handle.Open(ctx, d.id); err != nil {
		return "", err
	}
	defer func() {
		if err := d.handle.Close(); err != nil {
			d.logger.Debug("close after reading failed", "error", err)
		}
	}()

	req := make([]byte, ReportSize)
	req[0] = hidReportID
	req[hidPayloadOff] = cmdMeasure
	req[hidPayloadOff+1] = terminator
	if err := d.handle.Write(ctx, req); err != nil {
		return "", err
	}

	report := make([]byte, ReportSize)
	if err := d.handle.ReadFull(ctx, report, d.readTimeout); err != nil {
		return "", err
	}

	n := int(report[0])
	if hidPayloadOff+n > ReportSize {
		return "", fmt.Errorf("%w: reply length %d exceeds report", instr.ErrFrame, n)
	}

	return string(report[hidPayloadOff : hidPayloadOff+n]), nil
}
