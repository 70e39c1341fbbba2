package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/arloliu/go-benchio/instr"
)

// DefaultReportSize is the HID report size used by the bench instruments.
const DefaultReportSize = 64

// hidSetReport is the bmRequestType/bRequest pair of a class SET_REPORT
// request to an interface (host to device).
const (
	hidRequestType = 0x21
	hidSetReport   = 0x09
	hidOutputType  = 0x02
)

// HIDMode is the configuration of a USB-HID report channel.
type HIDMode struct {
	// ReportSize is the fixed report length. Zero selects DefaultReportSize.
	ReportSize int
	// PollInterval bounds one interrupt read. Zero selects DefaultPollInterval.
	PollInterval time.Duration
}

type hidOpener struct {
	mode HIDMode
}

// NewHIDOpener returns an Opener for USB-HID devices. The identifier has the
// form "VVVV:PPPP[:SERIAL]"; the first matching device is opened.
func NewHIDOpener(mode HIDMode) Opener {
	if mode.ReportSize <= 0 {
		mode.ReportSize = DefaultReportSize
	}
	if mode.PollInterval <= 0 {
		mode.PollInterval = DefaultPollInterval
	}

	return &hidOpener{mode: mode}
}

func (o *hidOpener) Open(_ context.Context, id string) (Port, error) {
	usbID, err := ParseUSBID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", instr.ErrOpen, err)
	}

	usb := gousb.NewContext()
	dev, err := openUSBDevice(usb, usbID)
	if err != nil {
		_ = usb.Close()
		return nil, fmt.Errorf("%w: hid %s: %w", instr.ErrOpen, usbID, err)
	}

	p := &hidPort{usb: usb, dev: dev, mode: o.mode}
	if err := p.claim(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: hid %s: %w", instr.ErrOpen, usbID, err)
	}

	return p, nil
}

func openUSBDevice(usb *gousb.Context, id USBID) (*gousb.Device, error) {
	if id.Serial == "" {
		dev, err := usb.OpenDeviceWithVIDPID(gousb.ID(id.VID), gousb.ID(id.PID))
		if err != nil {
			return nil, err
		}
		if dev == nil {
			return nil, errors.New("device not found")
		}

		return dev, nil
	}

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(id.VID) && desc.Product == gousb.ID(id.PID)
	})

	var found *gousb.Device
	for _, d := range devs {
		if found == nil {
			if sn, snErr := d.SerialNumber(); snErr == nil && sn == id.Serial {
				found = d
				continue
			}
		}
		_ = d.Close()
	}

	if found != nil {
		return found, nil
	}
	if err != nil {
		return nil, err
	}

	return nil, errors.New("device not found")
}

// hidPort exchanges fixed-size reports over the interrupt endpoints of the
// default interface. Devices without an interrupt OUT endpoint receive
// output reports through SET_REPORT on the control endpoint.
type hidPort struct {
	usb  *gousb.Context
	dev  *gousb.Device
	mode HIDMode

	intf     *gousb.Interface
	intfDone func()
	in       *gousb.InEndpoint
	out      *gousb.OutEndpoint

	// pending holds the unread tail of the last input report.
	pending []byte

	closeOnce sync.Once
	closeErr  error
}

var _ ContextReader = (*hidPort)(nil)

func (p *hidPort) claim() error {
	if err := p.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("auto detach: %w", err)
	}

	intf, done, err := p.dev.DefaultInterface()
	if err != nil {
		return fmt.Errorf("claim interface: %w", err)
	}
	p.intf, p.intfDone = intf, done

	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeInterrupt {
			continue
		}

		switch {
		case ep.Direction == gousb.EndpointDirectionIn && p.in == nil:
			if p.in, err = intf.InEndpoint(ep.Number); err != nil {
				return fmt.Errorf("in endpoint %d: %w", ep.Number, err)
			}
		case ep.Direction == gousb.EndpointDirectionOut && p.out == nil:
			if p.out, err = intf.OutEndpoint(ep.Number); err != nil {
				return fmt.Errorf("out endpoint %d: %w", ep.Number, err)
			}
		}
	}

	if p.in == nil {
		return errors.New("no interrupt IN endpoint")
	}

	return nil
}

func (p *hidPort) Read(b []byte) (int, error) {
	return p.ReadContext(context.Background(), b)
}

// ReadContext returns buffered report bytes, or waits one poll interval for
// the next input report.
func (p *hidPort) ReadContext(ctx context.Context, b []byte) (int, error) {
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]

		return n, nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, p.mode.PollInterval)
	defer cancel()

	report := make([]byte, p.mode.ReportSize)
	n, err := p.in.ReadContext(pollCtx, report)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if pollCtx.Err() != nil || errors.Is(err, gousb.TransferCancelled) || errors.Is(err, gousb.TransferTimedOut) {
			return 0, nil
		}

		return 0, err
	}

	c := copy(b, report[:n])
	p.pending = append(p.pending[:0], report[c:n]...)

	return c, nil
}

// Write sends b as one output report, zero padded to the report size.
func (p *hidPort) Write(b []byte) (int, error) {
	if len(b) > p.mode.ReportSize {
		return 0, fmt.Errorf("report of %d bytes exceeds %d", len(b), p.mode.ReportSize)
	}

	report := make([]byte, p.mode.ReportSize)
	copy(report, b)

	if p.out != nil {
		if _, err := p.out.Write(report); err != nil {
			return 0, err
		}

		return len(b), nil
	}

	_, err := p.dev.Control(hidRequestType, hidSetReport, hidOutputType<<8, uint16(p.intf.Setting.Number), report) //nolint:gosec
	if err != nil {
		return 0, err
	}

	return len(b), nil
}

func (p *hidPort) Discard() error {
	p.pending = nil
	return nil
}

func (p *hidPort) Close() error {
	p.closeOnce.Do(func() {
		if p.intfDone != nil {
			p.intfDone()
		}
		if p.dev != nil {
			p.closeErr = p.dev.Close()
		}
		if err := p.usb.Close(); err != nil && p.closeErr == nil {
			p.closeErr = err
		}
	})

	return p.closeErr
}
