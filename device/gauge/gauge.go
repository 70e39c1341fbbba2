// Package gauge drives the DM5002 digital pressure gauge.
package gauge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/frame"
	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

// CmdReadPressure requests the current measurement record.
const CmdReadPressure byte = 0x01

// maxNoise bounds the garbage skipped while looking for the start byte.
const maxNoise = 32

var preamble = []byte{0xFF, 0xFF, 0xFF}

// Driver reads a DM5002 gauge over RS-232.
type Driver struct {
	opener      transport.Opener
	readTimeout time.Duration
	logger      logger.Logger

	handle *transport.Handle
	mu     sync.Mutex
}

var _ instr.PressureGauge = (*Driver)(nil)

// New creates a gauge driver.
func New(opts ...Option) (*Driver, error) {
	d := &Driver{
		opener:      transport.NewSerialOpener(transport.Mode8N1(BaudRate)),
		readTimeout: DefaultReadTimeout,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	cfg, err := transport.NewConfig(
		transport.WithName("gauge"),
		transport.WithLogger(d.logger),
		transport.WithReadTimeout(d.readTimeout),
	)
	if err != nil {
		return nil, err
	}
	d.handle = transport.NewHandle(d.opener, cfg)
	d.logger = d.logger.With("device", "gauge")

	return d, nil
}

// Handle returns the transport handle owned by the driver.
func (d *Driver) Handle() *transport.Handle { return d.handle }

func (d *Driver) Open(ctx context.Context, port string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.handle.Open(ctx, port); err != nil {
		return fmt.Errorf("gauge: open: %w", err)
	}

	return nil
}

func (d *Driver) Close() error {
	return d.handle.Close()
}

// GetPressure returns the measured pressure in pascals.
func (d *Driver) GetPressure(ctx context.Context) (instr.Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, err := d.roundTrip(ctx, CmdReadPressure, nil)
	if err != nil {
		return instr.Reading{}, fmt.Errorf("gauge: read-pressure: %w", err)
	}

	raw, err := DecodeRecord(payload)
	if err != nil {
		return instr.Reading{}, fmt.Errorf("gauge: read-pressure: %w", err)
	}

	pa, err := raw.Pascals()
	if err != nil {
		return instr.Reading{}, fmt.Errorf("gauge: read-pressure: %w", err)
	}
	d.logger.Debug("pressure", "raw", raw.String(), "pa", pa)

	return instr.Reading{Value: pa, Unit: instr.UnitPascal}, nil
}

func (d *Driver) roundTrip(ctx context.Context, cmd byte, payload []byte) ([]byte, error) {
	req, err := frame.EncodeGauge(cmd, payload)
	if err != nil {
		return nil, err
	}

	if err := d.handle.Write(ctx, req); err != nil {
		return nil, err
	}

	// skip the preamble and any line noise up to the start byte
	noise, err := d.handle.ReadUntil(ctx, frame.GaugeStartByte, maxNoise, d.readTimeout)
	if err != nil {
		return nil, err
	}
	if skipped := len(noise) - len(preamble); skipped > 0 {
		d.logger.Debug("skipped bytes before start byte", "count", skipped)
	}

	pkt := make([]byte, frame.GaugeHeaderLen, frame.GaugeHeaderLen+frame.GaugeMaxPayload+1)
	copy(pkt, preamble)
	pkt[len(preamble)] = frame.GaugeStartByte
	if err := d.handle.ReadFull(ctx, pkt[len(preamble)+1:], d.readTimeout); err != nil {
		return nil, err
	}

	n, err := frame.GaugeFrameLen(pkt)
	if err != nil {
		return nil, err
	}
	pkt = pkt[:n]
	if err := d.handle.ReadFull(ctx, pkt[frame.GaugeHeaderLen:], d.readTimeout); err != nil {
		return nil, err
	}

	return frame.ValidateGauge(cmd, pkt)
}
