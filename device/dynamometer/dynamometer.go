// Package dynamometer reads the ACDR-100 force meter, which streams
// measurement frames over RS-232 without being polled.
package dynamometer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
	"github.com/arloliu/go-benchio/logger"
	"github.com/arloliu/go-benchio/transport"
)

// Driver reads frames from one dynamometer.
type Driver struct {
	opener       transport.Opener
	readTimeout  time.Duration
	maxBadFrames int
	logger       logger.Logger
	now          func() time.Time

	handle *transport.Handle
	mu     sync.Mutex
}

var _ instr.ForceMeter = (*Driver)(nil)

// New creates a dynamometer driver.
func New(opts ...Option) (*Driver, error) {
	d := &Driver{
		opener:       transport.NewSerialOpener(transport.Mode8N1(BaudRate)),
		readTimeout:  DefaultReadTimeout,
		maxBadFrames: DefaultMaxBadFrames,
		logger:       logger.GetLogger(),
		now:          time.Now,
	}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	cfg, err := transport.NewConfig(
		transport.WithName("dynamometer"),
		transport.WithLogger(d.logger),
		transport.WithReadTimeout(d.readTimeout),
	)
	if err != nil {
		return nil, err
	}
	d.handle = transport.NewHandle(d.opener, cfg)
	d.logger = d.logger.With("device", "dynamometer")

	return d, nil
}

// Open opens the serial port and drops whatever the instrument sent before.
func (d *Driver) Open(ctx context.Context, port string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.handle.Open(ctx, port); err != nil {
		return fmt.Errorf("dynamometer: open: %w", err)
	}
	if err := d.handle.Discard(); err != nil {
		return fmt.Errorf("dynamometer: open: %w", err)
	}

	return nil
}

func (d *Driver) Close() error {
	return d.handle.Close()
}

// ReadForce waits for the next complete frame and returns it in newtons.
func (d *Driver) ReadForce(ctx context.Context) (instr.ForceReading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.nextFrame(ctx)
	if err != nil {
		return instr.ForceReading{}, fmt.Errorf("dynamometer: read: %w", err)
	}
	d.logger.Debug("force", "frame", f.String())

	return instr.ForceReading{
		Force:    f.Newtons(),
		Overload: f.Overload,
		Range:    RangeFromCode(f.RangeCode),
		At:       d.now(),
	}, nil
}

func (d *Driver) nextFrame(ctx context.Context) (Frame, error) {
	buf := make([]byte, FrameLen)

	var lastErr error
	for bad := 0; bad <= d.maxBadFrames; bad++ {
		if err := d.sync(ctx); err != nil {
			return Frame{}, err
		}

		buf[0] = SyncByte
		if err := d.handle.ReadFull(ctx, buf[1:], d.readTimeout); err != nil {
			return Frame{}, err
		}

		f, err := DecodeFrame(buf)
		if err == nil {
			return f, nil
		}
		lastErr = err
		d.logger.Warn("skipping undecodable frame", "data", util.Hex(buf), "error", err)
	}

	return Frame{}, lastErr
}

// maxSyncSkip bounds the bytes skipped while looking for the sync byte.
const maxSyncSkip = 4 * FrameLen

// sync consumes bytes up to and including the next sync byte.
func (d *Driver) sync(ctx context.Context) error {
	for skipped := 0; skipped <= maxSyncSkip; skipped++ {
		b, err := d.handle.NextByte(ctx, d.readTimeout)
		if err != nil {
			return err
		}
		if b == SyncByte {
			if skipped > 0 {
				d.logger.Debug("resynchronized", "skipped", skipped)
			}

			return nil
		}
	}

	return fmt.Errorf("%w: no sync byte in %d bytes", instr.ErrFrame, maxSyncSkip+1)
}

// Collect reads n consecutive samples.
func Collect(ctx context.Context, m instr.ForceMeter, n int) ([]instr.ForceReading, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: sample count %d is negative", instr.ErrRange, n)
	}

	out := make([]instr.ForceReading, 0, n)
	for len(out) < n {
		r, err := m.ReadForce(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}

	return out, nil
}

// Average returns the mean force of samples and whether any of them overloaded.
func Average(samples []instr.ForceReading) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}

	var (
		sum      float64
		overload bool
	)
	for _, s := range samples {
		sum += s.Force
		overload = overload || s.Overload
	}

	return sum / float64(len(samples)), overload
}
