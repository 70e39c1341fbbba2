package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/util"
	"github.com/arloliu/go-benchio/logger"
)

// Handle owns at most one open Port.
//
// Open, Write and the reads are meant to be driven by a single owner (the
// instrument driver) in strict request/response alternation. Close may be
// called from any goroutine and is idempotent.
type Handle struct {
	cfg     *Config
	opener  Opener
	logger  logger.Logger
	metrics Metrics
	state   atomicOpState

	mu    sync.Mutex
	port  Port
	id    string
	claim *claim
}

// NewHandle creates a closed handle that acquires its port through opener.
// A nil cfg selects the defaults of NewConfig.
func NewHandle(opener Opener, cfg *Config) *Handle {
	if cfg == nil {
		cfg, _ = NewConfig()
	}

	return &Handle{
		cfg:    cfg,
		opener: opener,
		logger: cfg.GetLogger().With("device", cfg.Name()),
	}
}

// Config returns the handle configuration.
func (h *Handle) Config() *Config { return h.cfg }

// Metrics returns the handle counters.
func (h *Handle) Metrics() *Metrics { return &h.metrics }

// State returns the current lifecycle state.
func (h *Handle) State() OpState { return h.state.Get() }

// IsOpen reports whether the handle holds an open port.
func (h *Handle) IsOpen() bool { return h.state.IsOpened() }

// ID returns the identifier of the open port, or "" when closed.
func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.id
}

type openResult struct {
	port Port
	err  error
}

// Open acquires the port named by id, closing the port the handle currently
// owns first.
//
// If ctx ends before the opener returns, Open fails with instr.ErrCancelled
// and the handle stays closed; a port that finishes opening afterwards is
// closed in the background.
func (h *Handle) Open(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return instr.CtxErr(err)
	}

	if err := h.Close(); err != nil {
		h.logger.Warn("failed to close previous port", "error", err)
	}

	c, err := acquireClaim(id, h)
	if err != nil {
		h.metrics.incOpenErrCount()
		return err
	}

	h.state.ToOpening()

	openCtx := ctx
	if h.cfg.openTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, h.cfg.openTimeout)
		defer cancel()
	}

	resCh := make(chan openResult, 1)
	go func() {
		p, err := h.opener.Open(openCtx, id)
		resCh <- openResult{port: p, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			c.release(id)
			h.state.Set(ClosedState)
			h.metrics.incOpenErrCount()
			if errors.Is(res.err, instr.ErrCancelled) || errors.Is(res.err, instr.ErrOpen) {
				return res.err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return instr.CtxErr(ctxErr)
			}

			return fmt.Errorf("%w: %s: %w", instr.ErrOpen, id, res.err)
		}

		h.mu.Lock()
		h.port = res.port
		h.id = id
		h.claim = c
		h.mu.Unlock()

		h.state.ToOpened()
		h.metrics.incOpenCount()
		h.logger.Info("port opened", "id", id)

		return nil

	case <-openCtx.Done():
		go func() {
			if res := <-resCh; res.port != nil {
				_ = res.port.Close()
			}
			c.release(id)
		}()

		h.state.Set(ClosedState)
		h.metrics.incOpenErrCount()

		if err := ctx.Err(); err != nil {
			return instr.CtxErr(err)
		}

		return fmt.Errorf("%w: %s: %w after %v", instr.ErrOpen, id, instr.ErrTimeout, h.cfg.openTimeout)
	}
}

// Close releases the port. It is safe to call on a never-opened or already
// closed handle.
func (h *Handle) Close() error {
	h.mu.Lock()
	port, id, c := h.port, h.id, h.claim
	h.port, h.id, h.claim = nil, "", nil
	h.mu.Unlock()

	if port == nil {
		return nil
	}

	h.state.ToClosing()
	err := port.Close()
	c.release(id)
	h.state.ToClosed()

	if err != nil {
		return fmt.Errorf("%w: close %s: %w", instr.ErrIO, id, err)
	}

	h.logger.Info("port closed", "id", id)

	return nil
}

func (h *Handle) current() (Port, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.port, h.id
}

// Write sends b to the device.
func (h *Handle) Write(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return instr.CtxErr(err)
	}

	port, id := h.current()
	if port == nil {
		return instr.ErrNotOpen
	}

	if h.logger.Level() <= logger.DebugLevel {
		h.logger.Debug("tx", "id", id, "data", util.Hex(b))
	}

	for written := 0; written < len(b); {
		n, err := port.Write(b[written:])
		written += n
		h.metrics.addBytesWritten(n)

		if err != nil {
			h.metrics.incIOErrCount()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return instr.CtxErr(ctxErr)
			}

			return fmt.Errorf("%w: write %s: %w", instr.ErrIO, id, err)
		}
		if n == 0 {
			if err := ctx.Err(); err != nil {
				return instr.CtxErr(err)
			}
		}
	}

	return nil
}

// Read performs one poll of the port. It returns (0, nil) when nothing
// arrived within the poll interval and io.EOF when the stream has ended.
func (h *Handle) Read(ctx context.Context, b []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, instr.CtxErr(err)
	}

	port, id := h.current()
	if port == nil {
		return 0, instr.ErrNotOpen
	}

	var (
		n   int
		err error
	)
	if cr, ok := port.(ContextReader); ok {
		n, err = cr.ReadContext(ctx, b)
	} else {
		n, err = port.Read(b)
	}
	h.metrics.addBytesRead(n)

	if n > 0 && h.logger.Level() <= logger.DebugLevel {
		h.logger.Debug("rx", "id", id, "data", util.Hex(b[:n]))
	}

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		return n, io.EOF
	case ctx.Err() != nil:
		return n, instr.CtxErr(ctx.Err())
	default:
		h.metrics.incIOErrCount()
		return n, fmt.Errorf("%w: read %s: %w", instr.ErrIO, id, err)
	}
}

// Discard drops pending input and output if the port supports it.
func (h *Handle) Discard() error {
	port, id := h.current()
	if port == nil {
		return instr.ErrNotOpen
	}

	if d, ok := port.(Discarder); ok {
		if err := d.Discard(); err != nil {
			return fmt.Errorf("%w: discard %s: %w", instr.ErrIO, id, err)
		}
	}

	return nil
}

func (h *Handle) timeout(d time.Duration) time.Duration {
	if d <= 0 {
		return h.cfg.readTimeout
	}

	return d
}

func (h *Handle) observe(err error) error {
	if errors.Is(err, instr.ErrTimeout) {
		h.metrics.incTimeoutCount()
	}

	return err
}

// ReadFull fills buf. See the package function ReadFull.
// A zero timeout selects the configured read timeout.
func (h *Handle) ReadFull(ctx context.Context, buf []byte, timeout time.Duration) error {
	_, err := ReadFull(ctx, h, buf, h.timeout(timeout))
	return h.observe(err)
}

// ReadUntil reads up to the terminator. See the package function ReadUntil.
// A zero timeout selects the configured read timeout.
func (h *Handle) ReadUntil(ctx context.Context, term byte, maxLen int, timeout time.Duration) ([]byte, error) {
	b, err := ReadUntil(ctx, h, term, maxLen, h.timeout(timeout))
	return b, h.observe(err)
}

// NextByte reads a single byte. A zero timeout selects the configured read timeout.
func (h *Handle) NextByte(ctx context.Context, timeout time.Duration) (byte, error) {
	b, err := ReadByte(ctx, h, h.timeout(timeout))
	return b, h.observe(err)
}
