// Package porttest provides in-memory ports for exercising transports and
// drivers without hardware.
package porttest

import (
	"context"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultPoll is the poll interval of a Port created by New.
const DefaultPoll = 5 * time.Millisecond

// Responder answers one written request. A nil or empty reply sends nothing.
type Responder func(req []byte) []byte

// Port is an in-memory serial line with poll-timeout read semantics:
// Read blocks for at most one poll interval and returns (0, nil) when idle.
type Port struct {
	poll time.Duration

	mu        sync.Mutex
	rx        []byte
	tx        [][]byte
	chunk     int
	responder Responder
	writeErr  error
	hungUp    bool
	closed    bool
	discards  int

	notify chan struct{}
}

// New creates an open port answering writes with respond, which may be nil.
func New(respond Responder) *Port {
	return &Port{
		poll:      DefaultPoll,
		responder: respond,
		notify:    make(chan struct{}, 1),
	}
}

// SetChunk limits how many bytes a single Read returns. Zero means no limit.
func (p *Port) SetChunk(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunk = n
}

// SetResponder replaces the responder.
func (p *Port) SetResponder(r Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responder = r
}

// FailWrites makes every following Write fail with err.
func (p *Port) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// Feed queues bytes for Read.
func (p *Port) Feed(b []byte) {
	p.mu.Lock()
	p.rx = append(p.rx, b...)
	p.mu.Unlock()
	p.wake()
}

// Trickle feeds b one byte at a time, waiting every between bytes, until b is
// exhausted or ctx ends. It runs in its own goroutine.
func (p *Port) Trickle(ctx context.Context, b []byte, every time.Duration) {
	go func() {
		for _, c := range b {
			select {
			case <-ctx.Done():
				return
			case <-time.After(every):
			}
			p.Feed([]byte{c})
		}
	}()
}

// HangUp ends the stream: once the queued bytes are read, Read returns io.EOF.
func (p *Port) HangUp() {
	p.mu.Lock()
	p.hungUp = true
	p.mu.Unlock()
	p.wake()
}

func (p *Port) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Written returns a copy of every buffer passed to Write, in order.
func (p *Port) Written() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]byte, len(p.tx))
	for i, b := range p.tx {
		out[i] = append([]byte(nil), b...)
	}

	return out
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Discards returns how many times Discard was called.
func (p *Port) Discards() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discards
}

func (p *Port) Read(b []byte) (int, error) {
	deadline := time.Now().Add(p.poll)
	for {
		p.mu.Lock()
		switch {
		case p.closed:
			p.mu.Unlock()
			return 0, os.ErrClosed
		case len(p.rx) > 0:
			limit := len(b)
			if p.chunk > 0 && p.chunk < limit {
				limit = p.chunk
			}
			n := copy(b[:limit], p.rx)
			p.rx = p.rx[n:]
			p.mu.Unlock()
			return n, nil
		case p.hungUp:
			p.mu.Unlock()
			return 0, io.EOF
		}
		p.mu.Unlock()

		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-p.notify:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, os.ErrClosed
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.mu.Unlock()
		return 0, err
	}
	req := append([]byte(nil), b...)
	p.tx = append(p.tx, req)
	respond := p.responder
	p.mu.Unlock()

	if respond != nil {
		if reply := respond(req); len(reply) > 0 {
			p.Feed(reply)
		}
	}

	return len(b), nil
}

func (p *Port) Discard() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = nil
	p.discards++

	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wake()

	return nil
}
