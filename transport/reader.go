package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-benchio/instr"
)

// Source is a pollable byte stream, as implemented by Handle.
//
// Read returns (0, nil) when nothing arrived within one poll interval and
// io.EOF when the stream has ended.
type Source interface {
	Read(ctx context.Context, b []byte) (int, error)
}

// ReadFull reads exactly len(buf) bytes from src.
//
// timeout bounds the idle time between bytes, not the total duration: the
// deadline is moved forward by timeout every time a read returns data. The
// deadline is a monotonic instant, so wall clock adjustments do not affect it.
//
// It fails with instr.ErrTimeout when the deadline passes without progress,
// instr.ErrIncompletePacket when the stream ends first, and
// instr.ErrCancelled when ctx ends. The number of bytes read is returned in
// every case.
func ReadFull(ctx context.Context, src Source, buf []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)

	read := 0
	for read < len(buf) {
		if err := ctx.Err(); err != nil {
			return read, instr.CtxErr(err)
		}

		n, err := src.Read(ctx, buf[read:])
		if n > 0 {
			read += n
			deadline = time.Now().Add(timeout)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return read, fmt.Errorf("%w: got %d of %d bytes", instr.ErrIncompletePacket, read, len(buf))
			}

			return read, err
		}

		if read < len(buf) && n == 0 && !time.Now().Before(deadline) {
			return read, fmt.Errorf("%w: no data for %v, got %d of %d bytes", instr.ErrTimeout, timeout, read, len(buf))
		}
	}

	return read, nil
}

// ReadUntil reads from src one byte at a time until term is seen and returns
// the bytes before it. Reading byte-wise leaves whatever follows the
// terminator in the port.
//
// maxLen limits the line length; exceeding it fails with
// instr.ErrIncompletePacket. The timeout has the same rolling semantics as in
// ReadFull.
func ReadUntil(ctx context.Context, src Source, term byte, maxLen int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)

	var one [1]byte
	line := make([]byte, 0, 32)
	for {
		if err := ctx.Err(); err != nil {
			return line, instr.CtxErr(err)
		}

		n, err := src.Read(ctx, one[:])
		if n > 0 {
			if one[0] == term {
				return line, nil
			}
			if maxLen > 0 && len(line) >= maxLen {
				return line, fmt.Errorf("%w: no terminator 0x%02X within %d bytes", instr.ErrIncompletePacket, term, maxLen)
			}
			line = append(line, one[0])
			deadline = time.Now().Add(timeout)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return line, fmt.Errorf("%w: stream ended after %d bytes without terminator", instr.ErrIncompletePacket, len(line))
			}

			return line, err
		}

		if n == 0 && !time.Now().Before(deadline) {
			return line, fmt.Errorf("%w: no terminator 0x%02X within %v", instr.ErrTimeout, term, timeout)
		}
	}
}

// ReadByte reads a single byte from src within timeout.
func ReadByte(ctx context.Context, src Source, timeout time.Duration) (byte, error) {
	var one [1]byte
	if _, err := ReadFull(ctx, src, one[:], timeout); err != nil {
		return 0, err
	}

	return one[0], nil
}

// Drain reads and discards bytes until src stays silent for quiet, ctx ends,
// or the stream closes. It returns the number of bytes discarded.
func Drain(ctx context.Context, src Source, quiet time.Duration) int {
	buf := make([]byte, 64)
	deadline := time.Now().Add(quiet)

	total := 0
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return total
		}

		n, err := src.Read(ctx, buf)
		if n > 0 {
			total += n
			deadline = time.Now().Add(quiet)
		}
		if err != nil {
			return total
		}
	}

	return total
}
