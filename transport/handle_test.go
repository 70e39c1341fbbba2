package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/porttest"
)

func TestHandle_Lifecycle(t *testing.T) {
	h, dev := newTestHandle(t, func(req []byte) []byte { return append([]byte("ok:"), req...) })

	assert.Equal(t, ClosedState, h.State())
	assert.NoError(t, h.Close(), "close on a never-opened handle")

	mustOpen(t, h, "sim-life")
	assert.True(t, h.IsOpen())
	assert.Equal(t, "sim-life", h.ID())
	assert.True(t, Claimed("sim-life"))

	ctx := context.Background()
	require.NoError(t, h.Write(ctx, []byte("PING")))

	buf := make([]byte, 7)
	require.NoError(t, h.ReadFull(ctx, buf, 100*time.Millisecond))
	assert.Equal(t, "ok:PING", string(buf))

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "close is idempotent")
	assert.Equal(t, ClosedState, h.State())
	assert.False(t, Claimed("sim-life"))
	assert.True(t, dev.Last().Closed())

	assert.ErrorIs(t, h.Write(ctx, []byte{1}), instr.ErrNotOpen)
	_, err := h.Read(ctx, buf)
	assert.ErrorIs(t, err, instr.ErrNotOpen)

	m := h.Metrics()
	assert.Equal(t, uint64(1), m.OpenCount.Load())
	assert.Equal(t, uint64(4), m.BytesWritten.Load())
	assert.Equal(t, uint64(7), m.BytesRead.Load())
}

func TestHandle_ReopenReplaces(t *testing.T) {
	h, dev := newTestHandle(t, nil)

	mustOpen(t, h, "sim-a")
	first := dev.Last()

	mustOpen(t, h, "sim-b")
	assert.True(t, first.Closed(), "reopen must close the previous port")
	assert.False(t, Claimed("sim-a"))
	assert.True(t, Claimed("sim-b"))
	assert.Equal(t, 2, dev.Opens())
}

func TestHandle_ExclusiveClaim(t *testing.T) {
	h1, _ := newTestHandle(t, nil)
	h2, _ := newTestHandle(t, nil)

	mustOpen(t, h1, "sim-shared")

	err := h2.Open(context.Background(), "sim-shared")
	require.ErrorIs(t, err, instr.ErrOpen)
	assert.False(t, h2.IsOpen())

	require.NoError(t, h1.Close())
	mustOpen(t, h2, "sim-shared")
}

func TestHandle_OpenFailure(t *testing.T) {
	h, dev := newTestHandle(t, nil)
	dev.SetAvailable(false)

	err := h.Open(context.Background(), "sim-missing")
	require.ErrorIs(t, err, instr.ErrOpen)
	assert.ErrorIs(t, err, porttest.ErrUnavailable)
	assert.Equal(t, ClosedState, h.State())
	assert.False(t, Claimed("sim-missing"))
	assert.Equal(t, uint64(1), h.Metrics().OpenErrCount.Load())
}

func TestHandle_OpenCancelled(t *testing.T) {
	release := make(chan struct{})
	port := porttest.New(nil)

	cfg, err := NewConfig(WithName("slow"))
	require.NoError(t, err)
	h := NewHandle(OpenerFunc(func(ctx context.Context, id string) (Port, error) {
		<-release
		return port, nil
	}), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err = h.Open(ctx, "sim-slow")
	require.ErrorIs(t, err, instr.ErrCancelled)
	assert.False(t, h.IsOpen())

	close(release)
	assert.Eventually(t, port.Closed, time.Second, 5*time.Millisecond, "late port must be closed")
	assert.Eventually(t, func() bool { return !Claimed("sim-slow") }, time.Second, 5*time.Millisecond)
}

func TestHandle_OpenTimeout(t *testing.T) {
	cfg, err := NewConfig(WithName("stuck"), WithOpenTimeout(20*time.Millisecond))
	require.NoError(t, err)

	h := NewHandle(OpenerFunc(func(ctx context.Context, id string) (Port, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), cfg)

	err = h.Open(context.Background(), "sim-stuck")
	require.ErrorIs(t, err, instr.ErrOpen)
	assert.ErrorIs(t, err, instr.ErrTimeout)
}

func TestHandle_CancelDuringReadThenReopen(t *testing.T) {
	h, _ := newTestHandle(t, nil)
	mustOpen(t, h, "sim-cancel")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := h.ReadFull(ctx, make([]byte, 8), 5*time.Second)
	require.ErrorIs(t, err, instr.ErrCancelled)
	assert.True(t, h.IsOpen(), "a cancelled read leaves the port cleanly open")

	mustOpen(t, h, "sim-cancel")
	assert.True(t, h.IsOpen())
}

func TestHandle_WriteError(t *testing.T) {
	h, dev := newTestHandle(t, nil)
	mustOpen(t, h, "sim-werr")

	dev.Last().FailWrites(errors.New("line broken"))
	err := h.Write(context.Background(), []byte{1})
	require.ErrorIs(t, err, instr.ErrIO)
	assert.Equal(t, uint64(1), h.Metrics().IOErrCount.Load())
}

func TestHandle_Discard(t *testing.T) {
	h, dev := newTestHandle(t, nil)
	assert.ErrorIs(t, h.Discard(), instr.ErrNotOpen)

	mustOpen(t, h, "sim-discard")
	dev.Last().Feed([]byte{1, 2, 3})
	require.NoError(t, h.Discard())
	assert.Equal(t, 1, dev.Last().Discards())

	_, err := h.NextByte(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, instr.ErrTimeout)
}

func TestHandle_CancelledBeforeOpen(t *testing.T) {
	h, dev := newTestHandle(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, h.Open(ctx, "sim-pre"), instr.ErrCancelled)
	assert.Zero(t, dev.Opens())
}
