package dynamometer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/porttest"
	"github.com/arloliu/go-benchio/transport"
)

func frameBytes(sign byte, digits string, point byte, unit, rng byte) []byte {
	b := []byte{SyncByte, sign}
	b = append(b, digits...)

	return append(b, point, unit, rng)
}

func newTestDriver(t *testing.T, opts ...Option) (*Driver, *porttest.Port) {
	t.Helper()

	dev := porttest.NewDevice(nil)
	opts = append([]Option{
		WithOpener(transport.OpenerFunc(func(ctx context.Context, id string) (transport.Port, error) {
			return dev.Open(ctx, id)
		})),
		WithReadTimeout(50 * time.Millisecond),
	}, opts...)

	d, err := New(opts...)
	require.NoError(t, err)
	require.NoError(t, d.Open(context.Background(), t.Name()))
	t.Cleanup(func() { _ = d.Close() })

	return d, dev.Last()
}

// --- frame ---

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		newtons  float64
		overload bool
		rng      float64
	}{
		{"kN", frameBytes(' ', "012345", '3', 0x30, 0x06), 12345, false, 10000},
		{"negative N", frameBytes('-', "000500", '4', 0x31, 0x00), -5, false, 2000},
		{"tonne", frameBytes('+', "001500", '3', 0x32, 0x13), 1.5 * 1000 * StandardGravity, false, 500000},
		{"kg", frameBytes(' ', "100000", '6', 0x33, 0x14), 100000 * StandardGravity, false, 0},
		{"kN overload", frameBytes(' ', "010000", '3', 0x35, 0x06), 10000, true, 10000},
		{"N overload", frameBytes(' ', "000001", '0', 0x36, 0x01), 0.000001, true, 3000},
		{"kg overload", frameBytes(' ', "000100", '6', 0x38, 0x00), 100 * StandardGravity, true, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.newtons, f.Newtons(), 1e-6)
			assert.Equal(t, tt.overload, f.Overload)
			assert.Equal(t, tt.rng, RangeFromCode(f.RangeCode))
		})
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	tests := map[string][]byte{
		"short":      frameBytes(' ', "012345", '3', 0x30, 0x06)[:10],
		"no sync":    append([]byte{0x00}, frameBytes(' ', "012345", '3', 0x30, 0x06)[1:]...),
		"digits":     frameBytes(' ', "01 345", '3', 0x30, 0x06),
		"point":      frameBytes(' ', "012345", '7', 0x30, 0x06),
		"point char": frameBytes(' ', "012345", 'x', 0x30, 0x06),
		"unit 0x34":  frameBytes(' ', "012345", '3', 0x34, 0x06),
		"unit 0x39":  frameBytes(' ', "012345", '3', 0x39, 0x06),
		"unit 0x2F":  frameBytes(' ', "012345", '3', 0x2F, 0x06),
	}

	for name, in := range tests {
		_, err := DecodeFrame(in)
		assert.ErrorIs(t, err, instr.ErrFrame, name)
	}
}

func TestEncodeFrame(t *testing.T) {
	f := Frame{Value: -12.345, Unit: UnitKilonewton, Overload: true, RangeCode: 0x0E, Decimals: 3}

	b, err := EncodeFrame(f)
	require.NoError(t, err)
	assert.Equal(t, frameBytes('-', "012345", '3', 0x35, 0x0E), b)

	got, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, f, got)
	assert.Equal(t, "-12.345 kN (overload)", got.String())

	_, err = EncodeFrame(Frame{Value: 1000, Unit: UnitNewton, Decimals: 3})
	assert.ErrorIs(t, err, instr.ErrRange)
	_, err = EncodeFrame(Frame{Value: 1, Unit: 0x40})
	assert.ErrorIs(t, err, instr.ErrRange)
}

// --- driver ---

func TestDriver_ReadForce(t *testing.T) {
	d, port := newTestDriver(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	d.now = func() time.Time { return at }

	port.Feed(frameBytes(' ', "002500", '4', 0x31, 0x06))

	r, err := d.ReadForce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, instr.ForceReading{Force: 25, Range: 10000, At: at}, r)
}

func TestDriver_Resynchronizes(t *testing.T) {
	d, port := newTestDriver(t)

	// tail of a frame cut off by the open, then a full frame
	port.Feed([]byte{'3', 0x30, 0x06})
	port.Feed(frameBytes(' ', "000750", '3', 0x30, 0x06))

	r, err := d.ReadForce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 750, r.Force, 1e-9)
}

func TestDriver_Trickled(t *testing.T) {
	d, port := newTestDriver(t)
	port.Trickle(context.Background(), frameBytes('-', "000123", '6', 0x31, 0x02), 2*time.Millisecond)

	r, err := d.ReadForce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, -123, r.Force, 1e-9)
	assert.Equal(t, 4000.0, r.Range)
}

func TestDriver_SkipsBadFrames(t *testing.T) {
	d, port := newTestDriver(t)
	port.Feed(frameBytes(' ', "0x0000", '3', 0x31, 0x02))
	port.Feed(frameBytes(' ', "000001", '6', 0x31, 0x02))

	r, err := d.ReadForce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1, r.Force, 1e-9)
}

func TestDriver_TooManyBadFrames(t *testing.T) {
	d, port := newTestDriver(t, WithMaxBadFrames(1))
	bad := frameBytes(' ', "000001", '9', 0x31, 0x02)
	port.Feed(append(append([]byte{}, bad...), bad...))

	_, err := d.ReadForce(context.Background())
	assert.ErrorIs(t, err, instr.ErrFrame)
}

func TestDriver_NoSyncByte(t *testing.T) {
	d, port := newTestDriver(t)
	port.Feed(bytes.Repeat([]byte{'0'}, 4*FrameLen+1))
	port.Feed(frameBytes(' ', "000001", '6', 0x31, 0x02))

	_, err := d.ReadForce(context.Background())
	assert.ErrorIs(t, err, instr.ErrFrame)
}

func TestDriver_SyncWithinLimit(t *testing.T) {
	d, port := newTestDriver(t)
	port.Feed(bytes.Repeat([]byte{'0'}, 4*FrameLen))
	port.Feed(frameBytes(' ', "000001", '6', 0x31, 0x02))

	r, err := d.ReadForce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1, r.Force, 1e-9)
}

func TestDriver_SilentLine(t *testing.T) {
	d, _ := newTestDriver(t)

	_, err := d.ReadForce(context.Background())
	assert.ErrorIs(t, err, instr.ErrTimeout)
}

func TestDriver_Cancelled(t *testing.T) {
	d, _ := newTestDriver(t, WithReadTimeout(10*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.ReadForce(ctx)
	assert.ErrorIs(t, err, instr.ErrCancelled)
}

func TestDriver_OpenDiscardsBacklog(t *testing.T) {
	d, port := newTestDriver(t)
	assert.Equal(t, 1, port.Discards())
	assert.NoError(t, d.Close())
}

// --- collection ---

func TestCollectAndAverage(t *testing.T) {
	d, port := newTestDriver(t)
	for _, digits := range []string{"000100", "000200", "000300"} {
		port.Feed(frameBytes(' ', digits, '6', 0x31, 0x00))
	}
	port.Feed(frameBytes(' ', "000400", '6', 0x36, 0x00))

	samples, err := Collect(context.Background(), d, 4)
	require.NoError(t, err)
	require.Len(t, samples, 4)

	avg, overload := Average(samples)
	assert.InDelta(t, 250, avg, 1e-9)
	assert.True(t, overload)

	avg, overload = Average(nil)
	assert.Zero(t, avg)
	assert.False(t, overload)

	samples, err = Collect(context.Background(), d, 1)
	assert.ErrorIs(t, err, instr.ErrTimeout)
	assert.Empty(t, samples)

	samples, err = Collect(context.Background(), d, -1)
	assert.ErrorIs(t, err, instr.ErrRange)
	assert.Nil(t, samples)

	samples, err = Collect(context.Background(), d, 0)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

// --- emulator ---

func TestEmulator_Quantizes(t *testing.T) {
	e := NewEmulator(WithDelay(time.Millisecond), WithForceFunc(func(time.Time) float64 { return 1234.5678 }))
	require.NoError(t, e.Open(context.Background(), ""))

	r, err := e.ReadForce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1235, r.Force, 1e-9)
	assert.False(t, r.Overload)
	assert.Equal(t, 10000.0, r.Range)
}

func TestEmulator_Overload(t *testing.T) {
	e := NewEmulator(WithDelay(0), WithForceFunc(func(time.Time) float64 { return -12000 }))

	r, err := e.ReadForce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, -10000, r.Force, 1e-9)
	assert.True(t, r.Overload)
}

func TestEmulator_Cancelled(t *testing.T) {
	e := NewEmulator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ReadForce(ctx)
	assert.ErrorIs(t, err, instr.ErrCancelled)
}

func TestParity_DriverAndEmulator(t *testing.T) {
	const force = 4321.0
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	d, port := newTestDriver(t)
	d.now = func() time.Time { return at }
	b, err := EncodeFrame(Frame{Value: force / 1000, Unit: UnitKilonewton, RangeCode: 0x06, Decimals: 3})
	require.NoError(t, err)
	port.Feed(b)

	e := NewEmulator(WithDelay(0), WithForceFunc(func(time.Time) float64 { return force }))
	e.now = func() time.Time { return at }

	var got []instr.ForceReading
	for _, m := range []instr.ForceMeter{d, e} {
		r, err := m.ReadForce(context.Background())
		require.NoError(t, err)
		got = append(got, r)
	}
	assert.Equal(t, got[0], got[1])
}
