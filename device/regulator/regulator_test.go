package regulator

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/porttest"
	"github.com/arloliu/go-benchio/transport"
)

// itv simulates the regulator line protocol.
type itv struct {
	mu   sync.Mutex
	code int
}

func (s *itv) respond(req []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := strings.TrimSuffix(string(req), "\r\n")
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case CmdSet:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return []byte("ERR\r\n")
		}
		s.code = n
		return []byte("OK\r\n")
	case CmdInc:
		s.code = min(s.code+1, MaxCode)
		return []byte("OK\r\n")
	case CmdDec:
		s.code = max(s.code-1, 0)
		return []byte("OK\r\n")
	case CmdReq, CmdMon:
		return []byte(strconv.Itoa(s.code) + "\r\n")
	}

	return nil
}

func newTestDriver(t *testing.T, respond porttest.Responder, opts ...Option) (*Driver, *porttest.Device) {
	t.Helper()

	dev := porttest.NewDevice(respond)
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

	return d, dev
}

// --- code conversion ---

func TestEncodePressure(t *testing.T) {
	tests := []struct {
		mpa     float64
		want    int
		wantErr bool
	}{
		{0, 0, false},
		{0.9, 1023, false},
		{0.45, 511, false},
		{0.0009, 1, false},
		{-0.01, 0, true},
		{0.901, 0, true},
		{1.0, 0, true},
		{1e19, 0, true},
		{1e300, 0, true},
		{math.Inf(1), 0, true},
		{math.Inf(-1), 0, true},
		{math.NaN(), 0, true},
	}

	for _, tt := range tests {
		code, err := EncodePressure(tt.mpa, DefaultFullScale)
		if tt.wantErr {
			assert.ErrorIs(t, err, instr.ErrRange, "mpa=%v", tt.mpa)
			continue
		}
		require.NoError(t, err, "mpa=%v", tt.mpa)
		assert.Equal(t, tt.want, code, "mpa=%v", tt.mpa)
	}
}

func TestDecodePressure(t *testing.T) {
	assert.InDelta(t, 0.9, DecodePressure(MaxCode, DefaultFullScale), 1e-12)
	assert.Zero(t, DecodePressure(0, DefaultFullScale))
	assert.InDelta(t, 0.5, DecodePressure(MaxCode, 0.5), 1e-12)
}

// --- driver ---

func TestDriver_SetAndConfirm(t *testing.T) {
	sim := &itv{}
	d, dev := newTestDriver(t, sim.respond)
	ctx := context.Background()

	require.NoError(t, d.SetPressure(ctx, 0.9))
	assert.Equal(t, MaxCode, sim.code)

	r, err := d.ConfirmPressure(ctx)
	require.NoError(t, err)
	assert.Equal(t, instr.UnitMegapascal, r.Unit)
	assert.InDelta(t, 0.9, r.Value, 1e-9)

	require.NoError(t, d.Bleed(ctx))
	assert.Zero(t, sim.code)

	reqs := dev.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "SET 1023\r\n", string(reqs[0]))
	assert.Equal(t, "REQ\r\n", string(reqs[1]))
	assert.Equal(t, "SET 0\r\n", string(reqs[2]))
}

func TestDriver_SetPressure_OutOfRange(t *testing.T) {
	d, dev := newTestDriver(t, (&itv{}).respond)

	assert.ErrorIs(t, d.SetPressure(context.Background(), -0.1), instr.ErrRange)
	assert.ErrorIs(t, d.SetPressure(context.Background(), 0.95), instr.ErrRange)
	assert.ErrorIs(t, d.SetPressure(context.Background(), 1e300), instr.ErrRange)
	assert.ErrorIs(t, d.SetPressure(context.Background(), math.Inf(1)), instr.ErrRange)
	assert.Empty(t, dev.Requests())
}

func TestDriver_FullScale(t *testing.T) {
	sim := &itv{}
	d, _ := newTestDriver(t, sim.respond, WithFullScale(0.5))
	assert.Equal(t, 0.5, d.FullScale())

	require.NoError(t, d.SetPressure(context.Background(), 0.25))
	assert.Equal(t, 511, sim.code)
}

func TestDriver_IncreaseDecrease(t *testing.T) {
	sim := &itv{code: 100}
	d, _ := newTestDriver(t, sim.respond)
	ctx := context.Background()

	require.NoError(t, d.Increase(ctx))
	require.NoError(t, d.Increase(ctx))
	require.NoError(t, d.Decrease(ctx))
	assert.Equal(t, 101, sim.code)

	r, err := d.GetPressure(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 101*0.9/1023, r.Value, 1e-12)
}

func TestDriver_GetPressure_LFOnly(t *testing.T) {
	d, _ := newTestDriver(t, func([]byte) []byte { return []byte("512\n") })

	r, err := d.GetPressure(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 512*0.9/1023, r.Value, 1e-12)
}

func TestDriver_GetPressure_Garbage(t *testing.T) {
	d, _ := newTestDriver(t, func([]byte) []byte { return []byte("E1\r\n") })

	_, err := d.GetPressure(context.Background())
	assert.ErrorIs(t, err, instr.ErrFrame)
	assert.Contains(t, err.Error(), "regulator: MON")
}

func TestDriver_NoReply(t *testing.T) {
	d, _ := newTestDriver(t, nil)

	err := d.SetPressure(context.Background(), 0.1)
	assert.ErrorIs(t, err, instr.ErrTimeout)
	assert.Contains(t, err.Error(), "regulator: SET")
}

func TestNew_BadFullScale(t *testing.T) {
	_, err := New(WithFullScale(0))
	assert.Error(t, err)
	_, err = New(WithFullScale(-1))
	assert.Error(t, err)
}

// --- emulator ---

func TestEmulator_Defaults(t *testing.T) {
	e := NewEmulator()
	ctx := context.Background()

	r, err := e.GetPressure(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, r.Value, 0.001)

	assert.ErrorIs(t, e.SetPressure(ctx, 2), instr.ErrRange)
}

func TestEmulator_Cancelled(t *testing.T) {
	e := NewEmulator(WithDelay(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.Bleed(ctx), instr.ErrCancelled)
}

func runScript(t *testing.T, r instr.PressureRegulator) []float64 {
	t.Helper()

	ctx := context.Background()
	var seen []float64

	require.NoError(t, r.SetPressure(ctx, 0.3))
	require.NoError(t, r.Increase(ctx))
	require.NoError(t, r.Increase(ctx))
	require.NoError(t, r.Decrease(ctx))

	got, err := r.ConfirmPressure(ctx)
	require.NoError(t, err)
	seen = append(seen, got.Value)

	require.NoError(t, r.Bleed(ctx))
	got, err = r.GetPressure(ctx)
	require.NoError(t, err)
	seen = append(seen, got.Value)

	assert.ErrorIs(t, r.SetPressure(ctx, -1), instr.ErrRange)

	return seen
}

func TestParity_DriverAndEmulator(t *testing.T) {
	d, _ := newTestDriver(t, (&itv{}).respond)
	e := NewEmulator(WithDelay(0))

	assert.Equal(t, runScript(t, d), runScript(t, e))
}
