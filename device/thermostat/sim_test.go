package thermostat

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/frame"
	"github.com/arloliu/go-benchio/internal/porttest"
	"github.com/arloliu/go-benchio/transport"
)

// master simulates the thermostat firmware behind the HID reports.
type master struct {
	mu     sync.Mutex
	values map[string]string
	on     bool
	// lag is how many RUN reads still report the old power state after a
	// RUN write.
	lag     int
	pending int
	// faults answers the given targets with a status code.
	faults map[string]byte
	// onPower runs after every RUN write.
	onPower func()
}

func newMaster() *master {
	return &master{
		values: map[string]string{"DAT.R": "109.73"},
		faults: map[string]byte{},
	}
}

func (m *master) respond(req []byte) []byte {
	r, err := frame.ParseASCIIRequest(req)
	if err != nil {
		return report(frame.EncodeASCIIResponse("?", frame.StatusBadRequest, ""))
	}

	m.mu.Lock()
	target := r.Target()
	if code, ok := m.faults[target]; ok {
		m.mu.Unlock()
		return report(frame.EncodeASCIIResponse(target, code, ""))
	}

	var value string
	switch {
	case target == CmdRun && r.Write:
		m.on = r.Value == "1"
		m.pending = m.lag
	case target == CmdRun:
		on := m.on
		if m.pending > 0 {
			m.pending--
			on = !on
		}
		value = flag(on)
	case r.Write:
		m.values[target] = r.Value
	case target == "DAT.T":
		value = "20"
		if m.on && m.values[CmdMod] == "P" {
			t, _ := strconv.ParseFloat(m.values["PRG.TEMP.1"], 64)
			value = formatTemperature(t * SettleRatio)
		}
	default:
		value = m.values[target]
	}
	hook := m.onPower
	m.mu.Unlock()

	if target == CmdRun && r.Write && hook != nil {
		hook()
	}

	return report(frame.EncodeASCIIResponse(target, frame.StatusOK, value))
}

func report(b []byte) []byte {
	out := make([]byte, ReportSize)
	copy(out, b)

	return out
}

// newTestDriver creates a driver on an in-memory thermostat and opens it.
func newTestDriver(t *testing.T, m *master, opts ...Option) (*Driver, *porttest.Device) {
	t.Helper()

	dev := porttest.NewDevice(m.respond)
	opts = append([]Option{
		WithOpener(transport.OpenerFunc(func(ctx context.Context, id string) (transport.Port, error) {
			return dev.Open(ctx, id)
		})),
		WithOpenDelay(0),
		WithPowerPolling(time.Millisecond, 500*time.Millisecond),
		WithReadTimeout(50 * time.Millisecond),
	}, opts...)

	d, err := New(opts...)
	require.NoError(t, err)
	d.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) }
	require.NoError(t, d.Open(context.Background(), t.Name()))
	t.Cleanup(func() { _ = d.Close() })

	return d, dev
}

// writes returns "TARGET=value" for every write request sent to dev.
func writes(t *testing.T, dev *porttest.Device) []string {
	t.Helper()

	var out []string
	for _, b := range dev.Requests() {
		r, err := frame.ParseASCIIRequest(b)
		require.NoError(t, err)
		if r.Write {
			out = append(out, r.Target()+"="+r.Value)
		}
	}

	return out
}
