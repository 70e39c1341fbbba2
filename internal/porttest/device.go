package porttest

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable is returned by Device.Open while the device is unplugged.
var ErrUnavailable = errors.New("porttest: device unavailable")

// Device hands out a fresh Port on every Open, all sharing one responder,
// like a physical instrument that is reconnected.
type Device struct {
	mu        sync.Mutex
	respond   Responder
	ports     []*Port
	ids       []string
	available bool
	chunk     int
}

// NewDevice creates a plugged-in device answering with respond.
func NewDevice(respond Responder) *Device {
	return &Device{respond: respond, available: true}
}

// SetAvailable plugs or unplugs the device.
func (d *Device) SetAvailable(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.available = ok
}

// SetChunk applies Port.SetChunk to ports opened afterwards.
func (d *Device) SetChunk(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chunk = n
}

// Open returns a new Port, or ErrUnavailable when unplugged.
func (d *Device) Open(ctx context.Context, id string) (*Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return nil, ErrUnavailable
	}

	p := New(d.respond)
	p.SetChunk(d.chunk)
	d.ports = append(d.ports, p)
	d.ids = append(d.ids, id)

	return p, nil
}

// Opens returns how many ports were handed out.
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ports)
}

// Last returns the most recently opened port, or nil.
func (d *Device) Last() *Port {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.ports) == 0 {
		return nil
	}

	return d.ports[len(d.ports)-1]
}

// Ports returns every port handed out, oldest first.
func (d *Device) Ports() []*Port {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Port(nil), d.ports...)
}

// IDs returns the identifiers passed to Open.
func (d *Device) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

// Requests returns every request written to any port of the device, in order.
func (d *Device) Requests() [][]byte {
	d.mu.Lock()
	ports := append([]*Port(nil), d.ports...)
	d.mu.Unlock()

	var out [][]byte
	for _, p := range ports {
		out = append(out, p.Written()...)
	}

	return out
}
