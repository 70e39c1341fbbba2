package chamber

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-benchio/frame"
	"github.com/arloliu/go-benchio/internal/porttest"
	"github.com/arloliu/go-benchio/transport"
)

// controller simulates the chamber controller at the packet level.
type controller struct {
	mu      sync.Mutex
	scheme  []byte
	setup   []byte
	clock   []byte
	running bool
	params  []byte
	address uint16

	// corrupt flips the checksum of the next response.
	corrupt bool
	// silent drops every request.
	silent bool
}

func newController() *controller {
	params := make([]byte, ParamsMinLen)
	params[10], params[11], params[12] = 23, 40, 7

	return &controller{
		scheme:  make([]byte, SchemeLen),
		params:  params,
		address: frame.ChamberDefaultAddress,
	}
}

func (c *controller) respond(req []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.silent {
		return nil
	}

	pkt, err := frame.ValidateChamber(req)
	if err != nil {
		return nil
	}

	var payload []byte
	switch pkt.Command {
	case CmdReadDeviceID:
	case CmdReadCurrentParams:
		payload = c.params
	case CmdWriteTimeScheme:
		c.scheme = append([]byte(nil), pkt.Payload...)
	case CmdReadTimeScheme:
		payload = c.scheme
	case CmdStartProcess:
		c.running = true
	case CmdStopProcess:
		c.running = false
	case CmdSetClock:
		c.clock = append([]byte(nil), pkt.Payload...)
	case CmdWriteSetup:
		c.setup = append([]byte(nil), pkt.Payload...)
	default:
		return nil
	}

	resp, _ := frame.EncodeChamber(frame.ChamberDeviceType, c.address, pkt.Command, payload)
	if c.corrupt {
		resp[len(resp)-1] ^= 0xFF
		c.corrupt = false
	}

	return resp
}

// newTestDriver creates a driver wired to an in-memory controller and opens it.
func newTestDriver(t *testing.T, opts ...Option) (*Driver, *controller, *porttest.Device) {
	t.Helper()

	ctrl := newController()
	dev := porttest.NewDevice(ctrl.respond)
	opener := transport.OpenerFunc(func(ctx context.Context, id string) (transport.Port, error) {
		return dev.Open(ctx, id)
	})

	d, err := New(append([]Option{WithOpener(opener), WithByteTimeout(100 * time.Millisecond)}, opts...)...)
	if err != nil {
		t.Fatalf("newTestDriver: %v", err)
	}
	if err := d.Open(context.Background(), t.Name()); err != nil {
		t.Fatalf("newTestDriver: open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return d, ctrl, dev
}
