package transport

import (
	"context"
	"testing"

	"github.com/arloliu/go-benchio/internal/porttest"
)

// newTestHandle creates a handle over an in-memory device answering with respond.
func newTestHandle(t *testing.T, respond porttest.Responder, opts ...Option) (*Handle, *porttest.Device) {
	t.Helper()

	cfg, err := NewConfig(append([]Option{WithName(t.Name())}, opts...)...)
	if err != nil {
		t.Fatalf("newTestHandle: %v", err)
	}

	dev := porttest.NewDevice(respond)
	h := NewHandle(OpenerFunc(func(ctx context.Context, id string) (Port, error) {
		return dev.Open(ctx, id)
	}), cfg)
	t.Cleanup(func() { _ = h.Close() })

	return h, dev
}

// mustOpen opens h on id, failing the test on error.
func mustOpen(t *testing.T, h *Handle, id string) {
	t.Helper()

	if err := h.Open(context.Background(), id); err != nil {
		t.Fatalf("mustOpen(%s): %v", id, err)
	}
}
