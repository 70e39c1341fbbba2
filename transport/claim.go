package transport

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-benchio/instr"
)

// claims maps a device identifier to the open attempt that currently owns it.
var claims = xsync.NewMapOf[string, *claim]()

type claim struct {
	owner *Handle
}

// acquireClaim registers h as the owner of id. A handle may re-acquire an id
// it already owns; any other handle is refused.
func acquireClaim(id string, h *Handle) (*claim, error) {
	c := &claim{owner: h}

	var holder *Handle
	claims.Compute(id, func(old *claim, loaded bool) (*claim, bool) {
		if loaded && old.owner != h {
			holder = old.owner
			return old, false
		}

		return c, false
	})

	if holder != nil {
		return nil, fmt.Errorf("%w: %s is already in use by %s", instr.ErrOpen, id, holder.cfg.name)
	}

	return c, nil
}

// release drops the claim on id if it is still the current one.
func (c *claim) release(id string) {
	if c == nil {
		return
	}

	claims.Compute(id, func(old *claim, loaded bool) (*claim, bool) {
		if loaded && old == c {
			return nil, true
		}

		return old, !loaded
	})
}

// Claimed reports whether id is currently held by an open or opening handle.
func Claimed(id string) bool {
	_, ok := claims.Load(id)
	return ok
}
