package util

import (
	"context"
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/internal/pool"
)

// Sleep pauses for d, returning an instr.ErrCancelled error if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	return instr.CtxErr(pool.Sleep(ctx, d))
}

// Hex formats b as space separated upper-case hex pairs for wire dumps.
func Hex(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}

	return sb.String()
}

// Noise returns a uniformly distributed value in [-eps, eps).
func Noise(eps float64) float64 {
	if eps <= 0 {
		return 0
	}

	return (rand.Float64()*2 - 1) * eps
}

// CloneBytes returns a copy of b, or nil for an empty b.
func CloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)

	return out
}
