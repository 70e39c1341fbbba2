package regulator

import (
	"fmt"
	"math"

	"github.com/arloliu/go-benchio/instr"
)

// MaxCode is the raw set-point code corresponding to full scale.
const MaxCode = 1023

// DefaultFullScale is the full-scale pressure of an ITV1050, in MPa.
const DefaultFullScale = 0.9

// EncodePressure converts mpa into the raw code for a regulator with the
// given full scale. The code is truncated toward zero.
func EncodePressure(mpa, fullScale float64) (int, error) {
	if mpa < 0 || math.IsNaN(mpa) {
		return 0, fmt.Errorf("%w: pressure %v MPa is negative", instr.ErrRange, mpa)
	}

	scaled := mpa / fullScale * MaxCode
	if math.IsInf(scaled, 0) || scaled >= MaxCode+1 {
		return 0, fmt.Errorf("%w: pressure %v MPa exceeds code %d", instr.ErrRange, mpa, MaxCode)
	}

	return int(scaled), nil
}

// DecodePressure converts a raw code into MPa.
func DecodePressure(code int, fullScale float64) float64 {
	return float64(code) * fullScale / MaxCode
}
