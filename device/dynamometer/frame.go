package dynamometer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/go-benchio/instr"
)

// Measurement frame, sent continuously by the instrument:
//
//	[0]     sync byte 0xA5
//	[1]     sign, '-' for negative values
//	[2:8]   six ASCII digits
//	[8]     ASCII digit: position of the decimal point within the digits
//	[9]     unit code, see ForceUnit
//	[10]    range code
const (
	SyncByte byte = 0xA5
	FrameLen      = 11

	digitsOff = 2
	numDigits = 6
	pointOff  = 8
	unitOff   = 9
	rangeOff  = 10

	// overloadShift is added to a unit code when the reading overloaded.
	overloadShift = 5
)

// StandardGravity is the acceleration used to convert kilogram-force and
// tonne-force to newtons.
const StandardGravity = 9.81

// ForceUnit is the unit code of a frame without the overload flag.
type ForceUnit byte

const (
	UnitKilonewton ForceUnit = 0x30
	UnitNewton     ForceUnit = 0x31
	UnitTonne      ForceUnit = 0x32
	UnitKilogram   ForceUnit = 0x33
)

var newtonsPer = map[ForceUnit]float64{
	UnitKilonewton: 1000,
	UnitNewton:     1,
	UnitTonne:      1000 * StandardGravity,
	UnitKilogram:   StandardGravity,
}

func (u ForceUnit) String() string {
	switch u {
	case UnitKilonewton:
		return "kN"
	case UnitNewton:
		return "N"
	case UnitTonne:
		return "tf"
	case UnitKilogram:
		return "kgf"
	default:
		return fmt.Sprintf("ForceUnit(0x%02X)", byte(u))
	}
}

// splitUnitCode separates a unit code into its unit and overload flag.
func splitUnitCode(code byte) (ForceUnit, bool, error) {
	overload := code >= byte(UnitKilonewton)+overloadShift
	u := ForceUnit(code)
	if overload {
		u = ForceUnit(code - overloadShift)
	}
	if _, ok := newtonsPer[u]; !ok {
		return 0, false, fmt.Errorf("%w: unknown unit code 0x%02X", instr.ErrFrame, code)
	}

	return u, overload, nil
}

// ranges maps range codes to the full scale of the instrument.
var ranges = [...]float64{
	2000, 3000, 4000, 5000, 6000, 8000, 10000, 15000, 20000, 30000,
	40000, 50000, 60000, 80000, 100000, 150000, 200000, 300000, 400000, 500000,
}

// RangeFromCode returns the full scale for a range code, or 0 when unknown.
func RangeFromCode(code byte) float64 {
	if int(code) < len(ranges) {
		return ranges[code]
	}

	return 0
}

// Frame is a decoded measurement frame.
type Frame struct {
	// Value is the reading in Unit.
	Value     float64
	Unit      ForceUnit
	Overload  bool
	RangeCode byte
	// Decimals is the number of digits after the decimal point.
	Decimals int
}

// Newtons converts the reading to newtons.
func (f Frame) Newtons() float64 {
	return f.Value * newtonsPer[f.Unit]
}

// DecodeFrame decodes an 11-byte measurement frame.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < FrameLen {
		return Frame{}, fmt.Errorf("%w: frame of %d bytes, need %d", instr.ErrFrame, len(b), FrameLen)
	}
	if b[0] != SyncByte {
		return Frame{}, fmt.Errorf("%w: frame starts with 0x%02X, not sync", instr.ErrFrame, b[0])
	}

	digits := string(b[digitsOff : digitsOff+numDigits])
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Frame{}, fmt.Errorf("%w: digits %q", instr.ErrFrame, digits)
		}
	}

	point := int(b[pointOff]) - '0'
	if point < 0 || point > numDigits {
		return Frame{}, fmt.Errorf("%w: decimal point position 0x%02X", instr.ErrFrame, b[pointOff])
	}

	v, err := strconv.ParseFloat(digits[:point]+"."+digits[point:], 64)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: value %q: %w", instr.ErrFrame, digits, err)
	}
	if b[1] == '-' {
		v = -v
	}

	unit, overload, err := splitUnitCode(b[unitOff])
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Value:     v,
		Unit:      unit,
		Overload:  overload,
		RangeCode: b[rangeOff],
		Decimals:  numDigits - point,
	}, nil
}

// EncodeFrame renders f as the instrument would send it. The magnitude must
// fit six digits at the given number of decimals.
func EncodeFrame(f Frame) ([]byte, error) {
	if f.Decimals < 0 || f.Decimals > numDigits {
		return nil, fmt.Errorf("%w: %d decimals", instr.ErrRange, f.Decimals)
	}
	if _, ok := newtonsPer[f.Unit]; !ok {
		return nil, fmt.Errorf("%w: unit %s", instr.ErrRange, f.Unit)
	}

	scaled := math.Round(math.Abs(f.Value) * math.Pow10(f.Decimals))
	if scaled >= 1e6 {
		return nil, fmt.Errorf("%w: %v does not fit %d digits with %d decimals", instr.ErrRange, f.Value, numDigits, f.Decimals)
	}

	b := make([]byte, 0, FrameLen)
	b = append(b, SyncByte)
	if f.Value < 0 && scaled > 0 {
		b = append(b, '-')
	} else {
		b = append(b, ' ')
	}
	b = append(b, fmt.Sprintf("%06d", int64(scaled))...)
	b = append(b, byte('0'+numDigits-f.Decimals))

	code := byte(f.Unit)
	if f.Overload {
		code += overloadShift
	}
	b = append(b, code, f.RangeCode)

	return b, nil
}

func (f Frame) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatFloat(f.Value, 'f', f.Decimals, 64))
	sb.WriteByte(' ')
	sb.WriteString(f.Unit.String())
	if f.Overload {
		sb.WriteString(" (overload)")
	}

	return sb.String()
}
