package gauge

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/go-benchio/instr"
)

// Measurement record carried by the read-pressure response. The gauge sends
// it most significant byte first, so reversed it reads unit code then a
// little endian float:
//
//	[0:2]  status
//	[2:6]  value, IEEE 754 float32 big endian
//	[6]    unit code
const (
	recordValueOff = 2
	recordUnitOff  = 6
	// RecordLen is the size of the measurement record.
	RecordLen = 7
)

var unitCodes = map[byte]instr.Unit{
	1: instr.UnitKgfPerCm2,
	2: instr.UnitMegapascal,
	3: instr.UnitKilopascal,
	4: instr.UnitPascal,
	5: instr.UnitKgfPerM2,
	6: instr.UnitAtmosphere,
	7: instr.UnitMmHg,
	8: instr.UnitMmH2O,
	9: instr.UnitBar,
}

// UnitFromCode maps a gauge unit code to its unit.
func UnitFromCode(code byte) (instr.Unit, error) {
	u, ok := unitCodes[code]
	if !ok {
		return instr.UnitUnknown, fmt.Errorf("%w: unknown gauge unit code %d", instr.ErrFrame, code)
	}

	return u, nil
}

// CodeFromUnit is the inverse of UnitFromCode.
func CodeFromUnit(u instr.Unit) (byte, bool) {
	for c, v := range unitCodes {
		if v == u {
			return c, true
		}
	}

	return 0, false
}

// DecodeRecord decodes a measurement record into a reading in the unit the
// gauge is displaying.
func DecodeRecord(b []byte) (instr.Reading, error) {
	if len(b) < RecordLen {
		return instr.Reading{}, fmt.Errorf("%w: measurement record of %d bytes, need %d", instr.ErrFrame, len(b), RecordLen)
	}

	u, err := UnitFromCode(b[recordUnitOff])
	if err != nil {
		return instr.Reading{}, err
	}

	v := math.Float32frombits(binary.BigEndian.Uint32(b[recordValueOff:recordUnitOff]))

	return instr.Reading{Value: float64(v), Unit: u}, nil
}

// EncodeRecord renders a measurement record with zero status.
func EncodeRecord(r instr.Reading) ([]byte, error) {
	code, ok := CodeFromUnit(r.Unit)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no gauge unit code", instr.ErrRange, r.Unit)
	}

	b := make([]byte, RecordLen)
	b[recordUnitOff] = code
	binary.BigEndian.PutUint32(b[recordValueOff:recordUnitOff], math.Float32bits(float32(r.Value)))

	return b, nil
}
