package chamber

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/arloliu/go-benchio/instr"
)

// Current parameters payload (command 0x01). Bytes before offset 10 are not
// interpreted.
const (
	paramsTemperatureOff = 10 // int8, °C
	paramsHumidityOff    = 11 // uint8, %RH
	paramsProgressOff    = 12 // uint8, %
	// ParamsMinLen is the shortest accepted current parameters payload.
	ParamsMinLen = 13
)

// Time scheme block (commands 0x04 and 0x05):
//
//	[0:2]        repeat count, uint16 little endian
//	[2+7i]       used flag
//	[2+7i+1]     temperature, int8
//	[2+7i+2]     humidity, int8
//	[2+7i+3:+5]  minutes to reach, uint16 little endian
//	[2+7i+5:+7]  minutes to hold, uint16 little endian
const (
	schemeEntriesOff = 2
	schemeEntrySize  = 7
	// SchemeLen is the size of the time scheme block.
	SchemeLen = schemeEntriesOff + instr.MaxSchemeEntries*schemeEntrySize
)

// Setup block (command 0x14), 15 bytes. Times are big endian.
const (
	setupHeatTimeOff = 7
	setupCoolTimeOff = 9
	setupFlagHumOff  = 11
	// SetupLen is the size of the setup block.
	SetupLen = 15
)

// ClockLen is the size of the clock payload: second, minute, hour, day, month, year % 100.
const ClockLen = 6

// DecodeCurrentParams decodes the current parameters payload.
func DecodeCurrentParams(b []byte) (instr.ChamberState, error) {
	if len(b) < ParamsMinLen {
		return instr.ChamberState{}, fmt.Errorf("%w: current parameters payload of %d bytes, min %d", instr.ErrFrame, len(b), ParamsMinLen)
	}

	return instr.ChamberState{
		Temperature: int8(b[paramsTemperatureOff]),
		Humidity:    b[paramsHumidityOff],
		Progress:    b[paramsProgressOff],
	}, nil
}

// EncodeTimeScheme renders s as a time scheme block. Unused slots are zero.
func EncodeTimeScheme(s instr.TimeScheme) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	b := make([]byte, SchemeLen)
	binary.LittleEndian.PutUint16(b[0:2], s.Repeat)
	for i, e := range s.Entries {
		off := schemeEntriesOff + i*schemeEntrySize
		if e.Used {
			b[off] = 1
		}
		b[off+1] = byte(e.Temperature)
		b[off+2] = byte(e.Humidity)
		binary.LittleEndian.PutUint16(b[off+3:off+5], e.MinutesToReach)
		binary.LittleEndian.PutUint16(b[off+5:off+7], e.MinutesToHold)
	}

	return b, nil
}

// DecodeTimeScheme decodes a time scheme block into all of its slots.
func DecodeTimeScheme(b []byte) (instr.TimeScheme, error) {
	if len(b) < SchemeLen {
		return instr.TimeScheme{}, fmt.Errorf("%w: time scheme payload of %d bytes, need %d", instr.ErrFrame, len(b), SchemeLen)
	}

	s := instr.TimeScheme{
		Repeat:  binary.LittleEndian.Uint16(b[0:2]),
		Entries: make([]instr.TimeSchemeEntry, instr.MaxSchemeEntries),
	}
	for i := range s.Entries {
		off := schemeEntriesOff + i*schemeEntrySize
		s.Entries[i] = instr.TimeSchemeEntry{
			Used:           b[off] != 0,
			Temperature:    int8(b[off+1]),
			Humidity:       int8(b[off+2]),
			MinutesToReach: binary.LittleEndian.Uint16(b[off+3 : off+5]),
			MinutesToHold:  binary.LittleEndian.Uint16(b[off+5 : off+7]),
		}
	}

	return s, nil
}

// EncodeSetup renders the setup block.
func EncodeSetup(s instr.ChamberSetup) []byte {
	b := []byte{
		byte(s.TemperatureHigh),
		byte(s.TemperatureLow),
		byte(s.TemperatureDelta),
		byte(s.TemperatureDeadZone),
		byte(s.TemperatureCorr),
		byte(s.TemperatureSound),
		byte(s.CoolerOffDelay),
		0, 0, // heat time
		0, 0, // cool time
		0, // humidity flag
		byte(s.HumidityDelta),
		byte(s.HumidityDeadZone),
		byte(s.HumidityCorr),
	}
	binary.BigEndian.PutUint16(b[setupHeatTimeOff:], s.HeatTime)
	binary.BigEndian.PutUint16(b[setupCoolTimeOff:], s.CoolTime)
	if s.HumidityEnabled {
		b[setupFlagHumOff] = 1
	}

	return b
}

// DecodeSetup is the inverse of EncodeSetup.
func DecodeSetup(b []byte) (instr.ChamberSetup, error) {
	if len(b) < SetupLen {
		return instr.ChamberSetup{}, fmt.Errorf("%w: setup payload of %d bytes, need %d", instr.ErrFrame, len(b), SetupLen)
	}

	return instr.ChamberSetup{
		TemperatureHigh:     int8(b[0]),
		TemperatureLow:      int8(b[1]),
		TemperatureDelta:    int8(b[2]),
		TemperatureDeadZone: int8(b[3]),
		TemperatureCorr:     int8(b[4]),
		TemperatureSound:    int8(b[5]),
		CoolerOffDelay:      int8(b[6]),
		HeatTime:            binary.BigEndian.Uint16(b[setupHeatTimeOff:]),
		CoolTime:            binary.BigEndian.Uint16(b[setupCoolTimeOff:]),
		HumidityEnabled:     b[setupFlagHumOff] != 0,
		HumidityDelta:       int8(b[12]),
		HumidityDeadZone:    int8(b[13]),
		HumidityCorr:        int8(b[14]),
	}, nil
}

// EncodeClock renders t as a clock payload.
func EncodeClock(t time.Time) []byte {
	return []byte{
		byte(t.Second()),
		byte(t.Minute()),
		byte(t.Hour()),
		byte(t.Day()),
		byte(t.Month()),
		byte(t.Year() % 100),
	}
}
