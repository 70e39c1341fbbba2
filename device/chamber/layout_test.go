package chamber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/instr"
)

func TestTimeScheme_RoundTrip(t *testing.T) {
	s := instr.TimeScheme{
		Repeat: 3,
		Entries: []instr.TimeSchemeEntry{
			{Used: true, Temperature: -40, Humidity: 0, MinutesToReach: 90, MinutesToHold: 600},
			{Used: true, Temperature: 85, Humidity: 85, MinutesToReach: 0xFFFF, MinutesToHold: 1},
		},
	}

	b, err := EncodeTimeScheme(s)
	require.NoError(t, err)
	require.Len(t, b, SchemeLen)

	assert.Equal(t, []byte{0x03, 0x00}, b[0:2])
	assert.Equal(t, []byte{0x01, 0xD8, 0x00, 0x5A, 0x00, 0x58, 0x02}, b[2:9])

	got, err := DecodeTimeScheme(b)
	require.NoError(t, err)
	assert.Equal(t, s.Repeat, got.Repeat)
	require.Len(t, got.Entries, instr.MaxSchemeEntries)
	assert.Equal(t, s.Entries, got.Entries[:2])
	for _, e := range got.Entries[2:] {
		assert.Equal(t, instr.TimeSchemeEntry{}, e)
	}
}

func TestTimeScheme_TooManyEntries(t *testing.T) {
	s := instr.TimeScheme{Entries: make([]instr.TimeSchemeEntry, instr.MaxSchemeEntries+1)}

	_, err := EncodeTimeScheme(s)
	assert.ErrorIs(t, err, instr.ErrRange)
}

func TestTimeScheme_ShortBlock(t *testing.T) {
	_, err := DecodeTimeScheme(make([]byte, SchemeLen-1))
	assert.ErrorIs(t, err, instr.ErrFrame)
}

func TestSetup_Layout(t *testing.T) {
	s := instr.ChamberSetup{
		TemperatureHigh:     90,
		TemperatureLow:      -45,
		TemperatureDelta:    2,
		TemperatureDeadZone: 1,
		TemperatureCorr:     -1,
		TemperatureSound:    5,
		CoolerOffDelay:      10,
		HeatTime:            0x0102,
		CoolTime:            0x0304,
		HumidityEnabled:     true,
		HumidityDelta:       3,
		HumidityDeadZone:    2,
		HumidityCorr:        0,
	}

	b := EncodeSetup(s)
	require.Len(t, b, SetupLen)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x01}, b[7:12])

	got, err := DecodeSetup(b)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestClock_Layout(t *testing.T) {
	now := time.Date(2024, time.March, 7, 13, 45, 59, 0, time.UTC)
	assert.Equal(t, []byte{59, 45, 13, 7, 3, 24}, EncodeClock(now))
}

func TestCurrentParams(t *testing.T) {
	b := make([]byte, ParamsMinLen)
	b[10], b[11], b[12] = 0xF6, 45, 80

	st, err := DecodeCurrentParams(b)
	require.NoError(t, err)
	assert.Equal(t, instr.ChamberState{Temperature: -10, Humidity: 45, Progress: 80}, st)

	_, err = DecodeCurrentParams(b[:12])
	assert.ErrorIs(t, err, instr.ErrFrame)
}
