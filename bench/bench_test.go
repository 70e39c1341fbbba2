package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/device/chamber"
	"github.com/arloliu/go-benchio/device/dynamometer"
	"github.com/arloliu/go-benchio/device/gauge"
	"github.com/arloliu/go-benchio/device/regulator"
	"github.com/arloliu/go-benchio/device/thermometer"
	"github.com/arloliu/go-benchio/device/thermostat"
	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/logger"
)

func emulatedConfig(t *testing.T) *Config {
	t.Helper()

	cfg, err := LoadConfig(writeConfig(t, `
emulator:
  delay: 0s
chamber: {enabled: true, emulate: true}
gauge: {enabled: true, emulate: true}
regulator: {enabled: true, emulate: true}
thermostat: {enabled: true, emulate: true}
thermometer: {enabled: true, emulate: true}
dynamometer: {enabled: true, emulate: true}
`))
	require.NoError(t, err)

	return cfg
}

func TestNew_Emulated(t *testing.T) {
	b, err := New(emulatedConfig(t), nil)
	require.NoError(t, err)

	assert.IsType(t, &chamber.Emulator{}, b.Chamber)
	assert.IsType(t, &gauge.Emulator{}, b.Gauge)
	assert.IsType(t, &regulator.Emulator{}, b.Regulator)
	assert.IsType(t, &thermostat.Emulator{}, b.Thermostat)
	assert.IsType(t, &thermometer.Emulator{}, b.Thermometer)
	assert.IsType(t, &dynamometer.Emulator{}, b.Dynamometer)
	assert.Equal(t, []string{"chamber", "gauge", "regulator", "thermostat", "thermometer", "dynamometer"}, b.Names())
}

func TestNew_Drivers(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	ml := logger.NewMockLogger().AllowAll()
	b, err := New(cfg, ml)
	require.NoError(t, err)
	ml.AssertCalled(t, "With", []any{"component", "bench"})

	assert.IsType(t, &chamber.Driver{}, b.Chamber)
	assert.IsType(t, &gauge.Emulator{}, b.Gauge)
	assert.IsType(t, &thermostat.Driver{}, b.Thermostat)
	assert.IsType(t, &dynamometer.Driver{}, b.Dynamometer)

	reg, ok := b.Regulator.(*regulator.Driver)
	require.True(t, ok)
	assert.InDelta(t, 0.5, reg.FullScale(), 1e-12)
}

func TestNew_Disabled(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "gauge:\n  enabled: true\n  emulate: true\n"))
	require.NoError(t, err)

	b, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, b.Chamber)
	assert.Nil(t, b.Thermostat)
	assert.NotNil(t, b.Gauge)
	assert.Equal(t, []string{"gauge"}, b.Names())
}

func TestNew_InvalidOption(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "thermostat:\n  enabled: true\n  address: \"not valid!\"\n"))
	require.NoError(t, err)

	_, err = New(cfg, nil)
	assert.Error(t, err)

	_, err = New(nil, nil)
	assert.Error(t, err)
}

func TestBench_Snapshot(t *testing.T) {
	ml := logger.NewMockLogger().AllowAll()
	b, err := New(emulatedConfig(t), ml)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Open(ctx))
	defer func() { assert.NoError(t, b.Close()) }()
	assert.Len(t, ml.Messages("Info"), 6)

	require.NoError(t, b.Thermostat.SetupTemperature(ctx, 40))
	require.NoError(t, b.Regulator.SetPressure(ctx, 0.3))

	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)

	require.NotNil(t, snap.Chamber)
	require.NotNil(t, snap.GaugePressure)
	assert.Equal(t, instr.UnitPascal, snap.GaugePressure.Unit)
	require.NotNil(t, snap.RegulatorPressure)
	assert.InDelta(t, 0.3, snap.RegulatorPressure.Value, 0.001)
	require.NotNil(t, snap.BathTemperature)
	assert.InDelta(t, 40*thermostat.SettleRatio, snap.BathTemperature.Value, 1e-9)
	require.NotNil(t, snap.Thermometer)
	assert.InDelta(t, 20, snap.Thermometer.Temperature, 1e-9)
	require.NotNil(t, snap.Force)
	assert.Zero(t, snap.Force.Force)
	assert.WithinDuration(t, time.Now(), snap.At, time.Minute)
}

func TestBench_SnapshotCancelled(t *testing.T) {
	cfg := emulatedConfig(t)
	cfg.Emulator.Delay = time.Second
	cfg.Chamber.Enabled = false
	cfg.Thermostat.Enabled = false

	b, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap, err := b.Snapshot(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, instr.ErrCancelled)
	assert.Contains(t, err.Error(), "bench: read gauge")
	assert.Nil(t, snap.GaugePressure)
	assert.Nil(t, snap.Force)
}

func TestBench_OpenRollsBack(t *testing.T) {
	cfg := emulatedConfig(t)
	cfg.Dynamometer.Emulate = false
	cfg.Dynamometer.Port = "/nonexistent/benchio-tty"

	b, err := New(cfg, nil)
	require.NoError(t, err)

	err = b.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, instr.ErrOpen)
	assert.Contains(t, err.Error(), "bench: open dynamometer")
	assert.Empty(t, b.opened)
	assert.NoError(t, b.Close())
}
