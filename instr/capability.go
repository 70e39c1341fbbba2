package instr

import (
	"context"
	"time"
)

// Instrument is the lifecycle shared by every bench instrument.
//
// Open acquires the transport named by id, replacing any transport the
// instrument already holds. Close releases it; it is safe to call Close on an
// instrument that was never opened or is already closed.
type Instrument interface {
	Open(ctx context.Context, id string) error
	Close() error
}

// PressureRegulator is an electro-pneumatic pressure regulator.
// Pressures are expressed in megapascals.
type PressureRegulator interface {
	Instrument
	// GetPressure returns the output pressure currently measured by the regulator.
	GetPressure(ctx context.Context) (Reading, error)
	// SetPressure sets the output pressure set-point.
	SetPressure(ctx context.Context, mpa float64) error
	// ConfirmPressure reads back the set-point the regulator accepted.
	ConfirmPressure(ctx context.Context) (Reading, error)
	// Bleed drops the output pressure to zero.
	Bleed(ctx context.Context) error
	// Increase steps the set-point up by one raw count.
	Increase(ctx context.Context) error
	// Decrease steps the set-point down by one raw count.
	Decrease(ctx context.Context) error
}

// PressureGauge is a digital pressure gauge. Readings are in pascals.
type PressureGauge interface {
	Instrument
	GetPressure(ctx context.Context) (Reading, error)
}

// ChamberSetup is the block of regulation constants of a thermal chamber.
type ChamberSetup struct {
	TemperatureHigh     int8
	TemperatureLow      int8
	TemperatureDelta    int8
	TemperatureDeadZone int8
	TemperatureCorr     int8
	TemperatureSound    int8
	CoolerOffDelay      int8
	HeatTime            uint16
	CoolTime            uint16
	HumidityEnabled     bool
	HumidityDelta       int8
	HumidityDeadZone    int8
	HumidityCorr        int8
}

// ChamberIdentity is the device type and bus address a thermal chamber reports.
type ChamberIdentity struct {
	DeviceType byte
	Address    uint16
}

// ThermalChamber is a programmable temperature and humidity chamber.
type ThermalChamber interface {
	Instrument
	ReadDeviceID(ctx context.Context) (ChamberIdentity, error)
	WriteSetup(ctx context.Context, setup ChamberSetup) error
	ReadTimeScheme(ctx context.Context) (TimeScheme, error)
	WriteTimeScheme(ctx context.Context, scheme TimeScheme) error
	StartProcess(ctx context.Context) error
	StopProcess(ctx context.Context) error
	SetClock(ctx context.Context, now time.Time) error
	GetCurrentParams(ctx context.Context) (ChamberState, error)
}

// Fluid is the bath fluid a thermostat is configured for.
type Fluid uint8

const (
	FluidAny Fluid = iota + 1
	FluidWater
	FluidPMS5
	FluidPMS10
	FluidPMS20
	FluidPMS50
	FluidPMS100
	FluidEthanol
	FluidAntifreeze
)

// ThermostatMode selects how a thermostat chooses its set-point.
type ThermostatMode string

const (
	// ModeSetpoint holds a single set-point.
	ModeSetpoint ThermostatMode = "S"
	// ModeProgram runs the stored program.
	ModeProgram ThermostatMode = "P"
)

// ThermostatStep is one slot of a thermostat program.
type ThermostatStep struct {
	Temperature float64 // °C
	Minutes     int
}

// Thermostat is a precision liquid-bath thermostat.
type Thermostat interface {
	Instrument
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	// SetupTemperature brings the thermostat into program mode holding temperature.
	SetupTemperature(ctx context.Context, temperature float64) error
	SetTimeScheme(ctx context.Context, steps []ThermostatStep) error
	StartProgramMode(ctx context.Context) error
	SetControlMode(ctx context.Context, mode ThermostatMode) error
	SetFluid(ctx context.Context, fluid Fluid) error
	SetCoolingControl(ctx context.Context, enabled bool) error
	SetClock(ctx context.Context, now time.Time) error
	GetTemperature(ctx context.Context) (Reading, error)
	GetResistance(ctx context.Context) (Reading, error)
}

// Thermometer is a contact thermometer with a resistance sensor.
type Thermometer interface {
	Instrument
	Read(ctx context.Context) (ThermometerReading, error)
}

// ForceMeter is a dynamometer streaming force samples.
type ForceMeter interface {
	Instrument
	// ReadForce waits for the next complete sample.
	ReadForce(ctx context.Context) (ForceReading, error)
}
