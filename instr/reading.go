package instr

import (
	"fmt"
	"math"
	"time"
)

// Unit identifies the engineering unit a Reading was decoded under.
type Unit uint8

const (
	UnitUnknown Unit = iota
	UnitPascal
	UnitKilopascal
	UnitMegapascal
	UnitKgfPerCm2
	UnitKgfPerM2
	UnitAtmosphere
	UnitMmHg
	UnitMmH2O
	UnitBar
	UnitCelsius
	UnitPercent
	UnitOhm
	UnitNewton
)

var unitNames = map[Unit]string{
	UnitUnknown:    "?",
	UnitPascal:     "Pa",
	UnitKilopascal: "kPa",
	UnitMegapascal: "MPa",
	UnitKgfPerCm2:  "kgf/cm2",
	UnitKgfPerM2:   "kgf/m2",
	UnitAtmosphere: "atm",
	UnitMmHg:       "mmHg",
	UnitMmH2O:      "mmH2O",
	UnitBar:        "bar",
	UnitCelsius:    "°C",
	UnitPercent:    "%",
	UnitOhm:        "Ohm",
	UnitNewton:     "N",
}

func (u Unit) String() string {
	if s, ok := unitNames[u]; ok {
		return s
	}

	return fmt.Sprintf("Unit(%d)", uint8(u))
}

// pascalsPer holds the factor converting one unit of pressure into pascals.
var pascalsPer = map[Unit]float64{
	UnitPascal:     1,
	UnitKilopascal: 1e3,
	UnitMegapascal: 1e6,
	UnitKgfPerCm2:  98066.5,
	UnitKgfPerM2:   9.80665,
	UnitAtmosphere: 101325,
	UnitMmHg:       133.322387415,
	UnitMmH2O:      9.80665,
	UnitBar:        1e5,
}

// IsPressure reports whether u is a pressure unit.
func (u Unit) IsPressure() bool {
	_, ok := pascalsPer[u]
	return ok
}

// Reading is a decoded engineering-unit value.
type Reading struct {
	Value float64
	Unit  Unit
}

func (r Reading) String() string {
	return fmt.Sprintf("%g %s", r.Value, r.Unit)
}

// Pascals converts a pressure reading to pascals.
// It returns ErrRange when the reading is not a pressure.
func (r Reading) Pascals() (float64, error) {
	k, ok := pascalsPer[r.Unit]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a pressure unit", ErrRange, r.Unit)
	}

	return r.Value * k, nil
}

// ChamberState is the current condition reported by a thermal chamber.
type ChamberState struct {
	Temperature int8  // °C
	Humidity    uint8 // %RH
	Progress    uint8 // program progress, %
}

// ThermometerReading is one sample of a contact thermometer.
type ThermometerReading struct {
	Resistance  float64 // Ohm
	Temperature float64 // °C
}

// ForceReading is one sample of a dynamometer, converted to newtons.
type ForceReading struct {
	Force    float64
	Overload bool
	// Range is the full-scale range of the instrument in newtons, 0 if unknown.
	Range float64
	At    time.Time
}

// Callendar-Van Dusen coefficients of an IEC 60751 Pt100 sensor.
const (
	pt100R0 = 100.0
	pt100A  = 3.9083e-3
	pt100B  = -5.775e-7
	pt100C  = -4.183e-12
)

// Pt100 returns the resistance of a Pt100 sensor at t °C.
func Pt100(t float64) float64 {
	r := pt100R0 * (1 + pt100A*t + pt100B*t*t)
	if t < 0 {
		r += pt100R0 * pt100C * (t - 100) * math.Pow(t, 3)
	}

	return r
}
