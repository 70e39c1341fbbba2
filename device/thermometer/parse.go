package thermometer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-benchio/instr"
)

// ParseReading parses a "<resistance> <temperature>" reply. The temperature
// is printed as %6.2f by the thermometer; tokens without exactly two
// fractional digits are line noise and are rejected.
func ParseReading(s string) (instr.ThermometerReading, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return instr.ThermometerReading{}, fmt.Errorf("%w: reading %q has %d fields, want 2", instr.ErrFrame, s, len(fields))
	}

	r, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return instr.ThermometerReading{}, fmt.Errorf("%w: resistance %q is not a number", instr.ErrFrame, fields[0])
	}

	_, frac, ok := strings.Cut(fields[1], ".")
	if !ok || len(frac) != 2 {
		return instr.ThermometerReading{}, fmt.Errorf("%w: temperature %q does not have two decimals", instr.ErrFrame, fields[1])
	}

	t, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return instr.ThermometerReading{}, fmt.Errorf("%w: temperature %q is not a number", instr.ErrFrame, fields[1])
	}

	return instr.ThermometerReading{Resistance: r, Temperature: t}, nil
}

// FormatReading renders a reading the way the thermometer prints it.
func FormatReading(r instr.ThermometerReading) string {
	return fmt.Sprintf("%8.3f %6.2f", r.Resistance, r.Temperature)
}
