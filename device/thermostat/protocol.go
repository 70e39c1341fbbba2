package thermostat

import (
	"fmt"
	"strconv"

	"github.com/arloliu/go-benchio/instr"
	"github.com/arloliu/go-benchio/transport"
)

// USB identity of the thermostat HID interface.
const (
	VendorID  = 0xFFFF
	ProductID = 0x0003
)

// DefaultDeviceID selects the first thermostat on the bus.
var DefaultDeviceID = transport.USBID{VID: VendorID, PID: ProductID}.String()

// BroadcastAddress is answered by any thermostat.
const BroadcastAddress = "00000000"

// ReportSize is the fixed HID report length.
const ReportSize = 64

// Commands and parameters.
const (
	CmdRun = "RUN"
	CmdPrg = "PRG"
	CmdMod = "MOD"
	CmdDat = "DAT"
	CmdRtc = "RTC"
	CmdFsw = "FSW"
	CmdFlu = "FLU"

	ParamPrgTemp = "TEMP"
	ParamPrgTime = "TIME"
	ParamDatT    = "T"
	ParamDatR    = "R"
	ParamRtcTime = "TIME"
)

const (
	// ProgramSlots is the number of steps in a thermostat program.
	ProgramSlots = 10
	// HoldMinutes is the step duration SetupTemperature programs.
	HoldMinutes = 999
	// ClockLayout is the format of the RTC.TIME value.
	ClockLayout = "15:04"
)

func formatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func flag(on bool) string {
	if on {
		return "1"
	}

	return "0"
}

func validateProgram(steps []instr.ThermostatStep) error {
	if len(steps) > ProgramSlots {
		return fmt.Errorf("%w: program has %d steps, max %d", instr.ErrRange, len(steps), ProgramSlots)
	}
	for i, s := range steps {
		if s.Minutes < 0 {
			return fmt.Errorf("%w: step %d has negative duration %d", instr.ErrRange, i+1, s.Minutes)
		}
	}

	return nil
}

func validateFluid(f instr.Fluid) error {
	if f < instr.FluidAny || f > instr.FluidAntifreeze {
		return fmt.Errorf("%w: fluid %d", instr.ErrRange, f)
	}

	return nil
}

func validateMode(m instr.ThermostatMode) error {
	if m != instr.ModeSetpoint && m != instr.ModeProgram {
		return fmt.Errorf("%w: control mode %q", instr.ErrRange, string(m))
	}

	return nil
}
