package instr

import "fmt"

// MaxSchemeEntries is the number of steps a thermal chamber program can hold.
const MaxSchemeEntries = 9

// TimeSchemeEntry is one step of a thermal chamber program.
type TimeSchemeEntry struct {
	Used           bool
	Temperature    int8 // °C
	Humidity       int8 // %RH
	MinutesToReach uint16
	MinutesToHold  uint16
}

// TimeScheme is a complete thermal chamber program: the step sequence and the
// number of times it is repeated. It is always written and read as a whole.
type TimeScheme struct {
	Repeat  uint16
	Entries []TimeSchemeEntry
}

// Validate checks that the scheme fits the chamber program memory.
func (s TimeScheme) Validate() error {
	if len(s.Entries) > MaxSchemeEntries {
		return fmt.Errorf("%w: time scheme has %d entries, max %d", ErrRange, len(s.Entries), MaxSchemeEntries)
	}

	return nil
}

// Clone returns a deep copy of the scheme.
func (s TimeScheme) Clone() TimeScheme {
	out := TimeScheme{Repeat: s.Repeat}
	if s.Entries != nil {
		out.Entries = make([]TimeSchemeEntry, len(s.Entries))
		copy(out.Entries, s.Entries)
	}

	return out
}
