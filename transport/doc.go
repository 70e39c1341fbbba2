// Package transport provides the cancellable byte channels the instrument
// drivers talk through, and the deadline-bounded reads they use to collect
// responses.
//
// A Handle wraps one Port acquired from an Opener. Serial ports are opened
// with go.bug.st/serial (NewSerialOpener), USB-HID report channels with
// gousb (NewHIDOpener). A Handle is exclusively owned by one driver, and at
// most one Handle per device identifier may be open in the process at a time.
//
// Ports follow the poll convention of go.bug.st/serial with a read timeout:
// Read returns (0, nil) when no byte arrived within the poll interval. The
// readers in this package build rolling deadlines on top of that.
package transport
