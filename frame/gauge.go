package frame

import (
	"fmt"

	"github.com/arloliu/go-benchio/instr"
)

// Gauge packet layout:
//
//	[0:3]   preamble FF FF FF
//	[3]     start byte
//	[4:8]   address
//	[8]     reserved, 0
//	[9]     command
//	[10]    payload length
//	[11:n]  payload
//	[n]     XOR of bytes [3:n]
const (
	GaugeStartByte byte = 0x82

	// GaugeHeaderLen is the number of bytes up to and including the length byte.
	GaugeHeaderLen = 11
	// GaugeMinLen is the length of a packet without payload.
	GaugeMinLen = GaugeHeaderLen + 1
	// GaugeMaxPayload is the largest payload a packet can carry.
	GaugeMaxPayload = 255

	gaugeXORStart = 3
	gaugeCmdIdx   = 9
	gaugeLenIdx   = 10
)

// GaugeBroadcastAddress addresses any gauge on the line.
var GaugeBroadcastAddress = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}

// GaugeChecksum XORs b from the start byte onward. b must start with the
// preamble and must not include the checksum.
func GaugeChecksum(b []byte) byte {
	var x byte
	for i := gaugeXORStart; i < len(b); i++ {
		x ^= b[i]
	}

	return x
}

// EncodeGauge builds a request to the broadcast address.
func EncodeGauge(cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > GaugeMaxPayload {
		return nil, fmt.Errorf("%w: gauge payload of %d bytes exceeds %d", instr.ErrFrame, len(payload), GaugeMaxPayload)
	}

	pkt := make([]byte, 0, GaugeMinLen+len(payload))
	pkt = append(pkt, 0xFF, 0xFF, 0xFF, GaugeStartByte)
	pkt = append(pkt, GaugeBroadcastAddress[:]...)
	pkt = append(pkt, 0x00, cmd, byte(len(payload)))
	pkt = append(pkt, payload...)
	pkt = append(pkt, GaugeChecksum(pkt))

	return pkt, nil
}

// GaugeFrameLen returns the total packet length announced by a header of at
// least GaugeHeaderLen bytes.
func GaugeFrameLen(header []byte) (int, error) {
	if len(header) < GaugeHeaderLen {
		return 0, fmt.Errorf("%w: gauge header of %d bytes, need %d", instr.ErrFrame, len(header), GaugeHeaderLen)
	}

	return GaugeMinLen + int(header[gaugeLenIdx]), nil
}

// ValidateGauge checks pkt against the expected command and returns its payload.
// The returned payload aliases pkt.
func ValidateGauge(cmd byte, pkt []byte) ([]byte, error) {
	if len(pkt) < GaugeMinLen {
		return nil, fmt.Errorf("%w: gauge packet of %d bytes, min %d", instr.ErrFrame, len(pkt), GaugeMinLen)
	}
	if want := GaugeMinLen + int(pkt[gaugeLenIdx]); want != len(pkt) {
		return nil, fmt.Errorf("%w: gauge length byte announces %d bytes, packet has %d", instr.ErrFrame, want, len(pkt))
	}
	if x := GaugeChecksum(pkt); x != 0 {
		return nil, fmt.Errorf("%w: gauge checksum mismatch, residue 0x%02X", instr.ErrFrame, x)
	}
	if pkt[gaugeCmdIdx] != cmd {
		return nil, fmt.Errorf("%w: gauge answered command 0x%02X, expected 0x%02X", instr.ErrFrame, pkt[gaugeCmdIdx], cmd)
	}

	return pkt[GaugeHeaderLen : len(pkt)-1], nil
}
