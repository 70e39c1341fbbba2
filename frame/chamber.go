package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-benchio/instr"
)

// Chamber packet layout:
//
//	[0]    total packet length, checksum included
//	[1]    device type
//	[2:4]  device address, little endian
//	[4]    command
//	[5:n]  payload
//	[n]    checksum, (256 - sum of all preceding bytes) mod 256
const (
	ChamberDeviceType     byte   = 0x62
	ChamberDefaultAddress uint16 = 1

	chamberHeaderLen = 5
	// ChamberMinLen is the length of a packet without payload.
	ChamberMinLen = chamberHeaderLen + 1
	// ChamberMaxLen is the largest length the length byte can express.
	ChamberMaxLen = 255
	// ChamberMaxPayload is the largest payload a packet can carry.
	ChamberMaxPayload = ChamberMaxLen - ChamberMinLen
)

// ChamberPacket is a decoded chamber packet.
type ChamberPacket struct {
	DeviceType byte
	Address    uint16
	Command    byte
	Payload    []byte
}

// ChamberChecksum returns the checksum byte for the given bytes, which must
// not include the checksum itself.
func ChamberChecksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}

	return -sum
}

// EncodeChamber builds a chamber packet.
func EncodeChamber(devType byte, addr uint16, cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > ChamberMaxPayload {
		return nil, fmt.Errorf("%w: chamber payload of %d bytes exceeds %d", instr.ErrFrame, len(payload), ChamberMaxPayload)
	}

	n := ChamberMinLen + len(payload)
	pkt := make([]byte, n)
	pkt[0] = byte(n)
	pkt[1] = devType
	binary.LittleEndian.PutUint16(pkt[2:4], addr)
	pkt[4] = cmd
	copy(pkt[chamberHeaderLen:], payload)
	pkt[n-1] = ChamberChecksum(pkt[:n-1])

	return pkt, nil
}

// ValidateChamber checks the length byte and checksum of pkt and decodes it.
// The returned payload aliases pkt.
func ValidateChamber(pkt []byte) (ChamberPacket, error) {
	if len(pkt) < ChamberMinLen {
		return ChamberPacket{}, fmt.Errorf("%w: chamber packet of %d bytes, min %d", instr.ErrFrame, len(pkt), ChamberMinLen)
	}
	if int(pkt[0]) != len(pkt) {
		return ChamberPacket{}, fmt.Errorf("%w: chamber length byte %d, packet has %d bytes", instr.ErrFrame, pkt[0], len(pkt))
	}

	var sum byte
	for _, c := range pkt {
		sum += c
	}
	if sum != 0 {
		return ChamberPacket{}, fmt.Errorf("%w: chamber checksum mismatch, residue 0x%02X", instr.ErrFrame, sum)
	}

	return ChamberPacket{
		DeviceType: pkt[1],
		Address:    binary.LittleEndian.Uint16(pkt[2:4]),
		Command:    pkt[4],
		Payload:    pkt[chamberHeaderLen : len(pkt)-1],
	}, nil
}
