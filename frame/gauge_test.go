package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/instr"
)

func TestEncodeGauge_Layout(t *testing.T) {
	pkt, err := EncodeGauge(0x01, nil)
	require.NoError(t, err)

	want := []byte{0xFF, 0xFF, 0xFF, 0x82, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x01, 0x00}
	assert.Equal(t, want, pkt[:GaugeHeaderLen])
	assert.Len(t, pkt, GaugeMinLen)
}

func TestGaugeChecksum_XOR(t *testing.T) {
	payload := []byte{0x02, 0x01, 0x01, 0x00}
	pkt, err := EncodeGauge(0x01, payload)
	require.NoError(t, err)

	var x byte
	for _, c := range pkt[3 : len(pkt)-1] {
		x ^= c
	}
	assert.Equal(t, x, pkt[len(pkt)-1], "checksum is the XOR from the start byte through the payload")

	// 0x82 ^ FF^FF^FF^FF ^ 00 ^ 01 ^ 04 ^ 02 ^ 01 ^ 01 ^ 00
	assert.Equal(t, byte(0x82^0x01^0x04^0x02^0x01^0x01), pkt[len(pkt)-1])
}

func TestGauge_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{0x02, 0x01, 0x01, 0x00},
		{0x00, 0x00, 0x0C, 0x42, 0xC8, 0x00, 0x00},
		make([]byte, GaugeMaxPayload),
	}

	for _, p := range payloads {
		pkt, err := EncodeGauge(0x01, p)
		require.NoError(t, err)

		n, err := GaugeFrameLen(pkt[:GaugeHeaderLen])
		require.NoError(t, err)
		assert.Equal(t, len(pkt), n)

		got, err := ValidateGauge(0x01, pkt)
		require.NoError(t, err)
		if len(p) == 0 {
			assert.Empty(t, got)
		} else {
			assert.Equal(t, p, got)
		}
	}
}

func TestGauge_BitFlipDetected(t *testing.T) {
	pkt, err := EncodeGauge(0x01, []byte{0x00, 0x00, 0x0C, 0x42, 0xC8, 0x00, 0x00})
	require.NoError(t, err)

	for i := GaugeHeaderLen; i < len(pkt)-1; i++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), pkt...)
			corrupt[i] ^= 1 << bit

			_, err := ValidateGauge(0x01, corrupt)
			assert.ErrorIs(t, err, instr.ErrFrame, "byte %d bit %d", i, bit)
		}
	}
}

func TestValidateGauge_Structure(t *testing.T) {
	pkt, _ := EncodeGauge(0x01, []byte{1, 2, 3})

	_, err := ValidateGauge(0x02, pkt)
	assert.ErrorIs(t, err, instr.ErrFrame, "wrong command")

	_, err = ValidateGauge(0x01, pkt[:len(pkt)-1])
	assert.ErrorIs(t, err, instr.ErrFrame, "length mismatch")

	_, err = ValidateGauge(0x01, append(pkt, 0x00))
	assert.ErrorIs(t, err, instr.ErrFrame, "trailing byte")

	_, err = ValidateGauge(0x01, pkt[:5])
	assert.ErrorIs(t, err, instr.ErrFrame, "too short")

	_, err = GaugeFrameLen(pkt[:4])
	assert.ErrorIs(t, err, instr.ErrFrame)
}
