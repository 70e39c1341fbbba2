package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-benchio/instr"
)

func TestEncodeASCII(t *testing.T) {
	tests := []struct {
		name string
		req  ASCIIRequest
		want string
	}{
		{
			name: "read without parameter",
			req:  ASCIIRequest{Address: "00000000", Command: "RUN"},
			want: ":00000000 RUN RD \n",
		},
		{
			name: "write with parameter path",
			req:  ASCIIRequest{Address: "00000000", Command: "PRG", Parameter: "TEMP", SubParameter: "1", Write: true, Value: "36.6"},
			want: ":00000000 PRG.TEMP.1 WR 36.6\n",
		},
		{
			name: "clock",
			req:  ASCIIRequest{Address: "00000000", Command: "RTC", Parameter: "TIME", Write: true, Value: "13:05"},
			want: ":00000000 RTC.TIME WR 13:05\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeASCII(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			back, err := ParseASCIIRequest(got)
			require.NoError(t, err)
			assert.Equal(t, tt.req, back, "round trip")
		})
	}
}

func TestEncodeASCII_Invalid(t *testing.T) {
	bad := []ASCIIRequest{
		{Command: "RUN"},
		{Address: "00000000"},
		{Address: "0 0", Command: "RUN"},
		{Address: "00000000", Command: "RUN", Value: "1 2"},
		{Address: "00000000", Command: "PRG", SubParameter: "1"},
		{Address: "00000000", Command: "PRG", Parameter: "A.B"},
	}

	for _, r := range bad {
		_, err := EncodeASCII(r)
		assert.ErrorIs(t, err, instr.ErrFrame, "%+v", r)
	}
}

func TestParseASCIIRequest_Invalid(t *testing.T) {
	for _, s := range []string{
		"00000000 RUN RD \n",
		":00000000 RUN RD ",
		":00000000 RUN XX 1\n",
		":00000000 RUN RD\n",
	} {
		_, err := ParseASCIIRequest([]byte(s))
		assert.ErrorIs(t, err, instr.ErrFrame, "%q", s)
	}
}

func TestParseASCIIResponse_Success(t *testing.T) {
	resp, err := ParseASCIIResponse([]byte("00000000 0x00 25.37\r\n\x00\x00\x00"))
	require.NoError(t, err)
	assert.Equal(t, "00000000", resp.Echo)
	assert.Equal(t, "25.37", resp.Value)

	resp, err = ParseASCIIResponse([]byte("00000000 0x00\r\n"))
	require.NoError(t, err)
	assert.Empty(t, resp.Value)
}

func TestParseASCIIResponse_Status(t *testing.T) {
	tests := []struct {
		code  byte
		fault instr.Fault
	}{
		{StatusBadRequest, instr.FaultBadRequest},
		{StatusBadValue, instr.FaultBadValue},
		{StatusUnknownAddress, instr.FaultUnknownAddress},
		{StatusUnknownOperation, instr.FaultUnknownOperation},
		{StatusOutOfRange, instr.FaultOutOfRange},
		{StatusUnavailableOff, instr.FaultUnavailableWhileOff},
		{0x7F, instr.FaultUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.fault.String(), func(t *testing.T) {
			_, err := ParseASCIIResponse(EncodeASCIIResponse("00000000", tt.code, ""))
			require.ErrorIs(t, err, instr.ErrProtocolStatus)
			assert.True(t, instr.IsFault(err, tt.fault))
		})
	}
}

func TestParseASCIIResponse_Malformed(t *testing.T) {
	for _, s := range []string{"", "\x00\x00", "00000000", "00000000 OK 1", "00000000 0xZZ"} {
		_, err := ParseASCIIResponse([]byte(s))
		assert.ErrorIs(t, err, instr.ErrFrame, "%q", s)
	}
}

func TestLine(t *testing.T) {
	assert.Equal(t, []byte("SET 512\r\n"), Line("SET 512"))
	assert.Equal(t, "512", TrimLine([]byte(" 512\r\n\x00")))
}
