package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-benchio/instr"
)

// ASCII operations.
const (
	OpRead  = "RD"
	OpWrite = "WR"
)

// ASCIIRequest is one command line of the ASCII family:
//
//	:<address> <command>[.<parameter>[.<subparameter>]] <RD|WR> <value>\n
type ASCIIRequest struct {
	Address      string
	Command      string
	Parameter    string
	SubParameter string
	Write        bool
	Value        string
}

func (r ASCIIRequest) op() string {
	if r.Write {
		return OpWrite
	}

	return OpRead
}

// Target returns the command with its parameter path, e.g. "PRG.TEMP.1".
func (r ASCIIRequest) Target() string {
	var sb strings.Builder
	sb.WriteString(r.Command)
	if r.Parameter != "" {
		sb.WriteByte('.')
		sb.WriteString(r.Parameter)
		if r.SubParameter != "" {
			sb.WriteByte('.')
			sb.WriteString(r.SubParameter)
		}
	}

	return sb.String()
}

func validToken(s string, allowEmpty bool) bool {
	if s == "" {
		return allowEmpty
	}

	return !strings.ContainsAny(s, " .:\r\n\x00")
}

// EncodeASCII renders r as a request line. The value is always emitted, so a
// read request ends in " RD \n".
func EncodeASCII(r ASCIIRequest) ([]byte, error) {
	switch {
	case !validToken(r.Address, false):
		return nil, fmt.Errorf("%w: invalid address %q", instr.ErrFrame, r.Address)
	case !validToken(r.Command, false):
		return nil, fmt.Errorf("%w: invalid command %q", instr.ErrFrame, r.Command)
	case !validToken(r.Parameter, true), !validToken(r.SubParameter, true):
		return nil, fmt.Errorf("%w: invalid parameter path %q", instr.ErrFrame, r.Target())
	case r.Parameter == "" && r.SubParameter != "":
		return nil, fmt.Errorf("%w: subparameter %q without parameter", instr.ErrFrame, r.SubParameter)
	case strings.ContainsAny(r.Value, " \r\n\x00"):
		return nil, fmt.Errorf("%w: invalid value %q", instr.ErrFrame, r.Value)
	}

	return []byte(":" + r.Address + " " + r.Target() + " " + r.op() + " " + r.Value + "\n"), nil
}

// ParseASCIIRequest parses a request line produced by EncodeASCII.
func ParseASCIIRequest(b []byte) (ASCIIRequest, error) {
	line := strings.TrimRight(string(b), "\x00")
	if !strings.HasPrefix(line, ":") || !strings.HasSuffix(line, "\n") {
		return ASCIIRequest{}, fmt.Errorf("%w: request %q is not a ':'...'\\n' line", instr.ErrFrame, line)
	}

	fields := strings.Split(strings.TrimSuffix(line[1:], "\n"), " ")
	if len(fields) != 4 {
		return ASCIIRequest{}, fmt.Errorf("%w: request %q has %d fields, want 4", instr.ErrFrame, line, len(fields))
	}

	var r ASCIIRequest
	r.Address, r.Value = fields[0], fields[3]

	path := strings.SplitN(fields[1], ".", 3)
	r.Command = path[0]
	if len(path) > 1 {
		r.Parameter = path[1]
	}
	if len(path) > 2 {
		r.SubParameter = path[2]
	}

	switch fields[2] {
	case OpRead:
	case OpWrite:
		r.Write = true
	default:
		return ASCIIRequest{}, fmt.Errorf("%w: unknown operation %q", instr.ErrFrame, fields[2])
	}

	if r.Address == "" || r.Command == "" {
		return ASCIIRequest{}, fmt.Errorf("%w: request %q misses address or command", instr.ErrFrame, line)
	}

	return r, nil
}

// ASCIIResponse is a successful reply line.
type ASCIIResponse struct {
	Echo  string
	Value string
}

// Status codes of the ASCII family.
const (
	StatusOK               byte = 0x00
	StatusBadRequest       byte = 0x01
	StatusBadValue         byte = 0x02
	StatusUnknownAddress   byte = 0x03
	StatusUnknownOperation byte = 0x04
	StatusOutOfRange       byte = 0x05
	StatusUnavailableOff   byte = 0x06
)

// StatusFault maps a status code to its fault category.
func StatusFault(code byte) instr.Fault {
	switch code {
	case StatusOK:
		return instr.FaultNone
	case StatusBadRequest:
		return instr.FaultBadRequest
	case StatusBadValue:
		return instr.FaultBadValue
	case StatusUnknownAddress:
		return instr.FaultUnknownAddress
	case StatusUnknownOperation:
		return instr.FaultUnknownOperation
	case StatusOutOfRange:
		return instr.FaultOutOfRange
	case StatusUnavailableOff:
		return instr.FaultUnavailableWhileOff
	default:
		return instr.FaultUnknownStatus
	}
}

const lineTrim = "\r\n\x00"

// ParseASCIIResponse decodes a reply line "<echo> <0xNN> [value]".
//
// A malformed line fails with instr.ErrFrame; a non-zero status returns a
// *instr.StatusError.
func ParseASCIIResponse(b []byte) (ASCIIResponse, error) {
	line := strings.TrimRight(string(b), lineTrim)

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ASCIIResponse{}, fmt.Errorf("%w: response %q has no status", instr.ErrFrame, line)
	}

	code, err := parseStatus(fields[1])
	if err != nil {
		return ASCIIResponse{}, fmt.Errorf("%w: response %q: %w", instr.ErrFrame, line, err)
	}
	if code != StatusOK {
		return ASCIIResponse{}, &instr.StatusError{Code: code, Fault: StatusFault(code)}
	}

	resp := ASCIIResponse{Echo: fields[0]}
	if len(fields) > 2 {
		resp.Value = strings.Trim(fields[2], lineTrim)
	}

	return resp, nil
}

// EncodeASCIIResponse renders a reply line, as sent by the device.
func EncodeASCIIResponse(echo string, code byte, value string) []byte {
	s := fmt.Sprintf("%s 0x%02X", echo, code)
	if value != "" {
		s += " " + value
	}

	return []byte(s + "\r\n")
}

func parseStatus(tok string) (byte, error) {
	tok = strings.ToLower(tok)
	if !strings.HasPrefix(tok, "0x") {
		return 0, fmt.Errorf("status %q is not hex", tok)
	}

	v, err := strconv.ParseUint(tok[2:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("status %q: %w", tok, err)
	}

	return byte(v), nil
}
