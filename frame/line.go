package frame

import "strings"

// CRLF terminates the command lines of the regulator family.
const CRLF = "\r\n"

// Line returns s terminated by CRLF.
func Line(s string) []byte {
	return []byte(s + CRLF)
}

// TrimLine strips line terminators and padding from a received line.
func TrimLine(b []byte) string {
	return strings.Trim(string(b), " \r\n\x00")
}
