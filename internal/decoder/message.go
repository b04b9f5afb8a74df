package decoder

import (
	"bytes"
	"encoding/hex"
)

var (
	bytesOpen  = []byte("<Bytes>")
	bytesClose = []byte("</Bytes>")
)

// MessageText unwraps a <Bytes>...</Bytes> wrapped message and reports
// whether the result is printable ASCII. Non-ASCII messages are returned
// as 0x-prefixed hex.
func MessageText(msg []byte) (string, bool) {
	if bytes.HasPrefix(msg, bytesOpen) && bytes.HasSuffix(msg, bytesClose) && len(msg) >= len(bytesOpen)+len(bytesClose) {
		msg = msg[len(bytesOpen) : len(msg)-len(bytesClose)]
	}
	if isASCII(msg) {
		return string(msg), true
	}
	return "0x" + hex.EncodeToString(msg), false
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' || c > 0x7e {
			return false
		}
	}
	return true
}
