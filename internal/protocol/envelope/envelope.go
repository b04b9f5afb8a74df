// Package envelope strips the QR byte-mode segment framing that scanners
// hand back as a hex dump: mode nibble, length prefix, terminator and the
// alternating 0xEC/0x11 pad codewords.
package envelope

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/coldsign/internal/protocol"
)

const (
	byteModeNibble = '4'
	terminator     = '0'
	padPair        = "ec11"
	padLead        = "ec"
)

var (
	ErrEmpty     = errors.New("envelope: empty segment")
	ErrBadMode   = errors.New("envelope: not a byte-mode segment")
	ErrBadLength = errors.New("envelope: length prefix exceeds segment")
	ErrBadHex    = errors.New("envelope: invalid hex")
)

func malformed(err error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", protocol.ErrMalformedFrame, err)
	}
	return fmt.Errorf("%w: %w: %s", protocol.ErrMalformedFrame, err, detail)
}

// Strip returns the payload bytes carried by a raw byte-mode segment.
//
// Scanners read the codewords nibble-aligned, so the hex dump starts with
// the mode nibble and the payload is shifted by four bits. The length prefix
// is 8 bits for small symbol versions and 16 bits otherwise; the variant is
// chosen by whichever one matches the remaining segment length.
func Strip(rawHex string) ([]byte, error) {
	raw := strings.ToLower(strings.TrimSpace(rawHex))
	raw = strings.TrimPrefix(raw, "0x")
	if raw == "" {
		return nil, malformed(ErrEmpty, "")
	}

	raw = strings.TrimSuffix(raw, padLead)
	for strings.HasSuffix(raw, padPair) {
		raw = strings.TrimSuffix(raw, padPair)
	}

	if len(raw) < 4 || raw[0] != byteModeNibble || raw[len(raw)-1] != terminator {
		return nil, malformed(ErrBadMode, "")
	}
	raw = raw[1 : len(raw)-1]

	len8, err := strconv.ParseUint(raw[0:2], 16, 8)
	if err != nil {
		return nil, malformed(ErrBadHex, err.Error())
	}
	var length uint64
	if int(len8)*2 == len(raw)-2 {
		length = len8
		raw = raw[2:]
	} else {
		if len(raw) < 4 {
			return nil, malformed(ErrBadLength, "")
		}
		len16, err := strconv.ParseUint(raw[0:4], 16, 16)
		if err != nil {
			return nil, malformed(ErrBadHex, err.Error())
		}
		length = len16
		raw = raw[4:]
	}

	if uint64(len(raw)) < length*2 {
		return nil, malformed(ErrBadLength, fmt.Sprintf("want=%d have=%d", length, len(raw)/2))
	}
	out, err := hex.DecodeString(raw[:length*2])
	if err != nil {
		return nil, malformed(ErrBadHex, err.Error())
	}
	return out, nil
}

// Wrap renders payload as the hex dump a scanner would return for a
// byte-mode segment padded to capacity bytes. capacity <= 0 means no padding.
func Wrap(payload []byte, capacity int) string {
	var b strings.Builder
	b.WriteByte(byteModeNibble)
	if len(payload) <= 0xff {
		fmt.Fprintf(&b, "%02x", len(payload))
	} else {
		fmt.Fprintf(&b, "%04x", len(payload))
	}
	b.WriteString(hex.EncodeToString(payload))
	b.WriteByte(terminator)

	used := (b.Len() + 1) / 2
	pad := []string{"ec", "11"}
	for i := 0; used < capacity; i++ {
		b.WriteString(pad[i%2])
		used++
	}
	return b.String()
}
