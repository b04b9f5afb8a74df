package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/coldsign/internal/protocol"
)

const (
	HeaderLen            = 5
	MultipartMarker byte = 0x00

	// Leading bytes of an unframed single-part request.
	prefixSubstrate byte = 0x53
	prefixEthereum  byte = 0x45
)

var (
	ErrShortHeader    = errors.New("frame: short header")
	ErrBadMarker      = errors.New("frame: missing multipart marker")
	ErrZeroCount      = errors.New("frame: frame count is zero")
	ErrIndexRange     = errors.New("frame: index out of range")
	ErrTooManyFrames  = errors.New("frame: frame count exceeds limit")
	ErrPayloadTooBig  = errors.New("frame: payload too large")
	ErrEmptyPayload   = errors.New("frame: empty payload")
	ErrChunkSizeRange = errors.New("frame: chunk size must be positive")
)

// Frame is one QR code of a (possibly single-part) transmission.
type Frame struct {
	Index   uint16
	Total   uint16
	Payload []byte
}

// Multipart reports whether the frame belongs to a transmission spanning
// more than one QR code.
func (f Frame) Multipart() bool {
	return f.Total > 1
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxFrames     uint16
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrames:     1024,
		MaxFrameBytes: 4096,
	}
}

func malformed(err error, format string, args ...any) error {
	if format == "" {
		return fmt.Errorf("%w: %w", protocol.ErrMalformedFrame, err)
	}
	return fmt.Errorf("%w: %w: %s", protocol.ErrMalformedFrame, err, fmt.Sprintf(format, args...))
}

// Parse decodes the multipart header of a stripped QR payload.
// A payload that starts directly with a request prefix is accepted as an
// unframed single-part transmission.
func Parse(b []byte, limits Limits) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, malformed(ErrEmptyPayload, "")
	}
	if b[0] == prefixSubstrate || b[0] == prefixEthereum {
		if limits.MaxFrameBytes > 0 && len(b) > limits.MaxFrameBytes {
			return Frame{}, malformed(ErrPayloadTooBig, "len=%d", len(b))
		}
		return Frame{Index: 0, Total: 1, Payload: append([]byte(nil), b...)}, nil
	}
	if b[0] != MultipartMarker {
		return Frame{}, malformed(ErrBadMarker, "lead=0x%02x", b[0])
	}
	if len(b) < HeaderLen {
		return Frame{}, malformed(ErrShortHeader, "len=%d", len(b))
	}

	h := DecodeHeader(b[:HeaderLen])
	if h.Total == 0 {
		return Frame{}, malformed(ErrZeroCount, "")
	}
	if h.Index >= h.Total {
		return Frame{}, malformed(ErrIndexRange, "index=%d count=%d", h.Index, h.Total)
	}
	if limits.MaxFrames > 0 && h.Total > limits.MaxFrames {
		return Frame{}, malformed(ErrTooManyFrames, "count=%d max=%d", h.Total, limits.MaxFrames)
	}
	payload := b[HeaderLen:]
	if limits.MaxFrameBytes > 0 && len(payload) > limits.MaxFrameBytes {
		return Frame{}, malformed(ErrPayloadTooBig, "len=%d", len(payload))
	}
	h.Payload = append([]byte(nil), payload...)
	return h, nil
}

// Encode renders f with its multipart header.
func Encode(f Frame) []byte {
	buf := make([]byte, HeaderLen, HeaderLen+len(f.Payload))
	copy(buf, EncodeHeader(f))
	return append(buf, f.Payload...)
}

func EncodeHeader(f Frame) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = MultipartMarker
	binary.BigEndian.PutUint16(buf[1:3], f.Total)
	binary.BigEndian.PutUint16(buf[3:5], f.Index)
	return buf
}

// DecodeHeader reads count and index from a HeaderLen-byte header.
func DecodeHeader(b []byte) Frame {
	return Frame{
		Total: binary.BigEndian.Uint16(b[1:3]),
		Index: binary.BigEndian.Uint16(b[3:5]),
	}
}

// Split chunks payload into framed parts of at most chunk bytes each.
func Split(payload []byte, chunk int) ([]Frame, error) {
	if chunk <= 0 {
		return nil, ErrChunkSizeRange
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	count := (len(payload) + chunk - 1) / chunk
	if count > 0xffff {
		return nil, ErrTooManyFrames
	}
	out := make([]Frame, 0, count)
	for i := 0; i < count; i++ {
		end := min((i+1)*chunk, len(payload))
		out = append(out, Frame{
			Index:   uint16(i),
			Total:   uint16(count),
			Payload: append([]byte(nil), payload[i*chunk:end]...),
		})
	}
	return out, nil
}
