package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

var ErrLengthRange = errors.New("decoder: length exceeds input")

// reader wraps a SCALE decoder over an in-memory buffer so callers can
// bound lengths by the bytes actually remaining.
type reader struct {
	src *bytes.Reader
	dec *scale.Decoder
}

func newReader(b []byte) *reader {
	src := bytes.NewReader(b)
	return &reader{src: src, dec: scale.NewDecoder(src)}
}

func (r *reader) remaining() int {
	return r.src.Len()
}

func (r *reader) byte() (byte, error) {
	if r.src.Len() == 0 {
		return 0, fmt.Errorf("%w: need 1 byte", ErrShortPayload)
	}
	return r.dec.ReadOneByte()
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > r.src.Len() {
		return nil, fmt.Errorf("%w: need %d have %d", ErrShortPayload, n, r.src.Len())
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if err := r.dec.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *reader) compact() (*big.Int, error) {
	if r.src.Len() == 0 {
		return nil, fmt.Errorf("%w: need compact", ErrShortPayload)
	}
	return r.dec.DecodeUintCompact()
}

// length reads a compact collection length no larger than the remaining
// input.
func (r *reader) length() (int, error) {
	n, err := r.compact()
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() > int64(r.src.Len()) {
		return 0, fmt.Errorf("%w: %s > %d", ErrLengthRange, n, r.src.Len())
	}
	return int(n.Int64()), nil
}

// uintLE reads an n-byte little-endian unsigned integer.
func (r *reader) uintLE(n int) (*big.Int, error) {
	b, err := r.bytes(n)
	if err != nil {
		return nil, err
	}
	be := make([]byte, n)
	for i := range b {
		be[n-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be), nil
}

// intLE reads an n-byte little-endian two's complement integer.
func (r *reader) intLE(n int) (*big.Int, error) {
	v, err := r.uintLE(n)
	if err != nil {
		return nil, err
	}
	if v.Bit(n*8-1) == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(n*8)))
	}
	return v, nil
}
