package decoder

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/danmuck/coldsign/internal/protocol"
)

var (
	ErrInvalidEra    = errors.New("decoder: invalid era")
	ErrTrailingBytes = errors.New("decoder: trailing bytes")
	ErrShortPayload  = errors.New("decoder: short payload")
)

// Era is a transaction validity window. An immortal era has zero Period.
type Era struct {
	Mortal bool
	Period uint64
	Phase  uint64
}

func (e Era) String() string {
	if !e.Mortal {
		return "immortal"
	}
	return fmt.Sprintf("mortal(period=%d, phase=%d)", e.Period, e.Phase)
}

// MortalEra returns the era starting at block current lasting period
// blocks, with period rounded to a power of two in [4, 65536].
func MortalEra(period, current uint64) Era {
	p := uint64(4)
	for p < period && p < 1<<16 {
		p <<= 1
	}
	quantize := max(p>>12, 1)
	phase := current % p / quantize * quantize
	return Era{Mortal: true, Period: p, Phase: phase}
}

// Encode renders the era in its one or two byte wire form.
func (e Era) Encode() []byte {
	if !e.Mortal {
		return []byte{0x00}
	}
	quantize := max(e.Period>>12, 1)
	low := uint64(bits.TrailingZeros64(e.Period)) - 1
	low = min(max(low, 1), 15)
	encoded := uint16(low) | uint16(e.Phase/quantize)<<4
	return []byte{byte(encoded), byte(encoded >> 8)}
}

func decodeEra(first, second byte) (Era, error) {
	encoded := uint64(first) | uint64(second)<<8
	period := uint64(2) << (encoded % 16)
	quantize := max(period>>12, 1)
	phase := (encoded >> 4) * quantize
	if period < 4 || phase >= period {
		return Era{}, fmt.Errorf("%w: period=%d phase=%d", ErrInvalidEra, period, phase)
	}
	return Era{Mortal: true, Period: period, Phase: phase}, nil
}

// Envelope is the signing payload around an encoded call.
type Envelope struct {
	Method      []byte
	Era         Era
	Nonce       *big.Int
	Tip         *big.Int
	SpecVersion uint32
	TxVersion   uint32
	GenesisHash [32]byte
	BlockHash   [32]byte
}

func (e Envelope) GenesisHex() string {
	return "0x" + hex.EncodeToString(e.GenesisHash[:])
}

func (e Envelope) BlockHex() string {
	return "0x" + hex.EncodeToString(e.BlockHash[:])
}

func decodeError(err error) error {
	if errors.Is(err, protocol.ErrDecodeError) {
		return err
	}
	return fmt.Errorf("%w: %w", protocol.ErrDecodeError, err)
}

// ParseEnvelope splits an extrinsic signing payload into its fields. It
// needs no metadata, so spec and tx versions are readable even when the
// call cannot be decoded.
func ParseEnvelope(payload []byte) (Envelope, error) {
	r := newReader(payload)
	var env Envelope

	n, err := r.length()
	if err != nil {
		return Envelope{}, decodeError(fmt.Errorf("method length: %w", err))
	}
	if env.Method, err = r.bytes(n); err != nil {
		return Envelope{}, decodeError(fmt.Errorf("method: %w", err))
	}

	first, err := r.byte()
	if err != nil {
		return Envelope{}, decodeError(fmt.Errorf("era: %w", err))
	}
	if first != 0 {
		second, err := r.byte()
		if err != nil {
			return Envelope{}, decodeError(fmt.Errorf("era: %w", err))
		}
		if env.Era, err = decodeEra(first, second); err != nil {
			return Envelope{}, decodeError(err)
		}
	}

	if env.Nonce, err = r.compact(); err != nil {
		return Envelope{}, decodeError(fmt.Errorf("nonce: %w", err))
	}
	if env.Tip, err = r.compact(); err != nil {
		return Envelope{}, decodeError(fmt.Errorf("tip: %w", err))
	}
	if err := r.dec.Decode(&env.SpecVersion); err != nil {
		return Envelope{}, decodeError(fmt.Errorf("%w: spec_version: %v", ErrShortPayload, err))
	}
	if err := r.dec.Decode(&env.TxVersion); err != nil {
		return Envelope{}, decodeError(fmt.Errorf("%w: tx_version: %v", ErrShortPayload, err))
	}
	genesis, err := r.bytes(32)
	if err != nil {
		return Envelope{}, decodeError(fmt.Errorf("genesis hash: %w", err))
	}
	copy(env.GenesisHash[:], genesis)
	block, err := r.bytes(32)
	if err != nil {
		return Envelope{}, decodeError(fmt.Errorf("block hash: %w", err))
	}
	copy(env.BlockHash[:], block)

	if r.remaining() != 0 {
		return Envelope{}, decodeError(fmt.Errorf("%w: %d after block hash", ErrTrailingBytes, r.remaining()))
	}
	return env, nil
}

// EncodeEnvelope renders env as a signing payload.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	if err := enc.EncodeUintCompact(*big.NewInt(int64(len(env.Method)))); err != nil {
		return nil, err
	}
	buf.Write(env.Method)
	buf.Write(env.Era.Encode())
	for _, v := range []*big.Int{env.Nonce, env.Tip} {
		if v == nil {
			v = new(big.Int)
		}
		if err := enc.EncodeUintCompact(*v); err != nil {
			return nil, err
		}
	}
	if err := enc.Encode(env.SpecVersion); err != nil {
		return nil, err
	}
	if err := enc.Encode(env.TxVersion); err != nil {
		return nil, err
	}
	buf.Write(env.GenesisHash[:])
	buf.Write(env.BlockHash[:])
	return buf.Bytes(), nil
}
