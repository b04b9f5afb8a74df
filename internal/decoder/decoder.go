// Package decoder turns a Substrate signing payload into a flat list of
// human-readable call nodes using a network's type registry.
package decoder

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/registry"
	"github.com/danmuck/coldsign/internal/units"
	"github.com/rs/zerolog/log"
)

const DefaultMaxCallDepth = 8

var ErrNoRegistry = errors.New("decoder: no registry")

type Options struct {
	MaxCallDepth int
}

func DefaultOptions() Options {
	return Options{MaxCallDepth: DefaultMaxCallDepth}
}

// DecodedExtrinsic is a fully decoded signing payload.
type DecodedExtrinsic struct {
	Calls       []CallNode
	Era         Era
	Nonce       *big.Int
	Tip         *big.Int
	TipDisplay  string
	SpecVersion uint32
	TxVersion   uint32
	GenesisHash string
	BlockHash   string
}

type Decoder struct {
	opts Options
}

func New(opts Options) *Decoder {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	return &Decoder{opts: opts}
}

// Decode decodes payload with reg. Any failure is reported as a single
// error wrapping protocol.ErrDecodeError; no partial result is returned.
func (d *Decoder) Decode(reg *registry.Registry, payload []byte) (ext *DecodedExtrinsic, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ext = nil
			err = fmt.Errorf("%w: panic: %v", protocol.ErrDecodeError, rec)
			log.Error().Err(err).Msg("decoder.Decode recovered")
		}
	}()
	if reg == nil {
		return nil, decodeError(ErrNoRegistry)
	}

	env, err := ParseEnvelope(payload)
	if err != nil {
		return nil, err
	}
	root, err := d.decodeMethod(reg, env.Method)
	if err != nil {
		return nil, decodeError(err)
	}

	network := reg.Network()
	props := chainProps{prefix: network.Prefix, decimals: network.Decimals, unit: network.Unit}
	ext = &DecodedExtrinsic{
		Calls:       render(root, props),
		Era:         env.Era,
		Nonce:       env.Nonce,
		Tip:         env.Tip,
		TipDisplay:  units.FormatBalance(env.Tip, network.Decimals, network.Unit),
		SpecVersion: env.SpecVersion,
		TxVersion:   env.TxVersion,
		GenesisHash: env.GenesisHex(),
		BlockHash:   env.BlockHex(),
	}
	log.Debug().
		Str("network", network.PathID).
		Int("calls", len(ext.Calls)).
		Str("root", root.Def.Path()).
		Msg("decoder.Decode decoded")
	return ext, nil
}

func (d *Decoder) decodeMethod(reg *registry.Registry, method []byte) (*CallValue, error) {
	cd := &callDecoder{reg: reg, r: newReader(method), maxDepth: d.opts.MaxCallDepth}
	root, err := cd.call()
	if err != nil {
		return nil, err
	}
	if cd.r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d after %s", ErrTrailingBytes, cd.r.remaining(), root.Def.Path())
	}
	return root, nil
}

// RawFallback is the raw display shown when a payload cannot be decoded.
type RawFallback struct {
	Method      string
	Era         string
	Nonce       string
	Tip         string
	SpecVersion uint32
	TxVersion   uint32
	HasEnvelope bool
	Reason      string
}

// Fallback renders payload without metadata. Envelope fields are filled
// when the envelope itself parses; otherwise Method holds the whole payload.
func Fallback(payload []byte, cause error) RawFallback {
	out := RawFallback{}
	if cause != nil {
		out.Reason = cause.Error()
	}
	env, err := ParseEnvelope(payload)
	if err != nil {
		out.Method = "0x" + hex.EncodeToString(payload)
		return out
	}
	out.HasEnvelope = true
	out.Method = "0x" + hex.EncodeToString(env.Method)
	out.Era = env.Era.String()
	out.Nonce = env.Nonce.String()
	out.Tip = env.Tip.String()
	out.SpecVersion = env.SpecVersion
	out.TxVersion = env.TxVersion
	return out
}
