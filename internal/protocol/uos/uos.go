// Package uos decodes the binary signing request carried by a completed
// transmission: request prefix, crypto scheme, action, signer key, payload
// and, for Substrate, the network genesis hash.
package uos

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	PrefixSubstrate byte = 0x53
	PrefixEthereum  byte = 0x45

	GenesisLen      = 32
	HashLen         = 32
	EthereumAddrLen = 20
)

type Crypto byte

const (
	CryptoEd25519 Crypto = 0x00
	CryptoSr25519 Crypto = 0x01
	CryptoEcdsa   Crypto = 0x02
)

func (c Crypto) String() string {
	switch c {
	case CryptoEd25519:
		return "ed25519"
	case CryptoSr25519:
		return "sr25519"
	case CryptoEcdsa:
		return "ecdsa"
	default:
		return fmt.Sprintf("crypto(0x%02x)", byte(c))
	}
}

// PublicKeyLen is the signer key length carried in the request, or 0 for
// an unknown scheme.
func (c Crypto) PublicKeyLen() int {
	switch c {
	case CryptoEd25519, CryptoSr25519:
		return 32
	case CryptoEcdsa:
		return 33
	default:
		return 0
	}
}

type Action byte

// Substrate actions.
const (
	ActionSignTransaction Action = 0x00
	ActionSignHash        Action = 0x01
	ActionSignImmortal    Action = 0x02
	ActionSignMessage     Action = 0x03
)

// Ethereum actions.
const (
	ActionEthTransaction Action = 0x00
	ActionEthMessage     Action = 0x01
)

// Request is a decoded binary signing request.
type Request struct {
	Prefix    byte
	Crypto    Crypto
	Action    Action
	PublicKey []byte
	// Payload is the extrinsic payload with its compact length stripped for
	// transaction actions, the 32-byte hash for hash actions, and the raw
	// message or RLP bytes otherwise.
	Payload     []byte
	GenesisHash [GenesisLen]byte
}

func (r Request) IsSubstrate() bool {
	return r.Prefix == PrefixSubstrate
}

// IsTransaction reports whether Payload is an extrinsic payload or RLP
// transaction rather than a hash or message.
func (r Request) IsTransaction() bool {
	if r.IsSubstrate() {
		return r.Action == ActionSignTransaction || r.Action == ActionSignImmortal
	}
	return r.Action == ActionEthTransaction
}

// GenesisHex renders the genesis hash the way networks are keyed.
func (r Request) GenesisHex() string {
	return "0x" + hex.EncodeToString(r.GenesisHash[:])
}

type layoutKey struct {
	prefix byte
	action Action
}

type layout struct {
	name           string
	compactPayload bool
	fixedPayload   int
}

var layouts = map[layoutKey]layout{
	{PrefixSubstrate, ActionSignTransaction}: {name: "substrate.sign_transaction", compactPayload: true},
	{PrefixSubstrate, ActionSignHash}:        {name: "substrate.sign_hash", fixedPayload: HashLen},
	{PrefixSubstrate, ActionSignImmortal}:    {name: "substrate.sign_immortal", compactPayload: true},
	{PrefixSubstrate, ActionSignMessage}:     {name: "substrate.sign_message"},
	{PrefixEthereum, ActionEthTransaction}:   {name: "ethereum.sign_transaction"},
	{PrefixEthereum, ActionEthMessage}:       {name: "ethereum.sign_message"},
}

// ValidationError describes why a request does not fit its layout.
type ValidationError struct {
	Prefix byte
	Action Action
	Reason string
	class  error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("uos: prefix=0x%02x action=0x%02x: %s", e.Prefix, byte(e.Action), e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.class
}

func malformed(prefix byte, action Action, format string, args ...any) error {
	return ValidationError{Prefix: prefix, Action: action, Reason: fmt.Sprintf(format, args...), class: protocol.ErrMalformedFrame}
}

func unsupported(prefix byte, action Action, format string, args ...any) error {
	return ValidationError{Prefix: prefix, Action: action, Reason: fmt.Sprintf(format, args...), class: protocol.ErrUnsupportedTransmission}
}

// Decode parses an assembled transmission into a Request.
func Decode(b []byte) (Request, error) {
	if len(b) == 0 {
		return Request{}, malformed(0, 0, "empty request")
	}
	switch b[0] {
	case PrefixSubstrate:
		return decodeSubstrate(b)
	case PrefixEthereum:
		return decodeEthereum(b)
	default:
		log.Debug().Uint8("prefix", b[0]).Msg("uos.Decode unknown prefix")
		return Request{}, malformed(b[0], 0, "unknown request prefix")
	}
}

func decodeSubstrate(b []byte) (Request, error) {
	if len(b) < 3 {
		return Request{}, malformed(PrefixSubstrate, 0, "short substrate header len=%d", len(b))
	}
	req := Request{Prefix: PrefixSubstrate, Crypto: Crypto(b[1]), Action: Action(b[2])}
	keyLen := req.Crypto.PublicKeyLen()
	if keyLen == 0 {
		return Request{}, unsupported(req.Prefix, req.Action, "unknown crypto 0x%02x", b[1])
	}
	lay, ok := layouts[layoutKey{req.Prefix, req.Action}]
	if !ok {
		return Request{}, unsupported(req.Prefix, req.Action, "unknown action")
	}

	body := b[3:]
	if len(body) < keyLen+GenesisLen {
		return Request{}, malformed(req.Prefix, req.Action, "short %s request len=%d", lay.name, len(b))
	}
	req.PublicKey = append([]byte(nil), body[:keyLen]...)
	copy(req.GenesisHash[:], body[len(body)-GenesisLen:])
	data := body[keyLen : len(body)-GenesisLen]

	payload, err := lay.payload(data)
	if err != nil {
		return Request{}, malformed(req.Prefix, req.Action, "%s: %v", lay.name, err)
	}
	req.Payload = payload
	log.Debug().
		Str("layout", lay.name).
		Str("crypto", req.Crypto.String()).
		Int("payload", len(payload)).
		Msg("uos.Decode substrate request")
	return req, nil
}

func decodeEthereum(b []byte) (Request, error) {
	if len(b) < 2 {
		return Request{}, malformed(PrefixEthereum, 0, "short ethereum header len=%d", len(b))
	}
	req := Request{Prefix: PrefixEthereum, Action: Action(b[1])}
	lay, ok := layouts[layoutKey{req.Prefix, req.Action}]
	if !ok {
		return Request{}, unsupported(req.Prefix, req.Action, "unknown action")
	}
	if len(b) < 2+EthereumAddrLen {
		return Request{}, malformed(req.Prefix, req.Action, "short %s request len=%d", lay.name, len(b))
	}
	req.PublicKey = append([]byte(nil), b[2:2+EthereumAddrLen]...)
	payload, err := lay.payload(b[2+EthereumAddrLen:])
	if err != nil {
		return Request{}, malformed(req.Prefix, req.Action, "%s: %v", lay.name, err)
	}
	req.Payload = payload
	return req, nil
}

func (l layout) payload(data []byte) ([]byte, error) {
	switch {
	case l.compactPayload:
		r := bytes.NewReader(data)
		n, err := scale.NewDecoder(r).DecodeUintCompact()
		if err != nil {
			return nil, fmt.Errorf("payload length: %w", err)
		}
		if !n.IsUint64() || n.Uint64() != uint64(r.Len()) {
			return nil, fmt.Errorf("payload length %s does not match %d remaining bytes", n, r.Len())
		}
		if r.Len() == 0 {
			return nil, fmt.Errorf("empty payload")
		}
		return append([]byte(nil), data[len(data)-r.Len():]...), nil
	case l.fixedPayload > 0:
		if len(data) != l.fixedPayload {
			return nil, fmt.Errorf("payload len=%d want=%d", len(data), l.fixedPayload)
		}
	default:
		if len(data) == 0 {
			return nil, fmt.Errorf("empty payload")
		}
	}
	return append([]byte(nil), data...), nil
}

// Encode renders req in its binary request layout.
func Encode(req Request) ([]byte, error) {
	lay, ok := layouts[layoutKey{req.Prefix, req.Action}]
	if !ok {
		return nil, unsupported(req.Prefix, req.Action, "unknown layout")
	}
	var buf bytes.Buffer
	buf.WriteByte(req.Prefix)
	if req.IsSubstrate() {
		if want := req.Crypto.PublicKeyLen(); want == 0 || len(req.PublicKey) != want {
			return nil, malformed(req.Prefix, req.Action, "public key len=%d for %s", len(req.PublicKey), req.Crypto)
		}
		buf.WriteByte(byte(req.Crypto))
	} else if len(req.PublicKey) != EthereumAddrLen {
		return nil, malformed(req.Prefix, req.Action, "address len=%d", len(req.PublicKey))
	}
	buf.WriteByte(byte(req.Action))
	buf.Write(req.PublicKey)
	if lay.compactPayload {
		if err := scale.NewEncoder(&buf).EncodeUintCompact(*big.NewInt(int64(len(req.Payload)))); err != nil {
			return nil, err
		}
	}
	buf.Write(req.Payload)
	if req.IsSubstrate() {
		buf.Write(req.GenesisHash[:])
	}
	return buf.Bytes(), nil
}
