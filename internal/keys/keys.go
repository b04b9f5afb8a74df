// Package keys adapts each supported crypto scheme to the signer used by a
// signing session.
package keys

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/danmuck/coldsign/internal/protocol/uos"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vedhavyas/go-subkey/v2"
	"github.com/vedhavyas/go-subkey/v2/sr25519"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrUnknownScheme = errors.New("keys: unknown scheme")
	ErrInvalidSecret = errors.New("keys: invalid secret")
	ErrDigestLength  = errors.New("keys: digest must be 32 bytes")
)

type Scheme int

const (
	SchemeEd25519 Scheme = iota
	SchemeSr25519
	SchemeEcdsa
	SchemeEthereum
)

func (s Scheme) String() string {
	switch s {
	case SchemeEd25519:
		return "ed25519"
	case SchemeSr25519:
		return "sr25519"
	case SchemeEcdsa:
		return "ecdsa"
	case SchemeEthereum:
		return "ethereum"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

func ParseScheme(raw string) (Scheme, error) {
	for _, s := range []Scheme{SchemeEd25519, SchemeSr25519, SchemeEcdsa, SchemeEthereum} {
		if strings.EqualFold(strings.TrimSpace(raw), s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, raw)
}

// ParseSecret decodes a hex seed, with or without 0x prefix.
func ParseSecret(raw string) ([]byte, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	secret, err := hex.DecodeString(raw)
	if err != nil || len(secret) != 32 {
		return nil, fmt.Errorf("%w: want 32 hex-encoded bytes", ErrInvalidSecret)
	}
	return secret, nil
}

// SchemeFor maps a request to the scheme its signer must use.
func SchemeFor(req uos.Request) (Scheme, error) {
	if !req.IsSubstrate() {
		return SchemeEthereum, nil
	}
	switch req.Crypto {
	case uos.CryptoEd25519:
		return SchemeEd25519, nil
	case uos.CryptoSr25519:
		return SchemeSr25519, nil
	case uos.CryptoEcdsa:
		return SchemeEcdsa, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownScheme, req.Crypto)
	}
}

// Key is unlocked secret material handed over by the account unlock
// collaborator. Secret is a 32-byte seed for every scheme.
type Key struct {
	Scheme Scheme
	Secret []byte
}

// Wipe zeroes the secret in place.
func (k *Key) Wipe() {
	wipe(k.Secret)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Signer signs session payloads for one key.
type Signer interface {
	Scheme() Scheme
	// PublicKey is the key as carried in signing requests: 32 bytes for
	// ed25519 and sr25519, 33 compressed bytes for ecdsa, and the 20-byte
	// address for ethereum.
	PublicKey() []byte
	Sign(msg []byte) ([]byte, error)
}

// NewSigner builds the signer for k.
func NewSigner(k Key) (Signer, error) {
	if len(k.Secret) != 32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSecret, len(k.Secret))
	}
	switch k.Scheme {
	case SchemeEd25519:
		priv := ed25519.NewKeyFromSeed(k.Secret)
		return ed25519Signer{priv: priv}, nil
	case SchemeSr25519:
		kp, err := sr25519.Scheme{}.FromSeed(k.Secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSecret, err)
		}
		return sr25519Signer{kp: kp}, nil
	case SchemeEcdsa, SchemeEthereum:
		priv, err := crypto.ToECDSA(k.Secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSecret, err)
		}
		return secpSigner{scheme: k.Scheme, priv: priv}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, k.Scheme)
	}
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
}

func (ed25519Signer) Scheme() Scheme { return SchemeEd25519 }

func (s ed25519Signer) PublicKey() []byte {
	return []byte(s.priv.Public().(ed25519.PublicKey))
}

func (s ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

type sr25519Signer struct {
	kp subkey.KeyPair
}

func (sr25519Signer) Scheme() Scheme { return SchemeSr25519 }

func (s sr25519Signer) PublicKey() []byte { return s.kp.Public() }

func (s sr25519Signer) Sign(msg []byte) ([]byte, error) {
	return s.kp.Sign(msg)
}

type secpSigner struct {
	scheme Scheme
	priv   *ecdsa.PrivateKey
}

func (s secpSigner) Scheme() Scheme { return s.scheme }

func (s secpSigner) PublicKey() []byte {
	if s.scheme == SchemeEthereum {
		return crypto.PubkeyToAddress(s.priv.PublicKey).Bytes()
	}
	return crypto.CompressPubkey(&s.priv.PublicKey)
}

// Sign signs msg. Substrate ecdsa hashes msg with blake2b-256 first.
// Ethereum expects msg to already be the 32-byte digest and returns r|s|v
// with v in {27, 28}.
func (s secpSigner) Sign(msg []byte) ([]byte, error) {
	digest := msg
	if s.scheme == SchemeEcdsa {
		sum := blake2b.Sum256(msg)
		digest = sum[:]
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: got %d", ErrDigestLength, len(digest))
	}
	sig, err := crypto.Sign(digest, s.priv)
	if err != nil {
		return nil, fmt.Errorf("keys: sign: %w", err)
	}
	if s.scheme == SchemeEthereum {
		sig[64] += 27
	}
	return sig, nil
}

// EncodeResult renders a signature as the hex payload shown back to the
// companion app. Substrate signatures carry the MultiSignature scheme byte.
func EncodeResult(scheme Scheme, sig []byte) string {
	switch scheme {
	case SchemeEd25519, SchemeSr25519, SchemeEcdsa:
		return "0x" + hex.EncodeToString(append([]byte{byte(scheme)}, sig...))
	default:
		return "0x" + hex.EncodeToString(sig)
	}
}

// Address renders a 20-byte ethereum public key for display.
func Address(pub []byte) string {
	return common.BytesToAddress(pub).Hex()
}

// Service is the default signing collaborator: it builds a signer for each
// call and signs data with it.
type Service struct{}

func (Service) Sign(_ context.Context, data []byte, k Key) ([]byte, error) {
	s, err := NewSigner(k)
	if err != nil {
		return nil, err
	}
	return s.Sign(data)
}
