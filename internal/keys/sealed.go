package keys

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const sealedTag = "coldsign1"

// ErrWrongPIN is returned for a bad PIN or a corrupted sealed secret. The
// two cases are not told apart.
var ErrWrongPIN = errors.New("keys: wrong pin or corrupted secret")

var ErrMalformedSealed = errors.New("keys: malformed sealed secret")

// SealParams are the Argon2id cost parameters recorded in a sealed secret.
type SealParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

var DefaultSealParams = SealParams{Time: 2, MemoryKiB: 64 * 1024, Threads: 1}

// Seal encrypts secret under pin with Argon2id and XChaCha20-Poly1305.
// The result is a single printable line:
// coldsign1$time$memory$threads$salt$nonce$ciphertext.
func Seal(secret, pin []byte, params SealParams) (string, error) {
	if len(pin) == 0 {
		return "", fmt.Errorf("%w: empty pin", ErrInvalidSecret)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("keys: rand salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("keys: rand nonce: %w", err)
	}
	key := argon2.IDKey(pin, salt, params.Time, params.MemoryKiB, params.Threads, chacha20poly1305.KeySize)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("keys: aead: %w", err)
	}
	ct := aead.Seal(nil, nonce, secret, []byte(sealedTag))

	enc := base64.RawStdEncoding
	return strings.Join([]string{
		sealedTag,
		strconv.FormatUint(uint64(params.Time), 10),
		strconv.FormatUint(uint64(params.MemoryKiB), 10),
		strconv.FormatUint(uint64(params.Threads), 10),
		enc.EncodeToString(salt),
		enc.EncodeToString(nonce),
		enc.EncodeToString(ct),
	}, "$"), nil
}

// Open reverses Seal.
func Open(sealed string, pin []byte) ([]byte, error) {
	parts := strings.Split(strings.TrimSpace(sealed), "$")
	if len(parts) != 7 || parts[0] != sealedTag {
		return nil, ErrMalformedSealed
	}
	t, err1 := strconv.ParseUint(parts[1], 10, 32)
	m, err2 := strconv.ParseUint(parts[2], 10, 32)
	p, err3 := strconv.ParseUint(parts[3], 10, 8)
	if err := errors.Join(err1, err2, err3); err != nil || t == 0 || p == 0 {
		return nil, ErrMalformedSealed
	}
	enc := base64.RawStdEncoding
	salt, err1 := enc.DecodeString(parts[4])
	nonce, err2 := enc.DecodeString(parts[5])
	ct, err3 := enc.DecodeString(parts[6])
	if err := errors.Join(err1, err2, err3); err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrMalformedSealed
	}

	key := argon2.IDKey(pin, salt, uint32(t), uint32(m), uint8(p), chacha20poly1305.KeySize)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("keys: aead: %w", err)
	}
	secret, err := aead.Open(nil, nonce, ct, []byte(sealedTag))
	if err != nil {
		return nil, ErrWrongPIN
	}
	return secret, nil
}
