// Package ss58 encodes and decodes Substrate SS58 account addresses.
package ss58

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const maxPrefix = 16383

var checksumPreimage = []byte("SS58PRE")

var (
	ErrPrefixRange  = errors.New("ss58: prefix out of range")
	ErrKeyLength    = errors.New("ss58: unsupported key length")
	ErrInvalid      = errors.New("ss58: invalid address")
	ErrBadChecksum  = errors.New("ss58: checksum mismatch")
	ErrEmptyAddress = errors.New("ss58: empty address")
)

func checksumLen(keyLen int) (int, error) {
	switch keyLen {
	case 1, 2, 4, 8:
		return 1, nil
	case 32, 33:
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrKeyLength, keyLen)
	}
}

func prefixBytes(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix <= maxPrefix:
		first := byte((prefix&0b1111_1100)>>2) | 0b0100_0000
		second := byte(prefix>>8) | byte((prefix&0b11)<<6)
		return []byte{first, second}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrPrefixRange, prefix)
	}
}

func checksum(data []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPreimage)
	h.Write(data)
	return h.Sum(nil)
}

// Encode renders key as an address for the network with the given prefix.
func Encode(key []byte, prefix uint16) (string, error) {
	ckLen, err := checksumLen(len(key))
	if err != nil {
		return "", err
	}
	pb, err := prefixBytes(prefix)
	if err != nil {
		return "", err
	}
	data := make([]byte, 0, len(pb)+len(key)+ckLen)
	data = append(data, pb...)
	data = append(data, key...)
	data = append(data, checksum(data)[:ckLen]...)
	return base58.Encode(data), nil
}

// Decode returns the key and network prefix carried by address.
func Decode(address string) ([]byte, uint16, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, 0, ErrEmptyAddress
	}
	data, err := base58.Decode(address)
	if err != nil || len(data) < 2 {
		return nil, 0, ErrInvalid
	}

	var prefix uint16
	var prefixLen int
	switch {
	case data[0] < 64:
		prefix, prefixLen = uint16(data[0]), 1
	case data[0] < 128:
		if len(data) < 3 {
			return nil, 0, ErrInvalid
		}
		lower := byte(data[0]<<2) | data[1]>>6
		upper := data[1] & 0b0011_1111
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return nil, 0, ErrInvalid
	}

	rest := len(data) - prefixLen
	var keyLen, ckLen int
	for _, candidate := range []int{33, 32, 8, 4, 2, 1} {
		ck, _ := checksumLen(candidate)
		if candidate+ck == rest {
			keyLen, ckLen = candidate, ck
			break
		}
	}
	if keyLen == 0 {
		return nil, 0, fmt.Errorf("%w: payload length %d", ErrInvalid, rest)
	}
	body := data[:prefixLen+keyLen]
	if !bytes.Equal(checksum(body)[:ckLen], data[prefixLen+keyLen:]) {
		return nil, 0, ErrBadChecksum
	}
	return append([]byte(nil), data[prefixLen:prefixLen+keyLen]...), prefix, nil
}

// IsValid reports whether address decodes with a valid checksum.
func IsValid(address string) bool {
	_, _, err := Decode(address)
	return err == nil
}

// Reencode renders address for another network prefix.
func Reencode(address string, prefix uint16) (string, error) {
	key, _, err := Decode(address)
	if err != nil {
		return "", err
	}
	return Encode(key, prefix)
}

// AccountID returns the 32-byte account identifier for a signer key. ECDSA
// keys are 33-byte compressed points and map to their blake2b-256 digest.
func AccountID(key []byte) []byte {
	if len(key) == 33 {
		sum := blake2b.Sum256(key)
		return sum[:]
	}
	return key
}
