package ethereum

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/testutil/testlog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Unsigned transaction from the EIP-155 worked example.
const (
	eip155RLP  = "ec098504a817c800825208943535353535353535353535353535353535353535880de0b6b3a764000080018080"
	eip155Hash = "0xdaf5a779ae972f972197303d7b574746c7ef83eadac0f2791ad23db92e4c8e53"
	recipient  = "0x3535353535353535353535353535353535353535"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex: %v", err)
	}
	return b
}

func TestDecodeTransactionEIP155(t *testing.T) {
	testlog.Start(t)
	raw := mustHex(t, eip155RLP)
	tx, err := DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.Nonce != 9 || tx.Gas != 21000 || tx.GasPrice.Int64() != 20_000_000_000 {
		t.Fatalf("unexpected tx: %+v", tx)
	}
	if tx.ChainID == nil || tx.ChainID.Int64() != 1 {
		t.Fatalf("expected chain id 1, got %v", tx.ChainID)
	}
	if tx.Recipient() != recipient {
		t.Fatalf("unexpected recipient %s", tx.Recipient())
	}
	if got := tx.SigningHash().Hex(); got != eip155Hash {
		t.Fatalf("signing hash %s want %s", got, eip155Hash)
	}
	if got := crypto.Keccak256Hash(raw).Hex(); got != eip155Hash {
		t.Fatalf("keccak of raw %s want %s", got, eip155Hash)
	}
	if tx.Fee().Int64() != 420_000_000_000_000 {
		t.Fatalf("unexpected fee %s", tx.Fee())
	}
	if want := "send 1 ETH to " + recipient + " (fee 0.00042 ETH)"; tx.Summary() != want {
		t.Fatalf("summary %q want %q", tx.Summary(), want)
	}
}

func TestDecodeTransactionHomesteadAndCreation(t *testing.T) {
	testlog.Start(t)
	// [nonce=1, gasPrice=1, gas=53000, to="", value=0, data=0x6000]
	raw := mustHex(t, "ca010182cf088080826000")
	tx, err := DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.ChainID != nil || tx.To != nil || tx.Recipient() != "contract creation" {
		t.Fatalf("unexpected tx: %+v", tx)
	}
	if tx.SigningHash() != crypto.Keccak256Hash(raw) {
		t.Fatalf("homestead hash must equal keccak of the unsigned rlp")
	}
}

func TestDecodeTransactionRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	_, err := DecodeTransaction([]byte{0xc1, 0xff, 0x00})
	if !errors.Is(err, ErrInvalidTransaction) || !errors.Is(err, protocol.ErrMalformedFrame) {
		t.Fatalf("expected ErrInvalidTransaction, got %v", err)
	}
}

func TestMessageHash(t *testing.T) {
	testlog.Start(t)
	msg := []byte("hello")
	want := crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)))
	if got := MessageHash(msg); common.Bytes2Hex(got) != common.Bytes2Hex(want) {
		t.Fatalf("message hash %x want %x", got, want)
	}
}

func TestParseLegacyJSON(t *testing.T) {
	testlog.Start(t)
	account := "0x8a1b0dfd8f7a2d6e7a5e4b3c2d1e0f9a8b7c6d5e"

	req, err := ParseLegacyJSON([]byte(`{"action":"signTransaction","data":{"account":"` + account + `","rlp":"0x` + eip155RLP + `"}}`))
	if err != nil {
		t.Fatalf("parse tx: %v", err)
	}
	if req.Tx == nil || req.Message != nil || req.Tx.Nonce != 9 {
		t.Fatalf("unexpected tx request: %+v", req)
	}
	if common.BytesToHash(req.Digest()).Hex() != eip155Hash {
		t.Fatalf("unexpected digest %x", req.Digest())
	}

	req, err = ParseLegacyJSON([]byte(`{"action":"signData","data":{"account":"` + account + `","data":"0x68656c6c6f"}}`))
	if err != nil {
		t.Fatalf("parse data: %v", err)
	}
	if string(req.Message) != "hello" || req.Tx != nil {
		t.Fatalf("unexpected data request: %+v", req)
	}
	if common.Bytes2Hex(req.Digest()) != common.Bytes2Hex(MessageHash([]byte("hello"))) {
		t.Fatalf("unexpected message digest")
	}

	bad := []string{
		`{"action":"signTransaction","data":{"account":"nope","rlp":"0x00"}}`,
		`{"action":"transfer","data":{"account":"` + account + `"}}`,
		`{"action":"signTransaction","data":{"account":"` + account + `","rlp":"zz"}}`,
		`[1,2]`,
	}
	for _, in := range bad {
		if _, err := ParseLegacyJSON([]byte(in)); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", in, err)
		}
	}
}
