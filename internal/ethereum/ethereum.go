// Package ethereum decodes legacy Ethereum signing requests and computes the
// digests a signer must sign for them.
package ethereum

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/units"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrInvalidTransaction = errors.New("ethereum: invalid transaction rlp")
	ErrInvalidRequest     = errors.New("ethereum: invalid legacy request")
	ErrInvalidAddress     = errors.New("ethereum: invalid address")

	errMissingPrefix = errors.New("missing 0x prefix")
)

const (
	ActionSignTransaction = "signTransaction"
	ActionSignData        = "signData"
)

// legacyTx is the RLP layout of an unsigned legacy transaction. The three
// trailing fields carry the EIP-155 chain id with zero r and s.
type legacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int `rlp:"optional"`
	R        *big.Int `rlp:"optional"`
	S        *big.Int `rlp:"optional"`
}

// Transaction is a decoded unsigned legacy transaction.
type Transaction struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address
	Value    *big.Int
	Data     []byte
	// ChainID is nil for pre-EIP-155 payloads.
	ChainID *big.Int
}

// DecodeTransaction decodes an unsigned legacy transaction from its RLP form.
func DecodeTransaction(raw []byte) (*Transaction, error) {
	var tx legacyTx
	if err := rlp.DecodeBytes(raw, &tx); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", protocol.ErrMalformedFrame, ErrInvalidTransaction, err)
	}
	out := &Transaction{
		Nonce:    tx.Nonce,
		GasPrice: orZero(tx.GasPrice),
		Gas:      tx.Gas,
		To:       tx.To,
		Value:    orZero(tx.Value),
		Data:     tx.Data,
	}
	if tx.ChainID != nil && tx.ChainID.Sign() > 0 {
		out.ChainID = tx.ChainID
	}
	return out, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (t *Transaction) legacy() *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    t.Nonce,
		GasPrice: t.GasPrice,
		Gas:      t.Gas,
		To:       t.To,
		Value:    t.Value,
		Data:     t.Data,
	})
}

// SigningHash is the digest signed for t: EIP-155 when a chain id is
// present, Homestead otherwise.
func (t *Transaction) SigningHash() common.Hash {
	if t.ChainID != nil {
		return types.NewEIP155Signer(t.ChainID).Hash(t.legacy())
	}
	return types.HomesteadSigner{}.Hash(t.legacy())
}

// Fee is the maximum fee in wei, gas * gasPrice.
func (t *Transaction) Fee() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(t.Gas), t.GasPrice)
}

// Recipient returns the checksummed recipient or "contract creation".
func (t *Transaction) Recipient() string {
	if t.To == nil {
		return "contract creation"
	}
	return t.To.Hex()
}

// Summary is a one-line description of t for the reviewer.
func (t *Transaction) Summary() string {
	return fmt.Sprintf("send %s to %s (fee %s)", units.FormatEther(t.Value), t.Recipient(), units.FormatEther(t.Fee()))
}

// MessageHash is the EIP-191 personal message digest of msg.
func MessageHash(msg []byte) []byte {
	return accounts.TextHash(msg)
}

// ParseAddress parses a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

type legacyJSON struct {
	Action string `json:"action"`
	Data   struct {
		Account string `json:"account"`
		RLP     string `json:"rlp"`
		Data    string `json:"data"`
	} `json:"data"`
}

// LegacyRequest is a JSON-encoded Ethereum request from older companion
// apps. Exactly one of Tx or Message is set.
type LegacyRequest struct {
	Action      string
	Account     common.Address
	Tx          *Transaction
	RawTx       []byte
	Message     []byte
	Description string
}

// Digest returns the 32-byte hash to sign for r.
func (r *LegacyRequest) Digest() []byte {
	if r.Tx != nil {
		h := r.Tx.SigningHash()
		return h[:]
	}
	return MessageHash(r.Message)
}

// ParseLegacyJSON decodes a legacy JSON request. The caller has already
// established that raw is JSON without a genesisHash field.
func ParseLegacyJSON(raw []byte) (*LegacyRequest, error) {
	var doc legacyJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	account, err := ParseAddress(doc.Data.Account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req := &LegacyRequest{Action: doc.Action, Account: account}

	switch doc.Action {
	case ActionSignTransaction:
		b, err := decodeHex(doc.Data.RLP)
		if err != nil {
			return nil, fmt.Errorf("%w: rlp: %w", ErrInvalidRequest, err)
		}
		tx, err := DecodeTransaction(b)
		if err != nil {
			return nil, err
		}
		req.Tx, req.RawTx = tx, b
		req.Description = tx.Summary()
	case ActionSignData:
		msg, err := decodeHex(doc.Data.Data)
		if err != nil {
			msg = []byte(doc.Data.Data)
		}
		req.Message = msg
		req.Description = fmt.Sprintf("sign %d byte message", len(msg))
	default:
		return nil, fmt.Errorf("%w: action %q", ErrInvalidRequest, doc.Action)
	}
	return req, nil
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, errMissingPrefix
	}
	return hex.DecodeString(s[2:])
}
