package session

import (
	"encoding/hex"

	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/decoder"
	"github.com/danmuck/coldsign/internal/ethereum"
)

// Review is everything the reviewer sees before confirming. Exactly one of
// Extrinsic, Fallback, Message or EthereumTx describes the payload.
type Review struct {
	Kind         classify.Kind
	Sender       string
	Account      Account
	NetworkKey   string
	NetworkTitle string

	Extrinsic *decoder.DecodedExtrinsic
	// Fallback is set when the payload could not be decoded. Signing it
	// is unsafe.
	Fallback *decoder.RawFallback

	Message       string
	MessageIsText bool
	// Hashed is set when the signer signs a digest of the payload rather
	// than the payload itself.
	Hashed bool

	EthereumTx  *ethereum.Transaction
	Description string
}

// Unsafe reports whether the reviewer is looking at undecoded data.
func (r Review) Unsafe() bool {
	return r.Fallback != nil
}

func messageReview(msg []byte, hashed bool) (string, bool) {
	if hashed {
		return "0x" + hex.EncodeToString(msg), false
	}
	return decoder.MessageText(msg)
}
