package classify

import (
	"math/big"

	"github.com/danmuck/coldsign/internal/ethereum"
	"github.com/danmuck/coldsign/internal/protocol/uos"
)

type Kind int

const (
	KindAddress Kind = iota
	KindNetworkAdd
	KindLegacyEthereum
	KindSubstrate
	KindEthereum
	KindProgress
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindNetworkAdd:
		return "network_add"
	case KindLegacyEthereum:
		return "legacy_ethereum"
	case KindSubstrate:
		return "substrate"
	case KindEthereum:
		return "ethereum"
	case KindProgress:
		return "multipart_progress"
	default:
		return "unknown"
	}
}

// ParsedData is the result of classifying one scan. The set of
// implementations is closed to this package.
type ParsedData interface {
	Kind() Kind
	parsed()
}

// Complete reports whether p is a finished classification rather than
// multipart progress.
func Complete(p ParsedData) bool {
	return p != nil && p.Kind() != KindProgress
}

// AddressOnly is a scanned account address with no request attached.
type AddressOnly struct {
	Protocol string
	Address  string
	// Network is the genesis hash or chain id when the scan carried one.
	Network string
}

// NetworkAddRequest is a JSON network specification. It is never decoded
// further.
type NetworkAddRequest struct {
	Raw []byte
}

// LegacyEthereumRequest is a JSON-encoded Ethereum request.
type LegacyEthereumRequest struct {
	Sender      string
	To          string
	Value       *big.Int
	Gas         uint64
	GasPrice    *big.Int
	Data        []byte
	Description string
	Request     *ethereum.LegacyRequest
}

// SubstrateSigningRequest is a complete binary Substrate request.
type SubstrateSigningRequest struct {
	SenderAddress string
	NetworkKey    string
	Request       uos.Request
	// Payload is the extrinsic payload, pre-computed hash or message.
	Payload []byte
	// SigningData is what the signer signs: Payload, or its blake2b-256
	// digest when the payload is oversized.
	SigningData     []byte
	IsHashedMessage bool
}

// IsTransaction reports whether Payload is an extrinsic payload the
// decoder can render.
func (s *SubstrateSigningRequest) IsTransaction() bool {
	return s.Request.IsTransaction()
}

// EthereumSigningRequest is a complete binary Ethereum request.
type EthereumSigningRequest struct {
	Sender  string
	Request uos.Request
	// Tx is set for transaction actions, Message for message actions.
	Tx      *ethereum.Transaction
	Message []byte
	Digest  []byte
}

// MultipartProgress reports an incomplete multipart transmission.
type MultipartProgress struct {
	Frame    uint16
	Received int
	Total    int
	Missing  []uint16
}

func (*AddressOnly) Kind() Kind             { return KindAddress }
func (*NetworkAddRequest) Kind() Kind       { return KindNetworkAdd }
func (*LegacyEthereumRequest) Kind() Kind   { return KindLegacyEthereum }
func (*SubstrateSigningRequest) Kind() Kind { return KindSubstrate }
func (*EthereumSigningRequest) Kind() Kind  { return KindEthereum }
func (*MultipartProgress) Kind() Kind       { return KindProgress }

func (*AddressOnly) parsed()             {}
func (*NetworkAddRequest) parsed()       {}
func (*LegacyEthereumRequest) parsed()   {}
func (*SubstrateSigningRequest) parsed() {}
func (*EthereumSigningRequest) parsed()  {}
func (*MultipartProgress) parsed()       {}
