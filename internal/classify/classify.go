// Package classify decides what a scanned QR code carries: an address, a
// JSON request, or one frame of a binary signing request.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/danmuck/coldsign/internal/ethereum"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/observability"
	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/protocol/envelope"
	"github.com/danmuck/coldsign/internal/protocol/frame"
	"github.com/danmuck/coldsign/internal/protocol/reassembly"
	"github.com/danmuck/coldsign/internal/protocol/uos"
	"github.com/danmuck/coldsign/internal/ss58"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

const DefaultOversizedPayloadBytes = 256

var (
	ErrUnknownNetwork = errors.New("classify: unknown network")
	ErrNoRawData      = errors.New("classify: scan has no raw data")
)

// Scan is one optical scan: the text decoding of the code and the hex dump
// of its byte-mode segment.
type Scan struct {
	Data    string
	RawData string
}

// Networks resolves genesis hashes to known Substrate networks.
type Networks interface {
	Network(key string) (networks.Substrate, bool)
}

type Options struct {
	Limits                frame.Limits
	OversizedPayloadBytes int
}

func DefaultOptions() Options {
	return Options{Limits: frame.DefaultLimits(), OversizedPayloadBytes: DefaultOversizedPayloadBytes}
}

// Classifier applies the classification rules in order. Binary frames are
// fed through the reassembler it shares with the session.
type Classifier struct {
	networks    Networks
	reassembler *reassembly.Reassembler
	opts        Options
}

func New(nets Networks, r *reassembly.Reassembler, opts Options) *Classifier {
	if opts.OversizedPayloadBytes <= 0 {
		opts.OversizedPayloadBytes = DefaultOversizedPayloadBytes
	}
	return &Classifier{networks: nets, reassembler: r, opts: opts}
}

type rule struct {
	name  string
	match func(s Scan, doc map[string]json.RawMessage) bool
	apply func(c *Classifier, s Scan, doc map[string]json.RawMessage) (ParsedData, error)
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{"address", matchAddress, (*Classifier).address},
	{"network_add", matchNetworkAdd, (*Classifier).networkAdd},
	{"legacy_json", matchJSON, (*Classifier).legacyJSON},
	{"binary", func(Scan, map[string]json.RawMessage) bool { return true }, (*Classifier).binary},
}

// Classify classifies one scan. MultipartProgress is returned until every
// frame of a multipart transmission has been scanned.
func (c *Classifier) Classify(s Scan) (ParsedData, error) {
	doc := jsonObject(s.Data)
	for _, r := range rules {
		if !r.match(s, doc) {
			continue
		}
		out, err := r.apply(c, s, doc)
		if err != nil {
			log.Debug().Str("rule", r.name).Str("kind", protocol.Kind(err)).Err(err).Msg("classify.Classify failed")
			return nil, err
		}
		observability.RecordClassified(out.Kind().String())
		return out, nil
	}
	return nil, fmt.Errorf("%w: no rule matched", protocol.ErrMalformedFrame)
}

var (
	substrateURI = regexp.MustCompile(`^substrate:([1-9A-HJ-NP-Za-km-z]+):(0x[0-9a-fA-F]{64})$`)
	ethereumURI  = regexp.MustCompile(`^ethereum:(0x[0-9a-fA-F]{40})(?:@(\d+))?$`)
)

func matchAddress(s Scan, _ map[string]json.RawMessage) bool {
	_, ok := parseAddress(strings.TrimSpace(s.Data))
	return ok
}

func parseAddress(data string) (*AddressOnly, bool) {
	if m := substrateURI.FindStringSubmatch(data); m != nil && ss58.IsValid(m[1]) {
		return &AddressOnly{Protocol: "substrate", Address: m[1], Network: networks.NormalizeGenesisHash(m[2])}, true
	}
	if m := ethereumURI.FindStringSubmatch(data); m != nil {
		return &AddressOnly{Protocol: "ethereum", Address: common.HexToAddress(m[1]).Hex(), Network: m[2]}, true
	}
	if common.IsHexAddress(data) && strings.HasPrefix(data, "0x") {
		return &AddressOnly{Protocol: "ethereum", Address: common.HexToAddress(data).Hex()}, true
	}
	if len(data) >= 40 && ss58.IsValid(data) {
		return &AddressOnly{Protocol: "substrate", Address: data}, true
	}
	return nil, false
}

func (c *Classifier) address(s Scan, _ map[string]json.RawMessage) (ParsedData, error) {
	a, _ := parseAddress(strings.TrimSpace(s.Data))
	return a, nil
}

func jsonObject(data string) map[string]json.RawMessage {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, "{") {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil
	}
	return doc
}

func matchNetworkAdd(_ Scan, doc map[string]json.RawMessage) bool {
	_, ok := doc["genesisHash"]
	return ok
}

func (c *Classifier) networkAdd(s Scan, _ map[string]json.RawMessage) (ParsedData, error) {
	return &NetworkAddRequest{Raw: []byte(s.Data)}, nil
}

func matchJSON(_ Scan, doc map[string]json.RawMessage) bool {
	return doc != nil
}

func (c *Classifier) legacyJSON(s Scan, _ map[string]json.RawMessage) (ParsedData, error) {
	req, err := ethereum.ParseLegacyJSON([]byte(strings.TrimSpace(s.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrMalformedFrame, err)
	}
	out := &LegacyEthereumRequest{
		Sender:      req.Account.Hex(),
		Description: req.Description,
		Request:     req,
	}
	if tx := req.Tx; tx != nil {
		out.To = tx.Recipient()
		out.Value = tx.Value
		out.Gas = tx.Gas
		out.GasPrice = tx.GasPrice
		out.Data = tx.Data
	} else {
		out.Data = req.Message
	}
	return out, nil
}

func (c *Classifier) binary(s Scan, _ map[string]json.RawMessage) (ParsedData, error) {
	if strings.TrimSpace(s.RawData) == "" {
		observability.RecordScanFrame("malformed")
		return nil, fmt.Errorf("%w: %w", protocol.ErrMalformedFrame, ErrNoRawData)
	}
	stripped, err := envelope.Strip(s.RawData)
	if err != nil {
		observability.RecordScanFrame("malformed")
		return nil, err
	}
	f, err := frame.Parse(stripped, c.opts.Limits)
	if err != nil {
		observability.RecordScanFrame("malformed")
		return nil, err
	}
	st, err := c.reassembler.Submit(f)
	if err != nil {
		observability.RecordScanFrame("rejected")
		return nil, err
	}
	observability.RecordScanFrame("accepted")
	if !st.Complete {
		return &MultipartProgress{
			Frame:    f.Index,
			Received: st.Received,
			Total:    st.Total,
			Missing:  c.reassembler.Missing(),
		}, nil
	}
	parsed, err := c.ClassifyAssembled(st.Bytes)
	if err != nil {
		c.reassembler.Reset()
		log.Debug().Err(err).Int("frames", st.Total).Msg("classify.binary assembled request rejected, reassembler reset")
		return nil, err
	}
	return parsed, nil
}

// ClassifyAssembled classifies the bytes of a complete transmission.
func (c *Classifier) ClassifyAssembled(b []byte) (ParsedData, error) {
	req, err := uos.Decode(b)
	if err != nil {
		return nil, err
	}
	if req.IsSubstrate() {
		return c.substrateRequest(req)
	}
	return c.ethereumRequest(req)
}

func (c *Classifier) substrateRequest(req uos.Request) (ParsedData, error) {
	network, ok := c.networks.Network(req.GenesisHex())
	if !ok {
		return nil, fmt.Errorf("%w: genesis %s", ErrUnknownNetwork, req.GenesisHex())
	}
	sender, err := ss58.Encode(ss58.AccountID(req.PublicKey), network.Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: sender: %w", protocol.ErrMalformedFrame, err)
	}
	out := &SubstrateSigningRequest{
		SenderAddress: sender,
		NetworkKey:    network.Key(),
		Request:       req,
		Payload:       req.Payload,
		SigningData:   req.Payload,
	}
	switch {
	case req.Action == uos.ActionSignHash:
		out.IsHashedMessage = true
	case len(req.Payload) > c.opts.OversizedPayloadBytes:
		sum := blake2b.Sum256(req.Payload)
		out.SigningData = sum[:]
		out.IsHashedMessage = true
	}
	log.Debug().
		Str("network", network.PathID).
		Str("crypto", req.Crypto.String()).
		Bool("hashed", out.IsHashedMessage).
		Int("payload", len(req.Payload)).
		Msg("classify.ClassifyAssembled substrate request")
	return out, nil
}

func (c *Classifier) ethereumRequest(req uos.Request) (ParsedData, error) {
	out := &EthereumSigningRequest{
		Sender:  common.BytesToAddress(req.PublicKey).Hex(),
		Request: req,
	}
	if req.IsTransaction() {
		tx, err := ethereum.DecodeTransaction(req.Payload)
		if err != nil {
			return nil, err
		}
		h := tx.SigningHash()
		out.Tx, out.Digest = tx, h[:]
	} else {
		out.Message = req.Payload
		out.Digest = ethereum.MessageHash(req.Payload)
	}
	return out, nil
}
