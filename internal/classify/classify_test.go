package classify

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/danmuck/coldsign/internal/ethereum"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/protocol/envelope"
	"github.com/danmuck/coldsign/internal/protocol/frame"
	"github.com/danmuck/coldsign/internal/protocol/reassembly"
	"github.com/danmuck/coldsign/internal/protocol/uos"
	"github.com/danmuck/coldsign/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

const (
	polkadotKey   = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"
	aliceHex      = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	alicePolkadot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	aliceGeneric  = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	ethAccount    = "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F"
)

func newClassifier(t *testing.T) (*Classifier, *reassembly.Reassembler) {
	t.Helper()
	catalog, err := networks.Default()
	require.NoError(t, err)
	r := reassembly.New(frame.DefaultLimits())
	return New(catalog, r, DefaultOptions()), r
}

func substrateBytes(t *testing.T, genesisHex string, payload []byte) []byte {
	t.Helper()
	key, err := hex.DecodeString(aliceHex)
	require.NoError(t, err)
	req := uos.Request{
		Prefix:    uos.PrefixSubstrate,
		Crypto:    uos.CryptoSr25519,
		Action:    uos.ActionSignTransaction,
		PublicKey: key,
		Payload:   payload,
	}
	g, err := hex.DecodeString(genesisHex[2:])
	require.NoError(t, err)
	copy(req.GenesisHash[:], g)
	b, err := uos.Encode(req)
	require.NoError(t, err)
	return b
}

func binaryScan(b []byte) Scan {
	return Scan{Data: string(b), RawData: envelope.Wrap(b, 0)}
}

func TestClassifyRuleOrder(t *testing.T) {
	testlog.Start(t)
	c, r := newClassifier(t)

	cases := []struct {
		name string
		scan Scan
		want Kind
	}{
		{"substrate-uri", Scan{Data: "substrate:" + aliceGeneric + ":" + polkadotKey}, KindAddress},
		{"ethereum-uri", Scan{Data: "ethereum:" + ethAccount + "@1"}, KindAddress},
		{"bare-ss58", Scan{Data: alicePolkadot}, KindAddress},
		{"network-add", Scan{Data: `{"genesisHash":"0x01","title":"evil"}`}, KindNetworkAdd},
		{"legacy-json", Scan{Data: `{"action":"signData","data":{"account":"` + ethAccount + `","data":"0x6869"}}`}, KindLegacyEthereum},
		{"binary", binaryScan(substrateBytes(t, polkadotKey, []byte{1, 2, 3})), KindSubstrate},
	}
	for _, tc := range cases {
		got, err := c.Classify(tc.scan)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, got.Kind(), tc.name)
		require.True(t, Complete(got), tc.name)
	}

	// Only the binary scan touched the reassembler.
	st := r.Status()
	require.True(t, st.Complete)
	require.Equal(t, 1, st.Total)
}

func TestClassifyAddressDetails(t *testing.T) {
	testlog.Start(t)
	c, _ := newClassifier(t)

	got, err := c.Classify(Scan{Data: "substrate:" + aliceGeneric + ":" + polkadotKey})
	require.NoError(t, err)
	addr := got.(*AddressOnly)
	require.Equal(t, "substrate", addr.Protocol)
	require.Equal(t, aliceGeneric, addr.Address)
	require.Equal(t, polkadotKey, addr.Network)

	got, err = c.Classify(Scan{Data: "ethereum:0x9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f@5"})
	require.NoError(t, err)
	addr = got.(*AddressOnly)
	require.Equal(t, ethAccount, addr.Address)
	require.Equal(t, "5", addr.Network)
}

func TestClassifySubstrateRequest(t *testing.T) {
	testlog.Start(t)
	c, _ := newClassifier(t)

	got, err := c.Classify(binaryScan(substrateBytes(t, polkadotKey, []byte{0xaa, 0xbb})))
	require.NoError(t, err)
	req := got.(*SubstrateSigningRequest)
	require.Equal(t, alicePolkadot, req.SenderAddress)
	require.Equal(t, polkadotKey, req.NetworkKey)
	require.Equal(t, []byte{0xaa, 0xbb}, req.Payload)
	require.Equal(t, req.Payload, req.SigningData)
	require.False(t, req.IsHashedMessage)
	require.True(t, req.IsTransaction())
}

func TestClassifyOversizedPayloadIsHashed(t *testing.T) {
	testlog.Start(t)
	c, _ := newClassifier(t)
	payload := bytes.Repeat([]byte{0x42}, 300)

	got, err := c.Classify(binaryScan(substrateBytes(t, polkadotKey, payload)))
	require.NoError(t, err)
	req := got.(*SubstrateSigningRequest)
	sum := blake2b.Sum256(payload)
	require.True(t, req.IsHashedMessage)
	require.Equal(t, sum[:], req.SigningData)
	require.Equal(t, payload, req.Payload)
}

func TestClassifyMultipartOutOfOrder(t *testing.T) {
	testlog.Start(t)
	c, r := newClassifier(t)
	raw := substrateBytes(t, polkadotKey, bytes.Repeat([]byte{0x01}, 90))
	parts, err := frame.Split(raw, 40)
	require.NoError(t, err)
	require.Len(t, parts, 4)

	order := []int{2, 0, 3}
	for n, i := range order {
		got, err := c.Classify(Scan{RawData: envelope.Wrap(frame.Encode(parts[i]), 0)})
		require.NoError(t, err)
		progress, ok := got.(*MultipartProgress)
		require.True(t, ok, "frame %d", i)
		require.Equal(t, uint16(i), progress.Frame)
		require.Equal(t, n+1, progress.Received)
		require.Equal(t, 4, progress.Total)
		require.False(t, Complete(got))
	}
	require.Equal(t, []uint16{1}, r.Missing())

	got, err := c.Classify(Scan{RawData: envelope.Wrap(frame.Encode(parts[1]), 0)})
	require.NoError(t, err)
	req := got.(*SubstrateSigningRequest)
	require.Len(t, req.Payload, 90)
}

func TestClassifyMalformedKeepsPartialState(t *testing.T) {
	testlog.Start(t)
	c, r := newClassifier(t)
	raw := substrateBytes(t, polkadotKey, bytes.Repeat([]byte{0x01}, 90))
	parts, err := frame.Split(raw, 40)
	require.NoError(t, err)
	_, err = c.Classify(Scan{RawData: envelope.Wrap(frame.Encode(parts[0]), 0)})
	require.NoError(t, err)

	for _, rawData := range []string{"zz", "", "40353011"} {
		_, err := c.Classify(Scan{Data: "not an address", RawData: rawData})
		require.True(t, errors.Is(err, protocol.ErrMalformedFrame), "raw %q: %v", rawData, err)
	}
	st := r.Status()
	require.Equal(t, 1, st.Received)
	require.Equal(t, 3, st.Total)
}

func TestClassifyFailedAssemblyResets(t *testing.T) {
	testlog.Start(t)
	c, r := newClassifier(t)
	good := substrateBytes(t, polkadotKey, []byte{1, 2, 3})
	bad := good[:len(good)-1]

	_, err := c.Classify(binaryScan(bad))
	require.ErrorIs(t, err, protocol.ErrMalformedFrame)
	require.False(t, r.Pending())
	require.Zero(t, r.Status().Total)

	got, err := c.Classify(binaryScan(good))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got.(*SubstrateSigningRequest).Payload)

	r.Reset()
	raw := substrateBytes(t, polkadotKey, bytes.Repeat([]byte{0x01}, 60))
	goodParts, err := frame.Split(raw, 100)
	require.NoError(t, err)
	badParts, err := frame.Split(raw[:len(raw)-1], 100)
	require.NoError(t, err)
	require.Len(t, goodParts, 2)
	require.Len(t, badParts, 2)
	require.Equal(t, goodParts[0], badParts[0])

	wrap := func(f frame.Frame) Scan { return Scan{RawData: envelope.Wrap(frame.Encode(f), 0)} }
	_, err = c.Classify(wrap(badParts[0]))
	require.NoError(t, err)
	_, err = c.Classify(wrap(badParts[1]))
	require.ErrorIs(t, err, protocol.ErrMalformedFrame)

	progress, err := c.Classify(wrap(goodParts[0]))
	require.NoError(t, err)
	require.Equal(t, 1, progress.(*MultipartProgress).Received)
	got, err = c.Classify(wrap(goodParts[1]))
	require.NoError(t, err)
	require.Len(t, got.(*SubstrateSigningRequest).Payload, 60)
}

func TestClassifyUnknownNetwork(t *testing.T) {
	testlog.Start(t)
	c, _ := newClassifier(t)
	unknown := "0x" + hex.EncodeToString(bytes.Repeat([]byte{0x77}, 32))
	_, err := c.Classify(binaryScan(substrateBytes(t, unknown, []byte{1})))
	require.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestClassifyEthereumBinaryMessage(t *testing.T) {
	testlog.Start(t)
	c, _ := newClassifier(t)
	addr, err := ethereum.ParseAddress(ethAccount)
	require.NoError(t, err)
	b, err := uos.Encode(uos.Request{
		Prefix:    uos.PrefixEthereum,
		Action:    uos.ActionEthMessage,
		PublicKey: addr.Bytes(),
		Payload:   []byte("hello"),
	})
	require.NoError(t, err)

	got, err := c.Classify(binaryScan(b))
	require.NoError(t, err)
	req := got.(*EthereumSigningRequest)
	require.Equal(t, ethAccount, req.Sender)
	require.Nil(t, req.Tx)
	require.Equal(t, ethereum.MessageHash([]byte("hello")), req.Digest)
}

func TestClassifyLegacyJSONRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	c, _ := newClassifier(t)
	_, err := c.Classify(Scan{Data: `{"action":"signTransaction","data":{}}`})
	require.ErrorIs(t, err, protocol.ErrMalformedFrame)
	require.ErrorIs(t, err, ethereum.ErrInvalidRequest)
}
