package session_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/decoder"
	"github.com/danmuck/coldsign/internal/keys"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/protocol/envelope"
	"github.com/danmuck/coldsign/internal/protocol/frame"
	"github.com/danmuck/coldsign/internal/protocol/reassembly"
	"github.com/danmuck/coldsign/internal/protocol/uos"
	"github.com/danmuck/coldsign/internal/registry"
	"github.com/danmuck/coldsign/internal/session"
	"github.com/danmuck/coldsign/internal/session/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	polkadotKey   = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"
	statemineKey  = "0x48239ef607d7928874027a43a67689209727dfb3d3dc5e5b03a39bdc2eda771a"
	aliceSeed     = "e5be9a5092b81bca64be81d212e7f2f9eba183bb7a90954f7b76361f6edb5c0a"
	aliceHex      = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	alicePolkadot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
)

type harness struct {
	ctrl        *session.Controller
	accounts    *mocks.MockAccounts
	signer      *mocks.MockSigner
	display     *mocks.MockDisplay
	reassembler *reassembly.Reassembler
	alerts      []session.Alert
	reviews     []session.Review
	progress    []classify.MultipartProgress
}

func newHarness(t *testing.T, cfg session.Config) *harness {
	t.Helper()
	mc := gomock.NewController(t)
	catalog, err := networks.Default()
	require.NoError(t, err)

	h := &harness{
		accounts:    mocks.NewMockAccounts(mc),
		signer:      mocks.NewMockSigner(mc),
		display:     mocks.NewMockDisplay(mc),
		reassembler: reassembly.New(frame.DefaultLimits()),
	}
	h.display.EXPECT().Alert(gomock.Any()).Do(func(a session.Alert) { h.alerts = append(h.alerts, a) }).AnyTimes()
	h.display.EXPECT().Review(gomock.Any()).Do(func(r session.Review) { h.reviews = append(h.reviews, r) }).AnyTimes()
	h.display.EXPECT().Progress(gomock.Any()).Do(func(p classify.MultipartProgress) { h.progress = append(h.progress, p) }).AnyTimes()

	h.ctrl, err = session.NewController(session.Deps{
		Classifier:  classify.New(catalog, h.reassembler, classify.DefaultOptions()),
		Reassembler: h.reassembler,
		Networks:    catalog,
		Registries:  registry.NewCache(catalog),
		Decoder:     decoder.New(decoder.DefaultOptions()),
		Accounts:    h.accounts,
		Signer:      h.signer,
		Display:     h.display,
	}, cfg)
	require.NoError(t, err)
	return h
}

func (h *harness) knowsAlice() {
	h.accounts.EXPECT().
		LookupAccount(gomock.Any(), alicePolkadot).
		Return(session.Account{Name: "alice", Address: alicePolkadot, NetworkKey: polkadotKey}, true).
		AnyTimes()
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func aliceKey(t *testing.T) keys.Key {
	return keys.Key{Scheme: keys.SchemeSr25519, Secret: mustHex(t, aliceSeed)}
}

func compact(n int64) []byte {
	var buf bytes.Buffer
	if err := scale.NewEncoder(&buf).EncodeUintCompact(*big.NewInt(n)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// transferMethod is balances.transfer to alice on polkadot.
func transferMethod(t *testing.T, amount int64) []byte {
	return append(append([]byte{5, 0, 0}, mustHex(t, aliceHex)...), compact(amount)...)
}

func extrinsicPayload(t *testing.T, genesisHex string, method []byte, spec uint32) []byte {
	t.Helper()
	var genesis [32]byte
	copy(genesis[:], mustHex(t, genesisHex[2:]))
	p, err := decoder.EncodeEnvelope(decoder.Envelope{
		Method:      method,
		Era:         decoder.MortalEra(64, 100),
		Nonce:       big.NewInt(1),
		Tip:         big.NewInt(0),
		SpecVersion: spec,
		TxVersion:   8,
		GenesisHash: genesis,
	})
	require.NoError(t, err)
	return p
}

func requestBytes(t *testing.T, genesisHex string, action uos.Action, payload []byte) []byte {
	t.Helper()
	req := uos.Request{
		Prefix:    uos.PrefixSubstrate,
		Crypto:    uos.CryptoSr25519,
		Action:    action,
		PublicKey: mustHex(t, aliceHex),
		Payload:   payload,
	}
	copy(req.GenesisHash[:], mustHex(t, genesisHex[2:]))
	b, err := uos.Encode(req)
	require.NoError(t, err)
	return b
}

func scanOf(b []byte) classify.Scan {
	return classify.Scan{RawData: envelope.Wrap(b, 0)}
}

func txScan(t *testing.T, spec uint32) classify.Scan {
	payload := extrinsicPayload(t, polkadotKey, transferMethod(t, 15_000_000_000), spec)
	return scanOf(requestBytes(t, polkadotKey, uos.ActionSignTransaction, payload))
}

func (h *harness) unlocked(t *testing.T, scan classify.Scan) session.Snapshot {
	t.Helper()
	ctx := context.Background()
	snap, err := h.ctrl.Scan(ctx, scan)
	require.NoError(t, err)
	require.Equal(t, session.StateAwaitingSenderUnlock, snap.State)
	snap, err = h.ctrl.UnlockSender(ctx, aliceKey(t))
	require.NoError(t, err)
	return snap
}
