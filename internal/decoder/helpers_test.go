package decoder

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/registry"
)

const (
	polkadotKey   = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"
	westendKey    = "0xe143f23803ac50e8f6f8e62695d1ce9e4e1d68aa36c1cd2cfd15340213f3423e"
	aliceHex      = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	alicePolkadot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	aliceGeneric  = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

func registryFor(t *testing.T, key string) *registry.Registry {
	t.Helper()
	c, err := networks.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	reg := registry.NewCache(c).Get(key)
	if reg == nil {
		t.Fatalf("no registry for %s", key)
	}
	return reg
}

func alice(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(aliceHex)
	if err != nil {
		t.Fatalf("alice key: %v", err)
	}
	return b
}

func compact(n int64) []byte {
	var buf bytes.Buffer
	if err := scale.NewEncoder(&buf).EncodeUintCompact(*big.NewInt(n)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func transferCall(pallet byte, dest []byte, amount int64) []byte {
	return join([]byte{pallet, 0x00, 0x00}, dest, compact(amount))
}

func remarkCall(msg string) []byte {
	return join([]byte{0x00, 0x01}, compact(int64(len(msg))), []byte(msg))
}

func batchCall(pallet byte, calls ...[]byte) []byte {
	return join([]byte{pallet, 0x00}, compact(int64(len(calls))), join(calls...))
}

func payloadFor(t *testing.T, genesisHex string, method []byte, spec, tx uint32) []byte {
	t.Helper()
	var genesis, block [32]byte
	g, err := hex.DecodeString(genesisHex[2:])
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	copy(genesis[:], g)
	block[0] = 0xbb
	p, err := EncodeEnvelope(Envelope{
		Method:      method,
		Era:         MortalEra(64, 100),
		Nonce:       big.NewInt(5),
		Tip:         big.NewInt(0),
		SpecVersion: spec,
		TxVersion:   tx,
		GenesisHash: genesis,
		BlockHash:   block,
	})
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return p
}
