package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/danmuck/coldsign/internal/config"
	"github.com/danmuck/coldsign/internal/decoder"
	"github.com/danmuck/coldsign/internal/display"
	"github.com/danmuck/coldsign/internal/keys"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/protocol/envelope"
	"github.com/danmuck/coldsign/internal/protocol/uos"
	"github.com/danmuck/coldsign/internal/testutil/testlog"
)

const (
	polkadotKey   = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"
	aliceSeed     = "e5be9a5092b81bca64be81d212e7f2f9eba183bb7a90954f7b76361f6edb5c0a"
	aliceHex      = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	alicePolkadot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		t.Fatalf("hex %q: %v", s, err)
	}
	return b
}

// transferScan is the raw dump of a polkadot balances.transfer request
// signed by alice.
func transferScan(t *testing.T) string {
	t.Helper()
	var amount bytes.Buffer
	if err := scale.NewEncoder(&amount).EncodeUintCompact(*big.NewInt(15_000_000_000)); err != nil {
		t.Fatalf("compact: %v", err)
	}
	method := append(append([]byte{5, 0, 0}, mustHex(t, aliceHex)...), amount.Bytes()...)

	var genesis [32]byte
	copy(genesis[:], mustHex(t, polkadotKey))
	payload, err := decoder.EncodeEnvelope(decoder.Envelope{
		Method:      method,
		Era:         decoder.MortalEra(64, 100),
		Nonce:       big.NewInt(1),
		Tip:         big.NewInt(0),
		SpecVersion: 9110,
		TxVersion:   8,
		GenesisHash: genesis,
	})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	req := uos.Request{
		Prefix:      uos.PrefixSubstrate,
		Crypto:      uos.CryptoSr25519,
		Action:      uos.ActionSignTransaction,
		PublicKey:   mustHex(t, aliceHex),
		Payload:     payload,
		GenesisHash: genesis,
	}
	b, err := uos.Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return envelope.Wrap(b, 0)
}

func writeAccounts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.toml")
	if err := config.WriteAccountsTemplate(path, false); err != nil {
		t.Fatalf("accounts template: %v", err)
	}
	return path
}

func newTestScanner(t *testing.T, input string) (*scanner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	return newScannerWithAccounts(t, writeAccounts(t), input)
}

func newScannerWithAccounts(t *testing.T, accounts, input string) (*scanner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Accounts.File = accounts
	cfg.Networks.Warm = nil

	var out, prompts bytes.Buffer
	s, err := newScanner(context.Background(), cfg, display.New(&out, display.FormatText),
		newPrompter(strings.NewReader(input), &prompts))
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	return s, &out, &prompts
}

func TestScanFromLine(t *testing.T) {
	testlog.Start(t)
	if s := scanFromLine("40353011"); s.RawData != "40353011" || s.Data != "" {
		t.Fatalf("expected raw scan, got %+v", s)
	}
	if s := scanFromLine("substrate:abc:0x00"); s.Data == "" || s.RawData != "" {
		t.Fatalf("expected text scan, got %+v", s)
	}
	if s := scanFromLine("0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F"); s.Data == "" {
		t.Fatalf("expected 0x address to be text, got %+v", s)
	}
}

func TestAccountBook(t *testing.T) {
	testlog.Start(t)
	catalog, err := networks.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	book, err := newAccountBook([]config.Account{
		{Name: "alice", Address: alicePolkadot, Network: "polkadot", Scheme: "sr25519"},
		{Name: "eve", Address: "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F", Scheme: "ethereum"},
	}, catalog)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	acct, ok := book.LookupAccount(context.Background(), alicePolkadot)
	if !ok || acct.NetworkKey != polkadotKey {
		t.Fatalf("unexpected alice lookup %+v %v", acct, ok)
	}
	if e, ok := book.entry("0x9d8a62f656a8d1615c1294fd71e9cfb3e4855a4f"); !ok || e.scheme != keys.SchemeEthereum {
		t.Fatalf("expected case-insensitive ethereum lookup")
	}
	if _, ok := book.LookupAccount(context.Background(), strings.ToLower(alicePolkadot)); ok {
		t.Fatalf("ss58 lookup must be case sensitive")
	}

	_, err = newAccountBook([]config.Account{{Name: "x", Address: "y", Network: "nowhere", Scheme: "ed25519"}}, catalog)
	if !errors.Is(err, networks.ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
}

func TestScannerSignsConfirmedTransfer(t *testing.T) {
	testlog.Start(t)
	input := transferScan(t) + "\n" + aliceSeed + "\ny\n"
	s, out, _ := newTestScanner(t, input)
	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{"== substrate on Polkadot\n", "call 1: balances.transfer\n", "signed (sr25519) session "} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	last := strings.TrimSpace(got[strings.LastIndex(strings.TrimSpace(got), "\n")+1:])
	if !strings.HasPrefix(last, "0x01") || len(last) != 2+2+128 {
		t.Fatalf("unexpected signature payload %q", last)
	}
}

func TestScannerDeclineSkipsSigning(t *testing.T) {
	testlog.Start(t)
	input := transferScan(t) + "\n" + aliceSeed + "\nn\n"
	s, out, prompts := newTestScanner(t, input)
	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "signed (") {
		t.Fatalf("declined session was signed:\n%s", out.String())
	}
	if !strings.Contains(prompts.String(), "declined") {
		t.Fatalf("expected decline notice, got %q", prompts.String())
	}
}

func TestScannerRejectsWrongSecret(t *testing.T) {
	testlog.Start(t)
	input := transferScan(t) + "\n" + strings.Repeat("46", 32) + "\n"
	s, out, prompts := newTestScanner(t, input)
	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "signed (") {
		t.Fatalf("mismatched key signed:\n%s", out.String())
	}
	if !strings.Contains(prompts.String(), "key does not match sender") {
		t.Fatalf("expected key mismatch notice, got %q", prompts.String())
	}
}

func TestScannerReportsAddressScan(t *testing.T) {
	testlog.Start(t)
	s, out, _ := newTestScanner(t, "# comment\n\nsubstrate:"+alicePolkadot+":"+polkadotKey+"\n")
	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "[address_scanned]") {
		t.Fatalf("expected address alert, got:\n%s", out.String())
	}
}

func sealedAccounts(t *testing.T, pin string) string {
	t.Helper()
	sealParams = keys.SealParams{Time: 1, MemoryKiB: 1024, Threads: 1}
	t.Cleanup(func() { sealParams = keys.DefaultSealParams })

	var out, prompts bytes.Buffer
	in := newPrompter(strings.NewReader(aliceSeed+"\n"+pin+"\n"+pin+"\n"), &prompts)
	if err := runSeal(nil, in, &out); err != nil {
		t.Fatalf("seal: %v", err)
	}
	line := strings.TrimSpace(out.String())
	if !strings.HasPrefix(line, `sealed_secret = "coldsign1$`) {
		t.Fatalf("unexpected seal output %q", line)
	}
	body := "[[account]]\nname = \"alice\"\naddress = \"" + alicePolkadot + "\"\n" +
		"network = \"polkadot\"\nscheme = \"sr25519\"\n" + line + "\n"
	path := filepath.Join(t.TempDir(), "accounts.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestScannerUnlocksSealedSecret(t *testing.T) {
	testlog.Start(t)
	accounts := sealedAccounts(t, "1234")
	s, out, prompts := newScannerWithAccounts(t, accounts, transferScan(t)+"\n1234\ny\n")
	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(prompts.String(), "pin for alice: ") {
		t.Fatalf("expected pin prompt, got %q", prompts.String())
	}
	if !strings.Contains(out.String(), "signed (sr25519)") {
		t.Fatalf("expected signature, got:\n%s", out.String())
	}
}

func TestScannerWrongPIN(t *testing.T) {
	testlog.Start(t)
	accounts := sealedAccounts(t, "1234")
	s, out, prompts := newScannerWithAccounts(t, accounts, transferScan(t)+"\n9999\n")
	if err := s.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "signed (") {
		t.Fatalf("wrong pin signed:\n%s", out.String())
	}
	if !strings.Contains(prompts.String(), keys.ErrWrongPIN.Error()) {
		t.Fatalf("expected wrong pin notice, got %q", prompts.String())
	}
}

func TestRunSealRejectsMismatchedPins(t *testing.T) {
	testlog.Start(t)
	in := newPrompter(strings.NewReader(aliceSeed+"\n1234\n4321\n"), io.Discard)
	if err := runSeal(nil, in, io.Discard); err == nil {
		t.Fatalf("expected pin mismatch error")
	}
}

func TestRunConfigWritesAndValidates(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "coldsign.toml")
	var out bytes.Buffer
	if err := runConfig([]string{"-output", cfgPath}, &out); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := runConfig([]string{"-validate", "-input", cfgPath}, &out); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	acctPath := filepath.Join(dir, "accounts.toml")
	if err := runConfig([]string{"-kind", "accounts", "-output", acctPath}, &out); err != nil {
		t.Fatalf("write accounts: %v", err)
	}
	if err := runConfig([]string{"-kind", "accounts", "-validate", "-input", acctPath}, &out); err != nil {
		t.Fatalf("validate accounts: %v", err)
	}
	if err := runConfig([]string{"-kind", "seed"}, &out); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if err := os.WriteFile(cfgPath, []byte("[decoder]\nmax_call_depth = 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := runConfig([]string{"-validate", "-input", cfgPath}, &out); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRunNetworksYAML(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := runNetworks([]string{"-format", "yaml"}, &out); err != nil {
		t.Fatalf("networks: %v", err)
	}
	if !strings.HasPrefix(out.String(), "---\nnetworks:\n") || !strings.Contains(out.String(), "path_id: polkadot") {
		t.Fatalf("unexpected yaml:\n%s", out.String())
	}
}
