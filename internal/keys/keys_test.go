package keys

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/danmuck/coldsign/internal/protocol/uos"
	"github.com/danmuck/coldsign/internal/testutil/testlog"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestEd25519MatchesRFC8032(t *testing.T) {
	testlog.Start(t)
	s, err := NewSigner(Key{Scheme: SchemeEd25519, Secret: decodeHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")})
	require.NoError(t, err)
	require.Equal(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a", hex.EncodeToString(s.PublicKey()))

	sig, err := s.Sign(nil)
	require.NoError(t, err)
	require.Equal(t, "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b", hex.EncodeToString(sig))
	require.True(t, ed25519.Verify(s.PublicKey(), nil, sig))
}

func TestSr25519DerivesAlice(t *testing.T) {
	testlog.Start(t)
	s, err := NewSigner(Key{Scheme: SchemeSr25519, Secret: decodeHex(t, "e5be9a5092b81bca64be81d212e7f2f9eba183bb7a90954f7b76361f6edb5c0a")})
	require.NoError(t, err)
	require.Equal(t, "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d", hex.EncodeToString(s.PublicKey()))

	msg := []byte("payload")
	sig, err := s.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, 64)
	require.True(t, s.(sr25519Signer).kp.Verify(msg, sig))
}

func TestEcdsaHashesWithBlake2b(t *testing.T) {
	testlog.Start(t)
	secret := bytes.Repeat([]byte{0x46}, 32)
	s, err := NewSigner(Key{Scheme: SchemeEcdsa, Secret: secret})
	require.NoError(t, err)
	require.Len(t, s.PublicKey(), 33)

	msg := []byte("any length payload")
	sig, err := s.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	digest := blake2b.Sum256(msg)
	pub, err := crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	require.Equal(t, s.PublicKey(), crypto.CompressPubkey(pub))
}

func TestEthereumSignatureRecoversAddress(t *testing.T) {
	testlog.Start(t)
	s, err := NewSigner(Key{Scheme: SchemeEthereum, Secret: bytes.Repeat([]byte{0x46}, 32)})
	require.NoError(t, err)
	require.Equal(t, "0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F", Address(s.PublicKey()))

	digest := decodeHex(t, "daf5a779ae972f972197303d7b574746c7ef83eadac0f2791ad23db92e4c8e53")
	sig, err := s.Sign(digest)
	require.NoError(t, err)
	require.Contains(t, []byte{27, 28}, sig[64])

	raw := append([]byte{}, sig...)
	raw[64] -= 27
	pub, err := crypto.SigToPub(digest, raw)
	require.NoError(t, err)
	require.Equal(t, s.PublicKey(), crypto.PubkeyToAddress(*pub).Bytes())

	_, err = s.Sign([]byte("not a digest"))
	require.ErrorIs(t, err, ErrDigestLength)
}

func TestNewSignerRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	_, err := NewSigner(Key{Scheme: SchemeEd25519, Secret: []byte{1, 2, 3}})
	require.ErrorIs(t, err, ErrInvalidSecret)

	_, err = NewSigner(Key{Scheme: Scheme(9), Secret: make([]byte, 32)})
	require.ErrorIs(t, err, ErrUnknownScheme)

	_, err = NewSigner(Key{Scheme: SchemeEthereum, Secret: make([]byte, 32)})
	require.ErrorIs(t, err, ErrInvalidSecret)
}

func TestSchemeForRequest(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		req  uos.Request
		want Scheme
	}{
		{uos.Request{Prefix: uos.PrefixSubstrate, Crypto: uos.CryptoEd25519}, SchemeEd25519},
		{uos.Request{Prefix: uos.PrefixSubstrate, Crypto: uos.CryptoSr25519}, SchemeSr25519},
		{uos.Request{Prefix: uos.PrefixSubstrate, Crypto: uos.CryptoEcdsa}, SchemeEcdsa},
		{uos.Request{Prefix: uos.PrefixEthereum}, SchemeEthereum},
	}
	for _, tc := range cases {
		got, err := SchemeFor(tc.req)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
	_, err := SchemeFor(uos.Request{Prefix: uos.PrefixSubstrate, Crypto: uos.Crypto(7)})
	require.ErrorIs(t, err, ErrUnknownScheme)
}

func TestEncodeResultAndWipe(t *testing.T) {
	testlog.Start(t)
	require.Equal(t, "0x01aabb", EncodeResult(SchemeSr25519, []byte{0xaa, 0xbb}))
	require.Equal(t, "0x00aa", EncodeResult(SchemeEd25519, []byte{0xaa}))
	require.Equal(t, "0xaabb1b", EncodeResult(SchemeEthereum, []byte{0xaa, 0xbb, 0x1b}))

	k := Key{Scheme: SchemeEd25519, Secret: bytes.Repeat([]byte{7}, 32)}
	k.Wipe()
	require.True(t, strings.Trim(string(k.Secret), "\x00") == "")
}

func TestParseSchemeAndSecret(t *testing.T) {
	testlog.Start(t)
	s, err := ParseScheme(" SR25519 ")
	require.NoError(t, err)
	require.Equal(t, SchemeSr25519, s)
	_, err = ParseScheme("bls")
	require.ErrorIs(t, err, ErrUnknownScheme)

	secret, err := ParseSecret("0x" + strings.Repeat("46", 32))
	require.NoError(t, err)
	require.Len(t, secret, 32)
	_, err = ParseSecret("4646")
	require.ErrorIs(t, err, ErrInvalidSecret)
	_, err = ParseSecret(strings.Repeat("zz", 32))
	require.ErrorIs(t, err, ErrInvalidSecret)
}
