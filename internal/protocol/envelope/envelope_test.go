package envelope

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/testutil/testlog"
)

func TestStripShortSegmentWithPadding(t *testing.T) {
	testlog.Start(t)
	payload := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x53, 0x01}
	raw := Wrap(payload, 20)
	if !strings.HasSuffix(raw, "ec11ec") && !strings.HasSuffix(raw, "ec11") {
		t.Fatalf("expected pad codewords, got %s", raw)
	}
	got, err := Strip(raw)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got=%x want=%x", got, payload)
	}
}

func TestStripSixteenBitLength(t *testing.T) {
	testlog.Start(t)
	payload := bytes.Repeat([]byte{0xab}, 300)
	got, err := Strip(Wrap(payload, 0))
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch for 16-bit length")
	}
}

func TestStripKnownDump(t *testing.T) {
	testlog.Start(t)
	// mode 4, len 0x03, payload 0x530102, terminator, pad.
	got, err := Strip("0x4035301020ec11ec")
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if !bytes.Equal(got, []byte{0x53, 0x01, 0x02}) {
		t.Fatalf("unexpected payload %x", got)
	}
}

func TestStripRejectsMalformed(t *testing.T) {
	testlog.Start(t)
	cases := map[string]error{
		"":               ErrEmpty,
		"0x":             ErrEmpty,
		"2035301020":     ErrBadMode,
		"40353011":       ErrBadMode,
		"40f5301020":     ErrBadLength,
		"4ff":            ErrBadMode,
		"403zz01020ec11": ErrBadHex,
	}
	for raw, want := range cases {
		_, err := Strip(raw)
		if !errors.Is(err, want) {
			t.Fatalf("Strip(%q) expected %v, got %v", raw, want, err)
		}
		if !errors.Is(err, protocol.ErrMalformedFrame) {
			t.Fatalf("Strip(%q) must wrap ErrMalformedFrame, got %v", raw, err)
		}
	}
}
