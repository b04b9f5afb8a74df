package protocol

import (
	"fmt"
	"testing"
)

func TestKindFollowsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: unknown call 5/9", ErrDecodeError)
	if got := Kind(wrapped); got != "decode_error" {
		t.Fatalf("unexpected kind: %s", got)
	}
	if got := Kind(fmt.Errorf("frame 3: %w", ErrMalformedFrame)); got != "malformed_frame" {
		t.Fatalf("unexpected kind: %s", got)
	}
	if got := Kind(nil); got != "none" {
		t.Fatalf("unexpected kind for nil: %s", got)
	}
	if got := Kind(fmt.Errorf("boom")); got != "other" {
		t.Fatalf("unexpected kind for foreign error: %s", got)
	}
}
