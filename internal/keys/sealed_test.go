package keys

import (
	"strings"
	"testing"

	"github.com/danmuck/coldsign/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the tests fast; the format records them.
var testSealParams = SealParams{Time: 1, MemoryKiB: 1024, Threads: 1}

func TestSealRoundTrip(t *testing.T) {
	testlog.Start(t)
	secret := []byte(strings.Repeat("\x46", 32))
	sealed, err := Seal(secret, []byte("1234"), testSealParams)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, "coldsign1$1$1024$1$"))
	require.NotContains(t, sealed, "\n")

	opened, err := Open(sealed, []byte("1234"))
	require.NoError(t, err)
	require.Equal(t, secret, opened)

	again, err := Seal(secret, []byte("1234"), testSealParams)
	require.NoError(t, err)
	require.NotEqual(t, sealed, again)
}

func TestOpenRejectsWrongPINAndGarbage(t *testing.T) {
	testlog.Start(t)
	sealed, err := Seal([]byte("seed"), []byte("1234"), testSealParams)
	require.NoError(t, err)

	_, err = Open(sealed, []byte("4321"))
	require.ErrorIs(t, err, ErrWrongPIN)

	parts := strings.Split(sealed, "$")
	flipped := "A"
	if parts[6][0] == 'A' {
		flipped = "B"
	}
	parts[6] = flipped + parts[6][1:]
	_, err = Open(strings.Join(parts, "$"), []byte("1234"))
	require.ErrorIs(t, err, ErrWrongPIN)

	for _, bad := range []string{"", "coldsign1$1$2", "other$1$1024$1$a$b$c", "coldsign1$x$1024$1$a$b$c", "coldsign1$1$1024$1$!!$b$c"} {
		_, err := Open(bad, []byte("1234"))
		require.ErrorIs(t, err, ErrMalformedSealed, bad)
	}

	_, err = Seal([]byte("seed"), nil, testSealParams)
	require.ErrorIs(t, err, ErrInvalidSecret)
}
