package codex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	t.Parallel()

	t.Run("produces valid codes", func(t *testing.T) {
		code, err := NewCode()
		require.NoError(t, err)
		require.True(t, Valid(code), "generated code %q should be valid", code)
		require.Len(t, code, CodeLength+1) // one group separator
	})

	t.Run("codes are unique in practice", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 1000 {
			code, err := NewCode()
			require.NoError(t, err)
			_, dup := seen[code]
			require.False(t, dup, "duplicate code %q", code)
			seen[code] = struct{}{}
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "7KQ2M-XW4RD", Normalize("  7kq2m-xw4rd\n"))
}

func TestValid(t *testing.T) {
	t.Parallel()

	require.True(t, Valid("7KQ2M-XW4RD"))
	require.False(t, Valid("7KQ2M"))           // too short
	require.False(t, Valid("7KQ2M-XW4RO"))     // O not in alphabet
	require.False(t, Valid("7kq2m-xw4rd"))     // lowercase
	require.False(t, Valid("7KQ2M-XW4RD-EXT")) // too long
}
