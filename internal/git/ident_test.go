package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIdent(t *testing.T) {
	t.Run("valid identity", func(t *testing.T) {
		sig, err := ParseIdent("Jane Q. Doe <jane@example.com> 1700000000 -0130\n")
		require.NoError(t, err)
		require.Equal(t, "Jane Q. Doe", sig.Name)
		require.Equal(t, "jane@example.com", sig.Email)
		require.Equal(t, int64(1700000000), sig.When.Unix())
		_, offset := sig.When.Zone()
		require.Equal(t, -(3600 + 1800), offset)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := ParseIdent("Jane 1700000000 +0000")
		require.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		_, err := ParseIdent("Jane <j@e.com> 1700000000 CET")
		require.Error(t, err)
	})
}
