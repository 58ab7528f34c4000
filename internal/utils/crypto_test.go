// internal/utils/crypto_test.go
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSubscriptionCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := GenerateSubscriptionCode()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(code, "SUB-"))
		assert.Len(t, code, 12)

		suffix := strings.TrimPrefix(code, "SUB-")
		for _, char := range suffix {
			assert.NotContains(t, "01IO", string(char), "ambiguous character %c in %s", char, code)
		}

		seen[code] = true
	}

	// 100 draws from a 32^8 space should never collide.
	assert.Len(t, seen, 100)
}

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, s, 32)

	other, err := GenerateRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}
