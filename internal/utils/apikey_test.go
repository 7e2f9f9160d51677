package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	parts, err := GenerateAPIKey("twa")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(parts.Key, "twa-"))
	assert.Equal(t, parts.Prefix, APIKeyPrefix(parts.Key))
	assert.Len(t, parts.Prefix, 16)
	// 哈希不包含明文
	assert.NotContains(t, parts.Hash, parts.Key)
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	first, err := GenerateAPIKey("twa")
	require.NoError(t, err)
	second, err := GenerateAPIKey("twa")
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
	assert.NotEqual(t, first.Prefix, second.Prefix)
}

func TestVerifyAPIKey(t *testing.T) {
	parts, err := GenerateAPIKey("twa")
	require.NoError(t, err)

	assert.True(t, VerifyAPIKey(parts.Key, parts.Hash))
	assert.False(t, VerifyAPIKey("twa-wrongkey", parts.Hash))
	assert.False(t, VerifyAPIKey(parts.Key, "garbage"))
}

func TestLooksLikeAPIKey(t *testing.T) {
	parts, err := GenerateAPIKey("twa")
	require.NoError(t, err)

	assert.True(t, LooksLikeAPIKey(parts.Key, "twa"))
	assert.False(t, LooksLikeAPIKey("Bearer abc", "twa"))
	assert.False(t, LooksLikeAPIKey("twa", "twa"))
}

func TestHashSecretRoundTrip(t *testing.T) {
	hash, err := HashSecret("my-secret")
	require.NoError(t, err)

	ok, err := VerifySecret("my-secret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySecret("not-my-secret", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
