package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("test-secret", time.Hour, 24*time.Hour)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := newTestJWTManager()

	token, err := m.GenerateAccessToken("agent-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, "token-arena", claims.Issuer)
}

func TestJWTManager_ValidateInvalidToken(t *testing.T) {
	m := newTestJWTManager()

	_, err := m.ValidateToken("not.a.token")
	assert.Error(t, err)

	// 其他密钥签发的令牌无效
	other := NewJWTManager("other-secret", time.Hour, 24*time.Hour)
	token, err := other.GenerateAccessToken("agent-1")
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, 24*time.Hour)

	token, err := m.GenerateAccessToken("agent-1")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RefreshAccessToken(t *testing.T) {
	m := newTestJWTManager()

	refresh, err := m.GenerateRefreshToken("agent-1")
	require.NoError(t, err)

	access, err := m.RefreshAccessToken(refresh)
	require.NoError(t, err)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID)
	assert.Equal(t, "access", claims.TokenType)

	// 访问令牌不能当刷新令牌用
	_, err = m.RefreshAccessToken(access)
	assert.Error(t, err)
}
