package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AuthServiceTestSuite 认证服务测试套件
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	authService AuthService
}

// SetupSuite 设置测试套件
func (suite *AuthServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(suite.T(), err)

	err = db.AutoMigrate(
		&models.Agent{},
		&models.APIKey{},
		&models.RateLimit{},
		&models.Challenge{},
		&models.Submission{},
		&models.Game{},
		&models.GameAction{},
	)
	assert.NoError(suite.T(), err)

	suite.db = db

	services := NewServices(db, DefaultConfig(), zap.NewNop())
	suite.authService = services.Auth
}

// SetupTest 每个测试前执行
func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM api_keys")
	suite.db.Exec("DELETE FROM agents")
}

// TestRegisterAgent 测试注册代理
func (suite *AuthServiceTestSuite) TestRegisterAgent() {
	ctx := context.Background()

	resp, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{
		AgentID: "agent-001",
		Name:    "测试代理",
		IP:      "127.0.0.1",
	})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "agent-001", resp.AgentID)
	assert.Equal(suite.T(), "测试代理", resp.Name)
	assert.True(suite.T(), strings.HasPrefix(resp.APIKey, "twa-"))
	assert.Len(suite.T(), resp.KeyPrefix, 16)
	assert.True(suite.T(), strings.HasPrefix(resp.APIKey, resp.KeyPrefix))
}

// TestRegisterExistingAgent 已存在的代理再次注册只新增密钥
func (suite *AuthServiceTestSuite) TestRegisterExistingAgent() {
	ctx := context.Background()

	first, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{AgentID: "agent-002"})
	assert.NoError(suite.T(), err)

	second, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{AgentID: "agent-002"})
	assert.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), first.APIKey, second.APIKey)

	var agentCount int64
	suite.db.Model(&models.Agent{}).Count(&agentCount)
	assert.Equal(suite.T(), int64(1), agentCount)

	keys, err := suite.authService.ListAPIKeys(ctx, "agent-002")
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), keys, 2)
}

// TestVerifyAPIKey 测试密钥验证
func (suite *AuthServiceTestSuite) TestVerifyAPIKey() {
	ctx := context.Background()

	resp, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{AgentID: "agent-003"})
	assert.NoError(suite.T(), err)

	agent, err := suite.authService.VerifyAPIKey(ctx, resp.APIKey, "10.0.0.1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "agent-003", agent.AgentID)
	assert.NotNil(suite.T(), agent.LastSeenAt)

	// 形态不对的密钥不触发查询
	_, err = suite.authService.VerifyAPIKey(ctx, "not-a-key", "10.0.0.1")
	assert.True(suite.T(), errors.Is(err, errors.ErrAPIKeyInvalid))

	// 前缀正确但密文错误
	forged := resp.KeyPrefix + strings.Repeat("x", 40)
	_, err = suite.authService.VerifyAPIKey(ctx, forged, "10.0.0.1")
	assert.True(suite.T(), errors.Is(err, errors.ErrAPIKeyInvalid))
}

// TestVerifyBannedAgent 被封禁的代理无法通过验证
func (suite *AuthServiceTestSuite) TestVerifyBannedAgent() {
	ctx := context.Background()

	resp, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{AgentID: "agent-004"})
	assert.NoError(suite.T(), err)

	suite.db.Model(&models.Agent{}).
		Where("agent_id = ?", "agent-004").
		Update("status", "banned")

	_, err = suite.authService.VerifyAPIKey(ctx, resp.APIKey, "10.0.0.1")
	assert.True(suite.T(), errors.Is(err, errors.ErrAuthorization))
}

// TestRevokeAPIKey 测试密钥吊销
func (suite *AuthServiceTestSuite) TestRevokeAPIKey() {
	ctx := context.Background()

	resp, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{AgentID: "agent-005"})
	assert.NoError(suite.T(), err)

	// 别人的密钥吊销不了
	err = suite.authService.RevokeAPIKey(ctx, "agent-other", resp.KeyPrefix)
	assert.True(suite.T(), errors.Is(err, errors.ErrAPIKeyInvalid))

	err = suite.authService.RevokeAPIKey(ctx, "agent-005", resp.KeyPrefix)
	assert.NoError(suite.T(), err)

	_, err = suite.authService.VerifyAPIKey(ctx, resp.APIKey, "10.0.0.1")
	assert.True(suite.T(), errors.Is(err, errors.ErrAPIKeyInvalid))
}

// TestIssueAndValidateToken 测试令牌签发与校验
func (suite *AuthServiceTestSuite) TestIssueAndValidateToken() {
	ctx := context.Background()

	resp, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{AgentID: "agent-006"})
	assert.NoError(suite.T(), err)

	tokens, err := suite.authService.IssueToken(ctx, resp.APIKey, "10.0.0.1")
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), tokens.AccessToken)
	assert.NotEmpty(suite.T(), tokens.RefreshToken)
	assert.Equal(suite.T(), "Bearer", tokens.TokenType)
	assert.Greater(suite.T(), tokens.ExpiresIn, int64(0))

	claims, err := suite.authService.ValidateAccessToken(ctx, tokens.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "agent-006", claims.AgentID)
	assert.Equal(suite.T(), "access", claims.TokenType)

	// 刷新令牌不能当访问令牌用
	_, err = suite.authService.ValidateAccessToken(ctx, tokens.RefreshToken)
	assert.True(suite.T(), errors.Is(err, errors.ErrTokenInvalid))
}

// TestRefreshToken 测试令牌刷新
func (suite *AuthServiceTestSuite) TestRefreshToken() {
	ctx := context.Background()

	resp, err := suite.authService.RegisterAgent(ctx, &RegisterRequest{AgentID: "agent-007"})
	assert.NoError(suite.T(), err)

	tokens, err := suite.authService.IssueToken(ctx, resp.APIKey, "10.0.0.1")
	assert.NoError(suite.T(), err)

	refreshed, err := suite.authService.RefreshToken(ctx, tokens.RefreshToken)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), refreshed.AccessToken)

	claims, err := suite.authService.ValidateAccessToken(ctx, refreshed.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "agent-007", claims.AgentID)

	// 访问令牌不能用于刷新
	_, err = suite.authService.RefreshToken(ctx, tokens.AccessToken)
	assert.Error(suite.T(), err)
}

// TestAuthServiceTestSuite 运行测试套件
func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
