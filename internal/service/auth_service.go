package service

import (
	"context"

	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
	"github.com/wfunc/token-arena/internal/repository"
	"github.com/wfunc/token-arena/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// authService 认证服务实现
type authService struct {
	db           *gorm.DB
	agentRepo    repository.AgentRepository
	apiKeyRepo   repository.APIKeyRepository
	jwtManager   *utils.JWTManager
	apiKeyPrefix string
	log          *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	db *gorm.DB,
	agentRepo repository.AgentRepository,
	apiKeyRepo repository.APIKeyRepository,
	jwtManager *utils.JWTManager,
	apiKeyPrefix string,
	log *zap.Logger,
) AuthService {
	return &authService{
		db:           db,
		agentRepo:    agentRepo,
		apiKeyRepo:   apiKeyRepo,
		jwtManager:   jwtManager,
		apiKeyPrefix: apiKeyPrefix,
		log:          log,
	}
}

// RegisterAgent 注册代理并签发API密钥
// 代理已存在时复用，每次调用都签发一把新密钥，完整密钥只返回这一次
func (s *authService) RegisterAgent(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	parts, err := utils.GenerateAPIKey(s.apiKeyPrefix)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成API密钥失败")
	}

	var key *models.APIKey
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agentRepo := s.agentRepo.WithTx(tx).(repository.AgentRepository)
		keyRepo := s.apiKeyRepo.WithTx(tx).(repository.APIKeyRepository)

		agent, err := agentRepo.FindByAgentID(ctx, req.AgentID)
		if err != nil {
			if !errors.Is(err, errors.ErrAgentNotFound) {
				return err
			}
			agent = &models.Agent{
				AgentID: req.AgentID,
				Name:    req.Name,
			}
			if err := agentRepo.Create(ctx, agent); err != nil {
				return errors.Wrap(err, errors.ErrDatabaseInsert, "创建代理失败")
			}
		}

		key = &models.APIKey{
			AgentID:   agent.AgentID,
			KeyPrefix: parts.Prefix,
			KeyHash:   parts.Hash,
			IP:        req.IP,
		}
		if err := keyRepo.Create(ctx, key); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "创建API密钥失败")
		}
		return nil
	})
	if err != nil {
		s.log.Error("代理注册失败", zap.String("agentID", req.AgentID), zap.Error(err))
		return nil, err
	}

	agent, err := s.agentRepo.FindByAgentID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	s.log.Info("代理注册成功",
		zap.String("agentID", agent.AgentID),
		zap.String("keyPrefix", parts.Prefix))

	return &RegisterResponse{
		AgentID:   agent.AgentID,
		Name:      agent.Name,
		APIKey:    parts.Key,
		KeyPrefix: parts.Prefix,
		CreatedAt: key.CreatedAt,
	}, nil
}

// VerifyAPIKey 验证API密钥，返回对应的代理
func (s *authService) VerifyAPIKey(ctx context.Context, key, ip string) (*models.Agent, error) {
	if !utils.LooksLikeAPIKey(key, s.apiKeyPrefix) {
		return nil, errors.New(errors.ErrAPIKeyInvalid)
	}

	record, err := s.apiKeyRepo.FindByPrefix(ctx, utils.APIKeyPrefix(key))
	if err != nil {
		return nil, err
	}
	if record.IsRevoked() {
		return nil, errors.New(errors.ErrAPIKeyInvalid, "密钥已吊销")
	}
	if !utils.VerifyAPIKey(key, record.KeyHash) {
		s.log.Warn("API密钥哈希校验失败", zap.String("keyPrefix", record.KeyPrefix))
		return nil, errors.New(errors.ErrAPIKeyInvalid)
	}

	agent, err := s.agentRepo.FindByAgentID(ctx, record.AgentID)
	if err != nil {
		return nil, err
	}
	if agent.Status == "banned" {
		return nil, errors.New(errors.ErrAuthorization, "代理已被封禁")
	}

	// 使用痕迹更新失败不影响认证结果
	_ = s.apiKeyRepo.TouchUsed(ctx, record.ID, ip)
	_ = s.agentRepo.UpdateLastSeen(ctx, agent.AgentID, ip)

	return agent, nil
}

// ListAPIKeys 查询代理名下全部密钥（不含哈希）
func (s *authService) ListAPIKeys(ctx context.Context, agentID string) ([]*models.APIKey, error) {
	return s.apiKeyRepo.FindByAgentID(ctx, agentID)
}

// RevokeAPIKey 吊销指定前缀的密钥，只能吊销自己名下的
func (s *authService) RevokeAPIKey(ctx context.Context, agentID, prefix string) error {
	record, err := s.apiKeyRepo.FindByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	if record.AgentID != agentID {
		return errors.New(errors.ErrAPIKeyInvalid)
	}

	if err := s.apiKeyRepo.Revoke(ctx, prefix); err != nil {
		return err
	}

	s.log.Info("API密钥已吊销",
		zap.String("agentID", agentID),
		zap.String("keyPrefix", prefix))
	return nil
}

// IssueToken 用API密钥换取JWT令牌对
func (s *authService) IssueToken(ctx context.Context, apiKey, ip string) (*TokenResponse, error) {
	agent, err := s.VerifyAPIKey(ctx, apiKey, ip)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(agent.AgentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成访问令牌失败")
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(agent.AgentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成刷新令牌失败")
	}

	s.log.Info("签发令牌", zap.String("agentID", agent.AgentID))

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.AccessTokenExpiry().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// RefreshToken 用刷新令牌换取新的访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	accessToken, err := s.jwtManager.RefreshAccessToken(refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTokenInvalid)
	}

	return &TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtManager.AccessTokenExpiry().Seconds()),
		TokenType:   "Bearer",
	}, nil
}

// ValidateAccessToken 验证访问令牌并检查代理状态
func (s *authService) ValidateAccessToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTokenInvalid)
	}
	if claims.TokenType != "access" {
		return nil, errors.New(errors.ErrTokenInvalid, "不是访问令牌")
	}

	agent, err := s.agentRepo.FindByAgentID(ctx, claims.AgentID)
	if err != nil {
		return nil, err
	}
	if agent.Status == "banned" {
		return nil, errors.New(errors.ErrAuthorization, "代理已被封禁")
	}

	return claims, nil
}
