package service

import (
	"context"
	"time"

	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/models"
	"github.com/wfunc/token-arena/internal/repository"
	"github.com/wfunc/token-arena/internal/utils"
)

// AuthService 认证服务接口
type AuthService interface {
	// 注册与密钥管理
	RegisterAgent(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error)
	VerifyAPIKey(ctx context.Context, key, ip string) (*models.Agent, error)
	ListAPIKeys(ctx context.Context, agentID string) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, agentID, prefix string) error

	// 令牌签发与校验
	IssueToken(ctx context.Context, apiKey, ip string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	ValidateAccessToken(ctx context.Context, token string) (*utils.JWTClaims, error)
}

// GameService 限时游戏服务接口
type GameService interface {
	StartGame(ctx context.Context, agentID string, duration int) (*StartGameResponse, error)
	ExecuteAction(ctx context.Context, agentID, gameID string, method string) (*engine.ActionResult, error)
	GetStatus(ctx context.Context, agentID, gameID string) (*engine.StatusView, error)
	FinishGame(ctx context.Context, agentID, gameID string) (*engine.Summary, error)
	GetHistory(ctx context.Context, agentID string, page, pageSize int) ([]*models.Game, int64, error)
}

// ChallengeService 挑战题库服务接口
type ChallengeService interface {
	GetChallenge(ctx context.Context, challengeID string) (*models.Challenge, error)
	ListChallenges(ctx context.Context, difficulty string, page, pageSize int) ([]*models.Challenge, int64, error)
	SeedChallenges(ctx context.Context) error
}

// SubmissionService 异步提交服务接口
type SubmissionService interface {
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error)
	GetByAgent(ctx context.Context, agentID string, page, pageSize int) ([]*models.Submission, int64, error)
}

// LeaderboardService 排行榜服务接口
type LeaderboardService interface {
	Top(ctx context.Context, limit int) ([]*repository.LeaderboardEntry, error)
	AgentRank(ctx context.Context, agentID string) (*repository.LeaderboardEntry, error)
}

// RegisterRequest 注册代理并签发API密钥的请求
type RegisterRequest struct {
	AgentID string `json:"agent_id" binding:"required,min=3,max=64"`
	Name    string `json:"name" binding:"max=100"`
	IP      string `json:"-"` // 客户端IP，由handler设置
}

// RegisterResponse 注册响应，完整密钥只在此处返回一次
type RegisterResponse struct {
	AgentID   string    `json:"agent_id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse 令牌响应
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// StartGameResponse 开始游戏响应
type StartGameResponse struct {
	GameID           string    `json:"game_id"`
	Status           string    `json:"status"`
	Duration         int       `json:"duration"`
	EndsAt           time.Time `json:"ends_at"`
	AvailableMethods []string  `json:"available_methods"`
}

// SubmitRequest 提交挑战答案的请求
type SubmitRequest struct {
	AgentID      string  `json:"-"` // 由认证中间件设置
	ChallengeID  string  `json:"challenge_id" binding:"required"`
	TokensUsed   int     `json:"tokens_used" binding:"required,min=1"`
	Answer       string  `json:"answer" binding:"required"`
	ResponseTime float64 `json:"response_time"`
}

// SubmitResult 提交处理结果
// Accepted为false时提交未入库，Validation携带全部错误与警告
type SubmitResult struct {
	Accepted   bool                     `json:"accepted"`
	Submission *models.Submission       `json:"submission,omitempty"`
	Score      *engine.ScoreResult      `json:"score,omitempty"`
	Validation *engine.ValidationResult `json:"validation"`
}
