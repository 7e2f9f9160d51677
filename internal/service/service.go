package service

import (
	"time"

	"github.com/wfunc/token-arena/internal/config"
	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/game"
	"github.com/wfunc/token-arena/internal/repository"
	"github.com/wfunc/token-arena/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	APIKeyPrefix       string

	MinDuration    int
	MaxDuration    int
	MaxSessions    int
	TextPreviewLen int

	Validator     *engine.ValidatorConfig
	Analyzer      *engine.AnalyzerConfig
	SeedOnStartup bool
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:          "change-me-in-production",
		AccessTokenExpiry:  24 * time.Hour,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		APIKeyPrefix:       "twa",
		MinDuration:        1,
		MaxDuration:        60,
		MaxSessions:        1000,
		TextPreviewLen:     500,
		Validator:          engine.DefaultValidatorConfig(),
		Analyzer:           engine.DefaultAnalyzerConfig(),
		SeedOnStartup:      true,
	}
}

// FromAppConfig 从全局配置构建服务配置
func FromAppConfig(cfg *config.Config) *Config {
	analyzerCfg := engine.DefaultAnalyzerConfig()
	analyzerCfg.MinWordCount = cfg.Challenge.MinWordCount

	return &Config{
		JWTSecret:          cfg.Security.JWTSecret,
		AccessTokenExpiry:  cfg.Security.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.Security.RefreshTokenExpiry,
		APIKeyPrefix:       cfg.Security.APIKeyPrefix,
		MinDuration:        cfg.Game.MinDuration,
		MaxDuration:        cfg.Game.MaxDuration,
		MaxSessions:        cfg.Game.MaxSessions,
		TextPreviewLen:     cfg.Game.TextPreviewLen,
		Validator: &engine.ValidatorConfig{
			AbsoluteMinTokens: cfg.Challenge.AbsoluteMinTokens,
			AbsoluteMaxTokens: cfg.Challenge.AbsoluteMaxTokens,
			VarianceThreshold: cfg.Challenge.VarianceThreshold,
			HistoryDeviation:  cfg.Challenge.HistoryDeviation,
		},
		Analyzer:      analyzerCfg,
		SeedOnStartup: cfg.Challenge.SeedOnStartup,
	}
}

// Services 服务集合
type Services struct {
	Auth        AuthService
	Game        GameService
	Challenge   ChallengeService
	Submission  SubmissionService
	Leaderboard LeaderboardService

	Sessions *game.SessionManager
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, cfg *Config, log *zap.Logger) *Services {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// 初始化仓储
	agentRepo := repository.NewAgentRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gameRepo := repository.NewGameRepository(db)

	// 初始化JWT管理器
	jwtManager := utils.NewJWTManager(
		cfg.JWTSecret,
		cfg.AccessTokenExpiry,
		cfg.RefreshTokenExpiry,
	)

	// 初始化计算引擎
	analyzer := engine.NewAnalyzer(cfg.Analyzer)
	validator := engine.NewValidator(cfg.Validator, analyzer)
	scorer := engine.NewScorer(analyzer)
	burner := engine.NewBurner(nil, nil)

	// 会话管理器：到期或结束的会话统一落库
	sessions := game.NewSessionManager(&game.SessionManagerConfig{
		Logger:      log,
		Burner:      burner,
		MaxSessions: cfg.MaxSessions,
		PreviewLen:  cfg.TextPreviewLen,
		OnEvict:     newGamePersister(gameRepo, log),
	})

	return &Services{
		Auth:        NewAuthService(db, agentRepo, apiKeyRepo, jwtManager, cfg.APIKeyPrefix, log),
		Game:        NewGameService(gameRepo, sessions, cfg, log),
		Challenge:   NewChallengeService(challengeRepo, log),
		Submission:  NewSubmissionService(db, challengeRepo, submissionRepo, validator, scorer, log),
		Leaderboard: NewLeaderboardService(submissionRepo, log),
		Sessions:    sessions,
	}
}
