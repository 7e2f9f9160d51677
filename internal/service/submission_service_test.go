package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/token-arena/internal/config"
	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SubmissionServiceTestSuite 提交服务测试套件
type SubmissionServiceTestSuite struct {
	suite.Suite
	db                *gorm.DB
	submissionService SubmissionService
	challengeService  ChallengeService
}

// SetupSuite 设置测试套件
func (suite *SubmissionServiceTestSuite) SetupSuite() {
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
	suite.submissionService = services.Submission
	suite.challengeService = services.Challenge
}

// SetupTest 每个测试前重建题库
func (suite *SubmissionServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM submissions")
	suite.db.Exec("DELETE FROM challenges")
	err := suite.challengeService.SeedChallenges(context.Background())
	assert.NoError(suite.T(), err)
}

// TestSubmitAccepted 合法提交通过验证并入库
func (suite *SubmissionServiceTestSuite) TestSubmitAccepted() {
	ctx := context.Background()

	// 1200词英文答案，估算1800token
	result, err := suite.submissionService.Submit(ctx, &SubmitRequest{
		AgentID:      "agent-sub",
		ChallengeID:  "cot_easy_001",
		TokensUsed:   1900,
		Answer:       strings.Repeat("delta ", 1200),
		ResponseTime: 12.5,
	})
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Accepted)
	assert.NotNil(suite.T(), result.Submission)
	assert.NotNil(suite.T(), result.Score)
	assert.True(suite.T(), result.Validation.Valid)

	assert.True(suite.T(), strings.HasPrefix(result.Submission.SubmissionID, "sub_"))
	assert.Equal(suite.T(), 1800, result.Submission.EstimatedTokens)
	assert.Equal(suite.T(), "english", result.Submission.Language)

	// 分数只基于服务端估算：1800 × 1.0(easy) × 1.1(词数加成)
	assert.Equal(suite.T(), int64(1980), result.Score.Score)
	assert.Equal(suite.T(), 1980, result.Submission.Score)

	// 已入库
	stored, err := suite.submissionService.GetSubmission(ctx, result.Submission.SubmissionID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "agent-sub", stored.AgentID)

	// 题目统计同事务更新
	challenge, err := suite.challengeService.GetChallenge(ctx, "cot_easy_001")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, challenge.TimesCompleted)
	assert.Equal(suite.T(), 1900, challenge.AvgTokensPerAttempt)
}

// TestSubmitRejectedBelowMinimum 低于绝对下限的提交被拒且不入库
func (suite *SubmissionServiceTestSuite) TestSubmitRejectedBelowMinimum() {
	ctx := context.Background()

	result, err := suite.submissionService.Submit(ctx, &SubmitRequest{
		AgentID:     "agent-sub",
		ChallengeID: "cot_easy_001",
		TokensUsed:  300,
		Answer:      strings.Repeat("delta ", 1200),
	})
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Accepted)
	assert.Nil(suite.T(), result.Submission)
	assert.False(suite.T(), result.Validation.Valid)
	assert.NotEmpty(suite.T(), result.Validation.Errors)

	var count int64
	suite.db.Model(&models.Submission{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)

	// 题目统计未变
	challenge, err := suite.challengeService.GetChallenge(ctx, "cot_easy_001")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, challenge.TimesCompleted)
}

// TestSubmitRejectedVariance 声称值与估算偏差过大的提交被拒
func (suite *SubmissionServiceTestSuite) TestSubmitRejectedVariance() {
	ctx := context.Background()

	// 估算1800，声称5000，偏差0.64
	result, err := suite.submissionService.Submit(ctx, &SubmitRequest{
		AgentID:     "agent-sub",
		ChallengeID: "cot_easy_001",
		TokensUsed:  5000,
		Answer:      strings.Repeat("delta ", 1200),
	})
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Accepted)

	found := false
	for _, item := range result.Validation.Errors {
		if item.Code == "unusual_token_count" {
			found = true
		}
	}
	assert.True(suite.T(), found)
}

// TestSubmitRejectedHistoryDeviation 偏离历史均值过多的提交被拒
func (suite *SubmissionServiceTestSuite) TestSubmitRejectedHistoryDeviation() {
	ctx := context.Background()

	// 先建立历史
	first, err := suite.submissionService.Submit(ctx, &SubmitRequest{
		AgentID:     "agent-sub",
		ChallengeID: "cot_easy_001",
		TokensUsed:  1900,
		Answer:      strings.Repeat("delta ", 1200),
	})
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), first.Accepted)

	// 估算6000声称5800，偏差合格，但相对历史均值1900偏离2倍以上
	second, err := suite.submissionService.Submit(ctx, &SubmitRequest{
		AgentID:     "agent-sub",
		ChallengeID: "cot_easy_001",
		TokensUsed:  5800,
		Answer:      strings.Repeat("delta ", 4000),
	})
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), second.Accepted)

	found := false
	for _, item := range second.Validation.Errors {
		if item.Code == "significant_deviation_from_average" {
			found = true
		}
	}
	assert.True(suite.T(), found)
}

// TestSubmitUnknownChallenge 未知题目报错
func (suite *SubmissionServiceTestSuite) TestSubmitUnknownChallenge() {
	ctx := context.Background()

	_, err := suite.submissionService.Submit(ctx, &SubmitRequest{
		AgentID:     "agent-sub",
		ChallengeID: "no_such_challenge",
		TokensUsed:  1900,
		Answer:      strings.Repeat("delta ", 1200),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrChallengeNotFound))
}

// TestGetByAgent 分页查询代理的提交
func (suite *SubmissionServiceTestSuite) TestGetByAgent() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := suite.submissionService.Submit(ctx, &SubmitRequest{
			AgentID:     "agent-list",
			ChallengeID: "cot_easy_001",
			TokensUsed:  1900,
			Answer:      strings.Repeat("delta ", 1200),
		})
		assert.NoError(suite.T(), err)
		assert.True(suite.T(), result.Accepted)
	}

	submissions, total, err := suite.submissionService.GetByAgent(ctx, "agent-list", 1, 2)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), total)
	assert.Len(suite.T(), submissions, 2)
}

// TestSubmissionServiceTestSuite 运行测试套件
func TestSubmissionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SubmissionServiceTestSuite))
}

// TestFromAppConfigMapsAnalyzer 配置中的词数下限传入分析器
func TestFromAppConfigMapsAnalyzer(t *testing.T) {
	appCfg := &config.Config{}
	appCfg.Challenge.MinWordCount = 2000
	appCfg.Challenge.AbsoluteMinTokens = 500
	appCfg.Challenge.AbsoluteMaxTokens = 100000
	appCfg.Challenge.VarianceThreshold = 0.3
	appCfg.Challenge.HistoryDeviation = 1.0

	cfg := FromAppConfig(appCfg)
	assert.NotNil(t, cfg.Analyzer)
	assert.Equal(t, 2000, cfg.Analyzer.MinWordCount)
}

// TestSubmitRespectsMinWordCountOverride 提高词数下限后原本合法的答案被拒
func TestSubmitRespectsMinWordCountOverride(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&models.Agent{},
		&models.Challenge{},
		&models.Submission{},
	))

	cfg := DefaultConfig()
	cfg.Analyzer = engine.DefaultAnalyzerConfig()
	cfg.Analyzer.MinWordCount = 2000

	services := NewServices(db, cfg, zap.NewNop())
	ctx := context.Background()
	assert.NoError(t, services.Challenge.SeedChallenges(ctx))

	// 1200词在默认下限100下能通过，但低于调高后的2000
	result, err := services.Submission.Submit(ctx, &SubmitRequest{
		AgentID:     "agent-floor",
		ChallengeID: "cot_easy_001",
		TokensUsed:  1900,
		Answer:      strings.Repeat("delta ", 1200),
	})
	assert.NoError(t, err)
	assert.False(t, result.Accepted)

	found := false
	for _, item := range result.Validation.Errors {
		if item.Code == "answer_too_short" {
			found = true
		}
	}
	assert.True(t, found)
}
