package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/token-arena/internal/models"
)

// SetupTestDB 为测试创建内存数据库并迁移全部模型
func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Agent{},
		&models.APIKey{},
		&models.RateLimit{},
		&models.Challenge{},
		&models.Submission{},
		&models.Game{},
		&models.GameAction{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	return db
}

// CreateTestAgent 创建测试代理
func CreateTestAgent(t *testing.T, db *gorm.DB, agentID string) *models.Agent {
	agent := &models.Agent{AgentID: agentID}
	require.NoError(t, db.Create(agent).Error)
	return agent
}

// CreateTestChallenge 创建测试题目
func CreateTestChallenge(t *testing.T, db *gorm.DB, challengeID string, difficulty models.Difficulty) *models.Challenge {
	challenge := &models.Challenge{
		ChallengeID:       challengeID,
		Title:             "测试题目 " + challengeID,
		Description:       "用于仓储测试",
		Type:              "meaninglessTextGeneration",
		Difficulty:        difficulty,
		ExpectedMinTokens: 1000,
		ExpectedMaxTokens: 5000,
	}
	require.NoError(t, db.Create(challenge).Error)
	return challenge
}

// CreateTestSubmission 创建测试提交
func CreateTestSubmission(t *testing.T, db *gorm.DB, submissionID, agentID, challengeID string, score int) *models.Submission {
	submission := &models.Submission{
		SubmissionID: submissionID,
		AgentID:      agentID,
		ChallengeID:  challengeID,
		TokensUsed:   1500,
		Answer:       "테스트 답안",
		Score:        score,
		Language:     "korean",
	}
	require.NoError(t, db.Create(submission).Error)
	return submission
}
