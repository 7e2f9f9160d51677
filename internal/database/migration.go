package database

import (
	"fmt"

	"github.com/wfunc/token-arena/internal/logger"
	"github.com/wfunc/token-arena/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	migrationModels := []interface{}{
		// 代理与认证
		&models.Agent{},
		&models.APIKey{},
		&models.RateLimit{},

		// 挑战与提交
		&models.Challenge{},
		&models.Submission{},

		// 限时游戏
		&models.Game{},
		&models.GameAction{},
	}

	if err := DB.AutoMigrate(migrationModels...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	logger.Info("数据库迁移完成", zap.Int("tables", len(migrationModels)))

	return nil
}
