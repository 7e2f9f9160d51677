package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wfunc/token-arena/internal/models"
)

// RateLimitResult 一次计数的结果
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimitRepository 固定窗口限流仓储接口
type RateLimitRepository interface {
	BaseRepository
	// Incr 对标识符计数一次，窗口到期自动重置
	Incr(ctx context.Context, identifier string, max int, window time.Duration) (*RateLimitResult, error)
	// Cleanup 删除已过期的计数行
	Cleanup(ctx context.Context) error
}

type rateLimitRepo struct {
	*BaseRepo
}

// NewRateLimitRepository 创建限流仓储
func NewRateLimitRepository(db *gorm.DB) RateLimitRepository {
	return &rateLimitRepo{BaseRepo: &BaseRepo{db: db}}
}

// Incr 固定窗口计数，整个读改写在事务内完成
func (r *rateLimitRepo) Incr(ctx context.Context, identifier string, max int, window time.Duration) (*RateLimitResult, error) {
	var result RateLimitResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var record models.RateLimit
		err := tx.Where("identifier = ?", identifier).First(&record).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			record = models.RateLimit{
				Identifier: identifier,
				Count:      1,
				ResetAt:    now.Add(window),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case now.After(record.ResetAt):
			// 窗口已过期，重新开窗
			record.Count = 1
			record.ResetAt = now.Add(window)
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		default:
			record.Count++
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		}

		result.Allowed = record.Count <= max
		result.Remaining = max - record.Count
		if result.Remaining < 0 {
			result.Remaining = 0
		}
		result.ResetAt = record.ResetAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Cleanup 清理过期计数
func (r *rateLimitRepo) Cleanup(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("reset_at < ?", time.Now()).
		Delete(&models.RateLimit{}).Error
}

// WithTx 使用事务
func (r *rateLimitRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &rateLimitRepo{BaseRepo: &BaseRepo{db: tx}}
}
