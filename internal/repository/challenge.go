package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
)

// ChallengeRepository 挑战题目仓储接口
type ChallengeRepository interface {
	BaseRepository
	Create(ctx context.Context, challenge *models.Challenge) error
	FindByChallengeID(ctx context.Context, challengeID string) (*models.Challenge, error)
	GetAll(ctx context.Context, difficulty models.Difficulty, pagination *Pagination) ([]*models.Challenge, error)
	Count(ctx context.Context) (int64, error)
	// UpdateAggregates 在接受提交后更新运行统计，需在提交插入的同一事务内调用
	UpdateAggregates(ctx context.Context, challengeID string, tokensUsed int) error
}

type challengeRepo struct {
	*BaseRepo
}

// NewChallengeRepository 创建题目仓储
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建题目
func (r *challengeRepo) Create(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

// FindByChallengeID 根据题目ID查找
func (r *challengeRepo) FindByChallengeID(ctx context.Context, challengeID string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).Where("challenge_id = ?", challengeID).First(&challenge).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Newf(errors.ErrChallengeNotFound, "challenge=%s", challengeID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询题目失败")
	}
	return &challenge, nil
}

// GetAll 按难度筛选并分页获取题目
func (r *challengeRepo) GetAll(ctx context.Context, difficulty models.Difficulty, pagination *Pagination) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	query := r.db.WithContext(ctx).Model(&models.Challenge{})
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}

	query.Count(&pagination.Total)

	err := query.Scopes(Paginate(pagination)).
		Order("challenge_id ASC").
		Find(&challenges).Error
	return challenges, err
}

// Count 题目总数
func (r *challengeRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Challenge{}).Count(&total).Error
	return total, err
}

// UpdateAggregates 增量更新完成次数与平均token数
// new_avg = (avg × times + tokens) / (times + 1)
func (r *challengeRepo) UpdateAggregates(ctx context.Context, challengeID string, tokensUsed int) error {
	return r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("challenge_id = ?", challengeID).
		Updates(map[string]interface{}{
			"avg_tokens_per_attempt": gorm.Expr(
				"(avg_tokens_per_attempt * times_completed + ?) / (times_completed + 1)", tokensUsed),
			"times_completed": gorm.Expr("times_completed + 1"),
		}).Error
}

// WithTx 使用事务
func (r *challengeRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &challengeRepo{BaseRepo: &BaseRepo{db: tx}}
}
