package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int    `json:"rank" gorm:"-"`
	AgentID     string `json:"agent_id"`
	TotalScore  int64  `json:"total_score"`
	Submissions int    `json:"submissions"`
	BestScore   int64  `json:"best_score"`
}

// SubmissionRepository 提交仓储接口（只追加，无更新删除）
type SubmissionRepository interface {
	BaseRepository
	Create(ctx context.Context, submission *models.Submission) error
	FindBySubmissionID(ctx context.Context, submissionID string) (*models.Submission, error)
	GetByAgent(ctx context.Context, agentID string, pagination *Pagination) ([]*models.Submission, error)
	// TokensHistory 同一代理在同一题目下历史提交的tokensUsed序列
	TokensHistory(ctx context.Context, agentID, challengeID string) ([]int, error)
	Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error)
	// AgentRank 单个代理的聚合成绩与名次
	AgentRank(ctx context.Context, agentID string) (*LeaderboardEntry, error)
}

type submissionRepo struct {
	*BaseRepo
}

// NewSubmissionRepository 创建提交仓储
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 插入提交记录
func (r *submissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// FindBySubmissionID 根据提交ID查找
func (r *submissionRepo) FindBySubmissionID(ctx context.Context, submissionID string) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("submission_id = ?", submissionID).
		First(&submission).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Newf(errors.ErrSubmissionNotFound, "submission=%s", submissionID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询提交失败")
	}
	return &submission, nil
}

// GetByAgent 分页获取代理的提交记录
func (r *submissionRepo) GetByAgent(ctx context.Context, agentID string, pagination *Pagination) ([]*models.Submission, error) {
	var submissions []*models.Submission
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("agent_id = ?", agentID)

	query.Count(&pagination.Total)

	err := query.Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&submissions).Error
	return submissions, err
}

// TokensHistory 获取历史token序列，供历史偏差检查
func (r *submissionRepo) TokensHistory(ctx context.Context, agentID, challengeID string) ([]int, error) {
	var tokens []int
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("agent_id = ? AND challenge_id = ?", agentID, challengeID).
		Order("created_at ASC").
		Pluck("tokens_used", &tokens).Error
	return tokens, err
}

// Leaderboard 按总分聚合的排行榜
func (r *submissionRepo) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	var entries []*LeaderboardEntry
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("agent_id, SUM(score) AS total_score, COUNT(*) AS submissions, MAX(score) AS best_score").
		Group("agent_id").
		Order("total_score DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询排行榜失败")
	}

	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries, nil
}

// AgentRank 代理的聚合成绩，名次按总分高于该代理的代理数推算
func (r *submissionRepo) AgentRank(ctx context.Context, agentID string) (*LeaderboardEntry, error) {
	var entry LeaderboardEntry
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("agent_id, SUM(score) AS total_score, COUNT(*) AS submissions, MAX(score) AS best_score").
		Where("agent_id = ?", agentID).
		Group("agent_id").
		Scan(&entry).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询代理成绩失败")
	}
	if entry.AgentID == "" {
		return nil, errors.Newf(errors.ErrAgentNotFound, "agent=%s", agentID)
	}

	higher := r.db.Model(&models.Submission{}).
		Select("agent_id").
		Group("agent_id").
		Having("SUM(score) > ?", entry.TotalScore)

	var ahead int64
	err = r.db.WithContext(ctx).Table("(?) AS totals", higher).Count(&ahead).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询代理名次失败")
	}

	entry.Rank = int(ahead) + 1
	return &entry, nil
}

// WithTx 使用事务
func (r *submissionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &submissionRepo{BaseRepo: &BaseRepo{db: tx}}
}
