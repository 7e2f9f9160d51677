package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
)

// GameRepository 会话归档仓储接口
// 会话结束后整体落库，进行中的会话只存在于内存
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	CreateWithActions(ctx context.Context, game *models.Game, actions []*models.GameAction) error
	FindByGameID(ctx context.Context, gameID string) (*models.Game, error)
	GetByAgent(ctx context.Context, agentID string, pagination *Pagination) ([]*models.Game, error)
}

type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建会话归档仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 插入会话记录
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

// CreateWithActions 在同一事务内插入会话与动作日志
func (r *gameRepo) CreateWithActions(ctx context.Context, game *models.Game, actions []*models.GameAction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(game).Error; err != nil {
			return err
		}
		if len(actions) > 0 {
			if err := tx.Create(actions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByGameID 根据会话ID查找
func (r *gameRepo) FindByGameID(ctx context.Context, gameID string) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Preload("Actions").
		Where("game_id = ?", gameID).
		First(&game).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Newf(errors.ErrGameNotFound, "game=%s", gameID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询会话失败")
	}
	return &game, nil
}

// GetByAgent 分页获取代理的历史会话
func (r *gameRepo) GetByAgent(ctx context.Context, agentID string, pagination *Pagination) ([]*models.Game, error) {
	var games []*models.Game
	query := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("agent_id = ?", agentID)

	query.Count(&pagination.Total)

	err := query.Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&games).Error
	return games, err
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRepo{BaseRepo: &BaseRepo{db: tx}}
}
