package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
)

// AgentRepository 参赛代理仓储接口
type AgentRepository interface {
	BaseRepository
	Create(ctx context.Context, agent *models.Agent) error
	Update(ctx context.Context, agent *models.Agent) error
	FindByAgentID(ctx context.Context, agentID string) (*models.Agent, error)
	UpdateLastSeen(ctx context.Context, agentID, ip string) error
	UpdateStatus(ctx context.Context, agentID, status string) error
	GetAll(ctx context.Context, pagination *Pagination) ([]*models.Agent, error)
}

type agentRepo struct {
	*BaseRepo
}

// NewAgentRepository 创建代理仓储
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建代理
func (r *agentRepo) Create(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

// Update 更新代理
func (r *agentRepo) Update(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Save(agent).Error
}

// FindByAgentID 根据代理ID查找
func (r *agentRepo) FindByAgentID(ctx context.Context, agentID string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).First(&agent).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.Newf(errors.ErrAgentNotFound, "agent=%s", agentID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询代理失败")
	}
	return &agent, nil
}

// UpdateLastSeen 更新最近活动时间和IP
func (r *agentRepo) UpdateLastSeen(ctx context.Context, agentID, ip string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Updates(map[string]interface{}{
			"last_seen_at": now,
			"last_seen_ip": ip,
		}).Error
}

// UpdateStatus 更新代理状态
func (r *agentRepo) UpdateStatus(ctx context.Context, agentID, status string) error {
	return r.db.WithContext(ctx).Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Update("status", status).Error
}

// GetAll 分页获取代理列表
func (r *agentRepo) GetAll(ctx context.Context, pagination *Pagination) ([]*models.Agent, error) {
	var agents []*models.Agent
	query := r.db.WithContext(ctx).Model(&models.Agent{})

	query.Count(&pagination.Total)

	err := query.Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&agents).Error
	return agents, err
}

// APIKeyRepository API密钥仓储接口
type APIKeyRepository interface {
	BaseRepository
	Create(ctx context.Context, key *models.APIKey) error
	FindByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	FindByAgentID(ctx context.Context, agentID string) ([]*models.APIKey, error)
	TouchUsed(ctx context.Context, id uint, ip string) error
	Revoke(ctx context.Context, prefix string) error
}

type apiKeyRepo struct {
	*BaseRepo
}

// NewAPIKeyRepository 创建API密钥仓储
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepo{BaseRepo: &BaseRepo{db: db}}
}

// Create 创建密钥记录
func (r *apiKeyRepo) Create(ctx context.Context, key *models.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

// FindByPrefix 根据前缀查找密钥
func (r *apiKeyRepo) FindByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.WithContext(ctx).Where("key_prefix = ?", prefix).First(&key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrAPIKeyInvalid)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询密钥失败")
	}
	return &key, nil
}

// FindByAgentID 查找代理名下全部密钥
func (r *apiKeyRepo) FindByAgentID(ctx context.Context, agentID string) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

// TouchUsed 记录密钥使用时间和来源IP
func (r *apiKeyRepo) TouchUsed(ctx context.Context, id uint, ip string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_used_at": now,
			"ip":           ip,
		}).Error
}

// Revoke 吊销密钥
func (r *apiKeyRepo) Revoke(ctx context.Context, prefix string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("key_prefix = ? AND revoked_at IS NULL", prefix).
		Update("revoked_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrAPIKeyInvalid)
	}
	return nil
}

// WithTx 使用事务
func (r *agentRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &agentRepo{BaseRepo: &BaseRepo{db: tx}}
}

// WithTx 使用事务
func (r *apiKeyRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &apiKeyRepo{BaseRepo: &BaseRepo{db: tx}}
}
