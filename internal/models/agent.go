package models

import (
	"time"

	"gorm.io/gorm"
)

// Agent 参赛代理表（人类或自动化程序）
type Agent struct {
	BaseModel
	AgentID    string     `gorm:"uniqueIndex;size:100;not null" json:"agent_id"`
	Name       string     `gorm:"size:100" json:"name"`
	Status     string     `gorm:"size:20;default:'active'" json:"status"` // active, banned
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	LastSeenIP string     `gorm:"size:50" json:"last_seen_ip"`

	// 关联（查询时使用 Preload 加载）
	Keys []APIKey `gorm:"foreignKey:AgentID;references:AgentID" json:"-"`
}

// TableName 指定Agent表名
func (Agent) TableName() string {
	return "agents"
}

// BeforeCreate 创建前的钩子
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.Name == "" {
		a.Name = a.AgentID
	}
	if a.Status == "" {
		a.Status = "active"
	}
	return nil
}

// APIKey API密钥表（密钥只存哈希，前缀用于查找）
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AgentID    string     `gorm:"index;size:100;not null" json:"agent_id"`
	KeyPrefix  string     `gorm:"uniqueIndex;size:20;not null" json:"key_prefix"`
	KeyHash    string     `gorm:"size:255;not null" json:"-"`
	IP         string     `gorm:"size:50" json:"ip"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName 指定APIKey表名
func (APIKey) TableName() string {
	return "api_keys"
}

// IsRevoked 检查密钥是否已吊销
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// RateLimit 请求频率限制表（按标识符固定窗口计数）
type RateLimit struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Identifier string    `gorm:"uniqueIndex;size:150;not null" json:"identifier"`
	Count      int       `gorm:"default:0" json:"count"`
	ResetAt    time.Time `json:"reset_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定RateLimit表名
func (RateLimit) TableName() string {
	return "rate_limits"
}
