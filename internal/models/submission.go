package models

import "time"

// Submission 异步提交记录表（只追加，创建后不再修改）
type Submission struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SubmissionID    string    `gorm:"uniqueIndex;size:64;not null" json:"submission_id"`
	AgentID         string    `gorm:"index:idx_agent_challenge;size:100;not null" json:"agent_id"`
	ChallengeID     string    `gorm:"index:idx_agent_challenge;size:100;not null" json:"challenge_id"`
	TokensUsed      int       `gorm:"not null" json:"tokens_used"`
	Answer          string    `gorm:"type:text" json:"answer"`
	ResponseTime    float64   `json:"response_time"` // 秒
	Score           int       `gorm:"default:0;index" json:"score"`
	Language        string    `gorm:"size:20" json:"language"`
	EstimatedTokens int       `json:"estimated_tokens"`
	Errors          JSONArray `gorm:"type:json" json:"errors"`
	Warnings        JSONArray `gorm:"type:json" json:"warnings"`
	Analysis        JSONMap   `gorm:"type:json" json:"analysis"`
	ValidatedAt     time.Time `json:"validated_at"`
	CreatedAt       time.Time `json:"created_at"`

	// 关联
	Challenge *Challenge `gorm:"foreignKey:ChallengeID;references:ChallengeID" json:"challenge,omitempty"`
}

// TableName 指定Submission表名
func (Submission) TableName() string {
	return "submissions"
}
