package models

import "time"

// 游戏状态
const (
	GameStatusPlaying  = "playing"
	GameStatusFinished = "finished"
)

// Game 限时烧token会话表
// tokens_burned、complexity_weight、inefficiency_score 只增不减
type Game struct {
	BaseModel
	GameID            string    `gorm:"uniqueIndex;size:64;not null" json:"game_id"`
	AgentID           string    `gorm:"index;size:100;not null" json:"agent_id"`
	Status            string    `gorm:"size:20;default:'playing'" json:"status"` // playing, finished
	TokensBurned      int       `gorm:"default:0" json:"tokens_burned"`
	ComplexityWeight  float64   `gorm:"default:1" json:"complexity_weight"`
	InefficiencyScore float64   `gorm:"default:0" json:"inefficiency_score"`
	Score             int       `gorm:"default:0" json:"score"`
	Duration          int       `gorm:"not null" json:"duration"` // 秒
	EndsAt            time.Time `json:"ends_at"`

	// 关联
	Actions           []GameAction `gorm:"foreignKey:GameID;references:GameID" json:"actions,omitempty"`
}

// TableName 指定Game表名
func (Game) TableName() string {
	return "games"
}

// GameAction 会话内动作日志表
type GameAction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	GameID            string    `gorm:"index;size:64;not null" json:"game_id"`
	Method            string    `gorm:"size:50;not null" json:"method"`
	TokensBurned      int       `json:"tokens_burned"`
	ComplexityWeight  float64   `json:"complexity_weight"`
	InefficiencyScore float64   `json:"inefficiency_score"`
	TextPreview       string    `gorm:"size:500" json:"text_preview"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName 指定GameAction表名
func (GameAction) TableName() string {
	return "game_actions"
}
