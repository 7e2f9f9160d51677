package models

// Difficulty 挑战难度等级
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

// Valid 检查难度是否为已知等级
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExtreme:
		return true
	}
	return false
}

// Challenge 挑战题目表
// 除运行统计（times_completed、avg_tokens_per_attempt）外字段不可变
type Challenge struct {
	BaseModel
	ChallengeID         string     `gorm:"uniqueIndex;size:100;not null" json:"challenge_id"`
	Title               string     `gorm:"size:200;not null" json:"title"`
	Description         string     `gorm:"size:1000" json:"description"`
	Type                string     `gorm:"size:50;not null;index" json:"type"` // 四种生成方法之一
	Difficulty          Difficulty `gorm:"size:20;not null;index" json:"difficulty"`
	ExpectedMinTokens   int        `gorm:"not null" json:"expected_min_tokens"`
	ExpectedMaxTokens   int        `gorm:"not null" json:"expected_max_tokens"`
	TimesCompleted      int        `gorm:"default:0" json:"times_completed"`
	AvgTokensPerAttempt int        `gorm:"default:0" json:"avg_tokens_per_attempt"`
}

// TableName 指定Challenge表名
func (Challenge) TableName() string {
	return "challenges"
}
