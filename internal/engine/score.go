package engine

import "math"

// 难度倍率表
var difficultyMultipliers = map[string]float64{
	"easy":    1.0,
	"medium":  1.5,
	"hard":    2.0,
	"extreme": 3.0,
}

// 质量加成阈值
const (
	bonusWordCount  = 500
	bonusRepetition = 0.3
	bonusStep       = 0.1
)

// ScoreResult 提交计分结果
type ScoreResult struct {
	Score                int64          `json:"score"`
	DifficultyMultiplier float64        `json:"difficulty_multiplier"`
	QualityMultiplier    float64        `json:"quality_multiplier"`
	Breakdown            ScoreBreakdown `json:"breakdown"`
}

// ScoreBreakdown 计分明细
type ScoreBreakdown struct {
	TokensForScore       int     `json:"tokens_for_score"`
	DifficultyMultiplier float64 `json:"difficulty_multiplier"`
	QualityMultiplier    float64 `json:"quality_multiplier"`
	FinalScore           int64   `json:"final_score"`
}

// Scorer 提交计分器
type Scorer struct {
	analyzer *Analyzer
}

// NewScorer 创建计分器
func NewScorer(analyzer *Analyzer) *Scorer {
	if analyzer == nil {
		analyzer = NewAnalyzer(nil)
	}
	return &Scorer{analyzer: analyzer}
}

// DifficultyMultiplier 查表取难度倍率，未知难度按1.0
func DifficultyMultiplier(difficulty string) float64 {
	if m, ok := difficultyMultipliers[difficulty]; ok {
		return m
	}
	return 1.0
}

// ScoreSubmission 计算提交分数
// 只使用服务端估算的token数，客户端声称值不参与计分
func (s *Scorer) ScoreSubmission(c *Candidate, challenge *ChallengeInfo, estimatedTokens int) *ScoreResult {
	dm := DifficultyMultiplier(challenge.Difficulty)

	qm := 1.0
	analysis := s.analyzer.Analyze(c.Answer)
	if analysis.WordCount > bonusWordCount {
		qm += bonusStep
	}
	if s.analyzer.DetectRepetition(c.Answer) < bonusRepetition {
		qm += bonusStep
	}

	score := int64(math.Floor(float64(estimatedTokens) * dm * qm))

	return &ScoreResult{
		Score:                score,
		DifficultyMultiplier: dm,
		QualityMultiplier:    qm,
		Breakdown: ScoreBreakdown{
			TokensForScore:       estimatedTokens,
			DifficultyMultiplier: dm,
			QualityMultiplier:    qm,
			FinalScore:           score,
		},
	}
}
