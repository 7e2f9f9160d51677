package engine

import "math"

// Candidate 待验证的提交
type Candidate struct {
	AgentID      string  `json:"agent_id"`
	ChallengeID  string  `json:"challenge_id"`
	TokensUsed   int     `json:"tokens_used"`
	Answer       string  `json:"answer"`
	ResponseTime float64 `json:"response_time"`
}

// ChallengeInfo 验证与计分所需的题目信息
type ChallengeInfo struct {
	Difficulty        string
	ExpectedMinTokens int
	ExpectedMaxTokens int
}

// ValidationItem 单条验证结果，带阶段号与结构化明细
type ValidationItem struct {
	Stage    int                    `json:"stage"`
	Severity IssueSeverity          `json:"severity"`
	Code     string                 `json:"code"`
	Detail   map[string]interface{} `json:"detail,omitempty"`
}

// ValidationResult 验证总结果
// 所有阶段都执行，错误与警告全部累积
type ValidationResult struct {
	Valid           bool             `json:"valid"`
	Errors          []ValidationItem `json:"errors"`
	Warnings        []ValidationItem `json:"warnings"`
	EstimatedTokens int              `json:"estimated_tokens"`
	Language        Language         `json:"language"`
	Analysis        Analysis         `json:"analysis"`
	Repetition      float64          `json:"repetition"`
}

// ValidatorConfig 验证阈值
type ValidatorConfig struct {
	AbsoluteMinTokens int
	AbsoluteMaxTokens int
	VarianceThreshold float64
	HistoryDeviation  float64
}

// DefaultValidatorConfig 默认阈值
func DefaultValidatorConfig() *ValidatorConfig {
	return &ValidatorConfig{
		AbsoluteMinTokens: 500,
		AbsoluteMaxTokens: 100000,
		VarianceThreshold: 0.3,
		HistoryDeviation:  1.0,
	}
}

// Validator 提交验证管线
type Validator struct {
	cfg      *ValidatorConfig
	analyzer *Analyzer
}

// NewValidator 创建验证器
func NewValidator(cfg *ValidatorConfig, analyzer *Analyzer) *Validator {
	if cfg == nil {
		cfg = DefaultValidatorConfig()
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(nil)
	}
	return &Validator{cfg: cfg, analyzer: analyzer}
}

// Validate 运行全部五个验证阶段
// history为该agent在同一题目下历史提交的tokensUsed序列，由调用方提供
func (v *Validator) Validate(c *Candidate, challenge *ChallengeInfo, history []int) *ValidationResult {
	var items []ValidationItem

	items = append(items, v.checkAbsoluteBounds(c)...)
	items = append(items, v.checkExpectedRange(c, challenge)...)

	language := DetectLanguage(c.Answer)
	estimated := EstimateTokens(c.Answer)
	items = append(items, v.checkVariance(c, estimated, language)...)

	items = append(items, v.checkQuality(c)...)
	items = append(items, v.checkHistory(c, history)...)

	result := &ValidationResult{
		Valid:           true,
		Errors:          []ValidationItem{},
		Warnings:        []ValidationItem{},
		EstimatedTokens: estimated,
		Language:        language,
		Analysis:        v.analyzer.Analyze(c.Answer),
		Repetition:      v.analyzer.DetectRepetition(c.Answer),
	}
	for _, item := range items {
		if item.Severity == IssueError {
			result.Valid = false
			result.Errors = append(result.Errors, item)
		} else {
			result.Warnings = append(result.Warnings, item)
		}
	}
	return result
}

// checkAbsoluteBounds 阶段1：绝对上下限，与题目无关
func (v *Validator) checkAbsoluteBounds(c *Candidate) []ValidationItem {
	var items []ValidationItem
	if c.TokensUsed < v.cfg.AbsoluteMinTokens {
		items = append(items, ValidationItem{
			Stage:    1,
			Severity: IssueError,
			Code:     "below_absolute_minimum",
			Detail: map[string]interface{}{
				"tokens_used": c.TokensUsed,
				"minimum":     v.cfg.AbsoluteMinTokens,
			},
		})
	}
	if c.TokensUsed > v.cfg.AbsoluteMaxTokens {
		items = append(items, ValidationItem{
			Stage:    1,
			Severity: IssueError,
			Code:     "exceeds_absolute_maximum",
			Detail: map[string]interface{}{
				"tokens_used": c.TokensUsed,
				"maximum":     v.cfg.AbsoluteMaxTokens,
			},
		})
	}
	return items
}

// checkExpectedRange 阶段2：题目期望区间，超出翻倍是警告，超出十倍是错误
func (v *Validator) checkExpectedRange(c *Candidate, challenge *ChallengeInfo) []ValidationItem {
	var items []ValidationItem
	if c.TokensUsed < challenge.ExpectedMinTokens || c.TokensUsed > challenge.ExpectedMaxTokens*2 {
		items = append(items, ValidationItem{
			Stage:    2,
			Severity: IssueWarning,
			Code:     "out_of_expected_range",
			Detail: map[string]interface{}{
				"tokens_used":  c.TokensUsed,
				"expected_min": challenge.ExpectedMinTokens,
				"expected_max": challenge.ExpectedMaxTokens * 2,
			},
		})
	}
	if c.TokensUsed > challenge.ExpectedMaxTokens*10 {
		items = append(items, ValidationItem{
			Stage:    2,
			Severity: IssueError,
			Code:     "excessive_token_count",
			Detail: map[string]interface{}{
				"tokens_used":    c.TokensUsed,
				"reasonable_max": challenge.ExpectedMaxTokens * 10,
			},
		})
	}
	return items
}

// checkVariance 阶段3：声称token数与服务端独立估算的相对偏差
// 这是防作弊的主信号
func (v *Validator) checkVariance(c *Candidate, estimated int, language Language) []ValidationItem {
	if estimated <= 0 || c.TokensUsed <= 0 {
		return nil
	}
	variance := math.Abs(float64(c.TokensUsed-estimated)) / float64(c.TokensUsed)
	if variance <= v.cfg.VarianceThreshold {
		return nil
	}
	return []ValidationItem{{
		Stage:    3,
		Severity: IssueError,
		Code:     "unusual_token_count",
		Detail: map[string]interface{}{
			"language":         string(language),
			"variance":         variance,
			"estimated_tokens": estimated,
			"tokens_used":      c.TokensUsed,
		},
	}}
}

// checkQuality 阶段4：答案质量，分析器的问题并入管线结果
func (v *Validator) checkQuality(c *Candidate) []ValidationItem {
	quality := v.analyzer.ValidateQuality(c.Answer)
	items := make([]ValidationItem, 0, len(quality.Issues))
	for _, issue := range quality.Issues {
		items = append(items, ValidationItem{
			Stage:    4,
			Severity: issue.Severity,
			Code:     issue.Code,
			Detail:   issue.Detail,
		})
	}
	return items
}

// checkHistory 阶段5：与该agent同题历史平均token数比较
// 无历史时跳过，首次提交不受此检查约束
func (v *Validator) checkHistory(c *Candidate, history []int) []ValidationItem {
	if len(history) == 0 {
		return nil
	}
	sum := 0
	for _, tokens := range history {
		sum += tokens
	}
	avg := float64(sum) / float64(len(history))
	if avg <= 0 {
		return nil
	}
	deviation := math.Abs(float64(c.TokensUsed)-avg) / avg
	if deviation <= v.cfg.HistoryDeviation {
		return nil
	}
	return []ValidationItem{{
		Stage:    5,
		Severity: IssueError,
		Code:     "significant_deviation_from_average",
		Detail: map[string]interface{}{
			"avg_tokens":    int(math.Floor(avg)),
			"deviation":     deviation,
			"history_count": len(history),
		},
	}}
}
