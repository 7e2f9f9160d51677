package engine

import (
	"strings"
	"unicode"
)

// Analysis 文本结构统计
type Analysis struct {
	WordCount        int     `json:"word_count"`
	SentenceCount    int     `json:"sentence_count"`
	UniqueWordCount  int     `json:"unique_word_count"`
	AvgWordLength    float64 `json:"avg_word_length"`
	SpecialCharRatio float64 `json:"special_char_ratio"`
	SpaceRatio       float64 `json:"space_ratio"`
}

// PatternFlag 重复模式标记
type PatternFlag struct {
	Type     string `json:"type"`     // consecutive_words, phrase_repetition, pattern_repetition
	Severity string `json:"severity"` // medium, high
	Phrase   string `json:"phrase"`
	Count    int    `json:"count"`
}

// PatternReport 重复模式检测结果
type PatternReport struct {
	Score float64       `json:"score"`
	Flags []PatternFlag `json:"flags"`
}

// IssueSeverity 质量问题级别
type IssueSeverity string

const (
	IssueError   IssueSeverity = "error"
	IssueWarning IssueSeverity = "warning"
)

// Issue 质量问题
type Issue struct {
	Severity IssueSeverity          `json:"severity"`
	Code     string                 `json:"code"`
	Detail   map[string]interface{} `json:"detail,omitempty"`
}

// QualityResult 质量校验结果
type QualityResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// AnalyzerConfig 文本分析配置
type AnalyzerConfig struct {
	MinWordCount        int     // 低于此词数直接拒绝
	DiversityFloor      float64 // 词汇多样性下限
	RepetitionCeiling   float64 // 基础重复度上限
	SpaceRatioCeiling   float64 // 空白字符占比上限
	PatternScoreCeiling float64 // 综合重复评分上限
}

// DefaultAnalyzerConfig 默认分析配置
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		MinWordCount:        100,
		DiversityFloor:      0.3,
		RepetitionCeiling:   0.5,
		SpaceRatioCeiling:   0.5,
		PatternScoreCeiling: 0.6,
	}
}

// Analyzer 文本分析器（无状态，可并发使用）
type Analyzer struct {
	cfg *AnalyzerConfig
}

// NewAnalyzer 创建文本分析器
func NewAnalyzer(cfg *AnalyzerConfig) *Analyzer {
	if cfg == nil {
		cfg = DefaultAnalyzerConfig()
	}
	return &Analyzer{cfg: cfg}
}

// 每个方向最多保留的模式标记数
const maxPatternFlags = 10

// 模式标记计入综合评分的惩罚系数
const flagPenalty = 0.05

// Analyze 统计文本结构指标
func (a *Analyzer) Analyze(text string) Analysis {
	words := strings.Fields(text)
	sentences := splitSentences(text)

	var runeCount, spaceCount, specialCount, nonSpaceCount int
	for _, r := range text {
		runeCount++
		if unicode.IsSpace(r) {
			spaceCount++
		} else {
			nonSpaceCount++
		}
		switch r {
		case '!', '@', '#', '$', '%', '^', '&', '*':
			specialCount++
		}
	}

	analysis := Analysis{
		WordCount:       len(words),
		SentenceCount:   len(sentences),
		UniqueWordCount: countUniqueWords(words),
	}

	if len(words) > 0 {
		analysis.AvgWordLength = float64(nonSpaceCount) / float64(len(words))
	}
	if runeCount > 0 {
		analysis.SpecialCharRatio = float64(specialCount) / float64(runeCount)
		analysis.SpaceRatio = float64(spaceCount) / float64(runeCount)
	}

	return analysis
}

// DetectRepetition 基础重复度 = 出现最多的词的次数 / 不重复词数，截断到[0,1]
// 无词或完全无重复时为0，同一个词重复N次时为1
func (a *Analyzer) DetectRepetition(text string) float64 {
	words := lowerWords(text)
	if len(words) == 0 {
		return 0
	}

	counts := make(map[string]int, len(words))
	maxCount := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > maxCount {
			maxCount = counts[w]
		}
	}

	if maxCount <= 1 {
		return 0
	}

	ratio := float64(maxCount) / float64(len(counts))
	if ratio > 1 {
		return 1
	}
	return ratio
}

// DetectPatterns 进阶重复模式检测
// 三类独立信号：相邻重复词、2-4词短语重复、ABAB块状重复
func (a *Analyzer) DetectPatterns(text string) PatternReport {
	words := lowerWords(text)
	var flags []PatternFlag

	// 1. 相邻重复词（发现一处即可）
	for i := 0; i+1 < len(words); i++ {
		if words[i] == words[i+1] {
			flags = append(flags, PatternFlag{
				Type:     "consecutive_words",
				Severity: "high",
				Phrase:   words[i],
				Count:    2,
			})
			break
		}
	}

	// 2. N-gram短语重复（2-4词，出现3次以上）
	for n := 2; n <= 4; n++ {
		counts := make(map[string]int)
		for i := 0; i+n <= len(words); i++ {
			counts[strings.Join(words[i:i+n], " ")]++
		}

		// 按首次出现顺序输出，保证结果确定
		seen := make(map[string]bool)
		for i := 0; i+n <= len(words); i++ {
			gram := strings.Join(words[i:i+n], " ")
			if seen[gram] || counts[gram] < 3 {
				continue
			}
			seen[gram] = true

			severity := "medium"
			if counts[gram] > 5 {
				severity = "high"
			}
			flags = append(flags, PatternFlag{
				Type:     "phrase_repetition",
				Severity: severity,
				Phrase:   gram,
				Count:    counts[gram],
			})
		}
	}

	// 3. ABAB块状重复（块长2-3，连续三次）
	for blockLen := 2; blockLen <= 3; blockLen++ {
		for i := 0; i+blockLen*3 <= len(words); i++ {
			first := strings.Join(words[i:i+blockLen], " ")
			second := strings.Join(words[i+blockLen:i+blockLen*2], " ")
			third := strings.Join(words[i+blockLen*2:i+blockLen*3], " ")

			if first == second && second == third {
				flags = append(flags, PatternFlag{
					Type:     "pattern_repetition",
					Severity: "medium",
					Phrase:   first,
					Count:    3,
				})
				break
			}
		}
	}

	// 罚分按全部命中计，之后才截断输出的标记列表
	score := a.DetectRepetition(text) + float64(len(flags))*flagPenalty
	if score > 1 {
		score = 1
	}

	if len(flags) > maxPatternFlags {
		flags = flags[:maxPatternFlags]
	}

	return PatternReport{Score: score, Flags: flags}
}

// ValidateQuality 答案质量校验
// 唯一的拒绝条件是词数不足，其余均为警告
func (a *Analyzer) ValidateQuality(text string) QualityResult {
	analysis := a.Analyze(text)
	repetition := a.DetectRepetition(text)
	var issues []Issue

	// 答案太短直接拒绝
	if analysis.WordCount < a.cfg.MinWordCount {
		issues = append(issues, Issue{
			Severity: IssueError,
			Code:     "answer_too_short",
			Detail: map[string]interface{}{
				"min_words":    a.cfg.MinWordCount,
				"actual_words": analysis.WordCount,
			},
		})
	}

	// 词汇多样性不足
	if analysis.WordCount > 0 {
		diversity := float64(analysis.UniqueWordCount) / float64(analysis.WordCount)
		if diversity < a.cfg.DiversityFloor {
			issues = append(issues, Issue{
				Severity: IssueWarning,
				Code:     "answer_lacks_diversity",
				Detail: map[string]interface{}{
					"diversity": diversity,
				},
			})
		}
	}

	// 基础重复度过高
	if repetition > a.cfg.RepetitionCeiling {
		issues = append(issues, Issue{
			Severity: IssueWarning,
			Code:     "answer_has_high_repetition",
			Detail: map[string]interface{}{
				"repetition": repetition,
			},
		})
	}

	// 空白字符占比异常
	if analysis.SpaceRatio > a.cfg.SpaceRatioCeiling {
		issues = append(issues, Issue{
			Severity: IssueWarning,
			Code:     "unusual_space_ratio",
			Detail: map[string]interface{}{
				"space_ratio": analysis.SpaceRatio,
			},
		})
	}

	// 进阶重复模式
	report := a.DetectPatterns(text)

	var highFlags []PatternFlag
	for _, f := range report.Flags {
		if f.Severity == "high" {
			highFlags = append(highFlags, f)
		}
	}
	if len(highFlags) > 0 {
		issues = append(issues, Issue{
			Severity: IssueWarning,
			Code:     "significant_repetition_detected",
			Detail: map[string]interface{}{
				"flags": highFlags,
			},
		})
	}

	if report.Score > a.cfg.PatternScoreCeiling {
		issues = append(issues, Issue{
			Severity: IssueWarning,
			Code:     "high_repetition_score",
			Detail: map[string]interface{}{
				"score": report.Score,
			},
		})
	}

	valid := true
	for _, issue := range issues {
		if issue.Severity == IssueError {
			valid = false
			break
		}
	}

	return QualityResult{Valid: valid, Issues: issues}
}

// lowerWords 按空白切分并转小写
func lowerWords(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	return words
}

// countUniqueWords 大小写不敏感的去重计数
func countUniqueWords(words []string) int {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return len(set)
}

// splitSentences 按句末标点切分句子
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
