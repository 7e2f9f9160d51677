package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/token-arena/internal/errors"
)

// BurnMethod 烧token方法
type BurnMethod string

const (
	MethodChainOfThought  BurnMethod = "chainOfThoughtExplosion"
	MethodRecursiveQuery  BurnMethod = "recursiveQueryLoop"
	MethodMeaninglessText BurnMethod = "meaninglessTextGeneration"
	MethodHallucination   BurnMethod = "hallucinationInduction"
)

// AllBurnMethods 全部已知方法
var AllBurnMethods = []BurnMethod{
	MethodChainOfThought,
	MethodRecursiveQuery,
	MethodMeaninglessText,
	MethodHallucination,
}

// ParseBurnMethod 解析方法名，未知方法属于调用方错误
func ParseBurnMethod(s string) (BurnMethod, error) {
	method := BurnMethod(s)
	for _, m := range AllBurnMethods {
		if method == m {
			return method, nil
		}
	}
	return "", errors.Newf(errors.ErrUnknownMethod, "method=%s", s)
}

// DepthParams 深度驱动方法的参数
type DepthParams struct {
	MinDepth         int
	MaxDepth         int
	WeightMultiplier float64
}

// TextParams 无意义文本方法的参数
type TextParams struct {
	MinLength        int     // 每段词数下限
	MaxLength        int     // 每段词数上限
	MinParagraphs    int
	MaxParagraphs    int
	WeightMultiplier float64
}

// BurnConfig 四种方法的生成参数
type BurnConfig struct {
	ChainOfThought  DepthParams
	RecursiveQuery  DepthParams
	MeaninglessText TextParams
	Hallucination   DepthParams
}

// DefaultBurnConfig 默认生成参数
func DefaultBurnConfig() *BurnConfig {
	return &BurnConfig{
		ChainOfThought:  DepthParams{MinDepth: 3, MaxDepth: 10, WeightMultiplier: 1.5},
		RecursiveQuery:  DepthParams{MinDepth: 2, MaxDepth: 8, WeightMultiplier: 1.8},
		MeaninglessText: TextParams{MinLength: 500, MaxLength: 1500, MinParagraphs: 3, MaxParagraphs: 10, WeightMultiplier: 2.0},
		Hallucination:   DepthParams{MinDepth: 3, MaxDepth: 12, WeightMultiplier: 2.5},
	}
}

// 填充词表（韩语，与token估算的语言判定配套）
var vocabulary = []string{
	"고양이", "토큰", "멍청한", "에이전트", "비효율적", "낭비", "무의미한",
	"반복", "폭발", "재귀", "할루시네이션", "생성", "텍스트", "AI", "모델",
	"프롬프트", "응답", "소모", "비용", "지연", "복잡성", "루프", "쿼리",
	"생각", "사고", "연쇄", "추론", "로그", "디버깅", "최적화", "역설",
	"모순", "무한", "순환", "중첩", "재귀적", "반복적", "추가", "확장",
	"상세", "명세", "설명", "해석", "분석", "평가", "검증", "테스트",
	"실험", "시도", "검사", "조사", "연구", "탐구", "발견", "혁신",
	"개선", "발전", "진화", "변화", "변환", "적용", "실현", "구현",
	"개발", "설계", "계획", "전략", "전술", "기술", "방법", "수단",
}

// BurnResult 单次生成结果
type BurnResult struct {
	Method            BurnMethod `json:"method"`
	Text              string     `json:"text"`
	TokensBurned      int        `json:"tokens_burned"`
	ComplexityWeight  float64    `json:"complexity_weight"`
	InefficiencyScore float64    `json:"inefficiency_score"`
	Depth             int        `json:"depth"`
}

// Burner 无意义文本生成器
// 随机源可注入，便于测试复现
type Burner struct {
	mu  sync.Mutex
	cfg *BurnConfig
	rng *rand.Rand
}

// NewBurner 创建生成器，src为nil时使用时间种子
func NewBurner(cfg *BurnConfig, src rand.Source) *Burner {
	if cfg == nil {
		cfg = DefaultBurnConfig()
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Burner{cfg: cfg, rng: rand.New(src)}
}

// Execute 执行指定方法，生成文本并估算token消耗
func (b *Burner) Execute(method BurnMethod) (*BurnResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var result *BurnResult
	switch method {
	case MethodChainOfThought:
		result = b.chainOfThought()
	case MethodRecursiveQuery:
		result = b.recursiveQuery()
	case MethodMeaninglessText:
		result = b.meaninglessText()
	case MethodHallucination:
		result = b.hallucination()
	default:
		return nil, errors.Newf(errors.ErrUnknownMethod, "method=%s", method)
	}

	result.Method = method
	result.TokensBurned = EstimateTokens(result.Text)

	return result, nil
}

// chainOfThought 思维链爆炸：生成深度驱动的四行推理块
func (b *Burner) chainOfThought() *BurnResult {
	p := b.cfg.ChainOfThought
	depth := b.randDepth(p.MinDepth, p.MaxDepth)

	var sb strings.Builder
	for i := 1; i <= depth; i++ {
		if i > 1 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. 생각: %s\n", i, b.filler(50))
		fmt.Fprintf(&sb, "%d. 분석: %s\n", i, b.filler(50))
		fmt.Fprintf(&sb, "%d. 평가: %s\n", i, b.filler(50))
		fmt.Fprintf(&sb, "%d. 결론: %s", i, b.filler(50))
	}

	return &BurnResult{
		Text:             sb.String(),
		ComplexityWeight: float64(depth) * p.WeightMultiplier,
		Depth:            depth,
	}
}

// recursiveQuery 递归查询循环：生成嵌套查询块
func (b *Burner) recursiveQuery() *BurnResult {
	p := b.cfg.RecursiveQuery
	depth := b.randDepth(p.MinDepth, p.MaxDepth)

	var sb strings.Builder
	for i := 1; i <= depth; i++ {
		if i > 1 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "쿼리 #%d: %s\n", i, b.filler(30))
		fmt.Fprintf(&sb, "하위 쿼리 #%d-1: %s\n", i, b.filler(20))
		fmt.Fprintf(&sb, "하위 쿼리 #%d-2: %s\n", i, b.filler(20))
		fmt.Fprintf(&sb, "응답: %s", b.filler(40))
	}

	return &BurnResult{
		Text:             sb.String(),
		ComplexityWeight: float64(depth) * p.WeightMultiplier,
		Depth:            depth,
	}
}

// meaninglessText 无意义文本：生成随机长度的乱序词段落
func (b *Burner) meaninglessText() *BurnResult {
	p := b.cfg.MeaninglessText
	count := b.randDepth(p.MinParagraphs, p.MaxParagraphs)

	paragraphs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		length := p.MinLength + b.rng.Intn(p.MaxLength-p.MinLength)
		paragraphs = append(paragraphs, b.filler(length))
	}

	return &BurnResult{
		Text:              strings.Join(paragraphs, "\n\n"),
		InefficiencyScore: float64(count) * p.WeightMultiplier * 100,
		Depth:             count,
	}
}

// hallucination 幻觉诱导：生成虚假主张块，同时计入复杂度与低效分
func (b *Burner) hallucination() *BurnResult {
	p := b.cfg.Hallucination
	count := b.randDepth(p.MinDepth, p.MaxDepth)

	var sb strings.Builder
	for i := 1; i <= count; i++ {
		if i > 1 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## 환각 #%d:\n", i)
		fmt.Fprintf(&sb, "사실이 아닌 주장: %s\n", b.filler(50))
		fmt.Fprintf(&sb, "거짓 증거: %s\n", b.filler(40))
		fmt.Fprintf(&sb, "잘못된 논리: %s\n", b.filler(40))
		fmt.Fprintf(&sb, "존재하지 않는 출처: %s", b.filler(30))
	}

	return &BurnResult{
		Text:              sb.String(),
		ComplexityWeight:  float64(count) * p.WeightMultiplier,
		InefficiencyScore: float64(count) * p.WeightMultiplier * 100,
		Depth:             count,
	}
}

// randDepth 在[min, max)区间取随机深度
func (b *Burner) randDepth(min, max int) int {
	if max <= min {
		return min
	}
	return min + b.rng.Intn(max-min)
}

// filler 从词表均匀有放回抽取n个词
func (b *Burner) filler(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = vocabulary[b.rng.Intn(len(vocabulary))]
	}
	return strings.Join(words, " ")
}
