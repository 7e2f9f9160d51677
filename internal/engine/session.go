package engine

import (
	"math"
	"sync"
	"time"

	"github.com/wfunc/token-arena/internal/errors"
)

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionPlaying  SessionStatus = "playing"
	SessionFinished SessionStatus = "finished"
)

// 会话分数权重
const (
	scoreWeightTokens       = 1.0
	scoreWeightComplexity   = 0.5
	scoreWeightInefficiency = 1.0
)

// ActionRecord 单次动作记录
type ActionRecord struct {
	Method            BurnMethod
	TokensBurned      int
	ComplexityWeight  float64
	InefficiencyScore float64
	TextPreview       string
	Timestamp         time.Time
}

// ActionResult 动作执行结果，返回给调用方
type ActionResult struct {
	Method            BurnMethod `json:"method"`
	TokensBurned      int        `json:"tokens_burned"`
	ComplexityWeight  float64    `json:"complexity_weight"`
	InefficiencyScore float64    `json:"inefficiency_score"`
	Score             int64      `json:"score"`
	TextPreview       string     `json:"text_preview"`
}

// StatusView 会话状态快照
type StatusView struct {
	SessionID         string        `json:"session_id"`
	Status            SessionStatus `json:"status"`
	TokensBurned      int           `json:"tokens_burned"`
	ComplexityWeight  float64       `json:"complexity_weight"`
	InefficiencyScore float64       `json:"inefficiency_score"`
	Score             int64         `json:"score"`
	TimeLeft          int           `json:"time_left"`
	TotalActions      int           `json:"total_actions"`
}

// Summary 会话结束摘要
type Summary struct {
	SessionID    string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	FinalScore   int64         `json:"final_score"`
	TokensBurned int           `json:"tokens_burned"`
	TotalActions int           `json:"total_actions"`
	Duration     int           `json:"duration"`
}

// Session 单个计时会话，动作与状态读取都在内部锁下串行化
type Session struct {
	mu                sync.Mutex
	id                string
	agentID           string
	status            SessionStatus
	tokensBurned      int
	complexityWeight  float64
	inefficiencyScore float64
	score             int64
	duration          int
	createdAt         time.Time
	endsAt            time.Time
	actions           []ActionRecord
	previewLen        int
}

// NewSession 创建会话，duration单位为秒，由调用方校验范围
func NewSession(id, agentID string, duration, previewLen int) *Session {
	now := time.Now()
	return &Session{
		id:               id,
		agentID:          agentID,
		status:           SessionPlaying,
		complexityWeight: 1,
		duration:         duration,
		createdAt:        now,
		endsAt:           now.Add(time.Duration(duration) * time.Second),
		previewLen:       previewLen,
	}
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// AgentID 所属agent
func (s *Session) AgentID() string {
	return s.agentID
}

// CreatedAt 创建时间
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// ApplyAction 执行一次烧token动作并累加会话指标
// 会话已结束时拒绝且不修改任何状态
func (s *Session) ApplyAction(burner *Burner, method BurnMethod) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked(time.Now())
	if s.status != SessionPlaying {
		return nil, errors.Newf(errors.ErrGameFinished, "session=%s", s.id)
	}

	burn, err := burner.Execute(method)
	if err != nil {
		return nil, err
	}

	s.tokensBurned += burn.TokensBurned
	s.complexityWeight += burn.ComplexityWeight
	s.inefficiencyScore += burn.InefficiencyScore
	s.score = s.calculateScoreLocked()

	preview := truncateRunes(burn.Text, s.previewLen)
	s.actions = append(s.actions, ActionRecord{
		Method:            method,
		TokensBurned:      burn.TokensBurned,
		ComplexityWeight:  burn.ComplexityWeight,
		InefficiencyScore: burn.InefficiencyScore,
		TextPreview:       preview,
		Timestamp:         time.Now(),
	})

	return &ActionResult{
		Method:            method,
		TokensBurned:      burn.TokensBurned,
		ComplexityWeight:  burn.ComplexityWeight,
		InefficiencyScore: burn.InefficiencyScore,
		Score:             s.score,
		TextPreview:       preview,
	}, nil
}

// Status 查询会话状态快照，到期时自动转为finished
func (s *Session) Status() *StatusView {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.refreshLocked(now)

	timeLeft := 0
	if s.status == SessionPlaying {
		timeLeft = int(math.Ceil(s.endsAt.Sub(now).Seconds()))
		if timeLeft < 0 {
			timeLeft = 0
		}
	}

	return &StatusView{
		SessionID:         s.id,
		Status:            s.status,
		TokensBurned:      s.tokensBurned,
		ComplexityWeight:  s.complexityWeight,
		InefficiencyScore: s.inefficiencyScore,
		Score:             s.score,
		TimeLeft:          timeLeft,
		TotalActions:      len(s.actions),
	}
}

// Finish 显式结束会话，重复调用幂等
func (s *Session) Finish() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = SessionFinished

	return &Summary{
		SessionID:    s.id,
		Status:       s.status,
		FinalScore:   s.score,
		TokensBurned: s.tokensBurned,
		TotalActions: len(s.actions),
		Duration:     s.duration,
	}
}

// Expired 到期或已结束，供清理协程判定
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == SessionFinished || !time.Now().Before(s.endsAt)
}

// Actions 动作记录副本，供持久化
func (s *Session) Actions() []ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActionRecord, len(s.actions))
	copy(out, s.actions)
	return out
}

// refreshLocked 到期即转finished，调用方持锁
func (s *Session) refreshLocked(now time.Time) {
	if s.status == SessionPlaying && !now.Before(s.endsAt) {
		s.status = SessionFinished
	}
}

// calculateScoreLocked 会话分数：floor(tokens × 权重 × 0.5 + 低效分)
func (s *Session) calculateScoreLocked() int64 {
	return int64(math.Floor(
		float64(s.tokensBurned)*scoreWeightTokens*s.complexityWeight*scoreWeightComplexity +
			s.inefficiencyScore*scoreWeightInefficiency,
	))
}

// truncateRunes 按rune截断，避免切断多字节字符
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
