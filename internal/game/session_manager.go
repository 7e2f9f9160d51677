package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/errors"
)

// SessionManager 会话管理器，持有所有进行中的计时会话
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*engine.Session
	logger      *zap.Logger
	burner      *engine.Burner
	maxSessions int
	previewLen  int
	onEvict     func(*engine.Session)
}

// SessionManagerConfig 会话管理器配置
type SessionManagerConfig struct {
	Logger      *zap.Logger
	Burner      *engine.Burner
	MaxSessions int
	PreviewLen  int

	// OnEvict 会话被清理时回调，用于持久化最终结果
	OnEvict func(*engine.Session)
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config *SessionManagerConfig) *SessionManager {
	burner := config.Burner
	if burner == nil {
		burner = engine.NewBurner(nil, nil)
	}

	return &SessionManager{
		sessions:    make(map[string]*engine.Session),
		logger:      config.Logger,
		burner:      burner,
		maxSessions: config.MaxSessions,
		previewLen:  config.PreviewLen,
		onEvict:     config.OnEvict,
	}
}

// StartSession 创建新会话，duration单位为秒，范围由调用方校验
func (sm *SessionManager) StartSession(agentID string, duration int) (*engine.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return nil, errors.Newf(errors.ErrSessionLimit, "limit=%d", sm.maxSessions)
	}

	sessionID := fmt.Sprintf("game_%s", uuid.New().String())
	session := engine.NewSession(sessionID, agentID, duration, sm.previewLen)
	sm.sessions[sessionID] = session

	sm.logger.Info("创建会话",
		zap.String("session_id", sessionID),
		zap.String("agent_id", agentID),
		zap.Int("duration", duration))

	return session, nil
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(sessionID string) (*engine.Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, errors.Newf(errors.ErrGameNotFound, "session=%s", sessionID)
	}
	return session, nil
}

// ApplyAction 对指定会话执行一次烧token动作
func (sm *SessionManager) ApplyAction(sessionID string, method engine.BurnMethod) (*engine.ActionResult, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.ApplyAction(sm.burner, method)
}

// RemoveSession 移除会话并触发回调
func (sm *SessionManager) RemoveSession(sessionID string) error {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	if exists {
		delete(sm.sessions, sessionID)
	}
	sm.mu.Unlock()

	if !exists {
		return errors.Newf(errors.ErrGameNotFound, "session=%s", sessionID)
	}

	if sm.onEvict != nil {
		sm.onEvict(session)
	}

	status := session.Status()
	sm.logger.Info("移除会话",
		zap.String("session_id", sessionID),
		zap.Int("tokens_burned", status.TokensBurned),
		zap.Int64("score", status.Score))

	return nil
}

// SweepExpired 清理到期会话
func (sm *SessionManager) SweepExpired() {
	sm.mu.Lock()
	var expired []*engine.Session
	for id, session := range sm.sessions {
		if session.Expired() {
			expired = append(expired, session)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, session := range expired {
		session.Finish()
		if sm.onEvict != nil {
			sm.onEvict(session)
		}
		sm.logger.Info("清理到期会话",
			zap.String("session_id", session.ID()),
			zap.String("agent_id", session.AgentID()))
	}
}

// SweepAll 结束并清理全部会话，用于服务器关闭前落库
func (sm *SessionManager) SweepAll() {
	sm.mu.Lock()
	var all []*engine.Session
	for id, session := range sm.sessions {
		all = append(all, session)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	for _, session := range all {
		session.Finish()
		if sm.onEvict != nil {
			sm.onEvict(session)
		}
	}

	if len(all) > 0 {
		sm.logger.Info("清理全部会话", zap.Int("count", len(all)))
	}
}

// StartSweeper 启动定期清理任务
func (sm *SessionManager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				sm.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				sm.SweepExpired()
			}
		}
	}()
}

// ActiveSessions 当前会话数
func (sm *SessionManager) ActiveSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
