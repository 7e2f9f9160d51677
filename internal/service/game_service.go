package service

import (
	"context"
	"time"

	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/game"
	"github.com/wfunc/token-arena/internal/models"
	"github.com/wfunc/token-arena/internal/repository"
	"go.uber.org/zap"
)

// gameService 限时游戏服务实现
type gameService struct {
	gameRepo    repository.GameRepository
	sessions    *game.SessionManager
	minDuration int
	maxDuration int
	log         *zap.Logger
}

// NewGameService 创建限时游戏服务
func NewGameService(
	gameRepo repository.GameRepository,
	sessions *game.SessionManager,
	cfg *Config,
	log *zap.Logger,
) GameService {
	return &gameService{
		gameRepo:    gameRepo,
		sessions:    sessions,
		minDuration: cfg.MinDuration,
		maxDuration: cfg.MaxDuration,
		log:         log,
	}
}

// newGamePersister 构造会话落库回调，在会话结束或到期被清理时调用
func newGamePersister(gameRepo repository.GameRepository, log *zap.Logger) func(*engine.Session) {
	return func(session *engine.Session) {
		summary := session.Finish()
		status := session.Status()

		record := &models.Game{
			GameID:            summary.SessionID,
			AgentID:           session.AgentID(),
			Status:            models.GameStatusFinished,
			TokensBurned:      summary.TokensBurned,
			ComplexityWeight:  status.ComplexityWeight,
			InefficiencyScore: status.InefficiencyScore,
			Score:             int(summary.FinalScore),
			Duration:          summary.Duration,
			EndsAt:            session.CreatedAt().Add(time.Duration(summary.Duration) * time.Second),
		}

		actions := make([]*models.GameAction, 0, summary.TotalActions)
		for _, a := range session.Actions() {
			actions = append(actions, &models.GameAction{
				GameID:            summary.SessionID,
				Method:            string(a.Method),
				TokensBurned:      a.TokensBurned,
				ComplexityWeight:  a.ComplexityWeight,
				InefficiencyScore: a.InefficiencyScore,
				TextPreview:       a.TextPreview,
				CreatedAt:         a.Timestamp,
			})
		}

		if err := gameRepo.CreateWithActions(context.Background(), record, actions); err != nil {
			log.Error("会话落库失败",
				zap.String("game_id", summary.SessionID),
				zap.Error(err))
			return
		}

		log.Info("会话已落库",
			zap.String("game_id", summary.SessionID),
			zap.String("agent_id", session.AgentID()),
			zap.Int64("final_score", summary.FinalScore))
	}
}

// StartGame 开始新的限时会话
func (s *gameService) StartGame(ctx context.Context, agentID string, duration int) (*StartGameResponse, error) {
	if duration < s.minDuration || duration > s.maxDuration {
		return nil, errors.Newf(errors.ErrInvalidDuration, "duration=%d, 允许范围[%d, %d]",
			duration, s.minDuration, s.maxDuration)
	}

	session, err := s.sessions.StartSession(agentID, duration)
	if err != nil {
		return nil, err
	}

	methods := make([]string, 0, len(engine.AllBurnMethods))
	for _, m := range engine.AllBurnMethods {
		methods = append(methods, string(m))
	}

	return &StartGameResponse{
		GameID:           session.ID(),
		Status:           string(engine.SessionPlaying),
		Duration:         duration,
		EndsAt:           session.CreatedAt().Add(time.Duration(duration) * time.Second),
		AvailableMethods: methods,
	}, nil
}

// ExecuteAction 在会话内执行一次烧token动作
func (s *gameService) ExecuteAction(ctx context.Context, agentID, gameID string, method string) (*engine.ActionResult, error) {
	session, err := s.ownedSession(agentID, gameID)
	if err != nil {
		return nil, err
	}

	burnMethod, err := engine.ParseBurnMethod(method)
	if err != nil {
		return nil, err
	}

	result, err := s.sessions.ApplyAction(session.ID(), burnMethod)
	if err != nil {
		return nil, err
	}

	s.log.Debug("执行动作",
		zap.String("game_id", gameID),
		zap.String("method", method),
		zap.Int("tokens_burned", result.TokensBurned))

	return result, nil
}

// GetStatus 查询会话状态，已落库的会话从数据库读取
func (s *gameService) GetStatus(ctx context.Context, agentID, gameID string) (*engine.StatusView, error) {
	session, err := s.ownedSession(agentID, gameID)
	if err == nil {
		return session.Status(), nil
	}
	if !errors.Is(err, errors.ErrGameNotFound) {
		return nil, err
	}

	record, err := s.gameRepo.FindByGameID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if record.AgentID != agentID {
		return nil, errors.Newf(errors.ErrGameNotFound, "session=%s", gameID)
	}

	return &engine.StatusView{
		SessionID:         record.GameID,
		Status:            engine.SessionFinished,
		TokensBurned:      record.TokensBurned,
		ComplexityWeight:  record.ComplexityWeight,
		InefficiencyScore: record.InefficiencyScore,
		Score:             int64(record.Score),
		TimeLeft:          0,
		TotalActions:      len(record.Actions),
	}, nil
}

// FinishGame 主动结束会话并落库
func (s *gameService) FinishGame(ctx context.Context, agentID, gameID string) (*engine.Summary, error) {
	session, err := s.ownedSession(agentID, gameID)
	if err != nil {
		return nil, err
	}

	summary := session.Finish()
	if err := s.sessions.RemoveSession(gameID); err != nil {
		return nil, err
	}

	return summary, nil
}

// GetHistory 查询代理的历史会话
func (s *gameService) GetHistory(ctx context.Context, agentID string, page, pageSize int) ([]*models.Game, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	games, err := s.gameRepo.GetByAgent(ctx, agentID, pagination)
	if err != nil {
		return nil, 0, err
	}
	return games, pagination.Total, nil
}

// ownedSession 获取内存中的会话并校验归属，归属不符按不存在处理
func (s *gameService) ownedSession(agentID, gameID string) (*engine.Session, error) {
	session, err := s.sessions.GetSession(gameID)
	if err != nil {
		return nil, err
	}
	if session.AgentID() != agentID {
		return nil, errors.Newf(errors.ErrGameNotFound, "session=%s", gameID)
	}
	return session, nil
}
