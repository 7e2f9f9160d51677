package service

import (
	"context"

	"github.com/wfunc/token-arena/internal/repository"
	"go.uber.org/zap"
)

// 排行榜条目数限制
const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// leaderboardService 排行榜服务实现
type leaderboardService struct {
	submissionRepo repository.SubmissionRepository
	log            *zap.Logger
}

// NewLeaderboardService 创建排行榜服务
func NewLeaderboardService(submissionRepo repository.SubmissionRepository, log *zap.Logger) LeaderboardService {
	return &leaderboardService{
		submissionRepo: submissionRepo,
		log:            log,
	}
}

// Top 按总分取前limit名代理
func (s *leaderboardService) Top(ctx context.Context, limit int) ([]*repository.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return s.submissionRepo.Leaderboard(ctx, limit)
}

// AgentRank 查询单个代理的聚合成绩与名次
func (s *leaderboardService) AgentRank(ctx context.Context, agentID string) (*repository.LeaderboardEntry, error) {
	return s.submissionRepo.AgentRank(ctx, agentID)
}
