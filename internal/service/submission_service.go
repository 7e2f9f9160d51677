package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
	"github.com/wfunc/token-arena/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// submissionService 异步提交服务实现
type submissionService struct {
	db             *gorm.DB
	challengeRepo  repository.ChallengeRepository
	submissionRepo repository.SubmissionRepository
	validator      *engine.Validator
	scorer         *engine.Scorer
	log            *zap.Logger
}

// NewSubmissionService 创建异步提交服务
func NewSubmissionService(
	db *gorm.DB,
	challengeRepo repository.ChallengeRepository,
	submissionRepo repository.SubmissionRepository,
	validator *engine.Validator,
	scorer *engine.Scorer,
	log *zap.Logger,
) SubmissionService {
	return &submissionService{
		db:             db,
		challengeRepo:  challengeRepo,
		submissionRepo: submissionRepo,
		validator:      validator,
		scorer:         scorer,
		log:            log,
	}
}

// Submit 处理一次挑战提交：验证、计分、入库
// 验证未通过的提交不入库，完整的错误与警告随结果返回
func (s *submissionService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	challenge, err := s.challengeRepo.FindByChallengeID(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	history, err := s.submissionRepo.TokensHistory(ctx, req.AgentID, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	candidate := &engine.Candidate{
		AgentID:      req.AgentID,
		ChallengeID:  req.ChallengeID,
		TokensUsed:   req.TokensUsed,
		Answer:       req.Answer,
		ResponseTime: req.ResponseTime,
	}
	info := &engine.ChallengeInfo{
		Difficulty:        string(challenge.Difficulty),
		ExpectedMinTokens: challenge.ExpectedMinTokens,
		ExpectedMaxTokens: challenge.ExpectedMaxTokens,
	}

	validation := s.validator.Validate(candidate, info, history)
	if !validation.Valid {
		s.log.Warn("提交未通过校验",
			zap.String("agent_id", req.AgentID),
			zap.String("challenge_id", req.ChallengeID),
			zap.Int("errors", len(validation.Errors)))
		return &SubmitResult{Accepted: false, Validation: validation}, nil
	}

	score := s.scorer.ScoreSubmission(candidate, info, validation.EstimatedTokens)

	submission := &models.Submission{
		SubmissionID:    fmt.Sprintf("sub_%s", uuid.New().String()),
		AgentID:         req.AgentID,
		ChallengeID:     req.ChallengeID,
		TokensUsed:      req.TokensUsed,
		Answer:          req.Answer,
		ResponseTime:    req.ResponseTime,
		Score:           int(score.Score),
		Language:        string(validation.Language),
		EstimatedTokens: validation.EstimatedTokens,
		Errors:          validationItemsToJSON(validation.Errors),
		Warnings:        validationItemsToJSON(validation.Warnings),
		Analysis:        analysisToJSON(validation),
		ValidatedAt:     time.Now(),
	}

	// 提交入库与题目统计更新在同一事务内完成
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subRepo := s.submissionRepo.WithTx(tx).(repository.SubmissionRepository)
		chRepo := s.challengeRepo.WithTx(tx).(repository.ChallengeRepository)

		if err := subRepo.Create(ctx, submission); err != nil {
			return err
		}
		return chRepo.UpdateAggregates(ctx, req.ChallengeID, req.TokensUsed)
	})
	if err != nil {
		s.log.Error("提交入库失败",
			zap.String("submission_id", submission.SubmissionID),
			zap.Error(err))
		return nil, errors.Wrap(err, errors.ErrTransaction, "提交入库失败")
	}

	s.log.Info("提交已受理",
		zap.String("submission_id", submission.SubmissionID),
		zap.String("agent_id", req.AgentID),
		zap.String("challenge_id", req.ChallengeID),
		zap.Int64("score", score.Score))

	return &SubmitResult{
		Accepted:   true,
		Submission: submission,
		Score:      score,
		Validation: validation,
	}, nil
}

// GetSubmission 按ID查询提交记录
func (s *submissionService) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	return s.submissionRepo.FindBySubmissionID(ctx, submissionID)
}

// GetByAgent 分页查询代理的提交记录
func (s *submissionService) GetByAgent(ctx context.Context, agentID string, page, pageSize int) ([]*models.Submission, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	submissions, err := s.submissionRepo.GetByAgent(ctx, agentID, pagination)
	if err != nil {
		return nil, 0, err
	}
	return submissions, pagination.Total, nil
}

// validationItemsToJSON 将验证条目转成可落库的JSON数组
func validationItemsToJSON(items []engine.ValidationItem) models.JSONArray {
	out := make(models.JSONArray, 0, len(items))
	for _, item := range items {
		entry := map[string]interface{}{
			"stage":    item.Stage,
			"severity": string(item.Severity),
			"code":     item.Code,
		}
		if len(item.Detail) > 0 {
			entry["detail"] = item.Detail
		}
		out = append(out, entry)
	}
	return out
}

// analysisToJSON 将文本分析结果转成可落库的JSON对象
func analysisToJSON(v *engine.ValidationResult) models.JSONMap {
	return models.JSONMap{
		"word_count":         v.Analysis.WordCount,
		"sentence_count":     v.Analysis.SentenceCount,
		"unique_word_count":  v.Analysis.UniqueWordCount,
		"avg_word_length":    v.Analysis.AvgWordLength,
		"special_char_ratio": v.Analysis.SpecialCharRatio,
		"space_ratio":        v.Analysis.SpaceRatio,
		"repetition":         v.Repetition,
	}
}
