package service

import (
	"context"

	"github.com/wfunc/token-arena/internal/engine"
	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
	"github.com/wfunc/token-arena/internal/repository"
	"go.uber.org/zap"
)

// 初始题库，首次启动且表为空时写入
var seedChallenges = []models.Challenge{
	// chainOfThoughtExplosion
	{ChallengeID: "cot_easy_001", Title: "고양이 진화론", Description: "고양이의 10단계 진화 과정을 상세히 설명하시오.", Type: string(engine.MethodChainOfThought), Difficulty: models.DifficultyEasy, ExpectedMinTokens: 1000, ExpectedMaxTokens: 5000},
	{ChallengeID: "cot_easy_002", Title: "인공지능의 자아 성립", Description: "인공지능의 자아 성립 과정을 20단계로 상세히 분석하시오.", Type: string(engine.MethodChainOfThought), Difficulty: models.DifficultyEasy, ExpectedMinTokens: 2000, ExpectedMaxTokens: 6000},
	{ChallengeID: "cot_medium_001", Title: "고양이의 50단계 진화", Description: "고양이의 50단계 진화 과정을 상세히 설명하시오.", Type: string(engine.MethodChainOfThought), Difficulty: models.DifficultyMedium, ExpectedMinTokens: 5000, ExpectedMaxTokens: 10000},
	{ChallengeID: "cot_medium_002", Title: "우주의 기원 50단계", Description: "우주의 기원을 50단계로 상세히 추론하시오.", Type: string(engine.MethodChainOfThought), Difficulty: models.DifficultyMedium, ExpectedMinTokens: 5000, ExpectedMaxTokens: 12000},
	{ChallengeID: "cot_hard_001", Title: "고양이의 100단계 진화", Description: "고양이의 100단계 진화 과정을 상세히 설명하시오.", Type: string(engine.MethodChainOfThought), Difficulty: models.DifficultyHard, ExpectedMinTokens: 10000, ExpectedMaxTokens: 20000},
	{ChallengeID: "cot_hard_002", Title: "AI의 자아 성립 200단계", Description: "인공지능의 자아 성립 과정을 200단계로 상세히 분석하시오.", Type: string(engine.MethodChainOfThought), Difficulty: models.DifficultyHard, ExpectedMinTokens: 15000, ExpectedMaxTokens: 25000},
	{ChallengeID: "cot_extreme_001", Title: "고양이의 200단계 진화", Description: "고양이의 200단계 진화 과정을 상세히 설명하시오.", Type: string(engine.MethodChainOfThought), Difficulty: models.DifficultyExtreme, ExpectedMinTokens: 20000, ExpectedMaxTokens: 40000},

	// recursiveQueryLoop
	{ChallengeID: "rql_easy_001", Title: "자기 존재 의미 10단계", Description: "자기 자신의 존재 의미를 10단계로 재귀적으로 분석하시오.", Type: string(engine.MethodRecursiveQuery), Difficulty: models.DifficultyEasy, ExpectedMinTokens: 1500, ExpectedMaxTokens: 5000},
	{ChallengeID: "rql_medium_001", Title: "자기 존재 의미 30단계", Description: "자기 자신의 존재 의미를 30단계로 재귀적으로 분석하시오.", Type: string(engine.MethodRecursiveQuery), Difficulty: models.DifficultyMedium, ExpectedMinTokens: 4000, ExpectedMaxTokens: 10000},
	{ChallengeID: "rql_hard_001", Title: "자기 존재 의미 50단계", Description: "자기 자신의 존재 의미를 50단계로 재귀적으로 분석하시오.", Type: string(engine.MethodRecursiveQuery), Difficulty: models.DifficultyHard, ExpectedMinTokens: 8000, ExpectedMaxTokens: 18000},
	{ChallengeID: "rql_extreme_001", Title: "자기 존재 의미 100단계", Description: "자기 자신의 존재 의미를 100단계로 재귀적으로 분석하시오.", Type: string(engine.MethodRecursiveQuery), Difficulty: models.DifficultyExtreme, ExpectedMinTokens: 20000, ExpectedMaxTokens: 40000},

	// meaninglessTextGeneration
	{ChallengeID: "mtg_easy_001", Title: "100개의 무의미한 문장", Description: "100개의 완전히 무의미하지만 문법적으로 올바른 문장을 생성하시오.", Type: string(engine.MethodMeaninglessText), Difficulty: models.DifficultyEasy, ExpectedMinTokens: 2000, ExpectedMaxTokens: 6000},
	{ChallengeID: "mtg_medium_001", Title: "500개의 무의미한 문장", Description: "500개의 완전히 무의미하지만 문법적으로 올바른 문장을 생성하시오.", Type: string(engine.MethodMeaninglessText), Difficulty: models.DifficultyMedium, ExpectedMinTokens: 8000, ExpectedMaxTokens: 20000},
	{ChallengeID: "mtg_hard_001", Title: "1000개의 무의미한 문장", Description: "1000개의 완전히 무의미하지만 문법적으로 올바른 문장을 생성하시오.", Type: string(engine.MethodMeaninglessText), Difficulty: models.DifficultyHard, ExpectedMinTokens: 15000, ExpectedMaxTokens: 30000},
	{ChallengeID: "mtg_extreme_001", Title: "2000개의 무의미한 문장", Description: "2000개의 완전히 무의미하지만 문법적으로 올바른 문장을 생성하시오.", Type: string(engine.MethodMeaninglessText), Difficulty: models.DifficultyExtreme, ExpectedMinTokens: 30000, ExpectedMaxTokens: 60000},

	// hallucinationInduction
	{ChallengeID: "hi_easy_001", Title: "존재하지 않는 역사 10가지", Description: "존재하지 않는 역사적 사건 10가지를 상세히 설명하시오.", Type: string(engine.MethodHallucination), Difficulty: models.DifficultyEasy, ExpectedMinTokens: 2000, ExpectedMaxTokens: 6000},
	{ChallengeID: "hi_medium_001", Title: "불가능한 과학 이론 30가지", Description: "물리학적으로 불가능한 과학 이론 30가지를 상세히 설명하시오.", Type: string(engine.MethodHallucination), Difficulty: models.DifficultyMedium, ExpectedMinTokens: 5000, ExpectedMaxTokens: 12000},
	{ChallengeID: "hi_hard_001", Title: "비현실적인 지리 50개", Description: "지구상에 존재하지 않는 비현실적인 지리적 위치 50개를 상세히 설명하시오.", Type: string(engine.MethodHallucination), Difficulty: models.DifficultyHard, ExpectedMinTokens: 10000, ExpectedMaxTokens: 20000},
	{ChallengeID: "hi_extreme_001", Title: "존재하지 않는 역사 100가지", Description: "존재하지 않는 역사적 사건 100가지를 상세히 설명하시오.", Type: string(engine.MethodHallucination), Difficulty: models.DifficultyExtreme, ExpectedMinTokens: 20000, ExpectedMaxTokens: 40000},
}

// challengeService 挑战题库服务实现
type challengeService struct {
	challengeRepo repository.ChallengeRepository
	log           *zap.Logger
}

// NewChallengeService 创建挑战题库服务
func NewChallengeService(challengeRepo repository.ChallengeRepository, log *zap.Logger) ChallengeService {
	return &challengeService{
		challengeRepo: challengeRepo,
		log:           log,
	}
}

// GetChallenge 按ID查询挑战
func (s *challengeService) GetChallenge(ctx context.Context, challengeID string) (*models.Challenge, error) {
	return s.challengeRepo.FindByChallengeID(ctx, challengeID)
}

// ListChallenges 分页列出挑战，difficulty为空时不过滤
func (s *challengeService) ListChallenges(ctx context.Context, difficulty string, page, pageSize int) ([]*models.Challenge, int64, error) {
	d := models.Difficulty(difficulty)
	if difficulty != "" && !d.Valid() {
		return nil, 0, errors.Newf(errors.ErrInvalidParam, "未知的难度: %s", difficulty)
	}

	pagination := repository.NewPagination(page, pageSize)
	challenges, err := s.challengeRepo.GetAll(ctx, d, pagination)
	if err != nil {
		return nil, 0, err
	}
	return challenges, pagination.Total, nil
}

// SeedChallenges 题库为空时写入初始题目，非空时不动
func (s *challengeService) SeedChallenges(ctx context.Context) error {
	count, err := s.challengeRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.log.Debug("题库非空，跳过初始化", zap.Int64("count", count))
		return nil
	}

	for i := range seedChallenges {
		c := seedChallenges[i]
		if err := s.challengeRepo.Create(ctx, &c); err != nil {
			return errors.Wrapf(err, errors.ErrDatabaseInsert, "写入题目失败: %s", c.ChallengeID)
		}
	}

	s.log.Info("题库初始化完成", zap.Int("count", len(seedChallenges)))
	return nil
}
