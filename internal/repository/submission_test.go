package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/models"
)

func TestSubmissionRepository_CreateAndFind(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	CreateTestChallenge(t, db, "ch-1", models.DifficultyEasy)
	submission := &models.Submission{
		SubmissionID:    "sub-1",
		AgentID:         "agent-1",
		ChallengeID:     "ch-1",
		TokensUsed:      1500,
		Answer:          "정답 텍스트",
		Score:           2250,
		Language:        "korean",
		EstimatedTokens: 1480,
		Warnings:        models.JSONArray{{"code": "out_of_expected_range"}},
	}
	require.NoError(t, repo.Create(ctx, submission))

	found, err := repo.FindBySubmissionID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 2250, found.Score)
	assert.Equal(t, "korean", found.Language)
	require.Len(t, found.Warnings, 1)
	assert.Equal(t, "out_of_expected_range", found.Warnings[0]["code"])
	require.NotNil(t, found.Challenge)
	assert.Equal(t, "ch-1", found.Challenge.ChallengeID)

	_, err = repo.FindBySubmissionID(ctx, "sub-missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrSubmissionNotFound, errors.GetCode(err))
}

func TestSubmissionRepository_TokensHistory(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	CreateTestSubmission(t, db, "sub-1", "agent-1", "ch-1", 100)
	CreateTestSubmission(t, db, "sub-2", "agent-1", "ch-1", 200)
	// 其他代理和其他题目不计入
	CreateTestSubmission(t, db, "sub-3", "agent-2", "ch-1", 300)
	CreateTestSubmission(t, db, "sub-4", "agent-1", "ch-2", 400)

	history, err := repo.TokensHistory(ctx, "agent-1", "ch-1")
	require.NoError(t, err)
	assert.Equal(t, []int{1500, 1500}, history)

	history, err = repo.TokensHistory(ctx, "agent-1", "ch-9")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSubmissionRepository_GetByAgent(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	for _, id := range []string{"sub-1", "sub-2", "sub-3"} {
		CreateTestSubmission(t, db, id, "agent-1", "ch-1", 100)
	}
	CreateTestSubmission(t, db, "sub-9", "agent-2", "ch-1", 100)

	pagination := NewPagination(1, 2)
	submissions, err := repo.GetByAgent(ctx, "agent-1", pagination)
	require.NoError(t, err)
	assert.Len(t, submissions, 2)
	assert.EqualValues(t, 3, pagination.Total)
}

func TestSubmissionRepository_Leaderboard(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	CreateTestSubmission(t, db, "sub-1", "agent-a", "ch-1", 100)
	CreateTestSubmission(t, db, "sub-2", "agent-a", "ch-1", 300)
	CreateTestSubmission(t, db, "sub-3", "agent-b", "ch-1", 500)

	entries, err := repo.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "agent-b", entries[0].AgentID)
	assert.EqualValues(t, 500, entries[0].TotalScore)
	assert.EqualValues(t, 500, entries[0].BestScore)

	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "agent-a", entries[1].AgentID)
	assert.EqualValues(t, 400, entries[1].TotalScore)
	assert.Equal(t, 2, entries[1].Submissions)
	assert.EqualValues(t, 300, entries[1].BestScore)
}

func TestSubmissionRepository_AgentRank(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	CreateTestSubmission(t, db, "sub-1", "agent-a", "ch-1", 100)
	CreateTestSubmission(t, db, "sub-2", "agent-a", "ch-1", 300)
	CreateTestSubmission(t, db, "sub-3", "agent-b", "ch-1", 500)
	CreateTestSubmission(t, db, "sub-4", "agent-c", "ch-1", 50)

	entry, err := repo.AgentRank(ctx, "agent-a")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Rank)
	assert.EqualValues(t, 400, entry.TotalScore)
	assert.Equal(t, 2, entry.Submissions)
	assert.EqualValues(t, 300, entry.BestScore)

	entry, err = repo.AgentRank(ctx, "agent-c")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Rank)

	_, err = repo.AgentRank(ctx, "agent-missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrAgentNotFound, errors.GetCode(err))
}
