package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/token-arena/internal/models"
)

func TestRateLimitRepository_Incr(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()

	// 前3次允许，第4次拒绝
	for i := 1; i <= 3; i++ {
		result, err := repo.Incr(ctx, "agent-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "第%d次应允许", i)
		assert.Equal(t, 3-i, result.Remaining)
	}

	result, err := repo.Incr(ctx, "agent-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
}

func TestRateLimitRepository_IncrSeparateIdentifiers(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()

	_, err := repo.Incr(ctx, "agent-1", 1, time.Minute)
	require.NoError(t, err)

	// 不同标识符独立计数
	result, err := repo.Incr(ctx, "agent-2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimitRepository_WindowReset(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()

	result, err := repo.Incr(ctx, "agent-1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = repo.Incr(ctx, "agent-1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// 把窗口起点拨到过去，下一次计数重新开窗
	err = db.Model(&models.RateLimit{}).
		Where("identifier = ?", "agent-1").
		Update("reset_at", time.Now().Add(-time.Second)).Error
	require.NoError(t, err)

	result, err = repo.Incr(ctx, "agent-1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.WithinDuration(t, time.Now().Add(time.Minute), result.ResetAt, 5*time.Second)
}

func TestRateLimitRepository_Cleanup(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()

	_, err := repo.Incr(ctx, "agent-1", 10, time.Minute)
	require.NoError(t, err)

	err = db.Model(&models.RateLimit{}).
		Where("identifier = ?", "agent-1").
		Update("reset_at", time.Now().Add(-time.Hour)).Error
	require.NoError(t, err)

	require.NoError(t, repo.Cleanup(ctx))

	var count int64
	db.Model(&models.RateLimit{}).Count(&count)
	assert.Zero(t, count)
}
