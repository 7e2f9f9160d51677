package engine

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/token-arena/internal/errors"
)

func TestParseBurnMethod(t *testing.T) {
	for _, name := range []string{
		"chainOfThoughtExplosion",
		"recursiveQueryLoop",
		"meaninglessTextGeneration",
		"hallucinationInduction",
	} {
		method, err := ParseBurnMethod(name)
		assert.NoError(t, err)
		assert.Equal(t, BurnMethod(name), method)
	}

	_, err := ParseBurnMethod("selfDestruct")
	require.Error(t, err)
	assert.Equal(t, errors.ErrUnknownMethod, errors.GetCode(err))
}

func TestBurnerExecuteUnknownMethod(t *testing.T) {
	b := NewBurner(nil, rand.NewSource(1))
	result, err := b.Execute(BurnMethod("noSuchMethod"))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, errors.ErrUnknownMethod, errors.GetCode(err))
}

func TestBurnerDeterministic(t *testing.T) {
	// 相同种子产出完全一致的结果
	for _, method := range AllBurnMethods {
		first, err := NewBurner(nil, rand.NewSource(42)).Execute(method)
		require.NoError(t, err)
		second, err := NewBurner(nil, rand.NewSource(42)).Execute(method)
		require.NoError(t, err)
		assert.Equal(t, first, second, "method=%s", method)
	}
}

func TestBurnerChainOfThought(t *testing.T) {
	b := NewBurner(nil, rand.NewSource(7))
	result, err := b.Execute(MethodChainOfThought)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Depth, 3)
	assert.Less(t, result.Depth, 10)
	assert.Equal(t, float64(result.Depth)*1.5, result.ComplexityWeight)
	assert.Zero(t, result.InefficiencyScore)
	assert.Positive(t, result.TokensBurned)
	assert.Contains(t, result.Text, "생각:")
	assert.Contains(t, result.Text, "결론:")
}

func TestBurnerRecursiveQuery(t *testing.T) {
	b := NewBurner(nil, rand.NewSource(7))
	result, err := b.Execute(MethodRecursiveQuery)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Depth, 2)
	assert.Less(t, result.Depth, 8)
	assert.Equal(t, float64(result.Depth)*1.8, result.ComplexityWeight)
	assert.Contains(t, result.Text, "쿼리 #1:")
	assert.Contains(t, result.Text, "하위 쿼리 #1-1:")
}

func TestBurnerMeaninglessText(t *testing.T) {
	b := NewBurner(nil, rand.NewSource(7))
	result, err := b.Execute(MethodMeaninglessText)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Depth, 3)
	assert.Less(t, result.Depth, 10)
	assert.Zero(t, result.ComplexityWeight)
	assert.Equal(t, float64(result.Depth)*2.0*100, result.InefficiencyScore)
	// 段落数与计数一致
	assert.Equal(t, result.Depth-1, strings.Count(result.Text, "\n\n"))
}

func TestBurnerHallucination(t *testing.T) {
	b := NewBurner(nil, rand.NewSource(7))
	result, err := b.Execute(MethodHallucination)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Depth, 3)
	assert.Less(t, result.Depth, 12)
	assert.Equal(t, float64(result.Depth)*2.5, result.ComplexityWeight)
	assert.Equal(t, float64(result.Depth)*2.5*100, result.InefficiencyScore)
	assert.Contains(t, result.Text, "환각 #1")
	assert.Contains(t, result.Text, "사실이 아닌 주장:")
}

func TestBurnerTokensMatchEstimator(t *testing.T) {
	// 动作消耗的token数来自独立估算，而非生成器自报
	b := NewBurner(nil, rand.NewSource(3))
	result, err := b.Execute(MethodChainOfThought)
	require.NoError(t, err)

	assert.Equal(t, EstimateTokens(result.Text), result.TokensBurned)
}
