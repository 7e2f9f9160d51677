package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/token-arena/internal/middleware"
	"github.com/wfunc/token-arena/internal/models"
	"github.com/wfunc/token-arena/internal/repository"
	"github.com/wfunc/token-arena/internal/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestRouter 构建带内存数据库的完整路由器
func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Agent{},
		&models.APIKey{},
		&models.RateLimit{},
		&models.Challenge{},
		&models.Submission{},
		&models.Game{},
		&models.GameAction{},
	)
	require.NoError(t, err)

	return NewRouter(db, service.DefaultConfig(), nil, zap.NewNop())
}

// doJSON 发送JSON请求
func doJSON(router *Router, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.GetEngine().ServeHTTP(w, req)
	return w
}

// registerAndAuth 注册代理并换取访问令牌
func registerAndAuth(t *testing.T, router *Router, agentID string) (apiKey string, bearer map[string]string) {
	t.Helper()

	w := doJSON(router, "POST", "/api/v2/auth/keys", gin.H{"agent_id": agentID}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var reg map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	apiKey = reg["api_key"].(string)

	w = doJSON(router, "POST", "/api/v2/auth/token", gin.H{"api_key": apiKey}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tokens map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))

	bearer = map[string]string{
		"Authorization": "Bearer " + tokens["access_token"].(string),
	}
	return apiKey, bearer
}

// TestHealthCheck 健康检查
func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

// TestAuthFlow 注册、签发令牌、密钥管理
func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)

	apiKey, bearer := registerAndAuth(t, router, "agent-api")
	assert.True(t, strings.HasPrefix(apiKey, "twa-"))

	// 未认证访问受保护接口
	w := doJSON(router, "GET", "/api/v2/auth/keys", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 用访问令牌查询密钥列表
	w = doJSON(router, "GET", "/api/v2/auth/keys", nil, bearer)
	assert.Equal(t, http.StatusOK, w.Code)

	// API密钥直接认证也可以
	w = doJSON(router, "GET", "/api/v2/auth/keys", nil, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusOK, w.Code)

	// 错误的密钥换不到令牌
	w = doJSON(router, "POST", "/api/v2/auth/token", gin.H{"api_key": "twa-bogus"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestGameFlow 完整的限时游戏流程
func TestGameFlow(t *testing.T) {
	router := newTestRouter(t)
	_, bearer := registerAndAuth(t, router, "agent-game-api")

	// 时长越界
	w := doJSON(router, "POST", "/api/v2/games/start", gin.H{"duration": 120}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 开始会话
	w = doJSON(router, "POST", "/api/v2/games/start", gin.H{"duration": 60}, bearer)
	require.Equal(t, http.StatusCreated, w.Code)

	var started map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	gameID := started["game_id"].(string)
	assert.Len(t, started["available_methods"], 4)

	// 执行动作
	w = doJSON(router, "POST", fmt.Sprintf("/api/v2/games/%s/actions", gameID),
		gin.H{"method": "chainOfThoughtExplosion"}, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	var action map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &action))
	assert.Greater(t, action["tokens_burned"].(float64), 0.0)

	// 未知方法
	w = doJSON(router, "POST", fmt.Sprintf("/api/v2/games/%s/actions", gameID),
		gin.H{"method": "warpDrive"}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 状态查询
	w = doJSON(router, "GET", "/api/v2/games/"+gameID, nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	// 结束会话
	w = doJSON(router, "POST", fmt.Sprintf("/api/v2/games/%s/finish", gameID), nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "finished", summary["status"])

	// 结束后状态从数据库读取
	w = doJSON(router, "GET", "/api/v2/games/"+gameID, nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	// 历史会话
	w = doJSON(router, "GET", "/api/v2/games", nil, bearer)
	assert.Equal(t, http.StatusOK, w.Code)

	// 不存在的会话
	w = doJSON(router, "GET", "/api/v2/games/game_missing", nil, bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestChallengeAndSubmissionFlow 题库查询与提交流程
func TestChallengeAndSubmissionFlow(t *testing.T) {
	router := newTestRouter(t)
	require.NoError(t, router.Services().Challenge.SeedChallenges(context.Background()))

	_, bearer := registerAndAuth(t, router, "agent-sub-api")

	// 题库公开可读
	w := doJSON(router, "GET", "/api/v2/challenges?difficulty=easy", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/api/v2/challenges/cot_easy_001", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/api/v2/challenges?difficulty=impossible", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 合法提交
	w = doJSON(router, "POST", "/api/v2/submissions", gin.H{
		"challenge_id": "cot_easy_001",
		"tokens_used":  1900,
		"answer":       strings.Repeat("delta ", 1200),
	}, bearer)
	require.Equal(t, http.StatusCreated, w.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, true, result["accepted"])

	submission := result["submission"].(map[string]interface{})
	submissionID := submission["submission_id"].(string)

	// 被拒绝的提交返回422
	w = doJSON(router, "POST", "/api/v2/submissions", gin.H{
		"challenge_id": "cot_easy_001",
		"tokens_used":  99999,
		"answer":       "too short",
	}, bearer)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 提交详情
	w = doJSON(router, "GET", "/api/v2/submissions/"+submissionID, nil, bearer)
	assert.Equal(t, http.StatusOK, w.Code)

	// 代理提交列表公开
	w = doJSON(router, "GET", "/api/v2/agents/agent-sub-api/submissions", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 排行榜公开
	w = doJSON(router, "GET", "/api/v2/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var board map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	data := board["data"].(map[string]interface{})
	entries := data["leaderboard"].([]interface{})
	require.Len(t, entries, 1)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "agent-sub-api", first["agent_id"])

	// 单个代理名次
	w = doJSON(router, "GET", "/api/v2/leaderboard/agents/agent-sub-api", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rank map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rank))
	entry := rank["data"].(map[string]interface{})
	assert.EqualValues(t, 1, entry["rank"])

	w = doJSON(router, "GET", "/api/v2/leaderboard/agents/agent-missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// newRateLimitedRouter 构建启用限流的路由器，返回底层数据库供断言
func newRateLimitedRouter(t *testing.T, maxRequests int) (*Router, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Agent{},
		&models.APIKey{},
		&models.RateLimit{},
		&models.Challenge{},
		&models.Submission{},
		&models.Game{},
		&models.GameAction{},
	)
	require.NoError(t, err)

	rateLimit := middleware.NewRateLimitMiddleware(
		repository.NewRateLimitRepository(db), maxRequests, time.Minute, zap.NewNop())
	return NewRouter(db, service.DefaultConfig(), rateLimit, zap.NewNop()), db
}

// TestRateLimitIdentifiers 已认证请求按代理ID计数，匿名请求按IP计数
func TestRateLimitIdentifiers(t *testing.T) {
	router, db := newRateLimitedRouter(t, 100)

	_, bearer := registerAndAuth(t, router, "agent-rl")

	for i := 0; i < 3; i++ {
		w := doJSON(router, "GET", "/api/v2/games", nil, bearer)
		require.Equal(t, http.StatusOK, w.Code)
	}

	var agentRow models.RateLimit
	require.NoError(t, db.Where("identifier = ?", "agent:agent-rl").First(&agentRow).Error)
	assert.Equal(t, 3, agentRow.Count)

	// 匿名访问公开接口按IP计数
	w := doJSON(router, "GET", "/api/v2/challenges", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ipRows []models.RateLimit
	require.NoError(t, db.Where("identifier LIKE ?", "ip:%").Find(&ipRows).Error)
	require.NotEmpty(t, ipRows)
	for _, row := range ipRows {
		assert.NotContains(t, row.Identifier, "agent-rl")
	}
}

// TestRateLimitExceeded 超出窗口配额返回429
func TestRateLimitExceeded(t *testing.T) {
	router, _ := newRateLimitedRouter(t, 2)

	for i := 0; i < 2; i++ {
		w := doJSON(router, "GET", "/api/v2/leaderboard", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(router, "GET", "/api/v2/leaderboard", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
}
