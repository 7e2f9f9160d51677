package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/middleware"
	"github.com/wfunc/token-arena/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine             *gin.Engine
	db                 *gorm.DB
	services           *service.Services
	authHandler        *AuthHandler
	gameHandler        *GameHandler
	challengeHandler   *ChallengeHandler
	submissionHandler  *SubmissionHandler
	leaderboardHandler *LeaderboardHandler
	wsHandler          *WebSocketHandler
	authMiddleware     *middleware.AuthMiddleware
	rateLimit          *middleware.RateLimitMiddleware
	log                *zap.Logger
}

// NewRouter 创建路由器，rateLimit为nil时不启用限流
func NewRouter(db *gorm.DB, config *service.Config, rateLimit *middleware.RateLimitMiddleware, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	services := service.NewServices(db, config, log)

	router := &Router{
		engine:             engine,
		db:                 db,
		services:           services,
		authHandler:        NewAuthHandler(services.Auth),
		gameHandler:        NewGameHandler(services.Game),
		challengeHandler:   NewChallengeHandler(services.Challenge),
		submissionHandler:  NewSubmissionHandler(services.Submission),
		leaderboardHandler: NewLeaderboardHandler(services.Leaderboard),
		wsHandler:          NewWebSocketHandler(services.Game, log),
		authMiddleware:     middleware.NewAuthMiddleware(services.Auth),
		rateLimit:          rateLimit,
		log:                log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
// 限流必须排在认证之后，已认证请求才能按代理ID计数；
// 公开接口直接挂限流，按客户端IP计数
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	requireAuth := r.authMiddleware.RequireAuth()
	limit := r.rateLimitHandler()

	// API v2路由组
	v2 := r.engine.Group("/api/v2")
	{
		// 认证相关路由
		auth := v2.Group("/auth")
		{
			authPublic := auth.Group("", limit)
			{
				authPublic.POST("/keys", r.authHandler.RegisterAgent)
				authPublic.POST("/token", r.authHandler.IssueToken)
				authPublic.POST("/refresh", r.authHandler.RefreshToken)
			}

			authRequired := auth.Group("", requireAuth, limit)
			{
				authRequired.GET("/keys", r.authHandler.ListAPIKeys)
				authRequired.DELETE("/keys/:prefix", r.authHandler.RevokeAPIKey)
			}
		}

		// 限时游戏路由（需要认证）
		games := v2.Group("/games", requireAuth, limit)
		{
			games.GET("", r.gameHandler.GetHistory)
			games.POST("/start", r.gameHandler.StartGame)
			games.GET("/:id", r.gameHandler.GetStatus)
			games.POST("/:id/actions", r.gameHandler.ExecuteAction)
			games.POST("/:id/finish", r.gameHandler.FinishGame)
		}

		// 挑战题库路由（公开只读）
		challenges := v2.Group("/challenges", limit)
		{
			challenges.GET("", r.challengeHandler.ListChallenges)
			challenges.GET("/:id", r.challengeHandler.GetChallenge)
		}

		// 提交路由（需要认证）
		submissions := v2.Group("/submissions", requireAuth, limit)
		{
			submissions.POST("", r.submissionHandler.Submit)
			submissions.GET("/:id", r.submissionHandler.GetSubmission)
		}

		// 代理公开数据
		agents := v2.Group("/agents", limit)
		{
			agents.GET("/:id/submissions", r.submissionHandler.GetAgentSubmissions)
		}

		// 排行榜（公开）
		leaderboard := v2.Group("/leaderboard", limit)
		{
			leaderboard.GET("", r.leaderboardHandler.Top)
			leaderboard.GET("/agents/:id", r.leaderboardHandler.AgentRank)
		}
	}

	// WebSocket路由（需要认证）
	ws := r.engine.Group("/ws")
	ws.Use(r.authMiddleware.RequireAuth())
	{
		ws.GET("/games/:id", r.wsHandler.GameStatusFeed)
	}

	// Swagger文档（仅在 -tags swagger 时启用）
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// rateLimitHandler 返回限流处理器，未启用限流时为直通
func (r *Router) rateLimitHandler() gin.HandlerFunc {
	if r.rateLimit == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return r.rateLimit.Limit()
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":          "healthy",
		"active_sessions": r.services.Sessions.ActiveSessions(),
	})
}

// Services 服务集合（用于启动阶段的初始化与清理任务）
func (r *Router) Services() *service.Services {
	return r.services
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
