package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/token-arena/internal/api"
	"github.com/wfunc/token-arena/internal/config"
	"github.com/wfunc/token-arena/internal/database"
	"github.com/wfunc/token-arena/internal/errors"
	"github.com/wfunc/token-arena/internal/logger"
	"github.com/wfunc/token-arena/internal/middleware"
	"github.com/wfunc/token-arena/internal/repository"
	"github.com/wfunc/token-arena/internal/service"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	router     *api.Router
	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("token-arena %s (build: %s, commit: %s)\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动token竞技场服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}

	db := database.GetDB()

	// 限流中间件
	var rateLimit *middleware.RateLimitMiddleware
	if s.cfg.RateLimit.Enabled {
		rateLimit = middleware.NewRateLimitMiddleware(
			repository.NewRateLimitRepository(db),
			s.cfg.RateLimit.MaxRequests,
			s.cfg.RateLimit.Window,
			s.logger,
		)
	}

	// 路由与服务
	s.router = api.NewRouter(db, service.FromAppConfig(s.cfg), rateLimit, s.logger)
	services := s.router.Services()

	// 题库初始化
	if s.cfg.Challenge.SeedOnStartup {
		if err := services.Challenge.SeedChallenges(s.ctx); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "题库初始化失败")
		}
	}

	// 过期会话清理
	services.Sessions.StartSweeper(s.ctx, s.cfg.Game.SweepInterval)

	// 限流记录清理
	s.startRateLimitCleanup()

	// HTTP服务
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP服务器异常退出", zap.Error(err))
		}
	}()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已重新加载")
	})

	s.logger.Info("服务器启动成功", zap.String("http", addr))
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// startRateLimitCleanup 定期清理失效的限流记录
func (s *Server) startRateLimitCleanup() {
	repo := repository.NewRateLimitRepository(database.GetDB())
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := repo.Cleanup(s.ctx); err != nil {
					s.logger.Warn("清理限流记录失败", zap.Error(err))
				}
			}
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭
func (s *Server) Shutdown() error {
	s.logger.Info("正在关闭服务器...")
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return errors.Wrap(err, errors.ErrUnknown, "HTTP服务器关闭失败")
		}
	}

	// 把还在内存中的会话全部落库
	s.router.Services().Sessions.SweepAll()

	if err := database.Close(); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库关闭失败")
	}

	return nil
}
