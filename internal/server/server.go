package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "robochat/docs"
	"robochat/internal/ai"
	"robochat/internal/config"
	"robochat/internal/handler"
	"robochat/internal/pkg/cache"
	"robochat/internal/pkg/database"
	"robochat/internal/repository"
	"robochat/internal/server/middleware"
	"robochat/internal/service"
	"robochat/internal/session"
)

// 会话锁在补全超时之外多保留的时间，进程崩溃后锁会自动过期
const sessionLockGrace = 30 * time.Second

// Server HTTP 服务器
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	db       *gorm.DB
	redis    *cache.RedisCache
	sessions session.Store
}

// New 创建服务器实例，建立数据库、会话存储与补全客户端
func New(cfg *config.Config) (*Server, error) {
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}

	var redisCache *cache.RedisCache
	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		redisCache = rc
		sessions = session.NewRedisStore(rc, cfg.Session.TTL, cfg.AI.Timeout+sessionLockGrace)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis, using redis session store")
	default:
		sessions = session.NewMemoryStore(cfg.Session.TTL)
		log.Info().Dur("ttl", cfg.Session.TTL).Msg("using in-memory session store")
	}

	completer, err := ai.NewCompleter(context.Background(), &cfg.AI)
	if err != nil {
		_ = sessions.Close()
		if redisCache != nil {
			_ = redisCache.Close()
		}
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to create completer: %w", err)
	}
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("completion relay ready")

	srv := newServer(cfg, db, redisCache, sessions, completer)

	// 启动时尽力初始化一次，失败不阻止启动，可稍后调用 /api/init
	if err := srv.settings().Initialize(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to initialize settings at startup")
	}

	return srv, nil
}

// newServer 用已建立的依赖组装服务器
func newServer(cfg *config.Config, db *gorm.DB, redisCache *cache.RedisCache, sessions session.Store, completer ai.Completer) *Server {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &Server{
		cfg:      cfg,
		engine:   gin.New(),
		db:       db,
		redis:    redisCache,
		sessions: sessions,
	}
	srv.setupRoutes(completer)

	return srv
}

func (s *Server) settings() *service.SettingsService {
	return service.NewSettingsService(repository.NewSettingRepo(s.db))
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(completer ai.Completer) {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS(s.cfg.Server.AllowOrigins))

	settingsSvc := s.settings()
	chatSvc := service.NewChatService(s.sessions, settingsSvc, ai.NewRelay(completer, s.cfg.AI.Timeout))

	// 健康检查
	checks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error { return database.Ping(ctx, s.db) },
	}
	if s.redis != nil {
		checks["redis"] = s.redis.Ping
	}
	healthHandler := handler.NewHealthHandler(checks)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group("/api")
	{
		settingsHdl := handler.NewSettingsHandler(settingsSvc)
		api.GET("/init", settingsHdl.Init)
		api.GET("/robotName", settingsHdl.GetRobotName)
		api.POST("/robotName", settingsHdl.SetRobotName)

		chatHdl := handler.NewChatHandler(chatSvc, s.cfg.Session.CookieName, s.cfg.Session.Secure)
		api.POST("/chat", chatHdl.Chat)
		api.GET("/chat", chatHdl.History)
		api.DELETE("/chat", chatHdl.Reset)
	}
}

// Run 启动服务器，ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 先等进行中的请求结束，再关闭依赖
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.AI.Timeout+5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		s.Close()
		return err
	case err := <-errCh:
		s.Close()
		return err
	}
}

// Close 释放会话存储、Redis 与数据库连接
func (s *Server) Close() {
	if err := s.sessions.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close session store")
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
	}
	if err := database.Close(s.db); err != nil {
		log.Error().Err(err).Msg("failed to close database connection")
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
