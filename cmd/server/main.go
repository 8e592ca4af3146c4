package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/api"
	"github.com/qs3c/needvox_server/internal/api/handler"
	"github.com/qs3c/needvox_server/internal/database"
	"github.com/qs3c/needvox_server/internal/pkg/cron"
	"github.com/qs3c/needvox_server/internal/pkg/kv"
	"github.com/qs3c/needvox_server/internal/pkg/logger"
	"github.com/qs3c/needvox_server/internal/pkg/oauth"
	"github.com/qs3c/needvox_server/internal/pkg/oss"
	"github.com/qs3c/needvox_server/internal/pkg/pubsub"
	"github.com/qs3c/needvox_server/internal/pkg/queue"
	"github.com/qs3c/needvox_server/internal/pkg/ws"
	"github.com/qs3c/needvox_server/internal/repository"
	"github.com/qs3c/needvox_server/internal/service"
	"github.com/qs3c/needvox_server/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect database", zap.Error(err))
	}
	zl.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zl.Fatal("failed to connect redis", zap.Error(err))
	}
	zl.Info("redis connected")

	// 用户与订阅记录的存储
	var store kv.Store
	switch cfg.Storage.Backend {
	case "database":
		store = repository.NewRecordRepository(db)
	case "redis", "":
		store = kv.NewRedisStore(rdb)
	default:
		zl.Fatal("unsupported storage backend", zap.String("backend", cfg.Storage.Backend))
	}
	zl.Info("record storage ready", zap.String("backend", cfg.Storage.Backend))

	sessions := session.NewManager(store, session.Options{
		KeyPrefix:      cfg.Storage.KeyPrefix,
		AuthDelay:      config.Delay(cfg.Simulation.AuthDelayMs),
		SubscribeDelay: config.Delay(cfg.Simulation.SubscribeDelayMs),
		Logger:         zl,
	})

	// 定期清理空闲会话
	sweeper := cron.NewService(sessions,
		time.Duration(cfg.Session.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.Session.IdleMinutes)*time.Minute,
		zl)
	sweeper.Start()
	defer sweeper.Stop()

	// 后台任务：未开启 inline 时交给 worker
	var jobs service.JobQueue
	if !cfg.Queue.Inline {
		jobs = queue.NewQueue(rdb, cfg.Queue.JobQueue)
	}

	// 初始化 OSS（可选）
	var avatars service.AvatarStorage
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zl.Warn("failed to init OSS client, avatar upload disabled", zap.Error(err))
		} else {
			avatars = ossClient
			zl.Info("OSS client initialized")
		}
	}

	// GitHub 登录（可选）
	var githubOAuth *oauth.GithubOAuth
	var states *oauth.StateStore
	if gh := cfg.OAuth.Github; gh.ClientID != "" && gh.ClientSecret != "" {
		githubOAuth = oauth.NewGithubOAuth(gh.ClientID, gh.ClientSecret, gh.RedirectURI)
		states = oauth.NewStateStore(rdb)
	}

	// 初始化 Repository
	storyRepo := repository.NewStoryRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)
	chatRepo := repository.NewChatRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(cfg, githubOAuth, states, zl)
	userService := service.NewUserService(avatars, zl)
	chatService := service.NewChatService(chatRepo, zl)
	storyService := service.NewStoryService(storyRepo, likeRepo, chatService, jobs, cfg, zl)
	collectionService := service.NewCollectionService(collectionRepo, storyRepo, jobs, cfg, zl)
	walletService := service.NewWalletService(payoutRepo, cfg, zl)
	subscriptionService := service.NewSubscriptionService(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// worker 发布的任务事件推送给在线用户
	hub := ws.NewHub(zl)
	wsHandler := handler.NewWebSocketHandler(hub, sessions, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, zl)
	go func() {
		if err := pubsub.NewSubscriber(rdb).Subscribe(ctx, wsHandler.Relay); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("job event subscriber stopped", zap.Error(err))
		}
	}()

	// 初始化 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService, sessions),
		handler.NewUserHandler(userService),
		handler.NewStoryHandler(storyService),
		handler.NewCollectionHandler(collectionService),
		handler.NewChatHandler(chatService),
		handler.NewWalletHandler(walletService),
		handler.NewSubscriptionHandler(subscriptionService),
		wsHandler,
		sessions,
		cfg,
		zl,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr), zap.Bool("inline_jobs", cfg.Queue.Inline))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	hub.Close()
}
