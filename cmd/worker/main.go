package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/config"
	"github.com/qs3c/needvox_server/internal/database"
	"github.com/qs3c/needvox_server/internal/pkg/logger"
	"github.com/qs3c/needvox_server/internal/pkg/pubsub"
	"github.com/qs3c/needvox_server/internal/pkg/queue"
	"github.com/qs3c/needvox_server/internal/repository"
	"github.com/qs3c/needvox_server/internal/service"
	"github.com/qs3c/needvox_server/internal/worker"
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

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zl.Fatal("failed to connect redis", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb, cfg.Queue.JobQueue)

	// 初始化 Repository
	storyRepo := repository.NewStoryRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)

	// worker 内部同步执行，不再入队
	chatService := service.NewChatService(repository.NewChatRepository(db), zl)
	storyService := service.NewStoryService(storyRepo, repository.NewLikeRepository(db), chatService, nil, cfg, zl)
	collectionService := service.NewCollectionService(collectionRepo, storyRepo, nil, cfg, zl)

	processor := worker.NewProcessor(storyService, collectionService, pubsub.NewPublisher(rdb), zl)
	requeuer := worker.NewRequeuer(storyRepo, collectionRepo, jobQueue, zl)

	// 创建 context 用于优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go requeuer.Start(ctx)

	zl.Info("worker started",
		zap.String("queue", cfg.Queue.JobQueue),
		zap.Int("max_workers", cfg.Queue.MaxWorkers))
	processor.Run(ctx, jobQueue, cfg.Queue.MaxWorkers)
	zl.Info("worker shutdown complete")
}
