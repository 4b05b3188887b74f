package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nilsonaj/racko-frontend/internal/config"
	"github.com/nilsonaj/racko-frontend/internal/game"
	"github.com/nilsonaj/racko-frontend/internal/handler"
	"github.com/nilsonaj/racko-frontend/internal/health"
	"github.com/nilsonaj/racko-frontend/internal/jwt"
	rackoNats "github.com/nilsonaj/racko-frontend/internal/nats"
	"github.com/nilsonaj/racko-frontend/internal/repository"
	"github.com/nilsonaj/racko-frontend/internal/router"
	"github.com/nilsonaj/racko-frontend/internal/store"
	"github.com/nilsonaj/racko-frontend/internal/task"
)

// @title           Racko API
// @version         1.0
// @description     Racko 牌局参与者节点
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	nodeID := cfg.App.NodeID
	if nodeID == "" {
		nodeID = "node-" + uuid.NewString()[:8]
	}
	logger = logger.With("nodeId", nodeID)
	slog.SetDefault(logger)

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接 NATS
	natsClient, err := rackoNats.NewClient(cfg.NATS)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	logger.Info("Connected to NATS", "url", cfg.NATS.URL)

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	logger.Info("Connected to Redis", "host", cfg.Redis.Host)

	// 连接数据库（可选，只保存历史对局）
	var (
		db     *pgxpool.Pool
		rounds *repository.RoundRepository
	)
	if cfg.Database.Enabled {
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		rounds = repository.NewRoundRepository(db)
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)
	}

	// 定时任务
	scheduler := task.NewScheduler(cfg.Game.SchedulerWorkers, task.WithTickInterval(cfg.Game.TickInterval))
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// 初始化服务
	manager := game.NewGameManager(cfg.Game.EvictTimeout, cfg.Game.EvictInterval)
	publisher := rackoNats.NewSnapshotPublisher(natsClient.Conn())
	snapshots := store.NewSnapshotStore(redisClient, cfg.Redis.SnapshotTTL)

	var recorder game.RoundRecorder
	var lister handler.RoundLister
	if rounds != nil {
		recorder, lister = rounds, rounds
	}

	gameService := game.NewGameService(manager, snapshots, publisher, scheduler, recorder, game.ServiceConfig{
		NodeID:       nodeID,
		AIDelay:      cfg.Game.AIDelay,
		UndoWindow:   cfg.Game.UndoWindow,
		PollInterval: cfg.Game.PollInterval,
	})

	// 启动订阅者
	subscriber := rackoNats.NewSnapshotSubscriber(natsClient.Conn(), gameService, rackoNats.SubscriberConfig{
		WorkerCount: cfg.NATS.SubscribeWorkers,
		BufferSize:  cfg.NATS.SubscribeBuffer,
	})
	if err := subscriber.Start(ctx); err != nil {
		logger.Error("Failed to start subscriber", "error", err)
		os.Exit(1)
	}

	// HTTP 服务
	jwtService := jwt.NewService(cfg.JWT.SecretKey, cfg.JWT.Expire)
	var dbPinger health.Pinger
	if db != nil {
		dbPinger = db
	}
	checker := health.NewChecker(natsClient.Conn(), health.PingFunc(func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}), dbPinger).
		WithStats("games", func() any { return manager.Count() }).
		WithStats("scheduler", func() any { return scheduler.GetStats() }).
		WithStats("subscriber", func() any {
			buffered, capacity := subscriber.GetBufferUsage()
			return map[string]int{"buffered": buffered, "capacity": capacity}
		})
	gameHandler := handler.NewGameHandler(gameService, lister, jwtService, originPatterns(cfg.CORS.AllowedOrigins))
	r := router.SetupRouter(cfg, jwtService, gameHandler, checker)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: r,
	}
	go func() {
		logger.Info("HTTP server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	logger.Info("Racko node started", "name", cfg.App.Name)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	subscriber.Stop()
	scheduler.Stop()
	manager.Shutdown(shutdownCtx)
	cancel()

	logger.Info("Racko node stopped")
}

// parseLevel 日志级别
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// originPatterns WebSocket 允许的来源，与 CORS 配置一致
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
