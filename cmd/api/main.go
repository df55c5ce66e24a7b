package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"DividendRadar/pkg/api"
	"DividendRadar/pkg/cache"
	"DividendRadar/pkg/collector"
	"DividendRadar/pkg/config"
	"DividendRadar/pkg/database"
	"DividendRadar/pkg/index"
	"DividendRadar/pkg/logging"
	"DividendRadar/pkg/messaging"
	"DividendRadar/pkg/monitor"
	"DividendRadar/pkg/scheduler"
	"DividendRadar/pkg/service"
)

const cacheNamespace = "finance"

func main() {
	cfg, err := config.LoadConfig(config.GetDefaultConfigPath())
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("加载配置失败")
	}

	logger := logging.NewLogger(cfg.Log).With().Str("app", cfg.App.Name).Logger()
	logger.Info().Str("env", cfg.App.Env).Msg("启动API服务...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 关系库
	db, err := connectWithRetry(ctx, logger, "postgres", func() (*database.DB, error) {
		return database.NewPostgres(ctx, cfg.Database.Postgres)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("连接数据库失败")
	}
	defer db.Close()

	// 缓存，启动时不可用只告警，读请求会回退到数据库
	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient, cacheNamespace, cfg.Redis.Timeout)
	if _, err := connectWithRetry(ctx, logger, "redis", func() (*redis.Client, error) {
		return redisClient, redisCache.Ping(ctx)
	}); err != nil {
		logger.Warn().Err(err).Msg("Redis不可用，缓存降级")
	}

	mon := monitor.NewMonitor(5*time.Second, func(component, status, message string) {
		logger.Warn().Str("component", component).Str("status", status).Str("message", message).Msg("组件状态异常")
	})
	mon.RegisterComponent("postgres", db.Ping)
	mon.RegisterComponent("redis", redisCache.Ping)

	// 事件发布是可选的
	var events service.EventPublisher
	if cfg.NATS.Enabled {
		natsClient, err := messaging.NewNATSClient(ctx, cfg.NATS.URL, cfg.NATS.ClientID, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("NATS不可用，不发布公司事件")
		} else {
			defer natsClient.Close()
			events = messaging.NewCompanyEvents(natsClient, logger)
			mon.RegisterComponent("nats", natsClient.Ping)
		}
	}

	// 启动时从库中回填前缀索引
	nameIndex := index.NewPrefixIndex()
	n, err := service.HydrateIndex(ctx, db, nameIndex)
	if err != nil {
		logger.Fatal().Err(err).Msg("回填索引失败")
	}
	logger.Info().Int("names", n).Msg("前缀索引回填完成")

	scraper := collector.NewYahooScraper(cfg.Provider, logger)
	ingestor := service.NewIngestor(db, scraper, nameIndex, events, logger)
	query := service.NewQueryService(db, nameIndex, redisCache, events, service.QueryConfig{
		CacheTTL:          cfg.Redis.TTL,
		AutocompleteLimit: cfg.API.AutocompleteLimit,
	}, logger)

	mon.CheckAll(ctx)

	sched := scheduler.NewScheduler(db, nameIndex, mon, logger)
	if err := sched.Start(cfg.Scheduler); err != nil {
		logger.Fatal().Err(err).Msg("启动调度器失败")
	}
	defer sched.Stop()

	server := api.NewServer(cfg.API, logger)
	server.SetupRoutes(api.NewHandlers(ingestor, query, mon))
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("API服务异常退出")
	}
}

// connectWithRetry 启动阶段按指数退避重试连接外部依赖
func connectWithRetry[T any](ctx context.Context, logger zerolog.Logger, name string, connect func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute

	return backoff.RetryNotifyWithData(connect, backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			logger.Warn().Err(err).Str("target", name).Dur("retry_in", wait).Msg("连接失败，稍后重试")
		})
}
