package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"

	"DividendRadar/pkg/cache"
	"DividendRadar/pkg/collector"
	"DividendRadar/pkg/config"
	"DividendRadar/pkg/database"
	"DividendRadar/pkg/index"
	"DividendRadar/pkg/logging"
	"DividendRadar/pkg/messaging"
	"DividendRadar/pkg/service"
)

// App 命令共享的依赖
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	DB       *database.DB
	Index    *index.PrefixIndex
	Ingestor *service.Ingestor
	Query    *service.QueryService

	closers []func()
}

type rootFlags struct {
	configPath string
	sqlitePath string
	verbose    bool
}

// open 按参数连接存储并组装服务。
// 指定 --sqlite 时使用本地文件库且不启用缓存，否则连接配置中的 Postgres 和 Redis。
func open(ctx context.Context, flags *rootFlags) (*App, error) {
	path := flags.configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if flags.verbose {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Console = true
	cfg.Log.File = false
	logger := logging.NewLogger(cfg.Log)

	app := &App{Config: cfg, Logger: logger, Index: index.NewPrefixIndex()}

	var c service.Cache = cache.Nop{}
	if flags.sqlitePath != "" {
		gormDB, err := database.Open(sqlite.Open(filepath.Clean(flags.sqlitePath)), false)
		if err != nil {
			return nil, err
		}
		if app.DB, err = database.New(gormDB); err != nil {
			return nil, err
		}
	} else {
		if app.DB, err = database.NewPostgres(ctx, cfg.Database.Postgres); err != nil {
			return nil, err
		}
		client := cache.NewRedisClient(cfg.Redis)
		app.closers = append(app.closers, func() { client.Close() })
		c = cache.NewRedisCache(client, "finance", cfg.Redis.Timeout)
	}
	app.closers = append(app.closers, func() { app.DB.Close() })

	var events service.EventPublisher
	if cfg.NATS.Enabled && flags.sqlitePath == "" {
		natsClient, err := messaging.NewNATSClient(ctx, cfg.NATS.URL, cfg.NATS.ClientID, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("NATS不可用，不发布公司事件")
		} else {
			app.closers = append(app.closers, func() { natsClient.Close() })
			events = messaging.NewCompanyEvents(natsClient, logger)
		}
	}

	if _, err := service.HydrateIndex(ctx, app.DB, app.Index); err != nil {
		app.Close()
		return nil, err
	}

	scraper := collector.NewYahooScraper(cfg.Provider, logger)
	app.Ingestor = service.NewIngestor(app.DB, scraper, app.Index, events, logger)
	app.Query = service.NewQueryService(app.DB, app.Index, c, events, service.QueryConfig{
		CacheTTL:          cfg.Redis.TTL,
		AutocompleteLimit: cfg.API.AutocompleteLimit,
	}, logger)

	return app, nil
}

// Close 按打开的逆序释放资源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withApp 为命令打开依赖并在结束后关闭
func withApp(flags *rootFlags, run func(ctx context.Context, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := open(ctx, flags)
		if err != nil {
			return fmt.Errorf("初始化失败: %w", err)
		}
		defer app.Close()

		return run(ctx, app, args)
	}
}
