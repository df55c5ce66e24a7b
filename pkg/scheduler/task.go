package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"DividendRadar/pkg/config"
	"DividendRadar/pkg/monitor"
	"DividendRadar/pkg/service"
)

const jobTimeout = 30 * time.Second

// Scheduler 任务调度器
type Scheduler struct {
	cron    *cron.Cron
	source  service.NameSource
	index   service.NameIndex
	monitor *monitor.Monitor
	logger  zerolog.Logger
}

// NewScheduler 创建任务调度器
func NewScheduler(source service.NameSource, index service.NameIndex, mon *monitor.Monitor, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		source:  source,
		index:   index,
		monitor: mon,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start 注册任务并启动调度器
func (s *Scheduler) Start(cfg config.SchedulerConfig) error {
	// 定时用库中数据重建索引，修复双写不一致
	if _, err := s.cron.AddFunc(cfg.ReindexSpec, s.reconcileIndex); err != nil {
		return fmt.Errorf("注册索引对账任务失败: %w", err)
	}

	// 组件健康检查
	if _, err := s.cron.AddFunc(cfg.HealthCheckSpec, s.checkHealth); err != nil {
		return fmt.Errorf("注册健康检查任务失败: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("reindex", cfg.ReindexSpec).
		Str("health", cfg.HealthCheckSpec).
		Msg("调度器已启动")
	return nil
}

// Stop 停止调度器并等待运行中的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reconcileIndex() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := service.HydrateIndex(ctx, s.source, s.index)
	if errors.Is(err, service.ErrIndexBusy) {
		s.logger.Warn().Msg("索引写入频繁，跳过本轮对账")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("索引对账失败")
		return
	}
	s.logger.Debug().Int("names", n).Msg("索引对账完成")
}

func (s *Scheduler) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.monitor.CheckAll(ctx)
}
