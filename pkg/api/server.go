package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"DividendRadar/pkg/config"
)

const shutdownTimeout = 5 * time.Second

// Server API服务器
type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer 创建新的API服务器
func NewServer(cfg config.APIConfig, logger zerolog.Logger) *Server {
	router := gin.New()

	// 设置中间件
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		router: router,
		srv:    srv,
		logger: logger,
	}
}

// SetupRoutes 设置路由
func (s *Server) SetupRoutes(handlers *Handlers) {
	// 健康检查
	s.router.GET("/health", handlers.HealthCheck)
	s.router.GET("/ready", handlers.ReadinessCheck)

	company := s.router.Group("/company")
	{
		company.POST("", handlers.IngestCompany)
		company.GET("", handlers.ListCompanies)
		company.GET("/autocomplete", handlers.Autocomplete)
		company.GET("/search", handlers.SearchNames)
		company.DELETE("/:ticker", handlers.DeleteCompany)
	}

	s.router.GET("/finance/dividend/:companyName", handlers.GetDividends)
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("API服务器启动")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}

	s.logger.Info().Msg("服务器已关闭")
	return nil
}
