// Package logging 基于 zerolog 的结构化日志
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"DividendRadar/pkg/config"
)

type ctxKey struct{}

// NewLogger 按配置创建日志器
func NewLogger(cfg config.LogConfig) zerolog.Logger {
	var writers []io.Writer

	// 控制台输出
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// 滚动文件输出
	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithLogger 把日志器放入 context
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext 取出 context 中的日志器，没有时返回 fallback
func FromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return fallback
}

// WithTicker 附加 ticker 字段
func WithTicker(logger zerolog.Logger, ticker string) zerolog.Logger {
	return logger.With().Str("ticker", ticker).Logger()
}

// WithComponent 附加组件名
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
