// Package logger 提供进程级的结构化日志
//
// 基于 log/slog，支持 text/json 两种格式。首次调用 [L] 时如未显式
// [Init]，使用默认配置（info 级别，text 格式，输出到 stderr）。
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置
// ═══════════════════════════════════════════════════════════════════════════

// Config 日志配置
type Config struct {
	// Level 日志级别：debug / info / warn / error，默认 info
	Level string `mapstructure:"level"`

	// Format 输出格式：text / json，默认 text
	Format string `mapstructure:"format"`

	// Output 输出目标：stdout / stderr / 文件路径，默认 stderr
	Output string `mapstructure:"output"`
}

var (
	defaultLogger *slog.Logger
	once          sync.Once
	closer        io.Closer
	initErr       error
)

// ═══════════════════════════════════════════════════════════════════════════
// 初始化
// ═══════════════════════════════════════════════════════════════════════════

// Init 初始化全局 logger，只生效一次
func Init(cfg Config) error {
	once.Do(func() {
		writer, c, err := openWriter(cfg.Output)
		if err != nil {
			initErr = err
			return
		}
		closer = c
		defaultLogger = slog.New(NewHandler(writer, cfg))
	})
	if initErr != nil {
		return initErr
	}
	if defaultLogger == nil {
		return errors.New("logger already initialised")
	}
	return nil
}

// NewHandler 按配置构建 slog.Handler
//
// 测试中可配合 bytes.Buffer 使用，捕获日志输出。
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func openWriter(path string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(path) {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		return file, file, nil
	}
}

// ParseLevel 解析日志级别字符串，未知值回落到 info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 访问
// ═══════════════════════════════════════════════════════════════════════════

// L 返回全局 logger
func L() *slog.Logger {
	if defaultLogger == nil {
		_ = Init(Config{})
	}
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

// Named 返回带组件名的子 logger
func Named(name string) *slog.Logger {
	return L().With("component", name)
}

// Discard 返回丢弃所有输出的 logger
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Close 关闭文件输出
func Close() error {
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}
