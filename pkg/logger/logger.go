// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `koanf:"level" json:"level"`
	Format     string `koanf:"format" json:"format"` // json/console
	Output     string `koanf:"output" json:"output"` // stdout/stderr/file
	FilePath   string `koanf:"file_path" json:"file_path,omitempty"`
	TimeFormat string `koanf:"time_format" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器（未显式初始化时使用默认配置）
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// EngineLogger 排班引擎专用日志器
type EngineLogger struct {
	base *zerolog.Logger
}

// NewEngineLogger 创建排班引擎日志器
func NewEngineLogger() *EngineLogger {
	l := Get().With().Str("component", "engine").Logger()
	return &EngineLogger{base: &l}
}

// StartResolve 记录周解析开始
func (l *EngineLogger) StartResolve(weekStart string, slots, rcps int) {
	l.base.Debug().
		Str("week_start", weekStart).
		Int("template_slots", slots).
		Int("rcp_definitions", rcps).
		Msg("开始解析周排班")
}

// ResolveComplete 记录周解析完成
func (l *EngineLogger) ResolveComplete(weekStart string, occurrences, filled int, duration time.Duration) {
	l.base.Info().
		Str("week_start", weekStart).
		Int("occurrences", occurrences).
		Int("auto_filled", filled).
		Dur("duration", duration).
		Msg("周排班解析完成")
}

// ConflictFound 记录冲突发现
func (l *EngineLogger) ConflictFound(kind, occurrenceID, doctorID string) {
	l.base.Warn().
		Str("kind", kind).
		Str("occurrence_id", occurrenceID).
		Str("doctor_id", doctorID).
		Msg("检测到排班冲突")
}

// ReplayComplete 记录台账回放完成
func (l *EngineLogger) ReplayComplete(start, end string, weeks int, duration time.Duration) {
	l.base.Info().
		Str("start", start).
		Str("end", end).
		Int("weeks", weeks).
		Dur("duration", duration).
		Msg("公平性台账回放完成")
}

// StaleReference 记录失效引用告警
func (l *EngineLogger) StaleReference(kind, id string) {
	l.base.Warn().
		Str("kind", kind).
		Str("id", id).
		Msg("引用已失效，按未设置处理")
}
