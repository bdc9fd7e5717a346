// Package config 提供配置管理
// 配置来源优先级：环境变量 > 配置文件 > 内置默认值
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/medroster/medroster/pkg/errors"
	"github.com/medroster/medroster/pkg/logger"
	"github.com/medroster/medroster/pkg/swap"
)

// envPrefix 环境变量前缀，双下划线表示层级，如 MEDROSTER_DATABASE__HOST
const envPrefix = "MEDROSTER_"

// Config 应用配置
type Config struct {
	App      AppConfig      `koanf:"app"`
	Database DatabaseConfig `koanf:"database"`
	Engine   EngineConfig   `koanf:"engine"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Jobs     JobsConfig     `koanf:"jobs"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `koanf:"name"`
	Env       string `koanf:"env"`
	Port      int    `koanf:"port"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Name            string        `koanf:"name"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// EngineConfig 排班引擎配置
type EngineConfig struct {
	AutoFill    bool        `koanf:"auto_fill"`    // 周视图默认自动填充
	ReplayWeeks int         `koanf:"replay_weeks"` // 自动填充前回放的历史周数
	Swap        swap.Policy `koanf:"swap"`         // 替班评分策略
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// JobsConfig 定时任务配置
type JobsConfig struct {
	Enabled          bool   `koanf:"enabled"`
	ConflictScanSpec string `koanf:"conflict_scan_spec"`  // cron表达式
	ScanWeeksAhead   int    `koanf:"conflict_scan_weeks"` // 向前扫描的周数
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "medroster",
			Env:       "development",
			Port:      7080,
			LogLevel:  "info",
			LogFormat: "console",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "medroster",
			User:            "medroster",
			Password:        "medroster123",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Engine: EngineConfig{
			AutoFill:    true,
			ReplayWeeks: 26,
			Swap:        swap.DefaultPolicy(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Jobs: JobsConfig{
			Enabled:          true,
			ConflictScanSpec: "0 2 * * *",
			ScanWeeksAhead:   4,
		},
	}
}

// Load 加载配置
// path 为空时跳过文件，只用默认值和环境变量
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, errors.InvalidInput("config", fmt.Sprintf("不支持的配置格式: %s", path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "读取配置文件失败")
		}
	}

	if err := k.Load(env.Provider(envPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "读取环境变量失败")
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析配置失败")
	}
	return cfg, nil
}

// LoggerConfig 转换为日志配置
func (c *Config) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.App.LogLevel
	lc.Format = c.App.LogFormat
	return lc
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
