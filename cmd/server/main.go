// MedRoster 医生排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/medroster/medroster/internal/config"
	"github.com/medroster/medroster/internal/database"
	"github.com/medroster/medroster/internal/handler"
	"github.com/medroster/medroster/internal/jobs"
	"github.com/medroster/medroster/internal/metrics"
	"github.com/medroster/medroster/internal/middleware"
	"github.com/medroster/medroster/internal/repository"
	"github.com/medroster/medroster/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "medroster",
	Short: "MedRoster 医生排班引擎服务",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "配置文件路径（yaml或json）")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env 不存在时忽略，容器环境直接用环境变量
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger.Init(cfg.LoggerConfig())
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("MedRoster 排班引擎启动中")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("初始化监控指标失败: %w", err)
	}

	loader := repository.NewLoader(db)
	scheduleHandler := handler.NewScheduleHandler(loader, m, cfg.Engine)
	equityHandler := handler.NewEquityHandler(loader, m)

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","database":"down"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"medroster"}`))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	// 排班 API
	mux.HandleFunc("/api/v1/schedule/week", scheduleHandler.Week)
	mux.HandleFunc("/api/v1/schedule/month", scheduleHandler.Month)
	mux.HandleFunc("/api/v1/schedule/conflicts", scheduleHandler.Conflicts)
	mux.HandleFunc("/api/v1/schedule/suggestions", scheduleHandler.Suggestions)

	// 可用性与公平性 API
	mux.HandleFunc("/api/v1/availability/filter", scheduleHandler.Filter)
	mux.HandleFunc("/api/v1/equity/replay", equityHandler.Replay)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.App.Port),
		Handler: middleware.Chain(mux,
			middleware.Recovery,
			middleware.RequestID,
			middleware.SecurityHeaders,
			middleware.Logging,
			middleware.Metrics(m),
		),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	scheduler := jobs.NewScheduler(cfg.Jobs, loader, m)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("启动定时任务失败: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.App.Port).Msg("HTTP服务监听中")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		scheduler.Stop()
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("收到退出信号，开始优雅关闭")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭HTTP服务失败: %w", err)
	}

	logger.Info().Msg("服务已退出")
	return nil
}
