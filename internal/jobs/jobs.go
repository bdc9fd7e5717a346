// Package jobs 提供后台定时任务
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/medroster/medroster/internal/config"
	"github.com/medroster/medroster/internal/handler"
	"github.com/medroster/medroster/internal/metrics"
	"github.com/medroster/medroster/pkg/logger"
	"github.com/medroster/medroster/pkg/model"
	"github.com/medroster/medroster/pkg/schedule"
	"github.com/medroster/medroster/pkg/validator"
)

// Scheduler 定时任务调度器
// 夜间扫描未来数周的排班，把冲突数量写入指标，便于提前发现双占和资质问题
type Scheduler struct {
	cfg      config.JobsConfig
	loader   handler.SnapshotLoader
	resolver *schedule.Resolver
	detector *validator.Detector
	metrics  *metrics.Metrics
	logger   *logger.EngineLogger
	cron     *cron.Cron
}

// NewScheduler 创建定时任务调度器
func NewScheduler(cfg config.JobsConfig, loader handler.SnapshotLoader, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		loader:   loader,
		resolver: schedule.NewResolver(),
		detector: validator.NewDetector(),
		metrics:  m,
		logger:   logger.NewEngineLogger(),
		cron:     cron.New(),
	}
}

// Start 注册并启动所有定时任务
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		logger.Info().Msg("定时任务已禁用")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.ConflictScanSpec, func() {
		s.RunConflictScan(context.Background())
	}); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().
		Str("conflict_scan", s.cfg.ConflictScanSpec).
		Msg("定时任务已启动")
	return nil
}

// Stop 停止调度并等待正在运行的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunConflictScan 扫描未来数周的排班冲突
// 从当前周的周一开始逐周解析，单周失败不中断后续扫描
func (s *Scheduler) RunConflictScan(ctx context.Context) {
	weeks := s.cfg.ScanWeeksAhead
	if weeks <= 0 {
		weeks = 1
	}
	start := time.Now()
	weekStart := model.MondayOf(time.Now().UTC())

	counts := make(map[validator.ConflictKind]int)
	scanned := 0
	for i := 0; i < weeks; i++ {
		week := weekStart.AddDate(0, 0, 7*i)
		conflicts, err := s.scanWeek(ctx, week)
		if err != nil {
			logger.WithError(err).
				Str("week_start", model.FormatDate(week)).
				Msg("冲突扫描失败")
			continue
		}
		scanned++
		for _, c := range conflicts {
			counts[c.Kind]++
			s.logger.ConflictFound(string(c.Kind), c.OccurrenceID, c.DoctorID.String())
		}
	}

	for _, kind := range []validator.ConflictKind{
		validator.ConflictDoubleBooking, validator.ConflictUnavailable, validator.ConflictCompetence,
	} {
		s.metrics.SetConflicts(string(kind), counts[kind])
	}

	logger.Info().
		Int("weeks_scanned", scanned).
		Int("conflicts", counts[validator.ConflictDoubleBooking]+
			counts[validator.ConflictUnavailable]+
			counts[validator.ConflictCompetence]).
		Dur("duration", time.Since(start)).
		Msg("冲突扫描完成")
}

func (s *Scheduler) scanWeek(ctx context.Context, weekStart time.Time) ([]validator.Conflict, error) {
	startStr := model.FormatDate(weekStart)
	endStr := model.FormatDate(weekStart.AddDate(0, 0, 6))

	snap, err := s.loader.LoadSnapshot(ctx, startStr, endStr)
	if err != nil {
		return nil, err
	}
	overrides, err := s.loader.LoadOverrides(ctx, startStr, endStr)
	if err != nil {
		return nil, err
	}
	occurrences, _, err := s.resolver.ResolveWeek(weekStart, snap, overrides, false, nil)
	if err != nil {
		return nil, err
	}
	return s.detector.DetectAll(occurrences, snap.Unavailabilities, snap.Doctors, snap.Activities), nil
}
