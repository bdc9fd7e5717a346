// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/medroster/medroster/internal/config"
	"github.com/medroster/medroster/internal/metrics"
	"github.com/medroster/medroster/pkg/availability"
	"github.com/medroster/medroster/pkg/errors"
	"github.com/medroster/medroster/pkg/model"
	"github.com/medroster/medroster/pkg/schedule"
	"github.com/medroster/medroster/pkg/stats"
	"github.com/medroster/medroster/pkg/swap"
	"github.com/medroster/medroster/pkg/validator"
)

// SnapshotLoader 快照装载接口
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, startDate, endDate string) (*schedule.Snapshot, error)
	LoadOverrides(ctx context.Context, startDate, endDate string) (model.OverrideMap, error)
}

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	loader   SnapshotLoader
	resolver *schedule.Resolver
	replayer *stats.Replayer
	detector *validator.Detector
	ranker   *swap.Ranker
	metrics  *metrics.Metrics
	engine   config.EngineConfig
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(loader SnapshotLoader, m *metrics.Metrics, engine config.EngineConfig) *ScheduleHandler {
	return &ScheduleHandler{
		loader:   loader,
		resolver: schedule.NewResolver(),
		replayer: stats.NewReplayer(),
		detector: validator.NewDetector(),
		ranker:   swap.NewRanker(engine.Swap),
		metrics:  m,
		engine:   engine,
	}
}

// WeekRequest 周视图请求
type WeekRequest struct {
	WeekStart string `json:"week_start"` // YYYY-MM-DD，必须是周一
	AutoFill  *bool  `json:"auto_fill,omitempty"`
}

// WeekResponse 周视图响应
type WeekResponse struct {
	WeekStart         string              `json:"week_start"`
	Occurrences       []*model.Occurrence `json:"occurrences"`
	RCPNeedsException []string            `json:"rcp_needs_exception,omitempty"`
	Duration          string              `json:"duration"`
}

// Week 解析一周排班
func (h *ScheduleHandler) Week(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	start := time.Now()

	var req WeekRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	weekStart, err := model.ParseDate(req.WeekStart)
	if err != nil {
		respondError(w, errors.InvalidInput("week_start", "日期格式应为YYYY-MM-DD"))
		return
	}

	autoFill := h.engine.AutoFill
	if req.AutoFill != nil {
		autoFill = *req.AutoFill
	}

	occurrences, snap, appErr := h.resolveWeek(r.Context(), weekStart, autoFill)
	h.metrics.ObserveResolve("week", appErr, time.Since(start))
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var pending []string
	for _, occ := range schedule.RCPNeedingException(occurrences, snap.Holidays) {
		pending = append(pending, occ.ID)
	}

	respondJSON(w, http.StatusOK, WeekResponse{
		WeekStart:         model.FormatDate(weekStart),
		Occurrences:       occurrences,
		RCPNeedsException: pending,
		Duration:          time.Since(start).String(),
	})
}

// MonthRequest 月视图请求
type MonthRequest struct {
	GridStart string `json:"grid_start"` // 月历网格首日，必须是周一
}

// MonthResponse 月视图响应
type MonthResponse struct {
	GridStart   string              `json:"grid_start"`
	Occurrences []*model.Occurrence `json:"occurrences"`
	Duration    string              `json:"duration"`
}

// Month 解析一个月历网格的排班（只读，不自动填充）
func (h *ScheduleHandler) Month(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	start := time.Now()

	var req MonthRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	gridStart, err := model.ParseDate(req.GridStart)
	if err != nil {
		respondError(w, errors.InvalidInput("grid_start", "日期格式应为YYYY-MM-DD"))
		return
	}

	// 月历最长覆盖6周
	startStr := model.FormatDate(gridStart)
	endStr := model.FormatDate(gridStart.AddDate(0, 0, 6*7-1))
	snap, loadErr := h.loader.LoadSnapshot(r.Context(), startStr, endStr)
	if loadErr != nil {
		respondError(w, loadErr)
		return
	}
	overrides, loadErr := h.loader.LoadOverrides(r.Context(), startStr, endStr)
	if loadErr != nil {
		respondError(w, loadErr)
		return
	}

	occurrences, _, resolveErr := h.resolver.ResolveMonth(gridStart, snap, overrides, nil)
	h.metrics.ObserveResolve("month", resolveErr, time.Since(start))
	if resolveErr != nil {
		respondError(w, resolveErr)
		return
	}

	respondJSON(w, http.StatusOK, MonthResponse{
		GridStart:   startStr,
		Occurrences: occurrences,
		Duration:    time.Since(start).String(),
	})
}

// ConflictsRequest 冲突检测请求
type ConflictsRequest struct {
	WeekStart string `json:"week_start"`
}

// ConflictsResponse 冲突检测响应
type ConflictsResponse struct {
	WeekStart string               `json:"week_start"`
	Conflicts []validator.Conflict `json:"conflicts"`
}

// Conflicts 检测一周排班的冲突
func (h *ScheduleHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req ConflictsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	weekStart, err := model.ParseDate(req.WeekStart)
	if err != nil {
		respondError(w, errors.InvalidInput("week_start", "日期格式应为YYYY-MM-DD"))
		return
	}

	occurrences, snap, appErr := h.resolveWeek(r.Context(), weekStart, h.engine.AutoFill)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	conflicts := h.detector.DetectAll(occurrences, snap.Unavailabilities, snap.Doctors, snap.Activities)
	counts := make(map[validator.ConflictKind]int)
	for _, c := range conflicts {
		counts[c.Kind]++
	}
	for _, kind := range []validator.ConflictKind{
		validator.ConflictDoubleBooking, validator.ConflictUnavailable, validator.ConflictCompetence,
	} {
		h.metrics.SetConflicts(string(kind), counts[kind])
	}

	respondJSON(w, http.StatusOK, ConflictsResponse{
		WeekStart: model.FormatDate(weekStart),
		Conflicts: conflicts,
	})
}

// SuggestionsRequest 替班建议请求
type SuggestionsRequest struct {
	OccurrenceID      string `json:"occurrence_id"`
	ReplacedDoctorID  string `json:"replaced_doctor_id,omitempty"`
	RequiredSpecialty string `json:"required_specialty,omitempty"`
	Max               int    `json:"max,omitempty"`
}

// SuggestionsResponse 替班建议响应
type SuggestionsResponse struct {
	OccurrenceID string            `json:"occurrence_id"`
	Suggestions  []swap.Suggestion `json:"suggestions"`
}

// Suggestions 为场次推荐替班候选人
// 候选池先经过可用性过滤，再按公平性、专长和轮换评分排序；
// 没有候选人时返回空列表而不是错误
func (h *ScheduleHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req SuggestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	occID, err := model.ParseOccurrenceID(req.OccurrenceID)
	if err != nil {
		respondError(w, err)
		return
	}
	canonical, _ := model.ParseDate(occID.CanonicalDate)
	weekStart := model.MondayOf(canonical)

	occurrences, snap, appErr := h.resolveWeek(r.Context(), weekStart, h.engine.AutoFill)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var target *model.Occurrence
	for _, occ := range occurrences {
		if occ.ID == req.OccurrenceID {
			target = occ
			break
		}
	}
	if target == nil {
		respondError(w, errors.NotFound("场次", req.OccurrenceID))
		return
	}

	filterReq := availability.Request{
		Date:                target.Date,
		Weekday:             target.Weekday,
		Period:              target.Period,
		SlotType:            target.SlotType,
		ActivityID:          target.ActivityID,
		ExcludeOccurrenceID: target.ID,
	}

	var replaced *uuid.UUID
	var candidates []*model.Doctor
	if req.ReplacedDoctorID != "" {
		id, parseErr := uuid.Parse(req.ReplacedDoctorID)
		if parseErr != nil {
			respondError(w, errors.InvalidInput("replaced_doctor_id", "应为UUID"))
			return
		}
		replaced = &id
		candidates = availability.FilterForReplacement(filterReq, id, snap.Doctors, snap.Unavailabilities, occurrences)
	} else {
		candidates = availability.Filter(filterReq, snap.Doctors, snap.Unavailabilities, occurrences)
	}

	ledger, appErr2 := h.ledgerBefore(r.Context(), weekStart)
	if appErr2 != nil {
		respondError(w, appErr2)
		return
	}

	suggestions := h.ranker.Rank(&swap.Request{
		Occurrence:        target,
		Replaced:          replaced,
		Candidates:        candidates,
		Ledger:            ledger,
		Activity:          snap.GetActivity(target.ActivityID),
		RequiredSpecialty: req.RequiredSpecialty,
		PreviousAssignees: h.previousAssignees(r.Context(), weekStart),
		Max:               req.Max,
	})

	respondJSON(w, http.StatusOK, SuggestionsResponse{
		OccurrenceID: req.OccurrenceID,
		Suggestions:  suggestions,
	})
}

// resolveWeek 装载快照和覆盖并解析一周
// 自动填充使用此前历史窗口回放出的公平性台账
func (h *ScheduleHandler) resolveWeek(ctx context.Context, weekStart time.Time, autoFill bool) ([]*model.Occurrence, *schedule.Snapshot, error) {
	startStr := model.FormatDate(weekStart)
	endStr := model.FormatDate(weekStart.AddDate(0, 0, 6))

	snap, err := h.loader.LoadSnapshot(ctx, startStr, endStr)
	if err != nil {
		return nil, nil, err
	}
	overrides, err := h.loader.LoadOverrides(ctx, startStr, endStr)
	if err != nil {
		return nil, nil, err
	}

	var ledger model.EquityLedger
	if autoFill {
		ledger, err = h.ledgerBefore(ctx, weekStart)
		if err != nil {
			return nil, nil, err
		}
	}

	occurrences, filled, err := h.resolver.ResolveWeek(weekStart, snap, overrides, autoFill, ledger)
	if err != nil {
		return nil, nil, err
	}
	h.metrics.AddAutoFilled(filled)
	return occurrences, snap, nil
}

// ledgerBefore 回放目标周之前的历史窗口得到台账
func (h *ScheduleHandler) ledgerBefore(ctx context.Context, weekStart time.Time) (model.EquityLedger, error) {
	weeks := h.engine.ReplayWeeks
	if weeks <= 0 {
		return model.NewEquityLedger(), nil
	}

	historyStart := weekStart.AddDate(0, 0, -7*weeks)
	historyEnd := weekStart.AddDate(0, 0, -1)
	startStr := model.FormatDate(historyStart)
	endStr := model.FormatDate(historyEnd)

	snap, err := h.loader.LoadSnapshot(ctx, startStr, endStr)
	if err != nil {
		return nil, err
	}
	overrides, err := h.loader.LoadOverrides(ctx, startStr, endStr)
	if err != nil {
		return nil, err
	}

	replayStart := time.Now()
	ledger, err := h.replayer.ReplayLedger(historyStart, historyEnd, snap, overrides)
	if err != nil {
		return nil, err
	}
	h.metrics.ObserveReplay(time.Since(replayStart))
	return ledger, nil
}

// previousAssignees 收集此前数周内各规则的实际承担者（轮换评分用）
// 回溯窗口由替班策略决定；回溯失败只影响轮换分量，不阻塞建议
func (h *ScheduleHandler) previousAssignees(ctx context.Context, weekStart time.Time) map[string][]uuid.UUID {
	weeks := h.engine.Swap.RotationWeeks
	if weeks <= 0 {
		return nil
	}

	out := make(map[string][]uuid.UUID)
	for i := 1; i <= weeks; i++ {
		prior := weekStart.AddDate(0, 0, -7*i)
		startStr := model.FormatDate(prior)
		endStr := model.FormatDate(prior.AddDate(0, 0, 6))

		snap, err := h.loader.LoadSnapshot(ctx, startStr, endStr)
		if err != nil {
			continue
		}
		overrides, err := h.loader.LoadOverrides(ctx, startStr, endStr)
		if err != nil {
			continue
		}
		occurrences, _, err := h.resolver.ResolveWeek(prior, snap, overrides, false, nil)
		if err != nil {
			continue
		}
		for _, occ := range occurrences {
			if occ.Closed || occ.DoctorID == nil {
				continue
			}
			out[occ.RuleID] = append(out[occ.RuleID], *occ.DoctorID)
		}
	}
	return out
}
