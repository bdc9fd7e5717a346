// Package stats 提供公平性台账回放与统计分析
package stats

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/medroster/medroster/pkg/errors"
	"github.com/medroster/medroster/pkg/logger"
	"github.com/medroster/medroster/pkg/model"
	"github.com/medroster/medroster/pkg/schedule"
)

// Replayer 历史回放器
// 不存储累计值，而是在任意日期窗口上确定性地重放生成逻辑来重建台账，
// 从而与事后补录的例外和覆盖保持一致。重放按周缓存，
// 每个缓存条目携带输入指纹（快照标识+覆盖内容摘要），
// 快照或覆盖变化时对应条目自动重算，跨调用复用无需手工失效
type Replayer struct {
	resolver *schedule.Resolver
	logger   *logger.EngineLogger

	mu    sync.Mutex
	cache map[string]weekEntry // 周一日期 -> 该周场次
}

// weekEntry 带输入指纹的周缓存条目
type weekEntry struct {
	fingerprint string
	occurrences []*model.Occurrence
}

// NewReplayer 创建历史回放器
func NewReplayer() *Replayer {
	return &Replayer{
		resolver: schedule.NewResolver(),
		logger:   logger.NewEngineLogger(),
		cache:    make(map[string]weekEntry),
	}
}

// inputFingerprint 计算重放输入的指纹
// 快照按构建标识区分（快照不可变，规则变化总是产生新快照），
// 覆盖按内容摘要区分（同一映射可能被原地追加条目）
func inputFingerprint(snap *schedule.Snapshot, overrides model.OverrideMap) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%p", snap)

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ov := overrides[k]
		fmt.Fprintf(h, "|%s=%s:%s", k, ov.Kind, ov.DoctorID)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// ReplayLedger 回放指定窗口的公平性台账
// 逐周重新生成（自动填充关闭：历史事实只来自覆盖——手工与自动固定都计入，
// 模板默认医生同样计入），按医生和公平性分组累计；
// 周粒度活动整周只计一分，锚定在该周的首个场次上以避免重复计数。
// 回放幂等：同样的窗口和输入总是得到同样的台账；
// 对半日粒度活动，两个相邻不重叠子窗口的台账之和等于整窗口的台账
func (r *Replayer) ReplayLedger(
	start, end time.Time,
	snap *schedule.Snapshot,
	overrides model.OverrideMap,
) (model.EquityLedger, error) {
	begin := time.Now()
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if endDay.Before(startDay) {
		return nil, errors.InvalidDateRange(model.FormatDate(startDay), model.FormatDate(endDay))
	}

	startStr := model.FormatDate(startDay)
	endStr := model.FormatDate(endDay)

	fingerprint := inputFingerprint(snap, overrides)

	ledger := model.NewEquityLedger()
	weeks := 0
	for weekStart := model.MondayOf(startDay); !weekStart.After(endDay); weekStart = weekStart.AddDate(0, 0, 7) {
		occurrences, err := r.weekOccurrences(weekStart, fingerprint, snap, overrides)
		if err != nil {
			return nil, err
		}
		r.tally(ledger, occurrences, snap, startStr, endStr)
		weeks++
	}

	r.logger.ReplayComplete(startStr, endStr, weeks, time.Since(begin))
	return ledger, nil
}

// weekOccurrences 解析一周场次（带缓存）
// 缓存条目的指纹与当前输入不符时视为过期并重算
func (r *Replayer) weekOccurrences(weekStart time.Time, fingerprint string, snap *schedule.Snapshot, overrides model.OverrideMap) ([]*model.Occurrence, error) {
	key := model.FormatDate(weekStart)

	r.mu.Lock()
	entry, ok := r.cache[key]
	r.mu.Unlock()
	if ok && entry.fingerprint == fingerprint {
		return entry.occurrences, nil
	}

	occurrences, _, err := r.resolver.ResolveWeek(weekStart, snap, overrides, false, nil)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = weekEntry{fingerprint: fingerprint, occurrences: occurrences}
	r.mu.Unlock()
	return occurrences, nil
}

// tally 把一周场次计入台账
// 半日粒度：原始日期落在窗口内的每个匹配场次计一分；
// 周粒度：只在该周锚点场次上计一分（锚点 = 日期、时段、规则ID最小的场次）
func (r *Replayer) tally(
	ledger model.EquityLedger,
	occurrences []*model.Occurrence,
	snap *schedule.Snapshot,
	startStr, endStr string,
) {
	weekAnchors := make(map[string]*model.Occurrence)

	for _, occ := range occurrences {
		if occ.Closed || occ.DoctorID == nil || occ.ActivityID == "" {
			continue
		}
		activity := snap.GetActivity(occ.ActivityID)
		if activity == nil || activity.EquityGroup == "" {
			continue
		}

		switch activity.Granularity {
		case model.GranularityWeek:
			if anchor, ok := weekAnchors[occ.ActivityID]; !ok || occurrenceBefore(occ, anchor) {
				weekAnchors[occ.ActivityID] = occ
			}
		default:
			if occ.CanonicalDate >= startStr && occ.CanonicalDate <= endStr {
				ledger.Add(*occ.DoctorID, activity.EquityGroup, 1)
			}
		}
	}

	var activityIDs []string
	for id := range weekAnchors {
		activityIDs = append(activityIDs, id)
	}
	sort.Strings(activityIDs)
	for _, id := range activityIDs {
		anchor := weekAnchors[id]
		if anchor.CanonicalDate < startStr || anchor.CanonicalDate > endStr {
			continue
		}
		activity := snap.GetActivity(id)
		ledger.Add(*anchor.DoctorID, activity.EquityGroup, 1)
	}
}

// occurrenceBefore 场次排序比较（日期、时段、规则ID）
func occurrenceBefore(a, b *model.Occurrence) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.Period.Rank() != b.Period.Rank() {
		return a.Period.Rank() < b.Period.Rank()
	}
	return a.RuleID < b.RuleID
}
