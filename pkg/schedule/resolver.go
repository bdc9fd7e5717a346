// Package schedule 提供周模板与RCP规则到具体场次的解析，以及公平性自动填充
package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/errors"
	"github.com/medroster/medroster/pkg/logger"
	"github.com/medroster/medroster/pkg/model"
)

// Resolver 周期规则解析器
// 把静态周模板和RCP周期规则展开为指定周的具体场次，
// 无副作用：同样的输入总是产生逐场次相同（含顺序）的输出
type Resolver struct {
	logger *logger.EngineLogger
}

// NewResolver 创建解析器
func NewResolver() *Resolver {
	return &Resolver{
		logger: logger.NewEngineLogger(),
	}
}

// ResolveWeek 解析一周的全部场次，并返回自动填充的场次数量
// weekStart 必须是周一；autoFill 为真时对未分配的活动场次按公平性得分自动填充
func (r *Resolver) ResolveWeek(
	weekStart time.Time,
	snap *Snapshot,
	overrides model.OverrideMap,
	autoFill bool,
	ledger model.EquityLedger,
) ([]*model.Occurrence, int, error) {
	start := time.Now()
	if weekStart.Weekday() != time.Monday {
		return nil, 0, errors.WeekStartNotMonday(model.FormatDate(weekStart))
	}
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)
	r.logger.StartResolve(model.FormatDate(weekStart), len(snap.TemplateSlots), len(snap.RCPDefinitions))

	var occurrences []*model.Occurrence

	// 逐日展开模板槽位和RCP规则
	for day := 0; day < 7; day++ {
		date := weekStart.AddDate(0, 0, day)
		dateStr := model.FormatDate(date)

		for _, slot := range snap.TemplateSlots {
			if !slot.MatchesDate(date) {
				continue
			}
			occurrences = append(occurrences, r.buildSlotOccurrence(slot, date, dateStr, snap))
		}

		for _, rcp := range snap.RCPDefinitions {
			if !rcp.MatchesDate(date) {
				continue
			}
			occ := r.buildRCPOccurrence(rcp, date, dateStr, snap)
			if occ != nil {
				occurrences = append(occurrences, occ)
			}
		}
	}

	// 覆盖永远优先于生成结果和自动填充
	r.applyOverrides(occurrences, snap, overrides)

	filled := 0
	if autoFill {
		filled = r.autoFill(occurrences, snap, ledger)
	}

	sortOccurrences(occurrences)

	r.logger.ResolveComplete(model.FormatDate(weekStart), len(occurrences), filled, time.Since(start))
	return occurrences, filled, nil
}

// ResolveMonth 解析一个月历网格的全部场次（逐周解析）
// gridStart 必须是周一；目标月份取首周周日所在的月份，
// 即网格从月初前的周一开始时，首周包含该月1号。
// ledger 为nil时不自动填充；非nil时每周以该台账为起点填充
func (r *Resolver) ResolveMonth(
	gridStart time.Time,
	snap *Snapshot,
	overrides model.OverrideMap,
	ledger model.EquityLedger,
) ([]*model.Occurrence, int, error) {
	if gridStart.Weekday() != time.Monday {
		return nil, 0, errors.WeekStartNotMonday(model.FormatDate(gridStart))
	}
	gridStart = time.Date(gridStart.Year(), gridStart.Month(), gridStart.Day(), 0, 0, 0, 0, time.UTC)

	firstSunday := gridStart.AddDate(0, 0, 6)
	monthEnd := time.Date(firstSunday.Year(), firstSunday.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1)

	var occurrences []*model.Occurrence
	filled := 0
	for weekStart := gridStart; !weekStart.After(monthEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		weekOccs, weekFilled, err := r.ResolveWeek(weekStart, snap, overrides, ledger != nil, ledger)
		if err != nil {
			return nil, 0, err
		}
		occurrences = append(occurrences, weekOccs...)
		filled += weekFilled
	}
	return occurrences, filled, nil
}

// RCPNeedingException 返回落在节假日上但缺少例外处理的RCP场次
// 只读派生查询，供面板展示，不在生成阶段做任何变更
func RCPNeedingException(occurrences []*model.Occurrence, holidays model.HolidayCalendar) []*model.Occurrence {
	var out []*model.Occurrence
	for _, occ := range occurrences {
		if !occ.IsRCP || occ.Closed {
			continue
		}
		if _, ok := holidays.IsHoliday(occ.Date); ok {
			out = append(out, occ)
		}
	}
	return out
}

// buildSlotOccurrence 从模板槽位生成场次
// 落在节假日的非RCP场次关闭展示，不做任何自动分配
func (r *Resolver) buildSlotOccurrence(slot *model.TemplateSlot, date time.Time, dateStr string, snap *Snapshot) *model.Occurrence {
	occ := &model.Occurrence{
		ID:            model.OccurrenceID{RuleID: slot.ID, CanonicalDate: dateStr}.Encode(),
		RuleID:        slot.ID,
		CanonicalDate: dateStr,
		Date:          dateStr,
		Weekday:       date.Weekday(),
		Period:        slot.Period,
		Location:      slot.Location,
		SlotType:      slot.SlotType,
		ActivityID:    slot.ActivityID,
	}

	if name, ok := snap.Holidays.IsHoliday(dateStr); ok {
		occ.Closed = true
		occ.HolidayName = name
		return occ
	}

	if slot.DefaultDoctorID != nil {
		if snap.GetDoctor(*slot.DefaultDoctorID) != nil {
			id := *slot.DefaultDoctorID
			occ.DoctorID = &id
		} else {
			r.logger.StaleReference("doctor", slot.DefaultDoctorID.String())
		}
	}
	occ.SecondaryDoctorIDs = r.knownDoctors(slot.SecondaryDoctorIDs, snap)
	return occ
}

// buildRCPOccurrence 从RCP定义生成场次并应用匹配的例外
// 取消的场次返回nil；被移动的场次保留原标识但携带新的生效日期/时段；
// RCP落在节假日不被抑制，由 RCPNeedingException 查询出来等待例外处理
func (r *Resolver) buildRCPOccurrence(rcp *model.RCPDefinition, date time.Time, dateStr string, snap *Snapshot) *model.Occurrence {
	occ := &model.Occurrence{
		ID:            model.OccurrenceID{RuleID: rcp.ID, CanonicalDate: dateStr}.Encode(),
		RuleID:        rcp.ID,
		CanonicalDate: dateStr,
		Date:          dateStr,
		Weekday:       date.Weekday(),
		Period:        rcp.Period,
		Location:      rcp.Location,
		IsRCP:         true,
		Unconfirmed:   true,
	}
	r.assignParticipants(occ, rcp.ParticipantIDs, snap)

	if exc := snap.GetException(rcp.ID, dateStr); exc != nil {
		if exc.Cancelled {
			return nil
		}
		if exc.NewDate != "" {
			occ.Date = exc.NewDate
			if moved, err := model.ParseDate(exc.NewDate); err == nil {
				occ.Weekday = moved.Weekday()
			}
		}
		if exc.NewPeriod != "" {
			occ.Period = exc.NewPeriod
		}
		if exc.ParticipantIDs != nil {
			r.assignParticipants(occ, exc.ParticipantIDs, snap)
			occ.Unconfirmed = false
		}
	}

	if name, ok := snap.Holidays.IsHoliday(occ.Date); ok {
		occ.HolidayName = name
	}
	return occ
}

// assignParticipants 把参与者列表写入场次（首位为主排班医生）
func (r *Resolver) assignParticipants(occ *model.Occurrence, participants []uuid.UUID, snap *Snapshot) {
	known := r.knownDoctors(participants, snap)
	occ.DoctorID = nil
	occ.SecondaryDoctorIDs = nil
	if len(known) == 0 {
		return
	}
	lead := known[0]
	occ.DoctorID = &lead
	occ.SecondaryDoctorIDs = known[1:]
}

// knownDoctors 过滤掉快照中已不存在的医生引用
func (r *Resolver) knownDoctors(ids []uuid.UUID, snap *Snapshot) []uuid.UUID {
	var known []uuid.UUID
	for _, id := range ids {
		if snap.GetDoctor(id) == nil {
			r.logger.StaleReference("doctor", id.String())
			continue
		}
		known = append(known, id)
	}
	return known
}

// applyOverrides 在生成结果之上应用覆盖决定
// 指向已失效医生的覆盖按unset处理并告警，从不报错
func (r *Resolver) applyOverrides(occurrences []*model.Occurrence, snap *Snapshot, overrides model.OverrideMap) {
	for _, occ := range occurrences {
		ov := overrides.Get(occ.ID)
		switch ov.Kind {
		case model.OverrideClosed:
			occ.Closed = true
			occ.DoctorID = nil
			occ.Locked = true
		case model.OverrideManual, model.OverrideAutoLocked:
			if snap.GetDoctor(ov.DoctorID) == nil {
				r.logger.StaleReference("doctor", ov.DoctorID.String())
				continue
			}
			id := ov.DoctorID
			occ.DoctorID = &id
			occ.Locked = true
			occ.Closed = false
		}
	}
}

// sortOccurrences 确定性排序：日期、时段、规则ID
func sortOccurrences(occurrences []*model.Occurrence) {
	sort.Slice(occurrences, func(i, j int) bool {
		a, b := occurrences[i], occurrences[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Period.Rank() != b.Period.Rank() {
			return a.Period.Rank() < b.Period.Rank()
		}
		return a.RuleID < b.RuleID
	})
}
