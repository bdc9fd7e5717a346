// Package schedule 提供周模板与RCP规则到具体场次的解析，以及公平性自动填充
package schedule

import (
	"sort"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/availability"
	"github.com/medroster/medroster/pkg/model"
)

// autoFill 公平性自动填充
// 对每个活动类型、未关闭、不在节假日、未被覆盖固定、且存在可用医生的场次，
// 选出加权公平性得分最低的医生（得分低表示欠这类工作更多）；
// 同分时按医生ID确定性破平。周粒度活动整周由同一人承担，只解析一次后传播。
// 填充过程中在台账副本上累加计数，使同一周内的多个场次在医生之间摊开
func (r *Resolver) autoFill(occurrences []*model.Occurrence, snap *Snapshot, ledger model.EquityLedger) int {
	work := ledger.Clone()
	filled := 0

	filled += r.fillWeekActivities(occurrences, snap, work)

	for _, occ := range occurrences {
		activity := r.fillableActivity(occ, snap)
		if activity == nil || activity.Granularity != model.GranularityHalfDay {
			continue
		}

		doctorID, ok := r.pickDoctor([]*model.Occurrence{occ}, occurrences, snap, activity, work)
		if !ok {
			continue // 无可用医生：保持未分配，由调用方展示为待处理
		}
		id := doctorID
		occ.DoctorID = &id
		work.Add(doctorID, activity.EquityGroup, 1)
		filled++
	}

	return filled
}

// fillWeekActivities 解析周粒度活动：每周选一次医生并传播到该周全部场次
// 若该活动某场次已被覆盖固定医生，则传播被固定的医生而不重新选择；
// 整周计一分
func (r *Resolver) fillWeekActivities(occurrences []*model.Occurrence, snap *Snapshot, work model.EquityLedger) int {
	groups := make(map[string][]*model.Occurrence)
	var order []string
	for _, occ := range occurrences {
		activity := r.fillableActivity(occ, snap)
		if activity == nil || activity.Granularity != model.GranularityWeek {
			continue
		}
		if _, seen := groups[occ.ActivityID]; !seen {
			order = append(order, occ.ActivityID)
		}
		groups[occ.ActivityID] = append(groups[occ.ActivityID], occ)
	}
	sort.Strings(order)

	filled := 0
	for _, activityID := range order {
		targets := groups[activityID]
		activity := snap.GetActivity(activityID)

		doctorID, ok := r.pinnedWeekDoctor(occurrences, activityID)
		if !ok {
			doctorID, ok = r.pickDoctor(targets, occurrences, snap, activity, work)
			if !ok {
				continue
			}
			work.Add(doctorID, activity.EquityGroup, 1)
		}

		for _, occ := range targets {
			id := doctorID
			occ.DoctorID = &id
			filled++
		}
	}
	return filled
}

// pinnedWeekDoctor 查找周活动中已被覆盖固定的医生
func (r *Resolver) pinnedWeekDoctor(occurrences []*model.Occurrence, activityID string) (uuid.UUID, bool) {
	for _, occ := range occurrences {
		if occ.ActivityID != activityID || occ.Closed {
			continue
		}
		if occ.Locked && occ.DoctorID != nil {
			return *occ.DoctorID, true
		}
	}
	return uuid.Nil, false
}

// fillableActivity 返回场次可自动填充时对应的活动定义
// 已关闭、已固定、已有医生或不挂活动的场次不参与填充；
// 指向未知活动的场次按失效引用告警后跳过
func (r *Resolver) fillableActivity(occ *model.Occurrence, snap *Snapshot) *model.ActivityDefinition {
	if occ.Closed || occ.Locked || occ.HasDoctor() || occ.ActivityID == "" {
		return nil
	}
	activity := snap.GetActivity(occ.ActivityID)
	if activity == nil {
		r.logger.StaleReference("activity", occ.ActivityID)
		return nil
	}
	return activity
}

// pickDoctor 在多个目标场次的可用医生交集中选出公平性得分最低者
func (r *Resolver) pickDoctor(
	targets []*model.Occurrence,
	weekOccurrences []*model.Occurrence,
	snap *Snapshot,
	activity *model.ActivityDefinition,
	work model.EquityLedger,
) (uuid.UUID, bool) {
	candidates := r.eligibleForAll(targets, weekOccurrences, snap)
	if len(candidates) == 0 {
		return uuid.Nil, false
	}

	best := candidates[0]
	bestScore := work.WeightedScore(best.ID, activity.EquityGroup, best.EmploymentFactor)
	for _, doc := range candidates[1:] {
		score := work.WeightedScore(doc.ID, activity.EquityGroup, doc.EmploymentFactor)
		// 候选已按医生ID升序，同分保留先出现者即为确定性破平
		if score < bestScore {
			best = doc
			bestScore = score
		}
	}
	return best.ID, true
}

// eligibleForAll 返回对全部目标场次都可用的医生（按医生ID排序）
func (r *Resolver) eligibleForAll(targets []*model.Occurrence, weekOccurrences []*model.Occurrence, snap *Snapshot) []*model.Doctor {
	if len(targets) == 0 {
		return nil
	}

	count := make(map[uuid.UUID]int)
	byID := make(map[uuid.UUID]*model.Doctor)
	for _, occ := range targets {
		eligible := availability.Filter(availability.Request{
			Date:                occ.Date,
			Weekday:             occ.Weekday,
			Period:              occ.Period,
			SlotType:            occ.SlotType,
			ActivityID:          occ.ActivityID,
			ExcludeOccurrenceID: occ.ID,
		}, snap.Doctors, snap.Unavailabilities, weekOccurrences)
		for _, doc := range eligible {
			count[doc.ID]++
			byID[doc.ID] = doc
		}
	}

	var out []*model.Doctor
	for id, n := range count {
		if n == len(targets) {
			out = append(out, byID[id])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
