// Package availability 提供医生可用性过滤
//
// 所有函数都是纯函数：同样的快照输入总是产生同样的输出，
// 自动填充和手工选择候选池共用同一套过滤逻辑
package availability

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/model"
)

// Request 过滤请求
type Request struct {
	Date    string       // YYYY-MM-DD
	Weekday time.Weekday // 日期对应的星期几
	Period  model.Period

	// 用于排除性检查（可为空）
	SlotType   string
	ActivityID string

	// 排除已占用医生时忽略的场次（通常是待分配的目标场次本身）
	ExcludeOccurrenceID string
}

// Filter 返回指定日期/时段可排班的医生子集
// 排除：不在职、排除星期几、排除门诊类型、排除活动、
// 有覆盖该时段的不可用记录、当周同日同时段已被占用的医生
func Filter(
	req Request,
	roster []*model.Doctor,
	unavailabilities []*model.Unavailability,
	currentOccurrences []*model.Occurrence,
) []*model.Doctor {
	busy := busyDoctors(req, currentOccurrences)

	var eligible []*model.Doctor
	for _, doc := range roster {
		if !doc.IsActive() {
			continue
		}
		if doc.WeekdayExcluded(req.Weekday) {
			continue
		}
		if doc.SlotTypeExcluded(req.SlotType) {
			continue
		}
		if doc.ActivityExcluded(req.ActivityID) {
			continue
		}
		if isUnavailable(doc.ID, req.Date, req.Period, unavailabilities) {
			continue
		}
		if busy[doc.ID] {
			continue
		}
		eligible = append(eligible, doc)
	}

	// 按医生ID排序保证确定性
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].ID.String() < eligible[j].ID.String()
	})

	return eligible
}

// FilterForReplacement 返回可接替某场次的医生子集
// 在普通过滤之外，额外排除引发冲突的当前医生
func FilterForReplacement(
	req Request,
	replaced uuid.UUID,
	roster []*model.Doctor,
	unavailabilities []*model.Unavailability,
	currentOccurrences []*model.Occurrence,
) []*model.Doctor {
	eligible := Filter(req, roster, unavailabilities, currentOccurrences)

	out := eligible[:0]
	for _, doc := range eligible {
		if doc.ID == replaced {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// IsUnavailable 检查医生在指定日期/时段是否有不可用记录
func IsUnavailable(doctorID uuid.UUID, date string, period model.Period, unavailabilities []*model.Unavailability) bool {
	return isUnavailable(doctorID, date, period, unavailabilities)
}

func isUnavailable(doctorID uuid.UUID, date string, period model.Period, unavailabilities []*model.Unavailability) bool {
	for _, u := range unavailabilities {
		if u.DoctorID != doctorID {
			continue
		}
		if u.Covers(date, period) {
			return true
		}
	}
	return false
}

// busyDoctors 收集同日同时段已被占用的医生
func busyDoctors(req Request, occurrences []*model.Occurrence) map[uuid.UUID]bool {
	busy := make(map[uuid.UUID]bool)
	for _, occ := range occurrences {
		if occ.Closed {
			continue
		}
		if occ.ID == req.ExcludeOccurrenceID {
			continue
		}
		if occ.Date != req.Date || occ.Period != req.Period {
			continue
		}
		if occ.DoctorID != nil {
			busy[*occ.DoctorID] = true
		}
		for _, s := range occ.SecondaryDoctorIDs {
			busy[s] = true
		}
	}
	return busy
}
