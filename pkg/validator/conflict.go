// Package validator 提供排班冲突检测
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/availability"
	"github.com/medroster/medroster/pkg/model"
)

// ConflictKind 冲突类型
type ConflictKind string

const (
	ConflictDoubleBooking ConflictKind = "double_booking"      // 同一医生同日同时段多处排班
	ConflictUnavailable   ConflictKind = "unavailable"         // 被排班医生有不可用记录
	ConflictCompetence    ConflictKind = "competence_mismatch" // 医生排除规则与场次不符
)

// Conflict 冲突信息
type Conflict struct {
	ID           string       `json:"id"`
	Kind         ConflictKind `json:"kind"`
	OccurrenceID string       `json:"occurrence_id"`
	DoctorID     uuid.UUID    `json:"doctor_id"`
	Date         string       `json:"date"`
	Period       model.Period `json:"period"`
	Severity     string       `json:"severity"` // error/warning
	Message      string       `json:"message"`
	Related      []string     `json:"related,omitempty"` // 涉及的其他场次ID
}

// Detector 冲突检测器
// 对物化完成（生成+覆盖应用后）的一周场次做只读扫描，从不修改排班；
// 场次列表或覆盖变化后由调用方重新运行
type Detector struct{}

// NewDetector 创建冲突检测器
func NewDetector() *Detector {
	return &Detector{}
}

// DetectAll 检测一周场次的全部冲突
func (d *Detector) DetectAll(
	occurrences []*model.Occurrence,
	unavailabilities []*model.Unavailability,
	roster []*model.Doctor,
	activities []*model.ActivityDefinition,
) []Conflict {
	doctorMap := make(map[uuid.UUID]*model.Doctor, len(roster))
	for _, doc := range roster {
		doctorMap[doc.ID] = doc
	}
	activityMap := make(map[string]*model.ActivityDefinition, len(activities))
	for _, a := range activities {
		activityMap[a.ID] = a
	}

	var conflicts []Conflict
	conflicts = append(conflicts, d.detectDoubleBookings(occurrences, doctorMap, activityMap)...)
	conflicts = append(conflicts, d.detectUnavailable(occurrences, unavailabilities, doctorMap)...)
	conflicts = append(conflicts, d.detectCompetenceMismatches(occurrences, doctorMap)...)

	// 确定性排序
	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].ID < conflicts[j].ID
	})
	return conflicts
}

// OtherOccurrence 对称查询：给定一个卷入双重排班的场次和医生，返回涉及的另一个场次
// 若医生D在场次A和B双重排班，从A查询返回B，从B查询返回A
func (d *Detector) OtherOccurrence(
	occurrences []*model.Occurrence,
	occurrenceID string,
	doctorID uuid.UUID,
) *model.Occurrence {
	var source *model.Occurrence
	for _, occ := range occurrences {
		if occ.ID == occurrenceID {
			source = occ
			break
		}
	}
	if source == nil || source.Closed {
		return nil
	}

	for _, occ := range occurrences {
		if occ.ID == source.ID || occ.Closed {
			continue
		}
		if occ.Date != source.Date || occ.Period != source.Period {
			continue
		}
		if occ.InvolvesDoctor(doctorID) {
			return occ
		}
	}
	return nil
}

// detectDoubleBookings 检测双重排班
// 同一医生以主排班或参与者身份出现在同日同时段两个以上未关闭的场次上，
// 除非涉及的活动组合都显式容忍双重排班。每个被卷入的场次产生一条独立冲突
func (d *Detector) detectDoubleBookings(
	occurrences []*model.Occurrence,
	doctorMap map[uuid.UUID]*model.Doctor,
	activityMap map[string]*model.ActivityDefinition,
) []Conflict {
	// (日期|时段|医生) -> 涉及场次
	cells := make(map[string][]*model.Occurrence)
	var cellKeys []string
	cellDoctor := make(map[string]uuid.UUID)

	for _, occ := range occurrences {
		if occ.Closed {
			continue
		}
		for _, doctorID := range involvedDoctors(occ) {
			key := occ.Date + "|" + string(occ.Period) + "|" + doctorID.String()
			if _, seen := cells[key]; !seen {
				cellKeys = append(cellKeys, key)
				cellDoctor[key] = doctorID
			}
			cells[key] = append(cells[key], occ)
		}
	}
	sort.Strings(cellKeys)

	var conflicts []Conflict
	for _, key := range cellKeys {
		involved := cells[key]
		if len(involved) < 2 {
			continue
		}
		if allTolerateDoubleBooking(involved, activityMap) {
			continue
		}

		doctorID := cellDoctor[key]
		name := doctorName(doctorMap, doctorID)
		for _, occ := range involved {
			related := make([]string, 0, len(involved)-1)
			for _, other := range involved {
				if other.ID != occ.ID {
					related = append(related, other.ID)
				}
			}
			conflicts = append(conflicts, Conflict{
				ID:           conflictID(ConflictDoubleBooking, occ.ID, doctorID),
				Kind:         ConflictDoubleBooking,
				OccurrenceID: occ.ID,
				DoctorID:     doctorID,
				Date:         occ.Date,
				Period:       occ.Period,
				Severity:     "error",
				Message:      fmt.Sprintf("医生 %s 在 %s %s 存在多处排班", name, occ.Date, occ.Period),
				Related:      related,
			})
		}
	}
	return conflicts
}

// detectUnavailable 检测不可用违规
// 自动填充已排除此情况，只可能由手工覆盖造成
func (d *Detector) detectUnavailable(
	occurrences []*model.Occurrence,
	unavailabilities []*model.Unavailability,
	doctorMap map[uuid.UUID]*model.Doctor,
) []Conflict {
	var conflicts []Conflict
	for _, occ := range occurrences {
		if occ.Closed || occ.DoctorID == nil {
			continue
		}
		doctorID := *occ.DoctorID
		if !availability.IsUnavailable(doctorID, occ.Date, occ.Period, unavailabilities) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ID:           conflictID(ConflictUnavailable, occ.ID, doctorID),
			Kind:         ConflictUnavailable,
			OccurrenceID: occ.ID,
			DoctorID:     doctorID,
			Date:         occ.Date,
			Period:       occ.Period,
			Severity:     "error",
			Message: fmt.Sprintf("医生 %s 在 %s %s 被排班但处于不可用状态",
				doctorName(doctorMap, doctorID), occ.Date, occ.Period),
		})
	}
	return conflicts
}

// detectCompetenceMismatches 检测排除规则违规
// 同样只可能由绕过可用性过滤的手工覆盖造成
func (d *Detector) detectCompetenceMismatches(
	occurrences []*model.Occurrence,
	doctorMap map[uuid.UUID]*model.Doctor,
) []Conflict {
	var conflicts []Conflict
	for _, occ := range occurrences {
		if occ.Closed || occ.DoctorID == nil {
			continue
		}
		doc := doctorMap[*occ.DoctorID]
		if doc == nil {
			continue
		}

		var reason string
		switch {
		case doc.SlotTypeExcluded(occ.SlotType):
			reason = fmt.Sprintf("门诊类型 '%s' 在其排除列表中", occ.SlotType)
		case doc.ActivityExcluded(occ.ActivityID):
			reason = fmt.Sprintf("活动 '%s' 在其排除列表中", occ.ActivityID)
		case doc.WeekdayExcluded(occ.Weekday):
			reason = fmt.Sprintf("星期 %d 在其排除列表中", int(occ.Weekday))
		default:
			continue
		}

		conflicts = append(conflicts, Conflict{
			ID:           conflictID(ConflictCompetence, occ.ID, doc.ID),
			Kind:         ConflictCompetence,
			OccurrenceID: occ.ID,
			DoctorID:     doc.ID,
			Date:         occ.Date,
			Period:       occ.Period,
			Severity:     "error",
			Message:      fmt.Sprintf("医生 %s 不应承担此场次: %s", doc.Name, reason),
		})
	}
	return conflicts
}

// involvedDoctors 返回卷入场次的全部医生（主排班在前）
func involvedDoctors(occ *model.Occurrence) []uuid.UUID {
	var out []uuid.UUID
	if occ.DoctorID != nil {
		out = append(out, *occ.DoctorID)
	}
	out = append(out, occ.SecondaryDoctorIDs...)
	return out
}

// allTolerateDoubleBooking 检查涉及的全部场次是否都容忍双重排班
func allTolerateDoubleBooking(occurrences []*model.Occurrence, activityMap map[string]*model.ActivityDefinition) bool {
	for _, occ := range occurrences {
		activity := activityMap[occ.ActivityID]
		if activity == nil || !activity.AllowDoubleBooking {
			return false
		}
	}
	return true
}

// conflictID 确定性冲突标识
func conflictID(kind ConflictKind, occurrenceID string, doctorID uuid.UUID) string {
	return string(kind) + "|" + occurrenceID + "|" + doctorID.String()
}

// doctorName 取医生姓名（未知时退回ID）
func doctorName(doctorMap map[uuid.UUID]*model.Doctor, id uuid.UUID) string {
	if doc := doctorMap[id]; doc != nil {
		return doc.Name
	}
	return id.String()
}
