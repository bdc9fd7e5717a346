// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Doctor 医生
type Doctor struct {
	BaseModel
	Name   string `json:"name" db:"name"`
	Code   string `json:"code" db:"code"`
	Status string `json:"status" db:"status"` // active/inactive/leave

	// 专业与工作量
	Specialties      []string `json:"specialties" db:"specialties"`
	EmploymentFactor float64  `json:"employment_factor" db:"employment_factor"` // 0 < f <= 1

	// 排除规则（永不排入）
	ExcludedWeekdays   []time.Weekday `json:"excluded_weekdays,omitempty" db:"excluded_weekdays"`
	ExcludedActivities []string       `json:"excluded_activities,omitempty" db:"excluded_activities"`
	ExcludedSlotTypes  []string       `json:"excluded_slot_types,omitempty" db:"excluded_slot_types"`
}

// IsActive 检查医生是否在职
func (d *Doctor) IsActive() bool {
	return d.Status == "active"
}

// HasSpecialty 检查医生是否具备某专业
func (d *Doctor) HasSpecialty(specialty string) bool {
	for _, s := range d.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

// WeekdayExcluded 检查某星期几是否被排除
func (d *Doctor) WeekdayExcluded(weekday time.Weekday) bool {
	for _, w := range d.ExcludedWeekdays {
		if w == weekday {
			return true
		}
	}
	return false
}

// ActivityExcluded 检查某活动是否被排除
func (d *Doctor) ActivityExcluded(activityID string) bool {
	if activityID == "" {
		return false
	}
	for _, a := range d.ExcludedActivities {
		if a == activityID {
			return true
		}
	}
	return false
}

// SlotTypeExcluded 检查某门诊类型是否被排除
func (d *Doctor) SlotTypeExcluded(slotType string) bool {
	if slotType == "" {
		return false
	}
	for _, s := range d.ExcludedSlotTypes {
		if s == slotType {
			return true
		}
	}
	return false
}

// Unavailability 不可用记录
// 创建后不可修改，只能显式删除
type Unavailability struct {
	BaseModel
	DoctorID  uuid.UUID `json:"doctor_id" db:"doctor_id"`
	StartDate string    `json:"start_date" db:"start_date"` // YYYY-MM-DD（含）
	EndDate   string    `json:"end_date" db:"end_date"`     // YYYY-MM-DD（含）
	Period    Period    `json:"period" db:"period"`         // full_day/morning/afternoon
	Reason    string    `json:"reason,omitempty" db:"reason"`
}

// Covers 检查不可用记录是否覆盖指定日期和时段
func (u *Unavailability) Covers(date string, period Period) bool {
	if date < u.StartDate || date > u.EndDate {
		return false
	}
	return u.Period.Covers(period)
}
