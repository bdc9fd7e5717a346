// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// RecurrenceKind 周期规则类型
type RecurrenceKind string

const (
	RecurrenceWeekly   RecurrenceKind = "weekly"   // 每周
	RecurrenceBiweekly RecurrenceKind = "biweekly" // 隔周（按ISO周奇偶性）
	RecurrenceMonthly  RecurrenceKind = "monthly"  // 每月第N个星期几
	RecurrenceManual   RecurrenceKind = "manual"   // 手工日期列表
)

// Recurrence 周期规则
type Recurrence struct {
	Kind    RecurrenceKind `json:"kind" db:"kind"`
	Parity  int            `json:"parity,omitempty" db:"parity"`   // 隔周：0=偶数ISO周, 1=奇数ISO周
	Ordinal int            `json:"ordinal,omitempty" db:"ordinal"` // 每月：第N个（1-5）
	Dates   []string       `json:"dates,omitempty" db:"dates"`     // 手工：YYYY-MM-DD 列表
}

// Matches 检查规则在指定日期是否命中
// 星期几匹配由调用方负责，这里只判断周期维度
func (r Recurrence) Matches(date time.Time) bool {
	switch r.Kind {
	case RecurrenceWeekly, "":
		return true
	case RecurrenceBiweekly:
		return ISOWeekParity(date) == r.Parity
	case RecurrenceMonthly:
		return WeekdayOrdinalInMonth(date) == r.Ordinal
	case RecurrenceManual:
		day := FormatDate(date)
		for _, d := range r.Dates {
			if d == day {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// TemplateSlot 周模板槽位（固定周期性义务）
type TemplateSlot struct {
	ID                 string       `json:"id" db:"id"`
	Weekday            time.Weekday `json:"weekday" db:"weekday"`
	Period             Period       `json:"period" db:"period"`
	Location           string       `json:"location,omitempty" db:"location"`
	SlotType           string       `json:"slot_type" db:"slot_type"`
	ActivityID         string       `json:"activity_id,omitempty" db:"activity_id"`
	DefaultDoctorID    *uuid.UUID   `json:"default_doctor_id,omitempty" db:"default_doctor_id"`
	SecondaryDoctorIDs []uuid.UUID  `json:"secondary_doctor_ids,omitempty" db:"secondary_doctor_ids"`
	Recurrence         *Recurrence  `json:"recurrence,omitempty" db:"recurrence"` // nil = 每周
}

// MatchesDate 检查模板槽位在指定日期是否生成场次
func (s *TemplateSlot) MatchesDate(date time.Time) bool {
	if date.Weekday() != s.Weekday {
		return false
	}
	if s.Recurrence == nil {
		return true
	}
	return s.Recurrence.Matches(date)
}

// RCPDefinition 多学科会诊（RCP）定义
type RCPDefinition struct {
	ID             string       `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	Weekday        time.Weekday `json:"weekday" db:"weekday"`
	Period         Period       `json:"period" db:"period"`
	Location       string       `json:"location,omitempty" db:"location"`
	ParticipantIDs []uuid.UUID  `json:"participant_ids,omitempty" db:"participant_ids"`
	Recurrence     Recurrence   `json:"recurrence" db:"recurrence"`
}

// MatchesDate 检查RCP在指定日期是否生成场次
func (r *RCPDefinition) MatchesDate(date time.Time) bool {
	if r.Recurrence.Kind == RecurrenceManual {
		return r.Recurrence.Matches(date)
	}
	return date.Weekday() == r.Weekday && r.Recurrence.Matches(date)
}

// RCPException RCP例外
// 以 (RCPID, OriginalDate) 为键；例外不改变场次的存储标识
type RCPException struct {
	RCPID          string      `json:"rcp_id" db:"rcp_id"`
	OriginalDate   string      `json:"original_date" db:"original_date"` // YYYY-MM-DD（未移动的原日期）
	Cancelled      bool        `json:"cancelled" db:"cancelled"`
	NewDate        string      `json:"new_date,omitempty" db:"new_date"`     // 移动后的日期
	NewPeriod      Period      `json:"new_period,omitempty" db:"new_period"` // 移动后的时段
	ParticipantIDs []uuid.UUID `json:"participant_ids,omitempty" db:"participant_ids"` // nil = 保留默认参与者
}

// ActivityGranularity 活动粒度
type ActivityGranularity string

const (
	GranularityHalfDay ActivityGranularity = "half_day" // 按半日计
	GranularityWeek    ActivityGranularity = "week"     // 按周计（整周由同一人承担）
)

// ActivityDefinition 活动定义
type ActivityDefinition struct {
	ID                 string              `json:"id" db:"id"`
	Name               string              `json:"name" db:"name"`
	Granularity        ActivityGranularity `json:"granularity" db:"granularity"`
	AllowDoubleBooking bool                `json:"allow_double_booking" db:"allow_double_booking"`
	EquityGroup        string              `json:"equity_group" db:"equity_group"` // 公平性分组，多个活动可共用
}

// HolidayCalendar 节假日日历（日期 -> 节假日名称）
type HolidayCalendar map[string]string

// IsHoliday 检查指定日期是否为节假日
func (h HolidayCalendar) IsHoliday(date string) (string, bool) {
	name, ok := h[date]
	return name, ok
}
