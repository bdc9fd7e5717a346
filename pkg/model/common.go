// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// DateFormat 标准日期格式
const DateFormat = "2006-01-02"

// Period 半日时段
type Period string

const (
	PeriodMorning   Period = "morning"   // 上午
	PeriodAfternoon Period = "afternoon" // 下午
	PeriodFullDay   Period = "full_day"  // 全天（仅用于不可用记录）
)

// Rank 返回时段排序权重（用于确定性排序）
func (p Period) Rank() int {
	switch p {
	case PeriodMorning:
		return 0
	case PeriodAfternoon:
		return 1
	default:
		return 2
	}
}

// Covers 检查时段是否覆盖另一个时段
// 全天覆盖上午和下午；相同时段互相覆盖
func (p Period) Covers(other Period) bool {
	return p == PeriodFullDay || other == PeriodFullDay || p == other
}

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ParseDate 解析标准日期字符串
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateFormat, date)
}

// FormatDate 格式化为标准日期字符串
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// MondayOf 返回包含指定日期的那一周的周一
func MondayOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ISOWeekParity 返回日期所在ISO周的奇偶性（0=偶数周, 1=奇数周）
func ISOWeekParity(t time.Time) int {
	_, week := t.ISOWeek()
	return week % 2
}

// WeekdayOrdinalInMonth 返回日期是当月第几个该星期几（1-5）
func WeekdayOrdinalInMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}
