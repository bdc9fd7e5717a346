// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/errors"
)

// occurrenceDateLen 场次标识中日期后缀的固定长度（YYYY-MM-DD）
const occurrenceDateLen = 10

// OccurrenceID 场次结构化标识
// 编码格式为 {ruleId}-{YYYY-MM-DD}，日期始终为原始（未移动）日期，
// 因此例外编辑器可以从可见场次反查出定义规则和原日期
type OccurrenceID struct {
	RuleID        string `json:"rule_id"`
	CanonicalDate string `json:"canonical_date"` // YYYY-MM-DD
}

// Encode 编码为持久化兼容的字符串形式
func (id OccurrenceID) Encode() string {
	return id.RuleID + "-" + id.CanonicalDate
}

// ParseOccurrenceID 解析场次标识
// 只消费末尾的 -YYYY-MM-DD 后缀并校验其为合法日期，
// 规则ID本身允许包含连字符和数字段
func ParseOccurrenceID(s string) (OccurrenceID, error) {
	if len(s) < occurrenceDateLen+2 {
		return OccurrenceID{}, errors.MalformedOccurrenceID(s)
	}
	datePart := s[len(s)-occurrenceDateLen:]
	if s[len(s)-occurrenceDateLen-1] != '-' {
		return OccurrenceID{}, errors.MalformedOccurrenceID(s)
	}
	if _, err := time.Parse(DateFormat, datePart); err != nil {
		return OccurrenceID{}, errors.MalformedOccurrenceID(s)
	}
	ruleID := s[:len(s)-occurrenceDateLen-1]
	if ruleID == "" {
		return OccurrenceID{}, errors.MalformedOccurrenceID(s)
	}
	return OccurrenceID{RuleID: ruleID, CanonicalDate: datePart}, nil
}

// Occurrence 场次（模板或RCP规则在具体日期的实例化）
// 由解析器按请求现场生成，引擎自身从不持久化场次
type Occurrence struct {
	ID            string `json:"id"`             // 编码后的场次标识
	RuleID        string `json:"rule_id"`        // 定义规则ID（模板槽位或RCP）
	CanonicalDate string `json:"canonical_date"` // 原始（未移动）日期
	Date          string `json:"date"`           // 实际生效日期（被例外移动后可能不同）

	Weekday  time.Weekday `json:"weekday"`
	Period   Period       `json:"period"`
	Location string       `json:"location,omitempty"`
	SlotType string       `json:"slot_type,omitempty"`

	ActivityID string `json:"activity_id,omitempty"`
	IsRCP      bool   `json:"is_rcp"`

	DoctorID           *uuid.UUID  `json:"doctor_id,omitempty"`
	SecondaryDoctorIDs []uuid.UUID `json:"secondary_doctor_ids,omitempty"`

	Locked      bool   `json:"locked"`       // 被覆盖固定
	Closed      bool   `json:"closed"`       // 已关闭，不参与分配
	Unconfirmed bool   `json:"unconfirmed"`  // RCP出席待确认
	HolidayName string `json:"holiday_name,omitempty"`
}

// HasDoctor 检查场次是否已有主排班医生
func (o *Occurrence) HasDoctor() bool {
	return o.DoctorID != nil
}

// InvolvesDoctor 检查医生是否以主排班或参与者身份出现在场次中
func (o *Occurrence) InvolvesDoctor(id uuid.UUID) bool {
	if o.DoctorID != nil && *o.DoctorID == id {
		return true
	}
	for _, s := range o.SecondaryDoctorIDs {
		if s == id {
			return true
		}
	}
	return false
}

// OverrideKind 覆盖类型
type OverrideKind string

const (
	OverrideUnset      OverrideKind = "unset"       // 不覆盖，由引擎决定
	OverrideClosed     OverrideKind = "closed"      // 关闭，永不分配
	OverrideManual     OverrideKind = "manual"      // 手工指定医生
	OverrideAutoLocked OverrideKind = "auto_locked" // 引擎早先的选择，已固定（回放时计入实际）
)

// Override 针对单个场次的覆盖决定
// 覆盖永远优先于自动填充
type Override struct {
	Kind     OverrideKind `json:"kind"`
	DoctorID uuid.UUID    `json:"doctor_id,omitempty"`
}

// Pinned 检查覆盖是否固定了某个医生
func (o Override) Pinned() bool {
	return o.Kind == OverrideManual || o.Kind == OverrideAutoLocked
}

// ManualOverride 创建手工指定覆盖
func ManualOverride(doctorID uuid.UUID) Override {
	return Override{Kind: OverrideManual, DoctorID: doctorID}
}

// AutoLockedOverride 创建自动固定覆盖
func AutoLockedOverride(doctorID uuid.UUID) Override {
	return Override{Kind: OverrideAutoLocked, DoctorID: doctorID}
}

// ClosedOverride 创建关闭覆盖
func ClosedOverride() Override {
	return Override{Kind: OverrideClosed}
}

// OverrideMap 场次ID到覆盖决定的映射
type OverrideMap map[string]Override

// Get 获取场次的覆盖决定（不存在时返回unset）
func (m OverrideMap) Get(occurrenceID string) Override {
	if m == nil {
		return Override{Kind: OverrideUnset}
	}
	if o, ok := m[occurrenceID]; ok {
		return o
	}
	return Override{Kind: OverrideUnset}
}
