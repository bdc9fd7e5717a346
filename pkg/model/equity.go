// Package model 定义排班引擎的核心数据模型
package model

import "github.com/google/uuid"

// EquityLedger 公平性台账
// 医生ID -> 公平性分组 -> 累计分配次数，由历史回放在日期窗口上累积
type EquityLedger map[uuid.UUID]map[string]int

// NewEquityLedger 创建空台账
func NewEquityLedger() EquityLedger {
	return make(EquityLedger)
}

// Count 返回医生在某分组的累计次数
func (l EquityLedger) Count(doctorID uuid.UUID, group string) int {
	if l == nil {
		return 0
	}
	return l[doctorID][group]
}

// Add 累加医生在某分组的次数
func (l EquityLedger) Add(doctorID uuid.UUID, group string, n int) {
	groups, ok := l[doctorID]
	if !ok {
		groups = make(map[string]int)
		l[doctorID] = groups
	}
	groups[group] += n
}

// Merge 并入另一个台账
func (l EquityLedger) Merge(other EquityLedger) {
	for doctorID, groups := range other {
		for group, n := range groups {
			l.Add(doctorID, group, n)
		}
	}
}

// Clone 深拷贝台账
func (l EquityLedger) Clone() EquityLedger {
	out := NewEquityLedger()
	out.Merge(l)
	return out
}

// WeightedScore 按雇佣系数归一化的公平性得分
// 得分越低表示该医生在此分组欠的工作越多
func (l EquityLedger) WeightedScore(doctorID uuid.UUID, group string, employmentFactor float64) float64 {
	if employmentFactor <= 0 {
		employmentFactor = 1
	}
	return float64(l.Count(doctorID, group)) / employmentFactor
}
