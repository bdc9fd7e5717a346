// Package swap 提供替班候选人推荐与评分
package swap

// Policy 替班评分策略
// 三个权重之和决定满分，默认 50+30+20=100。
// 部署方可以按科室习惯调整权重，评分始终归一化到 0-100
type Policy struct {
	EquityWeight    float64 `json:"equity_weight" koanf:"equity_weight"`       // 公平性份量权重
	SpecialtyWeight float64 `json:"specialty_weight" koanf:"specialty_weight"` // 专长匹配权重
	RotationWeight  float64 `json:"rotation_weight" koanf:"rotation_weight"`   // 轮换新鲜度权重
	RotationWeeks   int     `json:"rotation_weeks" koanf:"rotation_weeks"`     // 轮换回溯周数
}

// DefaultPolicy 默认替班评分策略
func DefaultPolicy() Policy {
	return Policy{
		EquityWeight:    50,
		SpecialtyWeight: 30,
		RotationWeight:  20,
		RotationWeeks:   4,
	}
}

// totalWeight 权重总和
func (p Policy) totalWeight() float64 {
	return p.EquityWeight + p.SpecialtyWeight + p.RotationWeight
}
