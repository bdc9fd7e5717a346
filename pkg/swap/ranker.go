package swap

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/medroster/medroster/pkg/model"
)

// Request 替班推荐请求
type Request struct {
	Occurrence        *model.Occurrence          // 需要替班的场次
	Replaced          *uuid.UUID                 // 被替换的医生（可为空）
	Candidates        []*model.Doctor            // 已通过可用性过滤的候选人
	Ledger            model.EquityLedger         // 评分所用的公平性台账
	Activity          *model.ActivityDefinition  // 场次对应的活动（可为空）
	RequiredSpecialty string                     // 要求的专长（空表示不要求）
	PreviousAssignees map[string][]uuid.UUID     // 规则ID -> 近期承担过该规则的医生
	Max               int                        // 返回数量上限（0 表示不限）
}

// Suggestion 替班建议
// 评分归一化到 0-100，Reasons 给出可向排班员展示的评分依据
type Suggestion struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Score      float64   `json:"score"`
	Rank       int       `json:"rank"`
	Reasons    []string  `json:"reasons"`
}

// Ranker 替班候选人评分器
// 纯函数式：相同输入总是产生相同顺序的建议
type Ranker struct {
	policy Policy
}

// NewRanker 创建替班评分器
func NewRanker(policy Policy) *Ranker {
	if policy.totalWeight() <= 0 {
		policy = DefaultPolicy()
	}
	return &Ranker{policy: policy}
}

// Rank 对候选人评分并按分数降序排列
// 候选人列表应已通过可用性过滤，评分只负责排序不做淘汰。
// 同分时按医生ID排序保证确定性
func (r *Ranker) Rank(req *Request) []Suggestion {
	if req == nil || len(req.Candidates) == 0 {
		return nil
	}

	group := ""
	if req.Activity != nil {
		group = req.Activity.EquityGroup
	}

	// 组内加权份量的极值用于归一化
	weighted := make(map[uuid.UUID]float64, len(req.Candidates))
	minW, maxW := 0.0, 0.0
	for i, c := range req.Candidates {
		w := 0.0
		if group != "" && req.Ledger != nil {
			w = req.Ledger.WeightedScore(c.ID, group, c.EmploymentFactor)
		}
		weighted[c.ID] = w
		if i == 0 {
			minW, maxW = w, w
		} else {
			if w < minW {
				minW = w
			}
			if w > maxW {
				maxW = w
			}
		}
	}

	suggestions := make([]Suggestion, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		if req.Replaced != nil && c.ID == *req.Replaced {
			continue
		}

		equity := 1.0
		if maxW > minW {
			equity = (maxW - weighted[c.ID]) / (maxW - minW)
		}

		specialty := 1.0
		if req.RequiredSpecialty != "" {
			if c.HasSpecialty(req.RequiredSpecialty) {
				specialty = 1.0
			} else {
				specialty = 0.0
			}
		}

		rotation := 1.0
		if req.Occurrence != nil && r.recentlyAssigned(req, c.ID) {
			rotation = 0.0
		}

		score := (equity*r.policy.EquityWeight +
			specialty*r.policy.SpecialtyWeight +
			rotation*r.policy.RotationWeight) / r.policy.totalWeight() * 100

		suggestions = append(suggestions, Suggestion{
			DoctorID:   c.ID,
			DoctorName: c.Name,
			Score:      score,
			Reasons:    r.buildReasons(c, group, weighted[c.ID], equity, specialty, rotation, req.RequiredSpecialty),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].DoctorID.String() < suggestions[j].DoctorID.String()
	})

	if req.Max > 0 && len(suggestions) > req.Max {
		suggestions = suggestions[:req.Max]
	}
	for i := range suggestions {
		suggestions[i].Rank = i + 1
	}
	return suggestions
}

// recentlyAssigned 判断候选人近期是否承担过同一规则
func (r *Ranker) recentlyAssigned(req *Request, doctorID uuid.UUID) bool {
	if req.PreviousAssignees == nil {
		return false
	}
	for _, id := range req.PreviousAssignees[req.Occurrence.RuleID] {
		if id == doctorID {
			return true
		}
	}
	return false
}

// buildReasons 生成评分依据说明
func (r *Ranker) buildReasons(c *model.Doctor, group string, weighted, equity, specialty, rotation float64, requiredSpecialty string) []string {
	reasons := make([]string, 0, 3)

	if group == "" {
		reasons = append(reasons, "该活动不计入公平性分组")
	} else if equity >= 1.0 {
		reasons = append(reasons, fmt.Sprintf("组内份量最低（加权份量 %.2f）", weighted))
	} else {
		reasons = append(reasons, fmt.Sprintf("组内加权份量 %.2f", weighted))
	}

	if requiredSpecialty != "" {
		if specialty > 0 {
			reasons = append(reasons, fmt.Sprintf("具备所需专长：%s", requiredSpecialty))
		} else {
			reasons = append(reasons, fmt.Sprintf("缺少所需专长：%s", requiredSpecialty))
		}
	}

	if rotation > 0 {
		reasons = append(reasons, "近期未承担过该规则，有利于轮换")
	} else {
		reasons = append(reasons, "近期已承担过该规则")
	}

	return reasons
}

// RankReplacements 按默认策略推荐替班候选人
// 便捷入口：适用于不需要自定义权重的调用方
func RankReplacements(
	occurrence *model.Occurrence,
	candidates []*model.Doctor,
	ledger model.EquityLedger,
	activity *model.ActivityDefinition,
) []Suggestion {
	ranker := NewRanker(DefaultPolicy())
	return ranker.Rank(&Request{
		Occurrence: occurrence,
		Candidates: candidates,
		Ledger:     ledger,
		Activity:   activity,
	})
}
