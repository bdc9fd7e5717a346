package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/medroster/medroster/pkg/model"
)

// DoctorEquity 单个医生在某公平性分组下的统计
type DoctorEquity struct {
	DoctorID         uuid.UUID `json:"doctor_id"`
	DoctorName       string    `json:"doctor_name"`
	Count            int       `json:"count"`             // 原始计数
	EmploymentFactor float64   `json:"employment_factor"` // 在职系数
	WeightedScore    float64   `json:"weighted_score"`    // 计数/在职系数
	Deviation        float64   `json:"deviation"`         // 与组内加权均值的偏差百分比
}

// GroupEquity 公平性分组统计
type GroupEquity struct {
	Group       string         `json:"group"`
	Doctors     []DoctorEquity `json:"doctors"`
	AvgWeighted float64        `json:"avg_weighted"`
	MaxWeighted float64        `json:"max_weighted"`
	MinWeighted float64        `json:"min_weighted"`
	Gini        float64        `json:"gini"` // 加权分数基尼系数 (0=完全公平)
}

// EquityReport 公平性报告
type EquityReport struct {
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Groups    []GroupEquity `json:"groups"`
}

// Reporter 公平性报告生成器
type Reporter struct{}

// NewReporter 创建公平性报告生成器
func NewReporter() *Reporter {
	return &Reporter{}
}

// BuildReport 从台账生成公平性报告
// 每个在台账中出现的分组都包含全部在岗医生，
// 零计数医生同样参与均值和基尼系数的计算
func (rp *Reporter) BuildReport(ledger model.EquityLedger, roster []*model.Doctor, startDate, endDate string) *EquityReport {
	report := &EquityReport{
		StartDate: startDate,
		EndDate:   endDate,
	}

	active := make([]*model.Doctor, 0, len(roster))
	for _, d := range roster {
		if d.IsActive() {
			active = append(active, d)
		}
	}

	for _, group := range rp.groupNames(ledger) {
		report.Groups = append(report.Groups, rp.buildGroup(ledger, active, group))
	}
	return report
}

// groupNames 台账中出现过的分组名（排序后）
func (rp *Reporter) groupNames(ledger model.EquityLedger) []string {
	seen := make(map[string]bool)
	for _, groups := range ledger {
		for group := range groups {
			seen[group] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildGroup 计算单个分组的统计
func (rp *Reporter) buildGroup(ledger model.EquityLedger, roster []*model.Doctor, group string) GroupEquity {
	result := GroupEquity{Group: group}

	scores := make([]float64, 0, len(roster))
	for _, d := range roster {
		score := ledger.WeightedScore(d.ID, group, d.EmploymentFactor)
		result.Doctors = append(result.Doctors, DoctorEquity{
			DoctorID:         d.ID,
			DoctorName:       d.Name,
			Count:            ledger.Count(d.ID, group),
			EmploymentFactor: d.EmploymentFactor,
			WeightedScore:    score,
		})
		scores = append(scores, score)
	}

	result.AvgWeighted = mean(scores)
	result.MaxWeighted, result.MinWeighted = valueRange(scores)
	result.Gini = gini(scores)

	for i := range result.Doctors {
		if result.AvgWeighted > 0 {
			result.Doctors[i].Deviation = (result.Doctors[i].WeightedScore - result.AvgWeighted) / result.AvgWeighted * 100
		}
	}

	// 按加权分数降序，分数相同时按医生ID保证稳定输出
	sort.Slice(result.Doctors, func(i, j int) bool {
		if result.Doctors[i].WeightedScore != result.Doctors[j].WeightedScore {
			return result.Doctors[i].WeightedScore > result.Doctors[j].WeightedScore
		}
		return result.Doctors[i].DoctorID.String() < result.Doctors[j].DoctorID.String()
	})

	return result
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// valueRange 计算极值
func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}

	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
