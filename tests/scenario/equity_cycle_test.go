// Package scenario 提供场景测试
package scenario

import (
	"testing"
	"time"

	"github.com/medroster/medroster/pkg/model"
	"github.com/medroster/medroster/pkg/schedule"
	"github.com/medroster/medroster/pkg/stats"
)

// equitySnapshot 只有一个需要自动填充的周五门诊槽位
func equitySnapshot() *schedule.Snapshot {
	slots := []*model.TemplateSlot{
		{ID: "consult-fri-am", Weekday: time.Friday, Period: model.PeriodMorning, ActivityID: "consult"},
	}
	activities := []*model.ActivityDefinition{
		{ID: "consult", Name: "门诊", Granularity: model.GranularityHalfDay, EquityGroup: "门诊"},
	}
	return schedule.NewSnapshot(
		[]*model.Doctor{docChen, docLi},
		nil, slots, nil, nil, activities, nil,
	)
}

// TestEquityCycleAlternation 测试逐周自动填充在两名医生之间轮流
// 每周的选择被固定为覆盖，下一周的台账据此回放，形成完整的反馈闭环
func TestEquityCycleAlternation(t *testing.T) {
	snap := equitySnapshot()
	resolver := schedule.NewResolver()
	replayer := stats.NewReplayer()

	firstWeek := time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC)
	overrides := make(model.OverrideMap)

	const weeks = 4
	for i := 0; i < weeks; i++ {
		weekStart := firstWeek.AddDate(0, 0, 7*i)

		ledger := model.NewEquityLedger()
		if i > 0 {
			// 覆盖每周都在变，回放器按输入指纹识别并重算受影响的周
			var err error
			ledger, err = replayer.ReplayLedger(firstWeek, weekStart.AddDate(0, 0, -1), snap, overrides)
			if err != nil {
				t.Fatalf("第%d周台账回放失败: %v", i+1, err)
			}
		}

		occurrences, _, err := resolver.ResolveWeek(weekStart, snap, overrides, true, ledger)
		if err != nil {
			t.Fatalf("第%d周解析失败: %v", i+1, err)
		}
		if len(occurrences) != 1 || occurrences[0].DoctorID == nil {
			t.Fatalf("第%d周应该有一个已填充场次", i+1)
		}

		occ := occurrences[0]
		t.Logf("第%d周 %s -> %s", i+1, occ.Date, occ.DoctorID)
		overrides[occ.ID] = model.AutoLockedOverride(*occ.DoctorID)
	}

	// 回放整个窗口，两人各承担一半
	final, err := replayer.ReplayLedger(firstWeek, firstWeek.AddDate(0, 0, 7*weeks-1), snap, overrides)
	if err != nil {
		t.Fatalf("最终台账回放失败: %v", err)
	}
	if got := final.Count(docChen.ID, "门诊"); got != weeks/2 {
		t.Errorf("陈伟承担次数错误: 期望%d, 实际%d", weeks/2, got)
	}
	if got := final.Count(docLi.ID, "门诊"); got != weeks/2 {
		t.Errorf("李娜承担次数错误: 期望%d, 实际%d", weeks/2, got)
	}
}

// TestEquityCycleReport 测试均衡分配后的公平性报告
func TestEquityCycleReport(t *testing.T) {
	ledger := model.NewEquityLedger()
	ledger.Add(docChen.ID, "门诊", 2)
	ledger.Add(docLi.ID, "门诊", 2)

	report := stats.NewReporter().BuildReport(ledger, []*model.Doctor{docChen, docLi}, "2025-04-28", "2025-05-25")
	if len(report.Groups) != 1 {
		t.Fatalf("分组数量错误: %d", len(report.Groups))
	}

	group := report.Groups[0]
	if group.Gini != 0 {
		t.Errorf("均衡分配的基尼系数应该为0, 实际%f", group.Gini)
	}
	for _, d := range group.Doctors {
		if d.Deviation != 0 {
			t.Errorf("医生 %s 的偏差应该为0, 实际%f", d.DoctorName, d.Deviation)
		}
	}
}
