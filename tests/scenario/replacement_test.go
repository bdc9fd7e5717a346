// Package scenario 提供场景测试
package scenario

import (
	"testing"
	"time"

	"github.com/medroster/medroster/pkg/availability"
	"github.com/medroster/medroster/pkg/model"
	"github.com/medroster/medroster/pkg/schedule"
	"github.com/medroster/medroster/pkg/swap"
	"github.com/medroster/medroster/pkg/validator"
)

// replacementSnapshot 陈伟周一上午有固定门诊，但当天请假
func replacementSnapshot() *schedule.Snapshot {
	chenID := docChen.ID

	slots := []*model.TemplateSlot{
		{ID: "consult-mon-am", Weekday: time.Monday, Period: model.PeriodMorning,
			SlotType: "普通门诊", ActivityID: "consult", DefaultDoctorID: &chenID},
	}
	activities := []*model.ActivityDefinition{
		{ID: "consult", Name: "门诊", Granularity: model.GranularityHalfDay, EquityGroup: "门诊"},
	}
	unavailabilities := []*model.Unavailability{
		{DoctorID: docChen.ID, StartDate: "2025-04-28", EndDate: "2025-04-28", Period: model.PeriodFullDay, Reason: "年假"},
	}
	return schedule.NewSnapshot(
		[]*model.Doctor{docChen, docLi, docWang},
		unavailabilities, slots, nil, nil, activities, nil,
	)
}

// TestReplacementFlow 测试从冲突发现到替班落地的完整流程
func TestReplacementFlow(t *testing.T) {
	snap := replacementSnapshot()
	weekStart := time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC)
	resolver := schedule.NewResolver()

	occurrences, _, err := resolver.ResolveWeek(weekStart, snap, nil, false, nil)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("场次数量错误: %d", len(occurrences))
	}
	target := occurrences[0]

	// 第一步：检测到请假冲突
	detector := validator.NewDetector()
	conflicts := detector.DetectAll(occurrences, snap.Unavailabilities, snap.Doctors, snap.Activities)
	if len(conflicts) != 1 {
		t.Fatalf("冲突数量错误: 期望1, 实际%d", len(conflicts))
	}
	if conflicts[0].Kind != validator.ConflictUnavailable {
		t.Errorf("冲突类型错误: %s", conflicts[0].Kind)
	}

	// 第二步：过滤可接替的候选人
	candidates := availability.FilterForReplacement(
		availability.Request{
			Date:                target.Date,
			Weekday:             target.Weekday,
			Period:              target.Period,
			SlotType:            target.SlotType,
			ActivityID:          target.ActivityID,
			ExcludeOccurrenceID: target.ID,
		},
		docChen.ID, snap.Doctors, snap.Unavailabilities, occurrences,
	)
	if len(candidates) != 2 {
		t.Fatalf("候选人数量错误: 期望2, 实际%d", len(candidates))
	}

	// 第三步：按公平性排序建议
	// 李娜和王强各承担过1次，但王强是半职，加权后欠账更少
	ledger := model.NewEquityLedger()
	ledger.Add(docLi.ID, "门诊", 1)
	ledger.Add(docWang.ID, "门诊", 1)

	ranker := swap.NewRanker(swap.DefaultPolicy())
	suggestions := ranker.Rank(&swap.Request{
		Occurrence: target,
		Replaced:   &docChen.ID,
		Candidates: candidates,
		Ledger:     ledger,
		Activity:   snap.GetActivity("consult"),
	})
	if len(suggestions) != 2 {
		t.Fatalf("建议数量错误: %d", len(suggestions))
	}
	if suggestions[0].DoctorID != docLi.ID {
		t.Errorf("首选替班人应该是李娜, 实际%s", suggestions[0].DoctorName)
	}
	t.Logf("替班建议: %s (%.1f) > %s (%.1f)",
		suggestions[0].DoctorName, suggestions[0].Score,
		suggestions[1].DoctorName, suggestions[1].Score)

	// 第四步：以手工覆盖落地替班，冲突消除
	overrides := model.OverrideMap{target.ID: model.ManualOverride(suggestions[0].DoctorID)}
	resolved, _, err := resolver.ResolveWeek(weekStart, snap, overrides, false, nil)
	if err != nil {
		t.Fatalf("重新解析失败: %v", err)
	}
	if resolved[0].DoctorID == nil || *resolved[0].DoctorID != docLi.ID {
		t.Fatal("覆盖后的场次应该由李娜承担")
	}
	if !resolved[0].Locked {
		t.Error("手工覆盖的场次应该被固定")
	}

	remaining := detector.DetectAll(resolved, snap.Unavailabilities, snap.Doctors, snap.Activities)
	if len(remaining) != 0 {
		t.Errorf("替班后不应该有冲突, 实际%d个", len(remaining))
	}
}
