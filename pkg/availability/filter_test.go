package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/model"
)

func activeDoctor(id string, name string) *model.Doctor {
	return &model.Doctor{
		BaseModel:        model.BaseModel{ID: uuid.MustParse(id)},
		Name:             name,
		Status:           "active",
		EmploymentFactor: 1.0,
	}
}

func TestFilter_Exclusions(t *testing.T) {
	docA := activeDoctor("00000000-0000-0000-0000-000000000001", "医生A")
	docB := activeDoctor("00000000-0000-0000-0000-000000000002", "医生B")
	docC := activeDoctor("00000000-0000-0000-0000-000000000003", "医生C")
	docD := activeDoctor("00000000-0000-0000-0000-000000000004", "医生D")
	docE := activeDoctor("00000000-0000-0000-0000-000000000005", "医生E")

	docB.Status = "inactive"
	docC.ExcludedWeekdays = []time.Weekday{time.Friday}
	docD.ExcludedSlotTypes = []string{"echo"}
	docE.ExcludedActivities = []string{"consult"}

	req := Request{
		Date:       "2025-05-02",
		Weekday:    time.Friday,
		Period:     model.PeriodMorning,
		SlotType:   "echo",
		ActivityID: "consult",
	}

	eligible := Filter(req, []*model.Doctor{docE, docD, docC, docB, docA}, nil, nil)
	if len(eligible) != 1 {
		t.Fatalf("Expected 1 eligible doctor, got %d", len(eligible))
	}
	if eligible[0].ID != docA.ID {
		t.Errorf("Expected doctor A, got %s", eligible[0].Name)
	}
}

func TestFilter_Unavailability(t *testing.T) {
	docA := activeDoctor("00000000-0000-0000-0000-000000000001", "医生A")
	docB := activeDoctor("00000000-0000-0000-0000-000000000002", "医生B")

	// A在2025-05-02全天不可用，不应出现在当天上午的候选中
	unavailabilities := []*model.Unavailability{
		{
			DoctorID:  docA.ID,
			StartDate: "2025-05-02",
			EndDate:   "2025-05-02",
			Period:    model.PeriodFullDay,
		},
	}

	req := Request{Date: "2025-05-02", Weekday: time.Friday, Period: model.PeriodMorning}
	eligible := Filter(req, []*model.Doctor{docA, docB}, unavailabilities, nil)

	if len(eligible) != 1 {
		t.Fatalf("Expected 1 eligible doctor, got %d", len(eligible))
	}
	if eligible[0].ID != docB.ID {
		t.Errorf("Expected doctor B, got %s", eligible[0].Name)
	}

	// 其他日期不受影响
	req.Date = "2025-05-09"
	eligible = Filter(req, []*model.Doctor{docA, docB}, unavailabilities, nil)
	if len(eligible) != 2 {
		t.Errorf("Expected 2 eligible doctors on another date, got %d", len(eligible))
	}
}

func TestFilter_BusyDoctors(t *testing.T) {
	docA := activeDoctor("00000000-0000-0000-0000-000000000001", "医生A")
	docB := activeDoctor("00000000-0000-0000-0000-000000000002", "医生B")
	docC := activeDoctor("00000000-0000-0000-0000-000000000003", "医生C")

	aID := docA.ID
	occurrences := []*model.Occurrence{
		{
			ID:       "cardio-am-2025-05-02",
			Date:     "2025-05-02",
			Period:   model.PeriodMorning,
			DoctorID: &aID,
		},
		{
			ID:                 "rcp-onco-2025-05-02",
			Date:               "2025-05-02",
			Period:             model.PeriodMorning,
			SecondaryDoctorIDs: []uuid.UUID{docB.ID},
		},
	}

	req := Request{Date: "2025-05-02", Weekday: time.Friday, Period: model.PeriodMorning}
	eligible := Filter(req, []*model.Doctor{docA, docB, docC}, nil, occurrences)

	// 主排班和参与者身份都算占用
	if len(eligible) != 1 || eligible[0].ID != docC.ID {
		t.Fatalf("Expected only doctor C eligible, got %d doctors", len(eligible))
	}

	// 排除目标场次本身后A重新可用
	req.ExcludeOccurrenceID = "cardio-am-2025-05-02"
	eligible = Filter(req, []*model.Doctor{docA, docB, docC}, nil, occurrences)
	if len(eligible) != 2 {
		t.Errorf("Expected 2 eligible doctors when excluding target occurrence, got %d", len(eligible))
	}

	// 已关闭的场次不算占用
	occurrences[0].Closed = true
	occurrences[1].Closed = true
	req.ExcludeOccurrenceID = ""
	eligible = Filter(req, []*model.Doctor{docA, docB, docC}, nil, occurrences)
	if len(eligible) != 3 {
		t.Errorf("Expected 3 eligible doctors with closed occurrences, got %d", len(eligible))
	}
}

func TestFilter_Deterministic(t *testing.T) {
	docA := activeDoctor("00000000-0000-0000-0000-000000000001", "医生A")
	docB := activeDoctor("00000000-0000-0000-0000-000000000002", "医生B")
	docC := activeDoctor("00000000-0000-0000-0000-000000000003", "医生C")

	req := Request{Date: "2025-05-02", Weekday: time.Friday, Period: model.PeriodMorning}

	// 输入顺序不同输出顺序一致
	first := Filter(req, []*model.Doctor{docC, docA, docB}, nil, nil)
	second := Filter(req, []*model.Doctor{docB, docC, docA}, nil, nil)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("Expected 3 doctors in both results, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Expected identical order at index %d, got %s vs %s", i, first[i].Name, second[i].Name)
		}
	}
}

func TestFilterForReplacement(t *testing.T) {
	docA := activeDoctor("00000000-0000-0000-0000-000000000001", "医生A")
	docB := activeDoctor("00000000-0000-0000-0000-000000000002", "医生B")

	req := Request{Date: "2025-05-02", Weekday: time.Friday, Period: model.PeriodMorning}
	eligible := FilterForReplacement(req, docA.ID, []*model.Doctor{docA, docB}, nil, nil)

	if len(eligible) != 1 {
		t.Fatalf("Expected 1 eligible replacement, got %d", len(eligible))
	}
	if eligible[0].ID != docB.ID {
		t.Errorf("Expected doctor B as replacement, got %s", eligible[0].Name)
	}
}
