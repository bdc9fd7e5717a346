package validator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/model"
)

func testDoctor(seq string, name string) *model.Doctor {
	return &model.Doctor{
		BaseModel:        model.BaseModel{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000" + seq)},
		Name:             name,
		Status:           "active",
		EmploymentFactor: 1.0,
	}
}

func occurrenceWithDoctor(ruleID, date string, period model.Period, doctorID uuid.UUID) *model.Occurrence {
	id := doctorID
	return &model.Occurrence{
		ID:            ruleID + "-" + date,
		RuleID:        ruleID,
		CanonicalDate: date,
		Date:          date,
		Weekday:       time.Tuesday,
		Period:        period,
		DoctorID:      &id,
	}
}

func TestDetectAll_NoConflicts(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")
	docB := testDoctor("02", "医生B")

	occurrences := []*model.Occurrence{
		occurrenceWithDoctor("cardio-am", "2025-04-29", model.PeriodMorning, docA.ID),
		occurrenceWithDoctor("echo-am", "2025-04-29", model.PeriodMorning, docB.ID),
		occurrenceWithDoctor("cardio-pm", "2025-04-29", model.PeriodAfternoon, docA.ID),
	}

	conflicts := d.DetectAll(occurrences, nil, []*model.Doctor{docA, docB}, nil)
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("Conflict: %s", c.Message)
		}
	}
}

func TestDetectAll_DoubleBooking(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")

	// 同一医生周二上午两处排班，每个被卷入的场次各产生一条冲突
	occurrences := []*model.Occurrence{
		occurrenceWithDoctor("cardio-am", "2025-04-29", model.PeriodMorning, docA.ID),
		occurrenceWithDoctor("echo-am", "2025-04-29", model.PeriodMorning, docA.ID),
	}

	conflicts := d.DetectAll(occurrences, nil, []*model.Doctor{docA}, nil)
	if len(conflicts) != 2 {
		t.Fatalf("Expected 2 conflicts, got %d", len(conflicts))
	}
	for _, c := range conflicts {
		if c.Kind != ConflictDoubleBooking {
			t.Errorf("Expected double booking conflict, got %s", c.Kind)
		}
		if c.DoctorID != docA.ID {
			t.Errorf("Expected doctor A implicated, got %s", c.DoctorID)
		}
		if len(c.Related) != 1 {
			t.Errorf("Expected 1 related occurrence, got %d", len(c.Related))
		}
	}
}

func TestDetectAll_DoubleBookingViaParticipant(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")
	docB := testDoctor("02", "医生B")

	// A以参与者身份出现在RCP中，同时段又有主排班
	rcp := &model.Occurrence{
		ID:                 "rcp-onco-2025-04-29",
		RuleID:             "rcp-onco",
		CanonicalDate:      "2025-04-29",
		Date:               "2025-04-29",
		Weekday:            time.Tuesday,
		Period:             model.PeriodMorning,
		IsRCP:              true,
		SecondaryDoctorIDs: []uuid.UUID{docA.ID},
	}
	bID := docB.ID
	rcp.DoctorID = &bID

	occurrences := []*model.Occurrence{
		occurrenceWithDoctor("cardio-am", "2025-04-29", model.PeriodMorning, docA.ID),
		rcp,
	}

	conflicts := d.DetectAll(occurrences, nil, []*model.Doctor{docA, docB}, nil)
	if len(conflicts) != 2 {
		t.Fatalf("Expected 2 conflicts, got %d", len(conflicts))
	}
	for _, c := range conflicts {
		if c.DoctorID != docA.ID {
			t.Errorf("Expected doctor A implicated, got %s", c.DoctorID)
		}
	}
}

func TestDetectAll_DoubleBookingTolerance(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")

	makeOccs := func() []*model.Occurrence {
		a := occurrenceWithDoctor("board-1", "2025-04-29", model.PeriodMorning, docA.ID)
		a.ActivityID = "board"
		b := occurrenceWithDoctor("board-2", "2025-04-29", model.PeriodMorning, docA.ID)
		b.ActivityID = "board"
		return []*model.Occurrence{a, b}
	}

	// 全部活动显式容忍时不报冲突
	tolerant := []*model.ActivityDefinition{
		{ID: "board", AllowDoubleBooking: true},
	}
	conflicts := d.DetectAll(makeOccs(), nil, []*model.Doctor{docA}, tolerant)
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts with tolerant activities, got %d", len(conflicts))
	}

	// 任一活动不容忍即报冲突
	strict := []*model.ActivityDefinition{
		{ID: "board", AllowDoubleBooking: false},
	}
	conflicts = d.DetectAll(makeOccs(), nil, []*model.Doctor{docA}, strict)
	if len(conflicts) != 2 {
		t.Errorf("Expected 2 conflicts with strict activities, got %d", len(conflicts))
	}
}

func TestDetectAll_ClosedOccurrencesIgnored(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")

	first := occurrenceWithDoctor("cardio-am", "2025-04-29", model.PeriodMorning, docA.ID)
	second := occurrenceWithDoctor("echo-am", "2025-04-29", model.PeriodMorning, docA.ID)
	second.Closed = true

	conflicts := d.DetectAll([]*model.Occurrence{first, second}, nil, []*model.Doctor{docA}, nil)
	if len(conflicts) != 0 {
		t.Errorf("Expected closed occurrence excluded from detection, got %d conflicts", len(conflicts))
	}
}

func TestDetectAll_Unavailable(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")

	// 手工覆盖把A排进了其不可用时段
	occurrences := []*model.Occurrence{
		occurrenceWithDoctor("cardio-am", "2025-04-29", model.PeriodMorning, docA.ID),
	}
	unavailabilities := []*model.Unavailability{
		{DoctorID: docA.ID, StartDate: "2025-04-29", EndDate: "2025-04-29", Period: model.PeriodFullDay},
	}

	conflicts := d.DetectAll(occurrences, unavailabilities, []*model.Doctor{docA}, nil)
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Kind != ConflictUnavailable {
		t.Errorf("Expected unavailable conflict, got %s", conflicts[0].Kind)
	}
}

func TestDetectAll_CompetenceMismatch(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")
	docA.ExcludedSlotTypes = []string{"echo"}

	occ := occurrenceWithDoctor("echo-am", "2025-04-29", model.PeriodMorning, docA.ID)
	occ.SlotType = "echo"

	conflicts := d.DetectAll([]*model.Occurrence{occ}, nil, []*model.Doctor{docA}, nil)
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Kind != ConflictCompetence {
		t.Errorf("Expected competence conflict, got %s", conflicts[0].Kind)
	}
}

func TestOtherOccurrence_Symmetry(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")

	first := occurrenceWithDoctor("cardio-am", "2025-04-29", model.PeriodMorning, docA.ID)
	second := occurrenceWithDoctor("echo-am", "2025-04-29", model.PeriodMorning, docA.ID)
	occurrences := []*model.Occurrence{first, second}

	// 从A查到B，从B查到A
	if other := d.OtherOccurrence(occurrences, first.ID, docA.ID); other == nil || other.ID != second.ID {
		t.Error("Expected symmetric query from first to return second")
	}
	if other := d.OtherOccurrence(occurrences, second.ID, docA.ID); other == nil || other.ID != first.ID {
		t.Error("Expected symmetric query from second to return first")
	}

	// 未卷入的医生和未知场次返回nil
	if other := d.OtherOccurrence(occurrences, first.ID, uuid.New()); other != nil {
		t.Error("Expected nil for uninvolved doctor")
	}
	if other := d.OtherOccurrence(occurrences, "unknown-2025-04-29", docA.ID); other != nil {
		t.Error("Expected nil for unknown occurrence")
	}
}

func TestDetectAll_Deterministic(t *testing.T) {
	d := NewDetector()
	docA := testDoctor("01", "医生A")
	docB := testDoctor("02", "医生B")

	occurrences := []*model.Occurrence{
		occurrenceWithDoctor("cardio-am", "2025-04-29", model.PeriodMorning, docA.ID),
		occurrenceWithDoctor("echo-am", "2025-04-29", model.PeriodMorning, docA.ID),
		occurrenceWithDoctor("ward-am", "2025-04-29", model.PeriodMorning, docB.ID),
		occurrenceWithDoctor("mri-am", "2025-04-29", model.PeriodMorning, docB.ID),
	}
	roster := []*model.Doctor{docA, docB}

	first := d.DetectAll(occurrences, nil, roster, nil)
	second := d.DetectAll(occurrences, nil, roster, nil)

	if len(first) != len(second) {
		t.Fatalf("Expected identical conflict counts, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Expected identical order at index %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}
