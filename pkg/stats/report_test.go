package stats

import (
	"math"
	"testing"

	"github.com/medroster/medroster/pkg/model"
)

func TestBuildReport(t *testing.T) {
	rp := NewReporter()
	docA := testDoctor("01", "医生A")
	docB := testDoctor("02", "医生B")
	docB.EmploymentFactor = 0.5
	docC := testDoctor("03", "医生C")
	docC.Status = "inactive"

	ledger := model.NewEquityLedger()
	ledger.Add(docA.ID, "consultations", 4)
	ledger.Add(docB.ID, "consultations", 1)

	report := rp.BuildReport(ledger, []*model.Doctor{docA, docB, docC}, "2025-04-28", "2025-05-11")

	if len(report.Groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(report.Groups))
	}
	group := report.Groups[0]
	if group.Group != "consultations" {
		t.Errorf("Expected group consultations, got %s", group.Group)
	}

	// 不在职的C不计入，A加权4.0，B加权2.0，按加权分数降序
	if len(group.Doctors) != 2 {
		t.Fatalf("Expected 2 doctors, got %d", len(group.Doctors))
	}
	if group.Doctors[0].DoctorID != docA.ID || group.Doctors[0].WeightedScore != 4.0 {
		t.Errorf("Expected doctor A first with score 4.0, got %s %v",
			group.Doctors[0].DoctorName, group.Doctors[0].WeightedScore)
	}
	if group.Doctors[1].WeightedScore != 2.0 {
		t.Errorf("Expected doctor B score 2.0, got %v", group.Doctors[1].WeightedScore)
	}

	if group.AvgWeighted != 3.0 {
		t.Errorf("Expected average 3.0, got %v", group.AvgWeighted)
	}
	if group.MaxWeighted != 4.0 || group.MinWeighted != 2.0 {
		t.Errorf("Expected range 2.0-4.0, got %v-%v", group.MinWeighted, group.MaxWeighted)
	}

	// A偏差 +33.3%，B偏差 -33.3%
	if math.Abs(group.Doctors[0].Deviation-33.33) > 0.1 {
		t.Errorf("Expected deviation about +33.3%%, got %v", group.Doctors[0].Deviation)
	}
	if math.Abs(group.Doctors[1].Deviation+33.33) > 0.1 {
		t.Errorf("Expected deviation about -33.3%%, got %v", group.Doctors[1].Deviation)
	}
}

func TestBuildReport_IncludesZeroCountDoctors(t *testing.T) {
	rp := NewReporter()
	docA := testDoctor("01", "医生A")
	docB := testDoctor("02", "医生B")

	// B零计数同样出现在分组中并参与统计
	ledger := model.NewEquityLedger()
	ledger.Add(docA.ID, "on_call", 2)

	report := rp.BuildReport(ledger, []*model.Doctor{docA, docB}, "2025-04-28", "2025-05-04")
	group := report.Groups[0]

	if len(group.Doctors) != 2 {
		t.Fatalf("Expected 2 doctors including zero count, got %d", len(group.Doctors))
	}
	if group.Doctors[1].DoctorID != docB.ID || group.Doctors[1].Count != 0 {
		t.Errorf("Expected doctor B with zero count, got %+v", group.Doctors[1])
	}
	if group.Gini <= 0 {
		t.Errorf("Expected positive Gini for uneven distribution, got %v", group.Gini)
	}
}

func TestGini(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"空列表", nil, 0},
		{"完全均衡", []float64{2, 2, 2, 2}, 0},
		{"全零", []float64{0, 0, 0}, 0},
		{"完全集中", []float64{0, 0, 0, 12}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gini(tt.values)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
