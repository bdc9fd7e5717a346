package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/errors"
)

func TestOccurrenceID_EncodeParse(t *testing.T) {
	tests := []struct {
		name   string
		ruleID string
		date   string
	}{
		{"简单规则ID", "slot1", "2025-05-02"},
		{"含连字符的规则ID", "cardio-clinic-am", "2025-05-02"},
		{"含数字段的规则ID", "rcp-2024-oncology", "2025-12-31"},
		{"UUID形式的规则ID", "7b1d8a4e-3f2c-4a9b-8d6e-1f0a2b3c4d5e", "2025-01-06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := OccurrenceID{RuleID: tt.ruleID, CanonicalDate: tt.date}.Encode()
			parsed, err := ParseOccurrenceID(encoded)
			if err != nil {
				t.Fatalf("ParseOccurrenceID(%q) failed: %v", encoded, err)
			}
			if parsed.RuleID != tt.ruleID {
				t.Errorf("Expected rule ID %q, got %q", tt.ruleID, parsed.RuleID)
			}
			if parsed.CanonicalDate != tt.date {
				t.Errorf("Expected date %q, got %q", tt.date, parsed.CanonicalDate)
			}
		})
	}
}

func TestParseOccurrenceID_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"空字符串", ""},
		{"缺少日期后缀", "slot1"},
		{"日期不合法", "slot1-2025-13-45"},
		{"缺少分隔符", "slot12025-05-02"},
		{"只有日期", "2025-05-02"},
		{"规则ID为空", "-2025-05-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOccurrenceID(tt.input)
			if err == nil {
				t.Fatalf("Expected error for %q, got nil", tt.input)
			}
			if !errors.Is(err, errors.CodeMalformedOccurrenceID) {
				t.Errorf("Expected code %s, got %s", errors.CodeMalformedOccurrenceID, errors.GetCode(err))
			}
		})
	}
}

func TestOverrideMap_Get(t *testing.T) {
	doctorID := uuid.New()
	m := OverrideMap{
		"slot1-2025-05-02": ManualOverride(doctorID),
		"slot2-2025-05-02": ClosedOverride(),
	}

	if ov := m.Get("slot1-2025-05-02"); ov.Kind != OverrideManual || ov.DoctorID != doctorID {
		t.Errorf("Expected manual override for slot1, got %+v", ov)
	}
	if ov := m.Get("slot2-2025-05-02"); ov.Kind != OverrideClosed {
		t.Errorf("Expected closed override for slot2, got %+v", ov)
	}
	if ov := m.Get("unknown-2025-05-02"); ov.Kind != OverrideUnset {
		t.Errorf("Expected unset for unknown occurrence, got %+v", ov)
	}

	// nil映射同样返回unset
	var empty OverrideMap
	if ov := empty.Get("slot1-2025-05-02"); ov.Kind != OverrideUnset {
		t.Errorf("Expected unset from nil map, got %+v", ov)
	}
}

func TestOverride_Pinned(t *testing.T) {
	doctorID := uuid.New()

	if !ManualOverride(doctorID).Pinned() {
		t.Error("Expected manual override to be pinned")
	}
	if !AutoLockedOverride(doctorID).Pinned() {
		t.Error("Expected auto-locked override to be pinned")
	}
	if ClosedOverride().Pinned() {
		t.Error("Expected closed override not to be pinned")
	}
	if (Override{Kind: OverrideUnset}).Pinned() {
		t.Error("Expected unset override not to be pinned")
	}
}

func TestOccurrence_InvolvesDoctor(t *testing.T) {
	lead := uuid.New()
	second := uuid.New()
	other := uuid.New()

	occ := &Occurrence{
		DoctorID:           &lead,
		SecondaryDoctorIDs: []uuid.UUID{second},
	}

	if !occ.InvolvesDoctor(lead) {
		t.Error("Expected lead doctor to be involved")
	}
	if !occ.InvolvesDoctor(second) {
		t.Error("Expected secondary doctor to be involved")
	}
	if occ.InvolvesDoctor(other) {
		t.Error("Expected unrelated doctor not to be involved")
	}
}
