package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/perito-digital/platform/internal/shared/types"
)

// TestInitializeAdultOdontogram tests the canonical adult FDI chart
func TestInitializeAdultOdontogram(t *testing.T) {
	o, err := InitializeOdontogram(SchemeAdult)
	if err != nil {
		t.Fatalf("failed to initialize odontogram: %v", err)
	}

	if len(o.UpperArch) != 16 {
		t.Errorf("expected 16 upper teeth, got %d", len(o.UpperArch))
	}
	if len(o.LowerArch) != 16 {
		t.Errorf("expected 16 lower teeth, got %d", len(o.LowerArch))
	}

	wantUpper := []string{"18", "17", "16", "15", "14", "13", "12", "11", "21", "22", "23", "24", "25", "26", "27", "28"}
	for i, num := range wantUpper {
		if o.UpperArch[i].Number != num {
			t.Errorf("upper arch position %d: expected %s, got %s", i, num, o.UpperArch[i].Number)
		}
	}

	wantLower := []string{"48", "47", "46", "45", "44", "43", "42", "41", "31", "32", "33", "34", "35", "36", "37", "38"}
	for i, num := range wantLower {
		if o.LowerArch[i].Number != num {
			t.Errorf("lower arch position %d: expected %s, got %s", i, num, o.LowerArch[i].Number)
		}
	}

	for _, tooth := range append(o.UpperArch, o.LowerArch...) {
		if !tooth.Present {
			t.Errorf("tooth %s should start present", tooth.Number)
		}
		if len(tooth.Conditions) != 0 {
			t.Errorf("tooth %s should start with no conditions", tooth.Number)
		}
	}
}

// TestInitializeChildOdontogram tests the deciduous chart
func TestInitializeChildOdontogram(t *testing.T) {
	o, err := InitializeOdontogram(SchemeChild)
	if err != nil {
		t.Fatalf("failed to initialize odontogram: %v", err)
	}

	if len(o.UpperArch) != 10 {
		t.Errorf("expected 10 upper deciduous teeth, got %d", len(o.UpperArch))
	}
	if len(o.LowerArch) != 10 {
		t.Errorf("expected 10 lower deciduous teeth, got %d", len(o.LowerArch))
	}

	if o.UpperArch[0].Number != "55" || o.UpperArch[9].Number != "65" {
		t.Errorf("unexpected upper deciduous range: %s..%s", o.UpperArch[0].Number, o.UpperArch[9].Number)
	}
	if o.LowerArch[0].Number != "85" || o.LowerArch[9].Number != "75" {
		t.Errorf("unexpected lower deciduous range: %s..%s", o.LowerArch[0].Number, o.LowerArch[9].Number)
	}
}

// TestInitializeUnknownScheme tests that unknown schemes are rejected
func TestInitializeUnknownScheme(t *testing.T) {
	if _, err := InitializeOdontogram(Scheme("misto")); err == nil {
		t.Error("expected error for unknown scheme")
	}
}

// TestFindTooth tests arch resolution by FDI number
func TestFindTooth(t *testing.T) {
	o, _ := InitializeOdontogram(SchemeAdult)

	tests := []struct {
		number   string
		wantArch string
		wantErr  bool
	}{
		{"18", ArchUpper, false},
		{"11", ArchUpper, false},
		{"28", ArchUpper, false},
		{"48", ArchLower, false},
		{"31", ArchLower, false},
		{"38", ArchLower, false},
		{"55", "", true}, // deciduous number on adult chart
		{"99", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run("tooth "+tt.number, func(t *testing.T) {
			tooth, arch, err := o.FindTooth(tt.number)

			if tt.wantErr {
				if err == nil {
					t.Error("expected not found error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if arch != tt.wantArch {
				t.Errorf("expected arch %s, got %s", tt.wantArch, arch)
			}
			if tooth.Number != tt.number {
				t.Errorf("expected tooth %s, got %s", tt.number, tooth.Number)
			}
		})
	}
}

// TestConditionRoundTrip tests that add followed by remove restores the tooth
func TestConditionRoundTrip(t *testing.T) {
	o, _ := InitializeOdontogram(SchemeAdult)
	tooth, _, err := o.FindTooth("16")
	if err != nil {
		t.Fatal(err)
	}

	existing, err := NewCondition(ConditionRestaurado, []Face{FaceOclusal}, "restauração antiga", types.NewID())
	if err != nil {
		t.Fatal(err)
	}
	tooth.AddCondition(*existing)

	added, err := NewCondition(ConditionCariado, []Face{FaceMesial, FaceOclusal}, "cárie profunda", types.NewID())
	if err != nil {
		t.Fatal(err)
	}
	tooth.AddCondition(*added)

	if len(tooth.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(tooth.Conditions))
	}

	if err := tooth.RemoveCondition(added.ID); err != nil {
		t.Fatalf("failed to remove condition: %v", err)
	}

	if len(tooth.Conditions) != 1 || tooth.Conditions[0].ID != existing.ID {
		t.Error("expected tooth restored to its prior condition list")
	}

	if err := tooth.RemoveCondition(added.ID); err == nil {
		t.Error("expected not found when removing twice")
	}
}

// TestConditionValidation tests rejection of unknown types and faces
func TestConditionValidation(t *testing.T) {
	if _, err := NewCondition(ConditionType("desconhecido"), nil, "", types.NewID()); err == nil {
		t.Error("expected error for unknown condition type")
	}
	if _, err := NewCondition(ConditionCariado, []Face{Face("frontal")}, "", types.NewID()); err == nil {
		t.Error("expected error for unknown face")
	}
}

// TestPartitionByQuadrant tests the derived quadrant grouping
func TestPartitionByQuadrant(t *testing.T) {
	o, _ := InitializeOdontogram(SchemeAdult)

	mark := func(number string) {
		tooth, _, err := o.FindTooth(number)
		if err != nil {
			t.Fatal(err)
		}
		cond, _ := NewCondition(ConditionCariado, nil, "", types.NewID())
		tooth.AddCondition(*cond)
	}

	mark("18") // upper right
	mark("11") // upper right
	mark("21") // upper left
	mark("48") // lower right
	mark("31") // lower left

	quadrants := o.PartitionByQuadrant()
	if len(quadrants) != 4 {
		t.Fatalf("expected 4 quadrants, got %d", len(quadrants))
	}

	seen := map[string]int{}
	withConditions := 0
	for _, q := range quadrants {
		for _, tooth := range q.Teeth {
			seen[tooth.Number]++
			if len(tooth.Conditions) == 0 {
				t.Errorf("tooth %s without conditions should be omitted", tooth.Number)
			}
			withConditions++
		}
	}

	for num, count := range seen {
		if count != 1 {
			t.Errorf("tooth %s appears in %d quadrants", num, count)
		}
	}
	if withConditions != 5 {
		t.Errorf("expected 5 teeth across quadrants, got %d", withConditions)
	}

	// Quadrant membership and ascending order
	if quadrants[0].Code != QuadrantUpperRight || len(quadrants[0].Teeth) != 2 {
		t.Errorf("expected 2 teeth in upper right, got %d", len(quadrants[0].Teeth))
	}
	if quadrants[0].Teeth[0].Number != "11" || quadrants[0].Teeth[1].Number != "18" {
		t.Error("expected upper right teeth sorted ascending")
	}
	if len(quadrants[1].Teeth) != 1 || quadrants[1].Teeth[0].Number != "21" {
		t.Error("expected tooth 21 alone in upper left")
	}
	if len(quadrants[2].Teeth) != 1 || quadrants[2].Teeth[0].Number != "48" {
		t.Error("expected tooth 48 alone in lower right")
	}
	if len(quadrants[3].Teeth) != 1 || quadrants[3].Teeth[0].Number != "31" {
		t.Error("expected tooth 31 alone in lower left")
	}
}

func renderFixture(t *testing.T) (*Victim, *Odontogram) {
	t.Helper()

	o, _ := InitializeOdontogram(SchemeAdult)
	tooth, _, err := o.FindTooth("16")
	if err != nil {
		t.Fatal(err)
	}

	cond, _ := NewCondition(ConditionCariado, []Face{FaceMesial, FaceOclusal}, "cárie extensa", types.NewID())
	tooth.AddCondition(*cond)

	victim := &Victim{
		Name:   "Desconhecida 04",
		NIC:    types.NIC("NIC-2026-0412"),
		Gender: "feminino",
		Age:    34,
	}

	return victim, o
}

// TestRenderReportTextDeterministic tests byte-identical output under a fixed clock
func TestRenderReportTextDeterministic(t *testing.T) {
	victim, o := renderFixture(t)
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	first := RenderReportText(victim, o, "sem outras alterações", "compatível com os registros ante mortem", now)
	second := RenderReportText(victim, o, "sem outras alterações", "compatível com os registros ante mortem", now)

	if first != second {
		t.Error("expected deterministic output for fixed inputs and clock")
	}
}

// TestRenderReportTextLayout tests the sections of the rendered laudo
func TestRenderReportTextLayout(t *testing.T) {
	victim, o := renderFixture(t)
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	text := RenderReportText(victim, o, "obs gerais", "parecer conclusivo", now)

	for _, want := range []string{
		"LAUDO ODONTOLÓGICO",
		"Nome: Desconhecida 04",
		"NIC: NIC-2026-0412",
		"QUADRANTE SUPERIOR DIREITO",
		"Dente 16 - Cariado (mesial, oclusal): cárie extensa",
		"OBSERVAÇÕES\nobs gerais",
		"PARECER TÉCNICO\nparecer conclusivo",
		"Data do exame: 15/03/2026",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}

	// Empty quadrants are omitted entirely
	for _, absent := range []string{"QUADRANTE SUPERIOR ESQUERDO", "QUADRANTE INFERIOR DIREITO", "QUADRANTE INFERIOR ESQUERDO"} {
		if strings.Contains(text, absent) {
			t.Errorf("rendered text should omit empty quadrant %q", absent)
		}
	}
}

// TestRenderReportTextUsesExamDate tests that a recorded exam date wins over the clock
func TestRenderReportTextUsesExamDate(t *testing.T) {
	victim, o := renderFixture(t)
	examDate := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	o.ExamDate = &examDate

	text := RenderReportText(victim, o, "", "parecer", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(text, "Data do exame: 02/01/2026") {
		t.Error("expected exam date from the chart, not the clock")
	}
}

// TestNewVictimAutoInitializesOdontogram tests the 32-tooth default chart
func TestNewVictimAutoInitializesOdontogram(t *testing.T) {
	v, err := NewVictim(types.NewID(), types.NIC("NIC-000123"), "Desconhecido 01", "masculino", 40, nil, "", "", nil, types.NewID())
	if err != nil {
		t.Fatalf("failed to create victim: %v", err)
	}

	total := len(v.Odontogram.UpperArch) + len(v.Odontogram.LowerArch)
	if total != 32 {
		t.Errorf("expected 32 pre-populated teeth, got %d", total)
	}
	for _, tooth := range append(v.Odontogram.UpperArch, v.Odontogram.LowerArch...) {
		if !tooth.Present {
			t.Errorf("tooth %s should be present by default", tooth.Number)
		}
	}
}

// TestNewVictimValidation tests required fields
func TestNewVictimValidation(t *testing.T) {
	caseID := types.NewID()
	creator := types.NewID()

	tests := []struct {
		name        string
		caseID      types.ID
		nic         types.NIC
		victimName  string
		age         int
		expectError bool
	}{
		{"missing case", types.ID(""), types.NIC("NIC-000123"), "Nome", 30, true},
		{"missing NIC", caseID, types.NIC(""), "Nome", 30, true},
		{"missing name", caseID, types.NIC("NIC-000123"), "", 30, true},
		{"negative age", caseID, types.NIC("NIC-000123"), "Nome", -1, true},
		{"valid", caseID, types.NIC("NIC-000123"), "Nome", 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVictim(tt.caseID, tt.nic, tt.victimName, "", tt.age, nil, "", "", nil, creator)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}
