package marking

import (
	"testing"

	"github.com/perito-digital/platform/internal/shared/types"
)

func validAnatomy() Anatomy {
	return Anatomy{
		Category: CategoryCabecaCranio,
		View:     ViewAnterior,
		AgeRange: AgeAdult,
	}
}

// TestNewMarking tests creating a valid marking
func TestNewMarking(t *testing.T) {
	m, err := NewMarking(types.NewID(), TypeCicatriz, validAnatomy(), 45.5, 60.0,
		Region{Code: "frontal", Name: "Região frontal"}, "cicatriz linear de 3cm", types.NewID())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if m.Status != StatusAtivo {
		t.Errorf("expected status %s, got %s", StatusAtivo, m.Status)
	}
	if m.Color != TypeCicatriz.DefaultColor() {
		t.Errorf("expected default color for type, got %s", m.Color)
	}
	if m.Size != 8 {
		t.Errorf("expected default size 8, got %d", m.Size)
	}
}

// TestValidateViewTable tests the category/view constraint table
func TestValidateViewTable(t *testing.T) {
	tests := []struct {
		name    string
		anatomy Anatomy
		wantErr bool
	}{
		{"hands anterior rejected", Anatomy{Category: CategoryMaos, View: ViewAnterior, AgeRange: AgeAdult, Laterality: LateralityEsquerda}, true},
		{"hands palmar accepted", Anatomy{Category: CategoryMaos, View: ViewPalmar, AgeRange: AgeAdult, Laterality: LateralityEsquerda}, false},
		{"hands dorsal accepted", Anatomy{Category: CategoryMaos, View: ViewDorsal, AgeRange: AgeAdult, Laterality: LateralityDireita}, false},
		{"feet plantar accepted", Anatomy{Category: CategoryPes, View: ViewPlantar, AgeRange: AgeAdult, Laterality: LateralityDireita}, false},
		{"feet posterior rejected", Anatomy{Category: CategoryPes, View: ViewPosterior, AgeRange: AgeAdult, Laterality: LateralityDireita}, true},
		{"full body anterior accepted", Anatomy{Category: CategoryCorpoInteiro, View: ViewAnterior, AgeRange: AgeAdult, Sex: "feminino"}, false},
		{"full body superior rejected", Anatomy{Category: CategoryCorpoInteiro, View: ViewSuperior, AgeRange: AgeAdult, Sex: "feminino"}, true},
		{"skull superior accepted", Anatomy{Category: CategoryCabecaCranio, View: ViewSuperior, AgeRange: AgeAdult}, false},
		{"dental arch inferior accepted", Anatomy{Category: CategoryArcadaDentaria, View: ViewInferior, AgeRange: AgeAdult}, false},
		{"dental arch palmar rejected", Anatomy{Category: CategoryArcadaDentaria, View: ViewPalmar, AgeRange: AgeAdult}, true},
		{"unknown category rejected", Anatomy{Category: BodyCategory("tronco"), View: ViewAnterior, AgeRange: AgeAdult}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMarking(types.NewID(), TypeLesao, tt.anatomy, 50, 50, Region{}, "", types.NewID())
			if tt.wantErr && err == nil {
				t.Error("expected validation error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

// TestValidateRequiredAttributes tests sex and laterality requirements
func TestValidateRequiredAttributes(t *testing.T) {
	t.Run("full body without sex rejected", func(t *testing.T) {
		anatomy := Anatomy{Category: CategoryCorpoInteiro, View: ViewAnterior, AgeRange: AgeAdult}
		if _, err := NewMarking(types.NewID(), TypeTatuagem, anatomy, 50, 50, Region{}, "", types.NewID()); err == nil {
			t.Error("expected error for full-body marking without sex")
		}
	})

	t.Run("hands without laterality rejected", func(t *testing.T) {
		anatomy := Anatomy{Category: CategoryMaos, View: ViewPalmar, AgeRange: AgeAdult}
		if _, err := NewMarking(types.NewID(), TypeLesao, anatomy, 50, 50, Region{}, "", types.NewID()); err == nil {
			t.Error("expected error for hand marking without laterality")
		}
	})

	t.Run("feet with invalid laterality rejected", func(t *testing.T) {
		anatomy := Anatomy{Category: CategoryPes, View: ViewPlantar, AgeRange: AgeAdult, Laterality: "ambas"}
		if _, err := NewMarking(types.NewID(), TypeLesao, anatomy, 50, 50, Region{}, "", types.NewID()); err == nil {
			t.Error("expected error for invalid laterality")
		}
	})
}

// TestValidateCoordinates tests the [0,100] coordinate bounds
func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float64
		wantErr bool
	}{
		{"origin", 0, 0, false},
		{"center", 50, 50, false},
		{"max", 100, 100, false},
		{"x too high", 100.1, 50, true},
		{"y negative", 50, -0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMarking(types.NewID(), TypeLesao, validAnatomy(), tt.x, tt.y, Region{}, "", types.NewID())
			if tt.wantErr && err == nil {
				t.Error("expected coordinate error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

// TestSoftDelete tests that removal flips status without losing the record
func TestSoftDelete(t *testing.T) {
	m, err := NewMarking(types.NewID(), TypeFratura, validAnatomy(), 30, 40, Region{}, "fratura antiga", types.NewID())
	if err != nil {
		t.Fatal(err)
	}

	m.Remove()

	if m.Status != StatusRemovido {
		t.Errorf("expected status %s after removal, got %s", StatusRemovido, m.Status)
	}
	if m.Description != "fratura antiga" {
		t.Error("soft delete must keep the marking content")
	}
}

// TestGroupByAnatomy tests the per-diagram grouping
func TestGroupByAnatomy(t *testing.T) {
	victimID := types.NewID()
	creator := types.NewID()

	mk := func(anatomy Anatomy) *Marking {
		m, err := NewMarking(victimID, TypeLesao, anatomy, 50, 50, Region{}, "", creator)
		if err != nil {
			t.Fatalf("fixture marking invalid: %v", err)
		}
		return m
	}

	skullFront := Anatomy{Category: CategoryCabecaCranio, View: ViewAnterior, AgeRange: AgeAdult}
	leftHand := Anatomy{Category: CategoryMaos, View: ViewPalmar, AgeRange: AgeAdult, Laterality: LateralityEsquerda}
	rightHand := Anatomy{Category: CategoryMaos, View: ViewPalmar, AgeRange: AgeAdult, Laterality: LateralityDireita}

	removed := mk(skullFront)
	removed.Remove()

	markings := []*Marking{mk(skullFront), mk(skullFront), mk(leftHand), mk(rightHand), removed}

	groups := GroupByAnatomy(markings)

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	total := 0
	for _, g := range groups {
		total += len(g.Markings)
		for _, m := range g.Markings {
			if m.Status != StatusAtivo {
				t.Error("removed markings must not appear in groups")
			}
		}
	}
	if total != 4 {
		t.Errorf("expected 4 active markings across groups, got %d", total)
	}

	// Left and right hand diagrams are distinct groups
	handGroups := 0
	for _, g := range groups {
		if g.Key.Category == CategoryMaos {
			handGroups++
		}
	}
	if handGroups != 2 {
		t.Errorf("expected laterality to split hand groups, got %d", handGroups)
	}
}

// TestVocabulary tests the static types endpoint payload
func TestVocabulary(t *testing.T) {
	v := GetVocabulary()

	if len(v.Types) != 7 {
		t.Errorf("expected 7 marking types, got %d", len(v.Types))
	}
	if len(v.Categories) != 5 {
		t.Errorf("expected 5 body categories, got %d", len(v.Categories))
	}

	views := v.Views[CategoryMaos]
	if len(views) != 2 || views[0] != ViewPalmar || views[1] != ViewDorsal {
		t.Errorf("unexpected hand views: %v", views)
	}
}
