package dentalreport

import (
	"strings"
	"testing"
	"time"

	"github.com/perito-digital/platform/internal/shared/types"
	victimdomain "github.com/perito-digital/platform/internal/victim/domain"
)

func testVictim(t *testing.T) *victimdomain.Victim {
	t.Helper()

	v, err := victimdomain.NewVictim(
		types.NewID(), types.NIC("NIC-2026-0099"), "Desconhecido 07", "masculino", 45,
		nil, "", "", nil, types.NewID(),
	)
	if err != nil {
		t.Fatalf("failed to create victim: %v", err)
	}

	tooth, _, err := v.Odontogram.FindTooth("26")
	if err != nil {
		t.Fatal(err)
	}
	cond, _ := victimdomain.NewCondition(victimdomain.ConditionAusente, nil, "perda ante mortem", types.NewID())
	tooth.AddCondition(*cond)

	return v
}

// TestNewDentalReport tests emission from the current chart
func TestNewDentalReport(t *testing.T) {
	victim := testVictim(t)
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	report, err := NewDentalReport(victim, types.NewID(), "sem achados adicionais", "compatível com a documentação apresentada", now)
	if err != nil {
		t.Fatalf("failed to create report: %v", err)
	}

	if report.CaseID != victim.CaseID {
		t.Error("report should inherit the victim's case")
	}
	if !strings.Contains(report.FullText, "Dente 26 - Ausente") {
		t.Errorf("rendered text missing tooth finding:\n%s", report.FullText)
	}
	if !strings.Contains(report.FullText, "PARECER TÉCNICO") {
		t.Error("rendered text missing parecer section")
	}
	if len(report.Quadrants) != 4 {
		t.Errorf("expected 4 quadrants in breakdown, got %d", len(report.Quadrants))
	}
}

// TestNewDentalReportRequiresOpinion tests the mandatory parecer
func TestNewDentalReportRequiresOpinion(t *testing.T) {
	victim := testVictim(t)

	if _, err := NewDentalReport(victim, types.NewID(), "obs", "", time.Now()); err == nil {
		t.Error("expected validation error for empty parecer")
	}
}

// TestSnapshotIsFrozen tests that later chart edits never change an issued report
func TestSnapshotIsFrozen(t *testing.T) {
	victim := testVictim(t)
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	report, err := NewDentalReport(victim, types.NewID(), "", "parecer original", now)
	if err != nil {
		t.Fatal(err)
	}
	textBefore := report.FullText

	// Mutate the live chart after emission
	tooth, _, _ := victim.Odontogram.FindTooth("11")
	cond, _ := victimdomain.NewCondition(victimdomain.ConditionFraturado, nil, "fratura recente", types.NewID())
	tooth.AddCondition(*cond)

	if report.FullText != textBefore {
		t.Error("issued report text changed after chart edit")
	}

	snapTooth, _, err := report.OdontogramSnapshot.FindTooth("11")
	if err != nil {
		t.Fatal(err)
	}
	if len(snapTooth.Conditions) != 0 {
		t.Error("snapshot should not reflect post-emission chart edits")
	}
}

// TestReviseRendersFromSnapshot tests that revision uses the frozen chart
func TestReviseRendersFromSnapshot(t *testing.T) {
	victim := testVictim(t)
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	report, err := NewDentalReport(victim, types.NewID(), "", "parecer original", now)
	if err != nil {
		t.Fatal(err)
	}

	// Chart gains a finding between emission and revision
	tooth, _, _ := victim.Odontogram.FindTooth("11")
	cond, _ := victimdomain.NewCondition(victimdomain.ConditionFraturado, nil, "", types.NewID())
	tooth.AddCondition(*cond)

	if err := report.Revise(victim, "novas observações", "parecer revisado", now.Add(time.Hour)); err != nil {
		t.Fatalf("failed to revise report: %v", err)
	}

	if !strings.Contains(report.FullText, "parecer revisado") {
		t.Error("revised text missing new parecer")
	}
	if strings.Contains(report.FullText, "Dente 11") {
		t.Error("revised text must not pick up post-emission chart edits")
	}

	if err := report.Revise(victim, "", "", now); err == nil {
		t.Error("expected validation error revising with empty parecer")
	}
}
