package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/perito-digital/platform/internal/audit"
	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/policy"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
	"github.com/rs/zerolog"
)

func testCase(t *testing.T, createdBy types.ID) *casedomain.Case {
	t.Helper()

	c, err := casedomain.NewCase(
		"Exumação - Cemitério Municipal", casedomain.CaseTypeExumacao,
		"exumação para identificação", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		createdBy, createdBy, nil,
	)
	if err != nil {
		t.Fatalf("failed to create case: %v", err)
	}
	return c
}

// TestNewFinalReport tests report composition and the case header
func TestNewFinalReport(t *testing.T) {
	creator := types.NewID()
	c := testCase(t, creator)
	now := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)

	report, err := NewFinalReport(c, creator, "Relatório conclusivo", "Corpo identificado por confronto odontológico.", false, now)
	if err != nil {
		t.Fatalf("failed to create report: %v", err)
	}

	if report.CaseID != c.ID {
		t.Error("report should reference its case")
	}
	if !strings.HasPrefix(report.Content, "RELATÓRIO FINAL") {
		t.Errorf("content missing standard header:\n%s", report.Content)
	}
	if !strings.Contains(report.Content, "Caso: Exumação - Cemitério Municipal") {
		t.Error("header missing case title")
	}
	if !strings.Contains(report.Content, "Data de emissão: 20/05/2026") {
		t.Error("header missing emission date")
	}
	if !strings.Contains(report.Content, "Corpo identificado por confronto odontológico.") {
		t.Error("content missing report body")
	}
}

// TestNewFinalReportValidation tests the required field checks
func TestNewFinalReportValidation(t *testing.T) {
	creator := types.NewID()
	c := testCase(t, creator)

	tests := []struct {
		name      string
		title     string
		body      string
		createdBy types.ID
	}{
		{"missing title", "", "corpo", creator},
		{"missing body", "titulo", "", creator},
		{"missing creator", "titulo", "corpo", types.ID("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFinalReport(c, tt.createdBy, tt.title, tt.body, false, time.Now()); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// TestFinalReportClosesCase tests that finalization blocks further edits
func TestFinalReportClosesCase(t *testing.T) {
	creator := types.NewID()
	c := testCase(t, creator)
	perito := &auth.User{ID: creator, Role: auth.RolePerito}
	admin := &auth.User{ID: types.NewID(), Role: auth.RoleAdmin}

	if !policy.CanEdit(perito, c) {
		t.Fatal("creator should be able to edit an open case")
	}

	if _, err := NewFinalReport(c, creator, "Relatório", "Conclusão.", true, time.Now()); err != nil {
		t.Fatalf("failed to create report: %v", err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("failed to finalize case: %v", err)
	}

	if c.Status != casedomain.CaseStatusFinalizado {
		t.Errorf("expected status finalizado, got %s", c.Status)
	}
	if c.FinalizedAt == nil {
		t.Error("finalization timestamp not set")
	}
	if policy.CanEdit(perito, c) {
		t.Error("finalized case must block edits by the creator")
	}
	if policy.CanEdit(admin, c) {
		t.Error("finalized case must block edits even for admins")
	}
	if !policy.CanView(perito, c) {
		t.Error("finalized case must remain viewable")
	}

	if err := c.Finalize(); err == nil {
		t.Error("expected error finalizing twice")
	}
}

type fakeCaseRepo struct {
	cases map[types.ID]*casedomain.Case
}

func (r *fakeCaseRepo) Save(ctx context.Context, c *casedomain.Case) error { return nil }

func (r *fakeCaseRepo) FindByID(ctx context.Context, id types.ID) (*casedomain.Case, error) {
	c, ok := r.cases[id]
	if !ok {
		return nil, errors.NotFound("case", id.String())
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCaseRepo) Update(ctx context.Context, c *casedomain.Case) error {
	r.cases[c.ID] = c
	return nil
}

func (r *fakeCaseRepo) Delete(ctx context.Context, id types.ID) error { return nil }

func (r *fakeCaseRepo) List(ctx context.Context, filter casedomain.ListFilter) ([]casedomain.Case, int, error) {
	return nil, 0, nil
}

func (r *fakeCaseRepo) FindNearby(ctx context.Context, origin types.Geolocation, distanceKm float64, limit int) ([]casedomain.Case, error) {
	return nil, nil
}

// TestCreateReportOnArchivedCase tests that an archived case rejects the
// final report with a conflict instead of an internal error
func TestCreateReportOnArchivedCase(t *testing.T) {
	creator := types.NewID()
	c := testCase(t, creator)
	if err := c.Archive(); err != nil {
		t.Fatal(err)
	}

	perito := &auth.User{ID: creator, Name: "Perito", Role: auth.RolePerito}
	caseRepo := &fakeCaseRepo{cases: map[types.ID]*casedomain.Case{c.ID: c}}
	auditRepo := audit.NewMemoryRepository()
	h := NewHandler(nil, caseRepo, audit.NewRecorder(auditRepo, zerolog.Nop()))

	body := `{"titulo":"Relatório","conteudo":"Conclusão."}`
	req := httptest.NewRequest(http.MethodPost, "/cases/"+c.ID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithUser(req.Context(), perito))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for archived case, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "CONFLICT") {
		t.Errorf("response should carry the conflict code: %s", rec.Body.String())
	}
	if c.Status != casedomain.CaseStatusArquivado {
		t.Errorf("case status must stay arquivado, got %s", c.Status)
	}
	if count, _ := auditRepo.Count(context.Background()); count != 0 {
		t.Errorf("rejected report must not record an audit entry, got %d", count)
	}
}
