package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/perito-digital/platform/internal/audit"
	"github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
	"github.com/rs/zerolog"
)

type fakeCaseRepo struct {
	cases   map[types.ID]*domain.Case
	deleted []types.ID
}

func newFakeCaseRepo(cases ...*domain.Case) *fakeCaseRepo {
	repo := &fakeCaseRepo{cases: map[types.ID]*domain.Case{}}
	for _, c := range cases {
		repo.cases[c.ID] = c
	}
	return repo
}

func (r *fakeCaseRepo) Save(ctx context.Context, c *domain.Case) error {
	r.cases[c.ID] = c
	return nil
}

func (r *fakeCaseRepo) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	c, ok := r.cases[id]
	if !ok {
		return nil, errors.NotFound("case", id.String())
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCaseRepo) Update(ctx context.Context, c *domain.Case) error {
	r.cases[c.ID] = c
	return nil
}

func (r *fakeCaseRepo) Delete(ctx context.Context, id types.ID) error {
	if _, ok := r.cases[id]; !ok {
		return errors.NotFound("case", id.String())
	}
	delete(r.cases, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeCaseRepo) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	var out []domain.Case
	for _, c := range r.cases {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *fakeCaseRepo) FindNearby(ctx context.Context, origin types.Geolocation, distanceKm float64, limit int) ([]domain.Case, error) {
	return nil, nil
}

func testHandler(t *testing.T, repo domain.Repository) (*Handler, *audit.MemoryRepository) {
	t.Helper()
	auditRepo := audit.NewMemoryRepository()
	return NewHandler(repo, audit.NewRecorder(auditRepo, zerolog.Nop())), auditRepo
}

func openCase(t *testing.T, createdBy types.ID) *domain.Case {
	t.Helper()
	c, err := domain.NewCase(
		"Exame criminal - Delegacia Central", domain.CaseTypeExameCriminal,
		"", time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), createdBy, createdBy, nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func doRequest(h *Handler, method, path string, user *auth.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(auth.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

// TestDeleteCase tests that an admin can delete an open case
func TestDeleteCase(t *testing.T) {
	admin := &auth.User{ID: types.NewID(), Name: "Admin", Role: auth.RoleAdmin}
	c := openCase(t, types.NewID())
	repo := newFakeCaseRepo(c)
	h, auditRepo := testHandler(t, repo)

	rec := doRequest(h, http.MethodDelete, "/"+c.ID.String(), admin)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.deleted) != 1 {
		t.Errorf("expected one deletion, got %d", len(repo.deleted))
	}
	if count, _ := auditRepo.Count(context.Background()); count != 1 {
		t.Errorf("expected one audit entry, got %d", count)
	}
}

// TestDeleteFinalizedCase tests that finalization blocks deletion even
// for admins
func TestDeleteFinalizedCase(t *testing.T) {
	admin := &auth.User{ID: types.NewID(), Name: "Admin", Role: auth.RoleAdmin}
	c := openCase(t, types.NewID())
	if err := c.Finalize(); err != nil {
		t.Fatal(err)
	}
	repo := newFakeCaseRepo(c)
	h, auditRepo := testHandler(t, repo)

	rec := doRequest(h, http.MethodDelete, "/"+c.ID.String(), admin)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for finalized case, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.deleted) != 0 {
		t.Error("finalized case must not be deleted")
	}
	if _, ok := repo.cases[c.ID]; !ok {
		t.Error("finalized case should still exist")
	}
	if count, _ := auditRepo.Count(context.Background()); count != 0 {
		t.Errorf("rejected deletion must not record an audit entry, got %d", count)
	}
}

// TestDeleteCaseRequiresAdmin tests the role gate on the delete route
func TestDeleteCaseRequiresAdmin(t *testing.T) {
	creator := types.NewID()
	perito := &auth.User{ID: creator, Name: "Perito", Role: auth.RolePerito}
	c := openCase(t, creator)
	repo := newFakeCaseRepo(c)
	h, _ := testHandler(t, repo)

	rec := doRequest(h, http.MethodDelete, "/"+c.ID.String(), perito)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
	if len(repo.deleted) != 0 {
		t.Error("non-admin must not delete cases")
	}
}
