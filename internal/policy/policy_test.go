package policy

import (
	"testing"
	"time"

	"github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/types"
)

func newTestCase(t *testing.T, createdBy, responsible types.ID, status domain.CaseStatus) *domain.Case {
	t.Helper()

	c, err := domain.NewCase("Exame pericial", domain.CaseTypeAcidente, "", time.Now(), responsible, createdBy, nil)
	if err != nil {
		t.Fatalf("failed to create case: %v", err)
	}
	c.Status = status
	return c
}

func TestCanEdit(t *testing.T) {
	creator := types.NewID()
	responsible := types.NewID()
	other := types.NewID()

	tests := []struct {
		name   string
		actor  *auth.User
		status domain.CaseStatus
		want   bool
	}{
		{"admin edits open case", &auth.User{ID: other, Role: auth.RoleAdmin}, domain.CaseStatusEmAndamento, true},
		{"finalized blocks admin", &auth.User{ID: other, Role: auth.RoleAdmin}, domain.CaseStatusFinalizado, false},
		{"finalized blocks creator", &auth.User{ID: creator, Role: auth.RolePerito}, domain.CaseStatusFinalizado, false},
		{"creator perito edits own case", &auth.User{ID: creator, Role: auth.RolePerito}, domain.CaseStatusEmAndamento, true},
		{"other perito cannot edit", &auth.User{ID: other, Role: auth.RolePerito}, domain.CaseStatusEmAndamento, false},
		{"assistant cannot edit", &auth.User{ID: creator, Role: auth.RoleAssistente}, domain.CaseStatusEmAndamento, false},
		{"nil actor", nil, domain.CaseStatusEmAndamento, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCase(t, creator, responsible, tt.status)
			if got := CanEdit(tt.actor, c); got != tt.want {
				t.Errorf("CanEdit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanView(t *testing.T) {
	creator := types.NewID()
	responsible := types.NewID()
	other := types.NewID()

	tests := []struct {
		name  string
		actor *auth.User
		want  bool
	}{
		{"admin views any case", &auth.User{ID: other, Role: auth.RoleAdmin}, true},
		{"creator views own case", &auth.User{ID: creator, Role: auth.RolePerito}, true},
		{"responsible views own case", &auth.User{ID: responsible, Role: auth.RolePerito}, true},
		{"assistant views any case", &auth.User{ID: other, Role: auth.RoleAssistente}, true},
		{"unrelated perito cannot view", &auth.User{ID: other, Role: auth.RolePerito}, false},
		{"nil actor", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCase(t, creator, responsible, domain.CaseStatusEmAndamento)
			if got := CanView(tt.actor, c); got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewFinalizedCase(t *testing.T) {
	creator := types.NewID()
	c := newTestCase(t, creator, creator, domain.CaseStatusFinalizado)

	// Finalization blocks edits, never reads
	actor := &auth.User{ID: creator, Role: auth.RolePerito}
	if !CanView(actor, c) {
		t.Error("creator should still view a finalized case")
	}
	if CanEdit(actor, c) {
		t.Error("no one edits a finalized case")
	}
}
