// Package policy holds the pure access decisions for cases and the records
// that hang off them. Decisions are functions of the actor and a case
// snapshot only; callers evaluate them before every mutating operation.
package policy

import (
	"github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/shared/auth"
)

// CanView decides whether the actor may read the case and its records.
// Admins see everything. The responsible examiner and the creator see their
// own cases. Assistants are granted broad view access.
func CanView(actor *auth.User, c *domain.Case) bool {
	if actor == nil || c == nil {
		return false
	}
	if actor.Role == auth.RoleAdmin {
		return true
	}
	if actor.ID == c.ResponsibleID || actor.ID == c.CreatedBy {
		return true
	}
	return actor.Role == auth.RoleAssistente
}

// CanEdit decides whether the actor may mutate the case and its records.
// A finalized case blocks edits for everyone, admins included.
func CanEdit(actor *auth.User, c *domain.Case) bool {
	if actor == nil || c == nil {
		return false
	}
	if c.Status == domain.CaseStatusFinalizado {
		return false
	}
	if actor.Role == auth.RoleAdmin {
		return true
	}
	return actor.Role == auth.RolePerito && actor.ID == c.CreatedBy
}
