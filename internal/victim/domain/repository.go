package domain

import (
	"context"

	"github.com/perito-digital/platform/internal/shared/types"
)

// Repository defines victim storage operations
type Repository interface {
	// Save persists a new victim. A duplicate NIC yields a conflict error.
	Save(ctx context.Context, victim *Victim) error

	// FindByID finds a victim by ID
	FindByID(ctx context.Context, id types.ID) (*Victim, error)

	// FindByNIC finds a victim by its unique NIC
	FindByNIC(ctx context.Context, nic types.NIC) (*Victim, error)

	// FindByCase lists all victims attached to a case
	FindByCase(ctx context.Context, caseID types.ID) ([]*Victim, error)

	// Update persists changes to an existing victim, odontogram included
	Update(ctx context.Context, victim *Victim) error

	// Delete removes a victim record
	Delete(ctx context.Context, id types.ID) error
}
