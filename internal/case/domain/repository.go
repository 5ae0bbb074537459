package domain

import (
	"context"

	"github.com/perito-digital/platform/internal/shared/types"
)

// Repository defines the interface for case persistence
type Repository interface {
	Save(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, id types.ID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	Delete(ctx context.Context, id types.ID) error

	// Query operations
	List(ctx context.Context, filter ListFilter) ([]Case, int, error)
	FindNearby(ctx context.Context, origin types.Geolocation, distanceKm float64, limit int) ([]Case, error)
}

// ListFilter defines filters for listing cases
type ListFilter struct {
	Type          *CaseType   `json:"tipo,omitempty"`
	Status        *CaseStatus `json:"status,omitempty"`
	ResponsibleID *types.ID   `json:"responsavel,omitempty"`
	CreatedBy     *types.ID   `json:"criado_por,omitempty"`
	Search        string      `json:"search,omitempty"`
	Limit         int         `json:"limit,omitempty"`
	Offset        int         `json:"offset,omitempty"`
	OrderBy       string      `json:"order_by,omitempty"`
	OrderDesc     bool        `json:"order_desc,omitempty"`
}
