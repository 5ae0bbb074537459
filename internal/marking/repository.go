package marking

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Repository provides marking storage operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new marking repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save saves a new marking
func (r *Repository) Save(ctx context.Context, m *Marking) error {
	anatomyJSON, err := json.Marshal(m.Anatomy)
	if err != nil {
		return errors.Wrap(err, "failed to marshal anatomy")
	}
	regionJSON, err := json.Marshal(m.Region)
	if err != nil {
		return errors.Wrap(err, "failed to marshal region")
	}

	query := `
		INSERT INTO markings.markings (
			id, victim_id, type, anatomy, x, y, region,
			description, notes, color, size,
			created_by, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	_, err = r.pool.Exec(ctx, query,
		m.ID, m.VictimID, m.Type, anatomyJSON, m.X, m.Y, regionJSON,
		m.Description, m.Notes, m.Color, m.Size,
		m.CreatedBy, m.Status, m.CreatedAt, m.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to save marking")
	}

	return nil
}

const markingColumns = `id, victim_id, type, anatomy, x, y, region,
		description, notes, color, size,
		created_by, status, created_at, updated_at`

func scanMarking(row pgx.Row) (*Marking, error) {
	m := &Marking{}
	var anatomyJSON, regionJSON []byte

	err := row.Scan(
		&m.ID, &m.VictimID, &m.Type, &anatomyJSON, &m.X, &m.Y, &regionJSON,
		&m.Description, &m.Notes, &m.Color, &m.Size,
		&m.CreatedBy, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(anatomyJSON, &m.Anatomy); err != nil {
		return nil, errors.Wrap(err, "failed to parse anatomy")
	}
	if len(regionJSON) > 0 {
		if err := json.Unmarshal(regionJSON, &m.Region); err != nil {
			m.Region = Region{}
		}
	}

	return m, nil
}

// FindByID finds a marking by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Marking, error) {
	query := `SELECT ` + markingColumns + ` FROM markings.markings WHERE id = $1`

	m, err := scanMarking(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("marking", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find marking")
	}

	return m, nil
}

// FindByVictim lists markings for a victim. By default only active
// markings are returned; includeRemoved pulls the full history.
func (r *Repository) FindByVictim(ctx context.Context, victimID types.ID, includeRemoved bool) ([]*Marking, error) {
	query := `SELECT ` + markingColumns + ` FROM markings.markings WHERE victim_id = $1`
	if !includeRemoved {
		query += ` AND status = 'ativo'`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, victimID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list markings")
	}
	defer rows.Close()

	var markings []*Marking
	for rows.Next() {
		m, err := scanMarking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan marking")
		}
		markings = append(markings, m)
	}

	return markings, nil
}

// Update updates an existing marking
func (r *Repository) Update(ctx context.Context, m *Marking) error {
	anatomyJSON, err := json.Marshal(m.Anatomy)
	if err != nil {
		return errors.Wrap(err, "failed to marshal anatomy")
	}
	regionJSON, err := json.Marshal(m.Region)
	if err != nil {
		return errors.Wrap(err, "failed to marshal region")
	}

	query := `
		UPDATE markings.markings SET
			type = $2, anatomy = $3, x = $4, y = $5, region = $6,
			description = $7, notes = $8, color = $9, size = $10,
			status = $11, updated_at = $12
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		m.ID, m.Type, anatomyJSON, m.X, m.Y, regionJSON,
		m.Description, m.Notes, m.Color, m.Size,
		m.Status, m.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update marking")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("marking", m.ID.String())
	}

	return nil
}
