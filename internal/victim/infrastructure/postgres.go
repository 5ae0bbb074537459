package infrastructure

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
	"github.com/perito-digital/platform/internal/victim/domain"
)

// PostgresRepository implements domain.Repository using PostgreSQL.
// The odontogram travels as a JSONB sub-document: it is always read and
// written whole, matching the single-document update semantics of the
// chart operations.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save saves a new victim
func (r *PostgresRepository) Save(ctx context.Context, v *domain.Victim) error {
	odontogramJSON, documentJSON, err := marshalSubDocuments(v)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO victims.victims (
			id, case_id, nic, name, gender, age,
			document, address, ethnicity,
			odontogram, anatomical_regions,
			created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err = r.pool.Exec(ctx, query,
		v.ID, v.CaseID, v.NIC, v.Name, v.Gender, v.Age,
		documentJSON, v.Address, v.Ethnicity,
		odontogramJSON, v.AnatomicalRegions,
		v.CreatedBy, v.CreatedAt, v.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("victim with this NIC already exists")
		}
		return errors.Wrap(err, "failed to save victim")
	}

	return nil
}

const victimColumns = `id, case_id, nic, name, gender, age,
		document, address, ethnicity,
		odontogram, anatomical_regions,
		created_by, created_at, updated_at`

func scanVictim(row pgx.Row) (*domain.Victim, error) {
	v := &domain.Victim{}
	var documentJSON, odontogramJSON []byte

	err := row.Scan(
		&v.ID, &v.CaseID, &v.NIC, &v.Name, &v.Gender, &v.Age,
		&documentJSON, &v.Address, &v.Ethnicity,
		&odontogramJSON, &v.AnatomicalRegions,
		&v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(documentJSON) > 0 {
		if err := json.Unmarshal(documentJSON, &v.Document); err != nil {
			v.Document = nil
		}
	}
	if len(odontogramJSON) > 0 {
		if err := json.Unmarshal(odontogramJSON, &v.Odontogram); err != nil {
			return nil, errors.Wrap(err, "failed to parse odontogram")
		}
	}

	return v, nil
}

// FindByID finds a victim by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.Victim, error) {
	query := `SELECT ` + victimColumns + ` FROM victims.victims WHERE id = $1`

	v, err := scanVictim(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("victim", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find victim")
	}

	return v, nil
}

// FindByNIC finds a victim by its unique NIC
func (r *PostgresRepository) FindByNIC(ctx context.Context, nic types.NIC) (*domain.Victim, error) {
	query := `SELECT ` + victimColumns + ` FROM victims.victims WHERE nic = $1`

	v, err := scanVictim(r.pool.QueryRow(ctx, query, nic))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("victim", string(nic))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find victim by NIC")
	}

	return v, nil
}

// FindByCase lists all victims attached to a case
func (r *PostgresRepository) FindByCase(ctx context.Context, caseID types.ID) ([]*domain.Victim, error) {
	query := `SELECT ` + victimColumns + ` FROM victims.victims WHERE case_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list victims")
	}
	defer rows.Close()

	var victims []*domain.Victim
	for rows.Next() {
		v, err := scanVictim(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan victim")
		}
		victims = append(victims, v)
	}

	return victims, nil
}

// Update updates an existing victim, odontogram included
func (r *PostgresRepository) Update(ctx context.Context, v *domain.Victim) error {
	odontogramJSON, documentJSON, err := marshalSubDocuments(v)
	if err != nil {
		return err
	}

	query := `
		UPDATE victims.victims SET
			name = $2, gender = $3, age = $4,
			document = $5, address = $6, ethnicity = $7,
			odontogram = $8, anatomical_regions = $9,
			updated_at = $10
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		v.ID, v.Name, v.Gender, v.Age,
		documentJSON, v.Address, v.Ethnicity,
		odontogramJSON, v.AnatomicalRegions,
		v.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update victim")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("victim", v.ID.String())
	}

	return nil
}

// Delete deletes a victim record
func (r *PostgresRepository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM victims.victims WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete victim")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("victim", id.String())
	}

	return nil
}

func marshalSubDocuments(v *domain.Victim) (odontogramJSON, documentJSON []byte, err error) {
	odontogramJSON, err = json.Marshal(v.Odontogram)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal odontogram")
	}

	if v.Document != nil {
		documentJSON, err = json.Marshal(v.Document)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to marshal document")
		}
	}

	return odontogramJSON, documentJSON, nil
}
