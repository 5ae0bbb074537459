package evidence

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Repository provides evidence storage operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new evidence repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const evidenceColumns = `
	id, case_id, title, description, collection_site, collection_date,
	file_type, blob_key, content_type, file_size, file_hash,
	location, uploaded_by, created_at, updated_at`

func scanEvidence(row pgx.Row) (*Evidence, error) {
	e := &Evidence{}
	var locationJSON []byte

	err := row.Scan(
		&e.ID, &e.CaseID, &e.Title, &e.Description, &e.CollectionSite, &e.CollectionDate,
		&e.FileType, &e.BlobKey, &e.ContentType, &e.FileSize, &e.FileHash,
		&locationJSON, &e.UploadedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(locationJSON) > 0 {
		if err := json.Unmarshal(locationJSON, &e.Location); err != nil {
			return nil, errors.Wrap(err, "failed to decode evidence location")
		}
	}

	return e, nil
}

// Save saves a new evidence record
func (r *Repository) Save(ctx context.Context, e *Evidence) error {
	var locationJSON []byte
	if e.Location != nil {
		var err error
		locationJSON, err = json.Marshal(e.Location)
		if err != nil {
			return errors.Wrap(err, "failed to encode evidence location")
		}
	}

	query := `
		INSERT INTO evidence.files (
			id, case_id, title, description, collection_site, collection_date,
			file_type, blob_key, content_type, file_size, file_hash,
			location, uploaded_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.CaseID, e.Title, e.Description, e.CollectionSite, e.CollectionDate,
		e.FileType, e.BlobKey, e.ContentType, e.FileSize, e.FileHash,
		locationJSON, e.UploadedBy, e.CreatedAt, e.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to save evidence")
	}

	return nil
}

// FindByID finds an evidence record by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence.files WHERE id = $1`

	e, err := scanEvidence(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("evidence", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find evidence")
	}

	return e, nil
}

// FindByCase finds all evidence for a case, newest first
func (r *Repository) FindByCase(ctx context.Context, caseID types.ID) ([]*Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence.files WHERE case_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list evidence")
	}
	defer rows.Close()

	var records []*Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan evidence")
		}
		records = append(records, e)
	}

	return records, nil
}

// Update updates the mutable metadata of an evidence record
func (r *Repository) Update(ctx context.Context, e *Evidence) error {
	query := `
		UPDATE evidence.files
		SET title = $2, description = $3, collection_site = $4,
		    collection_date = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		e.ID, e.Title, e.Description, e.CollectionSite, e.CollectionDate, e.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update evidence")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("evidence", e.ID.String())
	}

	return nil
}

// Delete deletes an evidence record
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM evidence.files WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete evidence")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("evidence", id.String())
	}

	return nil
}
