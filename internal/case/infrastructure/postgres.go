package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const caseColumns = `id, title, type, status, description, occurred_at,
		responsible_id, created_by, longitude, latitude,
		created_at, updated_at, finalized_at`

func scanCase(row pgx.Row) (*domain.Case, error) {
	c := &domain.Case{}
	var longitude, latitude *float64

	err := row.Scan(
		&c.ID, &c.Title, &c.Type, &c.Status, &c.Description, &c.OccurredAt,
		&c.ResponsibleID, &c.CreatedBy, &longitude, &latitude,
		&c.CreatedAt, &c.UpdatedAt, &c.FinalizedAt,
	)
	if err != nil {
		return nil, err
	}

	if longitude != nil && latitude != nil {
		c.Location = &types.Geolocation{Longitude: *longitude, Latitude: *latitude}
	}

	return c, nil
}

func locationColumns(c *domain.Case) (longitude, latitude *float64) {
	if c.Location != nil {
		longitude = &c.Location.Longitude
		latitude = &c.Location.Latitude
	}
	return
}

// Save saves a new case
func (r *PostgresRepository) Save(ctx context.Context, c *domain.Case) error {
	longitude, latitude := locationColumns(c)

	query := `
		INSERT INTO cases.cases (
			id, title, type, status, description, occurred_at,
			responsible_id, created_by, longitude, latitude,
			created_at, updated_at, finalized_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Type, c.Status, c.Description, c.OccurredAt,
		c.ResponsibleID, c.CreatedBy, longitude, latitude,
		c.CreatedAt, c.UpdatedAt, c.FinalizedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("case already exists")
		}
		return errors.Wrap(err, "failed to save case")
	}

	return nil
}

// FindByID finds a case by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases.cases WHERE id = $1`

	c, err := scanCase(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case")
	}

	return c, nil
}

// Update updates an existing case
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Case) error {
	longitude, latitude := locationColumns(c)

	query := `
		UPDATE cases.cases SET
			title = $2, type = $3, status = $4, description = $5, occurred_at = $6,
			responsible_id = $7, longitude = $8, latitude = $9,
			updated_at = $10, finalized_at = $11
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Type, c.Status, c.Description, c.OccurredAt,
		c.ResponsibleID, longitude, latitude,
		c.UpdatedAt, c.FinalizedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update case")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("case", c.ID.String())
	}

	return nil
}

// Delete deletes a case
func (r *PostgresRepository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM cases.cases WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete case")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("case", id.String())
	}

	return nil
}

// List lists cases with filters
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argNum))
		args = append(args, *filter.Type)
		argNum++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.ResponsibleID != nil {
		conditions = append(conditions, fmt.Sprintf("responsible_id = $%d", argNum))
		args = append(args, *filter.ResponsibleID)
		argNum++
	}

	if filter.CreatedBy != nil {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", argNum))
		args = append(args, *filter.CreatedBy)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cases.cases %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count cases")
	}

	// Order
	orderBy := "created_at"
	switch filter.OrderBy {
	case "occurred_at", "updated_at", "title":
		orderBy = filter.OrderBy
	}
	orderDir := "ASC"
	if filter.OrderDesc {
		orderDir = "DESC"
	}

	// Limit
	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT `+caseColumns+`
		FROM cases.cases
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`, whereClause, orderBy, orderDir, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan case")
		}
		cases = append(cases, *c)
	}

	return cases, total, nil
}

// FindNearby finds cases with a stored location within distanceKm of the
// origin, closest first. Distance is the haversine great-circle distance.
func (r *PostgresRepository) FindNearby(ctx context.Context, origin types.Geolocation, distanceKm float64, limit int) ([]domain.Case, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + caseColumns + `, distance_km FROM (
			SELECT *, 2 * 6371 * asin(sqrt(
				pow(sin(radians(latitude - $2) / 2), 2) +
				cos(radians($2)) * cos(radians(latitude)) *
				pow(sin(radians(longitude - $1) / 2), 2)
			)) AS distance_km
			FROM cases.cases
			WHERE longitude IS NOT NULL AND latitude IS NOT NULL
		) located
		WHERE distance_km <= $3
		ORDER BY distance_km
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, origin.Longitude, origin.Latitude, distanceKm, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query nearby cases")
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c := &domain.Case{}
		var longitude, latitude *float64
		var distance float64

		err := rows.Scan(
			&c.ID, &c.Title, &c.Type, &c.Status, &c.Description, &c.OccurredAt,
			&c.ResponsibleID, &c.CreatedBy, &longitude, &latitude,
			&c.CreatedAt, &c.UpdatedAt, &c.FinalizedAt, &distance,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan nearby case")
		}

		if longitude != nil && latitude != nil {
			c.Location = &types.Geolocation{Longitude: *longitude, Latitude: *latitude}
		}

		cases = append(cases, *c)
	}

	return cases, nil
}
