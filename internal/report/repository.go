package report

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Repository provides final report storage operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new final report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save saves a new final report
func (r *Repository) Save(ctx context.Context, report *FinalReport) error {
	query := `
		INSERT INTO reports.final_reports (
			id, case_id, created_by, title, content, ai_generated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		report.ID, report.CaseID, report.CreatedBy,
		report.Title, report.Content, report.AIGenerated, report.CreatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to save final report")
	}

	return nil
}

// FindByCase finds the final reports for a case, newest first
func (r *Repository) FindByCase(ctx context.Context, caseID types.ID) ([]*FinalReport, error) {
	query := `
		SELECT id, case_id, created_by, title, content, ai_generated, created_at
		FROM reports.final_reports
		WHERE case_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list final reports")
	}
	defer rows.Close()

	var reports []*FinalReport
	for rows.Next() {
		report := &FinalReport{}
		err := rows.Scan(
			&report.ID, &report.CaseID, &report.CreatedBy,
			&report.Title, &report.Content, &report.AIGenerated, &report.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan final report")
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// FindByID finds a final report by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*FinalReport, error) {
	query := `
		SELECT id, case_id, created_by, title, content, ai_generated, created_at
		FROM reports.final_reports
		WHERE id = $1`

	report := &FinalReport{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&report.ID, &report.CaseID, &report.CreatedBy,
		&report.Title, &report.Content, &report.AIGenerated, &report.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("final report", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find final report")
	}

	return report, nil
}
