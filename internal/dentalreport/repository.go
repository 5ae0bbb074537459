package dentalreport

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Repository provides dental report storage operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new dental report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save saves a new dental report
func (r *Repository) Save(ctx context.Context, report *DentalReport) error {
	snapshotJSON, err := json.Marshal(report.OdontogramSnapshot)
	if err != nil {
		return errors.Wrap(err, "failed to marshal odontogram snapshot")
	}
	quadrantsJSON, err := json.Marshal(report.Quadrants)
	if err != nil {
		return errors.Wrap(err, "failed to marshal quadrants")
	}

	query := `
		INSERT INTO reports.dental_reports (
			id, victim_id, case_id, examiner_id, issued_at,
			observations, opinion,
			odontogram_snapshot, quadrants, full_text, pdf_key,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err = r.pool.Exec(ctx, query,
		report.ID, report.VictimID, report.CaseID, report.ExaminerID, report.IssuedAt,
		report.Observations, report.Opinion,
		snapshotJSON, quadrantsJSON, report.FullText, report.PDFKey,
		report.CreatedAt, report.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to save dental report")
	}

	return nil
}

const reportColumns = `id, victim_id, case_id, examiner_id, issued_at,
		observations, opinion,
		odontogram_snapshot, quadrants, full_text, pdf_key,
		created_at, updated_at`

func scanReport(row pgx.Row) (*DentalReport, error) {
	report := &DentalReport{}
	var snapshotJSON, quadrantsJSON []byte

	err := row.Scan(
		&report.ID, &report.VictimID, &report.CaseID, &report.ExaminerID, &report.IssuedAt,
		&report.Observations, &report.Opinion,
		&snapshotJSON, &quadrantsJSON, &report.FullText, &report.PDFKey,
		&report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshotJSON, &report.OdontogramSnapshot); err != nil {
		return nil, errors.Wrap(err, "failed to parse odontogram snapshot")
	}
	if err := json.Unmarshal(quadrantsJSON, &report.Quadrants); err != nil {
		return nil, errors.Wrap(err, "failed to parse quadrants")
	}

	return report, nil
}

// FindByID finds a dental report by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*DentalReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reports.dental_reports WHERE id = $1`

	report, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("dental report", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find dental report")
	}

	return report, nil
}

// FindByVictim lists reports for a victim, newest first
func (r *Repository) FindByVictim(ctx context.Context, victimID types.ID) ([]*DentalReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reports.dental_reports WHERE victim_id = $1 ORDER BY issued_at DESC`

	rows, err := r.pool.Query(ctx, query, victimID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list dental reports")
	}
	defer rows.Close()

	var reports []*DentalReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan dental report")
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// FindByCase lists reports for a case, newest first
func (r *Repository) FindByCase(ctx context.Context, caseID types.ID) ([]*DentalReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reports.dental_reports WHERE case_id = $1 ORDER BY issued_at DESC`

	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list dental reports")
	}
	defer rows.Close()

	var reports []*DentalReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan dental report")
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// Update updates an existing dental report
func (r *Repository) Update(ctx context.Context, report *DentalReport) error {
	query := `
		UPDATE reports.dental_reports SET
			observations = $2, opinion = $3, full_text = $4, pdf_key = $5, updated_at = $6
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		report.ID, report.Observations, report.Opinion, report.FullText, report.PDFKey, report.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update dental report")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("dental report", report.ID.String())
	}

	return nil
}
