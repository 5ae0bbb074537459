package dentalreport

import (
	"encoding/json"
	"time"

	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
	victimdomain "github.com/perito-digital/platform/internal/victim/domain"
)

// DentalReport (laudo odontológico) freezes the odontogram at emission
// time. Later chart edits never change an issued report: the snapshot,
// quadrant breakdown and rendered text are all fixed at creation.
type DentalReport struct {
	ID         types.ID  `json:"id"`
	VictimID   types.ID  `json:"vitima"`
	CaseID     types.ID  `json:"caso"`
	ExaminerID types.ID  `json:"perito"`
	IssuedAt   time.Time `json:"data_emissao"`

	Observations string `json:"observacoes,omitempty"`
	Opinion      string `json:"parecer"`

	OdontogramSnapshot *victimdomain.Odontogram `json:"odontograma_snapshot"`
	Quadrants          []victimdomain.Quadrant  `json:"quadrantes"`
	FullText           string                   `json:"texto_completo"`

	PDFKey string `json:"pdf,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDentalReport builds a report from the victim's current chart.
// The parecer is mandatory. The chart is deep-copied so the snapshot
// cannot alias the live odontogram.
func NewDentalReport(victim *victimdomain.Victim, examinerID types.ID, observations, opinion string, now time.Time) (*DentalReport, error) {
	if opinion == "" {
		return nil, errors.Validation("parecer técnico is required", map[string]string{"parecer": "required"})
	}
	if victim.Odontogram == nil {
		return nil, errors.Validation("victim has no odontogram", map[string]string{"odontograma": "missing"})
	}

	snapshot, err := cloneOdontogram(victim.Odontogram)
	if err != nil {
		return nil, err
	}

	report := &DentalReport{
		ID:                 types.NewID(),
		VictimID:           victim.ID,
		CaseID:             victim.CaseID,
		ExaminerID:         examinerID,
		IssuedAt:           now,
		Observations:       observations,
		Opinion:            opinion,
		OdontogramSnapshot: snapshot,
		Quadrants:          snapshot.PartitionByQuadrant(),
		FullText:           victimdomain.RenderReportText(victim, snapshot, observations, opinion, now),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	return report, nil
}

// Revise updates observations and parecer, re-rendering the text from
// the FROZEN snapshot rather than the live chart
func (r *DentalReport) Revise(victim *victimdomain.Victim, observations, opinion string, now time.Time) error {
	if opinion == "" {
		return errors.Validation("parecer técnico is required", map[string]string{"parecer": "required"})
	}

	r.Observations = observations
	r.Opinion = opinion
	r.FullText = victimdomain.RenderReportText(victim, r.OdontogramSnapshot, observations, opinion, r.IssuedAt)
	r.UpdatedAt = now

	return nil
}

func cloneOdontogram(o *victimdomain.Odontogram) (*victimdomain.Odontogram, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot odontogram")
	}
	var clone victimdomain.Odontogram
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, errors.Wrap(err, "failed to snapshot odontogram")
	}
	return &clone, nil
}
