package domain

import (
	"fmt"
	"time"

	"github.com/perito-digital/platform/internal/shared/types"
)

// CaseType defines the category of a forensic case.
// Wire values are kept in Portuguese to match the examination records.
type CaseType string

const (
	CaseTypeAcidente             CaseType = "acidente"
	CaseTypeIdentificacaoVitima  CaseType = "identificação de vítima"
	CaseTypeExameCriminal        CaseType = "exame criminal"
	CaseTypeExumacao             CaseType = "exumação"
	CaseTypeViolenciaDomestica   CaseType = "violência doméstica"
	CaseTypeAvaliacaoIdade       CaseType = "avaliação de idade"
	CaseTypeAvaliacaoLesoes      CaseType = "avaliação de lesões"
	CaseTypeAvaliacaoDanos       CaseType = "avaliação de danos corporais"
)

// ValidCaseTypes lists every accepted case category
var ValidCaseTypes = []CaseType{
	CaseTypeAcidente,
	CaseTypeIdentificacaoVitima,
	CaseTypeExameCriminal,
	CaseTypeExumacao,
	CaseTypeViolenciaDomestica,
	CaseTypeAvaliacaoIdade,
	CaseTypeAvaliacaoLesoes,
	CaseTypeAvaliacaoDanos,
}

// Valid reports whether the case type is a known category
func (t CaseType) Valid() bool {
	for _, v := range ValidCaseTypes {
		if t == v {
			return true
		}
	}
	return false
}

// CaseStatus defines the lifecycle state of a case
type CaseStatus string

const (
	CaseStatusEmAndamento CaseStatus = "em andamento"
	CaseStatusFinalizado  CaseStatus = "finalizado"
	CaseStatusArquivado   CaseStatus = "arquivado"
)

// Case is the aggregate root for a forensic investigation
type Case struct {
	ID          types.ID   `json:"id"`
	Title       string     `json:"titulo"`
	Type        CaseType   `json:"tipo"`
	Status      CaseStatus `json:"status"`
	Description string     `json:"descricao,omitempty"`
	OccurredAt  time.Time  `json:"data"`

	// Ownership
	ResponsibleID types.ID `json:"responsavel"`
	CreatedBy     types.ID `json:"criado_por"`

	// Optional geolocation of the occurrence
	Location *types.Geolocation `json:"localizacao,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinalizedAt *time.Time `json:"finalizado_em,omitempty"`
}

// NewCase creates a new case with validation
func NewCase(
	title string,
	caseType CaseType,
	description string,
	occurredAt time.Time,
	responsibleID, createdBy types.ID,
	location *types.Geolocation,
) (*Case, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !caseType.Valid() {
		return nil, fmt.Errorf("unknown case type: %s", caseType)
	}
	if responsibleID.IsZero() {
		return nil, fmt.Errorf("responsible examiner is required")
	}
	if createdBy.IsZero() {
		return nil, fmt.Errorf("creator is required")
	}
	if location != nil {
		if err := location.Validate(); err != nil {
			return nil, err
		}
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	now := time.Now()
	return &Case{
		ID:            types.NewID(),
		Title:         title,
		Type:          caseType,
		Status:        CaseStatusEmAndamento,
		Description:   description,
		OccurredAt:    occurredAt,
		ResponsibleID: responsibleID,
		CreatedBy:     createdBy,
		Location:      location,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Finalize transitions the case to finalizado. The transition happens only
// as a side effect of issuing the final report for the case.
func (c *Case) Finalize() error {
	if c.Status == CaseStatusFinalizado {
		return fmt.Errorf("case is already finalized")
	}
	if c.Status == CaseStatusArquivado {
		return fmt.Errorf("cannot finalize an archived case")
	}

	now := time.Now()
	c.Status = CaseStatusFinalizado
	c.FinalizedAt = &now
	c.UpdatedAt = now
	return nil
}

// Archive transitions the case to arquivado. Archival is terminal and is
// allowed from any prior state.
func (c *Case) Archive() error {
	if c.Status == CaseStatusArquivado {
		return fmt.Errorf("case is already archived")
	}

	c.Status = CaseStatusArquivado
	c.UpdatedAt = time.Now()
	return nil
}

// IsFinalized reports whether the case has been finalized
func (c *Case) IsFinalized() bool {
	return c.Status == CaseStatusFinalizado
}
