package report

import (
	"fmt"
	"time"

	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// FinalReport closes a case: creating one transitions the case to
// "finalizado", after which the access policy blocks every further edit.
type FinalReport struct {
	ID          types.ID  `json:"id"`
	CaseID      types.ID  `json:"caso"`
	CreatedBy   types.ID  `json:"criado_por"`
	Title       string    `json:"titulo"`
	Content     string    `json:"conteudo"`
	AIGenerated bool      `json:"gerado_por_ia"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFinalReport composes the report document for a case. The content
// gets a standard header identifying the case ahead of the body text.
func NewFinalReport(c *casedomain.Case, createdBy types.ID, title, body string, aiGenerated bool, now time.Time) (*FinalReport, error) {
	details := map[string]string{}
	if title == "" {
		details["titulo"] = "title is required"
	}
	if body == "" {
		details["conteudo"] = "report body is required"
	}
	if createdBy.IsZero() {
		details["criado_por"] = "creator is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation("invalid final report data", details)
	}

	header := fmt.Sprintf(
		"RELATÓRIO FINAL\n\nCaso: %s\nTipo: %s\nData de emissão: %s\n\n",
		c.Title, c.Type, now.Format("02/01/2006"),
	)

	return &FinalReport{
		ID:          types.NewID(),
		CaseID:      c.ID,
		CreatedBy:   createdBy,
		Title:       title,
		Content:     header + body,
		AIGenerated: aiGenerated,
		CreatedAt:   now,
	}, nil
}
