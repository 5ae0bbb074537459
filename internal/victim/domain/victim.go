package domain

import (
	"time"

	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Document is an identity document attached to a victim record
type Document struct {
	Type   string `json:"tipo"`
	Number string `json:"numero"`
}

// Victim is an identification record attached to a case. Each victim
// carries a globally unique NIC and owns exactly one odontogram.
type Victim struct {
	ID        types.ID  `json:"id"`
	CaseID    types.ID  `json:"caso"`
	NIC       types.NIC `json:"nic"`
	Name      string    `json:"nome"`
	Gender    string    `json:"genero,omitempty"`
	Age       int       `json:"idade,omitempty"`
	Document  *Document `json:"documento,omitempty"`
	Address   string    `json:"endereco,omitempty"`
	Ethnicity string    `json:"etnia,omitempty"`

	Odontogram        *Odontogram `json:"odontograma"`
	AnatomicalRegions []string    `json:"regioes_anatomicas,omitempty"`

	CreatedBy types.ID  `json:"criado_por"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewVictim creates a victim record. When no odontogram is supplied the
// adult chart is auto-initialized (32 teeth, all present).
func NewVictim(
	caseID types.ID,
	nic types.NIC,
	name, gender string,
	age int,
	document *Document,
	address, ethnicity string,
	odontogram *Odontogram,
	createdBy types.ID,
) (*Victim, error) {
	details := map[string]string{}
	if caseID.IsZero() {
		details["caso"] = "case reference is required"
	}
	if nic.IsZero() {
		details["nic"] = "NIC is required"
	}
	if name == "" {
		details["nome"] = "name is required"
	}
	if age < 0 {
		details["idade"] = "age cannot be negative"
	}
	if createdBy.IsZero() {
		details["criado_por"] = "creator is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation("invalid victim data", details)
	}

	if odontogram == nil {
		var err error
		odontogram, err = InitializeOdontogram(SchemeAdult)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()

	return &Victim{
		ID:         types.NewID(),
		CaseID:     caseID,
		NIC:        nic,
		Name:       name,
		Gender:     gender,
		Age:        age,
		Document:   document,
		Address:    address,
		Ethnicity:  ethnicity,
		Odontogram: odontogram,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
