package marking

import (
	"fmt"
	"sort"
	"time"

	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// MarkingType classifies an anatomical marking
type MarkingType string

const (
	TypeLesao          MarkingType = "lesao"
	TypeCicatriz       MarkingType = "cicatriz"
	TypeTatuagem       MarkingType = "tatuagem"
	TypeFratura        MarkingType = "fratura"
	TypeDeformidade    MarkingType = "deformidade"
	TypeCaracteristica MarkingType = "caracteristica"
	TypeOutro          MarkingType = "outro"
)

// TypeInfo describes one marking type for the vocabulary endpoint
type TypeInfo struct {
	Value MarkingType `json:"valor"`
	Label string      `json:"rotulo"`
	Color string      `json:"cor"`
}

// MarkingTypes is the static marking vocabulary
var MarkingTypes = []TypeInfo{
	{TypeLesao, "Lesão", "#e53935"},
	{TypeCicatriz, "Cicatriz", "#8e24aa"},
	{TypeTatuagem, "Tatuagem", "#3949ab"},
	{TypeFratura, "Fratura", "#fb8c00"},
	{TypeDeformidade, "Deformidade", "#6d4c41"},
	{TypeCaracteristica, "Característica", "#00897b"},
	{TypeOutro, "Outro", "#546e7a"},
}

// Valid checks if the marking type is a known value
func (mt MarkingType) Valid() bool {
	for _, info := range MarkingTypes {
		if info.Value == mt {
			return true
		}
	}
	return false
}

// DefaultColor returns the vocabulary color for the type
func (mt MarkingType) DefaultColor() string {
	for _, info := range MarkingTypes {
		if info.Value == mt {
			return info.Color
		}
	}
	return "#546e7a"
}

// BodyCategory identifies the reference diagram a marking sits on
type BodyCategory string

const (
	CategoryCorpoInteiro   BodyCategory = "corpo_inteiro"
	CategoryCabecaCranio   BodyCategory = "cabeca_cranio"
	CategoryMaos           BodyCategory = "maos"
	CategoryPes            BodyCategory = "pes"
	CategoryArcadaDentaria BodyCategory = "arcada_dentaria"
)

// View identifies the diagram perspective
type View string

const (
	ViewAnterior        View = "anterior"
	ViewPosterior       View = "posterior"
	ViewLateralDireita  View = "lateral_direita"
	ViewLateralEsquerda View = "lateral_esquerda"
	ViewSuperior        View = "superior"
	ViewInferior        View = "inferior"
	ViewPalmar          View = "palmar"
	ViewDorsal          View = "dorsal"
	ViewPlantar         View = "plantar"
)

// allowedViews constrains which views each body category supports
var allowedViews = map[BodyCategory][]View{
	CategoryCorpoInteiro:   {ViewAnterior, ViewPosterior, ViewLateralDireita, ViewLateralEsquerda},
	CategoryCabecaCranio:   {ViewAnterior, ViewPosterior, ViewLateralDireita, ViewLateralEsquerda, ViewSuperior},
	CategoryMaos:           {ViewPalmar, ViewDorsal},
	CategoryPes:            {ViewPlantar, ViewAnterior},
	CategoryArcadaDentaria: {ViewSuperior, ViewInferior},
}

// AllowedViews returns the views valid for a category (copy)
func AllowedViews(category BodyCategory) []View {
	views := allowedViews[category]
	out := make([]View, len(views))
	copy(out, views)
	return out
}

// AgeRange selects the adult or child reference diagram
type AgeRange string

const (
	AgeAdult AgeRange = "adulto"
	AgeChild AgeRange = "infantil"
)

// Laterality values for hands and feet diagrams
const (
	LateralityEsquerda = "esquerda"
	LateralityDireita  = "direita"
)

// Status values. Markings are never physically deleted.
const (
	StatusAtivo    = "ativo"
	StatusRemovido = "removido"
)

// Anatomy pins a marking to a reference diagram
type Anatomy struct {
	Category   BodyCategory `json:"categoria"`
	View       View         `json:"vista"`
	AgeRange   AgeRange     `json:"faixa_etaria"`
	Sex        string       `json:"sexo,omitempty"`
	Laterality string       `json:"lateralidade,omitempty"`
	BaseImage  string       `json:"imagem_base,omitempty"`
}

// Region names the anatomical region under the marking point
type Region struct {
	Code string `json:"codigo"`
	Name string `json:"nome"`
}

// Marking is a coordinate-anchored annotation on a body diagram.
// Coordinates are percentages of the reference image, [0,100] on both axes.
type Marking struct {
	ID       types.ID    `json:"id"`
	VictimID types.ID    `json:"vitima"`
	Type     MarkingType `json:"tipo"`
	Anatomy  Anatomy     `json:"anatomia"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Region   Region      `json:"regiao"`

	Description string `json:"descricao"`
	Notes       string `json:"observacoes,omitempty"`
	Color       string `json:"cor,omitempty"`
	Size        int    `json:"tamanho,omitempty"`

	CreatedBy types.ID  `json:"criado_por"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate runs the invariant checks. The first failing check decides
// the reported reason.
func (m *Marking) Validate() error {
	if !m.Type.Valid() {
		return errors.Validation("invalid marking type", map[string]string{"tipo": string(m.Type)})
	}

	views, ok := allowedViews[m.Anatomy.Category]
	if !ok {
		return errors.Validation("invalid body category", map[string]string{"categoria": string(m.Anatomy.Category)})
	}

	viewOK := false
	for _, v := range views {
		if v == m.Anatomy.View {
			viewOK = true
			break
		}
	}
	if !viewOK {
		return errors.Validation("view not allowed for this body category", map[string]string{
			"categoria": string(m.Anatomy.Category),
			"vista":     string(m.Anatomy.View),
		})
	}

	if m.X < 0 || m.X > 100 || m.Y < 0 || m.Y > 100 {
		return errors.Validation("coordinates out of range", map[string]string{
			"x": fmt.Sprintf("%.2f", m.X),
			"y": fmt.Sprintf("%.2f", m.Y),
		})
	}

	if m.Anatomy.Category == CategoryCorpoInteiro && m.Anatomy.Sex == "" {
		return errors.Validation("sex is required for full-body markings", map[string]string{"sexo": "required"})
	}

	if m.Anatomy.Category == CategoryMaos || m.Anatomy.Category == CategoryPes {
		if m.Anatomy.Laterality != LateralityEsquerda && m.Anatomy.Laterality != LateralityDireita {
			return errors.Validation("laterality is required for hands and feet markings", map[string]string{"lateralidade": m.Anatomy.Laterality})
		}
	}

	if m.Size != 0 && (m.Size < 4 || m.Size > 20) {
		return errors.Validation("display size out of range", map[string]string{"tamanho": fmt.Sprintf("%d", m.Size)})
	}

	return nil
}

// NewMarking creates a validated marking with defaults applied
func NewMarking(victimID types.ID, markingType MarkingType, anatomy Anatomy, x, y float64, region Region, description string, createdBy types.ID) (*Marking, error) {
	if victimID.IsZero() {
		return nil, errors.Validation("invalid marking data", map[string]string{"vitima": "victim reference is required"})
	}
	if createdBy.IsZero() {
		return nil, errors.Validation("invalid marking data", map[string]string{"criado_por": "creator is required"})
	}

	now := time.Now().UTC()
	m := &Marking{
		ID:          types.NewID(),
		VictimID:    victimID,
		Type:        markingType,
		Anatomy:     anatomy,
		X:           x,
		Y:           y,
		Region:      region,
		Description: description,
		Color:       markingType.DefaultColor(),
		Size:        8,
		CreatedBy:   createdBy,
		Status:      StatusAtivo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Remove soft deletes the marking
func (m *Marking) Remove() {
	m.Status = StatusRemovido
	m.UpdatedAt = time.Now().UTC()
}

// GroupKey identifies one diagram: every marking with the same key is
// drawn on the same reference image
type GroupKey struct {
	Category   BodyCategory `json:"categoria"`
	View       View         `json:"vista"`
	Sex        string       `json:"sexo,omitempty"`
	AgeRange   AgeRange     `json:"faixa_etaria"`
	Laterality string       `json:"lateralidade,omitempty"`
}

// Group is one diagram with its active markings
type Group struct {
	Key      GroupKey   `json:"anatomia"`
	Markings []*Marking `json:"marcacoes"`
}

// GroupByAnatomy partitions active markings by diagram. Removed markings
// are excluded. Pure read-side aggregation, ordered deterministically.
func GroupByAnatomy(markings []*Marking) []Group {
	byKey := map[GroupKey][]*Marking{}
	for _, m := range markings {
		if m.Status != StatusAtivo {
			continue
		}
		key := GroupKey{
			Category:   m.Anatomy.Category,
			View:       m.Anatomy.View,
			Sex:        m.Anatomy.Sex,
			AgeRange:   m.Anatomy.AgeRange,
			Laterality: m.Anatomy.Laterality,
		}
		byKey[key] = append(byKey[key], m)
	}

	groups := make([]Group, 0, len(byKey))
	for key, ms := range byKey {
		sort.Slice(ms, func(i, j int) bool { return ms[i].CreatedAt.Before(ms[j].CreatedAt) })
		groups = append(groups, Group{Key: key, Markings: ms})
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Key, groups[j].Key
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.View != b.View {
			return a.View < b.View
		}
		if a.Sex != b.Sex {
			return a.Sex < b.Sex
		}
		if a.AgeRange != b.AgeRange {
			return a.AgeRange < b.AgeRange
		}
		return a.Laterality < b.Laterality
	})

	return groups
}

// Vocabulary is the static reference data served by the types endpoint
type Vocabulary struct {
	Types      []TypeInfo              `json:"tipos"`
	Categories []BodyCategory          `json:"categorias"`
	Views      map[BodyCategory][]View `json:"vistas_por_categoria"`
}

// GetVocabulary returns the marking vocabulary
func GetVocabulary() Vocabulary {
	return Vocabulary{
		Types: MarkingTypes,
		Categories: []BodyCategory{
			CategoryCorpoInteiro, CategoryCabecaCranio,
			CategoryMaos, CategoryPes, CategoryArcadaDentaria,
		},
		Views: map[BodyCategory][]View{
			CategoryCorpoInteiro:   AllowedViews(CategoryCorpoInteiro),
			CategoryCabecaCranio:   AllowedViews(CategoryCabecaCranio),
			CategoryMaos:           AllowedViews(CategoryMaos),
			CategoryPes:            AllowedViews(CategoryPes),
			CategoryArcadaDentaria: AllowedViews(CategoryArcadaDentaria),
		},
	}
}
