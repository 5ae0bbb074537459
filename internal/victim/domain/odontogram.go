package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Scheme identifies the tooth numbering scheme of an odontogram
type Scheme string

const (
	SchemeAdult Scheme = "adulto"
	SchemeChild Scheme = "infantil"
)

// ConditionType classifies a dental condition
type ConditionType string

const (
	ConditionHigido     ConditionType = "hígido"
	ConditionCariado    ConditionType = "cariado"
	ConditionRestaurado ConditionType = "restaurado"
	ConditionFraturado  ConditionType = "fraturado"
	ConditionAusente    ConditionType = "ausente"
	ConditionImplante   ConditionType = "implante"
	ConditionProtese    ConditionType = "protese"
	ConditionCanal      ConditionType = "canal"
	ConditionCoroa      ConditionType = "coroa"
	ConditionPonte      ConditionType = "ponte"
	ConditionAparelho   ConditionType = "aparelho"
	ConditionOutro      ConditionType = "outro"
)

// conditionLabels maps wire values to the capitalized form used in report text
var conditionLabels = map[ConditionType]string{
	ConditionHigido:     "Hígido",
	ConditionCariado:    "Cariado",
	ConditionRestaurado: "Restaurado",
	ConditionFraturado:  "Fraturado",
	ConditionAusente:    "Ausente",
	ConditionImplante:   "Implante",
	ConditionProtese:    "Prótese",
	ConditionCanal:      "Canal",
	ConditionCoroa:      "Coroa",
	ConditionPonte:      "Ponte",
	ConditionAparelho:   "Aparelho",
	ConditionOutro:      "Outro",
}

// Valid checks if the condition type is a known value
func (ct ConditionType) Valid() bool {
	_, ok := conditionLabels[ct]
	return ok
}

// Label returns the capitalized display form of the condition type
func (ct ConditionType) Label() string {
	if label, ok := conditionLabels[ct]; ok {
		return label
	}
	return string(ct)
}

// Face identifies a tooth face affected by a condition
type Face string

const (
	FaceMesial     Face = "mesial"
	FaceDistal     Face = "distal"
	FaceOclusal    Face = "oclusal"
	FaceVestibular Face = "vestibular"
	FaceLingual    Face = "lingual"
	FaceIncisal    Face = "incisal"
	FaceCervical   Face = "cervical"
)

// ValidFaces is the set of known tooth faces
var ValidFaces = []Face{
	FaceMesial, FaceDistal, FaceOclusal, FaceVestibular,
	FaceLingual, FaceIncisal, FaceCervical,
}

// Valid checks if the face is a known value
func (f Face) Valid() bool {
	for _, v := range ValidFaces {
		if f == v {
			return true
		}
	}
	return false
}

// Condition is one recorded finding on a tooth. Conditions accumulate:
// a tooth may carry several at once, each removed only by its own ID.
type Condition struct {
	ID          types.ID      `json:"id"`
	Type        ConditionType `json:"tipo"`
	Faces       []Face        `json:"faces,omitempty"`
	Description string        `json:"descricao,omitempty"`
	RecordedBy  types.ID      `json:"registrado_por,omitempty"`
	RecordedAt  time.Time     `json:"registrado_em"`
}

// NewCondition creates a validated condition
func NewCondition(condType ConditionType, faces []Face, description string, recordedBy types.ID) (*Condition, error) {
	if !condType.Valid() {
		return nil, errors.Validation("invalid condition type", map[string]string{"tipo": string(condType)})
	}
	for _, f := range faces {
		if !f.Valid() {
			return nil, errors.Validation("invalid tooth face", map[string]string{"face": string(f)})
		}
	}

	return &Condition{
		ID:          types.NewID(),
		Type:        condType,
		Faces:       faces,
		Description: description,
		RecordedBy:  recordedBy,
		RecordedAt:  time.Now().UTC(),
	}, nil
}

// Tooth is one position in the chart, keyed by its FDI number.
// Numbers are fixed at initialization and never change.
type Tooth struct {
	Number       string      `json:"numero"`
	Present      bool        `json:"presente"`
	Conditions   []Condition `json:"condicoes,omitempty"`
	Observations string      `json:"observacoes,omitempty"`
	LastModified time.Time   `json:"atualizado_em,omitempty"`
}

// AddCondition appends a condition. No deduplication: the same type may
// appear twice on different faces.
func (t *Tooth) AddCondition(c Condition) {
	t.Conditions = append(t.Conditions, c)
	t.LastModified = time.Now().UTC()
}

// RemoveCondition removes a condition by its ID
func (t *Tooth) RemoveCondition(conditionID types.ID) error {
	for i, c := range t.Conditions {
		if c.ID == conditionID {
			t.Conditions = append(t.Conditions[:i], t.Conditions[i+1:]...)
			t.LastModified = time.Now().UTC()
			return nil
		}
	}
	return errors.NotFound("condition", conditionID.String())
}

// Odontogram is the per-victim dental chart: two ordered arches of teeth
type Odontogram struct {
	Scheme      Scheme     `json:"esquema"`
	UpperArch   []Tooth    `json:"arcada_superior"`
	LowerArch   []Tooth    `json:"arcada_inferior"`
	Notes       string     `json:"observacoes_gerais,omitempty"`
	Methodology string     `json:"metodologia,omitempty"`
	ExamDate    *time.Time `json:"data_exame,omitempty"`
}

// FDI tooth numbers in chart order (patient's right to left as seen by the examiner)
var (
	adultUpperNumbers = []string{"18", "17", "16", "15", "14", "13", "12", "11", "21", "22", "23", "24", "25", "26", "27", "28"}
	adultLowerNumbers = []string{"48", "47", "46", "45", "44", "43", "42", "41", "31", "32", "33", "34", "35", "36", "37", "38"}
	childUpperNumbers = []string{"55", "54", "53", "52", "51", "61", "62", "63", "64", "65"}
	childLowerNumbers = []string{"85", "84", "83", "82", "81", "71", "72", "73", "74", "75"}
)

// InitializeOdontogram builds a fresh chart with every slot present and
// no conditions. Adult charts get 16 teeth per arch, child charts 10.
func InitializeOdontogram(scheme Scheme) (*Odontogram, error) {
	var upper, lower []string
	switch scheme {
	case SchemeAdult:
		upper, lower = adultUpperNumbers, adultLowerNumbers
	case SchemeChild:
		upper, lower = childUpperNumbers, childLowerNumbers
	default:
		return nil, errors.Validation("invalid odontogram scheme", map[string]string{"esquema": string(scheme)})
	}

	makeArch := func(numbers []string) []Tooth {
		teeth := make([]Tooth, len(numbers))
		for i, num := range numbers {
			teeth[i] = Tooth{Number: num, Present: true}
		}
		return teeth
	}

	return &Odontogram{
		Scheme:    scheme,
		UpperArch: makeArch(upper),
		LowerArch: makeArch(lower),
	}, nil
}

// Arch labels returned by FindTooth
const (
	ArchUpper = "superior"
	ArchLower = "inferior"
)

// FindTooth locates a tooth by FDI number and reports which arch holds it
func (o *Odontogram) FindTooth(number string) (*Tooth, string, error) {
	for i := range o.UpperArch {
		if o.UpperArch[i].Number == number {
			return &o.UpperArch[i], ArchUpper, nil
		}
	}
	for i := range o.LowerArch {
		if o.LowerArch[i].Number == number {
			return &o.LowerArch[i], ArchLower, nil
		}
	}
	return nil, "", errors.NotFound("tooth", number)
}

// Quadrant is a derived grouping of teeth for report formatting.
// Only teeth carrying at least one condition are included.
type Quadrant struct {
	Code  string  `json:"codigo"`
	Title string  `json:"titulo"`
	Teeth []Tooth `json:"dentes"`
}

// Quadrant codes in report order
const (
	QuadrantUpperRight = "superior_direito"
	QuadrantUpperLeft  = "superior_esquerdo"
	QuadrantLowerRight = "inferior_direito"
	QuadrantLowerLeft  = "inferior_esquerdo"
)

var quadrantTitles = map[string]string{
	QuadrantUpperRight: "QUADRANTE SUPERIOR DIREITO",
	QuadrantUpperLeft:  "QUADRANTE SUPERIOR ESQUERDO",
	QuadrantLowerRight: "QUADRANTE INFERIOR DIREITO",
	QuadrantLowerLeft:  "QUADRANTE INFERIOR ESQUERDO",
}

// quadrantForNumber maps the leading FDI digit to a quadrant code.
// Adult quadrants are 1-4, deciduous quadrants 5-8.
func quadrantForNumber(number string) string {
	if number == "" {
		return ""
	}
	switch number[0] {
	case '1', '5':
		return QuadrantUpperRight
	case '2', '6':
		return QuadrantUpperLeft
	case '4', '8':
		return QuadrantLowerRight
	case '3', '7':
		return QuadrantLowerLeft
	}
	return ""
}

// PartitionByQuadrant splits teeth with findings into the four quadrants,
// each sorted ascending by number. Teeth without conditions are omitted.
func (o *Odontogram) PartitionByQuadrant() []Quadrant {
	byCode := map[string][]Tooth{}

	collect := func(arch []Tooth) {
		for _, tooth := range arch {
			if len(tooth.Conditions) == 0 {
				continue
			}
			code := quadrantForNumber(tooth.Number)
			if code == "" {
				continue
			}
			byCode[code] = append(byCode[code], tooth)
		}
	}
	collect(o.UpperArch)
	collect(o.LowerArch)

	order := []string{QuadrantUpperRight, QuadrantUpperLeft, QuadrantLowerRight, QuadrantLowerLeft}
	quadrants := make([]Quadrant, 0, len(order))
	for _, code := range order {
		teeth := byCode[code]
		sort.Slice(teeth, func(i, j int) bool { return teeth[i].Number < teeth[j].Number })
		quadrants = append(quadrants, Quadrant{
			Code:  code,
			Title: quadrantTitles[code],
			Teeth: teeth,
		})
	}

	return quadrants
}

// RenderReportText composes the full laudo text from the chart state.
// Deterministic for fixed inputs and a fixed clock: this output is what
// gets frozen into a dental report, so nothing here may depend on map
// iteration order or the ambient time.
func RenderReportText(victim *Victim, o *Odontogram, observations, opinion string, now time.Time) string {
	var b strings.Builder

	b.WriteString("LAUDO ODONTOLÓGICO\n")
	b.WriteString("\n")

	b.WriteString("IDENTIFICAÇÃO DA VÍTIMA\n")
	fmt.Fprintf(&b, "Nome: %s\n", victim.Name)
	fmt.Fprintf(&b, "NIC: %s\n", victim.NIC)
	if victim.Gender != "" {
		fmt.Fprintf(&b, "Gênero: %s\n", victim.Gender)
	}
	if victim.Age > 0 {
		fmt.Fprintf(&b, "Idade: %d anos\n", victim.Age)
	}
	b.WriteString("\n")

	for _, quadrant := range o.PartitionByQuadrant() {
		if len(quadrant.Teeth) == 0 {
			continue
		}
		b.WriteString(quadrant.Title + "\n")
		for _, tooth := range quadrant.Teeth {
			for _, cond := range tooth.Conditions {
				line := fmt.Sprintf("Dente %s - %s", tooth.Number, cond.Type.Label())
				if len(cond.Faces) > 0 {
					faces := make([]string, len(cond.Faces))
					for i, f := range cond.Faces {
						faces[i] = string(f)
					}
					line += fmt.Sprintf(" (%s)", strings.Join(faces, ", "))
				}
				if cond.Description != "" {
					line += ": " + cond.Description
				}
				b.WriteString(line + "\n")
			}
		}
		b.WriteString("\n")
	}

	if observations != "" {
		b.WriteString("OBSERVAÇÕES\n")
		b.WriteString(observations + "\n")
		b.WriteString("\n")
	}

	b.WriteString("PARECER TÉCNICO\n")
	b.WriteString(opinion + "\n")
	b.WriteString("\n")

	examDate := now
	if o.ExamDate != nil {
		examDate = *o.ExamDate
	}
	fmt.Fprintf(&b, "Data do exame: %s\n", examDate.Format("02/01/2006"))

	return b.String()
}
