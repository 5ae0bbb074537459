package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/perito-digital/platform/internal/shared/types"
)

// canonicalJSON produces deterministic JSON output with sorted map keys.
// This is critical for hash verification - Go maps have random iteration order,
// and PostgreSQL JSONB may reorder keys, so we must sort them for consistent hashing.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	return canonicalMarshal(parsed)
}

func canonicalMarshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(k)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := canonicalMarshal(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil

	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			itemBytes, err := canonicalMarshal(item)
			if err != nil {
				return nil, err
			}
			buf.Write(itemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil

	default:
		return json.Marshal(val)
	}
}

// Entry represents an immutable audit log record. Entries form a hash chain:
// each entry carries the previous entry's hash, so tampering with any stored
// record breaks verification of every entry after it.
type Entry struct {
	ID        types.ID  `json:"id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`

	// Actor
	ActorID   types.ID `json:"usuario"`
	ActorName string   `json:"usuario_nome,omitempty"`
	ActorRole string   `json:"usuario_perfil,omitempty"`

	// Action
	Action string    `json:"acao"`
	CaseID *types.ID `json:"caso,omitempty"`

	// Free-form details about the mutation
	Details map[string]any `json:"detalhes,omitempty"`
}

// NewEntry creates a new audit entry
func NewEntry(
	actorID types.ID,
	actorName, actorRole string,
	action string,
	caseID *types.ID,
	details map[string]any,
	prevHash string,
) *Entry {
	entry := &Entry{
		ID:        types.NewID(),
		Timestamp: time.Now().UTC().Truncate(time.Microsecond), // Truncate to microseconds for PostgreSQL compatibility
		PrevHash:  prevHash,
		ActorID:   actorID,
		ActorName: actorName,
		ActorRole: actorRole,
		Action:    action,
		CaseID:    caseID,
		Details:   details,
	}

	entry.Hash = entry.calculateHash()

	return entry
}

// calculateHash calculates the SHA-256 hash of the entry using canonical JSON
// for deterministic output regardless of map key ordering.
func (e *Entry) calculateHash() string {
	// Always use UTC for the timestamp so hashing is timezone-independent
	data := map[string]any{
		"id":        e.ID,
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
		"prev_hash": e.PrevHash,
		"usuario":   e.ActorID,
		"acao":      e.Action,
	}

	if e.CaseID != nil {
		data["caso"] = e.CaseID
	}
	if len(e.Details) > 0 {
		data["detalhes"] = e.Details
	}

	jsonData, _ := canonicalJSON(data)
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:])
}

// VerifyHash verifies the entry's stored hash against its content
func (e *Entry) VerifyHash() bool {
	return e.Hash == e.calculateHash()
}

// ComputeHash computes and returns the correct hash for this entry
func (e *Entry) ComputeHash() string {
	return e.calculateHash()
}

// ListFilter defines filters for listing audit entries
type ListFilter struct {
	ActorID   *types.ID  `json:"usuario,omitempty"`
	Action    string     `json:"acao,omitempty"`
	CaseID    *types.ID  `json:"caso,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// Audit action labels
const (
	ActionCaseCreated   = "caso.criado"
	ActionCaseUpdated   = "caso.atualizado"
	ActionCaseDeleted   = "caso.removido"
	ActionCaseFinalized = "caso.finalizado"
	ActionCaseArchived  = "caso.arquivado"

	ActionVictimCreated = "vitima.criada"
	ActionVictimUpdated = "vitima.atualizada"
	ActionVictimDeleted = "vitima.removida"

	ActionOdontogramUpdated      = "odontograma.atualizado"
	ActionToothConditionAdded    = "odontograma.condicao_adicionada"
	ActionToothConditionRemoved  = "odontograma.condicao_removida"
	ActionToothObservationsSaved = "odontograma.observacoes_atualizadas"

	ActionMarkingCreated = "marcacao.criada"
	ActionMarkingUpdated = "marcacao.atualizada"
	ActionMarkingRemoved = "marcacao.removida"

	ActionDentalReportCreated = "laudo.emitido"
	ActionDentalReportUpdated = "laudo.atualizado"
	ActionFinalReportCreated  = "relatorio.emitido"

	ActionEvidenceUploaded = "evidencia.enviada"
	ActionEvidenceDeleted  = "evidencia.removida"

	ActionAIGeneration = "ia.texto_gerado"
)
