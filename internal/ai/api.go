package ai

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/perito-digital/platform/internal/audit"
	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/dentalreport"
	"github.com/perito-digital/platform/internal/evidence"
	"github.com/perito-digital/platform/internal/policy"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/metrics"
	"github.com/perito-digital/platform/internal/shared/types"
	victimdomain "github.com/perito-digital/platform/internal/victim/domain"
)

// Handler provides the generative text endpoints. Generated text is
// returned to the caller for review; nothing is persisted here.
type Handler struct {
	client   *Client
	cases    casedomain.Repository
	victims  victimdomain.Repository
	evidence *evidence.Repository
	laudos   *dentalreport.Repository
	recorder *audit.Recorder
}

// NewHandler creates a new AI handler
func NewHandler(
	client *Client,
	cases casedomain.Repository,
	victims victimdomain.Repository,
	evidenceRepo *evidence.Repository,
	laudos *dentalreport.Repository,
	recorder *audit.Recorder,
) *Handler {
	return &Handler{
		client:   client,
		cases:    cases,
		victims:  victims,
		evidence: evidenceRepo,
		laudos:   laudos,
		recorder: recorder,
	}
}

// Routes registers the AI routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/laudo", h.GenerateObservations)
	r.Post("/parecer", h.GenerateOpinion)
	r.Post("/relatorio", h.GenerateFinalReport)

	return r
}

type victimGenerationRequest struct {
	CaseID   types.ID `json:"caso"`
	VictimID types.ID `json:"vitima"`
}

type caseGenerationRequest struct {
	CaseID types.ID `json:"caso"`
}

// GenerateObservations drafts clinical odontological observations
func (h *Handler) GenerateObservations(w http.ResponseWriter, r *http.Request) {
	h.generateForVictim(w, r, "laudo", MaxTokensParecer, ObservationsPrompt)
}

// GenerateOpinion drafts a conclusive technical parecer
func (h *Handler) GenerateOpinion(w http.ResponseWriter, r *http.Request) {
	h.generateForVictim(w, r, "parecer", MaxTokensParecer, OpinionPrompt)
}

func (h *Handler) generateForVictim(
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	maxTokens int,
	buildPrompt func(*casedomain.Case, *victimdomain.Victim) string,
) {
	var req victimGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	c, err := h.cases.FindByID(r.Context(), req.CaseID)
	if err != nil {
		writeError(w, err)
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	victim, err := h.victims.FindByID(r.Context(), req.VictimID)
	if err != nil {
		writeError(w, err)
		return
	}
	if victim.CaseID != c.ID {
		writeError(w, errors.BadRequest("victim does not belong to this case"))
		return
	}

	start := time.Now()
	text, err := h.client.Generate(r.Context(), buildPrompt(c, victim), maxTokens)
	metrics.RecordAIGeneration(kind, err == nil, time.Since(start))
	if err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionAIGeneration, &c.ID, map[string]any{
		"tipo":   kind,
		"vitima": victim.ID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"texto_gerado": text,
		"tipo":         kind,
		"vitima": map[string]any{
			"id":   victim.ID,
			"nome": victim.Name,
			"nic":  victim.NIC,
		},
	})
}

// GenerateFinalReport drafts the closing report from the case's
// evidence and issued laudos
func (h *Handler) GenerateFinalReport(w http.ResponseWriter, r *http.Request) {
	var req caseGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	c, err := h.cases.FindByID(r.Context(), req.CaseID)
	if err != nil {
		writeError(w, err)
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	evidences, err := h.evidence.FindByCase(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	laudos, err := h.laudos.FindByCase(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(evidences) == 0 && len(laudos) == 0 {
		writeError(w, errors.BadRequest("case has no evidence or laudos to report on"))
		return
	}

	start := time.Now()
	text, err := h.client.Generate(r.Context(), FinalReportPrompt(c, evidences, laudos), MaxTokensRelatorio)
	metrics.RecordAIGeneration("relatorio", err == nil, time.Since(start))
	if err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionAIGeneration, &c.ID, map[string]any{
		"tipo":       "relatorio",
		"evidencias": len(evidences),
		"laudos":     len(laudos),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"texto_gerado": text,
		"tipo":         "relatorio",
		"estatisticas": map[string]int{
			"evidencias": len(evidences),
			"laudos":     len(laudos),
		},
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
