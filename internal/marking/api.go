package marking

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/perito-digital/platform/internal/audit"
	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/policy"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
	victimdomain "github.com/perito-digital/platform/internal/victim/domain"
)

// Handler provides HTTP handlers for the marking module
type Handler struct {
	repo     *Repository
	victims  victimdomain.Repository
	cases    casedomain.Repository
	recorder *audit.Recorder
}

// NewHandler creates a new marking handler
func NewHandler(repo *Repository, victims victimdomain.Repository, cases casedomain.Repository, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, victims: victims, cases: cases, recorder: recorder}
}

// Routes registers the marking routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/types", h.GetTypes)

	r.Route("/victim/{victimID}", func(r chi.Router) {
		r.Post("/", h.CreateMarking)
		r.Get("/", h.ListByVictim)
		r.Get("/agrupadas", h.ListGrouped)
	})

	r.Route("/{markingID}", func(r chi.Router) {
		r.Get("/", h.GetMarking)
		r.Put("/", h.UpdateMarking)
		r.Delete("/", h.RemoveMarking)
	})

	return r
}

// --- Request types ---

type CreateMarkingRequest struct {
	Type        MarkingType `json:"tipo"`
	Anatomy     Anatomy     `json:"anatomia"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Region      Region      `json:"regiao"`
	Description string      `json:"descricao"`
	Notes       string      `json:"observacoes,omitempty"`
	Color       string      `json:"cor,omitempty"`
	Size        int         `json:"tamanho,omitempty"`
}

type UpdateMarkingRequest struct {
	Type        *MarkingType `json:"tipo,omitempty"`
	Anatomy     *Anatomy     `json:"anatomia,omitempty"`
	X           *float64     `json:"x,omitempty"`
	Y           *float64     `json:"y,omitempty"`
	Region      *Region      `json:"regiao,omitempty"`
	Description *string      `json:"descricao,omitempty"`
	Notes       *string      `json:"observacoes,omitempty"`
	Color       *string      `json:"cor,omitempty"`
	Size        *int         `json:"tamanho,omitempty"`
}

// --- Handlers ---

// GetTypes serves the static marking vocabulary
func (h *Handler) GetTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetVocabulary())
}

func (h *Handler) CreateMarking(w http.ResponseWriter, r *http.Request) {
	victim, c, ok := h.getVictimCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	var req CreateMarkingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	m, err := NewMarking(victim.ID, req.Type, req.Anatomy, req.X, req.Y, req.Region, req.Description, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	m.Notes = req.Notes
	if req.Color != "" {
		m.Color = req.Color
	}
	if req.Size != 0 {
		m.Size = req.Size
		if err := m.Validate(); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := h.repo.Save(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionMarkingCreated, &victim.CaseID, map[string]any{
		"vitima":   victim.ID,
		"marcacao": m.ID,
		"tipo":     m.Type,
	})

	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) ListByVictim(w http.ResponseWriter, r *http.Request) {
	victim, c, ok := h.getVictimCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	includeRemoved := r.URL.Query().Get("incluir_removidas") == "true"

	markings, err := h.repo.FindByVictim(r.Context(), victim.ID, includeRemoved)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  markings,
		"total": len(markings),
	})
}

func (h *Handler) ListGrouped(w http.ResponseWriter, r *http.Request) {
	victim, c, ok := h.getVictimCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	markings, err := h.repo.FindByVictim(r.Context(), victim.ID, false)
	if err != nil {
		writeError(w, err)
		return
	}

	groups := GroupByAnatomy(markings)

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  groups,
		"total": len(groups),
	})
}

func (h *Handler) GetMarking(w http.ResponseWriter, r *http.Request) {
	m, c, ok := h.getMarkingCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) UpdateMarking(w http.ResponseWriter, r *http.Request) {
	m, c, ok := h.getMarkingCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	var req UpdateMarkingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Type != nil {
		m.Type = *req.Type
	}
	if req.Anatomy != nil {
		m.Anatomy = *req.Anatomy
	}
	if req.X != nil {
		m.X = *req.X
	}
	if req.Y != nil {
		m.Y = *req.Y
	}
	if req.Region != nil {
		m.Region = *req.Region
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}
	if req.Color != nil {
		m.Color = *req.Color
	}
	if req.Size != nil {
		m.Size = *req.Size
	}

	if err := m.Validate(); err != nil {
		writeError(w, err)
		return
	}
	m.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionMarkingUpdated, &c.ID, map[string]any{
		"vitima":   m.VictimID,
		"marcacao": m.ID,
	})

	writeJSON(w, http.StatusOK, m)
}

// RemoveMarking soft deletes: the row stays with status "removido"
func (h *Handler) RemoveMarking(w http.ResponseWriter, r *http.Request) {
	m, c, ok := h.getMarkingCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	m.Remove()

	if err := h.repo.Update(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionMarkingRemoved, &c.ID, map[string]any{
		"vitima":   m.VictimID,
		"marcacao": m.ID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *Handler) getVictimCase(w http.ResponseWriter, r *http.Request) (*victimdomain.Victim, *casedomain.Case, bool) {
	victimID, err := types.ParseID(chi.URLParam(r, "victimID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid victim ID"))
		return nil, nil, false
	}

	victim, err := h.victims.FindByID(r.Context(), victimID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	c, err := h.cases.FindByID(r.Context(), victim.CaseID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	return victim, c, true
}

func (h *Handler) getMarkingCase(w http.ResponseWriter, r *http.Request) (*Marking, *casedomain.Case, bool) {
	id, err := types.ParseID(chi.URLParam(r, "markingID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid marking ID"))
		return nil, nil, false
	}

	m, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	victim, err := h.victims.FindByID(r.Context(), m.VictimID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	c, err := h.cases.FindByID(r.Context(), victim.CaseID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	return m, c, true
}

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
