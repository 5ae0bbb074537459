package api

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
	"github.com/perito-digital/platform/internal/shared/metrics"
	"github.com/perito-digital/platform/internal/shared/types"
	"github.com/perito-digital/platform/internal/victim/domain"
)

// Handler provides HTTP handlers for the victim module
type Handler struct {
	repo         domain.Repository
	cases        casedomain.Repository
	recorder     *audit.Recorder
	dentalRoutes chi.Router
}

// NewHandler creates a new victim handler
func NewHandler(repo domain.Repository, cases casedomain.Repository, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, cases: cases, recorder: recorder}
}

// WithDentalRoutes mounts the dental report routes under each victim
func (h *Handler) WithDentalRoutes(routes chi.Router) *Handler {
	h.dentalRoutes = routes
	return h
}

// Routes registers the victim routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateVictim)
	r.Get("/by-case/{caseID}", h.ListByCase)

	r.Route("/{victimID}", func(r chi.Router) {
		r.Get("/", h.GetVictim)
		r.Put("/", h.UpdateVictim)
		r.Delete("/", h.DeleteVictim)

		r.Put("/anatomical-regions", h.UpdateAnatomicalRegions)

		if h.dentalRoutes != nil {
			r.Mount("/dental-reports", h.dentalRoutes)
		}

		r.Route("/odontogram", func(r chi.Router) {
			r.Get("/", h.GetOdontogram)
			r.Put("/", h.UpdateOdontogram)

			r.Route("/tooth/{toothNumber}", func(r chi.Router) {
				r.Put("/", h.UpdateTooth)
				r.Put("/observations", h.UpdateToothObservations)
				r.Post("/condition", h.AddCondition)
				r.Delete("/condition/{conditionID}", h.RemoveCondition)
			})
		})
	})

	return r
}

// --- Request types ---

type CreateVictimRequest struct {
	CaseID     types.ID           `json:"caso"`
	NIC        string             `json:"nic"`
	Name       string             `json:"nome"`
	Gender     string             `json:"genero"`
	Age        int                `json:"idade"`
	Document   *domain.Document   `json:"documento,omitempty"`
	Address    string             `json:"endereco,omitempty"`
	Ethnicity  string             `json:"etnia,omitempty"`
	Odontogram *domain.Odontogram `json:"odontograma,omitempty"`
}

type UpdateVictimRequest struct {
	Name      *string          `json:"nome,omitempty"`
	Gender    *string          `json:"genero,omitempty"`
	Age       *int             `json:"idade,omitempty"`
	Document  *domain.Document `json:"documento,omitempty"`
	Address   *string          `json:"endereco,omitempty"`
	Ethnicity *string          `json:"etnia,omitempty"`
}

type UpdateToothRequest struct {
	Present *bool `json:"presente,omitempty"`
}

type UpdateObservationsRequest struct {
	Observations string `json:"observacoes"`
}

type AddConditionRequest struct {
	Type        domain.ConditionType `json:"tipo"`
	Faces       []domain.Face        `json:"faces,omitempty"`
	Description string               `json:"descricao,omitempty"`
}

type UpdateAnatomicalRegionsRequest struct {
	Regions []string `json:"regioes_anatomicas"`
}

// --- Handlers ---

func (h *Handler) CreateVictim(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	var req CreateVictimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	c, err := h.cases.FindByID(r.Context(), req.CaseID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !policy.CanEdit(user, c) {
		metrics.RecordAuthorizationDecision("victim.create", false)
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	nic, err := types.ParseNIC(req.NIC)
	if err != nil {
		writeError(w, err)
		return
	}

	v, err := domain.NewVictim(
		req.CaseID, nic, req.Name, req.Gender, req.Age,
		req.Document, req.Address, req.Ethnicity,
		req.Odontogram, user.ID,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordVictimRegistered()
	h.recorder.Record(r.Context(), user, audit.ActionVictimCreated, &v.CaseID, map[string]any{
		"vitima": v.ID,
		"nic":    v.NIC.Masked(),
	})

	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) ListByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return
	}

	c, err := h.cases.FindByID(r.Context(), caseID)
	if err != nil {
		writeError(w, err)
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	victims, err := h.repo.FindByCase(r.Context(), caseID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  victims,
		"total": len(victims),
	})
}

func (h *Handler) GetVictim(w http.ResponseWriter, r *http.Request) {
	v, _, ok := h.getVictimForView(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateVictim(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	var req UpdateVictimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, errors.Validation("invalid victim data", map[string]string{"nome": "name is required"}))
			return
		}
		v.Name = *req.Name
	}
	if req.Gender != nil {
		v.Gender = *req.Gender
	}
	if req.Age != nil {
		if *req.Age < 0 {
			writeError(w, errors.Validation("invalid victim data", map[string]string{"idade": "age cannot be negative"}))
			return
		}
		v.Age = *req.Age
	}
	if req.Document != nil {
		v.Document = req.Document
	}
	if req.Address != nil {
		v.Address = *req.Address
	}
	if req.Ethnicity != nil {
		v.Ethnicity = *req.Ethnicity
	}
	v.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionVictimUpdated, &v.CaseID, map[string]any{
		"vitima": v.ID,
	})

	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteVictim(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), v.ID); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionVictimDeleted, &v.CaseID, map[string]any{
		"vitima": v.ID,
		"nic":    v.NIC.Masked(),
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateAnatomicalRegions(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	var req UpdateAnatomicalRegionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	v.AnatomicalRegions = req.Regions
	v.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionVictimUpdated, &v.CaseID, map[string]any{
		"vitima": v.ID,
		"campo":  "regioes_anatomicas",
	})

	writeJSON(w, http.StatusOK, v)
}

// --- Odontogram handlers ---

func (h *Handler) GetOdontogram(w http.ResponseWriter, r *http.Request) {
	v, _, ok := h.getVictimForView(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, v.Odontogram)
}

// UpdateOdontogram replaces the whole chart. Only the structured shape
// is accepted: free-form payloads are rejected at decode time.
func (h *Handler) UpdateOdontogram(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	var odontogram domain.Odontogram
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&odontogram); err != nil {
		writeError(w, errors.BadRequest("invalid odontogram payload"))
		return
	}

	if odontogram.Scheme != domain.SchemeAdult && odontogram.Scheme != domain.SchemeChild {
		writeError(w, errors.Validation("invalid odontogram scheme", map[string]string{"esquema": string(odontogram.Scheme)}))
		return
	}

	v.Odontogram = &odontogram
	v.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionOdontogramUpdated, &v.CaseID, map[string]any{
		"vitima": v.ID,
	})

	writeJSON(w, http.StatusOK, v.Odontogram)
}

func (h *Handler) UpdateTooth(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	tooth, _, err := v.Odontogram.FindTooth(chi.URLParam(r, "toothNumber"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateToothRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Present != nil {
		tooth.Present = *req.Present
		tooth.LastModified = time.Now().UTC()
	}
	v.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionOdontogramUpdated, &v.CaseID, map[string]any{
		"vitima": v.ID,
		"dente":  tooth.Number,
	})

	writeJSON(w, http.StatusOK, tooth)
}

func (h *Handler) UpdateToothObservations(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	tooth, _, err := v.Odontogram.FindTooth(chi.URLParam(r, "toothNumber"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateObservationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	tooth.Observations = req.Observations
	tooth.LastModified = time.Now().UTC()
	v.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionToothObservationsSaved, &v.CaseID, map[string]any{
		"vitima": v.ID,
		"dente":  tooth.Number,
	})

	writeJSON(w, http.StatusOK, tooth)
}

func (h *Handler) AddCondition(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	tooth, _, err := v.Odontogram.FindTooth(chi.URLParam(r, "toothNumber"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req AddConditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	condition, err := domain.NewCondition(req.Type, req.Faces, req.Description, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	tooth.AddCondition(*condition)
	v.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionToothConditionAdded, &v.CaseID, map[string]any{
		"vitima": v.ID,
		"dente":  tooth.Number,
		"tipo":   condition.Type,
	})

	writeJSON(w, http.StatusCreated, condition)
}

func (h *Handler) RemoveCondition(w http.ResponseWriter, r *http.Request) {
	v, user, ok := h.getVictimForEdit(w, r)
	if !ok {
		return
	}

	tooth, _, err := v.Odontogram.FindTooth(chi.URLParam(r, "toothNumber"))
	if err != nil {
		writeError(w, err)
		return
	}

	conditionID, err := types.ParseID(chi.URLParam(r, "conditionID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid condition ID"))
		return
	}

	if err := tooth.RemoveCondition(conditionID); err != nil {
		writeError(w, err)
		return
	}
	v.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionToothConditionRemoved, &v.CaseID, map[string]any{
		"vitima":   v.ID,
		"dente":    tooth.Number,
		"condicao": conditionID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *Handler) getVictim(w http.ResponseWriter, r *http.Request) (*domain.Victim, *casedomain.Case, bool) {
	id, err := types.ParseID(chi.URLParam(r, "victimID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid victim ID"))
		return nil, nil, false
	}

	v, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	c, err := h.cases.FindByID(r.Context(), v.CaseID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	return v, c, true
}

func (h *Handler) getVictimForView(w http.ResponseWriter, r *http.Request) (*domain.Victim, *auth.User, bool) {
	v, c, ok := h.getVictim(w, r)
	if !ok {
		return nil, nil, false
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return nil, nil, false
	}

	return v, user, true
}

func (h *Handler) getVictimForEdit(w http.ResponseWriter, r *http.Request) (*domain.Victim, *auth.User, bool) {
	v, c, ok := h.getVictim(w, r)
	if !ok {
		return nil, nil, false
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		metrics.RecordAuthorizationDecision("victim.edit", false)
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return nil, nil, false
	}

	return v, user, true
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
