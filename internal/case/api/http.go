package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/perito-digital/platform/internal/audit"
	"github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/policy"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/metrics"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the case module
type Handler struct {
	repo     domain.Repository
	recorder *audit.Recorder
}

// NewHandler creates a new case handler
func NewHandler(repo domain.Repository, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, recorder: recorder}
}

// Routes registers the case routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListCases)
	r.With(auth.RequireRoles(auth.RoleAdmin, auth.RolePerito)).Post("/", h.CreateCase)
	r.Get("/nearby", h.FindNearby)

	r.Route("/{caseID}", func(r chi.Router) {
		r.Get("/", h.GetCase)
		r.Put("/", h.UpdateCase)
		r.With(auth.RequireRoles(auth.RoleAdmin)).Delete("/", h.DeleteCase)
		r.Post("/archive", h.ArchiveCase)
	})

	return r
}

// --- Request types ---

type CreateCaseRequest struct {
	Title       string             `json:"titulo"`
	Type        domain.CaseType    `json:"tipo"`
	Description string             `json:"descricao,omitempty"`
	OccurredAt  time.Time          `json:"data"`
	Responsible *types.ID          `json:"responsavel,omitempty"`
	Location    *types.Geolocation `json:"localizacao,omitempty"`
}

type UpdateCaseRequest struct {
	Title       *string            `json:"titulo,omitempty"`
	Type        *domain.CaseType   `json:"tipo,omitempty"`
	Description *string            `json:"descricao,omitempty"`
	OccurredAt  *time.Time         `json:"data,omitempty"`
	Responsible *types.ID          `json:"responsavel,omitempty"`
	Location    *types.Geolocation `json:"localizacao,omitempty"`
}

// --- Handlers ---

// ListCases lists cases visible to the caller
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter{
		Search:    r.URL.Query().Get("search"),
		OrderBy:   r.URL.Query().Get("order_by"),
		OrderDesc: r.URL.Query().Get("order") == "desc",
	}

	if t := r.URL.Query().Get("tipo"); t != "" {
		caseType := domain.CaseType(t)
		filter.Type = &caseType
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.CaseStatus(s)
		filter.Status = &status
	}
	if resp := r.URL.Query().Get("responsavel"); resp != "" {
		if id, err := types.ParseID(resp); err == nil {
			filter.ResponsibleID = &id
		}
	}
	if creator := r.URL.Query().Get("criado_por"); creator != "" {
		if id, err := types.ParseID(creator); err == nil {
			filter.CreatedBy = &id
		}
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		filter.Offset, _ = strconv.Atoi(offset)
	}

	cases, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	// Drop cases the caller cannot see. Total stays the unfiltered
	// count so paging remains stable.
	user := auth.GetUser(r.Context())
	visible := make([]domain.Case, 0, len(cases))
	for i := range cases {
		if policy.CanView(user, &cases[i]) {
			visible = append(visible, cases[i])
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  visible,
		"total": total,
	})
}

// CreateCase creates a new case
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	user := auth.GetUser(r.Context())

	// Creator is the default responsible examiner
	responsible := user.ID
	if req.Responsible != nil && !req.Responsible.IsZero() {
		responsible = *req.Responsible
	}

	c, err := domain.NewCase(req.Title, req.Type, req.Description, req.OccurredAt, responsible, user.ID, req.Location)
	if err != nil {
		writeError(w, errors.BadRequest(err.Error()))
		return
	}

	if err := h.repo.Save(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordCaseCreated(string(c.Type))
	h.recorder.Record(r.Context(), user, audit.ActionCaseCreated, &c.ID, map[string]any{
		"titulo": c.Title,
		"tipo":   c.Type,
	})

	writeJSON(w, http.StatusCreated, c)
}

// GetCase gets a case by ID
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// UpdateCase updates a case. Finalized cases reject every edit.
func (h *Handler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		metrics.RecordAuthorizationDecision("case.edit", false)
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	var req UpdateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			writeError(w, errors.BadRequest("title is required"))
			return
		}
		c.Title = *req.Title
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			writeError(w, errors.BadRequest("unknown case type: "+string(*req.Type)))
			return
		}
		c.Type = *req.Type
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.OccurredAt != nil {
		c.OccurredAt = *req.OccurredAt
	}
	if req.Responsible != nil && !req.Responsible.IsZero() {
		c.ResponsibleID = *req.Responsible
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			writeError(w, errors.BadRequest(err.Error()))
			return
		}
		c.Location = req.Location
	}
	c.UpdatedAt = time.Now()

	if err := h.repo.Update(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionCaseUpdated, &c.ID, map[string]any{
		"titulo": c.Title,
	})

	writeJSON(w, http.StatusOK, c)
}

// DeleteCase deletes a case. Admin only, and the edit policy still
// applies: a finalized case cannot be deleted.
func (h *Handler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		metrics.RecordAuthorizationDecision("case.delete", false)
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	if err := h.repo.Delete(r.Context(), c.ID); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionCaseDeleted, &c.ID, map[string]any{
		"titulo": c.Title,
	})

	w.WriteHeader(http.StatusNoContent)
}

// ArchiveCase transitions the case to arquivado
func (h *Handler) ArchiveCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	// Archival is allowed on finalized cases too, so the edit policy
	// does not apply here. Admins and the creating perito may archive.
	allowed := user != nil && (user.Role == auth.RoleAdmin ||
		(user.Role == auth.RolePerito && user.ID == c.CreatedBy))
	if !allowed {
		writeError(w, errors.Forbidden("no permission to archive this case"))
		return
	}

	prevStatus := c.Status
	if err := c.Archive(); err != nil {
		writeError(w, errors.BadRequest(err.Error()))
		return
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordCaseStatusChange(string(prevStatus), string(c.Status))
	h.recorder.Record(r.Context(), user, audit.ActionCaseArchived, &c.ID, nil)

	writeJSON(w, http.StatusOK, c)
}

// FindNearby finds cases within distanceKm of the given point
func (h *Handler) FindNearby(w http.ResponseWriter, r *http.Request) {
	longitude, err := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if err != nil {
		writeError(w, errors.BadRequest("longitude is required"))
		return
	}
	latitude, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	if err != nil {
		writeError(w, errors.BadRequest("latitude is required"))
		return
	}

	distanceKm := 10.0
	if d := r.URL.Query().Get("distanceKm"); d != "" {
		distanceKm, err = strconv.ParseFloat(d, 64)
		if err != nil || distanceKm <= 0 {
			writeError(w, errors.BadRequest("distanceKm must be a positive number"))
			return
		}
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}

	origin := types.Geolocation{Longitude: longitude, Latitude: latitude}
	if err := origin.Validate(); err != nil {
		writeError(w, errors.BadRequest(err.Error()))
		return
	}

	cases, err := h.repo.FindNearby(r.Context(), origin, distanceKm, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	user := auth.GetUser(r.Context())
	visible := make([]domain.Case, 0, len(cases))
	for i := range cases {
		if policy.CanView(user, &cases[i]) {
			visible = append(visible, cases[i])
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  visible,
		"total": len(visible),
	})
}

// --- Helpers ---

func (h *Handler) getCase(w http.ResponseWriter, r *http.Request) (*domain.Case, bool) {
	id, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return nil, false
	}

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	return c, true
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
