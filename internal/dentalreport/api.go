package dentalreport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/perito-digital/platform/internal/audit"
	"github.com/perito-digital/platform/internal/blobstore"
	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/pdf"
	"github.com/perito-digital/platform/internal/policy"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/metrics"
	"github.com/perito-digital/platform/internal/shared/types"
	victimdomain "github.com/perito-digital/platform/internal/victim/domain"
)

// Handler provides HTTP handlers for dental reports
type Handler struct {
	repo     *Repository
	victims  victimdomain.Repository
	cases    casedomain.Repository
	blobs    blobstore.Store
	recorder *audit.Recorder
	now      func() time.Time
}

// NewHandler creates a new dental report handler
func NewHandler(repo *Repository, victims victimdomain.Repository, cases casedomain.Repository, blobs blobstore.Store, recorder *audit.Recorder) *Handler {
	return &Handler{
		repo:     repo,
		victims:  victims,
		cases:    cases,
		blobs:    blobs,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the emission clock. Used in tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// VictimRoutes registers the per-victim routes (create and list)
func (h *Handler) VictimRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateReport)
	r.Get("/", h.ListByVictim)
	return r
}

// Routes registers the report routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{reportID}", func(r chi.Router) {
		r.Get("/", h.GetReport)
		r.Put("/", h.UpdateReport)
		r.Get("/text", h.GetReportText)
		r.Get("/pdf", h.GetReportPDF)
		r.Post("/pdf", h.AttachReportPDF)
	})

	return r
}

// --- Request types ---

type CreateReportRequest struct {
	Observations string `json:"observacoes,omitempty"`
	Opinion      string `json:"parecer"`
}

type UpdateReportRequest struct {
	Observations string `json:"observacoes,omitempty"`
	Opinion      string `json:"parecer"`
}

// --- Handlers ---

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	victim, c, ok := h.getVictimCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	report, err := NewDentalReport(victim, user.ID, req.Observations, req.Opinion, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), report); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordReportIssued("laudo")
	h.recorder.Record(r.Context(), user, audit.ActionDentalReportCreated, &report.CaseID, map[string]any{
		"vitima": report.VictimID,
		"laudo":  report.ID,
	})

	writeJSON(w, http.StatusCreated, report)
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

	reports, err := h.repo.FindByVictim(r.Context(), victim.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  reports,
		"total": len(reports),
	})
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.getReportForView(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	report, c, ok := h.getReport(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	var req UpdateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	victim, err := h.victims.FindByID(r.Context(), report.VictimID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := report.Revise(victim, req.Observations, req.Opinion, h.now()); err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), report); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionDentalReportUpdated, &report.CaseID, map[string]any{
		"laudo": report.ID,
	})

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) GetReportText(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.getReportForView(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.FullText))
}

// GetReportPDF streams a rendered PDF of the frozen report text
func (h *Handler) GetReportPDF(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.getReportForView(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := pdf.RenderText(&buf, "LAUDO ODONTOLÓGICO", report.FullText); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="laudo-%s.pdf"`, report.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// AttachReportPDF renders the PDF, stores it in the blob store and
// records its key on the report
func (h *Handler) AttachReportPDF(w http.ResponseWriter, r *http.Request) {
	report, c, ok := h.getReport(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	var buf bytes.Buffer
	if err := pdf.RenderText(&buf, "LAUDO ODONTOLÓGICO", report.FullText); err != nil {
		writeError(w, err)
		return
	}

	key := fmt.Sprintf("laudos/%s.pdf", report.ID)
	storedKey, err := h.blobs.Put(r.Context(), key, &buf, "application/pdf")
	if err != nil {
		writeError(w, err)
		return
	}

	report.PDFKey = storedKey
	report.UpdatedAt = h.now()

	if err := h.repo.Update(r.Context(), report); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionDentalReportUpdated, &report.CaseID, map[string]any{
		"laudo": report.ID,
		"pdf":   storedKey,
	})

	writeJSON(w, http.StatusOK, report)
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

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) (*DentalReport, *casedomain.Case, bool) {
	id, err := types.ParseID(chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid report ID"))
		return nil, nil, false
	}

	report, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	c, err := h.cases.FindByID(r.Context(), report.CaseID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	return report, c, true
}

func (h *Handler) getReportForView(w http.ResponseWriter, r *http.Request) (*DentalReport, *casedomain.Case, bool) {
	report, c, ok := h.getReport(w, r)
	if !ok {
		return nil, nil, false
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return nil, nil, false
	}

	return report, c, true
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
