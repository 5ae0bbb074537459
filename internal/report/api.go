package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/perito-digital/platform/internal/audit"
	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/pdf"
	"github.com/perito-digital/platform/internal/policy"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/metrics"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Handler provides HTTP handlers for final reports
type Handler struct {
	repo     *Repository
	cases    casedomain.Repository
	recorder *audit.Recorder
	now      func() time.Time
}

// NewHandler creates a new final report handler
func NewHandler(repo *Repository, cases casedomain.Repository, recorder *audit.Recorder) *Handler {
	return &Handler{
		repo:     repo,
		cases:    cases,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Routes registers the final report routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/cases/{caseID}", func(r chi.Router) {
		r.Post("/", h.CreateReport)
		r.Get("/", h.ListByCase)
		r.Get("/pdf", h.GetReportPDF)
	})

	return r
}

type CreateReportRequest struct {
	Title       string `json:"titulo"`
	Body        string `json:"conteudo"`
	AIGenerated bool   `json:"gerado_por_ia"`
}

// CreateReport creates the final report and finalizes the case.
// The two writes are sequential: if the case update fails the report
// is not kept, but the audit append is still fire-and-forget.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getCase(w, r)
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

	report, err := NewFinalReport(c, user.ID, req.Title, req.Body, req.AIGenerated, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	prevStatus := c.Status
	if err := c.Finalize(); err != nil {
		// Archived or already-finalized cases cannot take a final report
		writeError(w, errors.Conflict(err.Error()))
		return
	}

	if err := h.cases.Update(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), report); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordReportIssued("relatorio")
	metrics.RecordCaseStatusChange(string(prevStatus), string(c.Status))
	h.recorder.Record(r.Context(), user, audit.ActionFinalReportCreated, &c.ID, map[string]any{
		"relatorio": report.ID,
	})
	h.recorder.Record(r.Context(), user, audit.ActionCaseFinalized, &c.ID, nil)

	writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) ListByCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	reports, err := h.repo.FindByCase(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  reports,
		"total": len(reports),
	})
}

// GetReportPDF streams the newest final report for the case as PDF
func (h *Handler) GetReportPDF(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getCase(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return
	}

	reports, err := h.repo.FindByCase(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(reports) == 0 {
		writeError(w, errors.NotFound("final report", c.ID.String()))
		return
	}

	report := reports[0]

	var buf bytes.Buffer
	if err := pdf.RenderText(&buf, report.Title, report.Content); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="relatorio-%s.pdf"`, report.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// --- Helpers ---

func (h *Handler) getCase(w http.ResponseWriter, r *http.Request) (*casedomain.Case, bool) {
	id, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return nil, false
	}

	c, err := h.cases.FindByID(r.Context(), id)
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
