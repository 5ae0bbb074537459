package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/perito-digital/platform/internal/audit"
	"github.com/perito-digital/platform/internal/blobstore"
	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/policy"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/metrics"
	"github.com/perito-digital/platform/internal/shared/types"
)

// Handler provides HTTP handlers for evidence files
type Handler struct {
	repo     *Repository
	cases    casedomain.Repository
	blobs    blobstore.Store
	recorder *audit.Recorder
}

// NewHandler creates a new evidence handler
func NewHandler(repo *Repository, cases casedomain.Repository, blobs blobstore.Store, recorder *audit.Recorder) *Handler {
	return &Handler{repo: repo, cases: cases, blobs: blobs, recorder: recorder}
}

// Routes registers the evidence routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.UploadEvidence)
	r.Get("/by-case/{caseID}", h.ListByCase)

	r.Route("/{evidenceID}", func(r chi.Router) {
		r.Get("/", h.GetEvidence)
		r.Put("/", h.UpdateEvidence)
		r.Delete("/", h.DeleteEvidence)
		r.Get("/file", h.DownloadFile)
	})

	return r
}

// countingReader tracks bytes read so the stored size matches what
// actually went into the blob store
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// UploadEvidence accepts a multipart form with the file under "arquivo"
// plus the collection metadata fields
func (h *Handler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		writeError(w, errors.BadRequest("invalid multipart form or file too large"))
		return
	}

	caseID, err := types.ParseID(r.FormValue("caso"))
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
	if !policy.CanEdit(user, c) {
		metrics.RecordAuthorizationDecision("evidence.upload", false)
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	file, header, err := r.FormFile("arquivo")
	if err != nil {
		writeError(w, errors.Validation("invalid evidence data", map[string]string{
			"arquivo": "evidence file is required",
		}))
		return
	}
	defer file.Close()

	if header.Size > MaxFileSize {
		writeError(w, errors.Validation("invalid evidence data", map[string]string{
			"arquivo": "file exceeds the 10MB limit",
		}))
		return
	}

	collectionDate, err := parseCollectionDate(r.FormValue("data_coleta"))
	if err != nil {
		writeError(w, errors.Validation("invalid evidence data", map[string]string{
			"data_coleta": err.Error(),
		}))
		return
	}

	location, err := parseLocation(r.FormValue("longitude"), r.FormValue("latitude"))
	if err != nil {
		writeError(w, errors.Validation("invalid evidence data", map[string]string{
			"localizacao": err.Error(),
		}))
		return
	}

	contentType := header.Header.Get("Content-Type")
	record, err := NewEvidence(
		c.ID,
		r.FormValue("titulo"), r.FormValue("descricao"), r.FormValue("local_coleta"),
		collectionDate, contentType, location, user.ID,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	// Hash and count while streaming into the blob store
	hash := sha256.New()
	counter := &countingReader{r: io.TeeReader(file, hash)}

	key := fmt.Sprintf("evidencias/%s/%s", c.ID, record.ID)
	storedKey, err := h.blobs.Put(r.Context(), key, counter, contentType)
	if err != nil {
		writeError(w, err)
		return
	}

	record.BlobKey = storedKey
	record.FileSize = counter.n
	record.FileHash = hex.EncodeToString(hash.Sum(nil))

	if err := h.repo.Save(r.Context(), record); err != nil {
		h.blobs.Delete(r.Context(), storedKey)
		writeError(w, err)
		return
	}

	metrics.RecordEvidenceUploaded(string(record.FileType))
	h.recorder.Record(r.Context(), user, audit.ActionEvidenceUploaded, &c.ID, map[string]any{
		"evidencia": record.ID,
		"titulo":    record.Title,
		"hash":      record.FileHash,
	})

	writeJSON(w, http.StatusCreated, record)
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

	records, err := h.repo.FindByCase(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"total": len(records),
	})
}

func (h *Handler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	record, _, ok := h.getEvidenceForView(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, record)
}

type UpdateEvidenceRequest struct {
	Title          *string    `json:"titulo,omitempty"`
	Description    *string    `json:"descricao,omitempty"`
	CollectionSite *string    `json:"local_coleta,omitempty"`
	CollectionDate *time.Time `json:"data_coleta,omitempty"`
}

// UpdateEvidence updates the collection metadata. The stored file is
// immutable; re-collection means a new upload.
func (h *Handler) UpdateEvidence(w http.ResponseWriter, r *http.Request) {
	record, c, ok := h.getEvidence(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	var req UpdateEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			writeError(w, errors.Validation("invalid evidence data", map[string]string{
				"titulo": "title is required",
			}))
			return
		}
		record.Title = *req.Title
	}
	if req.Description != nil {
		record.Description = *req.Description
	}
	if req.CollectionSite != nil {
		record.CollectionSite = *req.CollectionSite
	}
	if req.CollectionDate != nil {
		record.CollectionDate = *req.CollectionDate
	}
	record.UpdatedAt = time.Now()

	if err := h.repo.Update(r.Context(), record); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// DeleteEvidence removes the record and its stored file
func (h *Handler) DeleteEvidence(w http.ResponseWriter, r *http.Request) {
	record, c, ok := h.getEvidence(w, r)
	if !ok {
		return
	}

	user := auth.GetUser(r.Context())
	if !policy.CanEdit(user, c) {
		writeError(w, errors.Forbidden("no permission to edit this case"))
		return
	}

	if err := h.repo.Delete(r.Context(), record.ID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.blobs.Delete(r.Context(), record.BlobKey); err != nil {
		// Row is gone; an orphaned blob is recoverable by key prefix
		writeError(w, err)
		return
	}

	h.recorder.Record(r.Context(), user, audit.ActionEvidenceDeleted, &c.ID, map[string]any{
		"evidencia": record.ID,
		"titulo":    record.Title,
	})

	w.WriteHeader(http.StatusNoContent)
}

// DownloadFile streams the stored file
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	record, _, ok := h.getEvidenceForView(w, r)
	if !ok {
		return
	}

	rc, err := h.blobs.Get(r.Context(), record.BlobKey)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, record.Title))
	if record.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(record.FileSize, 10))
	}
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

// --- Helpers ---

func parseCollectionDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("collection date is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("collection date must be RFC3339 or YYYY-MM-DD")
}

func parseLocation(lngRaw, latRaw string) (*types.Geolocation, error) {
	if lngRaw == "" && latRaw == "" {
		return nil, nil
	}

	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude")
	}

	loc := &types.Geolocation{Longitude: lng, Latitude: lat}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return loc, nil
}

func (h *Handler) getEvidence(w http.ResponseWriter, r *http.Request) (*Evidence, *casedomain.Case, bool) {
	id, err := types.ParseID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid evidence ID"))
		return nil, nil, false
	}

	record, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	c, err := h.cases.FindByID(r.Context(), record.CaseID)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	return record, c, true
}

func (h *Handler) getEvidenceForView(w http.ResponseWriter, r *http.Request) (*Evidence, *casedomain.Case, bool) {
	record, c, ok := h.getEvidence(w, r)
	if !ok {
		return nil, nil, false
	}

	user := auth.GetUser(r.Context())
	if !policy.CanView(user, c) {
		writeError(w, errors.Forbidden("no access to this case"))
		return nil, nil, false
	}

	return record, c, true
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
