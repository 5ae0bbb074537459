package evidence

import (
	"time"

	"github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
)

// FileType classifies the uploaded file. Images and documents get
// different handling on the viewing side.
type FileType string

const (
	FileTypeImagem    FileType = "imagem"
	FileTypeDocumento FileType = "documento"
)

// MaxFileSize caps uploads at 10MB
const MaxFileSize = 10 << 20

// allowedContentTypes lists the accepted upload MIME types
var allowedContentTypes = map[string]bool{
	"image/jpeg":         true,
	"image/jpg":          true,
	"image/png":          true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// ContentTypeAllowed reports whether the MIME type may be uploaded
func ContentTypeAllowed(contentType string) bool {
	return allowedContentTypes[contentType]
}

// FileTypeFor derives the classification from the MIME type
func FileTypeFor(contentType string) FileType {
	if len(contentType) >= 6 && contentType[:6] == "image/" {
		return FileTypeImagem
	}
	return FileTypeDocumento
}

// Evidence is a file attached to a case, stored in the blob store.
// The record keeps the collection metadata and a SHA-256 of the
// uploaded content for later integrity checks.
type Evidence struct {
	ID             types.ID  `json:"id"`
	CaseID         types.ID  `json:"caso"`
	Title          string    `json:"titulo"`
	Description    string    `json:"descricao,omitempty"`
	CollectionSite string    `json:"local_coleta,omitempty"`
	CollectionDate time.Time `json:"data_coleta"`

	FileType    FileType `json:"tipo_arquivo"`
	BlobKey     string   `json:"arquivo"`
	ContentType string   `json:"content_type"`
	FileSize    int64    `json:"tamanho"`
	FileHash    string   `json:"hash"`

	// Optional geolocation of the collection site
	Location *types.Geolocation `json:"localizacao,omitempty"`

	UploadedBy types.ID  `json:"criado_por"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewEvidence creates an evidence record with validation. The blob key,
// size and hash are filled in by the upload handler after storage.
func NewEvidence(
	caseID types.ID,
	title, description, collectionSite string,
	collectionDate time.Time,
	contentType string,
	location *types.Geolocation,
	uploadedBy types.ID,
) (*Evidence, error) {
	details := map[string]string{}
	if title == "" {
		details["titulo"] = "title is required"
	}
	if collectionDate.IsZero() {
		details["data_coleta"] = "collection date is required"
	}
	if !ContentTypeAllowed(contentType) {
		details["arquivo"] = "unsupported file type: " + contentType
	}
	if location != nil {
		if err := location.Validate(); err != nil {
			details["localizacao"] = err.Error()
		}
	}
	if len(details) > 0 {
		return nil, errors.Validation("invalid evidence data", details)
	}

	now := time.Now()
	return &Evidence{
		ID:             types.NewID(),
		CaseID:         caseID,
		Title:          title,
		Description:    description,
		CollectionSite: collectionSite,
		CollectionDate: collectionDate,
		FileType:       FileTypeFor(contentType),
		ContentType:    contentType,
		Location:       location,
		UploadedBy:     uploadedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
