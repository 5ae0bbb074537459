package evidence

import (
	"testing"
	"time"

	"github.com/perito-digital/platform/internal/shared/types"
)

// TestFileTypeFor tests the image/document classification
func TestFileTypeFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        FileType
	}{
		{"image/jpeg", FileTypeImagem},
		{"image/png", FileTypeImagem},
		{"application/pdf", FileTypeDocumento},
		{"text/plain", FileTypeDocumento},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := FileTypeFor(tt.contentType); got != tt.want {
				t.Errorf("FileTypeFor(%s) = %s, want %s", tt.contentType, got, tt.want)
			}
		})
	}
}

// TestContentTypeAllowed tests the upload whitelist
func TestContentTypeAllowed(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/png", "application/pdf", "text/plain"} {
		if !ContentTypeAllowed(ct) {
			t.Errorf("%s should be allowed", ct)
		}
	}
	for _, ct := range []string{"video/mp4", "application/zip", "application/x-msdownload", ""} {
		if ContentTypeAllowed(ct) {
			t.Errorf("%s should be rejected", ct)
		}
	}
}

// TestNewEvidence tests record creation and validation
func TestNewEvidence(t *testing.T) {
	caseID := types.NewID()
	uploader := types.NewID()
	collected := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)

	e, err := NewEvidence(caseID, "Radiografia panorâmica", "arcada completa", "IML Central", collected, "image/png", nil, uploader)
	if err != nil {
		t.Fatalf("failed to create evidence: %v", err)
	}

	if e.FileType != FileTypeImagem {
		t.Errorf("expected tipo imagem, got %s", e.FileType)
	}
	if e.CaseID != caseID {
		t.Error("evidence should reference its case")
	}
	if e.BlobKey != "" || e.FileHash != "" {
		t.Error("blob key and hash are filled in only after storage")
	}
}

// TestNewEvidenceValidation tests the required field checks
func TestNewEvidenceValidation(t *testing.T) {
	caseID := types.NewID()
	uploader := types.NewID()
	collected := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		title       string
		date        time.Time
		contentType string
		location    *types.Geolocation
	}{
		{"missing title", "", collected, "image/png", nil},
		{"missing collection date", "foto", time.Time{}, "image/png", nil},
		{"unsupported file type", "video", collected, "video/mp4", nil},
		{"invalid location", "foto", collected, "image/png", &types.Geolocation{Longitude: 200, Latitude: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEvidence(caseID, tt.title, "", "", tt.date, tt.contentType, tt.location, uploader); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// TestParseCollectionDate tests both accepted formats
func TestParseCollectionDate(t *testing.T) {
	if _, err := parseCollectionDate("2026-02-14T10:30:00Z"); err != nil {
		t.Errorf("RFC3339 should parse: %v", err)
	}

	got, err := parseCollectionDate("2026-02-14")
	if err != nil {
		t.Errorf("date-only should parse: %v", err)
	}
	if got.Year() != 2026 || got.Month() != 2 || got.Day() != 14 {
		t.Errorf("unexpected parsed date: %v", got)
	}

	if _, err := parseCollectionDate(""); err == nil {
		t.Error("empty date should fail")
	}
	if _, err := parseCollectionDate("14/02/2026"); err == nil {
		t.Error("unsupported format should fail")
	}
}
