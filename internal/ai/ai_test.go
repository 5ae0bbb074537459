package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/shared/config"
	apperrors "github.com/perito-digital/platform/internal/shared/errors"
	"github.com/perito-digital/platform/internal/shared/types"
	victimdomain "github.com/perito-digital/platform/internal/victim/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.AIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gemini-1.5-flash",
	})
}

// TestGenerate tests a successful generation round trip
func TestGenerate(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"texto gerado"}]}}]}`))
	})

	text, err := client.Generate(context.Background(), "prompt de teste", MaxTokensParecer)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if text != "texto gerado" {
		t.Errorf("unexpected generated text: %q", text)
	}
	if gotPath != "/models/gemini-1.5-flash:generateContent" {
		t.Errorf("unexpected request path: %s", gotPath)
	}
}

// TestGenerateUpstreamFailure tests that a failing service surfaces as 503
func TestGenerateUpstreamFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Generate(context.Background(), "prompt", MaxTokensAnalise)
	if err == nil {
		t.Fatal("expected error from failing upstream")
	}

	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != "UPSTREAM_ERROR" {
		t.Errorf("expected UPSTREAM_ERROR, got %s", appErr.Code)
	}
	if appErr.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", appErr.HTTPStatus)
	}
}

// TestGenerateEmptyCandidates tests the malformed-response path
func TestGenerateEmptyCandidates(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	if _, err := client.Generate(context.Background(), "prompt", MaxTokensAnalise); err == nil {
		t.Error("expected error for response without candidates")
	}
}

func promptFixtures(t *testing.T) (*casedomain.Case, *victimdomain.Victim) {
	t.Helper()

	creator := types.NewID()
	c, err := casedomain.NewCase(
		"Identificação de vítima de acidente", casedomain.CaseTypeIdentificacaoVitima,
		"", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), creator, creator, nil,
	)
	if err != nil {
		t.Fatal(err)
	}

	v, err := victimdomain.NewVictim(
		c.ID, types.NIC("NIC-2026-0007"), "Desconhecida 02", "feminino", 30,
		nil, "", "", nil, creator,
	)
	if err != nil {
		t.Fatal(err)
	}

	tooth, _, err := v.Odontogram.FindTooth("36")
	if err != nil {
		t.Fatal(err)
	}
	cond, _ := victimdomain.NewCondition(victimdomain.ConditionRestaurado, []victimdomain.Face{victimdomain.FaceOclusal}, "amálgama", creator)
	tooth.AddCondition(*cond)

	return c, v
}

// TestObservationsPrompt tests that the prompt carries the chart findings
func TestObservationsPrompt(t *testing.T) {
	c, v := promptFixtures(t)

	prompt := ObservationsPrompt(c, v)

	for _, want := range []string{
		"NIC: NIC-2026-0007",
		"CASO: Identificação de vítima de acidente",
		"ACHADOS DO ODONTOGRAMA:",
		"Dente 36: Restaurado (amálgama)",
		"terminologia odontológica",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

// TestObservationsPromptWithoutFindings tests that a clean chart omits the
// findings section entirely
func TestObservationsPromptWithoutFindings(t *testing.T) {
	c, v := promptFixtures(t)
	fresh, err := victimdomain.InitializeOdontogram(victimdomain.SchemeAdult)
	if err != nil {
		t.Fatal(err)
	}
	v.Odontogram = fresh

	prompt := ObservationsPrompt(c, v)

	if strings.Contains(prompt, "ACHADOS DO ODONTOGRAMA") {
		t.Errorf("prompt should omit the findings section for a clean chart:\n%s", prompt)
	}
}

// TestOpinionPrompt tests the parecer prompt shape
func TestOpinionPrompt(t *testing.T) {
	c, v := promptFixtures(t)

	prompt := OpinionPrompt(c, v)

	if !strings.Contains(prompt, "parecer técnico odontológico conclusivo") {
		t.Errorf("prompt missing parecer instruction:\n%s", prompt)
	}
	if !strings.Contains(prompt, "VÍTIMA: Desconhecida 02 (NIC: NIC-2026-0007)") {
		t.Errorf("prompt missing victim identity:\n%s", prompt)
	}
}
