package ai

import (
	"fmt"
	"strings"

	casedomain "github.com/perito-digital/platform/internal/case/domain"
	"github.com/perito-digital/platform/internal/dentalreport"
	"github.com/perito-digital/platform/internal/evidence"
	victimdomain "github.com/perito-digital/platform/internal/victim/domain"
)

// Prompt builders. All generated documents are in Portuguese, so the
// prompts are too. Each builder embeds the relevant record data and a
// fixed instruction block describing the expected document shape.

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func writeVictimIdentity(b *strings.Builder, v *victimdomain.Victim) {
	fmt.Fprintf(b, "Nome: %s\n", valueOr(v.Name, "Não informado"))
	fmt.Fprintf(b, "NIC: %s\n", v.NIC)
	if v.Age > 0 {
		fmt.Fprintf(b, "Idade: %d\n", v.Age)
	} else {
		b.WriteString("Idade: Não informado\n")
	}
	fmt.Fprintf(b, "Gênero: %s\n", valueOr(v.Gender, "Não informado"))
}

func writeOdontogramFindings(b *strings.Builder, o *victimdomain.Odontogram) {
	if o == nil {
		return
	}

	quadrants := o.PartitionByQuadrant()
	wrote := false
	for _, q := range quadrants {
		if len(q.Teeth) == 0 {
			continue
		}
		if !wrote {
			b.WriteString("\nACHADOS DO ODONTOGRAMA:\n")
			wrote = true
		}
		for _, tooth := range q.Teeth {
			for _, cond := range tooth.Conditions {
				fmt.Fprintf(b, "- Dente %s: %s", tooth.Number, cond.Type.Label())
				if cond.Description != "" {
					fmt.Fprintf(b, " (%s)", cond.Description)
				}
				b.WriteString("\n")
			}
		}
	}
}

// ObservationsPrompt asks for clinical odontological observations
func ObservationsPrompt(c *casedomain.Case, v *victimdomain.Victim) string {
	var b strings.Builder

	b.WriteString("Gere observações odontológicas técnicas para o seguinte caso:\n\n")
	b.WriteString("DADOS DA VÍTIMA:\n")
	writeVictimIdentity(&b, v)
	fmt.Fprintf(&b, "\nCASO: %s\n", c.Title)
	writeOdontogramFindings(&b, v.Odontogram)

	b.WriteString("\nINSTRUÇÕES:\n")
	b.WriteString("- Descreva observações clínicas odontológicas\n")
	b.WriteString("- Inclua aspectos anatômicos relevantes\n")
	b.WriteString("- Mencione condições dentárias e periodontais\n")
	b.WriteString("- Use terminologia odontológica apropriada\n")
	b.WriteString("- Máximo 400 palavras, texto técnico objetivo")

	return b.String()
}

// OpinionPrompt asks for a conclusive technical parecer
func OpinionPrompt(c *casedomain.Case, v *victimdomain.Victim) string {
	var b strings.Builder

	b.WriteString("Gere um parecer técnico odontológico conclusivo para:\n\n")
	fmt.Fprintf(&b, "VÍTIMA: %s (NIC: %s)\n", valueOr(v.Name, "Não informado"), v.NIC)
	fmt.Fprintf(&b, "CASO: %s\n", c.Title)
	writeOdontogramFindings(&b, v.Odontogram)

	b.WriteString("\nINSTRUÇÕES PARA PARECER:\n")
	b.WriteString("- Apresente conclusões técnicas definitivas\n")
	b.WriteString("- Correlacione achados com o caso\n")
	b.WriteString("- Inclua implicações periciais\n")
	b.WriteString("- Use linguagem formal e conclusiva\n")
	b.WriteString("- Máximo 300 palavras, foco nas conclusões")

	return b.String()
}

// FinalReportPrompt asks for the closing report consolidating the
// collected evidence and issued laudos
func FinalReportPrompt(c *casedomain.Case, evidences []*evidence.Evidence, laudos []*dentalreport.DentalReport) string {
	var b strings.Builder

	b.WriteString("Gere um relatório final executivo completo para o seguinte caso pericial:\n\n")
	b.WriteString("INFORMAÇÕES DO CASO:\n")
	fmt.Fprintf(&b, "Título: %s\n", c.Title)
	fmt.Fprintf(&b, "Tipo: %s\n", c.Type)
	fmt.Fprintf(&b, "Descrição: %s\n", valueOr(c.Description, "Não informado"))
	fmt.Fprintf(&b, "Status: %s\n", c.Status)
	fmt.Fprintf(&b, "Data de Abertura: %s\n\n", c.CreatedAt.Format("02/01/2006"))

	if len(evidences) > 0 {
		fmt.Fprintf(&b, "EVIDÊNCIAS COLETADAS (%d total):\n", len(evidences))
		for i, ev := range evidences {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, ev.Title, ev.FileType)
			fmt.Fprintf(&b, "   Descrição: %s\n", valueOr(ev.Description, "Não informado"))
			fmt.Fprintf(&b, "   Local de Coleta: %s\n\n", valueOr(ev.CollectionSite, "Não informado"))
		}
	}

	if len(laudos) > 0 {
		fmt.Fprintf(&b, "LAUDOS PERICIAIS (%d total):\n", len(laudos))
		for i, l := range laudos {
			fmt.Fprintf(&b, "%d. Data: %s\n", i+1, l.IssuedAt.Format("02/01/2006"))
			summary := l.Opinion
			if len(summary) > 200 {
				summary = summary[:200] + "..."
			}
			fmt.Fprintf(&b, "   Parecer: %s\n\n", summary)
		}
	}

	b.WriteString("INSTRUÇÕES PARA O RELATÓRIO FINAL:\n")
	b.WriteString("- Estruture em: Resumo Executivo, Análise Consolidada, Conclusões Finais, Recomendações\n")
	b.WriteString("- Consolide todas as evidências e laudos\n")
	b.WriteString("- Apresente conclusões definitivas\n")
	b.WriteString("- Sugira encaminhamentos ou recomendações\n")
	b.WriteString("- Use linguagem formal adequada\n")
	b.WriteString("- Seja conclusivo, este é o fechamento do caso")

	return b.String()
}
