package pdf

import (
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/perito-digital/platform/internal/shared/errors"
)

// Section is one titled block of report text
type Section struct {
	Title string
	Body  string
}

// Render writes a simple A4 document with a centered title followed by
// the sections in order. Latin text only, which covers the Portuguese
// report vocabulary.
func Render(w io.Writer, title string, sections []Section) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetMargins(20, 20, 20)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	doc.Ln(4)

	for _, section := range sections {
		if section.Title != "" {
			doc.SetFont("Helvetica", "B", 11)
			doc.CellFormat(0, 8, tr(section.Title), "", 1, "L", false, 0, "")
		}

		doc.SetFont("Helvetica", "", 10)
		for _, line := range strings.Split(section.Body, "\n") {
			doc.MultiCell(0, 5, tr(line), "", "L", false)
		}
		doc.Ln(4)
	}

	if err := doc.Output(w); err != nil {
		return errors.Wrap(err, "failed to render pdf")
	}
	return nil
}

// RenderText writes a document whose body is a single pre-rendered text block
func RenderText(w io.Writer, title, text string) error {
	return Render(w, title, []Section{{Body: text}})
}
