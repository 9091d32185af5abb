package document

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// PDFRenderer renders a single-page Letter PDF with core fonts.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return ".pdf" }

// Render implements Renderer.
func (PDFRenderer) Render(doc QuoteDocument) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Residential Solar Quote", true)
	pdf.SetCreator("solarquote", true)
	if !doc.GeneratedAt.IsZero() {
		pdf.SetCreationDate(doc.GeneratedAt)
		pdf.SetModificationDate(doc.GeneratedAt)
	}
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Residential Solar Quote", "", 1, "L", false, 0, "")
	if date := generatedAt(doc); date != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "Prepared "+date, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, f := range fields(doc) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(70, 8, tr(f.Label), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(f.Value), "1", 1, "L", false, 0, "")
	}

	if len(doc.Warnings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, w := range doc.Warnings {
			pdf.MultiCell(0, 5, tr("- "+w), "", "L", false)
		}
	}

	if lines := doc.Installer.Lines(); len(lines) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Installer", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, l := range lines {
			pdf.CellFormat(0, 6, tr(l), "", 1, "L", false, 0, "")
		}
	}

	if doc.QuoteID != uuid.Nil {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(0, 4, fmt.Sprintf("Quote %s. Figures are estimates and do not constitute a binding offer.", doc.QuoteID), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
