// Package document renders quote summaries for homeowners. Renderers only
// format values already computed by the estimation package.
package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"solar-estimate/decision/estimation"
	qerrors "solar-estimate/pkg/errors"
)

// Format identifies an output format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Installer identifies who issues the quote.
type Installer struct {
	Name    string `json:"name" yaml:"name"`
	Company string `json:"company" yaml:"company"`
	Phone   string `json:"phone,omitempty" yaml:"phone"`
	Email   string `json:"email,omitempty" yaml:"email"`
	Website string `json:"website,omitempty" yaml:"website"`
	License string `json:"license,omitempty" yaml:"license"`
}

// Lines returns the non-empty identity lines in display order.
func (i Installer) Lines() []string {
	var lines []string
	for _, s := range []string{i.Name, i.Company, i.Phone, i.Email, i.Website} {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	if i.License != "" {
		lines = append(lines, "License "+i.License)
	}
	return lines
}

// QuoteDocument is everything a rendered quote shows.
type QuoteDocument struct {
	QuoteID     uuid.UUID          `json:"quote_id"`
	Address     string             `json:"address"`
	Summary     estimation.Summary `json:"summary"`
	Installer   Installer          `json:"installer"`
	GeneratedAt time.Time          `json:"generated_at"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// Renderer turns a quote document into bytes.
type Renderer interface {
	Render(doc QuoteDocument) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for a format name. Empty selects PDF.
func ForFormat(format string) (Renderer, error) {
	switch Format(strings.ToLower(strings.TrimSpace(format))) {
	case "", FormatPDF:
		return PDFRenderer{}, nil
	case FormatMarkdown, "md":
		return MarkdownRenderer{}, nil
	case FormatHTML:
		return HTMLRenderer{}, nil
	default:
		return nil, qerrors.NewInvalidInput("format", "unsupported document format %q", format)
	}
}

// field is one labeled line of the quote.
type field struct {
	Label string
	Value string
}

// fields lists the quote lines shared by every format. Optional values are
// omitted when the sizing strategy did not produce them.
func fields(doc QuoteDocument) []field {
	s := doc.Summary
	out := []field{
		{"Address", doc.Address},
		{"System Size", s.SystemSizeKW.StringFixed(2) + " kW"},
		{"Gross Cost", money(s.GrossCost)},
		{"Net Cost After Incentives", money(s.NetCostAfterIncentives)},
		{"Estimated Monthly Payment", money(s.EstimatedMonthlyPayment) + " " + financingNote(s)},
	}
	if s.EstimatedMonthlyProductionKWh != nil {
		out = append(out, field{"Estimated Monthly Production", s.EstimatedMonthlyProductionKWh.StringFixed(2) + " kWh"})
	}
	if s.PanelCount != nil {
		out = append(out, field{"Panel Count", fmt.Sprintf("%d", *s.PanelCount)})
	}
	return out
}

func financingNote(s estimation.Summary) string {
	if s.Financing == estimation.FinancingFixedPercentage {
		return "(simplified fixed-percentage estimate)"
	}
	return fmt.Sprintf("(%d-year loan at %s%% APR)", s.LoanTermYears, s.FinancingRatePct.StringFixed(2))
}

// money formats d as US dollars with thousands separators.
func money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac := fixed[:len(fixed)-3], fixed[len(fixed)-3:]

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + frac
}

func generatedAt(doc QuoteDocument) string {
	if doc.GeneratedAt.IsZero() {
		return ""
	}
	return doc.GeneratedAt.UTC().Format("January 2, 2006")
}
