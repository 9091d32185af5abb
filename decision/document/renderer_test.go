package document

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-estimate/decision/estimation"
	qerrors "solar-estimate/pkg/errors"
)

func sampleDoc(t *testing.T) QuoteDocument {
	t.Helper()
	cpw := 3.50
	res, err := estimation.Estimate(estimation.Input{
		Sizing:      estimation.RoofArea{SqFt: 1000},
		CostPerWatt: &cpw,
	})
	require.NoError(t, err)

	return QuoteDocument{
		QuoteID:     uuid.MustParse("7f3c2a9e-1b4d-4c8e-9a6f-2d5e8b1c0f47"),
		Address:     "1 Main St, Boulder, CO",
		Summary:     res.Summary(),
		Installer:   Installer{Name: "Jane Installer", Company: "Sunrise Solar", Phone: "555-0100"},
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Renderer
	}{
		{"", PDFRenderer{}},
		{"pdf", PDFRenderer{}},
		{"Markdown", MarkdownRenderer{}},
		{"md", MarkdownRenderer{}},
		{"html", HTMLRenderer{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ForFormat(tt.in)
			require.NoError(t, err)
			assert.IsType(t, tt.want, r)
		})
	}

	_, err := ForFormat("docx")
	assert.ErrorIs(t, err, qerrors.ErrInvalidInput)
}

func TestMoney(t *testing.T) {
	tests := map[string]string{
		"0":           "$0.00",
		"12.5":        "$12.50",
		"999.99":      "$999.99",
		"1000":        "$1,000.00",
		"80010":       "$80,010.00",
		"1234567.891": "$1,234,567.89",
		"-2500":       "-$2,500.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, money(decimal.RequireFromString(in)), in)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := MarkdownRenderer{}.Render(sampleDoc(t))
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, "| **Address** | 1 Main St, Boulder, CO |")
	assert.Contains(t, md, "| **System Size** | 22.86 kW |")
	assert.Contains(t, md, "| **Gross Cost** | $80,010.00 |")
	assert.Contains(t, md, "| **Net Cost After Incentives** | $56,007.00 |")
	assert.Contains(t, md, "(20-year loan at 4.50% APR)")
	assert.Contains(t, md, "| **Panel Count** | 57 |")
	assert.NotContains(t, md, "Monthly Production")
	assert.Contains(t, md, "Sunrise Solar")
	assert.Contains(t, md, "March 1, 2024")
	assert.Contains(t, md, "7f3c2a9e-1b4d-4c8e-9a6f-2d5e8b1c0f47")
}

func TestMarkdownRenderer_FixedPercentageAndProduction(t *testing.T) {
	res, err := estimation.Estimate(estimation.Input{
		Sizing:    estimation.ProviderPotential{MaxArrayAreaM2: 100, MaxSunshineHoursPerYear: 1825},
		Financing: estimation.FinancingFixedPercentage,
	})
	require.NoError(t, err)

	out, err := MarkdownRenderer{}.Render(QuoteDocument{
		Address:  "5 Elm | Unit 2",
		Summary:  res.Summary(),
		Warnings: []string{"no solar data for this address"},
	})
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, `5 Elm \| Unit 2`)
	assert.Contains(t, md, "simplified fixed-percentage estimate")
	assert.Contains(t, md, "| **Estimated Monthly Production** | 2250.00 kWh |")
	assert.Contains(t, md, "### Notes")
	assert.NotContains(t, md, "### Installer")
}

func TestHTMLRenderer(t *testing.T) {
	doc := sampleDoc(t)
	doc.Address = "<script>alert(1)</script> 1 Main St"

	out, err := HTMLRenderer{}.Render(doc)
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "$80,010.00")
	assert.NotContains(t, page, "<script>")
	assert.Equal(t, "text/html; charset=utf-8", HTMLRenderer{}.ContentType())
}

func TestPDFRenderer(t *testing.T) {
	doc := sampleDoc(t)
	doc.Warnings = []string{"address could not be located; estimate uses roof area or usage"}

	out, err := PDFRenderer{}.Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
	assert.Equal(t, ".pdf", PDFRenderer{}.Extension())
}

func TestInstallerLines(t *testing.T) {
	assert.Empty(t, Installer{}.Lines())
	assert.Equal(t,
		[]string{"Sunrise Solar", "hello@example.com", "License C-46 123"},
		Installer{Company: "Sunrise Solar", Email: "hello@example.com", License: "C-46 123"}.Lines())
}
