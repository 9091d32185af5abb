package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MarkdownRenderer renders a quote as a Markdown table.
type MarkdownRenderer struct{}

func (MarkdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }
func (MarkdownRenderer) Extension() string   { return ".md" }

// Render implements Renderer.
func (MarkdownRenderer) Render(doc QuoteDocument) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString("## Residential Solar Quote\n\n")
	if date := generatedAt(doc); date != "" {
		fmt.Fprintf(&b, "_Prepared %s_\n\n", date)
	}

	b.WriteString("| Item | Value |\n")
	b.WriteString("|------|-------|\n")
	for _, f := range fields(doc) {
		fmt.Fprintf(&b, "| **%s** | %s |\n", f.Label, escapeCell(f.Value))
	}

	if len(doc.Warnings) > 0 {
		b.WriteString("\n### Notes\n\n")
		for _, w := range doc.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if lines := doc.Installer.Lines(); len(lines) > 0 {
		b.WriteString("\n### Installer\n\n")
		b.WriteString(strings.Join(lines, "  \n"))
		b.WriteString("\n")
	}

	if doc.QuoteID != uuid.Nil {
		fmt.Fprintf(&b, "\n_Quote %s. Figures are estimates and do not constitute a binding offer._\n", doc.QuoteID)
	}
	return b.Bytes(), nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
