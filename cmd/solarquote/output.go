package main

import (
	"encoding/json"
	"fmt"
	"os"

	"solar-estimate/decision/document"
	"solar-estimate/decision/estimation"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputDocument(r document.Renderer, doc document.QuoteDocument) error {
	out, err := r.Render(doc)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// outputTable prints the summary box. quote is optional.
func outputTable(s estimation.Summary, quote *estimation.Quote) error {
	row := func(label, value string) {
		fmt.Printf("║  %-26s %-33s ║\n", label, value)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    SOLAR ESTIMATE                            ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	if quote != nil {
		address := quote.FormattedAddress
		if address == "" {
			address = quote.Address
		}
		row("Address:", truncate(address, 33))
	}
	row("Sizing:", string(s.Strategy))
	row("System Size:", s.SystemSizeKW.StringFixed(2)+" kW")
	if s.PanelCount != nil {
		row("Panels:", fmt.Sprintf("%d", *s.PanelCount))
	}
	if s.EstimatedMonthlyProductionKWh != nil {
		row("Monthly Production:", s.EstimatedMonthlyProductionKWh.StringFixed(2)+" kWh")
	}
	row("Cost per Watt:", "$"+s.CostPerWatt.StringFixed(2))
	row("Gross Cost:", "$"+s.GrossCost.StringFixed(2))
	row("Net After Incentives:", "$"+s.NetCostAfterIncentives.StringFixed(2))
	row("Monthly Payment:", "$"+s.EstimatedMonthlyPayment.StringFixed(2))
	row("Financing:", string(s.Financing))
	row("Confidence:", fmt.Sprintf("%.0f%%", s.Confidence*100))
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")

	if quote != nil && len(quote.Warnings) > 0 {
		fmt.Println()
		for _, w := range quote.Warnings {
			fmt.Printf("  ! %s\n", w)
		}
	}
	fmt.Println()
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
