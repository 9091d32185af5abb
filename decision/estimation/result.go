package estimation

import (
	"github.com/shopspring/decimal"
)

// Result is the unrounded output of an estimation. Round only through Summary.
type Result struct {
	Strategy          StrategyKind  `json:"strategy"`
	SystemSizeKW      float64       `json:"system_size_kw"`
	GrossCost         float64       `json:"gross_cost"`
	NetCost           float64       `json:"net_cost_after_incentives"`
	MonthlyPayment    float64       `json:"estimated_monthly_payment"`
	Financing         FinancingMode `json:"financing"`
	CostPerWatt       float64       `json:"cost_per_watt"`
	FinancingRatePct  float64       `json:"financing_rate_pct"`
	LoanTermYears     int           `json:"loan_term_years"`
	TaxCreditFraction float64       `json:"tax_credit_fraction"`

	PanelCount           *int     `json:"panel_count,omitempty"`
	DailySunlightHours   *float64 `json:"daily_sunlight_hours,omitempty"`
	MonthlyProductionKWh *float64 `json:"estimated_monthly_production_kwh,omitempty"`

	Confidence float64 `json:"confidence"`
}

// Summary is the presentation form of a Result with money and sizes
// rounded to two decimal places.
type Summary struct {
	Strategy                StrategyKind    `json:"strategy"`
	SystemSizeKW            decimal.Decimal `json:"system_size_kw"`
	GrossCost               decimal.Decimal `json:"gross_cost"`
	NetCostAfterIncentives  decimal.Decimal `json:"net_cost_after_incentives"`
	EstimatedMonthlyPayment decimal.Decimal `json:"estimated_monthly_payment"`
	Financing               FinancingMode   `json:"financing"`
	CostPerWatt             decimal.Decimal `json:"cost_per_watt"`
	FinancingRatePct        decimal.Decimal `json:"financing_rate_pct"`
	LoanTermYears           int             `json:"loan_term_years"`
	TaxCreditFraction       decimal.Decimal `json:"tax_credit_fraction"`

	PanelCount                    *int             `json:"panel_count,omitempty"`
	DailySunlightHours            *decimal.Decimal `json:"daily_sunlight_hours,omitempty"`
	EstimatedMonthlyProductionKWh *decimal.Decimal `json:"estimated_monthly_production_kwh,omitempty"`

	Confidence float64 `json:"confidence"`
}

// Summary rounds the result for display.
func (r *Result) Summary() Summary {
	s := Summary{
		Strategy:                r.Strategy,
		SystemSizeKW:            round2(r.SystemSizeKW),
		GrossCost:               round2(r.GrossCost),
		NetCostAfterIncentives:  round2(r.NetCost),
		EstimatedMonthlyPayment: round2(r.MonthlyPayment),
		Financing:               r.Financing,
		CostPerWatt:             round2(r.CostPerWatt),
		FinancingRatePct:        round2(r.FinancingRatePct),
		LoanTermYears:           r.LoanTermYears,
		TaxCreditFraction:       decimal.NewFromFloat(r.TaxCreditFraction).Round(4),
		PanelCount:              r.PanelCount,
		Confidence:              r.Confidence,
	}
	if r.DailySunlightHours != nil {
		d := round2(*r.DailySunlightHours)
		s.DailySunlightHours = &d
	}
	if r.MonthlyProductionKWh != nil {
		m := round2(*r.MonthlyProductionKWh)
		s.EstimatedMonthlyProductionKWh = &m
	}
	return s
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
