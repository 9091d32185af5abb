package estimation

import (
	"math"

	qerrors "solar-estimate/pkg/errors"
)

// Assumptions holds the benchmark constants the formulas depend on.
// Every field is overridable so tests and regional deployments can inject
// their own benchmarks.
type Assumptions struct {
	SqftPerPanel      float64 `json:"sqft_per_panel" yaml:"sqft_per_panel"`
	WattsPerPanel     float64 `json:"watts_per_panel" yaml:"watts_per_panel"`
	AvgUsagePerKW     float64 `json:"avg_usage_per_kw" yaml:"avg_usage_per_kw"`
	AvgSystemSizeKW   float64 `json:"avg_system_size_kw" yaml:"avg_system_size_kw"`
	PanelPowerDensity float64 `json:"panel_power_density" yaml:"panel_power_density"` // kW per m2

	CostPerWatt          float64 `json:"cost_per_watt" yaml:"cost_per_watt"`
	FinancingRatePct     float64 `json:"financing_rate_pct" yaml:"financing_rate_pct"`
	LoanTermYears        int     `json:"loan_term_years" yaml:"loan_term_years"`
	TaxCreditFraction    float64 `json:"tax_credit_fraction" yaml:"tax_credit_fraction"`
	FixedPaymentFraction float64 `json:"fixed_payment_fraction" yaml:"fixed_payment_fraction"`

	DaysPerMonth           float64 `json:"days_per_month" yaml:"days_per_month"`
	DaysPerYear            float64 `json:"days_per_year" yaml:"days_per_year"`
	DefaultMonthlyUsageKWh float64 `json:"default_monthly_usage_kwh" yaml:"default_monthly_usage_kwh"`

	PricingBasis PricingBasis `json:"pricing_basis" yaml:"pricing_basis"`
}

// PricingBasis selects which system size is priced.
type PricingBasis string

const (
	// PricingBasisExact prices the unrounded system size.
	PricingBasisExact PricingBasis = "exact"
	// PricingBasisQuotedSize prices the system size as quoted to the
	// homeowner, i.e. rounded to 0.01 kW.
	PricingBasisQuotedSize PricingBasis = "quoted_size"
)

// DefaultAssumptions returns the national benchmark set.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		SqftPerPanel:           17.5,
		WattsPerPanel:          400,
		AvgUsagePerKW:          855,
		AvgSystemSizeKW:        11,
		PanelPowerDensity:      0.15,
		CostPerWatt:            3.00,
		FinancingRatePct:       4.5,
		LoanTermYears:          20,
		TaxCreditFraction:      0.30,
		FixedPaymentFraction:   0.015,
		DaysPerMonth:           30,
		DaysPerYear:            365,
		DefaultMonthlyUsageKWh: 800,
		PricingBasis:           PricingBasisQuotedSize,
	}
}

// PanelOutputFraction is the kW output of one panel relative to 1 kW.
func (a Assumptions) PanelOutputFraction() float64 {
	return a.WattsPerPanel / 1000
}

// Validate rejects physical constants that would make the formulas meaningless.
func (a Assumptions) Validate() error {
	positive := []struct {
		field string
		value float64
	}{
		{"sqft_per_panel", a.SqftPerPanel},
		{"watts_per_panel", a.WattsPerPanel},
		{"avg_usage_per_kw", a.AvgUsagePerKW},
		{"avg_system_size_kw", a.AvgSystemSizeKW},
		{"panel_power_density", a.PanelPowerDensity},
		{"cost_per_watt", a.CostPerWatt},
		{"days_per_month", a.DaysPerMonth},
		{"days_per_year", a.DaysPerYear},
	}
	for _, p := range positive {
		if !finite(p.value) || p.value <= 0 {
			return qerrors.NewInvalidInput(p.field, "assumption must be > 0, got %v", p.value)
		}
	}
	if a.LoanTermYears <= 0 {
		return qerrors.NewInvalidInput("loan_term_years", "assumption must be > 0, got %d", a.LoanTermYears)
	}
	if !finite(a.FinancingRatePct) || a.FinancingRatePct < 0 {
		return qerrors.NewInvalidInput("financing_rate_pct", "assumption must be >= 0, got %v", a.FinancingRatePct)
	}
	if !finite(a.TaxCreditFraction) || a.TaxCreditFraction < 0 || a.TaxCreditFraction >= 1 {
		return qerrors.NewInvalidInput("tax_credit_fraction", "assumption must be in [0,1), got %v", a.TaxCreditFraction)
	}
	if !finite(a.FixedPaymentFraction) || a.FixedPaymentFraction < 0 {
		return qerrors.NewInvalidInput("fixed_payment_fraction", "assumption must be >= 0, got %v", a.FixedPaymentFraction)
	}
	switch a.PricingBasis {
	case "", PricingBasisExact, PricingBasisQuotedSize:
	default:
		return qerrors.NewInvalidInput("pricing_basis", "unknown pricing basis %q", a.PricingBasis)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
