package estimation

import (
	"solar-estimate/pkg/confidence"
	qerrors "solar-estimate/pkg/errors"
	"solar-estimate/pkg/units"
)

// Input is a single estimation request. Nil pointers fall back to the
// corresponding Assumptions field.
type Input struct {
	Sizing SizingStrategy

	CostPerWatt       *float64
	FinancingRatePct  *float64
	LoanTermYears     *int
	TaxCreditFraction *float64
	Financing         FinancingMode

	Assumptions *Assumptions
}

// terms are the resolved financial inputs of one estimation.
type terms struct {
	costPerWatt float64
	ratePct     float64
	years       int
	taxCredit   float64
	mode        FinancingMode
}

// Estimate converts an Input into a Result. It performs no I/O, keeps no
// state and is safe for concurrent use.
func Estimate(in Input) (*Result, error) {
	a := DefaultAssumptions()
	if in.Assumptions != nil {
		a = *in.Assumptions
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if in.Sizing == nil {
		return nil, qerrors.NewInvalidInput("sizing", "insufficient input: roof area, monthly usage or solar potential required")
	}

	t, err := resolveTerms(in, a)
	if err != nil {
		return nil, err
	}

	sizing, err := in.Sizing.size(a)
	if err != nil {
		return nil, err
	}

	pricedKW := sizing.SystemSizeKW
	if a.PricingBasis == PricingBasisQuotedSize {
		pricedKW = units.Round2(pricedKW)
	}
	gross := units.KWToWatts(pricedKW) * t.costPerWatt
	net := gross * (1 - t.taxCredit)

	var payment float64
	switch t.mode {
	case FinancingFixedPercentage:
		payment = FixedPercentagePayment(gross, a.FixedPaymentFraction)
	default:
		payment = AmortizedPayment(net, t.ratePct, t.years)
	}

	if err := checkFinite(sizing, gross, net, payment); err != nil {
		return nil, err
	}

	return &Result{
		Strategy:             sizing.Strategy,
		SystemSizeKW:         sizing.SystemSizeKW,
		GrossCost:            gross,
		NetCost:              net,
		MonthlyPayment:       payment,
		Financing:            t.mode,
		CostPerWatt:          t.costPerWatt,
		FinancingRatePct:     t.ratePct,
		LoanTermYears:        t.years,
		TaxCreditFraction:    t.taxCredit,
		PanelCount:           sizing.PanelCount,
		DailySunlightHours:   sizing.DailySunlightHours,
		MonthlyProductionKWh: sizing.MonthlyProductionKWh,
		Confidence:           baseConfidence(sizing.Strategy),
	}, nil
}

// checkFinite rejects inputs large enough to overflow a derived quantity.
func checkFinite(sizing Sizing, gross, net, payment float64) error {
	type quantity struct {
		field string
		value float64
	}
	derived := []quantity{
		{"system_size_kw", sizing.SystemSizeKW},
		{"gross_cost", gross},
		{"net_cost_after_incentives", net},
		{"estimated_monthly_payment", payment},
	}
	if sizing.MonthlyProductionKWh != nil {
		derived = append(derived, quantity{"estimated_monthly_production_kwh", *sizing.MonthlyProductionKWh})
	}
	for _, q := range derived {
		if !finite(q.value) {
			return qerrors.NewInvalidInput(q.field, "input too large: %s overflows", q.field)
		}
	}
	return nil
}

func resolveTerms(in Input, a Assumptions) (terms, error) {
	t := terms{
		costPerWatt: a.CostPerWatt,
		ratePct:     a.FinancingRatePct,
		years:       a.LoanTermYears,
		taxCredit:   a.TaxCreditFraction,
	}
	if in.CostPerWatt != nil {
		t.costPerWatt = *in.CostPerWatt
	}
	if in.FinancingRatePct != nil {
		t.ratePct = *in.FinancingRatePct
	}
	if in.LoanTermYears != nil {
		t.years = *in.LoanTermYears
	}
	if in.TaxCreditFraction != nil {
		t.taxCredit = *in.TaxCreditFraction
	}

	if !finite(t.costPerWatt) || t.costPerWatt <= 0 {
		return t, qerrors.NewInvalidInput("cost_per_watt", "must be > 0, got %v", t.costPerWatt)
	}
	if !finite(t.ratePct) || t.ratePct < 0 {
		return t, qerrors.NewInvalidInput("financing_rate_annual_pct", "must be >= 0, got %v", t.ratePct)
	}
	if t.years <= 0 {
		return t, qerrors.NewInvalidInput("loan_term_years", "must be > 0, got %d", t.years)
	}
	if !finite(t.taxCredit) || t.taxCredit < 0 || t.taxCredit >= 1 {
		return t, qerrors.NewInvalidInput("tax_credit_fraction", "must be in [0,1), got %v", t.taxCredit)
	}

	mode, err := ParseFinancingMode(string(in.Financing))
	if err != nil {
		return t, err
	}
	t.mode = mode
	return t, nil
}

func baseConfidence(kind StrategyKind) float64 {
	switch kind {
	case StrategyProvider:
		return confidence.ProviderConfidence
	case StrategyRoofArea:
		return confidence.RoofAreaConfidence
	default:
		return confidence.UsageConfidence
	}
}
