package estimation

import (
	"math"

	qerrors "solar-estimate/pkg/errors"
	"solar-estimate/pkg/units"
)

// FinancingMode selects how the monthly payment is estimated.
type FinancingMode string

const (
	// FinancingAmortized uses the fixed-rate loan formula on the net cost.
	FinancingAmortized FinancingMode = "amortized"
	// FinancingFixedPercentage takes a flat fraction of the gross cost per month.
	FinancingFixedPercentage FinancingMode = "fixed_percentage"
)

// ParseFinancingMode maps user input to a mode. Empty means amortized.
func ParseFinancingMode(s string) (FinancingMode, error) {
	switch FinancingMode(s) {
	case "", FinancingAmortized:
		return FinancingAmortized, nil
	case FinancingFixedPercentage:
		return FinancingFixedPercentage, nil
	default:
		return "", qerrors.NewInvalidInput("financing", "unknown financing mode %q", s)
	}
}

// AmortizedPayment returns the fixed monthly payment that repays principal
// over years at the nominal annual ratePct.
//
// A non-positive rate falls back to straight-line repayment and a
// non-positive term to a single payment of the principal.
func AmortizedPayment(principal, ratePct float64, years int) float64 {
	if principal <= 0 {
		return 0
	}
	n := units.YearsToMonths(years)
	if n <= 0 {
		return principal
	}
	r := ratePct / 100 / units.MonthsPerYear
	if r <= 0 {
		return principal / float64(n)
	}
	return (principal * r) / (1 - math.Pow(1+r, -float64(n)))
}

// FixedPercentagePayment is the simplified financing estimate.
func FixedPercentagePayment(totalCost, fraction float64) float64 {
	if totalCost <= 0 {
		return 0
	}
	return totalCost * fraction
}
