// Package units provides canonical unit types and conversions.
package units

import "math"

// Unit represents a measurable quantity.
type Unit string

const (
	// Energy and power
	UnitKWh Unit = "kWh"
	UnitKW  Unit = "kW"
	UnitW   Unit = "W"

	// Area
	UnitSqFt Unit = "sqft"
	UnitM2   Unit = "m2"

	// Money
	UnitUSD        Unit = "USD"
	UnitUSDPerWatt Unit = "USD/W"
)

// SqFtPerM2 is the exact square-foot equivalent of one square metre.
const SqFtPerM2 = 10.763910416709722

// MonthsPerYear is the number of payments per loan year.
const MonthsPerYear = 12

// WattsToKW converts watts to kilowatts.
func WattsToKW(w float64) float64 {
	return w / 1000
}

// KWToWatts converts kilowatts to watts.
func KWToWatts(kw float64) float64 {
	return kw * 1000
}

// SqFtToM2 converts square feet to square metres.
func SqFtToM2(sqft float64) float64 {
	return sqft / SqFtPerM2
}

// M2ToSqFt converts square metres to square feet.
func M2ToSqFt(m2 float64) float64 {
	return m2 * SqFtPerM2
}

// DailyToMonthly scales a per-day quantity to a month of daysPerMonth days.
func DailyToMonthly(daily, daysPerMonth float64) float64 {
	return daily * daysPerMonth
}

// AnnualToDaily spreads an annual quantity evenly over daysPerYear days.
func AnnualToDaily(annual, daysPerYear float64) float64 {
	if daysPerYear == 0 {
		return 0
	}
	return annual / daysPerYear
}

// YearsToMonths converts a loan term in years to a payment count.
func YearsToMonths(years int) int {
	return years * MonthsPerYear
}

// Round2 rounds to cents. Use only at presentation boundaries.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
