package estimation

import (
	"math"

	"solar-estimate/decision/geo"
	qerrors "solar-estimate/pkg/errors"
	"solar-estimate/pkg/units"
)

// StrategyKind names a sizing strategy.
type StrategyKind string

const (
	StrategyRoofArea StrategyKind = "roof_area"
	StrategyUsage    StrategyKind = "usage"
	StrategyProvider StrategyKind = "provider"
)

// SizingStrategy is one of RoofArea, Usage or ProviderPotential.
// The set is closed; callers pick exactly one per estimation.
type SizingStrategy interface {
	Kind() StrategyKind
	size(a Assumptions) (Sizing, error)
}

// Sizing is the output of a sizing strategy.
type Sizing struct {
	Strategy             StrategyKind
	SystemSizeKW         float64
	PanelCount           *int
	DailySunlightHours   *float64
	MonthlyProductionKWh *float64
}

// RoofArea sizes the array from installable roof area.
type RoofArea struct {
	SqFt float64
}

func (RoofArea) Kind() StrategyKind { return StrategyRoofArea }

func (r RoofArea) size(a Assumptions) (Sizing, error) {
	if !finite(r.SqFt) || r.SqFt < 0 {
		return Sizing{}, qerrors.NewInvalidInput("roof_area_sqft", "must be >= 0, got %v", r.SqFt)
	}
	if r.SqFt == 0 {
		return Sizing{}, qerrors.NewInvalidInput("roof_area_sqft", "insufficient input: roof area is 0")
	}
	panels := r.SqFt / a.SqftPerPanel
	if panels > math.MaxInt32 {
		return Sizing{}, qerrors.NewInvalidInput("roof_area_sqft", "input too large: %v sqft", r.SqFt)
	}
	count := int(math.Floor(panels))
	return Sizing{
		Strategy:     StrategyRoofArea,
		SystemSizeKW: units.WattsToKW(panels * a.WattsPerPanel),
		PanelCount:   &count,
	}, nil
}

// Usage sizes the array by scaling monthly consumption against the
// national-average household (AvgUsagePerKW kWh/month ~ AvgSystemSizeKW).
// This is a linear proxy, not a load-following design.
type Usage struct {
	MonthlyKWh float64
}

func (Usage) Kind() StrategyKind { return StrategyUsage }

func (u Usage) size(a Assumptions) (Sizing, error) {
	if !finite(u.MonthlyKWh) || u.MonthlyKWh < 0 {
		return Sizing{}, qerrors.NewInvalidInput("monthly_usage_kwh", "must be >= 0, got %v", u.MonthlyKWh)
	}
	if u.MonthlyKWh == 0 {
		return Sizing{}, qerrors.NewInvalidInput("monthly_usage_kwh", "insufficient input: monthly usage is 0")
	}
	normalized := u.MonthlyKWh / a.AvgUsagePerKW
	return Sizing{
		Strategy:     StrategyUsage,
		SystemSizeKW: normalized * a.AvgSystemSizeKW,
	}, nil
}

// ProviderPotential sizes the array from third-party solar-potential data.
type ProviderPotential struct {
	MaxArrayAreaM2          float64
	MaxSunshineHoursPerYear float64
	MaxPanelCount           int
}

// FromSolarPotential converts provider data into a sizing strategy.
func FromSolarPotential(p geo.SolarPotential) ProviderPotential {
	return ProviderPotential{
		MaxArrayAreaM2:          p.MaxArrayAreaM2,
		MaxSunshineHoursPerYear: p.MaxSunshineHoursPerYear,
		MaxPanelCount:           p.MaxArrayPanelsCount,
	}
}

func (ProviderPotential) Kind() StrategyKind { return StrategyProvider }

func (p ProviderPotential) size(a Assumptions) (Sizing, error) {
	if !finite(p.MaxArrayAreaM2) || p.MaxArrayAreaM2 <= 0 {
		return Sizing{}, qerrors.NewInvalidInput("max_array_area_m2", "must be > 0, got %v", p.MaxArrayAreaM2)
	}
	if !finite(p.MaxSunshineHoursPerYear) || p.MaxSunshineHoursPerYear <= 0 {
		return Sizing{}, qerrors.NewInvalidInput("max_sunshine_hours_per_year", "must be > 0, got %v", p.MaxSunshineHoursPerYear)
	}
	if p.MaxPanelCount < 0 {
		return Sizing{}, qerrors.NewInvalidInput("max_array_panels_count", "must be >= 0, got %d", p.MaxPanelCount)
	}
	kw := p.MaxArrayAreaM2 * a.PanelPowerDensity
	daily := units.AnnualToDaily(p.MaxSunshineHoursPerYear, a.DaysPerYear)
	monthly := units.DailyToMonthly(kw*daily, a.DaysPerMonth)
	s := Sizing{
		Strategy:             StrategyProvider,
		SystemSizeKW:         kw,
		DailySunlightHours:   &daily,
		MonthlyProductionKWh: &monthly,
	}
	if p.MaxPanelCount > 0 {
		count := p.MaxPanelCount
		s.PanelCount = &count
	}
	return s, nil
}

// SelectSizing picks the strategy from whichever inputs are present.
// Valid provider data wins; roof area is preferred over usage. A nil
// pointer means the input is absent.
func SelectSizing(roofSqFt, monthlyKWh *float64, potential *geo.SolarPotential) (SizingStrategy, error) {
	switch {
	case potential.Valid():
		return FromSolarPotential(*potential), nil
	case roofSqFt != nil:
		return RoofArea{SqFt: *roofSqFt}, nil
	case monthlyKWh != nil:
		return Usage{MonthlyKWh: *monthlyKWh}, nil
	default:
		return nil, qerrors.NewInvalidInput("sizing", "insufficient input: roof area, monthly usage or solar potential required")
	}
}

// Size runs strategy s against a without pricing it.
func Size(s SizingStrategy, a Assumptions) (Sizing, error) {
	if s == nil {
		return Sizing{}, qerrors.NewInvalidInput("sizing", "insufficient input: roof area, monthly usage or solar potential required")
	}
	if err := a.Validate(); err != nil {
		return Sizing{}, err
	}
	return s.size(a)
}
