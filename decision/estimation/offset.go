package estimation

import (
	"math"

	qerrors "solar-estimate/pkg/errors"
)

// OffsetInput describes a target monthly usage to cover with production.
type OffsetInput struct {
	TargetMonthlyKWh    float64  `json:"target_monthly_kwh"`
	DailySunlightHours  float64  `json:"daily_sunlight_hours"`
	PanelOutputFraction *float64 `json:"panel_output_fraction,omitempty"`
	Assumptions         *Assumptions
}

// OffsetResult is the reverse sizing outcome.
type OffsetResult struct {
	NeededPanels        int     `json:"needed_panels"`
	SystemSizeKW        float64 `json:"system_size_kw"`
	PanelOutputFraction float64 `json:"panel_output_fraction"`
}

// NeededPanels returns the panel count whose production matches the target.
func NeededPanels(in OffsetInput) (*OffsetResult, error) {
	a := DefaultAssumptions()
	if in.Assumptions != nil {
		a = *in.Assumptions
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	fraction := a.PanelOutputFraction()
	if in.PanelOutputFraction != nil {
		fraction = *in.PanelOutputFraction
	}
	if !finite(fraction) || fraction <= 0 {
		return nil, qerrors.NewInvalidInput("panel_output_fraction", "must be > 0, got %v", fraction)
	}
	if !finite(in.DailySunlightHours) || in.DailySunlightHours <= 0 {
		return nil, qerrors.NewInvalidInput("daily_sunlight_hours", "must be > 0, got %v", in.DailySunlightHours)
	}
	if !finite(in.TargetMonthlyKWh) || in.TargetMonthlyKWh < 0 {
		return nil, qerrors.NewInvalidInput("target_kwh_month", "must be >= 0, got %v", in.TargetMonthlyKWh)
	}

	kwNeeded := in.TargetMonthlyKWh / (in.DailySunlightHours * a.DaysPerMonth)
	panels := int(math.Round(kwNeeded / fraction))
	return &OffsetResult{
		NeededPanels:        panels,
		SystemSizeKW:        float64(panels) * fraction,
		PanelOutputFraction: fraction,
	}, nil
}
