// Package geo resolves addresses to coordinates and coordinates to rooftop
// solar potential through external providers.
package geo

import (
	"context"
	"fmt"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Location is a geocoding match.
type Location struct {
	Coordinates
	FormattedAddress string `json:"formatted_address,omitempty"`
}

// SolarPotential is the provider's rooftop summary for a building.
type SolarPotential struct {
	MaxArrayAreaM2          float64 `json:"max_array_area_m2"`
	MaxSunshineHoursPerYear float64 `json:"max_sunshine_hours_per_year"`
	MaxArrayPanelsCount     int     `json:"max_array_panels_count"`
}

// Valid reports whether p can drive provider-informed sizing.
func (p *SolarPotential) Valid() bool {
	return p != nil && p.MaxArrayAreaM2 > 0 && p.MaxSunshineHoursPerYear > 0
}

// Geocoder resolves a free-text address. Implementations return
// errors.ErrAddressNotFound for empty input or no match and
// errors.ErrMissingCredentials when unconfigured.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (Location, error)
}

// SolarPotentialProvider looks up rooftop potential. Implementations return
// errors.ErrNoSolarData when the provider has no coverage.
type SolarPotentialProvider interface {
	Potential(ctx context.Context, at Coordinates) (*SolarPotential, error)
}
