package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	qerrors "solar-estimate/pkg/errors"
	"solar-estimate/pkg/platform"
)

const (
	GoogleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	GoogleSolarURL   = "https://solar.googleapis.com/v1/buildingInsights:findClosest"

	GeocodeKeyEnv = "GOOGLE_MAPS_API_KEY"
	SolarKeyEnv   = "GOOGLE_SOLAR_API_KEY"

	apiKeyHeader = "X-Goog-Api-Key"
)

// =============================================================================
// GOOGLE GEOCODING
// =============================================================================

// GoogleGeocoder calls the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey   string
	endpoint string
	client   *platform.HTTPClient
}

// NewGoogleGeocoder creates a geocoder. An empty apiKey is allowed; every
// call then fails with MissingCredentials.
func NewGoogleGeocoder(apiKey string, client *platform.HTTPClient) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, endpoint: GoogleGeocodeURL, client: client}
}

// WithEndpoint overrides the API base URL.
func (g *GoogleGeocoder) WithEndpoint(endpoint string) *GoogleGeocoder {
	g.endpoint = endpoint
	return g
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve returns the first match for address.
func (g *GoogleGeocoder) Resolve(ctx context.Context, address string) (Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Location{}, qerrors.NewAddressNotFound("")
	}
	if g.apiKey == "" {
		return Location{}, qerrors.NewMissingCredentials("Google Geocoding", GeocodeKeyEnv)
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)

	var resp geocodeResponse
	if err := g.client.GetJSON(ctx, g.endpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return Location{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Location{}, qerrors.NewAddressNotFound(address)
	case "REQUEST_DENIED":
		return Location{}, fmt.Errorf("geocode %q: request denied: %s", address, resp.ErrorMessage)
	default:
		return Location{}, fmt.Errorf("geocode %q: status %s: %s", address, resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return Location{}, qerrors.NewAddressNotFound(address)
	}

	r := resp.Results[0]
	return Location{
		Coordinates: Coordinates{
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
		},
		FormattedAddress: r.FormattedAddress,
	}, nil
}

// =============================================================================
// GOOGLE SOLAR (BUILDING INSIGHTS)
// =============================================================================

// GoogleSolarClient calls the Google Solar API building insights endpoint.
type GoogleSolarClient struct {
	apiKey          string
	endpoint        string
	requiredQuality string
	client          *platform.HTTPClient
}

// NewGoogleSolarClient creates a solar-potential provider. An empty apiKey
// is allowed; every call then fails with MissingCredentials.
func NewGoogleSolarClient(apiKey string, client *platform.HTTPClient) *GoogleSolarClient {
	return &GoogleSolarClient{
		apiKey:          apiKey,
		endpoint:        GoogleSolarURL,
		requiredQuality: "HIGH",
		client:          client,
	}
}

// WithEndpoint overrides the API base URL.
func (s *GoogleSolarClient) WithEndpoint(endpoint string) *GoogleSolarClient {
	s.endpoint = endpoint
	return s
}

// WithRequiredQuality sets the minimum imagery quality (HIGH, MEDIUM, LOW).
func (s *GoogleSolarClient) WithRequiredQuality(q string) *GoogleSolarClient {
	s.requiredQuality = q
	return s
}

type buildingInsightsResponse struct {
	SolarPotential *struct {
		MaxArrayPanelsCount     int     `json:"maxArrayPanelsCount"`
		MaxArrayAreaMeters2     float64 `json:"maxArrayAreaMeters2"`
		MaxSunshineHoursPerYear float64 `json:"maxSunshineHoursPerYear"`
	} `json:"solarPotential"`
}

// Potential returns the building's rooftop summary.
func (s *GoogleSolarClient) Potential(ctx context.Context, at Coordinates) (*SolarPotential, error) {
	if s.apiKey == "" {
		return nil, qerrors.NewMissingCredentials("Google Solar", SolarKeyEnv)
	}

	q := url.Values{}
	q.Set("location.latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("location.longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	if s.requiredQuality != "" {
		q.Set("requiredQuality", s.requiredQuality)
	}
	header := http.Header{}
	header.Set(apiKeyHeader, s.apiKey)

	var resp buildingInsightsResponse
	if err := s.client.GetJSON(ctx, s.endpoint+"?"+q.Encode(), header, &resp); err != nil {
		var se *platform.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, qerrors.NewNoSolarData(at.Latitude, at.Longitude)
		}
		return nil, fmt.Errorf("building insights at %s: %w", at, err)
	}

	if resp.SolarPotential == nil {
		return nil, qerrors.NewNoSolarData(at.Latitude, at.Longitude)
	}
	p := &SolarPotential{
		MaxArrayAreaM2:          resp.SolarPotential.MaxArrayAreaMeters2,
		MaxSunshineHoursPerYear: resp.SolarPotential.MaxSunshineHoursPerYear,
		MaxArrayPanelsCount:     resp.SolarPotential.MaxArrayPanelsCount,
	}
	if !p.Valid() {
		return nil, qerrors.NewNoSolarData(at.Latitude, at.Longitude)
	}
	return p, nil
}
