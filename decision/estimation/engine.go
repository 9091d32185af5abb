// Package estimation sizes residential solar systems and prices them.
// Estimate is the pure core; Engine adds address lookup, provider data
// and cost-per-watt benchmarks with graceful fallbacks.
package estimation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"solar-estimate/db/clickhouse"
	"solar-estimate/decision/geo"
	"solar-estimate/pkg/confidence"
	qerrors "solar-estimate/pkg/errors"
)

// DefaultProviderTimeout bounds each geocoding and solar-potential call.
const DefaultProviderTimeout = 10 * time.Second

// BenchmarkSource resolves an installed cost per watt for a region and
// system size. A nil result with a nil error means no benchmark applies.
type BenchmarkSource interface {
	ResolveCostPerWatt(ctx context.Context, region string, systemKW float64) (*clickhouse.ResolvedBenchmark, error)
}

// Engine produces address-based quotes
type Engine struct {
	assumptions Assumptions
	geocoder    geo.Geocoder
	solar       geo.SolarPotentialProvider
	benchmarks  BenchmarkSource
	timeout     time.Duration
	now         func() time.Time
}

// NewEngine creates a new quote engine with the given assumptions
func NewEngine(a Assumptions) *Engine {
	return &Engine{
		assumptions: a,
		timeout:     DefaultProviderTimeout,
		now:         time.Now,
	}
}

// WithGeocoder adds address resolution
func (e *Engine) WithGeocoder(g geo.Geocoder) *Engine {
	e.geocoder = g
	return e
}

// WithSolarProvider adds rooftop solar-potential lookups
func (e *Engine) WithSolarProvider(p geo.SolarPotentialProvider) *Engine {
	e.solar = p
	return e
}

// WithBenchmarks adds regional cost-per-watt benchmarks
func (e *Engine) WithBenchmarks(b BenchmarkSource) *Engine {
	e.benchmarks = b
	return e
}

// WithTimeout sets the per-call provider timeout. Non-positive values are ignored.
func (e *Engine) WithTimeout(d time.Duration) *Engine {
	if d > 0 {
		e.timeout = d
	}
	return e
}

// Assumptions returns the engine's benchmark constants.
func (e *Engine) Assumptions() Assumptions {
	return e.assumptions
}

// QuoteRequest contains the inputs for an address-based quote. Roof area
// and usage act as fallbacks when provider data is unavailable.
type QuoteRequest struct {
	Address string `json:"address"`
	Region  string `json:"region,omitempty"` // state or market code for benchmarks

	RoofAreaSqFt    *float64 `json:"roof_area_sqft,omitempty"`
	MonthlyUsageKWh *float64 `json:"monthly_usage_kwh,omitempty"`

	CostPerWatt       *float64      `json:"cost_per_watt,omitempty"`
	FinancingRatePct  *float64      `json:"financing_rate_annual_pct,omitempty"`
	LoanTermYears     *int          `json:"loan_term_years,omitempty"`
	TaxCreditFraction *float64      `json:"tax_credit_fraction,omitempty"`
	Financing         FinancingMode `json:"financing,omitempty"`
}

// Quote is the complete output of an address-based estimation
type Quote struct {
	ID               uuid.UUID        `json:"id"`
	Address          string           `json:"address"`
	FormattedAddress string           `json:"formatted_address,omitempty"`
	Coordinates      *geo.Coordinates `json:"coordinates,omitempty"`

	Result  *Result `json:"result"`
	Summary Summary `json:"summary"`

	// Pricing reference
	Benchmark *clickhouse.ResolvedBenchmark `json:"benchmark,omitempty"`

	// Degradation
	Warnings  []string `json:"warnings"`
	Fallbacks int      `json:"fallbacks"`

	EstimatedAt time.Time `json:"estimated_at"`
}

// Quote resolves the address, sizes the system from the best available
// source and prices it. Provider failures degrade to roof-area or usage
// sizing when those inputs are present; otherwise the failure is returned.
func (e *Engine) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	quote := &Quote{
		ID:          uuid.New(),
		Address:     req.Address,
		Warnings:    make([]string, 0),
		EstimatedAt: e.now(),
	}
	hasFallback := req.RoofAreaSqFt != nil || req.MonthlyUsageKWh != nil

	var potential *geo.SolarPotential
	if req.Address != "" {
		var err error
		potential, err = e.lookup(ctx, req.Address, quote)
		if err != nil {
			if !hasFallback {
				return nil, err
			}
			e.degrade(quote, err)
		}
	} else if !hasFallback {
		return nil, qerrors.NewAddressNotFound("")
	}

	strategy, err := SelectSizing(req.RoofAreaSqFt, req.MonthlyUsageKWh, potential)
	if err != nil {
		return nil, err
	}

	in := Input{
		Sizing:            strategy,
		CostPerWatt:       req.CostPerWatt,
		FinancingRatePct:  req.FinancingRatePct,
		LoanTermYears:     req.LoanTermYears,
		TaxCreditFraction: req.TaxCreditFraction,
		Financing:         req.Financing,
		Assumptions:       &e.assumptions,
	}
	if in.CostPerWatt == nil {
		if b := e.benchmark(ctx, strategy, req.Region, quote); b != nil {
			cpw := b.CostPerWatt.InexactFloat64()
			in.CostPerWatt = &cpw
			quote.Benchmark = b
		}
	}

	result, err := Estimate(in)
	if err != nil {
		return nil, err
	}
	result.Confidence = confidence.Clamp(confidence.Decay(result.Confidence, quote.Fallbacks))
	if !confidence.AboveThreshold(result.Confidence, confidence.MinConfidence) {
		quote.Warnings = append(quote.Warnings,
			fmt.Sprintf("low confidence estimate (%.2f)", result.Confidence))
	}

	quote.Result = result
	quote.Summary = result.Summary()
	return quote, nil
}

// lookup geocodes the address and fetches its solar potential. Each call
// is bounded by the engine timeout.
func (e *Engine) lookup(ctx context.Context, address string, quote *Quote) (*geo.SolarPotential, error) {
	if e.geocoder == nil {
		return nil, qerrors.NewMissingCredentials("Geocoding", geo.GeocodeKeyEnv)
	}
	gctx, cancel := context.WithTimeout(ctx, e.timeout)
	loc, err := e.geocoder.Resolve(gctx, address)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}
	quote.Coordinates = &loc.Coordinates
	quote.FormattedAddress = loc.FormattedAddress

	if e.solar == nil {
		return nil, qerrors.NewMissingCredentials("Solar", geo.SolarKeyEnv)
	}
	sctx, cancel := context.WithTimeout(ctx, e.timeout)
	potential, err := e.solar.Potential(sctx, loc.Coordinates)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("solar potential lookup failed: %w", err)
	}
	if !potential.Valid() {
		return nil, qerrors.NewNoSolarData(loc.Latitude, loc.Longitude)
	}
	return potential, nil
}

// degrade records a provider failure that the quote recovered from.
func (e *Engine) degrade(quote *Quote, err error) {
	quote.Fallbacks++
	quote.Warnings = append(quote.Warnings, fallbackWarning(err))
	log.Warn().
		Err(err).
		Str("quote_id", quote.ID.String()).
		Str("code", string(qerrors.CodeOf(err))).
		Msg("provider sizing unavailable, falling back to manual inputs")
}

func fallbackWarning(err error) string {
	switch {
	case errors.Is(err, qerrors.ErrMissingCredentials):
		return "solar provider not configured; estimate uses roof area or usage"
	case errors.Is(err, qerrors.ErrAddressNotFound):
		return "address could not be located; estimate uses roof area or usage"
	case errors.Is(err, qerrors.ErrNoSolarData):
		return "no solar data for this address; estimate uses roof area or usage"
	case errors.Is(err, context.DeadlineExceeded):
		return "solar provider timed out; estimate uses roof area or usage"
	default:
		return "solar provider unavailable; estimate uses roof area or usage"
	}
}

// benchmark resolves the regional cost per watt for the sized system.
// Failures keep the assumption default.
func (e *Engine) benchmark(ctx context.Context, strategy SizingStrategy, region string, quote *Quote) *clickhouse.ResolvedBenchmark {
	if e.benchmarks == nil {
		return nil
	}
	sizing, err := Size(strategy, e.assumptions)
	if err != nil {
		// Estimate reports the same error.
		return nil
	}
	b, err := e.benchmarks.ResolveCostPerWatt(ctx, region, sizing.SystemSizeKW)
	if err != nil {
		log.Warn().Err(err).Str("region", region).Msg("benchmark lookup failed, using default cost per watt")
		quote.Warnings = append(quote.Warnings, "cost benchmark unavailable; default cost per watt applied")
		return nil
	}
	if b == nil || !b.CostPerWatt.IsPositive() {
		return nil
	}
	return b
}
